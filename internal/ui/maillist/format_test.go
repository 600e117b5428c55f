package maillist

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	now := time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC) // a Friday

	tests := []struct {
		raw  string
		want string
	}{
		{"Fri, 15 Mar 2024 09:05:00 +0000", "09:05"},
		{"Thu, 14 Mar 2024 23:59:00 +0000", "Yesterday"},
		{"Mon, 11 Mar 2024 10:00:00 +0000", "Monday"},
		{"Fri, 1 Mar 2024 10:00:00 +0000", "1 Mar"},
		{"Tue, 12 Dec 2023 10:00:00 +0000", "12 Dec 2023"},
		{"someday", "someday"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.raw, now); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestFormatDateAcrossDSTChange(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("no zone data: %v", err)
	}
	// Clocks moved forward on 31 March 2024, so that day had 23 hours.
	now := time.Date(2024, time.April, 1, 12, 0, 0, 0, berlin)

	tests := []struct {
		raw  string
		want string
	}{
		{"2024-03-31T10:00:00+02:00", "Yesterday"},
		{"2024-04-01T00:30:00+02:00", "00:30"},
		{"2024-03-26T10:00:00+01:00", "Tuesday"},
		{"2024-03-25T10:00:00+01:00", "25 Mar"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.raw, now); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ada Lovelace <ada@example.com>", "Ada Lovelace"},
		{`"Shop, Inc." <news@shop.example>`, "Shop, Inc."},
		{"bob@example.com", "bob@example.com"},
		{"<carol@example.com>", "carol@example.com"},
		{"not an address", "not an address"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SenderName(tt.in); got != tt.want {
			t.Errorf("SenderName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Şüpheli veya Güvenlik", 7); got != "Şüphel…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}
