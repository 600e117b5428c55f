package mailapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nhle/mailterm/internal/logging"
	"github.com/nhle/mailterm/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(model.APIConfig{
		BaseURL:    srv.URL + "/",
		TimeoutSec: 5,
		MaxRetries: 2,
	}, logging.Discard())
}

func TestListEscapesCategoryAndParses(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		io.WriteString(w, `{"mails":[
			{"id":"1","sender":"Ada <ada@example.com>","subject":"Hi","date":"Mon, 01 Jan 2024 10:00:00 +0000","predicted_class":"Sosyal"},
			{"_id":{"$oid":"2"},"snippet":"fallback","body":"text"},
			{"subject":"no id"}
		]}`)
	})

	msgs, rejected, err := c.List(context.Background(), "Pazarlama ve Reklam (Tanıtımlar)")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !strings.HasPrefix(gotPath, "/mails/Pazarlama%20ve%20Reklam%20%28Tan%C4%B1t%C4%B1mlar%29") &&
		!strings.HasPrefix(gotPath, "/mails/Pazarlama%20ve%20Reklam%20(Tan%C4%B1t%C4%B1mlar)") {
		t.Errorf("path = %q", gotPath)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if len(rejected) != 1 {
		t.Errorf("got %d rejected, want 1", len(rejected))
	}
	if msgs[1].ID != "2" || msgs[1].Subject != "fallback" || msgs[1].Content != "text" {
		t.Errorf("fallbacks not applied: %+v", msgs[1])
	}
	if msgs[1].Category != "Pazarlama ve Reklam (Tanıtımlar)" {
		t.Errorf("category fallback = %q", msgs[1].Category)
	}
}

func TestErrorDetailExtraction(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", 404, `{"detail":"No mails found"}`, "No mails found"},
		{"structured detail", 422, `{"detail": [ {"loc": ["body"], "msg": "field required"} ]}`, `[{"loc":["body"],"msg":"field required"}]`},
		{"plain text", 500, "  Internal Server Error\n", "Internal Server Error"},
		{"empty body", 502, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.Delete(context.Background(), []string{"a"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Detail != tt.want {
				t.Errorf("detail = %q, want %q", apiErr.Detail, tt.want)
			}
		})
	}
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"token expired"}`)
	})
	_, err := c.Connect(context.Background(), "ada@example.com")
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestRetriesOnTooManyRequests(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"archived_count":2,"message":"2 mails archived"}`)
	})

	res, err := c.Archive(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if res.ArchivedCount != 2 {
		t.Errorf("archived = %d, want 2", res.ArchivedCount)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestMutationsSendIDs(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		call   func(c *Client) (int, error)
	}{
		{"delete", http.MethodDelete, "/mails/delete-selected", func(c *Client) (int, error) {
			r, err := c.Delete(context.Background(), []string{"x", "y"})
			if err != nil {
				return 0, err
			}
			return r.DeletedCount, nil
		}},
		{"permanent", http.MethodDelete, "/mails/permanently-delete", func(c *Client) (int, error) {
			r, err := c.PermanentDelete(context.Background(), []string{"x", "y"})
			if err != nil {
				return 0, err
			}
			return r.DeletedCount, nil
		}},
		{"restore", http.MethodPost, "/mails/restore-from-trash", func(c *Client) (int, error) {
			r, err := c.Restore(context.Background(), []string{"x", "y"})
			if err != nil {
				return 0, err
			}
			return r.DeletedCount, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.method || r.URL.Path != tt.path {
					t.Errorf("got %s %s", r.Method, r.URL.Path)
				}
				var req mailIDsRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decoding body: %v", err)
				}
				if len(req.MailIDs) != 2 || req.MailIDs[0] != "x" {
					t.Errorf("mail_ids = %v", req.MailIDs)
				}
				io.WriteString(w, `{"deleted_count":2,"message":"ok"}`)
			})
			n, err := tt.call(c)
			if err != nil {
				t.Fatal(err)
			}
			if n != 2 {
				t.Errorf("count = %d, want 2", n)
			}
		})
	}
}

func TestSendUsesQueryParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("to") != "bob@example.com" || q.Get("subject") != "Hello" ||
			q.Get("body") != "Hi Bob" || q.Get("from") != "Ada <ada@example.com>" {
			t.Errorf("query = %v", q)
		}
		io.WriteString(w, `"Mail sent"`)
	})

	got, err := c.Send(context.Background(), SendRequest{
		To: "bob@example.com", Subject: "Hello", Body: "Hi Bob", From: "Ada <ada@example.com>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != "Mail sent" {
		t.Errorf("Send = %q", got)
	}
}

func TestIngestReturnsText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "12 mails inserted")
	})
	got, err := c.Ingest(context.Background())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if got != "12 mails inserted" {
		t.Errorf("Ingest = %q", got)
	}
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.List(ctx, model.AllView); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
