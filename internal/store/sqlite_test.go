package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/store"
	"github.com/nhle/mailterm/tests/testutil"
)

func TestSessionRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadUser(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Fatalf("LoadUser on empty store: %v", err)
	}

	ada := model.User{Name: "Ada", Email: "ada@example.com", Picture: "http://p", Subject: "123"}
	if err := s.SaveUser(ctx, ada); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	got, err := s.LoadUser(ctx)
	if err != nil {
		t.Fatalf("LoadUser: %v", err)
	}
	if *got != ada {
		t.Errorf("LoadUser = %+v, want %+v", *got, ada)
	}

	bob := model.User{Name: "Bob", Email: "bob@example.com"}
	if err := s.SaveUser(ctx, bob); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	got, _ = s.LoadUser(ctx)
	if got.Email != "bob@example.com" {
		t.Errorf("session not replaced: %+v", got)
	}

	if err := s.ClearUser(ctx); err != nil {
		t.Fatalf("ClearUser: %v", err)
	}
	if _, err := s.LoadUser(ctx); !errors.Is(err, store.ErrNoSession) {
		t.Errorf("LoadUser after clear: %v", err)
	}
}

func TestSaveUserRequiresEmail(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.SaveUser(context.Background(), model.User{Name: "nobody"}); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestReopenKeepsSessionAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "mailterm.db")
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.SaveUser(context.Background(), model.User{Email: "ada@example.com"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s.Close()
	u, err := s.LoadUser(context.Background())
	if err != nil || u.Email != "ada@example.com" {
		t.Errorf("LoadUser after reopen = %+v, %v", u, err)
	}
}
