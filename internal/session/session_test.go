package session_test

import (
	"context"
	"testing"

	"github.com/nhle/mailterm/internal/logging"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/session"
	"github.com/nhle/mailterm/tests/testutil"
)

func TestLifecycle(t *testing.T) {
	st := testutil.NewTestStore(t)
	ctx := context.Background()

	m := session.NewManager(st, logging.Discard())
	sess, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.SignedIn() {
		t.Fatal("fresh store should be signed out")
	}

	if err := m.Login(ctx, model.User{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u, ok := sess.User(); !ok || u.Email != "ada@example.com" {
		t.Errorf("User = %+v, %v", u, ok)
	}

	// A second manager over the same store sees the persisted user.
	other, err := session.NewManager(st, logging.Discard()).Load(ctx)
	if err != nil || !other.SignedIn() {
		t.Fatalf("restore: signed in = %v, err = %v", other.SignedIn(), err)
	}

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if sess.SignedIn() {
		t.Error("still signed in after logout")
	}
	restored, _ := session.NewManager(st, logging.Discard()).Load(ctx)
	if restored.SignedIn() {
		t.Error("logout did not clear the persisted record")
	}
}

func TestLoginRejectsInvalidUser(t *testing.T) {
	m := session.NewManager(testutil.NewTestStore(t), logging.Discard())
	if err := m.Login(context.Background(), model.User{Name: "no email"}); err == nil {
		t.Fatal("expected error")
	}
	if m.Session().SignedIn() {
		t.Error("invalid login signed in")
	}
}
