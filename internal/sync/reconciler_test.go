package sync

import (
	"testing"
	"time"

	"github.com/nhle/mailterm/internal/logging"
	"github.com/nhle/mailterm/internal/model"
)

func TestScheduleFires(t *testing.T) {
	r := New(10*time.Millisecond, logging.Discard())
	defer r.Stop()

	r.Schedule(model.AllView)
	if !r.Pending(model.AllView) {
		t.Fatal("expected pending reload")
	}

	select {
	case msg := <-r.resultCh:
		if msg.Key != model.AllView {
			t.Errorf("key = %q", msg.Key)
		}
		if !r.Accept(msg) {
			t.Error("fresh message rejected")
		}
	case <-time.After(time.Second):
		t.Fatal("reload never fired")
	}
	if r.Pending(model.AllView) {
		t.Error("still pending after firing")
	}
}

func TestCancelledReloadNeverFires(t *testing.T) {
	r := New(20*time.Millisecond, logging.Discard())
	defer r.Stop()

	r.Schedule(model.TrashView)
	r.Cancel(model.TrashView)

	select {
	case msg := <-r.resultCh:
		t.Fatalf("cancelled reload fired: %+v", msg)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestAcceptRejectsMessagesFromBeforeCancel(t *testing.T) {
	r := New(time.Hour, logging.Discard())
	defer r.Stop()

	r.Schedule(model.AllView)
	msg := ReconcileDueMsg{Key: model.AllView, Generation: r.gen}
	r.Cancel(model.AllView)
	if r.Accept(msg) {
		t.Error("message from before Cancel accepted")
	}

	r.Schedule(model.AllView)
	if !r.Accept(ReconcileDueMsg{Key: model.AllView, Generation: r.gen}) {
		t.Error("message after re-schedule rejected")
	}
}

func TestRescheduleRestartsDelay(t *testing.T) {
	r := New(30*time.Millisecond, logging.Discard())
	defer r.Stop()

	r.Schedule(model.AllView)
	time.Sleep(10 * time.Millisecond)
	r.Schedule(model.AllView)

	select {
	case msg := <-r.resultCh:
		if msg.Generation != 2 {
			t.Errorf("generation = %d, want 2", msg.Generation)
		}
	case <-time.After(time.Second):
		t.Fatal("reload never fired")
	}

	select {
	case msg := <-r.resultCh:
		t.Errorf("superseded reload fired: %+v", msg)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestStopReleasesWaiter(t *testing.T) {
	r := New(time.Hour, logging.Discard())
	cmd := r.Start()
	done := make(chan struct{})
	go func() {
		if msg := cmd(); msg != nil {
			t.Errorf("msg = %v, want nil", msg)
		}
		close(done)
	}()
	r.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}
