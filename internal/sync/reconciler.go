// Package sync schedules the delayed full reloads that follow a successful
// bulk action. Timers run on their own goroutines and only ever deliver
// messages to the Bubble Tea runtime; they never touch view state.
package sync

import (
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/mailterm/internal/model"
)

// ReconcileDueMsg is a tea.Msg sent when a scheduled reload for a view is
// due.
type ReconcileDueMsg struct {
	Key        model.ViewKey
	Generation uint64
}

type pending struct {
	timer *time.Timer
	gen   uint64
}

// Reconciler owns one cancellable timer per view. Scheduling a view that
// already has a pending reload restarts its delay.
type Reconciler struct {
	delay     time.Duration
	resultCh  chan ReconcileDueMsg
	stopCh    chan struct{}
	mu        gosync.Mutex
	pending   map[model.ViewKey]*pending
	cancelled map[model.ViewKey]uint64
	gen       uint64
	stopped   bool
	log       logrus.FieldLogger
}

// New creates a Reconciler that fires delay after each Schedule.
func New(delay time.Duration, log logrus.FieldLogger) *Reconciler {
	return &Reconciler{
		delay:     delay,
		resultCh:  make(chan ReconcileDueMsg, 16),
		stopCh:    make(chan struct{}),
		pending:   make(map[model.ViewKey]*pending),
		cancelled: make(map[model.ViewKey]uint64),
		log:       log,
	}
}

// Start returns a tea.Cmd that waits for the next due reload.
func (r *Reconciler) Start() tea.Cmd {
	return r.waitForResult()
}

// Schedule arms a reload of key after the configured delay.
func (r *Reconciler) Schedule(key model.ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	if p, ok := r.pending[key]; ok {
		p.timer.Stop()
	}

	r.gen++
	gen := r.gen
	p := &pending{gen: gen}
	p.timer = time.AfterFunc(r.delay, func() { r.fire(key, gen) })
	r.pending[key] = p

	r.log.WithFields(logrus.Fields{
		"view":  string(key),
		"delay": r.delay.String(),
	}).Debug("reconcile scheduled")
}

// Cancel drops a pending reload of key. A reload that already fired but has
// not been handled yet is rejected by Accept.
func (r *Reconciler) Cancel(key model.ViewKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(key)
}

// CancelAll drops every pending reload.
func (r *Reconciler) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.pending {
		r.cancelLocked(key)
	}
}

func (r *Reconciler) cancelLocked(key model.ViewKey) {
	if p, ok := r.pending[key]; ok {
		p.timer.Stop()
		delete(r.pending, key)
		r.log.WithField("view", string(key)).Debug("reconcile cancelled")
	}
	r.cancelled[key] = r.gen
}

// Pending reports whether a reload of key is armed.
func (r *Reconciler) Pending(key model.ViewKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[key]
	return ok
}

// Accept reports whether msg was scheduled after the last Cancel of its
// view.
func (r *Reconciler) Accept(msg ReconcileDueMsg) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return msg.Generation > r.cancelled[msg.Key]
}

// Stop cancels every timer and releases any goroutine waiting for a result.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	for key, p := range r.pending {
		p.timer.Stop()
		delete(r.pending, key)
	}
	r.stopped = true
	close(r.stopCh)
}

func (r *Reconciler) fire(key model.ViewKey, gen uint64) {
	r.mu.Lock()
	p, ok := r.pending[key]
	if !ok || p.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.pending, key)
	r.mu.Unlock()

	r.sendResult(ReconcileDueMsg{Key: key, Generation: gen})
}

// sendResult sends on the result channel without blocking.
func (r *Reconciler) sendResult(msg ReconcileDueMsg) {
	select {
	case r.resultCh <- msg:
	default:
		r.log.WithField("view", string(msg.Key)).Warn("reconcile channel full, dropping")
	}
}

// waitForResult returns a tea.Cmd that blocks until a reload is due or the
// reconciler is stopped.
func (r *Reconciler) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-r.resultCh:
			return msg
		case <-r.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next due reload.
// It should be returned after handling each ReconcileDueMsg.
func (r *Reconciler) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}
