// Package reconcile owns the client-side state of a message list: the
// snapshot fetched for a view, its search projection and pagination, the
// selection, and how asynchronous load and mutation results are folded
// back in. A View is not safe for concurrent use; the UI loop owns it.
package reconcile

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/nhle/mailterm/internal/model"
)

// State is the load lifecycle of a view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PageInfo describes the visible window of the projection.
type PageInfo struct {
	Number int
	Count  int
	// Start and End are 1-based and inclusive; both are zero when the
	// projection is empty.
	Start int
	End   int
	Total int
}

func (p PageInfo) HasNext() bool { return p.Number < p.Count }
func (p PageInfo) HasPrev() bool { return p.Number > 1 }

// issued hands out view ids and load sequence numbers. They are unique
// across views, so a result can never match a view it was not issued for.
var issued atomic.Uint64

func nextSeq() uint64 { return issued.Add(1) }

// View is the snapshot and derived state of one message list.
type View struct {
	id       uint64
	key      model.ViewKey
	pageSize int

	snapshot []model.MessageSummary
	state    State
	errMsg   string
	seq      uint64

	// refreshSeq is the sequence number of the refresh stage in flight, or
	// zero when no refresh is running.
	refreshSeq uint64

	query     string
	page      int
	selection *Selection
	mutating  bool

	log logrus.FieldLogger
}

// NewView creates an idle view for key.
func NewView(key model.ViewKey, pageSize int, log logrus.FieldLogger) *View {
	if pageSize < 1 {
		pageSize = 1
	}
	return &View{
		id:        nextSeq(),
		key:       key,
		pageSize:  pageSize,
		page:      1,
		selection: NewSelection(),
		log:       log.WithField("view", string(key)),
	}
}

func (v *View) ID() uint64            { return v.id }
func (v *View) Key() model.ViewKey    { return v.key }
func (v *View) State() State          { return v.state }
func (v *View) Query() string         { return v.query }
func (v *View) Selection() *Selection { return v.selection }

// Refreshing reports whether a refresh still has stages to run.
func (v *View) Refreshing() bool { return v.refreshSeq != 0 }

// Err returns the failure message of the last load, if it failed.
func (v *View) Err() string {
	if v.state != StateFailed {
		return ""
	}
	return v.errMsg
}

// Snapshot returns the messages as last fetched, without filtering.
func (v *View) Snapshot() []model.MessageSummary {
	return v.snapshot
}

// BeginLoad moves the view to Loading and returns the sequence number the
// matching LoadResult must carry.
func (v *View) BeginLoad() uint64 {
	v.seq = nextSeq()
	v.state = StateLoading
	v.log.WithField("seq", v.seq).Debug("load started")
	return v.seq
}

// CompleteLoad applies a load result. Results for another view or an
// outdated sequence number are discarded and applied is false. On failure
// the previous snapshot is kept.
func (v *View) CompleteLoad(res LoadResult) (status Status, applied bool) {
	log := v.log.WithField("seq", res.Seq)
	if res.Key != v.key || res.Seq != v.seq {
		log.WithField("latest", v.seq).Debug("discarding stale load result")
		return Status{}, false
	}

	if res.Err != nil {
		v.state = StateFailed
		v.errMsg = ErrorDetail(res.Err)
		log.WithError(res.Err).Warn("load failed")
		return ErrorStatus("Loading messages", res.Err), true
	}

	v.replaceSnapshot(res.Messages)
	v.state = StateLoaded
	v.errMsg = ""
	log.WithField("count", len(res.Messages)).Debug("load applied")

	if res.Rejected > 0 {
		return InfoStatus("%d malformed messages skipped", res.Rejected), true
	}
	return Status{}, true
}

// BeginRefresh starts a refresh with its first load and returns the
// sequence number the first stage must carry.
func (v *View) BeginRefresh() uint64 {
	v.refreshSeq = v.BeginLoad()
	return v.refreshSeq
}

// RefreshNext is the stage to run after a refresh step was applied.
type RefreshNext struct {
	Stage RefreshStage
	Seq   uint64
}

// ApplyRefreshStep folds one refresh stage into the view and returns its
// status and the stage to run next. The first load is applied as soon as it
// lands, so the view leaves Loading while the backend ingests. An ingest
// failure ends the refresh and keeps what the first load applied. Steps of
// a refresh that is no longer current are discarded and applied is false.
func (v *View) ApplyRefreshStep(step RefreshStep) (status Status, next RefreshNext, applied bool) {
	log := v.log.WithFields(logrus.Fields{"seq": step.Seq, "stage": step.Stage.String()})
	if step.Key != v.key || v.refreshSeq == 0 || step.Seq != v.refreshSeq {
		log.Debug("discarding stale refresh step")
		return Status{}, RefreshNext{}, false
	}

	switch step.Stage {
	case RefreshFirstLoad:
		st, ok := v.CompleteLoad(step.Load)
		if !ok {
			v.refreshSeq = 0
			return Status{}, RefreshNext{}, false
		}
		if v.key.IsTrash() {
			v.refreshSeq = 0
			if st.Severity == SeverityError {
				return st, RefreshNext{}, true
			}
			return SuccessStatus("Trash refreshed"), RefreshNext{}, true
		}
		if st.Severity != SeverityError {
			st = InfoStatus("Fetching new mail...")
		}
		return st, RefreshNext{Stage: RefreshIngest, Seq: step.Seq}, true

	case RefreshIngest:
		if step.IngestErr != nil {
			v.refreshSeq = 0
			log.WithError(step.IngestErr).Warn("ingest failed")
			return ErrorStatus("Fetching new mail", step.IngestErr), RefreshNext{}, true
		}
		st := SuccessStatus("Mail refreshed")
		if step.IngestSummary != "" {
			st = SuccessStatus("%s", step.IngestSummary)
		}
		v.refreshSeq = v.BeginLoad()
		return st, RefreshNext{Stage: RefreshSecondLoad, Seq: v.refreshSeq}, true

	case RefreshSecondLoad:
		v.refreshSeq = 0
		st, ok := v.CompleteLoad(step.Load)
		return st, RefreshNext{}, ok
	}

	v.refreshSeq = 0
	return Status{}, RefreshNext{}, false
}

// replaceSnapshot swaps in a fresh snapshot. Read flags come from the
// server record, which is always unread.
func (v *View) replaceSnapshot(msgs []model.MessageSummary) {
	snap := make([]model.MessageSummary, len(msgs))
	for i, m := range msgs {
		m.Read = false
		snap[i] = m
	}
	v.snapshot = snap

	present := make(map[string]bool, len(snap))
	for _, m := range snap {
		present[m.ID] = true
	}
	v.selection.retain(present)
	v.clampPage()
}

// SetQuery replaces the search query and returns to the first page.
func (v *View) SetQuery(q string) {
	v.query = q
	v.page = 1
}

// Projection returns the filtered and sorted snapshot.
func (v *View) Projection() []model.MessageSummary {
	return Project(v.snapshot, v.query)
}

// Visible returns the messages on the current page.
func (v *View) Visible() []model.MessageSummary {
	items, page := Paginate(v.Projection(), v.page, v.pageSize)
	v.page = page
	return items
}

// Page describes the current page window.
func (v *View) Page() PageInfo {
	n := len(v.Projection())
	info := PageInfo{
		Number: ClampPage(v.page, n, v.pageSize),
		Count:  PageCount(n, v.pageSize),
		Total:  n,
	}
	if n > 0 {
		info.Start = (info.Number-1)*v.pageSize + 1
		info.End = info.Start + v.pageSize - 1
		if info.End > n {
			info.End = n
		}
	}
	return info
}

// NextPage advances one page when there is one.
func (v *View) NextPage() bool {
	if !v.Page().HasNext() {
		return false
	}
	v.page++
	return true
}

// PrevPage goes back one page when possible.
func (v *View) PrevPage() bool {
	if v.page <= 1 {
		return false
	}
	v.page--
	v.clampPage()
	return true
}

func (v *View) clampPage() {
	v.page = ClampPage(v.page, len(v.Projection()), v.pageSize)
}

// ToggleAll selects every message in the projection, or clears the
// selection when all of them are already selected.
func (v *View) ToggleAll() {
	ids := idsOf(v.Projection())
	if v.selection.HasAll(ids) {
		v.selection.Clear()
		return
	}
	v.selection.SelectAll(ids)
}

// Find returns the snapshot message with the given id.
func (v *View) Find(id string) (model.MessageSummary, bool) {
	for _, m := range v.snapshot {
		if m.ID == id {
			return m, true
		}
	}
	return model.MessageSummary{}, false
}

// MarkRead sets the local read flag on the given messages.
func (v *View) MarkRead(ids ...string) int {
	want := toSet(ids)
	n := 0
	for i := range v.snapshot {
		if want[v.snapshot[i].ID] {
			v.snapshot[i].Read = true
			n++
		}
	}
	return n
}

// CanMutate reports whether a bulk action could start now, and if not,
// the status explaining why.
func (v *View) CanMutate(kind MutationKind) (Status, bool) {
	switch {
	case v.state == StateLoading:
		return InfoStatus("Still loading, try again in a moment"), false
	case v.state != StateLoaded:
		return InfoStatus("Nothing to %s yet", kind.Verb()), false
	case v.mutating:
		return InfoStatus("Another action is still running"), false
	case v.selection.Len() == 0:
		return InfoStatus("Select messages to %s", kind.Verb()), false
	}
	return Status{}, true
}

// BeginMutation reserves the view for a bulk action. It refuses while a
// load or another mutation is in flight, or when nothing is selected.
func (v *View) BeginMutation(kind MutationKind) (Status, bool) {
	if st, ok := v.CanMutate(kind); !ok {
		return st, false
	}
	if kind.Remote() {
		v.mutating = true
	}
	return Status{}, true
}

// ApplyMutation folds a finished bulk action into the view. For remote
// kinds with a positive count the ids leave the snapshot, the selection is
// cleared, and reconcile is true: a full load should follow after the
// configured delay. Any other outcome leaves the snapshot as it was.
func (v *View) ApplyMutation(kind MutationKind, ids []string, out Outcome) (status Status, reconcile bool) {
	log := v.log.WithFields(logrus.Fields{
		"kind":  kind.String(),
		"count": out.Count,
		"ids":   len(ids),
	})

	if kind == MarkRead {
		n := v.MarkRead(ids...)
		v.selection.Clear()
		log.Debug("marked read")
		return SuccessStatus("%d messages marked as read", n), false
	}

	v.mutating = false

	if out.Err != nil {
		log.WithError(out.Err).Warn("mutation failed")
		return ErrorStatus(kind.Action(), out.Err), false
	}
	if out.Count <= 0 {
		log.WithField("message", out.Message).Warn("mutation affected nothing")
		msg := out.Message
		if msg == "" {
			msg = "no messages were affected"
		}
		return Status{Severity: SeverityError, Text: fmt.Sprintf("%s failed: %s", kind.Action(), msg)}, false
	}

	remove := toSet(ids)
	kept := v.snapshot[:0:0]
	for _, m := range v.snapshot {
		if !remove[m.ID] {
			kept = append(kept, m)
		}
	}
	v.snapshot = kept
	v.selection.Clear()
	v.clampPage()
	log.Info("mutation applied")

	if out.Message != "" {
		return SuccessStatus("%s", out.Message), true
	}
	return SuccessStatus("%d messages %s", out.Count, kind.PastTense()), true
}

// Reset drops the snapshot and selection, e.g. on logout.
func (v *View) Reset() {
	v.snapshot = nil
	v.state = StateIdle
	v.errMsg = ""
	v.query = ""
	v.page = 1
	v.mutating = false
	v.selection.Clear()
	v.refreshSeq = 0
	v.seq = nextSeq()
}

func idsOf(msgs []model.MessageSummary) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
