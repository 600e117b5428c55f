package reconcile

import (
	"context"

	"github.com/nhle/mailterm/internal/mailapi"
	"github.com/nhle/mailterm/internal/model"
)

// Lister fetches the messages of a view.
type Lister interface {
	List(ctx context.Context, key model.ViewKey) ([]model.MessageSummary, []error, error)
}

// Ingester asks the backend to pull new mail.
type Ingester interface {
	Ingest(ctx context.Context) (string, error)
}

// Mutator performs the bulk actions.
type Mutator interface {
	Delete(ctx context.Context, ids []string) (*mailapi.DeleteResult, error)
	Archive(ctx context.Context, ids []string) (*mailapi.ArchiveResult, error)
	Restore(ctx context.Context, ids []string) (*mailapi.CountResult, error)
	PermanentDelete(ctx context.Context, ids []string) (*mailapi.CountResult, error)
}

// API is everything the reconciler needs from the backend.
type API interface {
	Lister
	Ingester
	Mutator
}

// LoadResult is the outcome of one fetch, tagged with the view and
// sequence number it was issued for.
type LoadResult struct {
	Key      model.ViewKey
	Seq      uint64
	Messages []model.MessageSummary
	Rejected int
	Err      error
}

// Load fetches the messages of key. It never touches view state.
func Load(ctx context.Context, l Lister, key model.ViewKey, seq uint64) LoadResult {
	msgs, rejected, err := l.List(ctx, key)
	return LoadResult{
		Key:      key,
		Seq:      seq,
		Messages: msgs,
		Rejected: len(rejected),
		Err:      err,
	}
}

// RefreshStage names one step of a refresh.
type RefreshStage int

const (
	RefreshDone RefreshStage = iota
	RefreshFirstLoad
	RefreshIngest
	RefreshSecondLoad
)

func (s RefreshStage) String() string {
	switch s {
	case RefreshDone:
		return "done"
	case RefreshFirstLoad:
		return "first_load"
	case RefreshIngest:
		return "ingest"
	case RefreshSecondLoad:
		return "second_load"
	default:
		return "unknown"
	}
}

// RefreshStep is the outcome of one refresh stage, tagged with the view and
// the sequence number of the refresh it belongs to.
type RefreshStep struct {
	Key   model.ViewKey
	Seq   uint64
	Stage RefreshStage

	// Load is set for the two load stages.
	Load LoadResult

	IngestSummary string
	IngestErr     error
}

// RunRefreshStage performs a single stage of a refresh. Category views run
// first load, ingest, second load; the trash only runs the first load. The
// caller decides what comes next with View.ApplyRefreshStep.
func RunRefreshStage(ctx context.Context, api API, key model.ViewKey, seq uint64, stage RefreshStage) RefreshStep {
	step := RefreshStep{Key: key, Seq: seq, Stage: stage}
	switch stage {
	case RefreshFirstLoad, RefreshSecondLoad:
		step.Load = Load(ctx, api, key, seq)
	case RefreshIngest:
		step.IngestSummary, step.IngestErr = api.Ingest(ctx)
	}
	return step
}

// MutationKind names a bulk action.
type MutationKind int

const (
	Delete MutationKind = iota
	Archive
	Restore
	PermanentDelete
	MarkRead
)

func (k MutationKind) String() string {
	switch k {
	case Delete:
		return "delete"
	case Archive:
		return "archive"
	case Restore:
		return "restore"
	case PermanentDelete:
		return "permanent_delete"
	case MarkRead:
		return "mark_read"
	default:
		return "unknown"
	}
}

// Action is the capitalized label used in status messages.
func (k MutationKind) Action() string {
	switch k {
	case Delete:
		return "Delete"
	case Archive:
		return "Archive"
	case Restore:
		return "Restore"
	case PermanentDelete:
		return "Permanent delete"
	case MarkRead:
		return "Mark as read"
	default:
		return "Action"
	}
}

// Verb is the lower-case imperative used in prompts.
func (k MutationKind) Verb() string {
	switch k {
	case PermanentDelete:
		return "delete permanently"
	case MarkRead:
		return "mark as read"
	default:
		return k.String()
	}
}

// PastTense completes "N messages ...".
func (k MutationKind) PastTense() string {
	switch k {
	case Delete:
		return "moved to trash"
	case Archive:
		return "archived"
	case Restore:
		return "restored"
	case PermanentDelete:
		return "permanently deleted"
	case MarkRead:
		return "marked as read"
	default:
		return "changed"
	}
}

// Remote reports whether the action is performed by the backend.
func (k MutationKind) Remote() bool {
	return k != MarkRead
}

// Outcome is the backend's answer to a bulk action.
type Outcome struct {
	Count   int
	Message string
	Err     error
}

// Mutate performs a remote bulk action. MarkRead has no remote side and
// returns a zero Outcome.
func Mutate(ctx context.Context, m Mutator, kind MutationKind, ids []string) Outcome {
	switch kind {
	case Delete:
		res, err := m.Delete(ctx, ids)
		if err != nil {
			return Outcome{Err: err}
		}
		return Outcome{Count: res.DeletedCount, Message: res.Message}
	case Archive:
		res, err := m.Archive(ctx, ids)
		if err != nil {
			return Outcome{Err: err}
		}
		return Outcome{Count: res.ArchivedCount, Message: res.Message}
	case Restore:
		res, err := m.Restore(ctx, ids)
		if err != nil {
			return Outcome{Err: err}
		}
		return Outcome{Count: res.DeletedCount, Message: res.Message}
	case PermanentDelete:
		res, err := m.PermanentDelete(ctx, ids)
		if err != nil {
			return Outcome{Err: err}
		}
		return Outcome{Count: res.DeletedCount, Message: res.Message}
	default:
		return Outcome{}
	}
}
