package app

import (
	"context"
	"reflect"
	"strings"
	gosync "sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailterm/internal/logging"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/reconcile"
	"github.com/nhle/mailterm/internal/session"
	appsync "github.com/nhle/mailterm/internal/sync"
	"github.com/nhle/mailterm/internal/ui/command"
	"github.com/nhle/mailterm/internal/ui/compose"
	"github.com/nhle/mailterm/internal/ui/confirm"
	"github.com/nhle/mailterm/internal/ui/maillist"
	"github.com/nhle/mailterm/tests/testutil"
)

type harness struct {
	t         *testing.T
	fake      *testutil.FakeAPI
	sessions  *session.Manager
	rec       *appsync.Reconciler
	m         Model
	forgotten []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logging.Discard()
	fake := testutil.NewFakeAPI(t)
	fake.IngestText = "2 new mails"
	fake.Seed("Sosyal", "a", "Older", "2024-01-01T10:00:00Z")
	fake.Seed("Sosyal", "b", "Newer", "2024-01-03T10:00:00Z")

	sessions := session.NewManager(testutil.NewTestStore(t), log)
	if err := sessions.Login(context.Background(), model.User{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("login: %v", err)
	}

	rec := appsync.New(time.Hour, log)
	t.Cleanup(rec.Stop)

	cfg := model.DefaultAppConfig()
	cfg.View.StatusTTLMS = 0

	h := &harness{t: t, fake: fake, sessions: sessions, rec: rec}
	h.m = New(Options{
		Config:     cfg,
		API:        fake.Client(),
		Sessions:   sessions,
		Reconciler: rec,
		Log:        log,
		Forget: func(email string) error {
			h.forgotten = append(h.forgotten, email)
			return nil
		},
	})
	return h
}

// connect runs the sign-in sequence and the first load.
func (h *harness) connect() {
	h.t.Helper()
	h.do(func(m *Model) tea.Cmd { return m.connectCmd("ada@example.com") })
	if got := h.m.view.State(); got != reconcile.StateLoaded {
		h.t.Fatalf("after connect view state = %v, want loaded", got)
	}
}

// do runs fn against the model and drains the command it returns.
func (h *harness) do(fn func(m *Model) tea.Cmd) {
	h.t.Helper()
	m := h.m
	cmd := fn(&m)
	h.m = m
	h.drain(cmd)
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	mdl, cmd := h.m.Update(msg)
	h.m = mdl.(Model)
	h.drain(cmd)
}

// drain executes commands and feeds back the messages produced by this
// module. Commands that block, such as timers, are dropped.
func (h *harness) drain(cmd tea.Cmd) {
	h.t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			h.t.Fatal("command queue did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		switch msg := runCmd(c).(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			if !strings.HasPrefix(reflect.TypeOf(msg).PkgPath(), "github.com/nhle/mailterm/") {
				continue
			}
			mdl, next := h.m.Update(msg)
			h.m = mdl.(Model)
			queue = append(queue, next)
		}
	}
}

func runCmd(c tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func (h *harness) paths() []string {
	var out []string
	for _, c := range h.fake.Calls() {
		out = append(out, c.Method+" "+c.Path)
	}
	return out
}

func TestConnectIngestsThenLoads(t *testing.T) {
	h := newHarness(t)
	h.connect()

	want := []string{
		"POST /mails/connect_mail",
		"POST /mails/insert_mails_into_database",
		"GET /mails/all",
	}
	if got := h.paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}

	visible := h.m.view.Visible()
	if len(visible) != 2 || visible[0].ID != "b" || visible[1].ID != "a" {
		t.Errorf("visible = %+v, want b then a", visible)
	}
	if h.m.status.Text != "2 new mails" {
		t.Errorf("status = %q", h.m.status.Text)
	}
	if got := h.m.counter(); got != "1-2 / 2" {
		t.Errorf("counter = %q", got)
	}
}

func TestConnectFailureStillLoads(t *testing.T) {
	h := newHarness(t)
	h.fake.FailPaths["/mails/connect_mail"] = testutil.FakeFailure{Status: 500, Detail: "gmail unreachable"}
	h.connect()

	if h.m.status.Text != "Connecting failed: gmail unreachable" {
		t.Errorf("status = %q", h.m.status.Text)
	}
	if h.m.connecting {
		t.Error("connect guard should be released")
	}
}

func TestDeleteRemovesAndSchedulesReconcile(t *testing.T) {
	h := newHarness(t)
	h.connect()

	h.send(maillist.ToggleMsg{ID: "a"})
	h.send(maillist.BulkMsg{Kind: reconcile.Delete})

	if _, ok := h.m.view.Find("a"); ok {
		t.Error("a should be removed after delete")
	}
	if h.m.view.Selection().Len() != 0 {
		t.Error("selection should be cleared")
	}
	if h.m.status.Severity != reconcile.SeveritySuccess || h.m.status.Text != "1 mail moved to trash" {
		t.Errorf("status = %+v", h.m.status)
	}
	if !h.rec.Pending(model.AllView) {
		t.Error("a reconcile should be pending for the view")
	}
}

func TestDeleteWithoutSelectionIsRefused(t *testing.T) {
	h := newHarness(t)
	h.connect()
	before := len(h.fake.Calls())

	h.send(maillist.BulkMsg{Kind: reconcile.Archive})

	if len(h.fake.Calls()) != before {
		t.Error("no request should be made without a selection")
	}
	if h.m.status.Text != "Select messages to archive" {
		t.Errorf("status = %q", h.m.status.Text)
	}
}

func TestSwitchViewCancelsReconcile(t *testing.T) {
	h := newHarness(t)
	h.connect()
	h.send(maillist.ToggleMsg{ID: "a"})
	h.send(maillist.BulkMsg{Kind: reconcile.Delete})

	h.do(func(m *Model) tea.Cmd { return m.switchView(model.TrashView) })

	if h.rec.Pending(model.AllView) {
		t.Error("reconcile for the old view should be cancelled")
	}
	if h.m.view.Key() != model.TrashView {
		t.Fatalf("view = %q", h.m.view.Key())
	}
	if _, ok := h.m.view.Find("a"); !ok {
		t.Error("trash should list the deleted message")
	}
}

func TestReconcileForInactiveViewIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.connect()
	before := len(h.fake.Calls())

	h.send(appsync.ReconcileDueMsg{Key: model.TrashView, Generation: 99})

	if len(h.fake.Calls()) != before {
		t.Errorf("unexpected calls: %v", h.paths()[before:])
	}
}

func TestPermanentDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.connect()
	h.send(maillist.ToggleMsg{ID: "b"})
	h.send(maillist.BulkMsg{Kind: reconcile.Delete})
	h.do(func(m *Model) tea.Cmd { return m.switchView(model.TrashView) })

	h.send(maillist.ToggleMsg{ID: "b"})
	h.send(maillist.BulkMsg{Kind: reconcile.PermanentDelete})
	if h.m.currentView != ViewConfirm {
		t.Fatalf("view = %v, want confirm", h.m.currentView)
	}

	h.send(confirm.ResultMsg{Tag: confirmPermanentDelete, Confirmed: false})
	if _, ok := h.m.view.Find("b"); !ok {
		t.Fatal("declining must keep the message")
	}

	h.send(maillist.BulkMsg{Kind: reconcile.PermanentDelete})
	h.send(confirm.ResultMsg{Tag: confirmPermanentDelete, Confirmed: true})
	if _, ok := h.m.view.Find("b"); ok {
		t.Error("b should be gone after permanent delete")
	}
	if h.m.currentView != ViewList {
		t.Errorf("view = %v, want list", h.m.currentView)
	}
}

func TestOpenMessageMarksRead(t *testing.T) {
	h := newHarness(t)
	h.connect()

	h.send(maillist.OpenMessageMsg{ID: "a"})

	if h.m.currentView != ViewDetail {
		t.Fatalf("view = %v, want detail", h.m.currentView)
	}
	got, _ := h.m.view.Find("a")
	if !got.Read {
		t.Error("opened message should be read")
	}
	if h.m.detail.MessageID() != "a" {
		t.Errorf("detail shows %q", h.m.detail.MessageID())
	}
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.connect()

	h.send(command.CommandMsg{Name: command.Logout})

	if h.m.currentView != ViewLogin {
		t.Errorf("view = %v, want login", h.m.currentView)
	}
	if h.sessions.Session().SignedIn() {
		t.Error("session should be cleared")
	}
	if len(h.m.view.Snapshot()) != 0 {
		t.Error("snapshot should be dropped")
	}
	if !reflect.DeepEqual(h.forgotten, []string{"ada@example.com"}) {
		t.Errorf("forgotten = %v", h.forgotten)
	}
}

func TestSendUsesSessionAddress(t *testing.T) {
	h := newHarness(t)
	h.do(func(m *Model) tea.Cmd {
		return m.send(compose.SendMsg{To: "bob@example.com", Subject: "Hi", Body: "Hello"})
	})

	calls := h.fake.Calls()
	last := calls[len(calls)-1]
	if last.Path != "/mails/send_mail" {
		t.Fatalf("last call = %s", last.Path)
	}
	if !strings.Contains(last.Query, "from=ada%40example.com") {
		t.Errorf("query = %q", last.Query)
	}
	if h.m.status.Severity != reconcile.SeveritySuccess {
		t.Errorf("status = %+v", h.m.status)
	}
}

// refreshStepOf runs cmd, unwrapping batches, until it yields a refresh
// step.
func refreshStepOf(t *testing.T, cmd tea.Cmd) reconcile.RefreshStep {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case reconcile.RefreshStep:
			return msg
		}
	}
	t.Fatal("command produced no refresh step")
	return reconcile.RefreshStep{}
}

func TestRefreshAppliesFirstLoadWhileIngesting(t *testing.T) {
	h := newHarness(t)
	h.connect()
	h.fake.Seed("Sosyal", "c", "Newest", "2024-01-05T10:00:00Z")

	hold := make(chan struct{})
	release := gosync.OnceFunc(func() { close(hold) })
	t.Cleanup(release)
	h.fake.IngestHold = hold

	m := h.m
	cmd := m.refresh()
	h.m = m

	mdl, next := h.m.Update(refreshStepOf(t, cmd))
	h.m = mdl.(Model)

	if h.m.view.State() != reconcile.StateLoaded {
		t.Fatalf("state = %v, want loaded while ingesting", h.m.view.State())
	}
	if _, ok := h.m.view.Find("c"); !ok {
		t.Error("first load should be applied before ingest returns")
	}
	if h.m.status.Text != "Fetching new mail..." {
		t.Errorf("status = %q", h.m.status.Text)
	}

	h.send(maillist.ToggleMsg{ID: "a"})
	h.send(maillist.BulkMsg{Kind: reconcile.Delete})
	if _, ok := h.m.view.Find("a"); ok {
		t.Error("delete during ingest should be applied")
	}
	if h.m.status.Text != "1 mail moved to trash" {
		t.Errorf("status = %q", h.m.status.Text)
	}

	release()
	h.send(refreshStepOf(t, next))

	paths := h.paths()
	tail := paths[len(paths)-2:]
	if want := []string{"POST /mails/insert_mails_into_database", "GET /mails/all"}; !reflect.DeepEqual(tail, want) {
		t.Errorf("last calls = %v, want %v", tail, want)
	}
	if h.m.view.Refreshing() || h.m.view.State() != reconcile.StateLoaded {
		t.Errorf("refresh did not finish: state=%v", h.m.view.State())
	}
	if h.m.status.Text != "2 new mails" {
		t.Errorf("status = %q", h.m.status.Text)
	}
	if got := len(h.m.view.Snapshot()); got != 2 {
		t.Errorf("snapshot size = %d, want 2", got)
	}
}

func TestRefreshRefusedWhileRunning(t *testing.T) {
	h := newHarness(t)
	h.connect()

	m := h.m
	first := m.refresh()
	if again := m.refresh(); again != nil {
		t.Error("second refresh should not start any work")
	}
	h.m = m

	if h.m.status.Text != "Already loading" {
		t.Errorf("status = %q", h.m.status.Text)
	}
	h.drain(first)
	if h.m.view.Refreshing() {
		t.Error("refresh should have finished")
	}
}

func TestMutationResultForReplacedViewIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.connect()
	h.send(maillist.ToggleMsg{ID: "a"})
	h.send(maillist.BulkMsg{Kind: reconcile.Delete})
	h.do(func(m *Model) tea.Cmd { return m.switchView(model.TrashView) })

	h.send(maillist.ToggleMsg{ID: "a"})
	m := h.m
	restore := m.startMutation(reconcile.Restore)
	h.m = m

	// Same key, fresh view.
	h.do(func(m *Model) tea.Cmd { return m.switchView(model.TrashView) })
	h.send(runCmd(restore))

	if _, ok := h.m.view.Find("a"); !ok {
		t.Error("result of the replaced view was applied to the new one")
	}
	if h.rec.Pending(model.TrashView) {
		t.Error("no reconcile should be scheduled for the new view")
	}
	if h.m.status.Text == "1 mail restored" {
		t.Errorf("status = %q", h.m.status.Text)
	}
}

func TestResolveCategory(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		arg  string
		want model.ViewKey
	}{
		{"personal", "Sosyal"},
		{"Sosyal", "Sosyal"},
		{"TRASH", model.TrashView},
		{"custom", "custom"},
	}
	for _, tt := range tests {
		if got := h.m.resolveCategory(tt.arg); got != tt.want {
			t.Errorf("resolveCategory(%q) = %q, want %q", tt.arg, got, tt.want)
		}
	}
}
