package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/mailterm/internal/keys"
	"github.com/nhle/mailterm/internal/mailapi"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/reconcile"
	"github.com/nhle/mailterm/internal/session"
	appsync "github.com/nhle/mailterm/internal/sync"
	"github.com/nhle/mailterm/internal/theme"
	"github.com/nhle/mailterm/internal/ui"
	"github.com/nhle/mailterm/internal/ui/categories"
	"github.com/nhle/mailterm/internal/ui/command"
	"github.com/nhle/mailterm/internal/ui/compose"
	"github.com/nhle/mailterm/internal/ui/confirm"
	"github.com/nhle/mailterm/internal/ui/detail"
	helpview "github.com/nhle/mailterm/internal/ui/help"
	"github.com/nhle/mailterm/internal/ui/login"
	"github.com/nhle/mailterm/internal/ui/maillist"
)

// Backend is the part of the mail API the app talks to.
type Backend interface {
	reconcile.API
	Connect(ctx context.Context, email string) (*mailapi.Profile, error)
	Send(ctx context.Context, msg mailapi.SendRequest) (string, error)
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewDetail
	ViewCompose
	ViewCategories
	ViewHelp
	ViewCommand
	ViewConfirm
)

const confirmPermanentDelete = "permanent_delete"

// Options wires the app to its collaborators.
type Options struct {
	Config     *model.AppConfig
	API        Backend
	Sessions   *session.Manager
	Reconciler *appsync.Reconciler
	Log        logrus.FieldLogger

	// Forget, when set, drops stored credentials for an address on logout.
	Forget func(email string) error
}

// Model is the root Bubble Tea model. It owns the active reconcile.View and
// routes input between the sub-views.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ready        bool

	cfg        *model.AppConfig
	keys       *keys.KeyMap
	api        Backend
	sessions   *session.Manager
	sess       *session.Session
	reconciler *appsync.Reconciler
	forget     func(string) error
	log        logrus.FieldLogger
	ctx        context.Context

	view       *reconcile.View
	connecting bool

	status   reconcile.Status
	statusID int

	list        maillist.Model
	detail      detail.Model
	compose     compose.Model
	login       login.Model
	categories  categories.Model
	helpView    helpview.Model
	commandView command.Model
	confirm     confirm.Model
}

// New creates the root model. The session should already be loaded.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	cfg := opts.Config
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	m := Model{
		cfg:         cfg,
		keys:        k,
		api:         opts.API,
		sessions:    opts.Sessions,
		sess:        opts.Sessions.Session(),
		reconciler:  opts.Reconciler,
		forget:      opts.Forget,
		log:         log,
		ctx:         context.Background(),
		list:        maillist.New(k, 80, 22),
		detail:      detail.New(k, 80, 22),
		compose:     compose.New(80, 22),
		login:       login.New(80, 22),
		categories:  categories.New(cfg.Categories, k, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80, 22),
		confirm:     confirm.New(80),
	}
	m.view = reconcile.NewView(m.defaultKey(), cfg.View.PageSize, log)
	m.categories.SetCurrent(m.view.Key())

	if u, ok := m.sess.User(); ok {
		m.currentView = ViewList
		m.connecting = true
		m.status = reconcile.InfoStatus("Connecting %s...", u.Email)
	} else {
		m.currentView = ViewLogin
		m.login.Start("")
	}
	return m
}

// Init starts the reconcile listener and either the sign-in form or the
// connect sequence for a restored session.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.reconciler.Start(), m.list.Init()}
	if u, ok := m.sess.User(); ok {
		cmds = append(cmds, m.connectCmd(u.Email))
	} else {
		cmds = append(cmds, m.login.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.list.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.compose.SetSize(w, h)
		m.login.SetSize(w, h)
		m.categories.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.confirm.SetSize(w)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = reconcile.Status{}
		}
		return m, nil

	// Session lifecycle

	case login.SubmitMsg:
		return m, m.loginCmd(msg.User)

	case login.CancelMsg:
		return m, m.quit()

	case loggedInMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("sign-in failed")
			return m, m.login.Start(reconcile.ErrorStatus("Signing in", msg.err).Text)
		}
		m.currentView = ViewList
		return m, m.startConnect()

	case connectedMsg:
		return m.handleConnected(msg)

	case ingestedMsg:
		m.connecting = false
		var st reconcile.Status
		if msg.err != nil {
			st = reconcile.ErrorStatus("Fetching new mail", msg.err)
		} else if msg.summary != "" {
			st = reconcile.SuccessStatus("%s", msg.summary)
		}
		return m, tea.Batch(m.setStatus(st), m.beginLoad())

	case loggedOutMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("logout did not complete cleanly")
		}
		m.currentView = ViewLogin
		return m, tea.Batch(
			m.setStatus(reconcile.InfoStatus("Signed out")),
			m.login.Start(""),
		)

	// Loads and mutations

	case reconcile.LoadResult:
		st, applied := m.view.CompleteLoad(msg)
		if !applied {
			return m, nil
		}
		m.syncList()
		return m, m.setStatus(st)

	case reconcile.RefreshStep:
		st, next, applied := m.view.ApplyRefreshStep(msg)
		if !applied {
			return m, nil
		}
		m.syncList()
		cmd := m.setStatus(st)
		if next.Stage != reconcile.RefreshDone {
			cmd = tea.Batch(cmd, m.refreshStage(next.Stage, next.Seq))
		}
		return m, cmd

	case mutatedMsg:
		return m.handleMutated(msg)

	case appsync.ReconcileDueMsg:
		wait := m.reconciler.WaitForNextResult()
		if msg.Key != m.view.Key() || !m.reconciler.Accept(msg) {
			m.log.WithField("view", string(msg.Key)).Debug("ignoring reconcile for inactive view")
			return m, wait
		}
		if m.view.State() == reconcile.StateLoading {
			return m, wait
		}
		return m, tea.Batch(wait, m.beginLoad())

	case sentMsg:
		if msg.err != nil {
			return m, m.setStatus(reconcile.ErrorStatus("Sending", msg.err))
		}
		text := msg.text
		if text == "" {
			text = "Message sent"
		}
		return m, m.setStatus(reconcile.SuccessStatus("%s", text))

	// List intents

	case maillist.OpenMessageMsg:
		found, ok := m.view.Find(msg.ID)
		if !ok {
			return m, nil
		}
		m.view.MarkRead(found.ID)
		found.Read = true
		m.syncList()
		m.detail.SetMessage(found, m.categoryLabel(model.ViewKey(found.Category)))
		m.previousView = m.currentView
		m.currentView = ViewDetail
		return m, nil

	case maillist.SearchMsg:
		m.view.SetQuery(msg.Query)
		m.list.ResetCursor()
		m.syncList()
		return m, nil

	case maillist.ToggleMsg:
		m.view.Selection().Toggle(msg.ID)
		m.syncList()
		return m, nil

	case maillist.ToggleAllMsg:
		m.view.ToggleAll()
		m.syncList()
		return m, nil

	case maillist.PageMsg:
		moved := false
		if msg.Delta > 0 {
			moved = m.view.NextPage()
		} else if msg.Delta < 0 {
			moved = m.view.PrevPage()
		}
		if moved {
			m.list.ResetCursor()
			m.syncList()
		}
		return m, nil

	case maillist.RefreshMsg:
		return m, m.refresh()

	case maillist.BulkMsg:
		if msg.Kind == reconcile.PermanentDelete {
			return m.askPermanentDelete()
		}
		return m, m.startMutation(msg.Kind)

	case confirm.ResultMsg:
		m.currentView = ViewList
		if msg.Tag == confirmPermanentDelete && msg.Confirmed {
			return m, m.startMutation(reconcile.PermanentDelete)
		}
		return m, nil

	// Sub-view navigation

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case categories.SelectMsg:
		m.currentView = ViewList
		return m, m.switchView(msg.Key)

	case categories.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case compose.SendMsg:
		m.currentView = ViewList
		return m, m.send(msg)

	case compose.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case command.ErrorMsg:
		m.currentView = m.previousView
		return m, m.setStatus(reconcile.ErrorStatus("Command", msg.Err))

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey applies keys that are not owned by a focused input.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}

	switch m.currentView {
	case ViewLogin, ViewCompose, ViewConfirm:
		return nil, false
	case ViewHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	case ViewCommand:
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	case ViewCategories:
		return nil, false
	case ViewDetail:
		switch {
		case key.Matches(msg, m.keys.Help):
			return m.openHelp(), true
		case key.Matches(msg, m.keys.Command):
			return m.openCommand(), true
		}
		return nil, false
	}

	// ViewList
	if m.list.Searching() {
		return nil, false
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true
	case key.Matches(msg, m.keys.Help):
		return m.openHelp(), true
	case key.Matches(msg, m.keys.Command):
		return m.openCommand(), true
	case key.Matches(msg, m.keys.Categories):
		m.categories.SetCurrent(m.view.Key())
		m.previousView = m.currentView
		m.currentView = ViewCategories
		return nil, true
	case key.Matches(msg, m.keys.Trash):
		return m.switchView(model.TrashView), true
	case key.Matches(msg, m.keys.Compose):
		return m.openCompose(), true
	case key.Matches(msg, m.keys.Logout):
		return m.logout(), true
	}
	return nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewCompose:
		m.compose, cmd = m.compose.Update(msg)
	case ViewCategories:
		m.categories, cmd = m.categories.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
	}

	// The spinner keeps ticking while the list is hidden.
	if _, ok := msg.(spinner.TickMsg); ok && m.currentView != ViewList {
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmd = tea.Batch(cmd, listCmd)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.title(), m.userLabel())
	content := m.renderContent()

	style := theme.StatusBarStyle
	text := m.keyHints()
	if !m.status.IsZero() {
		style = theme.StatusMessageStyle(int(m.status.Severity))
		text = m.status.Text
	}
	statusBar := m.layout.RenderStatusBar(style, text, m.counter())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.login.View()
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewCompose:
		return m.compose.View()
	case ViewCategories:
		return m.categories.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewConfirm:
		return m.confirm.View()
	default:
		return ""
	}
}

// executeCommand runs a parsed palette command.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case command.Refresh:
		return m.refresh()
	case command.Trash:
		return m.switchView(model.TrashView)
	case command.Inbox:
		return m.switchView(m.defaultKey())
	case command.Category:
		return m.switchView(m.resolveCategory(c.Arg))
	case command.Compose:
		return m.openCompose()
	case command.Logout:
		return m.logout()
	case command.Help:
		return m.openHelp()
	case command.Quit:
		return m.quit()
	default:
		return nil
	}
}

func (m *Model) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.connecting = false
		m.log.WithError(msg.err).Warn("connect failed")
		// Mail the backend already stored is still worth showing.
		return *m, tea.Batch(
			m.setStatus(reconcile.ErrorStatus("Connecting", msg.err)),
			m.beginLoad(),
		)
	}

	st := reconcile.InfoStatus("Connected, fetching new mail...")
	if msg.profile != nil && msg.profile.EmailAddress != "" {
		st = reconcile.InfoStatus("Connected as %s, fetching new mail...", msg.profile.EmailAddress)
	}
	return *m, tea.Batch(m.setStatus(st), m.ingest())
}

func (m *Model) handleMutated(msg mutatedMsg) (tea.Model, tea.Cmd) {
	if msg.view != m.view.ID() || !m.sess.SignedIn() {
		m.log.WithFields(logrus.Fields{
			"view": string(msg.key),
			"kind": msg.kind.String(),
		}).Debug("discarding result for inactive view")
		return *m, nil
	}

	st, rec := m.view.ApplyMutation(msg.kind, msg.ids, msg.out)
	m.syncList()
	if rec {
		m.reconciler.Schedule(msg.key)
	}
	return *m, m.setStatus(st)
}

func (m *Model) askPermanentDelete() (tea.Model, tea.Cmd) {
	if st, ok := m.view.CanMutate(reconcile.PermanentDelete); !ok {
		return *m, m.setStatus(st)
	}
	n := m.view.Selection().Len()
	m.previousView = m.currentView
	m.currentView = ViewConfirm
	return *m, m.confirm.Ask(
		confirmPermanentDelete,
		fmt.Sprintf("Permanently delete %d messages?", n),
		"This cannot be undone.",
		"Yes, delete",
	)
}

// switchView replaces the active view. Pending reloads and in-flight results
// for the old view are dropped.
func (m *Model) switchView(key model.ViewKey) tea.Cmd {
	if !m.sess.SignedIn() {
		return nil
	}
	old := m.view.Key()
	m.reconciler.Cancel(old)
	m.view = reconcile.NewView(key, m.cfg.View.PageSize, m.log)
	m.categories.SetCurrent(key)
	m.helpView.SetTrash(key.IsTrash())
	m.list.ResetCursor()
	m.currentView = ViewList
	m.log.WithFields(logrus.Fields{"from": string(old), "to": string(key)}).Info("view switched")
	return m.beginLoad()
}

func (m *Model) openHelp() tea.Cmd {
	m.helpView.SetTrash(m.view.Key().IsTrash())
	m.previousView = m.currentView
	m.currentView = ViewHelp
	return nil
}

func (m *Model) openCommand() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewCommand
	return m.commandView.Focus()
}

func (m *Model) openCompose() tea.Cmd {
	u, ok := m.sess.User()
	if !ok {
		return m.setStatus(reconcile.ErrorStatus("Compose", session.ErrSignedOut))
	}
	m.previousView = ViewList
	m.currentView = ViewCompose
	return m.compose.Start(u.FromHeader())
}

func (m *Model) logout() tea.Cmd {
	u, _ := m.sess.User()
	m.reconciler.CancelAll()
	m.view.Reset()
	m.connecting = false
	m.syncList()
	return m.logoutCmd(u.Email)
}

func (m *Model) quit() tea.Cmd {
	m.reconciler.Stop()
	return tea.Quit
}

// syncList pushes the current page of the view into the list component.
func (m *Model) syncList() {
	m.list.SetContent(maillist.Content{
		Key:       m.view.Key(),
		Items:     m.view.Visible(),
		Selection: m.view.Selection(),
		State:     m.view.State(),
		Err:       m.view.Err(),
		Query:     m.view.Query(),
	})
}

// setStatus shows st and schedules its removal. A zero status leaves the
// current one alone.
func (m *Model) setStatus(st reconcile.Status) tea.Cmd {
	if st.IsZero() {
		return nil
	}
	m.status = st
	m.statusID++
	id := m.statusID

	ttl := time.Duration(m.cfg.View.StatusTTLMS) * time.Millisecond
	if ttl <= 0 {
		return nil
	}
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m Model) defaultKey() model.ViewKey {
	if m.cfg.View.DefaultCategory == "" {
		return model.AllView
	}
	return model.ViewKey(m.cfg.View.DefaultCategory)
}

func (m Model) categoryLabel(key model.ViewKey) string {
	return model.CategoryLabel(m.cfg.Categories, key)
}
