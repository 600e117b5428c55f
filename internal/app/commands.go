package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/mailterm/internal/mailapi"
	"github.com/nhle/mailterm/internal/model"
	"github.com/nhle/mailterm/internal/reconcile"
	"github.com/nhle/mailterm/internal/session"
	"github.com/nhle/mailterm/internal/ui/compose"
)

// clearStatusMsg expires the status with the same id.
type clearStatusMsg struct{ id int }

// loggedInMsg is sent after the session record is saved.
type loggedInMsg struct{ err error }

// loggedOutMsg is sent after the session record is cleared.
type loggedOutMsg struct{ err error }

// connectedMsg carries the backend's answer to connect_mail.
type connectedMsg struct {
	profile *mailapi.Profile
	err     error
}

// ingestedMsg carries the summary of a mail pull.
type ingestedMsg struct {
	summary string
	err     error
}

// mutatedMsg carries the outcome of a bulk action for the view it was
// issued against.
type mutatedMsg struct {
	view uint64
	key  model.ViewKey
	kind reconcile.MutationKind
	ids  []string
	out  reconcile.Outcome
}

// sentMsg is sent after send_mail returns.
type sentMsg struct {
	text string
	err  error
}

// beginLoad starts a full load of the active view.
func (m *Model) beginLoad() tea.Cmd {
	if !m.sess.SignedIn() {
		return nil
	}
	v := m.view
	seq := v.BeginLoad()
	m.syncList()

	api, ctx, key := m.api, m.ctx, v.Key()
	return func() tea.Msg {
		return reconcile.Load(ctx, api, key, seq)
	}
}

// refresh starts the load, ingest, load sequence for the active view. Each
// stage comes back as a reconcile.RefreshStep and starts the next one.
func (m *Model) refresh() tea.Cmd {
	if !m.sess.SignedIn() {
		return nil
	}
	if m.view.State() == reconcile.StateLoading || m.view.Refreshing() {
		return m.setStatus(reconcile.InfoStatus("Already loading"))
	}
	seq := m.view.BeginRefresh()
	m.syncList()

	status := reconcile.InfoStatus("Refreshing mail...")
	if m.view.Key().IsTrash() {
		status = reconcile.InfoStatus("Refreshing trash...")
	}
	return tea.Batch(m.setStatus(status), m.refreshStage(reconcile.RefreshFirstLoad, seq))
}

func (m *Model) refreshStage(stage reconcile.RefreshStage, seq uint64) tea.Cmd {
	api, ctx, key := m.api, m.ctx, m.view.Key()
	return func() tea.Msg {
		return reconcile.RunRefreshStage(ctx, api, key, seq, stage)
	}
}

// startMutation reserves the view and runs kind against the selection.
func (m *Model) startMutation(kind reconcile.MutationKind) tea.Cmd {
	st, ok := m.view.BeginMutation(kind)
	if !ok {
		return m.setStatus(st)
	}
	ids := m.view.Selection().IDs()
	key, viewID := m.view.Key(), m.view.ID()

	m.log.WithFields(logrus.Fields{
		"view": string(key),
		"kind": kind.String(),
		"ids":  len(ids),
	}).Info("bulk action started")

	if !kind.Remote() {
		st, _ := m.view.ApplyMutation(kind, ids, reconcile.Outcome{})
		m.syncList()
		return m.setStatus(st)
	}

	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		return mutatedMsg{
			view: viewID,
			key:  key,
			kind: kind,
			ids:  ids,
			out:  reconcile.Mutate(ctx, api, kind, ids),
		}
	}
}

// startConnect registers the signed-in address with the backend. Only one
// connect runs at a time.
func (m *Model) startConnect() tea.Cmd {
	u, ok := m.sess.User()
	if !ok || m.connecting {
		return nil
	}
	m.connecting = true
	return tea.Batch(
		m.setStatus(reconcile.InfoStatus("Connecting %s...", u.Email)),
		m.connectCmd(u.Email),
	)
}

func (m Model) connectCmd(email string) tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		profile, err := api.Connect(ctx, email)
		return connectedMsg{profile: profile, err: err}
	}
}

// ingest asks the backend to pull new mail.
func (m *Model) ingest() tea.Cmd {
	api, ctx := m.api, m.ctx
	return func() tea.Msg {
		summary, err := api.Ingest(ctx)
		return ingestedMsg{summary: summary, err: err}
	}
}

// send submits a composed message as the signed-in user.
func (m *Model) send(msg compose.SendMsg) tea.Cmd {
	u, ok := m.sess.User()
	if !ok {
		return m.setStatus(reconcile.ErrorStatus("Sending", session.ErrSignedOut))
	}
	req := mailapi.SendRequest{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
		From:    u.Email,
	}

	api, ctx := m.api, m.ctx
	return tea.Batch(
		m.setStatus(reconcile.InfoStatus("Sending...")),
		func() tea.Msg {
			text, err := api.Send(ctx, req)
			return sentMsg{text: text, err: err}
		},
	)
}

// loginCmd persists u as the session user.
func (m *Model) loginCmd(u model.User) tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	return func() tea.Msg {
		return loggedInMsg{err: sessions.Login(ctx, u)}
	}
}

// logoutCmd clears the session and any stored credentials for email.
func (m *Model) logoutCmd(email string) tea.Cmd {
	sessions, ctx, forget, log := m.sessions, m.ctx, m.forget, m.log
	return func() tea.Msg {
		err := sessions.Logout(ctx)
		if forget != nil && email != "" {
			if ferr := forget(email); ferr != nil {
				log.WithError(ferr).Warn("removing stored credentials")
			}
		}
		return loggedOutMsg{err: err}
	}
}

// resolveCategory maps palette input to a view key. Labels and values
// match case-insensitively; anything else is used verbatim.
func (m Model) resolveCategory(arg string) model.ViewKey {
	arg = strings.TrimSpace(arg)
	if model.ViewKey(arg).IsTrash() {
		return model.TrashView
	}
	for _, c := range m.cfg.Categories {
		if strings.EqualFold(c.Label, arg) || strings.EqualFold(string(c.Value), arg) {
			return c.Value
		}
	}
	return model.ViewKey(arg)
}
