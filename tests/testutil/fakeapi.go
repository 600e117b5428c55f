package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	gosync "sync"
	"testing"

	"github.com/nhle/mailterm/internal/logging"
	"github.com/nhle/mailterm/internal/mailapi"
	"github.com/nhle/mailterm/internal/model"
)

// Call is one request received by a FakeAPI.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// FakeAPI is an httptest-backed stand-in for the mail backend. Mailboxes
// are keyed by view; mutations move messages between them the way the
// backend does.
type FakeAPI struct {
	Server *httptest.Server

	mu        gosync.Mutex
	mailboxes map[string][]map[string]interface{}
	calls     []Call

	// IngestText is returned by insert_mails_into_database.
	IngestText string
	// FailPaths maps a path to a status code and detail to fail with.
	FailPaths map[string]FakeFailure
	// IngestHold, when set, makes insert_mails_into_database wait until it
	// is closed. Set it before the request is made.
	IngestHold chan struct{}
}

// FakeFailure is a scripted error response.
type FakeFailure struct {
	Status int
	Detail string
}

// NewFakeAPI starts a fake backend that is closed when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		mailboxes:  make(map[string][]map[string]interface{}),
		IngestText: "0 new mails",
		FailPaths:  make(map[string]FakeFailure),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// Client returns a mailapi.Client pointed at the fake.
func (f *FakeAPI) Client() *mailapi.Client {
	return mailapi.NewClient(model.APIConfig{
		BaseURL:    f.Server.URL,
		TimeoutSec: 5,
	}, logging.Discard())
}

// Seed adds a message record to a mailbox. "all" lists every non-trash
// mailbox.
func (f *FakeAPI) Seed(category, id, subject, date string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mailboxes[category] = append(f.mailboxes[category], map[string]interface{}{
		"id":              id,
		"sender":          "Sender <sender@example.com>",
		"subject":         subject,
		"date":            date,
		"predicted_class": category,
	})
}

// Calls returns the requests received so far.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	if r.URL.Path == "/mails/insert_mails_into_database" && f.IngestHold != nil {
		<-f.IngestHold
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})

	if fail, ok := f.FailPaths[r.URL.Path]; ok {
		writeJSON(w, fail.Status, map[string]string{"detail": fail.Detail})
		return
	}

	var ids struct {
		MailIDs []string `json:"mail_ids"`
	}
	_ = json.Unmarshal(body, &ids)

	switch {
	case r.URL.Path == "/mails/connect_mail":
		var req struct {
			UserEmail string `json:"user_email"`
		}
		_ = json.Unmarshal(body, &req)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"emailAddress":  req.UserEmail,
			"messagesTotal": f.countLocked(),
			"threadsTotal":  f.countLocked(),
			"historyId":     "1",
		})
	case r.URL.Path == "/mails/insert_mails_into_database":
		writeJSON(w, http.StatusOK, f.IngestText)
	case r.URL.Path == "/mails/send_mail":
		writeJSON(w, http.StatusOK, "Mail sent")
	case r.URL.Path == "/mails/delete-selected":
		n := f.moveLocked(ids.MailIDs, "trash")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"deleted_count": n, "message": countMessage(n, "mail moved to trash"), "failed_ids": []string{},
		})
	case r.URL.Path == "/mails/archive-selected":
		n := f.moveLocked(ids.MailIDs, "archive")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"archived_count": n, "message": countMessage(n, "mail archived"),
		})
	case r.URL.Path == "/mails/restore-from-trash":
		n := f.restoreLocked(ids.MailIDs)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"deleted_count": n, "message": countMessage(n, "mail restored"),
		})
	case r.URL.Path == "/mails/permanently-delete":
		n := f.moveLocked(ids.MailIDs, "")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"deleted_count": n, "message": countMessage(n, "mail permanently deleted"),
		})
	case strings.HasPrefix(r.URL.Path, "/mails/") && r.Method == http.MethodGet:
		category := strings.TrimPrefix(r.URL.Path, "/mails/")
		writeJSON(w, http.StatusOK, map[string]interface{}{"mails": f.listLocked(category)})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

func (f *FakeAPI) listLocked(category string) []map[string]interface{} {
	if category != "all" {
		return append([]map[string]interface{}{}, f.mailboxes[category]...)
	}
	var out []map[string]interface{}
	for name, msgs := range f.mailboxes {
		if name == "trash" || name == "archive" {
			continue
		}
		out = append(out, msgs...)
	}
	return out
}

func (f *FakeAPI) countLocked() int {
	n := 0
	for _, msgs := range f.mailboxes {
		n += len(msgs)
	}
	return n
}

// moveLocked moves the ids to dest, or drops them when dest is empty. It
// returns how many were found.
func (f *FakeAPI) moveLocked(ids []string, dest string) int {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	moved := 0
	for name, msgs := range f.mailboxes {
		if name == dest {
			continue
		}
		kept := msgs[:0:0]
		for _, m := range msgs {
			if want[m["id"].(string)] {
				moved++
				if dest != "" {
					f.mailboxes[dest] = append(f.mailboxes[dest], m)
				}
				continue
			}
			kept = append(kept, m)
		}
		f.mailboxes[name] = kept
	}
	return moved
}

func (f *FakeAPI) restoreLocked(ids []string) int {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	restored := 0
	kept := f.mailboxes["trash"][:0:0]
	for _, m := range f.mailboxes["trash"] {
		if want[m["id"].(string)] {
			restored++
			cat, _ := m["predicted_class"].(string)
			f.mailboxes[cat] = append(f.mailboxes[cat], m)
			continue
		}
		kept = append(kept, m)
	}
	f.mailboxes["trash"] = kept
	return restored
}

func countMessage(n int, what string) string {
	return strconv.Itoa(n) + " " + what
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
