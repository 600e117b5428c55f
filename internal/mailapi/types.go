package mailapi

import "encoding/json"

// Profile is the mailbox summary returned by connect_mail.
type Profile struct {
	EmailAddress  string `json:"emailAddress"`
	MessagesTotal int    `json:"messagesTotal"`
	ThreadsTotal  int    `json:"threadsTotal"`
	HistoryID     string `json:"historyId"`
}

type connectRequest struct {
	UserEmail string `json:"user_email"`
}

type mailIDsRequest struct {
	MailIDs []string `json:"mail_ids"`
}

type listResponse struct {
	Mails []json.RawMessage `json:"mails"`
}

// DeleteResult is the response of delete-selected.
type DeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	Message      string   `json:"message"`
	FailedIDs    []string `json:"failed_ids,omitempty"`
}

// ArchiveResult is the response of archive-selected.
type ArchiveResult struct {
	ArchivedCount int    `json:"archived_count"`
	Message       string `json:"message"`
}

// CountResult is the response of permanently-delete and restore-from-trash.
// Both report their count in deleted_count.
type CountResult struct {
	DeletedCount int    `json:"deleted_count"`
	Message      string `json:"message"`
}

// SendRequest is a message to be sent through the backend.
type SendRequest struct {
	To      string
	Subject string
	Body    string
	From    string
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}
