package mailapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nhle/mailterm/internal/model"
)

// Connect links the user's mailbox on the backend and returns its profile.
func (c *Client) Connect(ctx context.Context, email string) (*Profile, error) {
	var profile Profile
	err := c.do(ctx, http.MethodPost, "/mails/connect_mail", nil,
		connectRequest{UserEmail: email}, &profile)
	if err != nil {
		return nil, fmt.Errorf("connecting mailbox %s: %w", email, err)
	}
	return &profile, nil
}

// Ingest asks the backend to fetch, classify and store new mail. It
// returns the backend's text summary.
func (c *Client) Ingest(ctx context.Context) (string, error) {
	body, err := c.send(ctx, http.MethodPost, "/mails/insert_mails_into_database", nil, nil)
	if err != nil {
		return "", fmt.Errorf("ingesting mail: %w", err)
	}
	return decodeText(body), nil
}

// List fetches every message in the given view. Records that fail
// normalization are skipped and reported in rejected; they do not fail the
// call.
func (c *Client) List(
	ctx context.Context,
	key model.ViewKey,
) (messages []model.MessageSummary, rejected []error, err error) {
	var resp listResponse
	path := "/mails/" + url.PathEscape(string(key))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, nil, fmt.Errorf("listing %s: %w", key, err)
	}

	messages, rejected = ParseMessages(resp.Mails, key)
	if len(rejected) > 0 {
		c.log.WithFields(logrus.Fields{
			"view":     string(key),
			"rejected": len(rejected),
		}).Warn("skipped malformed messages")
	}
	return messages, rejected, nil
}

// Send sends a message through the backend.
func (c *Client) Send(ctx context.Context, msg SendRequest) (string, error) {
	q := url.Values{}
	q.Set("to", msg.To)
	q.Set("subject", msg.Subject)
	q.Set("body", msg.Body)
	if strings.TrimSpace(msg.From) != "" {
		q.Set("from", msg.From)
	}

	body, err := c.send(ctx, http.MethodPost, "/mails/send_mail", q, nil)
	if err != nil {
		return "", fmt.Errorf("sending mail: %w", err)
	}
	return decodeText(body), nil
}

// Delete moves the given messages to the trash.
func (c *Client) Delete(ctx context.Context, ids []string) (*DeleteResult, error) {
	var res DeleteResult
	err := c.do(ctx, http.MethodDelete, "/mails/delete-selected", nil,
		mailIDsRequest{MailIDs: ids}, &res)
	if err != nil {
		return nil, fmt.Errorf("deleting %d messages: %w", len(ids), err)
	}
	return &res, nil
}

// Archive archives the given messages.
func (c *Client) Archive(ctx context.Context, ids []string) (*ArchiveResult, error) {
	var res ArchiveResult
	err := c.do(ctx, http.MethodPost, "/mails/archive-selected", nil,
		mailIDsRequest{MailIDs: ids}, &res)
	if err != nil {
		return nil, fmt.Errorf("archiving %d messages: %w", len(ids), err)
	}
	return &res, nil
}

// PermanentDelete removes the given messages from the trash for good.
func (c *Client) PermanentDelete(ctx context.Context, ids []string) (*CountResult, error) {
	var res CountResult
	err := c.do(ctx, http.MethodDelete, "/mails/permanently-delete", nil,
		mailIDsRequest{MailIDs: ids}, &res)
	if err != nil {
		return nil, fmt.Errorf("permanently deleting %d messages: %w", len(ids), err)
	}
	return &res, nil
}

// Restore moves the given messages out of the trash.
func (c *Client) Restore(ctx context.Context, ids []string) (*CountResult, error) {
	var res CountResult
	err := c.do(ctx, http.MethodPost, "/mails/restore-from-trash", nil,
		mailIDsRequest{MailIDs: ids}, &res)
	if err != nil {
		return nil, fmt.Errorf("restoring %d messages: %w", len(ids), err)
	}
	return &res, nil
}
