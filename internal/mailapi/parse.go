package mailapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/mailterm/internal/model"
)

// stringFields are optional on a remote record but must be strings when
// present.
var stringFields = []string{
	"sender", "subject", "date", "content", "body", "snippet", "predicted_class",
}

// ParseMessage normalizes one remote record. The id comes from "id" or,
// failing that, "_id" (a string or {"$oid": ...}). Subject falls back to
// snippet, content to body, and category to the view key the record was
// listed under. Read is always false. Numeric ids are kept in their
// decimal form.
func ParseMessage(raw json.RawMessage, key model.ViewKey) (model.MessageSummary, error) {
	return parseMessage(raw, key, -1)
}

func parseMessage(raw json.RawMessage, key model.ViewKey, index int) (model.MessageSummary, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.MessageSummary{}, &ParseError{Index: index, Field: "record", Reason: "not a JSON object"}
	}

	id, err := parseID(fields)
	if err != nil {
		return model.MessageSummary{}, &ParseError{Index: index, Field: "id", Reason: err.Error()}
	}

	values := make(map[string]string, len(stringFields))
	for _, name := range stringFields {
		v, ok := fields[name]
		if !ok || isNull(v) {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return model.MessageSummary{}, &ParseError{Index: index, Field: name, Reason: "expected a string"}
		}
		values[name] = s
	}

	msg := model.MessageSummary{
		ID:       id,
		Sender:   values["sender"],
		Subject:  firstNonEmpty(values["subject"], values["snippet"]),
		Date:     values["date"],
		Category: firstNonEmpty(values["predicted_class"], string(key)),
		Content:  firstNonEmpty(values["content"], values["body"]),
	}
	return msg, nil
}

// ParseMessages normalizes a list response. Accepted messages keep their
// order. Rejected records, including repeated ids after the first, are
// returned as errors.
func ParseMessages(raws []json.RawMessage, key model.ViewKey) ([]model.MessageSummary, []error) {
	messages := make([]model.MessageSummary, 0, len(raws))
	var rejected []error
	seen := make(map[string]bool, len(raws))

	for i, raw := range raws {
		msg, err := parseMessage(raw, key, i)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		if seen[msg.ID] {
			rejected = append(rejected, &ParseError{Index: i, Field: "id", Reason: fmt.Sprintf("duplicate id %q", msg.ID)})
			continue
		}
		seen[msg.ID] = true
		messages = append(messages, msg)
	}
	return messages, rejected
}

func parseID(fields map[string]json.RawMessage) (string, error) {
	for _, name := range []string{"id", "_id"} {
		v, ok := fields[name]
		if !ok || isNull(v) {
			continue
		}

		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if strings.TrimSpace(s) == "" {
				continue
			}
			return s, nil
		}

		var n json.Number
		if err := json.Unmarshal(v, &n); err == nil {
			return n.String(), nil
		}

		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(v, &oid); err == nil && oid.OID != "" {
			return oid.OID, nil
		}
		return "", fmt.Errorf("%s has an unsupported type", name)
	}
	return "", fmt.Errorf("missing")
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
