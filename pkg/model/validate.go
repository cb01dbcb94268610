package model

import (
	"encoding/json"
	"strings"
)

// ValidationError is returned when an input record is malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Validate checks that the username and password hash are present.
func (u NewUser) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ValidationError{Field: "username", Reason: "must not be empty"}
	}
	if u.Password == "" {
		return ValidationError{Field: "password", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks that the link itself is present.
func (u NewURL) Validate() error {
	if strings.TrimSpace(u.URL) == "" {
		return ValidationError{Field: "url", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks the role and content of a chat message.
func (m NewChatMessage) Validate() error {
	if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
		return ValidationError{Field: "role", Reason: "must be " + ChatRoleUser + " or " + ChatRoleAssistant}
	}
	if m.Content == "" {
		return ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}

// Validate checks that the question text is present.
func (q NewQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return ValidationError{Field: "question", Reason: "must not be empty"}
	}
	return nil
}

// ValidatePayload checks that raw is a JSON document. An empty payload is
// allowed and is stored as null.
func ValidatePayload(field string, raw json.RawMessage) error {
	if len(raw) == 0 || json.Valid(raw) {
		return nil
	}
	return ValidationError{Field: field, Reason: "must be valid JSON"}
}
