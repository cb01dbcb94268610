package sqldriver

import (
	"database/sql"
	"encoding/json"

	"github.com/papercomputeco/leo/pkg/model"
)

var (
	urlColumns      = []string{"id", "user_id", "url", "title", "notes", "content", "analysis", "created_at"}
	messageColumns  = []string{"id", "user_id", "role", "content", "created_at"}
	questionColumns = []string{"id", "user_id", "question", "status", "answer", "created_at", "answered_at"}
	contextColumns  = []string{"id", "user_id", "context", "version", "last_updated"}
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u    model.User
		role string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Password, &role, &u.ProMode); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// scanURL reads urlColumns, followed by any extra destinations.
func scanURL(s scanner, extra ...any) (*model.URL, error) {
	var (
		u                     model.URL
		title, notes, content sql.NullString
		analysis              []byte
	)
	dest := append([]any{&u.ID, &u.UserID, &u.URL, &title, &notes, &content, &analysis, &u.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	u.Title = nullString(title)
	u.Notes = nullString(notes)
	u.Content = nullString(content)
	if len(analysis) > 0 {
		u.Analysis = json.RawMessage(analysis)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// scanMessage reads messageColumns, followed by any extra destinations.
func scanMessage(s scanner, extra ...any) (*model.ChatMessage, error) {
	var m model.ChatMessage
	dest := append([]any{&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func scanQuestion(s scanner) (*model.Question, error) {
	var (
		q          model.Question
		status     string
		answer     sql.NullString
		answeredAt sql.NullTime
	)
	if err := s.Scan(&q.ID, &q.UserID, &q.Question, &status, &answer, &q.CreatedAt, &answeredAt); err != nil {
		return nil, err
	}

	q.Status = model.QuestionStatus(status)
	q.Answer = nullString(answer)
	q.CreatedAt = q.CreatedAt.UTC()
	if answeredAt.Valid {
		t := answeredAt.Time.UTC()
		q.AnsweredAt = &t
	}
	return &q, nil
}

func scanUserContext(s scanner) (*model.UserContext, error) {
	var (
		uc      model.UserContext
		payload []byte
	)
	if err := s.Scan(&uc.ID, &uc.UserID, &payload, &uc.Version, &uc.LastUpdated); err != nil {
		return nil, err
	}
	uc.Context = json.RawMessage(payload)
	uc.LastUpdated = uc.LastUpdated.UTC()
	return &uc, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// stringOrNil maps nil and empty strings to SQL NULL.
func stringOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// jsonOrNil maps an empty payload to SQL NULL.
func jsonOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
