// Package model defines the fixed record shapes persisted by leo storage
// drivers: users, saved URLs, chat history, Leo questions, versioned user
// contexts, and their profile-scoped variants.
package model

import (
	"encoding/json"
	"time"
)

// Role is the authorization role of a User.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account. Password always holds an already hashed value.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     Role   `json:"role"`
	ProMode  bool   `json:"proMode"`
}

// NewUser is the input for creating a User.
type NewUser struct {
	Username string
	Password string
}

// URL is a saved link owned by a user. Content and Analysis are filled in
// later by processing workflows and start out nil.
type URL struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	URL       string          `json:"url"`
	Title     *string         `json:"title"`
	Notes     *string         `json:"notes"`
	Content   *string         `json:"content"`
	Analysis  json.RawMessage `json:"analysis"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewURL is the input for saving a URL.
type NewURL struct {
	URL   string
	Title *string
	Notes *string
}

// Chat message roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is a single entry in a user's chat history.
type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewChatMessage is the input for appending to the chat history.
type NewChatMessage struct {
	Role    string
	Content string
}

// QuestionStatus is the lifecycle state of a Question.
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
)

// Question is a question Leo asked the user. It is created pending and moves
// to answered when the user replies.
type Question struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"userId"`
	Question   string         `json:"question"`
	Status     QuestionStatus `json:"status"`
	Answer     *string        `json:"answer"`
	CreatedAt  time.Time      `json:"createdAt"`
	AnsweredAt *time.Time     `json:"answeredAt"`
}

// NewQuestion is the input for creating a Question.
type NewQuestion struct {
	Question string
}

// UserContext is one immutable snapshot of a user's context document.
// The current context is the snapshot with the highest Version.
type UserContext struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	Context     json.RawMessage `json:"context"`
	Version     int             `json:"version"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// ContextURL is a URL scoped to a profile.
type ContextURL struct {
	URL
	ProfileID int64 `json:"profileId"`
}

// ContextChatMessage is a chat message scoped to a profile.
type ContextChatMessage struct {
	ChatMessage
	ProfileID int64 `json:"profileId"`
}

// UserStats pairs a user with the number of rows they own.
type UserStats struct {
	User          User `json:"user"`
	URLCount      int  `json:"urlCount"`
	MessageCount  int  `json:"messageCount"`
	QuestionCount int  `json:"questionCount"`
}

// ContextCounts reports how many URLs and messages were moved into, or are
// visible under, a profile scope.
type ContextCounts struct {
	URLs     int `json:"urls"`
	Messages int `json:"messages"`
}
