// Package storage defines the persistence contract every leo backend
// implements. Callers hold a single Driver chosen at startup and never need to
// know which backend is behind it.
package storage

import (
	"context"
	"encoding/json"

	"github.com/papercomputeco/leo/pkg/model"
)

// Demo account seeded by Initialize.
const (
	DemoUsername = "alex"
	DemoPassword = "password"
)

// PasswordHasher turns a plaintext password into an opaque hash. Storage never
// hashes passwords itself, it only needs one to seed the demo account.
type PasswordHasher func(plaintext string) (string, error)

// UserStore persists accounts.
type UserStore interface {
	// GetUser returns the user with the given id or a NotFoundError.
	GetUser(ctx context.Context, id int64) (*model.User, error)

	// GetUserByUsername returns the user with the given username or a NotFoundError.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// CreateUser stores a new user with role "user" and pro mode off.
	// Returns a DuplicateUsernameError if the username is taken.
	CreateUser(ctx context.Context, user model.NewUser) (*model.User, error)

	// UpdateUserRole sets the role of a user.
	UpdateUserRole(ctx context.Context, userID int64, role model.Role) (*model.User, error)

	// SetProMode toggles a user's pro mode flag.
	SetProMode(ctx context.Context, userID int64, enabled bool) (*model.User, error)

	// GetAllUsersWithStats returns every user with counts of the URLs,
	// messages and questions they own, read from a single snapshot.
	GetAllUsersWithStats(ctx context.Context) ([]model.UserStats, error)
}

// URLStore persists saved URLs. Operations that take both an id and a userID
// treat rows owned by someone else as missing.
type URLStore interface {
	// GetURLs returns the user's URLs, newest first.
	GetURLs(ctx context.Context, userID int64) ([]*model.URL, error)

	// CreateURL saves a URL with empty content and analysis.
	CreateURL(ctx context.Context, userID int64, url model.NewURL) (*model.URL, error)

	// DeleteURL removes a URL. Returns false if it does not exist or is not
	// owned by userID.
	DeleteURL(ctx context.Context, id, userID int64) (bool, error)

	// UpdateURLAnalysis replaces the analysis payload of an owned URL.
	UpdateURLAnalysis(ctx context.Context, id, userID int64, analysis json.RawMessage) (*model.URL, error)

	// UpdateURLContent replaces the extracted content of an owned URL.
	UpdateURLContent(ctx context.Context, id, userID int64, content string) (*model.URL, error)
}

// ChatStore persists chat history.
type ChatStore interface {
	// GetChatMessages returns the user's messages, oldest first.
	GetChatMessages(ctx context.Context, userID int64) ([]*model.ChatMessage, error)

	// CreateChatMessage appends a message to the user's history.
	CreateChatMessage(ctx context.Context, userID int64, msg model.NewChatMessage) (*model.ChatMessage, error)

	// ClearChatHistory removes all of the user's messages at once. Concurrent
	// readers see either the full history or none of it.
	ClearChatHistory(ctx context.Context, userID int64) error
}

// QuestionStore persists Leo questions.
type QuestionStore interface {
	// GetQuestions returns the user's questions, newest first.
	GetQuestions(ctx context.Context, userID int64) ([]*model.Question, error)

	// CreateQuestion stores a pending question.
	CreateQuestion(ctx context.Context, userID int64, q model.NewQuestion) (*model.Question, error)

	// AnswerQuestion marks an owned question answered with the given text.
	AnswerQuestion(ctx context.Context, id, userID int64, answer string) (*model.Question, error)
}

// ContextStore persists versioned user contexts. Snapshots are append-only.
type ContextStore interface {
	// GetUserContext returns the snapshot with the highest version.
	GetUserContext(ctx context.Context, userID int64) (*model.UserContext, error)

	// UpdateUserContext appends a snapshot with version = current + 1.
	UpdateUserContext(ctx context.Context, userID int64, payload json.RawMessage) (*model.UserContext, error)
}

// ProfileStore persists profile-scoped ("pro mode") URLs and messages.
type ProfileStore interface {
	GetContextURLs(ctx context.Context, userID, profileID int64) ([]*model.ContextURL, error)
	CreateContextURL(ctx context.Context, userID, profileID int64, url model.NewURL) (*model.ContextURL, error)
	GetContextChatMessages(ctx context.Context, userID, profileID int64) ([]*model.ContextChatMessage, error)
	CreateContextChatMessage(ctx context.Context, userID, profileID int64, msg model.NewChatMessage) (*model.ContextChatMessage, error)

	// MigrateDataToContext copies the user's unscoped URLs and messages into
	// the profile and returns how many rows were copied. Backends without real
	// scoping return zero counts.
	MigrateDataToContext(ctx context.Context, userID, profileID int64) (model.ContextCounts, error)

	// LoadContextData returns how many URLs and messages are visible under the
	// profile.
	LoadContextData(ctx context.Context, userID, profileID int64) (model.ContextCounts, error)
}

// Driver is the full storage capability set.
type Driver interface {
	UserStore
	URLStore
	ChatStore
	QuestionStore
	ContextStore
	ProfileStore

	// Initialize performs backend warm up, including seeding the demo
	// account when it is missing. It must complete before any other call.
	Initialize(ctx context.Context) error

	// Close releases any resources held by the driver.
	Close() error
}
