// Package inmemory provides the reference storage.Driver backed by maps.
// Data lives for the lifetime of the process only.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps and per-instance id
// counters.
type Driver struct {
	// mu is a read write sync mutex guarding every map and counter below
	mu sync.RWMutex

	hasher storage.PasswordHasher
	now    func() time.Time

	users        map[int64]*model.User
	urls         map[int64]*model.URL
	chatMessages map[int64]*model.ChatMessage
	questions    map[int64]*model.Question
	userContexts map[int64]*model.UserContext

	// next ids, one counter per collection
	nextUserID     int64
	nextURLID      int64
	nextMessageID  int64
	nextQuestionID int64
	nextContextID  int64
}

// NewDriver creates a new in-memory driver. The hasher is used by Initialize
// to seed the demo account.
func NewDriver(hasher storage.PasswordHasher) *Driver {
	return &Driver{
		hasher:         hasher,
		now:            time.Now,
		users:          make(map[int64]*model.User),
		urls:           make(map[int64]*model.URL),
		chatMessages:   make(map[int64]*model.ChatMessage),
		questions:      make(map[int64]*model.Question),
		userContexts:   make(map[int64]*model.UserContext),
		nextUserID:     1,
		nextURLID:      1,
		nextMessageID:  1,
		nextQuestionID: 1,
		nextContextID:  1,
	}
}

// Initialize seeds the demo account if it does not exist yet.
func (s *Driver) Initialize(ctx context.Context) error {
	if s.hasher == nil {
		return fmt.Errorf("no password hasher configured")
	}

	_, err := s.GetUserByUsername(ctx, storage.DemoUsername)
	if err == nil {
		return nil
	}
	if !storage.IsNotFound(err) {
		return err
	}

	hashed, err := s.hasher(storage.DemoPassword)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	_, err = s.CreateUser(ctx, model.NewUser{Username: storage.DemoUsername, Password: hashed})
	return err
}

// GetUser retrieves a user by id.
func (s *Driver) GetUser(_ context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: id}
	}

	u := *user
	return &u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Driver) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.userByUsername(username)
	if user == nil {
		return nil, storage.NotFoundError{Entity: storage.EntityUser}
	}

	u := *user
	return &u, nil
}

// CreateUser stores a new user with default role and pro mode off.
func (s *Driver) CreateUser(_ context.Context, in model.NewUser) (*model.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userByUsername(in.Username) != nil {
		return nil, storage.DuplicateUsernameError{Username: in.Username}
	}

	user := &model.User{
		ID:       s.nextUserID,
		Username: in.Username,
		Password: in.Password,
		Role:     model.RoleUser,
		ProMode:  false,
	}
	s.nextUserID++
	s.users[user.ID] = user

	u := *user
	return &u, nil
}

// UpdateUserRole sets a user's role.
func (s *Driver) UpdateUserRole(_ context.Context, userID int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, model.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}

	updated := *user
	updated.Role = role
	s.users[userID] = &updated

	u := updated
	return &u, nil
}

// SetProMode toggles a user's pro mode flag.
func (s *Driver) SetProMode(_ context.Context, userID int64, enabled bool) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}

	updated := *user
	updated.ProMode = enabled
	s.users[userID] = &updated

	u := updated
	return &u, nil
}

// GetAllUsersWithStats returns every user with their row counts. The whole
// aggregate is computed under one read lock.
func (s *Driver) GetAllUsersWithStats(_ context.Context) ([]model.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urlCounts := make(map[int64]int)
	for _, u := range s.urls {
		urlCounts[u.UserID]++
	}
	messageCounts := make(map[int64]int)
	for _, m := range s.chatMessages {
		messageCounts[m.UserID]++
	}
	questionCounts := make(map[int64]int)
	for _, q := range s.questions {
		questionCounts[q.UserID]++
	}

	stats := make([]model.UserStats, 0, len(s.users))
	for _, user := range s.users {
		stats = append(stats, model.UserStats{
			User:          *user,
			URLCount:      urlCounts[user.ID],
			MessageCount:  messageCounts[user.ID],
			QuestionCount: questionCounts[user.ID],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].User.ID < stats[j].User.ID
	})

	return stats, nil
}

// GetURLs returns the user's URLs, newest first.
func (s *Driver) GetURLs(_ context.Context, userID int64) ([]*model.URL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.urlsFor(userID), nil
}

// CreateURL saves a new URL for the user.
func (s *Driver) CreateURL(_ context.Context, userID int64, in model.NewURL) (*model.URL, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}

	url := &model.URL{
		ID:        s.nextURLID,
		UserID:    userID,
		URL:       in.URL,
		Title:     nonEmpty(in.Title),
		Notes:     nonEmpty(in.Notes),
		CreatedAt: s.now(),
	}
	s.nextURLID++
	s.urls[url.ID] = url

	return url.Clone(), nil
}

// DeleteURL removes an owned URL.
func (s *Driver) DeleteURL(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.urls[id]
	if !ok || url.UserID != userID {
		return false, nil
	}

	delete(s.urls, id)
	return true, nil
}

// UpdateURLAnalysis replaces the analysis payload of an owned URL.
func (s *Driver) UpdateURLAnalysis(_ context.Context, id, userID int64, analysis json.RawMessage) (*model.URL, error) {
	if err := model.ValidatePayload("analysis", analysis); err != nil {
		return nil, err
	}

	return s.updateURL(id, userID, func(u *model.URL) {
		u.Analysis = append(json.RawMessage(nil), analysis...)
	})
}

// UpdateURLContent replaces the extracted content of an owned URL.
func (s *Driver) UpdateURLContent(_ context.Context, id, userID int64, content string) (*model.URL, error) {
	return s.updateURL(id, userID, func(u *model.URL) {
		u.Content = &content
	})
}

func (s *Driver) updateURL(id, userID int64, apply func(*model.URL)) (*model.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, ok := s.urls[id]
	if !ok || url.UserID != userID {
		return nil, storage.NotFoundError{Entity: storage.EntityURL, ID: id}
	}

	updated := url.Clone()
	apply(updated)
	s.urls[id] = updated

	return updated.Clone(), nil
}

// GetChatMessages returns the user's messages, oldest first.
func (s *Driver) GetChatMessages(_ context.Context, userID int64) ([]*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.messagesFor(userID), nil
}

// CreateChatMessage appends a message to the user's history.
func (s *Driver) CreateChatMessage(_ context.Context, userID int64, in model.NewChatMessage) (*model.ChatMessage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}

	msg := &model.ChatMessage{
		ID:        s.nextMessageID,
		UserID:    userID,
		Role:      in.Role,
		Content:   in.Content,
		CreatedAt: s.now(),
	}
	s.nextMessageID++
	s.chatMessages[msg.ID] = msg

	m := *msg
	return &m, nil
}

// ClearChatHistory removes all of the user's messages under a single write lock.
func (s *Driver) ClearChatHistory(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, msg := range s.chatMessages {
		if msg.UserID == userID {
			delete(s.chatMessages, id)
		}
	}

	return nil
}

// GetQuestions returns the user's questions, newest first.
func (s *Driver) GetQuestions(_ context.Context, userID int64) ([]*model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var questions []*model.Question
	for _, q := range s.questions {
		if q.UserID == userID {
			questions = append(questions, q.Clone())
		}
	}

	sort.Slice(questions, func(i, j int) bool {
		return newerFirst(questions[i].CreatedAt, questions[j].CreatedAt, questions[i].ID, questions[j].ID)
	})

	return questions, nil
}

// CreateQuestion stores a pending question.
func (s *Driver) CreateQuestion(_ context.Context, userID int64, in model.NewQuestion) (*model.Question, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}

	q := &model.Question{
		ID:        s.nextQuestionID,
		UserID:    userID,
		Question:  in.Question,
		Status:    model.QuestionPending,
		CreatedAt: s.now(),
	}
	s.nextQuestionID++
	s.questions[q.ID] = q

	return q.Clone(), nil
}

// AnswerQuestion marks an owned question answered.
func (s *Driver) AnswerQuestion(_ context.Context, id, userID int64, answer string) (*model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok || q.UserID != userID {
		return nil, storage.NotFoundError{Entity: storage.EntityQuestion, ID: id}
	}

	answeredAt := s.now()
	updated := q.Clone()
	updated.Status = model.QuestionAnswered
	updated.Answer = &answer
	updated.AnsweredAt = &answeredAt
	s.questions[id] = updated

	return updated.Clone(), nil
}

// GetUserContext returns the user's highest versioned context snapshot.
func (s *Driver) GetUserContext(_ context.Context, userID int64) (*model.UserContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.currentContext(userID)
	if current == nil {
		return nil, storage.NotFoundError{Entity: storage.EntityUserContext, ID: userID}
	}

	return current.Clone(), nil
}

// UpdateUserContext appends a new snapshot. Reading the current version and
// inserting the next one happen under the same write lock.
func (s *Driver) UpdateUserContext(_ context.Context, userID int64, payload json.RawMessage) (*model.UserContext, error) {
	if err := model.ValidatePayload("context", payload); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}

	version := 1
	if current := s.currentContext(userID); current != nil {
		version = current.Version + 1
	}

	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	uc := &model.UserContext{
		ID:          s.nextContextID,
		UserID:      userID,
		Context:     append(json.RawMessage(nil), payload...),
		Version:     version,
		LastUpdated: s.now(),
	}
	s.nextContextID++
	s.userContexts[uc.ID] = uc

	return uc.Clone(), nil
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

func (s *Driver) userByUsername(username string) *model.User {
	for _, user := range s.users {
		if user.Username == username {
			return user
		}
	}
	return nil
}

func (s *Driver) urlsFor(userID int64) []*model.URL {
	var urls []*model.URL
	for _, u := range s.urls {
		if u.UserID == userID {
			urls = append(urls, u.Clone())
		}
	}

	sort.Slice(urls, func(i, j int) bool {
		return newerFirst(urls[i].CreatedAt, urls[j].CreatedAt, urls[i].ID, urls[j].ID)
	})

	return urls
}

func (s *Driver) messagesFor(userID int64) []*model.ChatMessage {
	var messages []*model.ChatMessage
	for _, m := range s.chatMessages {
		if m.UserID == userID {
			c := *m
			messages = append(messages, &c)
		}
	}

	sort.Slice(messages, func(i, j int) bool {
		return newerFirst(messages[j].CreatedAt, messages[i].CreatedAt, messages[j].ID, messages[i].ID)
	})

	return messages
}

func (s *Driver) currentContext(userID int64) *model.UserContext {
	var current *model.UserContext
	for _, uc := range s.userContexts {
		if uc.UserID == userID && (current == nil || uc.Version > current.Version) {
			current = uc
		}
	}
	return current
}

// newerFirst orders by creation time descending, breaking ties on id so the
// order stays stable when two rows share a timestamp.
func newerFirst(a, b time.Time, aID, bID int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
