package inmemory

import (
	"context"

	"github.com/papercomputeco/leo/pkg/model"
)

// The in-memory driver has no separate profile storage. Scoped operations
// read and write the unscoped collections and tag results with the requested
// profile, which is only correct while a user has a single active profile.

// GetContextURLs returns the user's URLs tagged with profileID.
func (s *Driver) GetContextURLs(ctx context.Context, userID, profileID int64) ([]*model.ContextURL, error) {
	urls, err := s.GetURLs(ctx, userID)
	if err != nil {
		return nil, err
	}

	scoped := make([]*model.ContextURL, 0, len(urls))
	for _, u := range urls {
		scoped = append(scoped, &model.ContextURL{URL: *u, ProfileID: profileID})
	}
	return scoped, nil
}

// CreateContextURL saves an unscoped URL and returns it tagged with profileID.
func (s *Driver) CreateContextURL(ctx context.Context, userID, profileID int64, in model.NewURL) (*model.ContextURL, error) {
	u, err := s.CreateURL(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return &model.ContextURL{URL: *u, ProfileID: profileID}, nil
}

// GetContextChatMessages returns the user's messages tagged with profileID.
func (s *Driver) GetContextChatMessages(ctx context.Context, userID, profileID int64) ([]*model.ContextChatMessage, error) {
	messages, err := s.GetChatMessages(ctx, userID)
	if err != nil {
		return nil, err
	}

	scoped := make([]*model.ContextChatMessage, 0, len(messages))
	for _, m := range messages {
		scoped = append(scoped, &model.ContextChatMessage{ChatMessage: *m, ProfileID: profileID})
	}
	return scoped, nil
}

// CreateContextChatMessage appends an unscoped message and returns it tagged
// with profileID.
func (s *Driver) CreateContextChatMessage(ctx context.Context, userID, profileID int64, in model.NewChatMessage) (*model.ContextChatMessage, error) {
	m, err := s.CreateChatMessage(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return &model.ContextChatMessage{ChatMessage: *m, ProfileID: profileID}, nil
}

// MigrateDataToContext is a no-op: unscoped data is already visible under
// every profile.
func (s *Driver) MigrateDataToContext(_ context.Context, _, _ int64) (model.ContextCounts, error) {
	return model.ContextCounts{}, nil
}

// LoadContextData returns the unscoped totals for the user.
func (s *Driver) LoadContextData(_ context.Context, userID, _ int64) (model.ContextCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts model.ContextCounts
	for _, u := range s.urls {
		if u.UserID == userID {
			counts.URLs++
		}
	}
	for _, m := range s.chatMessages {
		if m.UserID == userID {
			counts.Messages++
		}
	}
	return counts, nil
}
