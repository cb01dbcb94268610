package sqldriver

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/leo/pkg/model"
)

// GetChatMessages returns the user's messages, oldest first.
func (d *Driver) GetChatMessages(ctx context.Context, userID int64) ([]*model.ChatMessage, error) {
	b := d.builder()
	query, args := b.Select(messageColumns...).
		From(b.Table(tableChatMessages)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat messages: %w", err)
	}
	return messages, nil
}

// CreateChatMessage appends a message to the user's history.
func (d *Driver) CreateChatMessage(ctx context.Context, userID int64, in model.NewChatMessage) (*model.ChatMessage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := d.requireUser(ctx, d.DB, userID, false); err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		UserID:    userID,
		Role:      in.Role,
		Content:   in.Content,
		CreatedAt: d.timestamp(),
	}

	id, err := d.insert(ctx, d.DB, d.builder().Insert(tableChatMessages).
		Columns("user_id", "role", "content", "created_at").
		Values(userID, msg.Role, msg.Content, msg.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("could not execute chat message creation: %w", err)
	}

	msg.ID = id
	return msg, nil
}

// ClearChatHistory removes all of the user's messages in a single statement.
func (d *Driver) ClearChatHistory(ctx context.Context, userID int64) error {
	n, err := d.exec(ctx, d.DB, d.builder().Delete(tableChatMessages).
		Where(entsql.EQ("user_id", userID)))
	if err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}

	d.logger.Debug("cleared chat history", "user_id", userID, "deleted", n)
	return nil
}
