package sqldriver

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/leo/pkg/model"
)

// GetContextURLs returns the URLs saved under a profile, newest first.
func (d *Driver) GetContextURLs(ctx context.Context, userID, profileID int64) ([]*model.ContextURL, error) {
	b := d.builder()
	query, args := b.Select(append(urlColumns, "profile_id")...).
		From(b.Table(tableContextURLs)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("profile_id", profileID),
		)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query context urls: %w", err)
	}
	defer rows.Close()

	var urls []*model.ContextURL
	for rows.Next() {
		var profile int64
		u, err := scanURL(rows, &profile)
		if err != nil {
			return nil, fmt.Errorf("scanning context url: %w", err)
		}
		urls = append(urls, &model.ContextURL{URL: *u, ProfileID: profile})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating context urls: %w", err)
	}
	return urls, nil
}

// CreateContextURL saves a URL under a profile.
func (d *Driver) CreateContextURL(ctx context.Context, userID, profileID int64, in model.NewURL) (*model.ContextURL, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := d.requireUser(ctx, d.DB, userID, false); err != nil {
		return nil, err
	}

	url := &model.ContextURL{
		URL: model.URL{
			UserID:    userID,
			URL:       in.URL,
			Title:     nonEmpty(in.Title),
			Notes:     nonEmpty(in.Notes),
			CreatedAt: d.timestamp(),
		},
		ProfileID: profileID,
	}

	id, err := d.insert(ctx, d.DB, d.builder().Insert(tableContextURLs).
		Columns("user_id", "profile_id", "url", "title", "notes", "created_at").
		Values(userID, profileID, url.URL.URL, stringOrNil(url.Title), stringOrNil(url.Notes), url.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("could not execute context url creation: %w", err)
	}

	url.ID = id
	return url, nil
}

// GetContextChatMessages returns the messages under a profile, oldest first.
func (d *Driver) GetContextChatMessages(ctx context.Context, userID, profileID int64) ([]*model.ContextChatMessage, error) {
	b := d.builder()
	query, args := b.Select(append(messageColumns, "profile_id")...).
		From(b.Table(tableContextChatMessages)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("profile_id", profileID),
		)).
		OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query context chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.ContextChatMessage
	for rows.Next() {
		var profile int64
		m, err := scanMessage(rows, &profile)
		if err != nil {
			return nil, fmt.Errorf("scanning context chat message: %w", err)
		}
		messages = append(messages, &model.ContextChatMessage{ChatMessage: *m, ProfileID: profile})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating context chat messages: %w", err)
	}
	return messages, nil
}

// CreateContextChatMessage appends a message under a profile.
func (d *Driver) CreateContextChatMessage(ctx context.Context, userID, profileID int64, in model.NewChatMessage) (*model.ContextChatMessage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := d.requireUser(ctx, d.DB, userID, false); err != nil {
		return nil, err
	}

	msg := &model.ContextChatMessage{
		ChatMessage: model.ChatMessage{
			UserID:    userID,
			Role:      in.Role,
			Content:   in.Content,
			CreatedAt: d.timestamp(),
		},
		ProfileID: profileID,
	}

	id, err := d.insert(ctx, d.DB, d.builder().Insert(tableContextChatMessages).
		Columns("user_id", "profile_id", "role", "content", "created_at").
		Values(userID, profileID, msg.Role, msg.Content, msg.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("could not execute context chat message creation: %w", err)
	}

	msg.ID = id
	return msg, nil
}

// MigrateDataToContext copies the user's unscoped URLs and messages into the
// profile. Each copied row remembers its source, so running the migration
// again only copies rows added since the last run.
func (d *Driver) MigrateDataToContext(ctx context.Context, userID, profileID int64) (model.ContextCounts, error) {
	var counts model.ContextCounts

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if err := d.requireUser(ctx, tx, userID, true); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, d.rebind(`
			INSERT INTO context_urls (user_id, profile_id, source_id, url, title, notes, content, analysis, created_at)
			SELECT user_id, CAST(? AS BIGINT), id, url, title, notes, content, analysis, created_at
			FROM urls
			WHERE user_id = ?
			ORDER BY id
			ON CONFLICT (profile_id, source_id) DO NOTHING`),
			profileID, userID,
		)
		if err != nil {
			return fmt.Errorf("migrating urls: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		counts.URLs = int(n)

		res, err = tx.ExecContext(ctx, d.rebind(`
			INSERT INTO context_chat_messages (user_id, profile_id, source_id, role, content, created_at)
			SELECT user_id, CAST(? AS BIGINT), id, role, content, created_at
			FROM chat_messages
			WHERE user_id = ?
			ORDER BY id
			ON CONFLICT (profile_id, source_id) DO NOTHING`),
			profileID, userID,
		)
		if err != nil {
			return fmt.Errorf("migrating chat messages: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		counts.Messages = int(n)
		return nil
	})
	if err != nil {
		return model.ContextCounts{}, err
	}

	d.logger.Info("migrated data to profile",
		"user_id", userID,
		"profile_id", profileID,
		"urls", counts.URLs,
		"messages", counts.Messages,
	)
	return counts, nil
}

// LoadContextData counts the URLs and messages under a profile in one
// statement.
func (d *Driver) LoadContextData(ctx context.Context, userID, profileID int64) (model.ContextCounts, error) {
	var counts model.ContextCounts
	err := d.DB.QueryRowContext(ctx, d.rebind(`
		SELECT
			(SELECT COUNT(*) FROM context_urls WHERE user_id = ? AND profile_id = ?),
			(SELECT COUNT(*) FROM context_chat_messages WHERE user_id = ? AND profile_id = ?)`),
		userID, profileID, userID, profileID,
	).Scan(&counts.URLs, &counts.Messages)
	if err != nil {
		return model.ContextCounts{}, fmt.Errorf("failed to load context data: %w", err)
	}
	return counts, nil
}
