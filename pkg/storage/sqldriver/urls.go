package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

// GetURLs returns the user's URLs, newest first.
func (d *Driver) GetURLs(ctx context.Context, userID int64) ([]*model.URL, error) {
	b := d.builder()
	query, args := b.Select(urlColumns...).
		From(b.Table(tableURLs)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query urls: %w", err)
	}
	defer rows.Close()

	var urls []*model.URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning url: %w", err)
		}
		urls = append(urls, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating urls: %w", err)
	}
	return urls, nil
}

// CreateURL saves a new URL for the user.
func (d *Driver) CreateURL(ctx context.Context, userID int64, in model.NewURL) (*model.URL, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := d.requireUser(ctx, d.DB, userID, false); err != nil {
		return nil, err
	}

	url := &model.URL{
		UserID:    userID,
		URL:       in.URL,
		Title:     nonEmpty(in.Title),
		Notes:     nonEmpty(in.Notes),
		CreatedAt: d.timestamp(),
	}

	id, err := d.insert(ctx, d.DB, d.builder().Insert(tableURLs).
		Columns("user_id", "url", "title", "notes", "created_at").
		Values(userID, url.URL, stringOrNil(url.Title), stringOrNil(url.Notes), url.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("could not execute url creation: %w", err)
	}

	url.ID = id
	return url, nil
}

// DeleteURL removes an owned URL.
func (d *Driver) DeleteURL(ctx context.Context, id, userID int64) (bool, error) {
	n, err := d.exec(ctx, d.DB, d.builder().Delete(tableURLs).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
		)))
	if err != nil {
		return false, fmt.Errorf("failed to delete url: %w", err)
	}
	return n > 0, nil
}

// UpdateURLAnalysis replaces the analysis payload of an owned URL.
func (d *Driver) UpdateURLAnalysis(ctx context.Context, id, userID int64, analysis json.RawMessage) (*model.URL, error) {
	if err := model.ValidatePayload("analysis", analysis); err != nil {
		return nil, err
	}
	return d.updateURL(ctx, id, userID, "analysis", jsonOrNil(analysis))
}

// UpdateURLContent replaces the extracted content of an owned URL.
func (d *Driver) UpdateURLContent(ctx context.Context, id, userID int64, content string) (*model.URL, error) {
	return d.updateURL(ctx, id, userID, "content", content)
}

func (d *Driver) updateURL(ctx context.Context, id, userID int64, column string, value any) (*model.URL, error) {
	n, err := d.exec(ctx, d.DB, d.builder().Update(tableURLs).
		Set(column, value).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
		)))
	if err != nil {
		return nil, fmt.Errorf("failed to update url %s: %w", column, err)
	}
	if n == 0 {
		return nil, storage.NotFoundError{Entity: storage.EntityURL, ID: id}
	}

	b := d.builder()
	query, args := b.Select(urlColumns...).
		From(b.Table(tableURLs)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
		)).
		Query()

	u, err := scanURL(d.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted between the update and the read.
		return nil, storage.NotFoundError{Entity: storage.EntityURL, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get url: %w", err)
	}
	return u, nil
}
