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

// GetUserContext returns the user's highest versioned snapshot.
func (d *Driver) GetUserContext(ctx context.Context, userID int64) (*model.UserContext, error) {
	b := d.builder()
	query, args := b.Select(contextColumns...).
		From(b.Table(tableUserContexts)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("version")).
		Limit(1).
		Query()

	uc, err := scanUserContext(d.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Entity: storage.EntityUserContext, ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user context: %w", err)
	}
	return uc, nil
}

// UpdateUserContext appends a snapshot at the next version.
//
// The user row is locked for the duration of the transaction on databases
// that support row locks. SQLite serializes writers through its single
// connection. In both cases the UNIQUE(user_id, version) constraint is the
// final guard, and a violation surfaces as storage.ErrVersionConflict.
func (d *Driver) UpdateUserContext(ctx context.Context, userID int64, payload json.RawMessage) (*model.UserContext, error) {
	if err := model.ValidatePayload("context", payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	uc := &model.UserContext{
		UserID:      userID,
		Context:     append(json.RawMessage(nil), payload...),
		LastUpdated: d.timestamp(),
	}

	err := d.inTx(ctx, func(tx *sql.Tx) error {
		if err := d.requireUser(ctx, tx, userID, true); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx,
			d.rebind("SELECT COALESCE(MAX(version), 0) + 1 FROM user_contexts WHERE user_id = ?"),
			userID,
		).Scan(&uc.Version)
		if err != nil {
			return fmt.Errorf("reading context version: %w", err)
		}

		id, err := d.insert(ctx, tx, d.builder().Insert(tableUserContexts).
			Columns("user_id", "context", "version", "last_updated").
			Values(userID, string(uc.Context), uc.Version, uc.LastUpdated))
		if err != nil {
			if d.dialect.IsUniqueViolation(err) {
				return storage.ErrVersionConflict
			}
			return fmt.Errorf("could not execute user context creation: %w", err)
		}

		uc.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Debug("stored user context", "user_id", userID, "version", uc.Version)
	return uc, nil
}
