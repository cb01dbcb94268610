package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

var userColumns = []string{"id", "username", "password", "role", "pro_mode"}

// GetUser retrieves a user by id.
func (d *Driver) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return d.getUser(ctx, d.DB, entsql.EQ("id", id), id)
}

// GetUserByUsername retrieves a user by username.
func (d *Driver) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return d.getUser(ctx, d.DB, entsql.EQ("username", username), 0)
}

func (d *Driver) getUser(ctx context.Context, q querier, where *entsql.Predicate, id int64) (*model.User, error) {
	b := d.builder()
	query, args := b.Select(userColumns...).
		From(b.Table(tableUsers)).
		Where(where).
		Query()

	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateUser stores a new user. Username uniqueness is enforced by the
// database so concurrent creates cannot both succeed.
func (d *Driver) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user := &model.User{
		Username: in.Username,
		Password: in.Password,
		Role:     model.RoleUser,
		ProMode:  false,
	}

	id, err := d.insert(ctx, d.DB, d.builder().Insert(tableUsers).
		Columns("username", "password", "role", "pro_mode").
		Values(user.Username, user.Password, string(user.Role), user.ProMode))
	if err != nil {
		if d.dialect.IsUniqueViolation(err) {
			return nil, storage.DuplicateUsernameError{Username: in.Username}
		}
		return nil, fmt.Errorf("could not execute user creation: %w", err)
	}

	user.ID = id
	return user, nil
}

// UpdateUserRole sets a user's role.
func (d *Driver) UpdateUserRole(ctx context.Context, userID int64, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, model.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}
	return d.updateUser(ctx, userID, "role", string(role))
}

// SetProMode toggles a user's pro mode flag.
func (d *Driver) SetProMode(ctx context.Context, userID int64, enabled bool) (*model.User, error) {
	return d.updateUser(ctx, userID, "pro_mode", enabled)
}

func (d *Driver) updateUser(ctx context.Context, userID int64, column string, value any) (*model.User, error) {
	n, err := d.exec(ctx, d.DB, d.builder().Update(tableUsers).
		Set(column, value).
		Where(entsql.EQ("id", userID)))
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", column, err)
	}
	if n == 0 {
		return nil, storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}
	return d.GetUser(ctx, userID)
}

// GetAllUsersWithStats returns every user with their row counts. The counts
// come from correlated subqueries in one statement, so they share a snapshot.
func (d *Driver) GetAllUsersWithStats(ctx context.Context) ([]model.UserStats, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT
			u.id, u.username, u.password, u.role, u.pro_mode,
			(SELECT COUNT(*) FROM urls WHERE urls.user_id = u.id),
			(SELECT COUNT(*) FROM chat_messages WHERE chat_messages.user_id = u.id),
			(SELECT COUNT(*) FROM leo_questions WHERE leo_questions.user_id = u.id)
		FROM users u
		ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user stats: %w", err)
	}
	defer rows.Close()

	var stats []model.UserStats
	for rows.Next() {
		var (
			s    model.UserStats
			role string
		)
		if err := rows.Scan(
			&s.User.ID, &s.User.Username, &s.User.Password, &role, &s.User.ProMode,
			&s.URLCount, &s.MessageCount, &s.QuestionCount,
		); err != nil {
			return nil, fmt.Errorf("scanning user stats: %w", err)
		}
		s.User.Role = model.Role(role)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user stats: %w", err)
	}
	return stats, nil
}
