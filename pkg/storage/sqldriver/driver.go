// Package sqldriver provides the relational storage.Driver shared by the
// PostgreSQL and SQLite backends. It is database-agnostic: statements are
// built with ent's dialect-aware SQL builder and the dialect packages supply
// schema, error classification and locking.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/leo/pkg/logger"
	"github.com/papercomputeco/leo/pkg/model"
	"github.com/papercomputeco/leo/pkg/storage"
)

// Table names.
const (
	tableUsers               = "users"
	tableURLs                = "urls"
	tableChatMessages        = "chat_messages"
	tableQuestions           = "leo_questions"
	tableUserContexts        = "user_contexts"
	tableContextURLs         = "context_urls"
	tableContextChatMessages = "context_chat_messages"
)

// Dialect describes the database specific behavior the shared driver needs.
type Dialect struct {
	// Name is the ent dialect name, dialect.Postgres or dialect.SQLite.
	Name string

	// IsUniqueViolation reports whether err is a unique constraint violation.
	IsUniqueViolation func(error) bool

	// LockRows appends FOR UPDATE to row locking reads. Databases that only
	// allow a single writer leave this off.
	LockRows bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithPasswordHasher sets the hasher used to seed the demo account.
func WithPasswordHasher(h storage.PasswordHasher) Option {
	return func(d *Driver) {
		d.hasher = h
	}
}

// WithLogger sets the driver logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = l
	}
}

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// Driver implements storage.Driver over database/sql.
// It is embedded by the specific database drivers.
type Driver struct {
	DB *sql.DB

	dialect Dialect
	hasher  storage.PasswordHasher
	logger  *slog.Logger
	now     func() time.Time
}

// New wraps an open database. The schema must already exist.
func New(db *sql.DB, d Dialect, opts ...Option) *Driver {
	drv := &Driver{
		DB:      db,
		dialect: d,
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(drv)
	}
	return drv
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Initialize seeds the demo account if it does not exist yet.
func (d *Driver) Initialize(ctx context.Context) error {
	_, err := d.GetUserByUsername(ctx, storage.DemoUsername)
	if err == nil {
		return nil
	}
	if !storage.IsNotFound(err) {
		return err
	}

	if d.hasher == nil {
		return errors.New("no password hasher configured")
	}

	hashed, err := d.hasher(storage.DemoPassword)
	if err != nil {
		return fmt.Errorf("hashing demo password: %w", err)
	}

	_, err = d.CreateUser(ctx, model.NewUser{Username: storage.DemoUsername, Password: hashed})
	var dup storage.DuplicateUsernameError
	if errors.As(err, &dup) {
		// Another process seeded it first.
		return nil
	}
	if err != nil {
		return err
	}

	d.logger.Info("seeded demo account", "username", storage.DemoUsername)
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}

// Exec runs raw statements, used by the dialect packages for schema setup.
func (d *Driver) Exec(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.dialect.Name)
}

// timestamp returns the current time at the precision every supported
// database can round-trip.
func (d *Driver) timestamp() time.Time {
	return d.now().UTC().Truncate(time.Microsecond)
}

// insert executes an insert and returns the generated id. PostgreSQL has no
// LastInsertId, so it uses RETURNING instead.
func (d *Driver) insert(ctx context.Context, q querier, ib *entsql.InsertBuilder) (int64, error) {
	if d.dialect.Name == dialect.Postgres {
		query, args := ib.Returning("id").Query()
		var id int64
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args := ib.Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// exec runs a built statement and returns the number of affected rows.
func (d *Driver) exec(ctx context.Context, q querier, b entsql.Querier) (int64, error) {
	query, args := b.Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// rebind rewrites ? placeholders for dialects that use numbered parameters.
// Only used for hand-written statements the builder can't express.
func (d *Driver) rebind(query string) string {
	if d.dialect.Name != dialect.Postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// requireUser returns a NotFoundError unless the user exists. When lock is
// set and the dialect supports it, the user row stays locked until the
// surrounding transaction ends.
func (d *Driver) requireUser(ctx context.Context, q querier, userID int64, lock bool) error {
	query := "SELECT id FROM users WHERE id = ?"
	if lock && d.dialect.LockRows {
		query += " FOR UPDATE"
	}

	var id int64
	err := q.QueryRowContext(ctx, d.rebind(query), userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.NotFoundError{Entity: storage.EntityUser, ID: userID}
	}
	if err != nil {
		return fmt.Errorf("looking up user %d: %w", userID, err)
	}
	return nil
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func (d *Driver) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
