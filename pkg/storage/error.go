package storage

import (
	"errors"
	"fmt"
	"strconv"
)

// Entity names used in NotFoundError.
const (
	EntityUser        = "user"
	EntityURL         = "url"
	EntityQuestion    = "question"
	EntityUserContext = "user context"
)

// NotFoundError is returned when a row doesn't exist or isn't owned by the
// caller. The two cases are deliberately indistinguishable.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e NotFoundError) Error() string {
	entity := e.Entity
	if entity == "" {
		entity = "record"
	}

	if e.ID == 0 {
		return entity + " not found"
	}

	return entity + " not found: " + strconv.FormatInt(e.ID, 10)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// DuplicateUsernameError is returned by CreateUser when the username is taken.
type DuplicateUsernameError struct {
	Username string
}

func (e DuplicateUsernameError) Error() string {
	return fmt.Sprintf("username already exists: %q", e.Username)
}

// ErrVersionConflict is returned if two context snapshots would share a
// version. Relational drivers lock the owning user before assigning versions,
// so seeing this indicates a driver bug.
var ErrVersionConflict = errors.New("user context version conflict")

// IndexWriteError describes a failed write to a secondary search index. The
// primary write it mirrors has already succeeded.
type IndexWriteError struct {
	Op    string
	DocID string
	Err   error
}

func (e IndexWriteError) Error() string {
	return fmt.Sprintf("index %s %s: %v", e.Op, e.DocID, e.Err)
}

func (e IndexWriteError) Unwrap() error {
	return e.Err
}
