package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error is a categorised storage error.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	// ErrCodeNotFound indicates the referenced row does not exist.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeConflict indicates a uniqueness constraint was violated.
	ErrCodeConflict = "CONFLICT"

	// ErrCodeDatabase indicates any other storage failure.
	ErrCodeDatabase = "DATABASE_ERROR"
)

func NewNotFoundError(message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message}
}

func NewConflictError(message string, cause error) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, Err: cause}
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

func hasCode(err error, code string) bool {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code == code
	}
	return false
}

// isUniqueViolation reports whether err came from a UNIQUE constraint in
// either supported driver.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

// translateError maps driver errors onto the categorised Error type.
func translateError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NewNotFoundError(message)
	}
	if isUniqueViolation(err) {
		return NewConflictError(message, err)
	}
	return &Error{Code: ErrCodeDatabase, Message: message, Err: err}
}
