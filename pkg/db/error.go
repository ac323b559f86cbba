package db

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Postgres error codes we branch on.
const (
	pqUniqueViolation = "23505"
	pqUndefinedTable  = "42P01"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}

	// SQLite (error code 2067)
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsMissingTableErr reports whether an error came from querying a table
// that has not been migrated yet. Callers that deliberately fail open on
// this condition must not treat other store errors the same way.
func IsMissingTableErr(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUndefinedTable
	}

	msg := err.Error()

	// The pgx stack used by gorm's postgres driver reports the same
	// condition as a plain error string.
	if strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist") {
		return true
	}

	// SQLite
	return strings.Contains(msg, "no such table")
}
