package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation        = "23505"
	pgInsufficientPrivilege  = "42501"
	sqliteUniqueConstraint   = "UNIQUE constraint failed"
	postgresDuplicateMessage = "duplicate key value"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	if pgCode(err) == pgUniqueViolation {
		return true
	}
	return strings.Contains(msg, postgresDuplicateMessage) || strings.Contains(msg, sqliteUniqueConstraint)
}

// IsPermissionDenied reports whether the datastore refused the statement
// because the connected role lacks the privilege (SQLSTATE 42501).
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	return pgCode(err) == pgInsufficientPrivilege
}

func pgCode(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
