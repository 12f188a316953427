package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsPermissionDenied(t *testing.T) {
	pgx := fmt.Errorf("update: %w", &pgconn.PgError{Code: "42501"})
	if !IsPermissionDenied(pgx) {
		t.Fatal("expected pgx 42501 to be a permission error")
	}
	pqErr := &pq.Error{Code: "42501"}
	if !IsPermissionDenied(pqErr) {
		t.Fatal("expected pq 42501 to be a permission error")
	}
	if IsPermissionDenied(errors.New("timeout")) {
		t.Fatal("plain error should not be a permission error")
	}
	if IsPermissionDenied(nil) {
		t.Fatal("nil should not be a permission error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}, "") {
		t.Fatal("expected 23505 to be a unique violation")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: sales.id"), "") {
		t.Fatal("expected sqlite message to be a unique violation")
	}
	if !IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "sales_pkey"`), "sales_pkey") {
		t.Fatal("expected named constraint match")
	}
	if IsUniqueViolation(errors.New("other"), "") {
		t.Fatal("unexpected unique violation")
	}
}
