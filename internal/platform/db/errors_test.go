package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert appointment: %w", &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "appointments_slot_uniq",
	})

	if !IsUniqueViolation(err, "") {
		t.Error("expected unique violation without constraint filter")
	}
	if !IsUniqueViolation(err, "appointments_slot_uniq") {
		t.Error("expected unique violation for matching constraint")
	}
	if IsUniqueViolation(err, "doctors_email_key") {
		t.Error("expected no match for a different constraint")
	}
	if IsUniqueViolation(errors.New("23505"), "") {
		t.Error("plain errors are not pg errors")
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	if !IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected foreign key violation")
	}
	if IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("unique violation is not a foreign key violation")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("get doctor: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(errors.New("other")) {
		t.Error("expected other errors not to match")
	}
}
