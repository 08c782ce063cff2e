// Package apperr holds the error taxonomy shared by repositories, services
// and the HTTP boundary.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound covers both missing rows and rows the caller cannot see.
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrStorage          = errors.New("storage failure")
	ErrInvalidState     = errors.New("invalid state")
	ErrExpired          = errors.New("expired")
	ErrConflict         = errors.New("conflict")
)

// Validation returns an ErrValidation carrying a message that is safe to show.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// Message returns the user-safe text of a validation error, or "" for any
// other error.
func Message(err error) string {
	var v *validationError
	if errors.As(err, &v) {
		return v.msg
	}
	return ""
}

// postgres error classes we translate; everything else is a storage failure.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqInvalidText         = "22P02"
)

// FromDB maps a database/sql or lib/pq error onto the taxonomy. It returns nil
// for a nil error.
func FromDB(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pqErr.Constraint)
		case pqInvalidText:
			// a malformed uuid cannot name an existing row
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrNotFound, pqErr.Constraint)
		case pqCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrValidation, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
