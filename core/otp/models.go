// Package otp implements the one-time-passcode email verification flow:
// a short numeric code bound to an email address, with a fixed expiry window
// and a bounded number of verification attempts.
package otp

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors surfaced to callers; all are recoverable-by-design.
	ErrNotFound          = errors.New("no pending verification for this email")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrExpired           = errors.New("verification code expired")
	ErrAttemptsExhausted = errors.New("verification attempts exhausted")

	// ErrUnavailable means the verification store could not be reached;
	// distinct from any "not authorized" outcome.
	ErrUnavailable = errors.New("verification store unavailable")
)

// PendingVerification is the single live verification record for an email
// address. A new send always replaces any prior record for the same email.
type PendingVerification struct {
	Email             string    `json:"email" db:"email"`
	Code              string    `json:"-" db:"code"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"` // UTC
	ExpiresAt         time.Time `json:"expires_at" db:"expires_at"` // UTC
	AttemptsRemaining int       `json:"attempts_remaining" db:"attempts_remaining"`
}

// Expired reports whether the record's deadline has passed at time now.
func (pv PendingVerification) Expired(now time.Time) bool {
	return now.After(pv.ExpiresAt)
}

// Repository persists pending verifications keyed by email.
//
// DecrementAttempts must be atomic (compare-and-set or equivalent) so two
// concurrent wrong guesses for the same email can never net a free attempt,
// and must never take the count below zero.
type Repository interface {
	UpsertPendingVerification(ctx context.Context, pv PendingVerification) error
	GetPendingVerification(ctx context.Context, email string) (PendingVerification, error)
	DeletePendingVerification(ctx context.Context, email string) error
	DecrementAttempts(ctx context.Context, email string) (remaining int, err error)
}
