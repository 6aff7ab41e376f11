package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core/otp"
)

type otpRepository struct {
	db *sqlx.DB
}

var _ otp.Repository = (*otpRepository)(nil) // interface compliance check

func NewOTPRepository(db *sqlx.DB) otp.Repository {
	return &otpRepository{db: db}
}

func (repo *otpRepository) UpsertPendingVerification(ctx context.Context, pv otp.PendingVerification) error {
	const query = `
		INSERT INTO pending_verification (email, code, created_at, expires_at, attempts_remaining)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET code = EXCLUDED.code,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at,
		    attempts_remaining = EXCLUDED.attempts_remaining`
	_, err := repo.db.ExecContext(ctx, query, pv.Email, pv.Code, pv.CreatedAt, pv.ExpiresAt, pv.AttemptsRemaining)
	if err != nil {
		return errors.Wrap(err, "upserting pending verification")
	}
	return nil
}

func (repo *otpRepository) GetPendingVerification(ctx context.Context, email string) (otp.PendingVerification, error) {
	var pv otp.PendingVerification
	err := repo.db.GetContext(ctx, &pv, `SELECT * FROM pending_verification WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return otp.PendingVerification{}, otp.ErrNotFound
		}
		return otp.PendingVerification{}, errors.Wrap(err, "getting pending verification")
	}
	return pv, nil
}

func (repo *otpRepository) DeletePendingVerification(ctx context.Context, email string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM pending_verification WHERE email = $1`, email); err != nil {
		return errors.Wrap(err, "deleting pending verification")
	}
	return nil
}

// DecrementAttempts burns one attempt in a single guarded UPDATE so two
// concurrent wrong guesses can never net a free attempt, and the counter
// never goes below zero.
func (repo *otpRepository) DecrementAttempts(ctx context.Context, email string) (int, error) {
	const query = `
		UPDATE pending_verification
		SET attempts_remaining = attempts_remaining - 1
		WHERE email = $1 AND attempts_remaining > 0
		RETURNING attempts_remaining`
	var remaining int
	err := repo.db.GetContext(ctx, &remaining, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			// record absent or already at zero
			return 0, nil
		}
		return 0, errors.Wrap(err, "decrementing attempts")
	}
	return remaining, nil
}
