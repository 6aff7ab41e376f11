package inmemdb

import (
	"context"

	"github.com/forwardafrica/backend/core/otp"
)

type otpRepository struct {
	db *otpTable
}

var _ otp.Repository = (*otpRepository)(nil) // interface compliance check

func NewOTPRepository(db *DB) otp.Repository {
	return &otpRepository{db: db.otp}
}

func (repo *otpRepository) UpsertPendingVerification(_ context.Context, pv otp.PendingVerification) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows[pv.Email] = &pv
	return nil
}

func (repo *otpRepository) GetPendingVerification(_ context.Context, email string) (otp.PendingVerification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pv, ok := repo.db.rows[email]; ok {
		return *pv, nil
	}
	return otp.PendingVerification{}, otp.ErrNotFound
}

func (repo *otpRepository) DeletePendingVerification(_ context.Context, email string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.rows, email)
	return nil
}

// DecrementAttempts does the read-modify-write under the table's write lock;
// the counter never goes below zero.
func (repo *otpRepository) DecrementAttempts(_ context.Context, email string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pv, ok := repo.db.rows[email]
	if !ok {
		return 0, nil
	}
	if pv.AttemptsRemaining > 0 {
		pv.AttemptsRemaining--
	}
	return pv.AttemptsRemaining, nil
}
