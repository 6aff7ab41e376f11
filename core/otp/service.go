package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core"
)

var (
	NowFunc = time.Now // mockable

	// GenerateCode draws a uniformly random zero-padded numeric code.
	// Swappable in tests for a fixed code.
	GenerateCode = func(digits int) (string, error) {
		max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "generating verification code")
		}
		return fmt.Sprintf("%0*d", digits, n), nil
	}
)

type Service struct {
	repo     Repository
	mailSvc  core.EmailService
	validate *validator.Validate
}

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, validate: validate}
}

// SendCode issues a fresh verification code for email and hands it to the
// email service for out-of-band delivery. Any prior pending code for the same
// email is invalidated: there is never more than one live code per address.
func (svc *Service) SendCode(ctx context.Context, email string) (expiresIn time.Duration, err error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.validate.Var(email, "required,email"); err != nil {
		return 0, core.NewValidationError(
			errors.New("invalid email address"),
			core.FieldError{Field: "email", Error: "invalid email address"},
		)
	}

	code, err := GenerateCode(core.Conf.OTP.Digits)
	if err != nil {
		return 0, err
	}

	now := NowFunc().UTC()
	expiresIn = core.Conf.OTP.ExpirationDelta
	pv := PendingVerification{
		Email:             email,
		Code:              code,
		CreatedAt:         now,
		ExpiresAt:         now.Add(expiresIn),
		AttemptsRemaining: core.Conf.OTP.MaxAttempts,
	}
	if err := svc.repo.UpsertPendingVerification(ctx, pv); err != nil {
		return 0, unavailable(err, "storing pending verification")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      "Your verification code",
		TemplateName: "verification-code",
		TemplateData: struct {
			Code          string
			ExpiresInMins int
		}{Code: code, ExpiresInMins: int(expiresIn.Minutes())},
	})
	return expiresIn, nil
}

// VerifyCode checks a submitted code against the pending record for email.
//
// Outcomes: ErrNotFound when no record exists (absence is indistinguishable
// from a consumed or replaced code); ErrExpired past the deadline; and
// ErrAttemptsExhausted once the attempt budget is spent, even for a correct
// code. A mismatch burns one attempt; a match consumes the record.
func (svc *Service) VerifyCode(ctx context.Context, email, submitted string) error {
	email = core.CleanString(email, true /* lower */)
	submitted = core.CleanString(submitted)

	pv, err := svc.repo.GetPendingVerification(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrNotFound
		}
		return unavailable(err, "fetching pending verification")
	}

	if pv.Expired(NowFunc().UTC()) {
		// best effort cleanup; the record is dead either way
		_ = svc.repo.DeletePendingVerification(ctx, email)
		return ErrExpired
	}

	if pv.AttemptsRemaining <= 0 {
		return ErrAttemptsExhausted
	}

	if subtle.ConstantTimeCompare([]byte(pv.Code), []byte(submitted)) != 1 {
		if _, err := svc.repo.DecrementAttempts(ctx, email); err != nil {
			return unavailable(err, "decrementing attempts")
		}
		return ErrInvalidCode
	}

	if err := svc.repo.DeletePendingVerification(ctx, email); err != nil {
		return unavailable(err, "consuming pending verification")
	}
	return nil
}

func unavailable(err error, msg string) error {
	return errors.WithMessagef(ErrUnavailable, "%s: %v", msg, err)
}
