package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/otp"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrNotVerified = errors.New("email address not verified")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		MarkEmailVerified(ctx context.Context, email string) error
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		otpSvc  *otp.Service
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, otpSvc *otp.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, otpSvc: otpSvc, mailSvc: mailSvc}
}

func (svc *Service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create registers a new account. Self-registration always lands on the
// lowest-privilege role; elevation happens later via AssignRole.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      identity.RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate resolves email+password to a user; inactive accounts and
// unverified email addresses are rejected.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound // do not leak which of email/password failed
	}
	if !usr.IsActive {
		return User{}, ErrNotFound
	}
	if !usr.EmailVerified {
		return User{}, ErrNotVerified
	}
	return svc.repo.SetLastLogin(ctx, usr)
}

// RequestVerification issues a fresh verification code for an existing account.
func (svc *Service) RequestVerification(ctx context.Context, email string) (time.Duration, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return 0, err
	}
	return svc.otpSvc.SendCode(ctx, usr.Email)
}

// ConfirmVerification validates a submitted code and, on success, marks the
// account's email verified and sends the welcome email.
func (svc *Service) ConfirmVerification(ctx context.Context, email, code string) error {
	email = core.CleanString(email, true /* lower */)
	if err := svc.otpSvc.VerifyCode(ctx, email, code); err != nil {
		return err
	}
	if err := svc.repo.MarkEmailVerified(ctx, email); err != nil {
		return errors.Wrap(err, "marking email verified")
	}

	if usr, err := svc.repo.GetUserByEmail(ctx, email); err == nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Welcome to Forward Africa",
			TemplateName: "welcome",
			TemplateData: struct{ Name string }{Name: usr.Name},
		})
	}
	return nil
}

// MarkVerified flags an account's email as verified without a code exchange;
// reserved for operator tooling.
func (svc *Service) MarkVerified(ctx context.Context, email string) error {
	return svc.repo.MarkEmailVerified(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Email:     uu.Email,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Role != "" {
		usr.Role = identity.ParseRole(uu.Role)
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// SetRole assigns a role label to an account. The label has already been
// validated; unknown labels still collapse to the default rather than persist.
func (svc *Service) SetRole(ctx context.Context, id string, role identity.Role) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Role = identity.ParseRole(string(role))
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil)
}

// Suspend deactivates an account; its tokens stop resolving to an active user.
func (svc *Service) Suspend(ctx context.Context, id string) (User, error) {
	return svc.setActive(ctx, id, false)
}

func (svc *Service) Activate(ctx context.Context, id string) (User, error) {
	return svc.setActive(ctx, id, true)
}

func (svc *Service) setActive(ctx context.Context, id string, active bool) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, &active)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
