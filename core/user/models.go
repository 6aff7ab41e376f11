package user

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/identity"
)

type User struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Role          identity.Role `json:"role"`
	IsActive      bool          `json:"is_active"`
	EmailVerified bool          `json:"email_verified"`
	PasswordHash  []byte        `json:"-"`
	CreatedAt     time.Time     `json:"created_at"` // UTC
	UpdatedAt     time.Time     `json:"updated_at"` // UTC
	LastLogin     time.Time     `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// HasCapability resolves the user's role against the permission matrix.
func (u *User) HasCapability(cap identity.Capability) bool {
	return identity.HasCapability(u.Role, cap)
}

// NewUser contains information needed to register a new User.
// Self-registration always lands on the lowest-privilege role.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,rolelabel"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate, origUsr User, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

// AssignRole carries a role change request for a user.
type AssignRole struct {
	Role string `json:"role" validate:"required,rolelabel"`
}

func (ar *AssignRole) Validate(validate *validator.Validate) error {
	ar.Role = core.CleanString(ar.Role, true /* lower */)
	return validate.Struct(ar)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}

// RegisterValidators hooks this package's custom checks into the app validator.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	registerValidators(validate, translator)
}
