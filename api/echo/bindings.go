package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/forwardafrica/backend/core"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *SendCodeRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type SendCodeResponse struct {
	ExpiresInSeconds int `json:"expires_in_seconds"`
}

func expiresInSecondsDefault() float64 {
	return core.Conf.OTP.ExpirationDelta.Seconds()
}

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

func (r *VerifyCodeRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Code = core.CleanString(r.Code)
	return validate.Struct(r)
}

type VerifyCodeResponse struct {
	Verified bool `json:"verified"`
}

type SuccessResponse struct {
	Success string `json:"success"`
}

type RoleResponse struct {
	Role         string   `json:"role"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}
