package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/user"
)

func authenticate(ctx echo.Context, email, pwd string, svc *user.Service) (*identity.Claims, error) {
	usr, err := svc.Authenticate(ctx.Request().Context(), email, pwd)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrNotFound:
			return nil, errAuthenticationFailed
		case user.ErrNotVerified:
			return nil, errAccountNotVerified
		}
		return nil, errors.Wrap(err, "authenticating user")
	}
	return identity.NewClaims(usr.ID, usr.Email, usr.Role), nil
}

func refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.SubjectID())
	if err != nil {
		return "", errors.Wrap(err, "finding user by ID")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAuthenticationFailed
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if identity.NowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	// re-resolve the role from the record: a demotion takes effect on refresh
	newClaims := identity.NewClaims(usr.ID, usr.Email, usr.Role, claims.OrigIssuedAt)
	token, err := identity.GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
