package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/otp"
	"github.com/forwardafrica/backend/core/user"
)

type userApi struct {
	svc        *user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, svc *user.Service, validate *validator.Validate, translator ut.Translator) {
	api := userApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/send-code", api.sendCode)
	ag.POST("/verify-code", api.verifyCode)
	ag.POST("/login", api.login)

	// any valid session
	sg := ag.Group("", requireAuth())
	sg.POST("/token-refresh", api.refreshToken)
	sg.GET("/me", api.me)

	// capability-gated endpoints
	ug := g.Group("/users")
	ug.GET("", api.query, requireCapability(identity.CapUsersView))
	ug.GET("/:id", api.retrieve, requireCapability(identity.CapUsersView))
	ug.PUT("/:id", api.update, requireCapability(identity.CapUsersEdit))
	ug.DELETE("/:id", api.destroy, requireCapability(identity.CapUsersEdit))
	ug.POST("/:id/suspend", api.suspend, requireCapability(identity.CapUsersSuspend))
	ug.POST("/:id/activate", api.activate, requireCapability(identity.CapUsersSuspend))
	ug.PUT("/:id/role", api.assignRole, requireCapability(identity.CapUsersRoles))

	g.GET("/roles", api.queryRoles, requireCapability(identity.CapUsersRoles))
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}

	// kick off email verification; registration itself still succeeds if the
	// store hiccups, the client can re-request a code
	if _, err := api.svc.RequestVerification(ctx.Request().Context(), usr.Email); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting verification"))
	}

	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) sendCode(ctx echo.Context) error {
	var data SendCodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendCodeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	expiresIn, err := api.svc.RequestVerification(ctx.Request().Context(), data.Email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			// do not leak whether an email has an account; report the
			// standard window
			return ctx.JSON(http.StatusOK, SendCodeResponse{
				ExpiresInSeconds: int(expiresInSecondsDefault()),
			})
		}
		return errors.Wrap(err, "requesting verification")
	}
	return ctx.JSON(http.StatusOK, SendCodeResponse{ExpiresInSeconds: int(expiresIn.Seconds())})
}

func (api *userApi) verifyCode(ctx echo.Context) error {
	var data VerifyCodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyCodeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ConfirmVerification(ctx.Request().Context(), data.Email, data.Code); err != nil {
		switch errors.Cause(err) {
		case otp.ErrNotFound, otp.ErrInvalidCode:
			// absence and mismatch are indistinguishable on purpose
			return echo.NewHTTPError(http.StatusBadRequest, "invalid verification code")
		case otp.ErrExpired:
			return echo.NewHTTPError(http.StatusBadRequest, "verification code expired, request a new one")
		case otp.ErrAttemptsExhausted:
			return echo.NewHTTPError(http.StatusBadRequest, "too many attempts, request a new code")
		}
		return errors.Wrap(err, "verifying code")
	}
	return ctx.JSON(http.StatusOK, VerifyCodeResponse{Verified: true})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := identity.GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.SubjectID())
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	var filter user.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}

	users, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	origUsr, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(api.validate, origUsr, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Update(ctx.Request().Context(), origUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) suspend(ctx echo.Context) error {
	usr, err := api.svc.Suspend(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "suspending user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) activate(ctx echo.Context) error {
	usr, err := api.svc.Activate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "activating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) assignRole(ctx echo.Context) error {
	var data user.AssignRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.SetRole(ctx.Request().Context(), ctx.Param("id"), identity.Role(data.Role))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "assigning role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	roles := make([]RoleResponse, 0, len(identity.AllRoles))
	for _, role := range identity.AllRoles {
		caps := identity.CapabilitiesFor(role)
		capStrs := make([]string, 0, len(caps))
		for _, cap := range caps {
			capStrs = append(capStrs, string(cap))
		}
		roles = append(roles, RoleResponse{
			Role:         string(role),
			Name:         role.Name(),
			Capabilities: capStrs,
		})
	}
	return ctx.JSON(http.StatusOK, roles)
}
