package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/forwardafrica/backend/core/identity"
)

const (
	// sessionCookieName carries the session token when no Authorization
	// header is present.
	sessionCookieName = "fa_session"

	contextClaimsKey = "claims"
)

// Decision is the tri-state outcome of a permission check. The three values
// partition all inputs: exactly one applies to any request.
type Decision int

const (
	Admit Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

// extractClaims decodes the inbound request's session token into identity
// claims. The bearer header wins over the session cookie. Any failure —
// missing token, bad structure, bad signature, expired — yields nil; it is
// never an error that propagates up the stack.
func extractClaims(ctx echo.Context) *identity.Claims {
	token := ""
	if header := ctx.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		if cookie, err := ctx.Cookie(sessionCookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil
	}

	claims, err := identity.ParseToken(token)
	if err != nil {
		return nil
	}
	return claims
}

// authorize combines claims extraction with the permission matrix. It is
// idempotent and side-effect-free; callers audit-log denials if they need to.
func authorize(ctx echo.Context, cap identity.Capability) (Decision, *identity.Claims) {
	claims := extractClaims(ctx)
	if claims == nil {
		return DenyUnauthenticated, nil
	}
	if !claims.HasCapability(cap) {
		return DenyForbidden, claims
	}
	return Admit, claims
}

// requireAuth admits any request with valid claims, regardless of role.
func requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims := extractClaims(ctx)
			if claims == nil {
				return errUnauthorized
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

// requireCapability gates an endpoint on a capability: 401 when the request
// carries no resolvable identity, 403 when the identity's role lacks the
// capability. On admit the resolved claims are stored on the context.
func requireCapability(cap identity.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			switch decision, claims := authorize(ctx, cap); decision {
			case Admit:
				ctx.Set(contextClaimsKey, claims)
				return next(ctx)
			case DenyUnauthenticated:
				return errUnauthorized
			default:
				return errHTTPForbidden
			}
		}
	}
}

func getContextClaims(ctx echo.Context) (*identity.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*identity.Claims); ok {
		return claims, nil
	}
	// routes without gate middleware resolve lazily
	if claims := extractClaims(ctx); claims != nil {
		ctx.Set(contextClaimsKey, claims)
		return claims, nil
	}
	return nil, errUnauthorized
}

// ClientIP and UserAgent are pure accessors used for audit logging.

func ClientIP(ctx echo.Context) string  { return ctx.RealIP() }
func UserAgent(ctx echo.Context) string { return ctx.Request().UserAgent() }
