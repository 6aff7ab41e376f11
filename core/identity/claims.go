package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/forwardafrica/backend/core"
)

// ErrMalformedToken covers every possible session token failure: wrong segment
// count, bad base64, bad signature, expired, missing subject. Callers must
// treat it as "unauthenticated" and nothing more.
var ErrMalformedToken = errors.New("malformed or invalid session token")

var NowFunc = time.Now // mockable

// Claims represents the identity fields transmitted via a session token.
// Constructed fresh on every inbound request and never persisted.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         Role   `json:"role,omitempty"`
}

// SubjectID returns the opaque user identifier the token was minted for.
func (c *Claims) SubjectID() string { return c.RegisteredClaims.Subject }

// HasCapability resolves the claims' role against the permission matrix.
func (c *Claims) HasCapability(cap Capability) bool {
	return HasCapability(c.Role, cap)
}

// NewClaims builds session claims for a user. origIat carries the original
// issue time across token refreshes.
func NewClaims(subjectID, email string, role Role, origIat ...int64) *Claims {
	now := NowFunc()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    core.Conf.AppName,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(core.Conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        email,
		Role:         role,
	}
}

// GenerateToken signs the claims into a compact session token (HS256).
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(core.Conf.SecretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken decodes and verifies a session token. The signature check is
// mandatory: a structurally valid payload with a bad or missing signature is
// rejected the same as garbage. An unknown or absent role resolves to the
// lowest-privilege default.
func ParseToken(token string) (*Claims, error) {
	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (interface{}, error) { return core.Conf.SecretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return NowFunc() }),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	claims.Role = ParseRole(string(claims.Role))
	return claims, nil
}
