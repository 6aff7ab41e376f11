package identity

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forwardafrica/backend/core"
)

func Test_ParseToken_roundTrip(t *testing.T) {
	claims := NewClaims("usr-123", "jane@test.cd", RoleInstructor)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	got, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() failed: %v", err)
	}
	if got.SubjectID() != "usr-123" {
		t.Errorf("SubjectID() = %q; want %q", got.SubjectID(), "usr-123")
	}
	if got.Email != "jane@test.cd" {
		t.Errorf("Email = %q; want %q", got.Email, "jane@test.cd")
	}
	if got.Role != RoleInstructor {
		t.Errorf("Role = %q; want %q", got.Role, RoleInstructor)
	}
}

func Test_ParseToken_malformed(t *testing.T) {
	valid, err := GenerateToken(NewClaims("usr-123", "jane@test.cd", RoleUser))
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}
	segments := strings.Split(valid, ".")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a token", "hello"},
		{"two segments", segments[0] + "." + segments[1]},
		{"four segments", valid + ".extra"},
		{"invalid base64 payload", segments[0] + ".!!!." + segments[2]},
		{"non-object payload", segments[0] + ".aGVsbG8." + segments[2]},
		{"signature stripped", segments[0] + "." + segments[1] + "."},
		{"signature tampered", segments[0] + "." + segments[1] + ".AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.token)
			if err != ErrMalformedToken {
				t.Errorf("ParseToken() error = %v; want ErrMalformedToken", err)
			}
			if claims != nil {
				t.Errorf("ParseToken() claims = %+v; want nil", claims)
			}
		})
	}
}

func Test_ParseToken_wrongKey(t *testing.T) {
	claims := NewClaims("usr-123", "jane@test.cd", RoleSuperAdmin)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte("not-the-secret-key"))
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}

	if _, err := ParseToken(ss); err != ErrMalformedToken {
		t.Errorf("ParseToken() error = %v; want ErrMalformedToken", err)
	}
}

func Test_ParseToken_noneAlgRejected(t *testing.T) {
	claims := NewClaims("usr-123", "jane@test.cd", RoleSuperAdmin)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	ss, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}

	if _, err := ParseToken(ss); err != ErrMalformedToken {
		t.Errorf("ParseToken() error = %v; want ErrMalformedToken", err)
	}
}

func Test_ParseToken_missingRoleDefaultsToLowestPrivilege(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "jane@test.cd",
		// Role deliberately absent
	}
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	got, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() failed: %v", err)
	}
	if got.Role != RoleUser {
		t.Errorf("Role = %q; want lowest-privilege default %q", got.Role, RoleUser)
	}
	if got.HasCapability(CapUsersSuspend) {
		t.Error("HasCapability(users:suspend) = true for default role; want false")
	}
}

func Test_ParseToken_missingSubject(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleUser,
	}
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	if _, err := ParseToken(token); err != ErrMalformedToken {
		t.Errorf("ParseToken() error = %v; want ErrMalformedToken", err)
	}
}

func Test_ParseToken_expired(t *testing.T) {
	claims := NewClaims("usr-123", "jane@test.cd", RoleUser)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	NowFunc = func() time.Time { return time.Now().Add(core.Conf.Server.JWTExpirationDelta + time.Hour) }
	defer func() { NowFunc = time.Now }()

	if _, err := ParseToken(token); err != ErrMalformedToken {
		t.Errorf("ParseToken() error = %v; want ErrMalformedToken", err)
	}
}
