package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/forwardafrica/backend/api/echo"
	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/otp"
)

func Test_userApi_permissionGate(t *testing.T) {
	learner := createUser(t, "Learner", "gate.learner@test.cd", identity.RoleUser, true, true)
	instructor := createUser(t, "Instructor", "gate.instructor@test.cd", identity.RoleInstructor, true, true)
	support := createUser(t, "Support", "gate.support@test.cd", identity.RoleUserSupport, true, true)
	admin := createUser(t, "Admin", "gate.admin@test.cd", identity.RoleSuperAdmin, true, true)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "Garbage token is unauthenticated, not forbidden", method: http.MethodGet, path: "/v1/users",
			token: "not-a-token", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "users:view required (learner)", method: http.MethodGet, path: "/v1/users",
			token: getToken(t, learner), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "users:view required (instructor)", method: http.MethodGet, path: "/v1/users",
			token: getToken(t, instructor), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "user support can list users", method: http.MethodGet, path: "/v1/users",
			token: getToken(t, support), wantCode: http.StatusOK,
		},
		{
			name: "super admin can list users", method: http.MethodGet, path: "/v1/users",
			token: getToken(t, admin), wantCode: http.StatusOK,
		},
		{
			name: "users:view does not imply users:suspend", method: http.MethodPost,
			path: "/v1/users/" + learner.ID + "/suspend", token: getToken(t, support),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "users:roles required for the matrix listing", method: http.MethodGet, path: "/v1/roles",
			token: getToken(t, support), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "any valid session can read its own account", method: http.MethodGet, path: "/v1/auth/me",
			token: getToken(t, learner), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_sessionCookieFallback(t *testing.T) {
	usr := createUser(t, "Cookie", "gate.cookie@test.cd", identity.RoleUser, true, true)
	token := getToken(t, usr)

	t.Run("cookie alone authenticates", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/me")
		req.AddCookie(&http.Cookie{Name: "fa_session", Value: token})
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("bearer header wins over the cookie", func(t *testing.T) {
		// a bad header must not fall back to the good cookie
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/me", "tampered-token")
		req.AddCookie(&http.Cookie{Name: "fa_session", Value: token})
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("unrecognized cookie name is ignored", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/auth/me")
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})
}

// the full self-service journey: register, verify the email address with the
// mailed code, then log in.
func Test_userApi_registrationFlow(t *testing.T) {
	origGen := otp.GenerateCode
	otp.GenerateCode = func(digits int) (string, error) { return "482913", nil }
	defer func() { otp.GenerateCode = origGen }()

	register := marshallObj(t, map[string]string{
		"name": "Jane Doe", "email": "flow@test.cd",
		"password": "Str0ng!Pass", "password_confirm": "Str0ng!Pass",
	})
	login := marshallObj(t, map[string]string{"email": "flow@test.cd", "password": "Str0ng!Pass"})
	verify := func(code string) []byte {
		return marshallObj(t, map[string]string{"email": "flow@test.cd", "code": code})
	}

	tests := []httpTest{
		{
			name: "register", method: http.MethodPost, path: "/v1/auth/register",
			body: register, wantCode: http.StatusCreated,
		},
		{
			name: "duplicate email is rejected", method: http.MethodPost, path: "/v1/auth/register",
			body: register, wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "login before verification", method: http.MethodPost, path: "/v1/auth/login",
			body: login, wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "email address not verified"}),
		},
		{
			name: "malformed code fails validation", method: http.MethodPost, path: "/v1/auth/verify-code",
			body: verify("12"), wantCode: http.StatusBadRequest,
		},
		{
			name: "wrong code", method: http.MethodPost, path: "/v1/auth/verify-code",
			body: verify("000000"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid verification code"}),
		},
		{
			name: "correct code", method: http.MethodPost, path: "/v1/auth/verify-code",
			body: verify("482913"), wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.VerifyCodeResponse{Verified: true}),
		},
		{
			name: "code is consumed on success", method: http.MethodPost, path: "/v1/auth/verify-code",
			body: verify("482913"), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid verification code"}),
		},
		{
			name: "login after verification", method: http.MethodPost, path: "/v1/auth/login",
			body: login, wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the issued token resolves to the account
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", login)
	app.ServeHTTP(rec, req)
	var resp echoapi.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response %q; err %v", rec.Body.String(), err)
	}
	claims, err := identity.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("ParseToken(): %v", err)
	}
	if claims.Email != "flow@test.cd" || claims.Role != identity.RoleUser {
		t.Errorf("claims = %q/%q; want flow@test.cd/user", claims.Email, claims.Role)
	}
}

func Test_userApi_sendCode(t *testing.T) {
	createUser(t, "Jane Doe", "send@test.cd", identity.RoleUser, true, false)
	window := int(core.Conf.OTP.ExpirationDelta.Seconds())

	tests := []httpTest{
		{
			name: "known email", method: http.MethodPost, path: "/v1/auth/send-code",
			body:     marshallObj(t, map[string]string{"email": "send@test.cd"}),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.SendCodeResponse{ExpiresInSeconds: window}),
		},
		{
			// account existence must not be inferable from this endpoint
			name: "unknown email gets the same response", method: http.MethodPost, path: "/v1/auth/send-code",
			body:     marshallObj(t, map[string]string{"email": "nobody@test.cd"}),
			wantCode: http.StatusOK,
			wantData: marshallObj(t, echoapi.SendCodeResponse{ExpiresInSeconds: window}),
		},
		{
			name: "invalid email fails validation", method: http.MethodPost, path: "/v1/auth/send-code",
			body:     marshallObj(t, map[string]string{"email": "not-an-email"}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_assignRole(t *testing.T) {
	admin := createUser(t, "Admin", "role.admin@test.cd", identity.RoleSuperAdmin, true, true)
	subject := createUser(t, "Subject", "role.subject@test.cd", identity.RoleUser, true, true)
	adminToken := getToken(t, admin)
	path := "/v1/users/" + subject.ID + "/role"

	tests := []httpTest{
		{
			name: "assign instructor", method: http.MethodPut, path: path, token: adminToken,
			body: marshallObj(t, map[string]string{"role": "instructor"}), wantCode: http.StatusOK,
		},
		{
			name: "unknown label is rejected", method: http.MethodPut, path: path, token: adminToken,
			body: marshallObj(t, map[string]string{"role": "warlord"}), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "unknown user", method: http.MethodPut, path: "/v1/users/nope/role", token: adminToken,
			body: marshallObj(t, map[string]string{"role": "instructor"}), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := usrSvc.GetByID(context.Background(), subject.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if usr.Role != identity.RoleInstructor {
		t.Errorf("role = %q; want %q", usr.Role, identity.RoleInstructor)
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	admin := createUser(t, "Admin", "roles.admin@test.cd", identity.RoleSuperAdmin, true, true)

	reqst, rec := newAuthRequest(http.MethodGet, "/v1/roles", getToken(t, admin))
	app.ServeHTTP(rec, reqst)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
	}

	var roles []echoapi.RoleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &roles); err != nil {
		t.Fatalf("Unmarshal(): %v", err)
	}
	if len(roles) != len(identity.AllRoles) {
		t.Fatalf("got %d roles; want %d", len(roles), len(identity.AllRoles))
	}
	if roles[0].Role != "user" || roles[0].Name != "Learner" {
		t.Errorf("first role = %+v; want the learner default", roles[0])
	}
	if n := len(roles[len(roles)-1].Capabilities); n != 14 {
		t.Errorf("super admin capabilities = %d; want 14", n)
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	usr := createUser(t, "Refresh", "refresh@test.cd", identity.RoleInstructor, true, true)
	token := getToken(t, usr)

	t.Run("refresh re-resolves the role", func(t *testing.T) {
		// demote between issuance and refresh
		if _, err := usrSvc.SetRole(context.Background(), usr.ID, identity.RoleUser); err != nil {
			t.Fatalf("SetRole(): %v", err)
		}

		reqst, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		app.ServeHTTP(rec, reqst)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}

		var resp echoapi.LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Unmarshal(): %v", err)
		}
		claims, err := identity.ParseToken(resp.Token)
		if err != nil {
			t.Fatalf("ParseToken(): %v", err)
		}
		if claims.Role != identity.RoleUser {
			t.Errorf("refreshed role = %q; want the demoted %q", claims.Role, identity.RoleUser)
		}
	})

	t.Run("refresh window closes", func(t *testing.T) {
		origNow := identity.NowFunc
		identity.NowFunc = func() time.Time {
			return time.Now().Add(core.Conf.Server.JWTRefreshExpirationDelta + time.Hour)
		}
		defer func() { identity.NowFunc = origNow }()

		reqst, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		app.ServeHTTP(rec, reqst)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})
}
