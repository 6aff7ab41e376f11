package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	echoapi "github.com/forwardafrica/backend/api/echo"
	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/identity"
	"github.com/forwardafrica/backend/core/otp"
	"github.com/forwardafrica/backend/core/user"
	emailsvc "github.com/forwardafrica/backend/services/email"
	inmemdb "github.com/forwardafrica/backend/storage/database/inmem"
)

var (
	app     echoapi.Server
	usrSvc  *user.Service
	usrRepo user.Repository

	errMissingToken = httpErr{Error: "user not authenticated"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	// assert production-shaped error bodies
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		os.Exit(1)
	}
	usrRepo = inmemdb.NewUserRepository(db)

	// set up services
	validate, translator := core.NewValidation()
	user.RegisterValidators(validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock()
	otpSvc := otp.NewService(inmemdb.NewOTPRepository(db), mailSvc, validate)
	usrSvc = user.NewService(usrRepo, otpSvc, mailSvc)

	// set up server
	app = echoapi.NewServer(&echoapi.Options{
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		Logger:         core.NopLogger{},
		Validate:       validate,
		Translator:     translator,
	})

	os.Exit(m.Run())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// createUser registers an account directly against the service, bypassing the
// API, with the requested role and flags already applied.
func createUser(t *testing.T, name, email string, role identity.Role, isActive, verified bool) user.User {
	t.Helper()

	usr, err := usrSvc.Create(context.Background(), user.NewUser{
		Name:     name,
		Email:    email,
		Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	if role != identity.RoleUser {
		if usr, err = usrSvc.SetRole(context.Background(), usr.ID, role); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	if verified {
		if err = usrSvc.MarkVerified(context.Background(), email); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
		usr.EmailVerified = true
	}
	if !isActive {
		if usr, err = usrSvc.Suspend(context.Background(), usr.ID); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	token, err := identity.GenerateToken(identity.NewClaims(usr.ID, usr.Email, usr.Role))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
