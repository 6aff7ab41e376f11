package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/forwardafrica/backend/core"
	"github.com/forwardafrica/backend/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc    *user.Service
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
		// ShutdownSignal fires when an integrity error asks for a graceful shutdown.
		ShutdownSignal() <-chan struct{}
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan struct{}
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	registerUserAPI(v1, s.opts.UserSvc, s.opts.Validate, s.opts.Translator)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ShutdownSignal() <-chan struct{} { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Forward Africa API!")
}
