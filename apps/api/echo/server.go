package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/preschool/core"
	"github.com/trezcool/preschool/core/chat"
	"github.com/trezcool/preschool/core/dashboard"
	"github.com/trezcool/preschool/core/identity"
	"github.com/trezcool/preschool/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Identities     identity.Provider
		UserSvc        *user.Service
		Gate           *user.Gate
		Dashboards     *dashboard.Registry
		Chat           *chat.Client
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	validate, translator := user.NewValidator()
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, translator, s.SignalShutdown)
	s.app.Renderer = newTemplateRenderer()
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf.SecretKey, s.deps.Identities)

	registerAuthAPI(v1, auth, s.deps.UserSvc)
	registerSessionAPI(v1, auth, s.deps.Gate)
	registerDashboardAPI(v1, auth, s.deps.Gate, s.deps.Dashboards, validate, conf.Chat)
	registerChatAPI(v1, auth, s.deps.Gate, s.deps.Dashboards, s.deps.Chat, validate)
}

// Start listens until the server is shut down; unexpected errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks for a graceful shutdown.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Preschool Dashboard API!")
}
