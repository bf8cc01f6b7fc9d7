package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/lifeline/core"
	"github.com/trezcool/lifeline/core/alert"
	"github.com/trezcool/lifeline/core/donor"
	"github.com/trezcool/lifeline/core/messaging"
	"github.com/trezcool/lifeline/core/user"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		UserSvc      user.Service
		DonorSvc     donor.Service
		MessagingSvc messaging.Service
		Dispatcher   alert.Dispatcher
		Recorder     alert.Recorder
		AuditLog     AuditHistory
		Broadcaster  core.Broadcaster
		Logger       core.Logger
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

// NewServer sets up the API server. signalShutdown is called whenever an
// unrecoverable error is caught so main can shut the process down cleanly.
func NewServer(opts *Options, signalShutdown func()) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup(signalShutdown)
	return s
}

func (s *server) setup(signalShutdown func()) {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerDonorAPI(v1, jwt, s.opts.DonorSvc, s.opts.UserSvc)
	registerMessagingAPI(v1, jwt, s.opts.MessagingSvc)
	registerAlertAPI(v1, jwt, s.opts.Dispatcher, s.opts.Recorder, s.opts.AuditLog)
	registerEventsAPI(v1, jwt, s.opts.Broadcaster)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Lifeline API!")
}
