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

	"github.com/edvantage/academy/core"
	"github.com/edvantage/academy/core/batch"
	"github.com/edvantage/academy/core/branch"
	"github.com/edvantage/academy/core/payment"
	"github.com/edvantage/academy/core/report"
	"github.com/edvantage/academy/core/student"
	"github.com/edvantage/academy/core/user"
)

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		Logger     core.Logger
		StudentSvc *student.Service
		PaymentSvc *payment.Service
		BatchSvc   *batch.Service
		BranchSvc  *branch.Service
		ReportSvc  *report.Service
		UserSvc    *user.Service
	}

	Server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
		errs     chan error
	}
)

func NewServer(opts *Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
		errs:     make(chan error, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerStudentAPI(v1, jwt, s.opts.StudentSvc, s.opts.PaymentSvc)
	registerPaymentAPI(v1, jwt, s.opts.PaymentSvc)
	registerBatchAPI(v1, jwt, s.opts.BatchSvc)
	registerBranchAPI(v1, jwt, s.opts.BranchSvc)
	registerReportAPI(v1, jwt, s.opts.ReportSvc)
}

func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		s.errs <- s.app.Start(s.opts.Addr)
	}()
}

// Errors surfaces fatal server errors to the main goroutine.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// ShutdownSignal fires on SIGINT/SIGTERM or when a handler returns a
// shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
