// Package web wires the fiber application: middlewares, templates and handlers.
package web

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/gofiber/template/html/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/config"
	fiberlogger "github.com/GoDirAuth/GoDirAuth/internal/logger/adapter/fiber"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler/api"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler/home"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler/login"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler/logout"
	authmiddleware "github.com/GoDirAuth/GoDirAuth/internal/web/middleware/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

const (
	// CheckAlivePath answers 200 while the service accepts traffic. ?deep=1 also checks the directory.
	CheckAlivePath = "/checkalive"

	// MetricsPath serves the prometheus metrics.
	MetricsPath = "/metrics"

	deepCheckTimeout = 5 * time.Second
)

// ErrMissingOption is returned by New when a required option is nil.
var ErrMissingOption = errors.New("web service option missing")

// Options are the dependencies of the web service.
type Options struct {
	Config        *config.Config
	DB            *gorm.DB
	Sessions      *session.Manager
	Authenticator *auth.Authenticator
	Sealer        ldapauth.Sealer     // required if Config.Login.BasicAuthToken is set
	Gatherer      prometheus.Gatherer // default prometheus.DefaultGatherer
}

// Service represents the web service.
type Service struct {
	App           *fiber.App
	cfg           *config.Config
	authenticator *auth.Authenticator
	fastShutDown  bool
	alive         atomic.Bool
}

// Start starts the web service on the given address and blocks until it is stopped.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	go func() {
		err := s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("fiber listen error")
		}

		doneFiber <- err
	}()

	return <-doneFiber // wait for fiber to stop
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the check alive endpoint for ShutDownTime seconds, so that load balancers
// remove this instance, and stops the http server.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the service accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates a new web service with the given options.
func New(opts Options) (*Service, error) {
	if opts.Config == nil || opts.Sessions == nil || opts.Authenticator == nil {
		return nil, ErrMissingOption
	}

	cfg := opts.Config

	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	templateEngine, err := newTemplateEngine(cfg.DevMode)
	if err != nil {
		return nil, err
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
			Views:          templateEngine,
			ErrorHandler:   ldapauth.ErrorHandler,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recoverer.New())
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		ErrorHandler:  ldapauth.ErrorHandler,
		CheckAliveURI: CheckAlivePath,
		Username: func(c fiber.Ctx) string {
			if user, ok := ldapauth.UserFromContext(c); ok {
				return user.Username
			}

			return ""
		},
	}))

	staticFiles, err := fs.Sub(embeddedStaticFiles, "static")
	if err != nil {
		return nil, err
	}

	app.Use("/static", static.New("", static.Config{FS: staticFiles}))

	app.Use(authmiddleware.New(authmiddleware.Config{
		Sessions:     opts.Sessions,
		LoginPath:    login.Path,
		PublicPaths:  []string{login.Path, handler.LogoutPath, api.AuthenticatePath, CheckAlivePath, MetricsPath},
		APIPrefix:    handler.APIPath + "/",
		SecureCookie: cfg.Webserver.SecureCookie,
	}))

	service := &Service{
		App:           app,
		cfg:           cfg,
		authenticator: opts.Authenticator,
		fastShutDown:  cfg.DevMode,
	}
	service.alive.Store(true)

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	deps := handler.Dependencies{
		Config:        cfg,
		DB:            opts.DB,
		Sessions:      opts.Sessions,
		Authenticator: opts.Authenticator,
		Sealer:        opts.Sealer,
	}

	// init handlers (they register their own routes)
	for _, h := range []handler.Service{new(login.Service), new(logout.Service), new(home.Service), new(api.Service)} {
		if err = h.Init(app, deps); err != nil {
			return nil, err
		}
	}

	return service, nil
}

func newTemplateEngine(devMode bool) (*html.Engine, error) {
	templates, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}

	templateEngine := html.NewFileSystem(http.FS(templates), ".gohtml")

	// in dev mode, use local filesystem for templates
	if devMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	templateEngine.AddFunc("join", joinStrings)

	return templateEngine, nil
}

func (s *Service) checkAlive(c fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	if c.Query("deep") != "" {
		ctx, cancel := context.WithTimeout(c.Context(), deepCheckTimeout)
		defer cancel()

		if err := s.authenticator.CheckConnection(ctx); err != nil {
			log.Warn().Err(err).Msg("directory check failed")
			return c.Status(fiber.StatusServiceUnavailable).SendString("directory unavailable")
		}
	}

	return c.SendString("OK")
}
