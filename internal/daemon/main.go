// Package daemon assembles the service from its configuration.
package daemon

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/db"
	"github.com/GoDirAuth/GoDirAuth/internal/ldapmock"
	"github.com/GoDirAuth/GoDirAuth/internal/logger/adapter/stdlogger"
	"github.com/GoDirAuth/GoDirAuth/internal/tokencrypt"
	"github.com/GoDirAuth/GoDirAuth/internal/web"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

// devDirectoryURL is the placeholder endpoint of the fixture directory.
const devDirectoryURL = "ldap://dev-directory"

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	sessions   *session.Manager
	webService *web.Service
	stopGC     chan struct{}
}

// Start serves until SIGINT or SIGTERM and releases all resources afterwards.
func (d *Daemon) Start() error {
	go session.RunGC(d.sessions.Storage(), d.cfg.Session.GCInterval, d.stopGC)
	go d.webService.WaitShutdown()

	defer d.Close()

	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)
	log.Info().Str("addr", addr).Str("url", d.cfg.Webserver.URL).Msg("starting web service")

	return d.webService.Start(addr)
}

// Close stops the session garbage collection and closes storages.
func (d *Daemon) Close() {
	close(d.stopGC)

	if err := d.sessions.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close session storage")
	}

	if sqlDB, err := d.db.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage, err := session.NewStorage(cfg.Session, gdb)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}

	sessions, err := session.NewManager(storage, cfg.Session.ExpiryTime)
	if err != nil {
		return nil, err
	}

	authenticator, err := NewAuthenticator(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}

	var sealer ldapauth.Sealer

	if cfg.Login.BasicAuthToken {
		if sealer, err = tokencrypt.New(cfg.Webserver.CookieEncryptionKey, cfg.Webserver.Argon2Salt); err != nil {
			return nil, fmt.Errorf("failed to create basic auth token sealer: %w", err)
		}
	}

	webService, err := web.New(web.Options{
		Config:        cfg,
		DB:            gdb,
		Sessions:      sessions,
		Authenticator: authenticator,
		Sealer:        sealer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create web service: %w", err)
	}

	log.Info().
		Str("sessionDriver", cfg.Session.Driver).
		Str("dbEngine", cfg.DB.GormEngine).
		Bool("groupLookup", authenticator.Config().GroupLookupEnabled()).
		Msg("daemon initialised")

	return &Daemon{
		cfg:        cfg,
		db:         gdb,
		sessions:   sessions,
		webService: webService,
		stopGC:     make(chan struct{}),
	}, nil
}

// NewAuthenticator creates the authenticator of cfg. In dev mode it authenticates against the
// fixture directory. Metrics are registered at reg unless it is nil.
func NewAuthenticator(cfg *config.Config, reg prometheus.Registerer) (*auth.Authenticator, error) {
	ldapCfg, err := cfg.LDAP.AuthConfig()
	if err != nil {
		return nil, err
	}

	var opts []auth.Option

	if reg != nil {
		opts = append(opts, auth.WithMetrics(auth.NewMetrics(reg)))
	}

	if cfg.DevMode {
		dir, errLoad := ldapmock.Load(cfg.Dev.Fixture)
		if errLoad != nil {
			return nil, fmt.Errorf("failed to load dev directory: %w", errLoad)
		}

		if ldapCfg.URL == "" {
			ldapCfg.URL = devDirectoryURL
		}

		opts = append(opts, auth.WithDialer(dir))

		log.Warn().Str("fixture", cfg.Dev.Fixture).Msg("dev mode enabled: authenticating against the fixture directory")
	}

	if cfg.Log.LDAPDebug {
		ldap.Logger(stdlogger.New("ldap").StdLog())
	}

	authenticator, err := auth.NewAuthenticator(ldapCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid ldap config: %w", err)
	}

	return authenticator, nil
}
