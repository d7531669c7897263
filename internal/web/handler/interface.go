package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/audit"
	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/user"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

// ErrMissingDependency is returned by Init when a required dependency is nil.
var ErrMissingDependency = errors.New(ErrNilDepsFatalLogMsg)

// Dependencies are shared by the web handlers.
type Dependencies struct {
	Config        *config.Config
	DB            *gorm.DB
	Sessions      *session.Manager
	Authenticator *auth.Authenticator
	Sealer        ldapauth.Sealer // nil unless basic auth tokens are enabled
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps Dependencies) error
}

// LoginConfig returns the login middleware configuration for the given dependencies.
func (d Dependencies) LoginConfig() ldapauth.Config {
	cfg := ldapauth.Config{
		Authenticator:    d.Authenticator,
		UsernameProperty: d.Config.Login.UsernameProperty,
		PasswordProperty: d.Config.Login.PasswordProperty,
		SuccessURL:       d.Config.Login.SuccessURL,
		FailureURL:       d.Config.Login.FailureURL,
		BasicAuthToken:   d.Config.Login.BasicAuthToken,
		Sealer:           d.Sealer,
		Sessions:         d.Sessions,
		SecureCookie:     d.Config.Webserver.SecureCookie,
	}

	if d.DB != nil {
		cfg.Users = user.Store{DB: d.DB}
		cfg.Auditor = audit.Recorder{DB: d.DB}
	}

	return cfg
}

// Validate reports missing dependencies every handler needs.
func (d Dependencies) Validate() error {
	if d.Config == nil || d.Authenticator == nil {
		return ErrMissingDependency
	}

	return nil
}
