// Package api provides the JSON endpoints of the service.
package api

import (
	"strconv"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/audit"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
)

const (
	// AuthenticatePath checks credentials without creating a session.
	AuthenticatePath = handler.APIPath + "/authenticate"

	// MePath returns the identity of the session.
	MePath = handler.APIPath + "/me"

	// AuditPath returns the latest login attempts of the session user.
	AuditPath = handler.APIPath + "/audit"

	maxAuditLimit = 500
)

// Service is the API handler service.
type Service struct {
	db *gorm.DB
}

// Init registers the API routes.
func (s *Service) Init(app *fiber.App, deps handler.Dependencies) error {
	if app == nil {
		return handler.ErrMissingDependency
	}

	if err := deps.Validate(); err != nil {
		return err
	}

	s.db = deps.DB

	// the per request variant never touches the session
	loginCfg := deps.LoginConfig()
	loginCfg.Sessions = nil

	app.Post(AuthenticatePath, ldapauth.NewContext(loginCfg), s.Authenticated)
	app.Get(MePath, s.Me)
	app.Get(AuditPath, s.Audit)

	return nil
}

// Authenticated answers with the identity stored by the login middleware.
func (s *Service) Authenticated(c fiber.Ctx) error {
	user, ok := ldapauth.UserFromContext(c)
	if !ok {
		return ldapauth.ErrUnauthenticated
	}

	return c.JSON(fiber.Map{"user": user})
}

// Me answers with the identity of the session.
func (s *Service) Me(c fiber.Ctx) error {
	user, ok := ldapauth.UserFromContext(c)
	if !ok {
		return ldapauth.ErrUnauthenticated
	}

	return c.JSON(fiber.Map{"user": user})
}

// Audit answers with the latest login attempts of the session user. ?limit= caps the result.
func (s *Service) Audit(c fiber.Ctx) error {
	user, ok := ldapauth.UserFromContext(c)
	if !ok {
		return ldapauth.ErrUnauthenticated
	}

	if s.db == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "audit trail is not configured")
	}

	var limit int

	if raw := c.Query("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 || limit > maxAuditLimit {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be between 0 and "+strconv.Itoa(maxAuditLimit))
		}
	}

	attempts, err := audit.RecentByUser(s.db.WithContext(c.Context()), user.Username, limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"attempts": attempts})
}
