// Package home renders the start page of an authenticated user.
package home

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/audit"
	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
)

const (
	// Path is the path of the home page.
	Path = handler.RootPath

	// TemplateName is the name of the home template.
	TemplateName = "home"

	recentAttempts = 10
)

// Service is the home handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Init registers GET /.
func (s *Service) Init(app *fiber.App, deps handler.Dependencies) error {
	if app == nil || deps.Config == nil {
		return handler.ErrMissingDependency
	}

	s.cfg = deps.Config
	s.db = deps.DB

	app.Get(Path, s.Get)

	return nil
}

// Get renders the identity of the session user with the latest login attempts.
func (s *Service) Get(c fiber.Ctx) error {
	user, ok := ldapauth.UserFromContext(c)
	if !ok {
		return c.Redirect().Status(fiber.StatusFound).To(handler.LoginPath)
	}

	var attempts []models.LoginAttempt

	if s.db != nil {
		var err error
		if attempts, err = audit.RecentByUser(s.db.WithContext(c.Context()), user.Username, recentAttempts); err != nil {
			log.Warn().Err(err).Str("username", user.Username).Msg("failed to load login attempts")
		}
	}

	return c.Render(TemplateName, fiber.Map{
		"title":    s.cfg.Title,
		"user":     user,
		"attempts": attempts,
	})
}
