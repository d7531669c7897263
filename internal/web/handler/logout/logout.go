// Package logout ends the session of the current user.
package logout

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

// Service is the logout handler service.
type Service struct {
	cfg      *config.Config
	sessions *session.Manager
}

// Init registers GET and POST /logout.
func (s *Service) Init(app *fiber.App, deps handler.Dependencies) error {
	if app == nil || deps.Config == nil || deps.Sessions == nil {
		return handler.ErrMissingDependency
	}

	s.cfg = deps.Config
	s.sessions = deps.Sessions

	app.Get(handler.LogoutPath, s.Logout)
	app.Post(handler.LogoutPath, s.Logout)

	return nil
}

// Logout handles user logout by clearing the session.
func (s *Service) Logout(c fiber.Ctx) error {
	if sessionID := c.Cookies(session.CookieName); sessionID != "" {
		if err := s.sessions.Destroy(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.cfg.Webserver.SecureCookie,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect().Status(fiber.StatusFound).To(handler.LoginPath)
}
