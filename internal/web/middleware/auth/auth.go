package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

const returnURLMaxAge = 10 * time.Minute

// Config of the session guard.
type Config struct {
	// Sessions is the session manager.
	//
	// Required.
	Sessions *session.Manager

	// LoginPath is the redirect target of unauthenticated page requests.
	//
	// Optional. Default: "/login"
	LoginPath string

	// PublicPaths are served without session. A path matches itself and everything below it.
	//
	// Optional. Default: LoginPath, "/logout", "/checkalive", "/metrics"
	PublicPaths []string

	// APIPrefix marks requests answered with 401 instead of a redirect.
	//
	// Optional. Default: "/api/"
	APIPrefix string

	// ReturnURLCookie names the cookie remembering the requested page.
	//
	// Optional. Default: "returnUrl"
	ReturnURLCookie string

	// SecureCookie restricts the return url cookie to https.
	SecureCookie bool
}

func configDefault(cfg Config) Config {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	if cfg.PublicPaths == nil {
		cfg.PublicPaths = []string{cfg.LoginPath, "/logout", "/checkalive", "/metrics"}
	}

	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/"
	}

	if cfg.ReturnURLCookie == "" {
		cfg.ReturnURLCookie = ldapauth.ConfigDefault.ReturnURLCookie
	}

	return cfg
}

// New creates the session guard.
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	if cfg.Sessions == nil {
		panic("auth: Sessions is required")
	}

	return func(c fiber.Ctx) error {
		if user := cfg.load(c); user != nil {
			c.Locals(ldapauth.LocalsUser, user)
			return c.Next()
		}

		if cfg.isPublic(c.Path()) {
			return c.Next()
		}

		if strings.HasPrefix(c.Path(), cfg.APIPrefix) {
			return ldapauth.ErrUnauthenticated
		}

		if c.Method() == fiber.MethodGet {
			c.Cookie(&fiber.Cookie{
				Name:     cfg.ReturnURLCookie,
				Value:    c.OriginalURL(),
				Path:     "/",
				Expires:  time.Now().Add(returnURLMaxAge),
				Secure:   cfg.SecureCookie,
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		return c.Redirect().Status(http.StatusFound).To(cfg.LoginPath)
	}
}

func (cfg *Config) load(c fiber.Ctx) *session.User {
	sessionID := c.Cookies(session.CookieName)
	if sessionID == "" {
		return nil
	}

	data, err := cfg.Sessions.Read(sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			log.Warn().Err(err).Msg("failed to read session")
		}

		return nil
	}

	return &data.User
}

func (cfg *Config) isPublic(path string) bool {
	for _, public := range cfg.PublicPaths {
		if path == public || strings.HasPrefix(path, strings.TrimSuffix(public, "/")+"/") {
			return true
		}
	}

	return false
}
