// Package ldapauth provides the fiber login middlewares authenticating form or JSON
// credentials against the directory.
//
// NewSession stores the identity in a server side session and redirects or answers
// with JSON. NewContext stores the identity in the request locals for the next handler.
package ldapauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/utils/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/tokencrypt"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

// LocalsUser is the locals key of the authenticated *session.User.
const LocalsUser = "user"

// Audit outcomes besides the failure codes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// NewSession creates the session login middleware.
func NewSession(config ...Config) fiber.Handler {
	cfg := configDefault(config...)
	mustValidate(cfg)

	return func(c fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		if cfg.Sessions == nil {
			return ErrSessionUnavailable
		}

		user, err := cfg.login(c)
		if err != nil {
			if errors.Is(err, ErrInvalidCredentials) && cfg.FailureURL != "" {
				return c.Redirect().Status(http.StatusFound).To(cfg.FailureURL)
			}

			return err
		}

		sessionID, err := cfg.Sessions.Create(&session.Data{User: *user})
		if err != nil {
			return err
		}

		cookie := &fiber.Cookie{
			Name:     session.CookieName,
			Value:    sessionID,
			Path:     "/",
			Secure:   cfg.SecureCookie,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		}
		if expiry := cfg.Sessions.Expiry(); expiry > 0 {
			cookie.Expires = time.Now().Add(expiry)
		}

		c.Cookie(cookie)

		if cfg.SuccessURL == "" {
			return c.JSON(fiber.Map{"user": user})
		}

		target := cfg.SuccessURL
		if returnURL := c.Cookies(cfg.ReturnURLCookie); IsLocalURL(returnURL) {
			target = returnURL
			c.ClearCookie(cfg.ReturnURLCookie)
		}

		return c.Redirect().Status(http.StatusFound).To(target)
	}
}

// NewContext creates the per request login middleware. The identity is stored in the
// locals under LocalsUser before the next handler runs.
func NewContext(config ...Config) fiber.Handler {
	cfg := configDefault(config...)
	mustValidate(cfg)

	return func(c fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		user, err := cfg.login(c)
		if err != nil {
			return err
		}

		c.Locals(LocalsUser, user)

		return c.Next()
	}
}

// UserFromContext returns the identity stored by NewContext or the session guard.
func UserFromContext(c fiber.Ctx) (*session.User, bool) {
	user, ok := c.Locals(LocalsUser).(*session.User)
	return user, ok && user != nil
}

// IsLocalURL reports whether target is a path on this host. Redirects to other hosts are refused.
func IsLocalURL(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}

	return !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}

func mustValidate(cfg Config) {
	if cfg.Authenticator == nil {
		panic("ldapauth: Authenticator is required")
	}

	if cfg.BasicAuthToken && cfg.Sealer == nil {
		panic("ldapauth: BasicAuthToken requires a Sealer")
	}
}

// login runs one attempt and records it. The returned error is a *Failure for
// caller errors and the operational error otherwise.
func (cfg *Config) login(c fiber.Ctx) (*session.User, error) {
	username, password, err := cfg.credentials(c)
	if err != nil {
		return nil, err
	}

	ctx := c.Context()

	identity, ok, err := cfg.Authenticator.Authenticate(ctx, username, password)

	switch {
	case errors.Is(err, auth.ErrUsernameMissing):
		return nil, ErrUsernameMissing
	case errors.Is(err, auth.ErrPasswordMissing):
		cfg.audit(ctx, c, username, CodePasswordMissing, 0)
		return nil, ErrPasswordMissing
	case err != nil:
		cfg.audit(ctx, c, username, OutcomeError, 0)
		return nil, err
	case !ok:
		cfg.audit(ctx, c, username, CodeInvalidCredentials, 0)
		return nil, ErrInvalidCredentials
	}

	user := &session.User{
		Username: identity.Username,
		Groups:   identity.Groups,
	}

	if cfg.Users != nil {
		if user.UserID, err = cfg.Users.RecordLogin(ctx, identity.Username, identity.Groups); err != nil {
			cfg.audit(ctx, c, identity.Username, OutcomeError, 0)
			return nil, err
		}
	}

	if cfg.BasicAuthToken {
		token, errSeal := cfg.Sealer.Encrypt(tokencrypt.BasicAuthToken(username, password))
		if errSeal != nil {
			cfg.audit(ctx, c, identity.Username, OutcomeError, 0)
			return nil, errSeal
		}

		user.BasicAuthToken = &token
	}

	cfg.audit(ctx, c, identity.Username, OutcomeSuccess, len(identity.Groups))

	return user, nil
}

func (cfg *Config) credentials(c fiber.Ctx) (username, password string, err error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		// form values point into the request buffer, which fasthttp reuses
		return utils.CopyString(c.FormValue(cfg.UsernameProperty)), utils.CopyString(c.FormValue(cfg.PasswordProperty)), nil
	}

	body := c.Body()
	if len(body) == 0 {
		return "", "", nil
	}

	var fields map[string]any
	if err = json.Unmarshal(body, &fields); err != nil {
		return "", "", ErrMalformedRequest
	}

	username, _ = fields[cfg.UsernameProperty].(string)
	password, _ = fields[cfg.PasswordProperty].(string)

	return username, password, nil
}

func (cfg *Config) audit(ctx context.Context, c fiber.Ctx, username, outcome string, groups int) {
	if cfg.Auditor == nil || username == "" {
		return
	}

	if err := cfg.Auditor.Record(ctx, username, outcome, groups, utils.CopyString(c.IP())); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("failed to record login attempt")
	}
}
