package ldapauth

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/tokencrypt"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

// Authenticator verifies credentials, see auth.Authenticator.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*auth.Identity, bool, error)
}

// Sealer encrypts the basic auth token stored with the identity.
type Sealer interface {
	Encrypt(plaintext string) (tokencrypt.Encrypted, error)
}

// Auditor records login attempts. The password is never passed.
type Auditor interface {
	Record(ctx context.Context, username, outcome string, groups int, remoteIP string) error
}

// UserStore registers successful logins and returns the stable id of the user.
type UserStore interface {
	RecordLogin(ctx context.Context, username string, groups []string) (uint64, error)
}

// Config defines the config for the login middlewares.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: nil
	Next func(c fiber.Ctx) bool

	// Authenticator verifies the credentials.
	//
	// Required.
	Authenticator Authenticator

	// UsernameProperty is the form or JSON field carrying the username.
	//
	// Optional. Default: "username"
	UsernameProperty string

	// PasswordProperty is the form or JSON field carrying the password.
	//
	// Optional. Default: "password"
	PasswordProperty string

	// SuccessURL is the redirect target after a session login. Without it the
	// identity is returned as JSON.
	SuccessURL string

	// FailureURL is the redirect target after invalid credentials. Without it a
	// 401 failure is returned.
	FailureURL string

	// ReturnURLCookie names the cookie holding the page requested before login.
	//
	// Optional. Default: "returnUrl"
	ReturnURLCookie string

	// BasicAuthToken stores a sealed basic auth header with the identity. Needs Sealer.
	BasicAuthToken bool

	// Sealer encrypts the basic auth token.
	Sealer Sealer

	// Sessions stores the identity of the session variant.
	Sessions *session.Manager

	// SecureCookie restricts the session cookie to https.
	SecureCookie bool

	// Users assigns user ids. Without it the user id is 0.
	Users UserStore

	// Auditor records every attempt.
	//
	// Optional. Default: nil
	Auditor Auditor
}

// ConfigDefault is the default config.
var ConfigDefault = Config{
	UsernameProperty: "username",
	PasswordProperty: "password",
	ReturnURLCookie:  "returnUrl",
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.UsernameProperty == "" {
		cfg.UsernameProperty = ConfigDefault.UsernameProperty
	}

	if cfg.PasswordProperty == "" {
		cfg.PasswordProperty = ConfigDefault.PasswordProperty
	}

	if cfg.ReturnURLCookie == "" {
		cfg.ReturnURLCookie = ConfigDefault.ReturnURLCookie
	}

	return cfg
}
