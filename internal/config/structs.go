package config

import (
	"time"

	"github.com/GoDirAuth/GoDirAuth/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // serve the directory from Dev.Fixture instead of LDAP.URL
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	LDAP      LDAP
	Login     Login
	Session   Session
	Dev       Dev
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover      bool   // disable recover middleware
	Port                int    `validate:"min=1,max=65535"`
	ShutDownTime        int    // wait time for shutdown in seconds
	URL                 string // base url for the webserver
	CookieEncryptionKey string // secret of the basic auth token sealer
	Argon2Salt          string // salt of the basic auth token sealer key derivation
	SecureCookie        bool   // send cookies over https only
}

// LDAP holds the directory settings.
type LDAP struct {
	URL                   string        // ldap://host:port or ldaps://host:port
	StartTLS              bool          // upgrade ldap:// with StartTLS
	SkipVerify            bool          // skip certificate verification, testing only
	CAFile                string        // PEM CA bundle to trust
	Timeout               time.Duration // dial and operation timeout
	UsernamePrefix        string        // domain prefix of bind names, e.g. `example\`
	UsersDN               string        `validate:"required_with=GroupsDN"`
	GroupsDN              string        `validate:"required_with=UsersDN"`
	MaxConcurrentSearches int           `validate:"gte=0"`
	MaxDepth              int           `validate:"gte=0"` // 0 = unbounded
}

// Login holds the request adapter settings.
type Login struct {
	UsernameProperty string // form field carrying the username
	PasswordProperty string // form field carrying the password
	SuccessURL       string // redirect target after login, JSON response if empty
	FailureURL       string // redirect target on invalid credentials, JSON response if empty
	BasicAuthToken   bool   // store a sealed basic auth token in the session
}

// Redis holds the settings of the redis session storage.
type Redis struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Session settings.
type Session struct {
	// Driver selects the storage: memory, database, redis, mysql or postgres.
	Driver     string        `validate:"omitempty,oneof=memory database redis mysql postgres"`
	ExpiryTime time.Duration // session lifetime
	GCInterval time.Duration // interval of expired session cleanup
	Table      string        // table of the database, mysql and postgres drivers
	Redis      Redis
	DB         DB // connection of the mysql and postgres drivers
}

// Dev holds the settings of the development mode.
type Dev struct {
	Fixture string // JSON directory served in dev mode
}
