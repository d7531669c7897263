package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrLDAPURLMissing error if no directory is configured outside of dev mode.
	ErrLDAPURLMissing = errors.New("toml config ldap.url can not be empty")

	// ErrDevFixtureMissing error if dev mode is enabled without a directory fixture.
	ErrDevFixtureMissing = errors.New("toml config dev.fixture can not be empty in dev mode")

	// ErrBasicAuthTokenKeyMissing error if basic auth tokens are enabled without sealer secrets.
	ErrBasicAuthTokenKeyMissing = errors.New(
		"toml config login.basicAuthToken needs webserver.cookieEncryptionKey and webserver.argon2Salt")
)

// ErrConfigNil is returned when a component is created without configuration.
var ErrConfigNil = errors.New("config is nil")
