package auth

import "errors"

var (
	// ErrUsernameMissing is returned when an authentication attempt carries no username.
	// It is reported before any directory interaction takes place.
	ErrUsernameMissing = errors.New("username missing")

	// ErrPasswordMissing is returned when an authentication attempt carries no password.
	// Directories treat an empty password as an unauthenticated bind, so it is refused up front.
	ErrPasswordMissing = errors.New("password missing")

	// ErrInvalidCredentials is the classification of a bind rejected by the directory.
	// Authenticator.Authenticate never returns it; it reports (nil, false, nil) instead.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConnectionFailed is returned when no connection to the directory could be established.
	ErrConnectionFailed = errors.New("could not connect to directory")

	// ErrDirectoryUnavailable is returned for every directory failure that is not a credential rejection.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrResolutionDepthExceeded is returned when nested group resolution needs more rounds than configured.
	ErrResolutionDepthExceeded = errors.New("group resolution exceeded maximum depth")

	// ErrLDAPURLMissing is returned when the directory endpoint is not configured.
	ErrLDAPURLMissing = errors.New("ldap url can not be empty")

	// ErrUnsupportedScheme is returned for endpoints that are neither ldap:// nor ldaps://.
	ErrUnsupportedScheme = errors.New("unsupported ldap url scheme")

	// ErrIncompleteGroupSearch is returned when only one of UsersDN and GroupsDN is configured.
	ErrIncompleteGroupSearch = errors.New("usersDN and groupsDN must be configured together")
)
