// Package login provides the HTTP handlers of the login page.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrSessionsMissing is returned when the login page is initialised without session manager.
	ErrSessionsMissing = errors.New("login page requires a session manager")
)
