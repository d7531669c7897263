// Package auth provides the session guard of the web application.
//
// The guard reads the session cookie, loads the identity from the session
// manager and stores it in fiber.Locals under ldapauth.LocalsUser.
//
// Unauthenticated requests are handled by kind:
//   - public paths (login, logout, checkalive, metrics) pass through
//   - API paths get a 401 JSON failure
//   - pages are redirected to the login path, the requested URL is kept in
//     the returnUrl cookie so that the login can send the user back
//
// Usage:
//
//	app.Use(authmiddleware.New(authmiddleware.Config{Sessions: manager}))
package auth
