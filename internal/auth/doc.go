// Package auth authenticates users against an LDAP or Active Directory server.
//
// An authentication attempt owns exactly one directory connection:
//
//	Idle -> Connecting -> Binding -> Resolving -> Done
//
// A rejected bind ends the attempt with "not authenticated" (no error). Every other
// failure ends it with an error classified as ErrConnectionFailed or
// ErrDirectoryUnavailable. The connection is released on every path.
//
// # Nested groups
//
// After a successful bind the GroupResolver reads the memberOf attribute of the
// user entry and then, round by round, the memberOf attribute of every group found
// in the previous round. A group is expanded at most once, so cycles in the
// membership graph terminate. All lookups of one round run concurrently; the next
// round starts only when the current one has completed. A failed lookup discards
// the whole result.
//
// Example usage:
//
//	authenticator, err := auth.NewAuthenticator(auth.LDAPConfig{
//	    URL:            "ldaps://dc.example.com",
//	    UsernamePrefix: `example\`,
//	    UsersDN:        "OU=Users,DC=example,DC=com",
//	    GroupsDN:       "OU=Groups,DC=example,DC=com",
//	})
//
//	identity, ok, err := authenticator.Authenticate(ctx, username, password)
//	switch {
//	case err != nil:
//	    // operational failure
//	case !ok:
//	    // wrong username or password
//	default:
//	    // identity.Username, identity.Groups
//	}
package auth
