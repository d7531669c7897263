// Package main provides the entry point of GoDirAuth, a login service authenticating
// users against LDAP and Active Directory. It resolves the nested group membership of
// a user, keeps the identity in a server side session and records every login attempt.
// Run "go-dir-auth start" to serve, "go-dir-auth check" to test the directory connection
// and "go-dir-auth authenticate -u user" to test credentials.
package main
