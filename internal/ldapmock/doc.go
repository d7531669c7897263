// Package ldapmock provides an in-memory directory speaking the auth.Conn contract.
//
// It is used by the tests and by "start --dev", where users and groups come from a
// JSON fixture file instead of a real LDAP or Active Directory server:
//
//	{
//	  "usersDN":  "OU=Users,DC=example,DC=com",
//	  "groupsDN": "OU=Groups,DC=example,DC=com",
//	  "bindPrefix": "example\\",
//	  "users":  [{"name": "alice", "password": "secret", "memberOf": ["developers"]}],
//	  "groups": [{"name": "developers", "memberOf": ["staff"]}, {"name": "staff"}]
//	}
//
// memberOf values without "=" are group names below groupsDN, other values are used
// as distinguished names verbatim. Search filters are compiled with go-ldap and
// evaluated for and, or, not, equality and presence.
package ldapmock
