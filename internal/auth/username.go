package auth

import "strings"

// UsernameNormalizer derives the bind name and the bare account name from a login name.
type UsernameNormalizer struct {
	prefix string
}

// NewUsernameNormalizer creates a normalizer for the given domain prefix, e.g. `example\`.
// An empty prefix binds with the bare account name.
func NewUsernameNormalizer(prefix string) UsernameNormalizer {
	return UsernameNormalizer{prefix: strings.ToLower(prefix)}
}

// Normalize lower-cases username and applies the domain prefix. bindName is used for the
// bind, bareName for the account name search. Normalizing a bind name again yields the
// same bind name.
func (n UsernameNormalizer) Normalize(username string) (bindName, bareName string) {
	username = strings.ToLower(username)

	if n.prefix == "" {
		return username, username
	}

	if bare, found := strings.CutPrefix(username, n.prefix); found {
		return username, bare
	}

	return n.prefix + username, username
}
