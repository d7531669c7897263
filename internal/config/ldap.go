package config

import (
	"os"

	"github.com/pkg/errors"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
)

// AuthConfig converts the directory settings for the authenticator. The CA file is read here.
func (l LDAP) AuthConfig() (auth.LDAPConfig, error) {
	cfg := auth.LDAPConfig{
		URL:                   l.URL,
		StartTLS:              l.StartTLS,
		SkipVerify:            l.SkipVerify,
		Timeout:               l.Timeout,
		UsernamePrefix:        l.UsernamePrefix,
		UsersDN:               l.UsersDN,
		GroupsDN:              l.GroupsDN,
		MaxConcurrentSearches: l.MaxConcurrentSearches,
		MaxDepth:              l.MaxDepth,
	}

	if l.CAFile != "" {
		bundle, err := os.ReadFile(l.CAFile)
		if err != nil {
			return auth.LDAPConfig{}, errors.Wrap(err, "failed to read ldap ca file")
		}

		cfg.CABundle = bundle
	}

	return cfg, nil
}
