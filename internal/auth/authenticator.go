package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Identity is the result of a successful authentication.
type Identity struct {
	// Username is the normalized account name without domain prefix.
	Username string `json:"username"`
	// Groups is the deduplicated transitive group membership of the user.
	Groups []string `json:"groups"`
}

// Authenticator verifies credentials against the directory and resolves group membership.
// It holds no per-attempt state and is safe for concurrent use.
type Authenticator struct {
	config     LDAPConfig
	dialer     Dialer
	normalizer UsernameNormalizer
	resolver   *GroupResolver
	metrics    *Metrics
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithDialer replaces the network dialer, e.g. with an in-memory directory.
func WithDialer(dialer Dialer) Option {
	return func(a *Authenticator) {
		a.dialer = dialer
	}
}

// WithMetrics enables prometheus metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = metrics
	}
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(config LDAPConfig, opts ...Option) (*Authenticator, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	config.setDefaults()

	a := &Authenticator{
		config:     config,
		dialer:     NetDialer{},
		normalizer: NewUsernameNormalizer(config.UsernamePrefix),
	}

	if config.GroupLookupEnabled() {
		a.resolver = NewGroupResolver(config.UsersDN, config.GroupsDN, config.MaxConcurrentSearches, config.MaxDepth)
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Authenticate binds with the given credentials and resolves the user's groups.
//
// It returns (identity, true, nil) on success and (nil, false, nil) when the directory
// rejects the credentials. Missing input yields ErrUsernameMissing or ErrPasswordMissing
// without contacting the directory. Every other failure is returned as an error and
// never comes with a partial identity.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Identity, bool, error) {
	bindName, bareName := a.normalizer.Normalize(username)

	switch {
	case bareName == "":
		a.metrics.observeAttempt(OutcomeRejected)
		return nil, false, ErrUsernameMissing
	case password == "":
		a.metrics.observeAttempt(OutcomeRejected)
		return nil, false, ErrPasswordMissing
	}

	identity, err := a.authenticate(ctx, bindName, bareName, password)

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		log.Info().Str("username", bareName).Str("bindName", bindName).Msg("invalid credentials")
		a.metrics.observeAttempt(OutcomeInvalidCredentials)

		return nil, false, nil
	case err != nil:
		if ctxErr := context.Cause(ctx); ctxErr != nil {
			err = fmt.Errorf("authentication of %q aborted: %w: %w", bareName, ctxErr, err)
		}

		a.metrics.observeAttempt(OutcomeError)

		return nil, false, err
	}

	a.metrics.observeAttempt(OutcomeSuccess)

	return identity, true, nil
}

func (a *Authenticator) authenticate(ctx context.Context, bindName, bareName, password string) (*Identity, error) {
	sess, err := OpenSession(ctx, a.dialer, &a.config)
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := sess.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	log.Debug().Str("bindName", bindName).Msg("authenticating user")

	if err = sess.Bind(bindName, password); err != nil {
		return nil, err
	}

	identity := &Identity{
		Username: bareName,
		Groups:   []string{},
	}

	if a.resolver == nil {
		return identity, nil
	}

	groups, rounds, err := a.resolver.resolve(ctx, sess, bareName)
	if err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}

	a.metrics.observeResolution(rounds, len(groups))

	log.Debug().Str("username", bareName).Int("groups", len(groups)).Int("rounds", rounds).Msg("user authenticated")

	identity.Groups = groups

	return identity, nil
}

// CheckConnection opens and releases one directory connection without binding.
func (a *Authenticator) CheckConnection(ctx context.Context) error {
	sess, err := OpenSession(ctx, a.dialer, &a.config)
	if err != nil {
		return err
	}

	return sess.Close()
}

// Config returns the effective configuration, defaults applied.
func (a *Authenticator) Config() LDAPConfig {
	return a.config
}
