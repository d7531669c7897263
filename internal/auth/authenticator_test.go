package auth_test

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/ldapmock"
)

const (
	usersDN  = "OU=Users,DC=example,DC=com"
	groupsDN = "OU=Groups,DC=example,DC=com"
)

var errBoom = errors.New("boom")

// nestedFixture is a directory where test-user belongs to ten groups, most of them through nesting.
func nestedFixture() ldapmock.Fixture {
	return ldapmock.Fixture{
		UsersDN:    usersDN,
		GroupsDN:   groupsDN,
		BindPrefix: `domain\`,
		Users: []ldapmock.User{
			{Name: "test-user", Password: "password", MemberOf: []string{"group1", "group2", "group3"}},
			{Name: "lonely", Password: "password"},
		},
		Groups: []ldapmock.Group{
			{Name: "group1", MemberOf: []string{"group11", "group12"}},
			{Name: "group2", MemberOf: []string{"group21", "group22"}},
			{Name: "group3"},
			{Name: "group11", MemberOf: []string{"group111"}},
			{Name: "group12"},
			{Name: "group21", MemberOf: []string{"group211"}},
			{Name: "group22"},
			{Name: "group111", MemberOf: []string{"group1111"}},
			{Name: "group211"},
			{Name: "group1111"},
		},
	}
}

var nestedGroups = []string{
	"group1", "group11", "group111", "group1111", "group12",
	"group2", "group21", "group211", "group22", "group3",
}

func newAuthenticator(t *testing.T, dir *ldapmock.Directory, cfg auth.LDAPConfig, opts ...auth.Option) *auth.Authenticator {
	t.Helper()

	if cfg.URL == "" {
		cfg.URL = "ldap://dc.example.com"
	}

	a, err := auth.NewAuthenticator(cfg, append([]auth.Option{auth.WithDialer(dir)}, opts...)...)
	require.NoError(t, err)

	return a
}

func groupConfig() auth.LDAPConfig {
	return auth.LDAPConfig{UsersDN: usersDN, GroupsDN: groupsDN}
}

func TestNewAuthenticator(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         auth.LDAPConfig
		groupLookup bool
		expectedErr error
	}{
		{name: "missing url", cfg: auth.LDAPConfig{}, expectedErr: auth.ErrLDAPURLMissing},
		{name: "users dn only", cfg: auth.LDAPConfig{URL: "ldap://dc", UsersDN: usersDN}, expectedErr: auth.ErrIncompleteGroupSearch},
		{name: "groups dn only", cfg: auth.LDAPConfig{URL: "ldap://dc", GroupsDN: groupsDN}, expectedErr: auth.ErrIncompleteGroupSearch},
		{name: "no group lookup", cfg: auth.LDAPConfig{URL: "ldap://dc"}},
		{name: "group lookup", cfg: auth.LDAPConfig{URL: "ldap://dc", UsersDN: usersDN, GroupsDN: groupsDN}, groupLookup: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := auth.NewAuthenticator(tc.cfg)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, a)

				return
			}

			require.NoError(t, err)

			cfg := a.Config()
			assert.Equal(t, 10*time.Second, cfg.Timeout)
			assert.Equal(t, 8, cfg.MaxConcurrentSearches)
			assert.Equal(t, tc.groupLookup, a.Config().GroupLookupEnabled())
		})
	}
}

func TestAuthenticateWithoutGroupLookup(t *testing.T) {
	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, auth.LDAPConfig{})

	identity, ok, err := a.Authenticate(context.Background(), "test-user", "password")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, &auth.Identity{Username: "test-user", Groups: []string{}}, identity)

	stats := dir.Stats()
	assert.Equal(t, 0, stats.Searches)
	assert.Equal(t, 1, stats.Closes)
}

func TestAuthenticateNestedGroups(t *testing.T) {
	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, groupConfig())

	identity, ok, err := a.Authenticate(context.Background(), "test-user", "password")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "test-user", identity.Username)
	assert.Equal(t, nestedGroups, identity.Groups)

	stats := dir.Stats()
	assert.Equal(t, 1, stats.Dials)
	assert.Equal(t, 1, stats.Binds)
	// one user search plus one search per discovered group
	assert.Equal(t, 1+len(nestedGroups), stats.Searches)
	assert.Equal(t, 1, stats.Closes)
}

func TestAuthenticateUserWithoutGroups(t *testing.T) {
	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, groupConfig())

	identity, ok, err := a.Authenticate(context.Background(), "lonely", "password")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, identity.Groups)
	assert.NotNil(t, identity.Groups)
}

func TestAuthenticateCycle(t *testing.T) {
	dir := ldapmock.New(ldapmock.Fixture{
		UsersDN:  usersDN,
		GroupsDN: groupsDN,
		Users: []ldapmock.User{
			{Name: "carol", Password: "pw", MemberOf: []string{"a"}},
		},
		Groups: []ldapmock.Group{
			{Name: "a", MemberOf: []string{"b"}},
			{Name: "b", MemberOf: []string{"c", "a"}},
			{Name: "c", MemberOf: []string{"a", "b", "c"}},
		},
	})
	a := newAuthenticator(t, dir, groupConfig())

	identity, ok, err := a.Authenticate(context.Background(), "carol", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, identity.Groups)
	// every group is expanded exactly once
	assert.Equal(t, 4, dir.Stats().Searches)
}

func TestAuthenticateSkipsForeignMemberships(t *testing.T) {
	dir := ldapmock.New(ldapmock.Fixture{
		UsersDN:  usersDN,
		GroupsDN: groupsDN,
		Users: []ldapmock.User{
			{Name: "dave", Password: "pw", MemberOf: []string{"devs", "CN=newsletter,OU=Lists,DC=example,DC=com"}},
		},
		Groups: []ldapmock.Group{{Name: "devs"}},
	})
	a := newAuthenticator(t, dir, groupConfig())

	identity, ok, err := a.Authenticate(context.Background(), "dave", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"devs"}, identity.Groups)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	testCases := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "test-user", password: "wrong"},
		{name: "unknown user", username: "nobody", password: "password"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := ldapmock.New(nestedFixture())
			a := newAuthenticator(t, dir, groupConfig())

			identity, ok, err := a.Authenticate(context.Background(), tc.username, tc.password)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, identity)

			stats := dir.Stats()
			assert.Equal(t, 0, stats.Searches)
			assert.Equal(t, 1, stats.Closes)
		})
	}
}

func TestAuthenticateMissingInput(t *testing.T) {
	testCases := []struct {
		name        string
		prefix      string
		username    string
		password    string
		expectedErr error
	}{
		{name: "missing username", username: "", password: "password", expectedErr: auth.ErrUsernameMissing},
		{name: "prefix only", prefix: `domain\`, username: `DOMAIN\`, password: "password", expectedErr: auth.ErrUsernameMissing},
		{name: "missing password", username: "test-user", password: "", expectedErr: auth.ErrPasswordMissing},
		{name: "missing both", username: "", password: "", expectedErr: auth.ErrUsernameMissing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := ldapmock.New(nestedFixture())
			a := newAuthenticator(t, dir, auth.LDAPConfig{UsernamePrefix: tc.prefix})

			identity, ok, err := a.Authenticate(context.Background(), tc.username, tc.password)
			require.ErrorIs(t, err, tc.expectedErr)
			assert.False(t, ok)
			assert.Nil(t, identity)
			assert.Equal(t, 0, dir.Stats().Dials)
		})
	}
}

func TestAuthenticateUsernamePrefix(t *testing.T) {
	testCases := []struct {
		name         string
		username     string
		wantBindName string
	}{
		{name: "already prefixed", username: `domain\test-user`, wantBindName: `domain\test-user`},
		{name: "bare name", username: "test-user", wantBindName: `domain\test-user`},
		{name: "mixed case", username: `DOMAIN\Test-User`, wantBindName: `domain\test-user`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := ldapmock.New(nestedFixture())
			cfg := groupConfig()
			cfg.UsernamePrefix = `domain\`
			a := newAuthenticator(t, dir, cfg)

			identity, ok, err := a.Authenticate(context.Background(), tc.username, "password")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "test-user", identity.Username)
			assert.Len(t, identity.Groups, len(nestedGroups))

			assert.Equal(t, []string{tc.wantBindName}, dir.BindNames())
			assert.Contains(t, dir.Filters()[0], "(sAMAccountName=test-user)")
		})
	}
}

func TestAuthenticateOperationalErrors(t *testing.T) {
	testCases := []struct {
		name         string
		setup        func(dir *ldapmock.Directory)
		expectedErr  error
		expectedClos int
	}{
		{
			name:         "dial failure",
			setup:        func(dir *ldapmock.Directory) { dir.FailDial(errBoom) },
			expectedErr:  auth.ErrConnectionFailed,
			expectedClos: 0,
		},
		{
			name:         "bind failure",
			setup:        func(dir *ldapmock.Directory) { dir.FailBind(errBoom) },
			expectedErr:  auth.ErrDirectoryUnavailable,
			expectedClos: 1,
		},
		{
			name: "user search failure",
			setup: func(dir *ldapmock.Directory) {
				dir.FailSearch(func(baseDN, _ string) error {
					if baseDN == usersDN {
						return errBoom
					}

					return nil
				})
			},
			expectedErr:  auth.ErrDirectoryUnavailable,
			expectedClos: 1,
		},
		{
			name: "failure in a later round",
			setup: func(dir *ldapmock.Directory) {
				dir.FailSearch(func(_, filter string) error {
					if filter == "(&(objectClass=group)(cn=group111))" {
						return errBoom
					}

					return nil
				})
			},
			expectedErr:  auth.ErrDirectoryUnavailable,
			expectedClos: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := ldapmock.New(nestedFixture())
			tc.setup(dir)
			a := newAuthenticator(t, dir, groupConfig())

			identity, ok, err := a.Authenticate(context.Background(), "test-user", "password")
			require.ErrorIs(t, err, tc.expectedErr)
			require.ErrorIs(t, err, errBoom)
			assert.False(t, ok)
			assert.Nil(t, identity)
			assert.Equal(t, tc.expectedClos, dir.Stats().Closes)
		})
	}
}

func TestAuthenticateCloseErrors(t *testing.T) {
	testCases := []struct {
		name     string
		closeErr error
	}{
		{name: "connection reset", closeErr: syscall.ECONNRESET},
		{name: "wrapped connection reset", closeErr: &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}},
		{name: "other close error", closeErr: errBoom},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := ldapmock.New(nestedFixture())
			dir.FailClose(tc.closeErr)
			a := newAuthenticator(t, dir, groupConfig())

			identity, ok, err := a.Authenticate(context.Background(), "test-user", "password")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Len(t, identity.Groups, len(nestedGroups))
			assert.Equal(t, 1, dir.Stats().Closes)
		})
	}
}

func TestAuthenticateMaxDepth(t *testing.T) {
	cfg := groupConfig()
	cfg.MaxDepth = 2

	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, cfg)

	identity, ok, err := a.Authenticate(context.Background(), "test-user", "password")
	require.ErrorIs(t, err, auth.ErrResolutionDepthExceeded)
	assert.False(t, ok)
	assert.Nil(t, identity)

	cfg.MaxDepth = 4
	a = newAuthenticator(t, dir, cfg)

	identity, ok, err = a.Authenticate(context.Background(), "test-user", "password")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, nestedGroups, identity.Groups)
}

func TestAuthenticateCanceledContext(t *testing.T) {
	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, groupConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	identity, ok, err := a.Authenticate(ctx, "test-user", "password")
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	assert.Nil(t, identity)
	assert.Equal(t, 0, dir.Stats().Dials)
}

func TestAuthenticateMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, groupConfig(), auth.WithMetrics(auth.NewMetrics(reg)))

	ctx := context.Background()

	_, _, err := a.Authenticate(ctx, "test-user", "password")
	require.NoError(t, err)
	_, _, err = a.Authenticate(ctx, "test-user", "wrong")
	require.NoError(t, err)
	_, _, err = a.Authenticate(ctx, "", "password")
	require.Error(t, err)

	dir.FailBind(errBoom)
	_, _, err = a.Authenticate(ctx, "test-user", "password")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "auth_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = testutil.GatherAndCount(reg, "auth_groups_resolved")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewMetricsReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	dir := ldapmock.New(nestedFixture())

	first := newAuthenticator(t, dir, groupConfig(), auth.WithMetrics(auth.NewMetrics(reg)))
	second := newAuthenticator(t, dir, groupConfig(), auth.WithMetrics(auth.NewMetrics(reg)))

	_, _, err := first.Authenticate(context.Background(), "test-user", "wrong")
	require.NoError(t, err)
	_, _, err = second.Authenticate(context.Background(), "test-user", "wrong")
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(auth.NewMetrics(reg).Attempts(auth.OutcomeInvalidCredentials)), 0)
}

func TestCheckConnection(t *testing.T) {
	dir := ldapmock.New(nestedFixture())
	a := newAuthenticator(t, dir, groupConfig())

	require.NoError(t, a.CheckConnection(context.Background()))

	stats := dir.Stats()
	assert.Equal(t, 1, stats.Dials)
	assert.Equal(t, 0, stats.Binds)
	assert.Equal(t, 1, stats.Closes)

	dir.FailDial(errBoom)
	require.ErrorIs(t, a.CheckConnection(context.Background()), auth.ErrConnectionFailed)
}
