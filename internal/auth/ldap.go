package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"syscall"
	"time"

	"github.com/go-ldap/ldap/v3"
)

const (
	ldapScheme  = "ldap"
	ldapsScheme = "ldaps"

	defaultTimeout               = 10 * time.Second
	defaultMaxConcurrentSearches = 8

	// searchBufferSize is the number of entries go-ldap may queue ahead of the consumer.
	searchBufferSize = 16
)

// LDAPConfig holds LDAP/Active Directory settings for authentication.
type LDAPConfig struct {
	// URL is the directory endpoint, e.g. "ldap://dc.example.com:389" or "ldaps://dc.example.com".
	URL string
	// StartTLS upgrades a plain ldap:// connection to TLS before any credential is sent.
	StartTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// CABundle is a PEM encoded CA bundle to trust. Can be nil.
	CABundle []byte
	// Timeout bounds dialing and every single directory operation.
	Timeout time.Duration
	// UsernamePrefix is the domain prefix of bind names, e.g. `example\`.
	UsernamePrefix string
	// UsersDN is the search base for user entries.
	UsersDN string
	// GroupsDN is the search base for group entries. Only memberOf values below it are kept.
	GroupsDN string
	// MaxConcurrentSearches limits the parallel group lookups of one resolution round.
	MaxConcurrentSearches int
	// MaxDepth aborts group resolution after this many rounds. 0 means unbounded.
	MaxDepth int
}

// GroupLookupEnabled reports whether nested group resolution is configured.
func (c LDAPConfig) GroupLookupEnabled() bool {
	return c.UsersDN != "" && c.GroupsDN != ""
}

func (c LDAPConfig) validate() error {
	if c.URL == "" {
		return ErrLDAPURLMissing
	}

	if (c.UsersDN == "") != (c.GroupsDN == "") {
		return ErrIncompleteGroupSearch
	}

	return nil
}

func (c *LDAPConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	if c.MaxConcurrentSearches <= 0 {
		c.MaxConcurrentSearches = defaultMaxConcurrentSearches
	}
}

// Conn abstracts the directory protocol (mostly for testing).
type Conn interface {
	Bind(username, password string) error

	SearchAsync(ctx context.Context, searchRequest *ldap.SearchRequest, bufferSize int) ldap.Response

	Close() error
}

// Our Conn type is a subset of the ldap.Client interface, which is implemented by ldap.Conn.
var _ Conn = &ldap.Conn{}

// Dialer is a factory of Conn.
type Dialer interface {
	Dial(ctx context.Context, cfg *LDAPConfig) (Conn, error)
}

// DialerFunc makes it easy to use a func as a Dialer.
type DialerFunc func(ctx context.Context, cfg *LDAPConfig) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, cfg *LDAPConfig) (Conn, error) {
	return f(ctx, cfg)
}

// NetDialer is the production Dialer. It dials with a context, which ldap.DialURL does not
// support, and then hands the established connection to go-ldap.
type NetDialer struct{}

// Dial implements Dialer.
func (NetDialer) Dial(ctx context.Context, cfg *LDAPConfig) (Conn, error) {
	ldapURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url: %w", ErrConnectionFailed, err)
	}

	if ldapURL.Hostname() == "" {
		return nil, fmt.Errorf("%w: url %q has no host", ErrConnectionFailed, cfg.URL)
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         ldapURL.Hostname(),
		InsecureSkipVerify: cfg.SkipVerify, //nolint:gosec // opt-in via configuration
	}

	if len(cfg.CABundle) > 0 {
		rootCAs := x509.NewCertPool()
		if !rootCAs.AppendCertsFromPEM(cfg.CABundle) {
			return nil, fmt.Errorf("%w: could not parse CA bundle", ErrConnectionFailed)
		}

		tlsConfig.RootCAs = rootCAs
	}

	netDialer := &net.Dialer{Timeout: cfg.Timeout}

	var (
		netConn net.Conn
		isTLS   bool
	)

	switch ldapURL.Scheme {
	case ldapsScheme:
		isTLS = true
		tlsDialer := &tls.Dialer{NetDialer: netDialer, Config: tlsConfig}
		netConn, err = tlsDialer.DialContext(ctx, "tcp", hostAndPort(ldapURL, ldap.DefaultLdapsPort))
	case ldapScheme:
		netConn, err = netDialer.DialContext(ctx, "tcp", hostAndPort(ldapURL, ldap.DefaultLdapPort))
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrConnectionFailed, ErrUnsupportedScheme, ldapURL.Scheme)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	conn := ldap.NewConn(netConn, isTLS)
	conn.Start()
	conn.SetTimeout(cfg.Timeout)

	if cfg.StartTLS && !isTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("%w: failed to start TLS: %w", ErrConnectionFailed, errStartTLS)
		}
	}

	return conn, nil
}

func hostAndPort(u *url.URL, defaultPort string) string {
	port := u.Port()
	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(u.Hostname(), port)
}

// Session owns one directory connection for exactly one authentication attempt.
// Close must be called on every exit path; calling it more than once is safe and
// releases the connection only once.
type Session struct {
	conn      Conn
	timeout   time.Duration
	stopWatch func() bool
	closeOnce sync.Once
	closeErr  error
}

// OpenSession connects to the directory. When ctx ends before the session is closed,
// the connection is released so that a blocked bind or search returns.
func OpenSession(ctx context.Context, dialer Dialer, cfg *LDAPConfig) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	conn, err := dialer.Dial(ctx, cfg)
	if err != nil {
		if errors.Is(err, ErrConnectionFailed) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	s := &Session{
		conn:    conn,
		timeout: cfg.Timeout,
	}

	s.stopWatch = context.AfterFunc(ctx, func() {
		_ = s.Close()
	})

	return s, nil
}

// Bind checks the given credentials. A rejection by the directory is classified as
// ErrInvalidCredentials, anything else as ErrDirectoryUnavailable.
func (s *Session) Bind(name, password string) error {
	err := s.conn.Bind(name, password)
	if err == nil {
		return nil
	}

	if isInvalidCredentials(err) {
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	return fmt.Errorf("%w: bind failed: %w", ErrDirectoryUnavailable, err)
}

// Search starts a subtree search below baseDN. Entries are consumed lazily from the
// returned stream.
func (s *Session) Search(ctx context.Context, baseDN, filter string, attributes []string) *SearchStream {
	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // size limit
		int(s.timeout.Seconds()),
		false,
		filter,
		attributes,
		nil,
	)

	return &SearchStream{
		response: s.conn.SearchAsync(ctx, searchRequest, searchBufferSize),
	}
}

// Close releases the connection. A connection reset reported during teardown is not
// a failure: the peer commonly drops the socket once the attempt is over.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.stopWatch != nil {
			s.stopWatch()
		}

		if err := s.conn.Close(); err != nil && !errors.Is(err, syscall.ECONNRESET) {
			s.closeErr = fmt.Errorf("failed to close LDAP connection: %w", err)
		}
	})

	return s.closeErr
}

func isInvalidCredentials(err error) bool {
	var ldapErr *ldap.Error
	if !errors.As(err, &ldapErr) {
		return false
	}

	switch ldapErr.ResultCode {
	case ldap.LDAPResultInvalidCredentials, ldap.ErrorEmptyPassword:
		return true
	default:
		return false
	}
}

// SearchStream is the lazily consumed result of a search.
// The end of the results is reported by Next returning false with Err returning nil.
type SearchStream struct {
	response ldap.Response
	entry    *ldap.Entry
	err      error
}

// Next advances to the next entry. Referrals are skipped.
func (st *SearchStream) Next() bool {
	for st.response.Next() {
		if entry := st.response.Entry(); entry != nil {
			st.entry = entry

			return true
		}
	}

	if err := st.response.Err(); err != nil {
		st.err = fmt.Errorf("%w: search failed: %w", ErrDirectoryUnavailable, err)
	}

	st.entry = nil

	return false
}

// Entry returns the current entry.
func (st *SearchStream) Entry() *ldap.Entry {
	return st.entry
}

// Err returns the terminal error of the search, if any.
func (st *SearchStream) Err() error {
	return st.err
}
