package ldapmock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
)

// User is a person entry of the fixture.
type User struct {
	Name     string   `json:"name"`
	Password string   `json:"password"`
	MemberOf []string `json:"memberOf"`
}

// Group is a group entry of the fixture.
type Group struct {
	Name     string   `json:"name"`
	MemberOf []string `json:"memberOf"`
}

// Fixture describes the content of a directory.
type Fixture struct {
	UsersDN    string  `json:"usersDN"`
	GroupsDN   string  `json:"groupsDN"`
	BindPrefix string  `json:"bindPrefix"`
	Users      []User  `json:"users"`
	Groups     []Group `json:"groups"`
}

// Stats counts the calls made against a Directory.
type Stats struct {
	Dials    int
	Binds    int
	Searches int
	Closes   int
}

// Directory is an in-memory directory. It implements auth.Dialer; every Dial returns a
// new connection sharing the same content. All methods are safe for concurrent use.
type Directory struct {
	mu        sync.Mutex
	entries   []*ldap.Entry
	passwords map[string]string
	stats     Stats
	bindNames []string
	filters   []string

	dialErr   error
	bindErr   error
	closeErr  error
	searchErr func(baseDN, filter string) error
}

// Ensure Directory can be used as the authenticator's dialer.
var _ auth.Dialer = (*Directory)(nil)

// New creates a directory holding the users and groups of fixture.
func New(fixture Fixture) *Directory {
	d := &Directory{
		passwords: make(map[string]string),
	}

	for _, user := range fixture.Users {
		dn := "CN=" + user.Name + "," + fixture.UsersDN

		d.entries = append(d.entries, ldap.NewEntry(dn, map[string][]string{
			"objectClass":    {"top", "person", "organizationalPerson", "user"},
			"objectCategory": {"person"},
			"cn":             {user.Name},
			"sAMAccountName": {user.Name},
			"memberOf":       groupDNs(user.MemberOf, fixture.GroupsDN),
		}))

		for _, bindName := range []string{user.Name, fixture.BindPrefix + user.Name, dn} {
			d.passwords[strings.ToLower(bindName)] = user.Password
		}
	}

	for _, group := range fixture.Groups {
		d.entries = append(d.entries, ldap.NewEntry("CN="+group.Name+","+fixture.GroupsDN, map[string][]string{
			"objectClass": {"top", "group"},
			"cn":          {group.Name},
			"memberOf":    groupDNs(group.MemberOf, fixture.GroupsDN),
		}))
	}

	return d
}

// Load reads a JSON fixture file and creates a directory from it.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ldapmock: read fixture %q: %w", path, err)
	}

	var fixture Fixture
	if err = json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("ldapmock: parse fixture %q: %w", path, err)
	}

	return New(fixture), nil
}

func groupDNs(groups []string, groupsDN string) []string {
	dns := make([]string, 0, len(groups))

	for _, group := range groups {
		if strings.Contains(group, "=") {
			dns = append(dns, group)
			continue
		}

		dns = append(dns, "CN="+group+","+groupsDN)
	}

	return dns
}

// Dial implements auth.Dialer.
func (d *Directory) Dial(ctx context.Context, _ *auth.LDAPConfig) (auth.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Dials++

	if d.dialErr != nil {
		return nil, d.dialErr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &conn{dir: d}, nil
}

// FailDial makes every following Dial return err.
func (d *Directory) FailDial(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialErr = err
}

// FailBind makes every following Bind return err.
func (d *Directory) FailBind(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bindErr = err
}

// FailSearch installs fn, which is consulted before every search; a non-nil result fails the search.
func (d *Directory) FailSearch(fn func(baseDN, filter string) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.searchErr = fn
}

// FailClose makes every following Close return err.
func (d *Directory) FailClose(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closeErr = err
}

// Stats returns the call counters.
func (d *Directory) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stats
}

// BindNames returns the names used for binding, in call order.
func (d *Directory) BindNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.bindNames...)
}

// Filters returns the search filters received, in call order.
func (d *Directory) Filters() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.filters...)
}

type conn struct {
	dir *Directory
}

func (c *conn) Bind(username, password string) error {
	d := c.dir

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Binds++
	d.bindNames = append(d.bindNames, username)

	if d.bindErr != nil {
		return d.bindErr
	}

	if password == "" {
		return ldap.NewError(ldap.ErrorEmptyPassword, errors.New("ldap: empty password not allowed by the client"))
	}

	if want, ok := d.passwords[strings.ToLower(username)]; !ok || want != password {
		return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
	}

	return nil
}

func (c *conn) SearchAsync(ctx context.Context, searchRequest *ldap.SearchRequest, _ int) ldap.Response {
	d := c.dir

	d.mu.Lock()
	d.stats.Searches++
	d.filters = append(d.filters, searchRequest.Filter)
	searchErr := d.searchErr
	entries := d.entries
	d.mu.Unlock()

	if searchErr != nil {
		if err := searchErr(searchRequest.BaseDN, searchRequest.Filter); err != nil {
			return &response{err: err}
		}
	}

	if err := ctx.Err(); err != nil {
		return &response{err: ldap.NewError(ldap.ErrorNetwork, err)}
	}

	matches, err := compileFilter(searchRequest.Filter)
	if err != nil {
		return &response{err: err}
	}

	var found []*ldap.Entry

	for _, entry := range entries {
		if inScope(entry.DN, searchRequest.BaseDN) && matches(entry) {
			found = append(found, project(entry, searchRequest.Attributes))
		}
	}

	return &response{entries: found}
}

func (c *conn) Close() error {
	d := c.dir

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Closes++

	return d.closeErr
}

func inScope(dn, baseDN string) bool {
	return baseDN == "" || strings.HasSuffix(strings.ToLower(dn), strings.ToLower(baseDN))
}

// project copies entry keeping only the requested attributes.
func project(entry *ldap.Entry, attributes []string) *ldap.Entry {
	values := make(map[string][]string)

	for _, attr := range entry.Attributes {
		if len(attributes) == 0 || containsFold(attributes, attr.Name) {
			values[attr.Name] = append([]string(nil), attr.Values...)
		}
	}

	return ldap.NewEntry(entry.DN, values)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}

	return false
}

// response replays a fixed list of entries.
type response struct {
	entries []*ldap.Entry
	next    int
	current *ldap.Entry
	err     error
}

func (r *response) Entry() *ldap.Entry {
	return r.current
}

func (r *response) Referral() string {
	return ""
}

func (r *response) Controls() []ldap.Control {
	return nil
}

func (r *response) Err() error {
	return r.err
}

func (r *response) Next() bool {
	if r.err != nil || r.next >= len(r.entries) {
		r.current = nil
		return false
	}

	r.current = r.entries[r.next]
	r.next++

	return true
}
