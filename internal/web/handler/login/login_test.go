package login

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/ldapmock"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
	"github.com/GoDirAuth/GoDirAuth/internal/web/session"
)

// noOpViews is a minimal Fiber Views engine used for tests.
// It writes the "error" field from the provided fiber.Map (if any)
// so tests can assert error messages rendered by handlers.
type noOpViews struct{}

func (noOpViews) Load() error { return nil }

func (noOpViews) Render(w io.Writer, name string, data any, _ ...string) error {
	if m, ok := data.(fiber.Map); ok {
		if v, exists := m["error"]; exists && v != nil {
			_, _ = io.WriteString(w, v.(string))
			return nil
		}
	}
	// write template name to have some content
	_, _ = io.WriteString(w, name)

	return nil
}

func newTestDeps(t *testing.T) handler.Dependencies {
	t.Helper()

	authenticator, err := auth.NewAuthenticator(auth.LDAPConfig{URL: "ldap://dc.example.com"},
		auth.WithDialer(ldapmock.New(ldapmock.Fixture{
			Users: []ldapmock.User{{Name: "test-user", Password: "password"}},
		})))
	require.NoError(t, err)

	storage, err := session.NewStorage(config.Session{}, nil)
	require.NoError(t, err)

	sessions, err := session.NewManager(storage, time.Minute)
	require.NoError(t, err)

	t.Cleanup(func() { _ = sessions.Close() })

	return handler.Dependencies{
		Config: &config.Config{
			Title: "GoDirAuth",
			Login: config.Login{SuccessURL: "/welcome"},
		},
		Sessions:      sessions,
		Authenticator: authenticator,
	}
}

func newTestApp(t *testing.T, deps handler.Dependencies, user *session.User) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{Views: noOpViews{}, ErrorHandler: ldapauth.ErrorHandler})

	if user != nil {
		app.Use(func(c fiber.Ctx) error {
			c.Locals(ldapauth.LocalsUser, user)
			return c.Next()
		})
	}

	require.NoError(t, new(Service).Init(app, deps))

	return app
}

func TestInit(t *testing.T) {
	deps := newTestDeps(t)

	require.ErrorIs(t, new(Service).Init(nil, deps), handler.ErrMissingDependency)

	withoutAuthenticator := deps
	withoutAuthenticator.Authenticator = nil
	require.ErrorIs(t, new(Service).Init(fiber.New(), withoutAuthenticator), handler.ErrMissingDependency)

	withoutSessions := deps
	withoutSessions.Sessions = nil
	require.ErrorIs(t, new(Service).Init(fiber.New(), withoutSessions), ErrSessionsMissing)
}

func TestGet(t *testing.T) {
	testCases := []struct {
		name         string
		target       string
		user         *session.User
		wantStatus   int
		wantBody     string
		wantLocation string
	}{
		{name: "form", target: Path, wantStatus: http.StatusOK, wantBody: TemplateName},
		{
			name:       "form after failure",
			target:     Path + "?error=invalidCredentials",
			wantStatus: http.StatusOK,
			wantBody:   "Invalid username or password",
		},
		{
			name:         "authenticated",
			target:       Path,
			user:         &session.User{Username: "test-user"},
			wantStatus:   http.StatusFound,
			wantLocation: "/welcome",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(t, newTestDeps(t), tc.user)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.target, nil))
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantLocation, resp.Header.Get(fiber.HeaderLocation))

			if tc.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tc.wantBody, string(body))
			}
		})
	}
}
