package app

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/user"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	fixture, err := filepath.Abs("../etc/dev-directory.json")
	require.NoError(t, err)
	t.Setenv(config.EnvPrefix+"_DEV_FIXTURE", fixture)

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", "../etc/", "--dev"}, args...))

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		dumpConfig = false
	})

	err = rootCmd.Execute()

	return out.String(), err
}

func TestAuthenticateCommand(t *testing.T) {
	t.Run("password from env", func(t *testing.T) {
		t.Setenv(PasswordEnv, "password")

		out, err := execute(t, "", "authenticate", "--username", "test-user")
		require.NoError(t, err)

		var identity auth.Identity
		require.NoError(t, json.Unmarshal([]byte(out), &identity))
		assert.Equal(t, "test-user", identity.Username)
		assert.Len(t, identity.Groups, 10)
	})

	t.Run("password from stdin", func(t *testing.T) {
		out, err := execute(t, "guest\n", "authenticate", "-u", "guest")
		require.NoError(t, err)
		assert.Contains(t, out, `"username": "guest"`)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		_, err := execute(t, "wrong\n", "authenticate", "-u", "guest")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty stdin", func(t *testing.T) {
		_, err := execute(t, "", "authenticate", "-u", "guest")
		require.Error(t, err)
	})
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "", "check", "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "UsersDN")
	assert.NotContains(t, out, "change-me")
}

func TestAuditCommand(t *testing.T) {
	t.Setenv(config.EnvPrefix+"_DB_NAME", ":memory:")

	out, err := execute(t, "", "audit", "--limit", "5")
	require.NoError(t, err)
	assert.JSONEq(t, `{"attempts": []}`, out)

	t.Cleanup(func() { auditUser = "" })

	_, err = execute(t, "", "audit", "--user", "guest")
	require.ErrorIs(t, err, user.ErrUserNotFound)
}
