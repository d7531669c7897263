package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoDirAuth/GoDirAuth/internal/auth"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name         string
		prefix       string
		username     string
		wantBindName string
		wantBareName string
	}{
		{name: "no prefix", username: "Test-User", wantBindName: "test-user", wantBareName: "test-user"},
		{name: "prefix added", prefix: `domain\`, username: "test-user", wantBindName: `domain\test-user`, wantBareName: "test-user"},
		{name: "prefix kept", prefix: `domain\`, username: `domain\test-user`, wantBindName: `domain\test-user`, wantBareName: "test-user"},
		{name: "prefix case folded", prefix: `DOMAIN\`, username: `Domain\Test-User`, wantBindName: `domain\test-user`, wantBareName: "test-user"},
		{name: "empty username", prefix: `domain\`, username: "", wantBindName: `domain\`, wantBareName: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := auth.NewUsernameNormalizer(tc.prefix)

			bindName, bareName := n.Normalize(tc.username)
			assert.Equal(t, tc.wantBindName, bindName)
			assert.Equal(t, tc.wantBareName, bareName)

			again, _ := n.Normalize(bindName)
			assert.Equal(t, bindName, again, "normalizing a bind name must not change it")
		})
	}
}
