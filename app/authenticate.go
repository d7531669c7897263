package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/daemon"
)

// PasswordEnv holds the password of the authenticate command. Without it the password is read from stdin.
const PasswordEnv = config.EnvPrefix + "_PASSWORD"

// ErrInvalidCredentials is returned by the authenticate command for rejected credentials.
var ErrInvalidCredentials = errors.New("invalid credentials")

func init() { //nolint: gochecknoinits
	authenticateCmd.Flags().StringVarP(&username, "username", "u", "", "Account to authenticate")
	_ = authenticateCmd.MarkFlagRequired("username")

	rootCmd.AddCommand(authenticateCmd)
}

var (
	username string

	authenticateCmd = &cobra.Command{
		Use:   "authenticate",
		Short: "Authenticate one user and print the identity as JSON",
		Long: `Authenticate one user and print the identity as JSON.
The password is taken from ` + PasswordEnv + ` or read from the first line of stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			authenticator, err := daemon.NewAuthenticator(&cfg, nil)
			if err != nil {
				return err
			}

			identity, ok, err := authenticator.Authenticate(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			if !ok {
				return ErrInvalidCredentials
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(identity)
		},
	}
)

func readPassword(cmd *cobra.Command) (string, error) {
	if password, ok := os.LookupEnv(PasswordEnv); ok {
		return password, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
