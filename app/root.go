// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/logger"
)

var (
	configPath string // Path to the configuration directory
	devMode    bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "go-dir-auth",
	Short: "GoDirAuth authenticates users against LDAP and Active Directory",
	Long: `GoDirAuth is a login service authenticating users against LDAP and Active Directory.
It resolves the nested group membership of a user and keeps the identity in a server side session.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		if cfg, err = config.ReadConfig(configPath); err != nil {
			return err
		}

		if devMode {
			cfg.DevMode = true
		}

		return logger.Init(cfg.Log)
	},
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Directory of main.toml")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Authenticate against the dev.fixture directory")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
