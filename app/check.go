package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/daemon"
)

func init() { //nolint: gochecknoinits
	checkCmd.Flags().BoolVar(&dumpConfig, "dump", false, "Print the effective configuration, secrets redacted")

	rootCmd.AddCommand(checkCmd)
}

var (
	dumpConfig bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and connect to the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dumpConfig {
				out, err := config.DumpConfig(cfg)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			}

			authenticator, err := daemon.NewAuthenticator(&cfg, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), authenticator.Config().Timeout)
			defer cancel()

			if err = authenticator.CheckConnection(ctx); err != nil {
				return err
			}

			log.Info().Str("url", authenticator.Config().URL).Msg("directory reachable")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "OK")

			return nil
		},
	}
)
