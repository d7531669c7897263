package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoDirAuth/GoDirAuth/internal/db"
	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/audit"
	"github.com/GoDirAuth/GoDirAuth/internal/db/controller/user"
	"github.com/GoDirAuth/GoDirAuth/internal/db/models"
)

func init() { //nolint: gochecknoinits
	auditCmd.Flags().StringVarP(&auditUser, "user", "u", "", "Only show the given account")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of attempts to print")

	rootCmd.AddCommand(auditCmd)
}

type auditReport struct {
	User     *models.User          `json:"user,omitempty"`
	Attempts []models.LoginAttempt `json:"attempts"`
}

var (
	auditUser  string
	auditLimit int

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Print the latest login attempts as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}

			if sqlDB, errDB := gdb.DB(); errDB == nil {
				defer func() { _ = sqlDB.Close() }()
			}

			gdb = gdb.WithContext(cmd.Context())

			var report auditReport

			if auditUser == "" {
				report.Attempts, err = audit.Recent(gdb, auditLimit)
			} else {
				if report.User, err = user.Get(gdb, auditUser); err != nil {
					return err
				}

				report.Attempts, err = audit.RecentByUser(gdb, auditUser, auditLimit)
			}

			if err != nil {
				return err
			}

			if report.Attempts == nil {
				report.Attempts = []models.LoginAttempt{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(report)
		},
	}
)
