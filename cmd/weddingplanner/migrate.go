package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/metrics"
)

var legacyUser string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		return a.db.Close()
	},
}

var migrateLegacyCmd = &cobra.Command{
	Use:   "migrate-legacy",
	Short: "Move one owner's legacy guest list into households",
	Long: `Converts the guest list embedded in an owner's saved settings into
households and guests, then clears it from the settings. Groups after a
failure are skipped and the list is kept, so the command can be re-run.`,
	RunE: runMigrateLegacy,
}

func init() {
	migrateLegacyCmd.Flags().StringVar(&legacyUser, "user", "", "Owner user id (UUID)")
	_ = migrateLegacyCmd.MarkFlagRequired("user")
}

func runMigrateLegacy(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(legacyUser)
	if err != nil {
		return fmt.Errorf("invalid --user: %w", err)
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.db.Close()

	svc := a.service(metrics.New())
	report, migrateErr := svc.MigrateLegacySettings(auth.WithUser(cmd.Context(), userID))

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return migrateErr
}
