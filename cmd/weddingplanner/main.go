package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kerhoff/weddingplanner/internal/config"
	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/repository/postgres"
	"github.com/Kerhoff/weddingplanner/internal/service"
	"github.com/Kerhoff/weddingplanner/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "weddingplanner",
	Short: "Wedding planner backend",
	Long: `Serves the wedding planner API: households and guests with public RSVP
links, guest search, planner settings with live sync, and the optional
Telegram RSVP bot.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateLegacyCmd)
}

// app is the state shared by every command
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *config.Database
}

// setup loads configuration, connects to the database and applies schema
// migrations.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := config.NewDatabase(ctx, cfg.DatabaseURL, cfg.Pool, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &app{cfg: cfg, logger: l, db: db}, nil
}

func (a *app) service(m *metrics.Metrics) *service.Service {
	return service.New(a.logger, m,
		postgres.NewHouseholdRepository(a.db.DB),
		postgres.NewGuestRepository(a.db.DB),
		postgres.NewProfileRepository(a.db.DB),
		postgres.NewSettingsRepository(a.db.DB),
	)
}
