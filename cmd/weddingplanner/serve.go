package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/weddingplanner/internal/api"
	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/config"
	"github.com/Kerhoff/weddingplanner/internal/handlers"
	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/realtime"
	"github.com/Kerhoff/weddingplanner/internal/repository/postgres"
	"github.com/Kerhoff/weddingplanner/internal/search"
	"github.com/Kerhoff/weddingplanner/internal/service"
	"github.com/Kerhoff/weddingplanner/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the realtime listener and the Telegram bot",
	RunE:  runServe,
}

// newBot builds the optional RSVP bot. It runs before any serve goroutine
// starts, so a rejected token leaves nothing behind. It returns nil when no
// token is configured.
func newBot(cfg *config.Config, svc *service.Service, l *logrus.Logger) (*telegram.Bot, error) {
	if cfg.TelegramToken == "" {
		l.Info("TELEGRAM_TOKEN not set, RSVP notifications disabled")
		return nil, nil
	}

	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.TelegramAPI, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.RegisterCommand("start", "Link this chat to your wedding", handlers.NewStartHandler(svc, l))
	bot.RegisterCommand("help", "Show this help message", handlers.NewHelpHandler(bot, l))
	bot.RegisterCommand("rsvps", "RSVP counts for all households", handlers.NewRSVPsHandler(svc, l))
	bot.RegisterCommand("pending", "Households still to answer", handlers.NewPendingHandler(svc, l))
	svc.SetNotifier(bot)
	return bot, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.db.Close()
	if err := a.cfg.ValidateServe(); err != nil {
		return err
	}

	l := a.logger
	l.Info("Starting wedding planner...")

	m := metrics.New()
	svc := a.service(m)
	engine := search.NewEngine(postgres.NewSearchRepository(a.db.DB), svc.Guests, svc.Profiles, l, m).
		WithLimits(a.cfg.SearchHouseholdLimit, a.cfg.SearchGuestLimit)
	hub := realtime.NewHub(svc, l, m, a.cfg.AutosaveDelay)
	verifier := auth.NewVerifier(a.cfg.JWTSecret)

	bot, err := newBot(a.cfg, svc, l)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// Realtime change feed
	notifications := make(chan realtime.Notification, 64)
	listener := realtime.NewListener(a.cfg.DatabaseURL, l, a.cfg.ListenerMinReconnect, a.cfg.ListenerMaxReconnect)
	g.Go(func() error {
		return listener.Run(ctx, notifications)
	})
	g.Go(func() error {
		hub.Run(ctx, notifications)
		return nil
	})

	if bot != nil {
		g.Go(func() error {
			return bot.Start(ctx)
		})
	}

	// HTTP API and metrics
	apiServer := api.NewServer(svc, engine, hub, verifier, l, a.cfg.PublicBaseURL)
	apiServer.SetHealthCheck(a.db.Ping)
	servers := []*http.Server{
		{Addr: ":" + a.cfg.Port, Handler: apiServer.Handler(), ReadHeaderTimeout: 10 * time.Second},
		{Addr: ":" + a.cfg.PrometheusPort, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second},
	}
	for _, srv := range servers {
		g.Go(func() error {
			l.Infof("HTTP server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		l.Info("Shutting down HTTP servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				l.WithError(err).Warn("HTTP server did not shut down cleanly")
			}
		}
		return nil
	})

	l.Info("Wedding planner started successfully")

	err = g.Wait()
	l.Info("Wedding planner stopped")
	return err
}
