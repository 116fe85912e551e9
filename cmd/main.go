package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/logger"

	"raffle/internal/config"
	"raffle/internal/handlers"
	"raffle/internal/models"
	"raffle/internal/notify"
	"raffle/internal/services"
	"raffle/internal/store"
	"raffle/internal/tickets"
)

func main() {
	defer logger.Init("raffle", true, false, io.Discard).Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	ctx := context.Background()

	// 1. Open the winners store
	winners, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to open winners store: %v", err)
	}
	defer winners.Close()

	// 2. Load the roster every session starts from
	var roster []models.Participant
	if cfg.RosterPath != "" {
		if roster, err = services.LoadRosterFile(cfg.RosterPath); err != nil {
			logger.Fatalf("Failed to load roster: %v", err)
		}
		logger.Infof("Loaded %d participants from %s", len(roster), cfg.RosterPath)
	} else {
		logger.Warning("ROSTER_PATH not set, sessions start with an empty roster")
	}

	strategy, err := tickets.ParseStrategy(cfg.Allocation)
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	// 3. Initialize the Raffle Service
	raffleService := services.NewRaffleService(winners, services.Options{
		Strategy:   strategy,
		Source:     randomSource(cfg),
		Notifier:   newNotifier(cfg),
		Roster:     roster,
		SessionTTL: cfg.SessionTTL,
	})

	// 4. Initialize the HTTP Handler and the Gin router
	httpHandler := handlers.NewHTTPHandler(raffleService)
	r := gin.Default()
	httpHandler.RegisterPublicRoutes(r)

	tenantRoutes := r.Group("/")
	tenantRoutes.Use(httpHandler.TenantMiddleware())
	httpHandler.RegisterTenantRoutes(tenantRoutes)

	// 5. Start the background janitor to clean up inactive sessions
	sched, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.JanitorInterval),
		gocron.NewTask(raffleService.CleanUpInactiveSessions),
	)
	if err != nil {
		logger.Fatalf("Failed to schedule session cleanup: %v", err)
	}
	sched.Start()

	// 6. Run the server until SIGINT or SIGTERM
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Infof("Server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		logger.Errorf("Scheduler shutdown failed: %v", err)
	}
}

// openStore picks Postgres, then libSQL, then the in-memory store.
func openStore(ctx context.Context, cfg config.Config) (store.WinnerStore, error) {
	switch {
	case cfg.DatabaseURL != "":
		logger.Info("Storing winners in PostgreSQL")
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	case cfg.TursoURL != "":
		logger.Info("Storing winners in libSQL")
		return store.NewLibSQL(ctx, cfg.TursoURL, cfg.TursoAuthToken)
	}
	logger.Warning("No database configured, winners are kept in memory only")
	return store.NewMemory(), nil
}

func randomSource(cfg config.Config) tickets.Source {
	switch {
	case cfg.RNG == "crypto":
		return tickets.CryptoSource{}
	case cfg.Seed != 0:
		logger.Warningf("Using fixed seed %d, draws are reproducible", cfg.Seed)
		return tickets.NewSeededSource(cfg.Seed)
	}
	return tickets.Default
}

func newNotifier(cfg config.Config) notify.Notifier {
	if cfg.TelegramToken == "" {
		return notify.Nop{}
	}
	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		logger.Warningf("Telegram notifications disabled: %v", err)
		return notify.Nop{}
	}
	return tg
}
