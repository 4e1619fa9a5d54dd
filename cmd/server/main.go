package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/cloudmeet/backend/internal/adapters/http"
	wssignal "github.com/cloudmeet/backend/internal/adapters/signal"
	"github.com/cloudmeet/backend/internal/app"
	"github.com/cloudmeet/backend/internal/config"
	"github.com/cloudmeet/backend/internal/core"
	"github.com/cloudmeet/backend/internal/domain"
	"github.com/cloudmeet/backend/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.DBPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open meeting store")
	}
	defer db.Close()
	meetings := store.NewMeetings(db)

	sessions := app.NewSessions()
	rooms := core.NewRegistry()
	for _, id := range cfg.ProtectedMeetings {
		rooms.GetOrCreate(domain.MeetingID(id)).MarkProtected()
	}

	coord := app.NewCoordinator(sessions, rooms, meetings)
	sweeper := app.NewSweeper(rooms, meetings, cfg.SweepInterval, cfg.IdleTimeout)
	go sweeper.Run(ctx)

	handlers := router.NewMeetingHandlers(meetings)
	sig := wssignal.NewController(coord, cfg)

	r := router.SetupRouter(ctx, cfg, handlers, sig)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("CloudMeet server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
