package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/wonkchat/wonk/internal/adapters/http"
	"github.com/wonkchat/wonk/internal/adapters/push"
	"github.com/wonkchat/wonk/internal/attachments"
	"github.com/wonkchat/wonk/internal/auth"
	"github.com/wonkchat/wonk/internal/config"
	"github.com/wonkchat/wonk/internal/gateway"
	"github.com/wonkchat/wonk/internal/registry"
	"github.com/wonkchat/wonk/internal/store"
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
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	rooms := store.NewMemoryRooms()
	users := store.NewMemoryUsers()
	if _, err := rooms.Create("wonk", "Welcome to wonk"); err != nil {
		log.Error().Err(err).Msg("failed to seed starting room")
	}

	members := registry.NewMembership()
	conns := registry.NewConnections()
	presence := registry.NewPresence()
	typing := registry.NewTyping(cfg.TypingTTL)

	gw := gateway.NewService(rooms, users, members, conns, presence, typing)
	authsvc := auth.NewService(cfg.Secret)

	attach, err := attachments.NewStore(cfg.AttachmentsDir, cfg.AttachmentsMaxAge)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open attachment store")
	}
	if _, err := attach.Clean(); err != nil {
		log.Warn().Err(err).Msg("attachment sweep failed")
	}

	api := &router.API{GW: gw, Auth: authsvc, Users: users, Attach: attach}
	pushCtl := push.NewController(gw, cfg)
	r := router.SetupRouter(ctx, cfg, api, pushCtl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("wonk server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	// Push a restart control frame so clients resync once we are back.
	gw.Restart()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
