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

	router "github.com/vkuzmin/chatrelay/internal/adapters/http"
	wsignal "github.com/vkuzmin/chatrelay/internal/adapters/signal"
	"github.com/vkuzmin/chatrelay/internal/app"
	"github.com/vkuzmin/chatrelay/internal/config"
	"github.com/vkuzmin/chatrelay/internal/domain"
	"github.com/vkuzmin/chatrelay/internal/store"
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

	registry := app.NewRegistry()
	relay := &app.Relay{
		Registry: registry,
		Calls:    app.NewCallTracker(),
	}

	ctl := wsignal.NewController(relay)
	ctl.ReadLimit = cfg.ReadLimit
	ctl.SendBuffer = cfg.SendBuffer
	ctl.PingPeriod = cfg.PingPeriod

	idp := store.NewTokenIdentity()
	for token, u := range cfg.AuthTokens {
		idp.Seed(token, domain.User{ID: domain.UserID(u.ID), Name: u.Name})
	}

	files, err := store.NewDiskFileStore(cfg.UploadDir, "/uploads")
	if err != nil {
		log.Fatal().Err(err).Msg("file store init")
	}

	api := &router.API{
		Chats:    store.NewMemoryChatStore(),
		Identity: idp,
		Files:    files,
		Relay:    relay,
	}

	r := router.SetupRouter(ctx, cfg, api, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chatrelay server started")
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
