package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"realtime-hub/internal/auth"
	"realtime-hub/internal/config"
	"realtime-hub/internal/hub"
	"realtime-hub/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	tokenCfg := auth.TokenConfig{
		Secret: cfg.MasterSecret,
		Issuer: cfg.TokenIssuer,
	}
	if cfg.TokenPublicKey != "" {
		tokenCfg.PublicKey, err = auth.ParsePublicKey(cfg.TokenPublicKey)
		if err != nil {
			log.Fatal().Err(err).Msg("TOKEN_PUBLIC_KEY")
		}
	}
	verifier, err := auth.NewVerifier(tokenCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token verifier")
	}

	h := hub.New(log.Logger)
	if err := h.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start hub")
	}

	router := server.NewRouter(ctx, server.Deps{
		Hub:      h,
		Verifier: verifier,
		Config:   cfg,
		Logger:   log.Logger,
	})
	if err := server.Run(ctx, cfg, router, log.Logger); err != nil {
		log.Error().Err(err).Msg("server error")
	}

	// Stop closes the hijacked sockets that http.Server.Shutdown leaves open.
	if err := h.Stop(); err != nil && !errors.Is(err, hub.ErrHubNotRunning) {
		log.Error().Err(err).Msg("hub stop")
	}
	log.Info().Msg("server exited")
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
