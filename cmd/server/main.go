package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Francodev23/joyas-pwa/internal/auth"
	"github.com/Francodev23/joyas-pwa/internal/config"
	"github.com/Francodev23/joyas-pwa/internal/httpapi"
	"github.com/Francodev23/joyas-pwa/internal/ledger"
	"github.com/Francodev23/joyas-pwa/internal/logging"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		fallback := logging.New("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel)

	store, err := ledger.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open ledger store")
	}
	defer store.Close()
	if err := store.Init(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("init ledger store")
	}

	manager, err := auth.NewManager(auth.Config{Secret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL})
	if err != nil {
		logger.Fatal().Err(err).Msg("init auth")
	}

	api := httpapi.NewServer(store, manager, logger)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("ledger api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
