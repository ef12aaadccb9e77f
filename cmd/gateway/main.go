package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Francodev23/joyas-pwa/internal/apiclient"
	"github.com/Francodev23/joyas-pwa/internal/config"
	"github.com/Francodev23/joyas-pwa/internal/gateway"
	"github.com/Francodev23/joyas-pwa/internal/logging"
	"github.com/Francodev23/joyas-pwa/internal/metrics"
	"github.com/Francodev23/joyas-pwa/internal/queue"
	"github.com/Francodev23/joyas-pwa/internal/syncer"
)

func main() {
	cfg, err := config.LoadGateway()
	if err != nil {
		fallback := logging.New("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.LogLevel)

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		logger.Fatal().Str("url", cfg.UpstreamURL).Err(err).Msg("parse upstream url")
	}

	store, err := queue.OpenSQLite(cfg.QueuePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open operation queue")
	}
	defer store.Close()
	if err := store.Init(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("init operation queue")
	}

	collector := metrics.New()

	var token apiclient.TokenFunc
	if cfg.APIToken != "" {
		token = func(ctx context.Context) (string, error) { return cfg.APIToken, nil }
	}
	client := apiclient.New(cfg.UpstreamURL, &http.Client{Timeout: 30 * time.Second}, token)

	watcher := syncer.NewWatcher(client.Ping, cfg.ProbeInterval, logger)
	coordinator := syncer.New(store, client, watcher.Online, logger, collector)

	gw := gateway.New(gateway.Config{
		Upstream:     upstream,
		CacheDir:     cfg.CacheDir,
		CacheVersion: cfg.CacheVersion,
	}, nil, logger, collector)

	// A failed install leaves no active worker; the supervisor restart is
	// the retry loop.
	if err := gw.Install(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("install failed")
	}
	defer gw.Close()
	if err := gw.Activate(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("activate failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)
	go coordinator.Run(ctx, watcher.Subscribe())

	intercept := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw,
		ReadHeaderTimeout: 5 * time.Second,
	}
	admin := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           gw.AdminHandler(store, coordinator),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("gateway listening")
		if err := intercept.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("gateway server error")
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.AdminAddr).Msg("admin api listening")
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("admin server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = admin.Shutdown(shutdownCtx)
	if err := intercept.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
