package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Francodev23/joyas-pwa/internal/cachestore"
)

// Install opens the cache store for the current version and eagerly fetches
// and stores the shell-asset manifest. Any asset that cannot be fetched and
// stored fails the installation; the caller restarts and retries.
func (g *Gateway) Install(ctx context.Context) error {
	store, err := cachestore.Open(g.cfg.CacheDir, g.cfg.CacheVersion)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("install: %w", err)
	}

	for _, asset := range g.cfg.StaticAssets {
		if err := g.precache(ctx, store, asset); err != nil {
			_ = store.Close()
			return fmt.Errorf("install: %w", err)
		}
	}

	g.cache = store
	g.log.Info().
		Str("version", g.cfg.CacheVersion).
		Int("assets", len(g.cfg.StaticAssets)).
		Msg("installed")
	return nil
}

func (g *Gateway) precache(ctx context.Context, store *cachestore.Store, asset string) error {
	target := g.cfg.Upstream.ResolveReference(&url.URL{Path: asset})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("precache %s: %w", asset, err)
	}
	// Bypass any intermediate cache so a fresh deploy is picked up.
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := g.transport.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("precache %s: %w", asset, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("precache %s: status %d", asset, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("precache %s: %w", asset, err)
	}
	err = store.Put(ctx, cachestore.Entry{
		Key:    cachestore.Key(http.MethodGet, asset),
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("precache %s: %w", asset, err)
	}
	return nil
}

// Activate garbage-collects every cache store matching the naming convention
// but not the current version. Prior generations are deleted whole.
func (g *Gateway) Activate(ctx context.Context) error {
	names, err := cachestore.ListStores(g.cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	current := cachestore.StoreName(g.cfg.CacheVersion)
	for _, name := range names {
		if name == current {
			continue
		}
		g.log.Info().Str("store", name).Msg("deleting stale cache store")
		if err := cachestore.DeleteStore(g.cfg.CacheDir, name); err != nil {
			return fmt.Errorf("activate: %w", err)
		}
	}
	g.log.Info().Str("version", g.cfg.CacheVersion).Msg("activated")
	return nil
}

// Close releases the cache store.
func (g *Gateway) Close() error {
	if g.cache == nil {
		return nil
	}
	return g.cache.Close()
}
