// Package gateway intercepts every request the app issues and routes it by
// one of three strategies: passthrough-no-cache for auth traffic,
// network-first for dynamic API reads, cache-first for static assets. It owns
// the versioned static cache; the app never touches that store directly.
package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Francodev23/joyas-pwa/internal/cachestore"
	"github.com/Francodev23/joyas-pwa/internal/metrics"
)

// DefaultStaticAssets is the app-shell manifest cached eagerly at install.
var DefaultStaticAssets = []string{
	"/",
	"/index.html",
	"/manifest.webmanifest",
	"/icons/icon-192.png",
	"/icons/icon-512.png",
	"/icons/apple-touch-icon.png",
}

// DefaultAuthPaths are the endpoints that must never be cached or served from
// cache. Matching is by substring, like the worker it replaces.
var DefaultAuthPaths = []string{
	"/api/auth/login",
	"/auth/login",
	"/api/auth/register",
	"/auth/register",
}

type Config struct {
	// Upstream is the base URL of the remote API serving both /api and the
	// static app shell.
	Upstream *url.URL

	CacheDir     string
	CacheVersion string

	// StaticAssets, AuthPaths, APIPrefix and EntryDocument default to the
	// app conventions when empty.
	StaticAssets  []string
	AuthPaths     []string
	APIPrefix     string
	EntryDocument string
}

func (c *Config) applyDefaults() {
	if len(c.StaticAssets) == 0 {
		c.StaticAssets = DefaultStaticAssets
	}
	if len(c.AuthPaths) == 0 {
		c.AuthPaths = DefaultAuthPaths
	}
	if c.APIPrefix == "" {
		c.APIPrefix = "/api/"
	}
	if c.EntryDocument == "" {
		c.EntryDocument = "/index.html"
	}
}

type Gateway struct {
	cfg       Config
	transport http.RoundTripper
	cache     *cachestore.Store
	log       zerolog.Logger
	metrics   *metrics.Collector
}

func New(cfg Config, transport http.RoundTripper, logger zerolog.Logger, collector *metrics.Collector) *Gateway {
	cfg.applyDefaults()
	if transport == nil {
		transport = http.DefaultTransport
	}
	if collector == nil {
		collector = metrics.New()
	}
	return &Gateway{
		cfg:       cfg,
		transport: transport,
		log:       logger.With().Str("component", "gateway").Logger(),
		metrics:   collector,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Proxy-form requests for other schemes are tunneled untouched, outside
	// any strategy.
	if r.URL.Scheme != "" && r.URL.Scheme != "http" && r.URL.Scheme != "https" {
		g.passthroughRaw(w, r)
		return
	}

	// Writes are never cached or served from cache.
	if r.Method != http.MethodGet {
		g.networkOnly(w, r)
		return
	}

	if strings.HasPrefix(r.URL.Path, g.cfg.APIPrefix) {
		if g.isAuthPath(r.URL.Path) {
			g.passthroughNoCache(w, r)
			return
		}
		g.networkFirst(w, r)
		return
	}

	g.cacheFirst(w, r)
}

func (g *Gateway) isAuthPath(path string) bool {
	for _, auth := range g.cfg.AuthPaths {
		if strings.Contains(path, auth) {
			return true
		}
	}
	return false
}

// passthroughRaw forwards a non-http(s) target to the transport with no
// strategy applied at all.
func (g *Gateway) passthroughRaw(w http.ResponseWriter, r *http.Request) {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	resp, err := g.transport.RoundTrip(out)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	copyResponse(w, resp)
}

// networkOnly forwards a write straight to the network. A transport failure
// surfaces as a plain bad-gateway, exactly as an unintercepted request would
// fail; the app's offline queue is the recovery path for writes.
func (g *Gateway) networkOnly(w http.ResponseWriter, r *http.Request) {
	g.metrics.Requests.WithLabelValues("network").Inc()
	resp, err := g.forward(r)
	if err != nil {
		g.log.Warn().Str("path", r.URL.Path).Err(err).Msg("write passthrough failed")
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	copyResponse(w, resp)
}

// passthroughNoCache always attempts the network and never reads or writes
// any cache. On transport failure it synthesizes a structured offline
// response instead of hanging or leaking a proxy error.
func (g *Gateway) passthroughNoCache(w http.ResponseWriter, r *http.Request) {
	g.metrics.Requests.WithLabelValues("passthrough").Inc()
	resp, err := g.forward(r)
	if err != nil {
		g.writeOfflineJSON(w)
		return
	}
	defer resp.Body.Close()
	copyResponse(w, resp)
}

// networkFirst returns the network response verbatim, success and error
// statuses alike; only a transport failure is treated as failure. Responses
// are never written to the static cache, so stale business data is never
// served.
func (g *Gateway) networkFirst(w http.ResponseWriter, r *http.Request) {
	g.metrics.Requests.WithLabelValues("network_first").Inc()
	resp, err := g.forward(r)
	if err != nil {
		g.writeOfflineJSON(w)
		return
	}
	defer resp.Body.Close()
	copyResponse(w, resp)
}

// cacheFirst serves static assets from the versioned cache, falling back to
// the network and populating the cache best-effort on success.
func (g *Gateway) cacheFirst(w http.ResponseWriter, r *http.Request) {
	g.metrics.Requests.WithLabelValues("cache_first").Inc()
	ctx := r.Context()
	key := cachestore.Key(r.Method, r.URL.RequestURI())

	if g.cache != nil {
		entry, ok, err := g.cache.Match(ctx, key)
		if err != nil {
			g.log.Warn().Str("key", key).Err(err).Msg("cache lookup failed")
		}
		if ok {
			g.metrics.CacheHits.Inc()
			writeEntry(w, entry)
			return
		}
	}
	g.metrics.CacheMisses.Inc()

	resp, err := g.forward(r)
	if err == nil {
		defer resp.Body.Close()
		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			if g.cache != nil && resp.StatusCode >= 200 && resp.StatusCode <= 299 {
				// Best-effort write-back: a storage fault must not
				// fail the response already obtained.
				putErr := g.cache.Put(ctx, cachestore.Entry{
					Key:    key,
					Status: resp.StatusCode,
					Header: resp.Header.Clone(),
					Body:   body,
				})
				if putErr != nil {
					g.log.Warn().Str("key", key).Err(putErr).Msg("cache write-back failed")
				}
			}
			copyHeader(w.Header(), resp.Header)
			w.WriteHeader(resp.StatusCode)
			_, _ = w.Write(body)
			return
		}
		err = readErr
	}

	g.log.Debug().Str("path", r.URL.Path).Err(err).Msg("static fetch failed, trying fallbacks")
	if g.cache != nil && isNavigation(r) {
		entry, ok, matchErr := g.cache.Match(ctx, cachestore.Key(http.MethodGet, g.cfg.EntryDocument))
		if matchErr == nil && ok {
			writeEntry(w, entry)
			return
		}
	}
	g.metrics.OfflineResponses.Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("offline"))
}

// forward re-issues the request against the upstream, preserving path, query,
// headers and body.
func (g *Gateway) forward(r *http.Request) (*http.Response, error) {
	target := g.cfg.Upstream.ResolveReference(&url.URL{Path: r.URL.Path, RawQuery: r.URL.RawQuery})
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	copyHeader(out.Header, r.Header)
	return g.transport.RoundTrip(out)
}

func (g *Gateway) writeOfflineJSON(w http.ResponseWriter) {
	g.metrics.OfflineResponses.Inc()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"error":"no connection","message":"could not reach the server","offline":true}`))
}

// isNavigation approximates a page-navigation request from its fetch metadata
// and Accept header.
func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeEntry(w http.ResponseWriter, entry cachestore.Entry) {
	copyHeader(w.Header(), entry.Header)
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}

func copyResponse(w http.ResponseWriter, resp *http.Response) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
