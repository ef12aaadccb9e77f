package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Francodev23/joyas-pwa/internal/queue"
	"github.com/Francodev23/joyas-pwa/internal/syncer"
)

type jsonResponse map[string]any

type errorResponse struct {
	Error string `json:"error"`
}

// AdminHandler is the inspection surface the app uses beside the intercepted
// traffic: enqueue writes while offline, list what is pending, trigger a
// manual drain, reset the queue, and scrape metrics.
func (g *Gateway) AdminHandler(store queue.Store, coord *syncer.Coordinator) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jsonResponse{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.Post("/queue", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Type    queue.OperationType `json:"type"`
			Payload json.RawMessage     `json:"payload"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if !payload.Type.Valid() {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown operation type"})
			return
		}
		op, err := store.Enqueue(r.Context(), payload.Type, payload.Payload)
		if err != nil {
			g.log.Error().Err(err).Msg("enqueue failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		// The store is the authority on depth; an increment would drift
		// from operations queued outside this handler.
		if depth, err := store.Count(r.Context()); err == nil {
			g.metrics.QueueDepth.Set(float64(depth))
		}
		writeJSON(w, http.StatusCreated, op)
	})

	router.Get("/queue", func(w http.ResponseWriter, r *http.Request) {
		ops, err := store.ListAll(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, jsonResponse{
			"operations": ops,
			"count":      len(ops),
		})
	})

	router.Delete("/queue", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		g.metrics.QueueDepth.Set(0)
		w.WriteHeader(http.StatusNoContent)
	})

	router.Post("/sync", func(w http.ResponseWriter, r *http.Request) {
		if err := coord.Sync(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		pending, err := store.Count(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, jsonResponse{
			"status":  "ok",
			"pending": pending,
		})
	})

	router.Handle("/metrics", g.metrics.Handler())

	return router
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(payload)
}
