package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Francodev23/joyas-pwa/internal/auth"
	"github.com/Francodev23/joyas-pwa/internal/ledger"
)

type jsonResponse map[string]any

type errorResponse struct {
	Error string `json:"error"`
}

type paginatedResponse struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type Server struct {
	store ledger.Store
	auth  *auth.Manager
	log   zerolog.Logger
}

func NewServer(store ledger.Store, manager *auth.Manager, logger zerolog.Logger) *Server {
	return &Server{
		store: store,
		auth:  manager,
		log:   logger.With().Str("component", "httpapi").Logger(),
	}
}

// Router mounts the ledger API under /api. Health and auth endpoints are
// public; everything else requires a bearer token.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Route("/api", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/register", s.handleRegister)

		api.Group(func(protected chi.Router) {
			protected.Use(s.auth.Middleware)

			protected.Post("/customers", s.handleCreateCustomer)
			protected.Get("/customers", s.handleListCustomers)
			protected.Get("/customers/{id}", s.handleGetCustomer)

			protected.Post("/sales", s.handleCreateSale)
			protected.Get("/sales", s.handleListSales)
			protected.Get("/sales/{id}", s.handleGetSale)

			protected.Post("/payments", s.handleCreatePayment)
			protected.Get("/payments", s.handleListPayments)

			protected.Get("/dashboard/kpis", s.handleKPIs)
		})
	})

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := s.store.GetUserByUsername(r.Context(), payload.Username)
	if errors.Is(err, ledger.ErrNotFound) || (err == nil && !s.auth.CheckPassword(user.PasswordHash, payload.Password)) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid username or password"})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("login lookup failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	token, err := s.auth.IssueToken(user.ID, user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Username == "" || len(payload.Password) < 6 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and a password of at least 6 characters are required"})
		return
	}
	if _, err := s.store.GetUserByUsername(r.Context(), payload.Username); err == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username already exists"})
		return
	}
	hash, err := s.auth.HashPassword(payload.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	user, err := s.store.CreateUser(r.Context(), payload.Username, hash)
	if err != nil {
		s.log.Error().Str("username", payload.Username).Err(err).Msg("register failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var payload ledger.CustomerCreate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := s.store.CreateCustomer(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	customers, total, err := s.store.ListCustomers(r.Context(), page, pageSize, r.URL.Query().Get("search"))
	if err != nil {
		s.log.Error().Err(err).Msg("list customers failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, paginatedResponse{Items: customers, Total: total, Page: page, PageSize: pageSize})
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := s.store.GetCustomer(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "customer not found"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var payload ledger.SaleCreate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := s.store.CreateSale(r.Context(), payload)
	if errors.Is(err, ledger.ErrNotFound) {
		// Stale reference, typically a sale queued offline against a
		// customer that no longer exists.
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	customerID, _ := strconv.ParseInt(r.URL.Query().Get("customer_id"), 10, 64)
	sales, total, err := s.store.ListSales(r.Context(), page, pageSize, customerID)
	if err != nil {
		s.log.Error().Err(err).Msg("list sales failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, paginatedResponse{Items: sales, Total: total, Page: page, PageSize: pageSize})
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := s.store.GetSale(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "sale not found"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var payload ledger.PaymentCreate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := s.store.CreatePayment(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	saleID, _ := strconv.ParseInt(r.URL.Query().Get("sale_id"), 10, 64)
	payments, total, err := s.store.ListPayments(r.Context(), page, pageSize, saleID)
	if err != nil {
		s.log.Error().Err(err).Msg("list payments failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, paginatedResponse{Items: payments, Total: total, Page: page, PageSize: pageSize})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := s.store.KPIs(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("kpis failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, kpis)
}

func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("id must be a positive integer")
	}
	return id, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
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
