package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Francodev23/joyas-pwa/internal/auth"
	"github.com/Francodev23/joyas-pwa/internal/ledger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := ledger.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	manager, err := auth.NewManager(auth.Config{Secret: "0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)

	server := httptest.NewServer(NewServer(store, manager, zerolog.Nop()).Router())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func registerAndLogin(t *testing.T, baseURL string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/auth/register", "", map[string]string{
		"username": "maria",
		"password": "s3cret99",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, baseURL+"/api/auth/login", "", map[string]string{
		"username": "maria",
		"password": "s3cret99",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, resp, &payload)
	require.Equal(t, "bearer", payload.TokenType)
	require.NotEmpty(t, payload.AccessToken)
	return payload.AccessToken
}

func TestHealthIsPublic(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := newTestServer(t)
	registerAndLogin(t, server.URL)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"username": "maria",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	server := newTestServer(t)
	registerAndLogin(t, server.URL)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", map[string]string{
		"username": "maria",
		"password": "another99",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/customers", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSaleAndPaymentFlow(t *testing.T) {
	server := newTestServer(t)
	token := registerAndLogin(t, server.URL)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/customers", token, map[string]any{
		"full_name": "Ana Torres",
		"phone":     "555-0101",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var customer ledger.Customer
	decodeBody(t, resp, &customer)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/sales", token, map[string]any{
		"customer_id":      customer.ID,
		"delivery_address": "Calle 1",
		"items": []map[string]any{
			{"jewel_type": "ring", "quantity": 2, "unit_price": 100},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale ledger.Sale
	decodeBody(t, resp, &sale)
	require.Len(t, sale.Items, 1)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/payments", token, map[string]any{
		"sale_id": sale.ID,
		"amount":  80,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/dashboard/kpis", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var kpis ledger.KPIs
	decodeBody(t, resp, &kpis)
	require.EqualValues(t, 1, kpis.TotalSales)
	require.InDelta(t, 200, kpis.TotalSold, 0.001)
	require.InDelta(t, 80, kpis.TotalPaid, 0.001)

	resp = doJSON(t, http.MethodGet, server.URL+fmt.Sprintf("/api/sales/%d", sale.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateSaleStaleCustomerIsBadRequest(t *testing.T) {
	server := newTestServer(t)
	token := registerAndLogin(t, server.URL)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/sales", token, map[string]any{
		"customer_id":      999,
		"delivery_address": "Calle 1",
		"items": []map[string]any{
			{"jewel_type": "ring", "unit_price": 100},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSaleNotFound(t *testing.T) {
	server := newTestServer(t)
	token := registerAndLogin(t, server.URL)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/sales/42", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
