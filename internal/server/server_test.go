package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ragulnathMB/tenant-api-gateway/internal/auth"
	"github.com/ragulnathMB/tenant-api-gateway/internal/catalog"
	"github.com/ragulnathMB/tenant-api-gateway/internal/config"
	"github.com/ragulnathMB/tenant-api-gateway/internal/engine"
	"github.com/ragulnathMB/tenant-api-gateway/internal/metrics"
	"github.com/ragulnathMB/tenant-api-gateway/internal/store"
)

type brokenPinger struct{}

func (brokenPinger) Ping(context.Context) error { return errors.New("connection refused") }

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Gateway: config.GatewayConfig{MaxRequestBytes: 1 << 20, MaxResponseBytes: 1 << 20},
		CORS: config.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
			AllowedHeaders: []string{"*"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, backendURL string) (*Server, *store.MemoryStore) {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	s := store.NewMemoryStore()
	require.NoError(t, s.CreateTenant(context.Background(), store.Tenant{ID: "T1"}))
	mgr := catalog.NewManager(s, logger, m, catalog.Options{SerializeWrites: true})
	fwd, err := engine.NewForwarder(mgr, engine.NewHTTPClient(), engine.ForwarderConfig{DefaultBackendURL: backendURL}, logger, m)
	require.NoError(t, err)

	srv := NewServer(cfg, Deps{
		Store:     s,
		Catalog:   mgr,
		Forwarder: fwd,
		Prober:    engine.NewProber(engine.NewHTTPClient(), 0, logger, m),
		Admin:     auth.AdminMiddleware("s3cret", nil, logger),
		Metrics:   m,
		Gatherer:  reg,
	}, logger)
	srv.SetupRoutes()
	return srv, s
}

func serve(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_EndToEnd(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": strings.TrimPrefix(r.URL.Path, "/api/orders/"), "method": r.Method})
	}))
	defer backend.Close()

	srv, _ := newTestServer(t, testConfig(), backend.URL)
	h := srv.Handler()
	admin := map[string]string{"X-Admin-Token": "s3cret"}

	rec := serve(h, http.MethodPost, "/api/tenants/T1/apis", `{"section":"orders","apiName":"get-order","url":"/api/orders/:id","method":"GET"}`, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(h, http.MethodPost, "/gateway/T1/orders/get-order/123", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"123","method":"GET"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(h, http.MethodGet, "/proxy/orders/get-order/9", "", map[string]string{"X-Tenant-ID": "T1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"9","method":"GET"}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `apigw_forward_requests_total{outcome="relayed"} 2`)
	assert.Contains(t, rec.Body.String(), `apigw_catalog_operations_total{op="add",result="ok"} 1`)
}

func TestServer_AdminRoutesProtected(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), "")
	h := srv.Handler()

	rec := serve(h, http.MethodGet, "/api/tenants/T1/apis", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/api/tenants/T1/apis", "", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// forwarding routes are not behind admin auth
	rec = serve(h, http.MethodGet, "/gateway/T1/none/none", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ENTRY_NOT_FOUND")
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), "")
	rec := serve(srv.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	srv.deps.Store = brokenPinger{}
	rec = serve(srv.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), "")
	rec := serve(srv.Handler(), http.MethodOptions, "/api/tenants/T1/apis", "", map[string]string{
		"Origin":                        "http://admin.example.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimiter = config.RateLimiterConfig{Enabled: true, RequestsPerSecond: 0.001, BurstSize: 1}
	srv, _ := newTestServer(t, cfg, "")
	h := srv.Handler()

	first := serve(h, http.MethodGet, "/gateway/T1/a/b", "", nil)
	second := serve(h, http.MethodGet, "/gateway/T1/a/b", "", nil)
	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// management routes are not rate limited
	rec := serve(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), "")
	rec := serve(srv.Handler(), http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"endpoint not found","code":"NOT_FOUND"}`, rec.Body.String())
}
