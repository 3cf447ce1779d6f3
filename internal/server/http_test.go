package server

import (
	"bytes"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"BountyBot/internal/biz"
	"BountyBot/internal/conf"
	"BountyBot/internal/data"
	"BountyBot/internal/server/middleware"
	"BountyBot/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer builds the full HTTP server over in-memory stores and returns the log sink.
func setupTestServer(t *testing.T, adminToken string) (*http.Server, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := log.NewStdLogger(&buf)

	registry := biz.NewBreakerRegistryFromConf(&conf.Breaker{KeyPrefix: "test"}, data.NewMemoryCounterStore(64), nil, logger)
	ghConf := &conf.GitHub{}
	uc := biz.NewCommandUsecase(registry, nil, nil, ghConf, logger)

	srv := NewHTTPServer(
		&conf.Server{HTTP: &conf.ServerHTTP{Addr: "127.0.0.1:0"}, AdminToken: adminToken},
		service.NewCommandService(uc, ghConf, logger),
		service.NewBreakerService(registry, logger),
		logger,
	)
	return srv, &buf
}

func serve(srv *http.Server, req *nethttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestNewHTTPServer_AdminAuth(t *testing.T) {
	srv, buf := setupTestServer(t, "admin-secret-token")

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no token", "", "", nethttp.StatusUnauthorized},
		{"wrong token", "Authorization", "Bearer nope", nethttp.StatusUnauthorized},
		{"basic scheme", "Authorization", "Basic admin-secret-token", nethttp.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer admin-secret-token", nethttp.StatusOK},
		{"api key header", "X-API-Key", "admin-secret-token", nethttp.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(nethttp.MethodGet, "/v1/breakers", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := serve(srv, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	assert.Contains(t, buf.String(), "rejected admin request")
	assert.NotContains(t, buf.String(), "admin-secret-token")
}

func TestNewHTTPServer_CommandRoutesSkipAdminAuth(t *testing.T) {
	srv, _ := setupTestServer(t, "admin-secret-token")

	req := httptest.NewRequest(nethttp.MethodPost, "/v1/commands/parse", bytes.NewBufferString(`{"body":"/merge #1"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(srv, req)
	assert.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
}

func TestNewHTTPServer_NoAdminToken(t *testing.T) {
	srv, buf := setupTestServer(t, "")

	rec := serve(srv, httptest.NewRequest(nethttp.MethodGet, "/v1/breakers", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "admin token not configured")
}

func TestNewHTTPServer_RequestLogging(t *testing.T) {
	srv, buf := setupTestServer(t, "")

	req := httptest.NewRequest(nethttp.MethodGet, "/v1/breakers/missing", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-12345")

	rec := serve(srv, req)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.Equal(t, "req-12345", rec.Header().Get(middleware.RequestIDHeader))

	out := buf.String()
	assert.Contains(t, out, "GET /v1/breakers/missing - 404")
	assert.Contains(t, out, "request_id=req-12345")
}

func TestNewHTTPServer_GeneratesRequestID(t *testing.T) {
	srv, _ := setupTestServer(t, "")

	rec := serve(srv, httptest.NewRequest(nethttp.MethodGet, "/v1/breakers", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(middleware.RequestIDHeader), 10)
}
