package middleware

import (
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(nethttp.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1:5555", extractClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", extractClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", extractClientIP(req))
}

func TestExtractHTTPStatus(t *testing.T) {
	assert.Equal(t, 200, extractHTTPStatus(nil))
	assert.Equal(t, 404, extractHTTPStatus(kerrors.NotFound("NOT_FOUND", "missing")))
	assert.Equal(t, 500, extractHTTPStatus(errors.New("boom")))
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(nethttp.MethodGet, "/", nil)
	assert.Empty(t, extractToken(req))

	req.Header.Set("X-API-Key", " key-from-header ")
	assert.Equal(t, "key-from-header", extractToken(req))

	req.Header.Set("Authorization", "Bearer  bearer-token")
	assert.Equal(t, "bearer-token", extractToken(req))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "tok-***", maskToken("tok-1234567890"))
	assert.Equal(t, "*****", maskToken("short"))
	assert.Equal(t, "", maskToken(""))
}
