package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted peer ignores forwarding", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy with garbage", "10.0.0.2:5000", "not-an-ip", "", "10.0.0.2"},
		{"real ip header", "127.0.0.1:5000", "", "198.51.100.9", "198.51.100.9"},
		{"no port", "203.0.113.7", "", "", "203.0.113.7"},
	}
	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5000"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.7", d.ExtractClientIP(r))

	require.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(r))

	assert.Error(t, d.AddTrustedProxy("nope"))
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	probe := func(method, target, agent string) bool {
		r := httptest.NewRequest(method, target, nil)
		if agent != "" {
			r.Header.Set("User-Agent", agent)
		}
		return d.DetectSuspiciousRequest(r)
	}

	assert.False(t, probe(http.MethodGet, "/api/summary", "curl/8.4.0"))
	assert.False(t, probe(http.MethodGet, "/api/performance?start=2024-01-01&end=2024-01-31", ""))
	assert.True(t, probe(http.MethodGet, "/.env", ""))
	assert.True(t, probe(http.MethodGet, "/api/gain?start=../../etc/passwd", ""))
	assert.True(t, probe(http.MethodGet, "/", "sqlmap/1.7"))
	assert.True(t, probe("TRACE", "/", ""))
	assert.True(t, probe(http.MethodGet, "/"+strings.Repeat("a", 2100), ""))

	assert.Equal(t, int64(5), d.GetMetrics().SuspiciousRequests)
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "plain http gets no HSTS")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareSkipsEmptyValues(t *testing.T) {
	h := NewHeadersMiddleware(HeadersConfig{XFrameOptions: "SAMEORIGIN"}).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "SAMEORIGIN", rr.Header().Get("X-Frame-Options"))
	_, ok := rr.Header()["Content-Security-Policy"]
	assert.False(t, ok)
}
