package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterPerIP(t *testing.T) {
	limiter := newIPRateLimiter(2, time.Minute)

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))

	// Separate budget per client
	assert.True(t, limiter.allow("10.0.0.2"))
}

func TestIPRateLimiterRefund(t *testing.T) {
	limiter := newIPRateLimiter(1, time.Minute)

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))

	limiter.refund("10.0.0.1")
	assert.True(t, limiter.allow("10.0.0.1"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name     string
		remote   string
		headers  map[string]string
		expected string
	}{
		{
			name:     "remote addr with port",
			remote:   "192.168.1.10:52341",
			expected: "192.168.1.10",
		},
		{
			name:     "x-forwarded-for single",
			remote:   "10.0.0.1:1234",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7"},
			expected: "203.0.113.7",
		},
		{
			name:     "x-forwarded-for chain takes first",
			remote:   "10.0.0.1:1234",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			expected: "203.0.113.7",
		},
		{
			name:     "x-real-ip",
			remote:   "10.0.0.1:1234",
			headers:  map[string]string{"X-Real-IP": "203.0.113.9"},
			expected: "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/health", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, clientIP(req))
		})
	}
}
