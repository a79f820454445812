package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name:     "with X-Correlation-ID header",
			headers:  map[string]string{"X-Correlation-ID": "test-correlation-123"},
			expected: "test-correlation-123",
		},
		{
			name:     "with X-Request-ID header",
			headers:  map[string]string{"X-Request-ID": "test-request-456"},
			expected: "test-request-456",
		},
		{
			name: "with both headers - prefer correlation ID",
			headers: map[string]string{
				"X-Correlation-ID": "correlation-123",
				"X-Request-ID":     "request-456",
			},
			expected: "correlation-123",
		},
		{
			name:    "without any headers - generate new",
			headers: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			result := GetCorrelationID(req)

			if tt.expected != "" {
				assert.Equal(t, tt.expected, result)
				return
			}
			_, err := uuid.Parse(result)
			assert.NoError(t, err, "generated correlation ID should be a UUID")
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For header single IP",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.100"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "192.168.1.100",
		},
		{
			name:       "X-Forwarded-For header multiple IPs",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.100, 10.0.0.1, 172.16.0.1"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "192.168.1.100",
		},
		{
			name:       "X-Real-IP header",
			headers:    map[string]string{"X-Real-IP": "203.0.113.45"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "203.0.113.45",
		},
		{
			name:       "no headers - use RemoteAddr",
			headers:    map[string]string{},
			remoteAddr: "198.51.100.25:54321",
			expectedIP: "198.51.100.25",
		},
		{
			name:       "no headers - RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "198.51.100.25",
			expectedIP: "198.51.100.25",
		},
		{
			name:       "blank X-Forwarded-For entry - fall back to X-Real-IP",
			headers:    map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "203.0.113.45"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "203.0.113.45",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			assert.Equal(t, tt.expectedIP, GetClientIP(req))
		})
	}
}

func TestGetQueryParamBool(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		defaultValue bool
		expected     bool
	}{
		{name: "true", url: "/api/runs?queue=true", expected: true},
		{name: "one", url: "/api/runs?queue=1", expected: true},
		{name: "false overrides default", url: "/api/runs?queue=false", defaultValue: true, expected: false},
		{name: "missing uses default", url: "/api/runs", defaultValue: true, expected: true},
		{name: "invalid uses default", url: "/api/runs?queue=maybe", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.url, nil)
			assert.Equal(t, tt.expected, GetQueryParamBool(req, "queue", tt.defaultValue))
		})
	}
}
