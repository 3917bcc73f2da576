package api

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterBurst(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             3,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request beyond burst allowed")
	}

	// Limits are per IP, not global.
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh IP rejected after another IP's burst")
	}

	stats := rl.Stats()
	if stats["allowed"] != 4 || stats["rejected"] != 1 {
		t.Errorf("stats = %v, want 4 allowed / 1 rejected", stats)
	}
}

func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)

	if !wrl.Allow("10.0.0.1") || !wrl.Allow("10.0.0.1") {
		t.Fatal("connections within the per-IP cap rejected")
	}
	if wrl.Allow("10.0.0.1") {
		t.Error("connection beyond the per-IP cap allowed")
	}
	if !wrl.Allow("10.0.0.2") {
		t.Error("another IP blocked by the first IP's connections")
	}

	wrl.Release("10.0.0.1")
	if !wrl.Allow("10.0.0.1") {
		t.Error("slot not reusable after release")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "plain remote addr",
			remoteAddr: "192.168.1.5:54321",
			want:       "192.168.1.5",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for chain takes first hop",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.5",
			want:       "192.168.1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:3000", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:8080", true},
		{"https://evil.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsAllowedOrigin(tt.origin); got != tt.want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	t.Run("client origin env", func(t *testing.T) {
		t.Setenv("CLIENT_ORIGIN", "https://game.example.com")
		if !IsAllowedOrigin("https://game.example.com") {
			t.Error("configured client origin rejected")
		}
		if IsAllowedOrigin("https://other.example.com") {
			t.Error("unconfigured origin accepted")
		}
	})
}
