package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 10)
	defer rl.Stop()

	for i := 0; i < 10; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request over burst should be denied")
	}
}

func TestRateLimiter_TracksIPsIndependently(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 1)
	defer rl.Stop()

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first request for first IP denied")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second request for first IP should be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("first request for second IP denied")
	}
}

func TestRateLimiter_DefaultLimit(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 0)
	defer rl.Stop()

	if rl.maxPerMinute != DefaultMaxRequestsPerMinute {
		t.Fatalf("maxPerMinute = %d, want %d", rl.maxPerMinute, DefaultMaxRequestsPerMinute)
	}
}

func TestRateLimiter_EvictsWhenFull(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 100)
	defer rl.Stop()
	rl.maxTrackedIPs = 2

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	rl.Allow("10.0.0.3")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.entries) > 2 {
		t.Fatalf("tracked IPs = %d, want at most 2", len(rl.entries))
	}
}

func TestHTTPRateLimit(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 1)
	defer rl.Stop()

	handler := HTTPRateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/evaluate", nil)
		req.RemoteAddr = "10.0.0.1:54321"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder.Code
	}

	if code := request(); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := request(); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"10.0.0.1:54321", "10.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
		{"[::1]:8080", "::1"},
	}

	for _, test := range tests {
		if got := ExtractIP(test.remoteAddr); got != test.want {
			t.Errorf("ExtractIP(%q) = %q, want %q", test.remoteAddr, got, test.want)
		}
	}
}
