package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lpoole/gatez/internal/middleware"
)

func TestNewHTTPHandler_NilLimiterPassesThrough(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := newHTTPHandler(api, nil)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/evaluate", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestNewHTTPHandler_LimitsAPIButNotHealthOrMetrics(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := middleware.NewRateLimiter(ctx, 1)
	defer limiter.Stop()

	handler := newHTTPHandler(api, limiter)

	request := func(method, target string) int {
		req := httptest.NewRequest(method, target, nil)
		req.RemoteAddr = "10.0.0.1:54321"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder.Code
	}

	if code := request(http.MethodPost, "/v1/evaluate"); code != http.StatusOK {
		t.Fatalf("first API request status = %d", code)
	}
	if code := request(http.MethodPost, "/v1/evaluate"); code != http.StatusTooManyRequests {
		t.Fatalf("second API request status = %d, want 429", code)
	}

	for i := 0; i < 3; i++ {
		if code := request(http.MethodGet, "/healthz"); code != http.StatusOK {
			t.Fatalf("healthz request %d status = %d", i, code)
		}
		if code := request(http.MethodGet, "/metrics"); code != http.StatusOK {
			t.Fatalf("metrics request %d status = %d", i, code)
		}
	}
}
