// Package main is the entry point for the gatez server.
//
// The bootstrap sequence is:
//  1. Load configuration from environment variables.
//  2. Build the document loader and the evaluation service (eagerly
//     loading and validating the rule-set document).
//  3. Optionally start the fsnotify watcher for hot reload.
//  4. Start the HTTP server (:8080).
//  5. Wait for SIGINT/SIGTERM, then gracefully shut down.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lpoole/gatez/internal/config"
	"github.com/lpoole/gatez/internal/loader"
	"github.com/lpoole/gatez/internal/logging"
	"github.com/lpoole/gatez/internal/metrics"
	"github.com/lpoole/gatez/internal/middleware"
	"github.com/lpoole/gatez/internal/server"
	"github.com/lpoole/gatez/internal/service"
	"github.com/lpoole/gatez/internal/tracing"
)

const (
	shutdownTimeout       = 10 * time.Second
	httpReadHeaderTimeout = 5 * time.Second
	httpReadTimeout       = 30 * time.Second
	httpIdleTimeout       = 2 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	shutdownTracer, err := tracing.Init(context.Background())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown error", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	fileLoader := loader.NewFileLoader(cfg.ConfigPath)

	svc, err := service.New(ctx, fileLoader,
		service.WithLogger(log),
		service.WithEvaluationMetrics(m.RecordEvaluation),
		service.WithReloadMetrics(m.RecordReload),
		service.WithConfigGauges(m.SetConfigSize),
	)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	if cfg.WatchConfig {
		watcher, err := loader.NewWatcher(cfg.ConfigPath, cfg.ReloadDebounce, log)
		if err != nil {
			return fmt.Errorf("init watcher: %w", err)
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Watch(ctx, func() error { return svc.Reload(ctx) }); err != nil {
				log.Error("watcher stopped", "error", err)
			}
		}()
	}

	apiHandler := server.NewHTTPHandler(svc, server.WithMetrics(m), server.WithMaxJSONBodySize(cfg.MaxJSONBodySize))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(ctx, cfg.RateLimit)
		defer limiter.Stop()
	}
	httpHandler := middleware.HTTPRequestLogging(log)(newHTTPHandler(apiHandler, limiter))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(httpHandler, "gatez-http"),
		ReadHeaderTimeout: httpReadHeaderTimeout,
		ReadTimeout:       httpReadTimeout,
		IdleTimeout:       httpIdleTimeout,
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen HTTP %s: %w", cfg.HTTPAddr, err)
	}
	defer httpListener.Close()

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	log.Info("server started", "http_addr", cfg.HTTPAddr, "config_path", cfg.ConfigPath, "watch", cfg.WatchConfig)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serveErrCh:
	}
	stop()

	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		if serveErr != nil {
			return serveErr
		}
		return fmt.Errorf("shutdown HTTP: %w", err)
	}

	return serveErr
}

// newHTTPHandler rate limits the /v1/ API while leaving health and metrics
// unlimited. A nil limiter disables rate limiting entirely.
func newHTTPHandler(apiHandler http.Handler, limiter *middleware.RateLimiter) http.Handler {
	if limiter == nil {
		return apiHandler
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.HTTPRateLimit(limiter)(apiHandler))
	mux.Handle("GET /healthz", apiHandler)
	mux.Handle("GET /metrics", apiHandler)

	return mux
}
