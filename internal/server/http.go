// Package server exposes the evaluation pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lpoole/gatez/internal/core"
	"github.com/lpoole/gatez/internal/metrics"
	"github.com/lpoole/gatez/internal/service"
	"github.com/lpoole/gatez/internal/validate"
)

const defaultMaxJSONBodyBytes int64 = 1 << 20

var errJSONBodyTooLarge = errors.New("json request body too large")

type HTTPServer struct {
	service     Service
	metrics     *metrics.Metrics
	maxBodySize int64
}

// Option configures the HTTP handler.
type Option func(*HTTPServer)

// WithMetrics enables Prometheus instrumentation and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *HTTPServer) { s.metrics = m }
}

// WithMaxJSONBodySize overrides the request body size limit in bytes.
func WithMaxJSONBodySize(n int64) Option {
	return func(s *HTTPServer) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

func NewHTTPHandler(svc Service, opts ...Option) http.Handler {
	if svc == nil {
		panic("service is nil")
	}

	server := &HTTPServer{
		service:     svc,
		maxBodySize: defaultMaxJSONBodyBytes,
	}
	for _, opt := range opts {
		opt(server)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/evaluate", server.handleEvaluate)
	mux.HandleFunc("POST /v1/validate", server.handleValidate)
	mux.HandleFunc("GET /v1/features", server.handleFeatures)
	mux.HandleFunc("GET /v1/config", server.handleConfig)
	mux.HandleFunc("POST /v1/reload", server.handleReload)
	mux.HandleFunc("GET /healthz", server.handleHealthz)
	if server.metrics != nil {
		mux.Handle("GET /metrics", server.metrics.Handler())
		return server.metrics.InstrumentHandler(mux)
	}

	return mux
}

func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var userContext *core.UserContext
	if err := s.decodeJSONBody(w, r, &userContext); err != nil {
		writeJSONDecodeError(w, err)
		return
	}

	result := s.service.Evaluate(r.Context(), userContext)
	switch {
	case result.Success:
		writeJSON(w, http.StatusOK, result)
	case result.Error == service.NotConfiguredMessage:
		writeJSON(w, http.StatusServiceUnavailable, result)
	default:
		writeJSON(w, http.StatusBadRequest, result)
	}
}

// handleValidate checks an arbitrary document against the configuration
// schema. Defects are data, not transport errors, so the response is 200
// either way.
func (s *HTTPServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		writeJSONError(w, http.StatusBadRequest, "request body is required")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	if err != nil {
		writeJSONDecodeError(w, normalizeJSONDecodeError(err))
		return
	}

	var document any
	if err := json.Unmarshal(body, &document); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	writeJSON(w, http.StatusOK, s.service.ValidateDocument(document))
}

func (s *HTTPServer) handleFeatures(w http.ResponseWriter, _ *http.Request) {
	features := s.service.Features()
	if features == nil {
		features = []core.FeatureDefinition{}
	}
	writeJSON(w, http.StatusOK, map[string][]core.FeatureDefinition{"features": features})
}

func (s *HTTPServer) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Summary())
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.service.Reload(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	case errors.Is(err, validate.ErrInvalidDocument):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSONDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errJSONBodyTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *HTTPServer) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return normalizeJSONDecodeError(err)
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return fmt.Errorf("request body must contain a single JSON object")
		}
		return normalizeJSONDecodeError(err)
	}

	return nil
}

func normalizeJSONDecodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errJSONBodyTooLarge
	}
	return err
}
