package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("metrics scrape status = %d", recorder.Code)
	}
	return recorder.Body.String()
}

func TestRecordEvaluation(t *testing.T) {
	m := New()
	m.RecordEvaluation("success")
	m.RecordEvaluation("success")
	m.RecordEvaluation("invalid_input")

	body := scrape(t, m)
	if !strings.Contains(body, `gatez_evaluations_total{outcome="success"} 2`) {
		t.Fatalf("missing success count:\n%s", body)
	}
	if !strings.Contains(body, `gatez_evaluations_total{outcome="invalid_input"} 1`) {
		t.Fatalf("missing invalid_input count:\n%s", body)
	}
}

func TestRecordReload(t *testing.T) {
	m := New()
	m.RecordReload(true)
	m.RecordReload(false)
	m.RecordReload(false)

	body := scrape(t, m)
	if !strings.Contains(body, `gatez_config_reloads_total{result="success"} 1`) {
		t.Fatalf("missing success count:\n%s", body)
	}
	if !strings.Contains(body, `gatez_config_reloads_total{result="failure"} 2`) {
		t.Fatalf("missing failure count:\n%s", body)
	}
}

func TestSetConfigSize(t *testing.T) {
	m := New()
	m.SetConfigSize(9, 4)

	body := scrape(t, m)
	if !strings.Contains(body, "gatez_config_features 9") {
		t.Fatalf("missing features gauge:\n%s", body)
	}
	if !strings.Contains(body, "gatez_config_rules 4") {
		t.Fatalf("missing rules gauge:\n%s", body)
	}
}

func TestInstrumentHandler(t *testing.T) {
	m := New()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/evaluate", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	handler := m.InstrumentHandler(mux)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/evaluate", nil))
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", recorder.Code)
	}

	body := scrape(t, m)
	if !strings.Contains(body, `gatez_http_requests_total{method="POST",route="/v1/evaluate",status="503"} 1`) {
		t.Fatalf("missing request count:\n%s", body)
	}
}

func TestInstrumentHandler_UnmatchedRoute(t *testing.T) {
	m := New()
	handler := m.InstrumentHandler(http.NewServeMux())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}

	body := scrape(t, m)
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatalf("missing unmatched route label:\n%s", body)
	}
}
