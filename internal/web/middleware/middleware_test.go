package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := CORS([]string{"http://192.168.1.9:8080", "http://localhost:8080"})(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/autenticar", nil)
	req.Header.Set("Origin", "http://192.168.1.9:8080")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://192.168.1.9:8080" {
		t.Errorf("expected origin echoed, got '%s'", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got '%s'", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	handler := CORS([]string{"http://localhost:8080"})(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/autenticar", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got '%s'", got)
	}
	if recorder.Code != http.StatusOK {
		t.Errorf("expected request to pass through, got %d", recorder.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS([]string{"http://localhost:8080"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/registrar", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Custom")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if called {
		t.Error("preflight should not reach the handler")
	}
	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); got != "X-Custom" {
		t.Errorf("expected requested headers allowed, got '%s'", got)
	}
}

func TestCORS_Wildcard(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://anything.local")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://anything.local" {
		t.Errorf("expected origin echoed, got '%s'", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(log))
	r.Post("/registrar", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"x"}`))
	})

	req := httptest.NewRequest(http.MethodPost, "/registrar", nil)
	recorder := httptest.NewRecorder()
	r.ServeHTTP(recorder, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Errorf("expected warn level for 400, got %v", entry["level"])
	}
	if entry["status"] != float64(400) {
		t.Errorf("expected status 400, got %v", entry["status"])
	}
	if entry["path"] != "/registrar" {
		t.Errorf("expected path /registrar, got %v", entry["path"])
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Error("expected request id")
	}
}

// routeLabels returns the route label values recorded for the request duration histogram.
func routeLabels(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	routes := map[string]bool{}
	for _, mf := range families {
		if mf.GetName() != "faceauth_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					routes[lp.GetValue()] = true
				}
			}
		}
	}
	return routes
}

func TestRequestLogger_UnmatchedPathsShareOneRouteLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(RequestLogger(zerolog.Nop()))
	r.Get("/users/{id}", okHandler)

	for _, path := range []string{"/users/7", "/wp-admin/setup.php", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	routes := routeLabels(t)
	if !routes["/users/{id}"] {
		t.Errorf("expected route pattern label, got %v", routes)
	}
	if !routes[unmatchedRoute] {
		t.Errorf("expected %q label for unknown paths, got %v", unmatchedRoute, routes)
	}
	for _, raw := range []string{"/wp-admin/setup.php", "/.env", "/users/7"} {
		if routes[raw] {
			t.Errorf("raw path %q leaked into route label", raw)
		}
	}
}
