package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HerbHall/studyforge/pkg/plugin"
	"go.uber.org/zap"
)

type mockPluginSource struct {
	plugins []plugin.Plugin
	routes  map[string][]plugin.Route
	health  map[string]plugin.HealthStatus
}

func (m *mockPluginSource) AllRoutes() map[string][]plugin.Route { return m.routes }
func (m *mockPluginSource) All() []plugin.Plugin                 { return m.plugins }
func (m *mockPluginSource) HealthAll(context.Context) map[string]plugin.HealthStatus {
	return m.health
}

type stubPlugin struct {
	info plugin.PluginInfo
}

func (s *stubPlugin) Info() plugin.PluginInfo                             { return s.info }
func (s *stubPlugin) Init(_ context.Context, _ plugin.Dependencies) error { return nil }
func (s *stubPlugin) Start(_ context.Context) error                       { return nil }
func (s *stubPlugin) Stop(_ context.Context) error                        { return nil }

func newTestServer(ready ReadinessChecker, health map[string]plugin.HealthStatus) *Server {
	src := &mockPluginSource{
		plugins: []plugin.Plugin{
			&stubPlugin{info: plugin.PluginInfo{Name: "quiz", Version: "0.1.0", Description: "Quiz generation"}},
		},
		routes: map[string][]plugin.Route{
			"quiz": {{
				Method: "POST",
				Path:   "/generate",
				Handler: func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusAccepted)
				},
			}},
		},
		health: health,
	}
	return New(Options{Addr: "127.0.0.1:0", Ready: ready}, src, zap.NewNop())
}

func TestHandleHealthz(t *testing.T) {
	srv := newTestServer(nil, nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "alive") {
		t.Errorf("body = %s, want alive", w.Body.String())
	}
}

func TestHandleReadyz(t *testing.T) {
	tests := []struct {
		name  string
		ready ReadinessChecker
		want  int
	}{
		{"nil checker", nil, http.StatusOK},
		{"ready", func(context.Context) error { return nil }, http.StatusOK},
		{"not ready", func(context.Context) error { return errors.New("database closed") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(tt.ready, nil)
			w := httptest.NewRecorder()
			srv.mux.ServeHTTP(w, httptest.NewRequest("GET", "/readyz", http.NoBody))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestHandleHealthDegraded(t *testing.T) {
	srv := newTestServer(nil, map[string]plugin.HealthStatus{
		"quiz": {Status: "healthy"},
		"llm":  {Status: "degraded", Message: "no backend reachable"},
	})
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", http.NoBody))

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", resp.Status)
	}
	if resp.Service != "studyforge" {
		t.Errorf("Service = %q, want studyforge", resp.Service)
	}
	if len(resp.Plugins) != 2 {
		t.Errorf("Plugins = %d entries, want 2", len(resp.Plugins))
	}
}

func TestHandlePlugins(t *testing.T) {
	srv := newTestServer(nil, nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/plugins", http.NoBody))

	var resp []PluginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 || resp[0].Name != "quiz" {
		t.Errorf("plugins = %+v, want [quiz]", resp)
	}
}

func TestHandleMetrics(t *testing.T) {
	srv := newTestServer(nil, nil)
	w := httptest.NewRecorder()
	srv.mux.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected Go runtime metrics in /metrics output")
	}
}

func TestPluginRoutesMountedThroughChain(t *testing.T) {
	srv := newTestServer(nil, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/quiz/generate", http.NoBody))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID from middleware chain")
	}
	if w.Header().Get("X-StudyForge-Version") == "" {
		t.Error("expected X-StudyForge-Version from middleware chain")
	}
}
