package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/hierarchy"
	"mercator-hq/callisto/pkg/program"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

func newTestServer(t *testing.T) (*hierarchy.Engine, *Server) {
	t.Helper()
	e := hierarchy.NewEngine(nil, nil, nil, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { e.Close() })

	cfg := config.DefaultConfig()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	return e, NewServer(&cfg.Server, &cfg.Telemetry.Metrics, e, collector)
}

func doGET(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	_, s := newTestServer(t)

	rec := doGET(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestNodesEndpoint(t *testing.T) {
	e, s := newTestServer(t)
	if _, err := e.CreateNode("b", e.Root().ID()); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if _, err := e.CreateNode("a", e.Root().ID()); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	rec := doGET(t, s, "/v1/nodes")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /v1/nodes = %d, want 200", rec.Code)
	}
	var body struct {
		Root            string   `json:"root"`
		Nodes           []string `json:"nodes"`
		EnabledPrograms int64    `json:"enabled_programs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Root != "root" {
		t.Errorf("root = %q, want root", body.Root)
	}
	want := []string{"a", "b", "root"}
	if len(body.Nodes) != len(want) {
		t.Fatalf("nodes = %v, want %v", body.Nodes, want)
	}
	for i := range want {
		if body.Nodes[i] != want[i] {
			t.Fatalf("nodes = %v, want sorted %v", body.Nodes, want)
		}
	}
}

func TestEffectiveEndpoint(t *testing.T) {
	e, s := newTestServer(t)
	if _, err := e.CreateNode("child", e.Root().ID()); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	p := program.NewStatic("p", program.VerdictPass)
	if err := e.Attach(e.Root().ID(), hierarchy.AttachEgress, p, hierarchy.AllowOverride); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	rec := doGET(t, s, "/v1/nodes/child/effective?attach_type=egress")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET effective = %d, want 200; body: %s", rec.Code, rec.Body)
	}
	var body struct {
		Node       string   `json:"node"`
		AttachType string   `json:"attach_type"`
		Programs   []string `json:"programs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Node != "child" || body.AttachType != "egress" {
		t.Errorf("body = %+v", body)
	}
	if len(body.Programs) != 1 || body.Programs[0] != p.ID() {
		t.Errorf("programs = %v, want [%s]", body.Programs, p.ID())
	}

	if rec := doGET(t, s, "/v1/nodes/ghost/effective?attach_type=egress"); rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown node = %d, want 404", rec.Code)
	}
	if rec := doGET(t, s, "/v1/nodes/child/effective?attach_type=bogus"); rec.Code != http.StatusBadRequest {
		t.Errorf("GET bad attach type = %d, want 400", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, s := newTestServer(t)

	rec := doGET(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}
