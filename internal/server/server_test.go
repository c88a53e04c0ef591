package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"roadnet-planner/internal/config"
	"roadnet-planner/internal/metrics"
	"roadnet-planner/internal/roadmap"
)

// TestMain ensures no goroutines leak from the server lifecycle.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testParams() roadmap.Params {
	return roadmap.Params{
		NodeCount:            400,
		MapSize:              25,
		MinDegree:            2,
		MaxDegree:            4,
		CellSize:             7,
		MaxAttemptsPerNode:   5,
		AugmentRounds:        3,
		PreventIntersections: true,
		Seed:                 7,
	}
}

func newTestServer(t *testing.T, withNetwork bool) *Server {
	t.Helper()
	cfg := config.Default().Server
	cfg.MaxNodes = 5000

	s := New(cfg, zaptest.NewLogger(t), metrics.NewRegistry())
	if withNetwork {
		net, err := roadmap.Generate(testParams())
		require.NoError(t, err)
		s.SetNetwork(net)
	}
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func intPtr(v int) *int { return &v }

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "waiting for network", body["status"])
	assert.Equal(t, false, body["hasNetwork"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	s = newTestServer(t, true)
	body = decode[map[string]any](t, do(t, s, http.MethodGet, "/health", nil))
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, 400.0, body["numNodes"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodOptions, "/route", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuild(t *testing.T) {
	s := newTestServer(t, false)

	p := testParams()
	rec := do(t, s, http.MethodPost, "/build", BuildRequest{Params: p})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, s.Network())
	assert.Equal(t, p.NodeCount, s.Network().Graph().NumNodes())

	// Second build without force conflicts.
	rec = do(t, s, http.MethodPost, "/build", BuildRequest{Params: p})
	assert.Equal(t, http.StatusConflict, rec.Code)

	p.Seed = 8
	rec = do(t, s, http.MethodPost, "/build", BuildRequest{Params: p, Force: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(8), s.Network().Params().Seed)
}

func TestBuild_RejectsBadParams(t *testing.T) {
	s := newTestServer(t, false)

	p := testParams()
	p.MinDegree, p.MaxDegree = 5, 3
	rec := do(t, s, http.MethodPost, "/build", BuildRequest{Params: p})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MaxDegree")

	p = testParams()
	p.NodeCount = 10_000
	rec = do(t, s, http.MethodPost, "/build", BuildRequest{Params: p})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many nodes")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/build", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Nil(t, s.Network())
}

func TestWithDefaults(t *testing.T) {
	off := false
	p := withDefaults(BuildRequest{
		Params:               roadmap.Params{NodeCount: 50},
		PreventIntersections: &off,
	})

	def := roadmap.DefaultParams()
	assert.Equal(t, 50, p.NodeCount)
	assert.Equal(t, def.CellSize, p.CellSize)
	assert.Equal(t, def.MaxDegree, p.MaxDegree)
	assert.Equal(t, def.MinDegree, p.MinDegree)
	assert.False(t, p.PreventIntersections)
	require.NoError(t, p.Validate())
}

func TestWithDefaults_MaxDegreeOnly(t *testing.T) {
	p := withDefaults(BuildRequest{Params: roadmap.Params{NodeCount: 50, MaxDegree: 4}})
	assert.Equal(t, roadmap.DefaultParams().MinDegree, p.MinDegree)
	require.NoError(t, p.Validate())

	p = withDefaults(BuildRequest{Params: roadmap.Params{NodeCount: 50, MaxDegree: 1}})
	assert.Equal(t, 1, p.MinDegree)
	require.NoError(t, p.Validate())
}

// panicCore fails the first generation log line
type panicCore struct {
	zapcore.Core
}

func (c panicCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if strings.Contains(e.Message, "Building road network") {
		panic("generation failed")
	}
	return c.Core.Check(e, ce)
}

func TestBuild_ReleasesSlotAfterPanic(t *testing.T) {
	s := newTestServer(t, false)
	healthy := s.logger
	s.logger = zap.New(panicCore{Core: healthy.Core()})

	require.Panics(t, func() {
		do(t, s, http.MethodPost, "/build", BuildRequest{Params: testParams()})
	})

	health := decode[map[string]any](t, do(t, s, http.MethodGet, "/health", nil))
	assert.Equal(t, "waiting for network", health["status"])

	s.logger = healthy
	rec := do(t, s, http.MethodPost, "/build", BuildRequest{Params: testParams()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, s.Network())
}

func TestBuild_RejectsOversizedBody(t *testing.T) {
	s := newTestServer(t, false)

	body := `{"nodeCount": 10, "padding": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/build", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, s.Network())
}

func TestRoute_ByIndex(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodPost, "/route", RouteRequest{Start: intPtr(0), End: intPtr(123)})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[RouteResponse](t, rec)
	require.True(t, resp.Success)
	assert.Equal(t, 0, resp.Path[0])
	assert.Equal(t, 123, resp.Path[len(resp.Path)-1])
	assert.Len(t, resp.Points, len(resp.Path))
	assert.Greater(t, resp.Distance, 0.0)

	want, err := s.Network().FindShortestPath(0, 123)
	require.NoError(t, err)
	assert.Equal(t, want, resp.Path)
}

func TestRoute_SelfAndOutOfRange(t *testing.T) {
	s := newTestServer(t, true)

	resp := decode[RouteResponse](t, do(t, s, http.MethodPost, "/route", RouteRequest{Start: intPtr(9), End: intPtr(9)}))
	assert.True(t, resp.Success)
	assert.Equal(t, []int{9}, resp.Path)

	rec := do(t, s, http.MethodPost, "/route", RouteRequest{Start: intPtr(0), End: intPtr(400)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "node out of range")
}

func TestRoute_ByPoint(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodPost, "/route", RouteRequest{
		From: &Point{X: -20, Z: -20},
		To:   &Point{X: 20, Z: 20},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[RouteResponse](t, rec)
	require.True(t, resp.Success)
	assert.GreaterOrEqual(t, len(resp.Path), 2)
}

func TestRoute_Errors(t *testing.T) {
	empty := newTestServer(t, false)
	rec := do(t, empty, http.MethodPost, "/route", RouteRequest{Start: intPtr(0), End: intPtr(1)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	s := newTestServer(t, true)
	rec = do(t, s, http.MethodPost, "/route", RouteRequest{Start: intPtr(0)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/route", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestLines(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/lines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, s.Network().Graph().NumEdges())
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
}

func TestNearest(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/nearest?x=1.5&z=-2&k=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[NearestResponse](t, rec)
	assert.Len(t, resp.Nodes, 10)
	assert.Equal(t, Point{X: 1.5, Z: -2}, resp.Center)
	assert.Equal(t, resp.Nodes[9].Distance, resp.Radius)
	assert.NotEmpty(t, resp.Edges)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/nearest?x=abc&z=1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/nearest?x=1&z=1&k=0", nil).Code)
}

func TestStatsAndMetrics(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[roadmap.Stats](t, rec)
	assert.Equal(t, 400, stats.Nodes)

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roadnet_http_requests_total")
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := config.Default().Server
	cfg.Addr = addr
	s := New(cfg, zaptest.NewLogger(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	http.DefaultClient.CloseIdleConnections()
}
