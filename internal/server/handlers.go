package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"roadnet-planner/internal/pathfind"
	"roadnet-planner/internal/roadmap"
	"roadnet-planner/internal/spatial"
)

// maxBodyBytes caps the size of JSON request bodies
const maxBodyBytes = 1 << 20

// Point is a ground-plane coordinate in request bodies
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

func (p Point) toOrb() orb.Point { return orb.Point{p.X, p.Z} }

func fromOrb(p orb.Point) Point { return Point{X: p.X(), Z: p.Y()} }

// BuildRequest asks for a new network. Zero fields fall back to defaults.
type BuildRequest struct {
	roadmap.Params
	PreventIntersections *bool `json:"preventIntersections,omitempty"`
	Force                bool  `json:"force,omitempty"` // Set to true to force rebuild
}

// RouteRequest names the route ends either by node index or by coordinate
type RouteRequest struct {
	Start *int   `json:"start,omitempty"`
	End   *int   `json:"end,omitempty"`
	From  *Point `json:"from,omitempty"`
	To    *Point `json:"to,omitempty"`
}

// RouteResponse is the result of a route query
type RouteResponse struct {
	Success  bool    `json:"success"`
	Path     []int   `json:"path"`
	Points   []Point `json:"points"`
	Distance float64 `json:"distance,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// POST /build - Generate a new road network
func (s *Server) buildHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	var req BuildRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn("❌ Invalid request body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	params := withDefaults(req)
	if params.NodeCount > s.cfg.MaxNodes {
		writeError(w, http.StatusBadRequest, "too many nodes",
			fmt.Sprintf("nodeCount %d exceeds the server limit of %d", params.NodeCount, s.cfg.MaxNodes))
		return
	}

	gen, err := roadmap.NewGenerator(params, roadmap.WithLogger(s.logger), roadmap.WithMetrics(s.metrics))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameters", err.Error())
		return
	}

	// Check if a network already exists, and claim the build slot
	s.mu.Lock()
	switch {
	case s.building:
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "build in progress", "Another build is running, retry later.")
		return
	case s.network != nil && !req.Force:
		s.mu.Unlock()
		log.Info("⚠️  Network already exists")
		writeError(w, http.StatusConflict, "network already exists",
			"Network is already built. Set 'force: true' to rebuild.")
		return
	}
	s.building = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.building = false
		s.mu.Unlock()
	}()

	if req.Force {
		log.Info("🔄 Force rebuild requested")
	}

	network := gen.Generate()
	s.SetNetwork(network)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"params":  network.Params(),
		"stats":   network.Stats(),
	})
}

// withDefaults fills zero fields of a build request from the stock parameters
func withDefaults(req BuildRequest) roadmap.Params {
	p := req.Params
	def := roadmap.DefaultParams()

	if p.NodeCount == 0 {
		p.NodeCount = def.NodeCount
	}
	if p.MapSize == 0 {
		p.MapSize = def.MapSize
	}
	if p.MaxDegree == 0 {
		p.MaxDegree = def.MaxDegree
	}
	if p.MinDegree == 0 {
		p.MinDegree = min(def.MinDegree, p.MaxDegree)
	}
	if p.CellSize == 0 {
		p.CellSize = def.CellSize
	}
	if p.MaxAttemptsPerNode == 0 {
		p.MaxAttemptsPerNode = def.MaxAttemptsPerNode
	}
	if p.AugmentRounds == 0 {
		p.AugmentRounds = def.AugmentRounds
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}
	p.PreventIntersections = def.PreventIntersections
	if req.PreventIntersections != nil {
		p.PreventIntersections = *req.PreventIntersections
	}
	return p
}

// currentNetwork returns the served network or writes a 409 reply
func (s *Server) currentNetwork(w http.ResponseWriter) (*roadmap.Network, bool) {
	n := s.Network()
	if n == nil {
		writeError(w, http.StatusConflict, "network not built", "Call /build first")
		return nil, false
	}
	return n, true
}

// GET /lines - Get network edges as GeoJSON for visualization
func (s *Server) linesHandler(w http.ResponseWriter, r *http.Request) {
	n, ok := s.currentNetwork(w)
	if !ok {
		return
	}

	fc := n.GeoJSON()
	data, err := fc.MarshalJSON()
	if err != nil {
		s.requestLogger(r).Error("failed to marshal lines", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "marshal failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// GET /stats - Summary of the served network
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	n, ok := s.currentNetwork(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, n.Stats())
}

// POST /route - Shortest path between two nodes or two coordinates
func (s *Server) routeHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLogger(r)

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	n, ok := s.currentNetwork(w)
	if !ok {
		return
	}

	var (
		res pathfind.Result
		err error
	)
	switch {
	case req.Start != nil && req.End != nil:
		res, err = n.Search(*req.Start, *req.End)
	case req.From != nil && req.To != nil:
		var route roadmap.Route
		route, err = n.RouteBetween(req.From.toOrb(), req.To.toOrb())
		res = pathfind.Result{Path: route.Path, Cost: route.Length}
	default:
		writeError(w, http.StatusBadRequest, "missing endpoints", "Provide start/end node indices or from/to points")
		return
	}

	if err != nil {
		if errors.Is(err, pathfind.ErrNodeOutOfRange) {
			writeError(w, http.StatusBadRequest, "node out of range", err.Error())
			return
		}
		log.Error("❌ Route failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "route failed", err.Error())
		return
	}

	resp := RouteResponse{Path: res.Path, Points: make([]Point, 0, len(res.Path))}
	for _, id := range res.Path {
		resp.Points = append(resp.Points, fromOrb(n.Graph().Position(id)))
	}
	if len(res.Path) == 0 {
		log.Info("❌ No path found")
		resp.Message = "No path found, the endpoints lie in different components"
	} else {
		resp.Success = true
		resp.Distance = res.Cost
		log.Debug("✅ Path found", zap.Int("waypoints", len(res.Path)), zap.Float64("distance", res.Cost))
	}

	writeJSON(w, http.StatusOK, resp)
}

// NearestResponse lists the nodes closest to a query point
type NearestResponse struct {
	Center Point              `json:"center"`
	Radius float64            `json:"radius"`
	Nodes  []spatial.Neighbor `json:"nodes"`
	Edges  []roadmap.Edge     `json:"edges"`
}

// GET /nearest?x=..&z=..&k=.. - Nodes nearest to a point with their edges
func (s *Server) nearestHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	z, errZ := strconv.ParseFloat(q.Get("z"), 64)
	if errX != nil || errZ != nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates", "x and z must be numbers")
		return
	}

	k := 1
	if raw := q.Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid k", "k must be a positive integer")
			return
		}
		k = parsed
	}

	n, ok := s.currentNetwork(w)
	if !ok {
		return
	}

	res := n.Neighborhood(orb.Point{x, z}, k)
	writeJSON(w, http.StatusOK, NearestResponse{
		Center: fromOrb(res.Center),
		Radius: res.Radius,
		Nodes:  res.Nodes,
		Edges:  res.Edges,
	})
}

// GET /health - Health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := s.network
	building := s.building
	s.mu.RUnlock()

	status := "ready"
	numNodes, numEdges := 0, 0
	if n != nil {
		numNodes = n.Graph().NumNodes()
		numEdges = n.Graph().NumEdges()
	} else {
		status = "waiting for network"
	}
	if building {
		status = "building"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"hasNetwork": n != nil,
		"numNodes":   numNodes,
		"numEdges":   numEdges,
	})
}
