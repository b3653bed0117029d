package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"droneops-dispatch/internal/alert"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/planner"
	"droneops-dispatch/internal/replay"
	"droneops-dispatch/internal/sim"
	"droneops-dispatch/internal/telemetry"
)

// Server exposes the dispatcher over HTTP. Every handler but /plan hands its
// work to the simulator goroutine through Simulator.Do.
type Server struct {
	Sim    *sim.Simulator
	hub    *Hub
	status sim.AdminStatusWriter
	log    *slog.Logger
}

// NewServer creates a server for s. hub may be nil, which disables /ws.
// status, when set, is told when the listener comes up and goes down.
func NewServer(s *sim.Simulator, hub *Hub, status sim.AdminStatusWriter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Sim: s, hub: hub, status: status, log: logger.With("component", "admin")}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drones", s.handleDrones)
	mux.HandleFunc("GET /stations", s.handleStations)
	mux.HandleFunc("POST /drones/send", s.handleSend)
	mux.HandleFunc("POST /drones/move", s.handleMove)
	mux.HandleFunc("POST /drones/cancel", s.handleCancel)
	mux.HandleFunc("GET /eta", s.handleETA)
	mux.HandleFunc("GET /nearest", s.handleNearest)
	mux.HandleFunc("GET /plan", s.handlePlan)
	mux.HandleFunc("GET /paths", s.handlePath)
	mux.HandleFunc("GET /alerts/active", s.handleActiveAlert)
	mux.HandleFunc("POST /alerts/dismiss", s.handleDismiss)
	mux.HandleFunc("GET /missions", s.handleMissions)
	mux.HandleFunc("POST /missions/start", s.handleMissionStart)
	mux.HandleFunc("POST /missions/reset", s.handleMissionReset)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}
	return mux
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.setStatus(ln.Addr().String(), true)
	s.log.Info("admin API listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		s.setStatus(addr, false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.setStatus(addr, false)
	if s.hub != nil {
		_ = s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setStatus(addr string, up bool) {
	if s.status != nil {
		s.status.SetAdminStatus(addr, up)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// errorStatus maps domain errors onto HTTP codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, geo.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, fleet.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, replay.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, planner.ErrNoRoute):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// do runs fn on the simulator goroutine and reports a failure to post.
func (s *Server) do(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := s.Sim.Do(r.Context(), fn); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return false
	}
	return true
}

func (s *Server) handleDrones(w http.ResponseWriter, r *http.Request) {
	var drones []fleet.Drone
	if s.do(w, r, func() { drones = s.Sim.Snapshot() }) {
		writeJSON(w, http.StatusOK, drones)
	}
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	var stations []fleet.Station
	if s.do(w, r, func() { stations = s.Sim.Stations() }) {
		writeJSON(w, http.StatusOK, stations)
	}
}

type dispatchResponse struct {
	Drone      string `json:"drone"`
	Dispatched bool   `json:"dispatched"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	var ok bool
	var err error
	if !s.do(w, r, func() { ok, err = s.Sim.Send(id) }) {
		return
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Drone: id, Dispatched: ok})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLon != nil || errLat != nil {
		writeError(w, http.StatusBadRequest, errors.New("lon and lat must be numbers"))
		return
	}
	var ok bool
	var err error
	if !s.do(w, r, func() { ok, err = s.Sim.Move(id, geo.Pt(lon, lat)) }) {
		return
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dispatchResponse{Drone: id, Dispatched: ok})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if s.do(w, r, func() { s.Sim.Cancel(id) }) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleETA(w http.ResponseWriter, r *http.Request) {
	var rows []fleet.ETA
	if s.do(w, r, func() { rows = s.Sim.ETAs() }) {
		writeJSON(w, http.StatusOK, rows)
	}
}

func queryPoint(r *http.Request) (geo.Point, error) {
	q := r.URL.Query()
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLon != nil || errLat != nil {
		return geo.Point{}, errors.New("lon and lat must be numbers")
	}
	return geo.Pt(lon, lat), nil
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var st fleet.Station
	if !s.do(w, r, func() { st, err = s.Sim.NearestStation(p) }) {
		return
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handlePlan runs off the loop; the planner only reads immutable state.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	route, err := s.Sim.PlanRoute(p)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	var body []byte
	var err error
	if !s.do(w, r, func() { body, err = s.Sim.PathGeoJSON(id) }) {
		return
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(body)
}

func (s *Server) handleActiveAlert(w http.ResponseWriter, r *http.Request) {
	var ev alert.Event
	var ok bool
	if !s.do(w, r, func() { ev, ok = s.Sim.ActiveAlert() }) {
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	var ok bool
	if s.do(w, r, func() { ok = s.Sim.DismissAlert() }) {
		writeJSON(w, http.StatusOK, map[string]bool{"dismissed": ok})
	}
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	var ids []string
	var step int
	var running bool
	if s.do(w, r, func() {
		ids = s.Sim.Missions()
		step, running = s.Sim.MissionStep()
	}) {
		writeJSON(w, http.StatusOK, map[string]any{"missions": ids, "step": step, "running": running})
	}
}

func (s *Server) handleMissionStart(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	var err error
	if !s.do(w, r, func() { err = s.Sim.StartMission(id, nil) }) {
		return
	}
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMissionReset(w http.ResponseWriter, r *http.Request) {
	if s.do(w, r, func() { s.Sim.ResetMission() }) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var st telemetry.DispatchStateRow
	if s.do(w, r, func() { st = s.Sim.State() }) {
		writeJSON(w, http.StatusOK, st)
	}
}
