// Package monitor provides the HTTP interface for observing and steering a
// fusion run: JSON state endpoints, debug charts, trajectory plots, and a
// websocket pose stream.
package monitor

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/targetfusion/internal/camera"
	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/fusion"
	"github.com/banshee-data/targetfusion/internal/fusiondb"
	"github.com/banshee-data/targetfusion/internal/geom"
	"github.com/banshee-data/targetfusion/internal/version"
)

//go:embed status.html
var StatusHTML embed.FS

// Engine is the part of the fusion engine the monitor talks to.
type Engine interface {
	Snapshot() fusion.Snapshot
	HandlePhaseOverride(phase string) error
	HandleCameraInfo(in camera.Intrinsics)
	HandleBundle(b fusion.Bundle)
}

// WebServer handles the HTTP interface for monitoring a fusion run.
// It also implements fusion.OutputPort so the engine's emissions land in
// its history rings and websocket hub.
type WebServer struct {
	address string
	engine  Engine
	store   *fusiondb.Store
	history *History
	hub     *poseHub
	server  *http.Server
	started time.Time
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Engine  Engine
	// Store is optional; without it the observation endpoints report 503.
	Store *fusiondb.Store
	// EvalHistory caps the eval ring; zero means the default.
	EvalHistory int
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		engine:  config.Engine,
		store:   config.Store,
		history: NewHistory(0, config.EvalHistory),
		hub:     newPoseHub(),
		started: time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// History exposes the server's output rings, mainly for tests.
func (ws *WebServer) History() *History { return ws.history }

// SetEngine attaches the engine after construction. The server is an
// output port of the engine, so one of the two must be bound late; call
// this before Start.
func (ws *WebServer) SetEngine(e Engine) { ws.engine = e }

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/fusion/state", ws.handleState)
	mux.HandleFunc("/api/fusion/candidates", ws.handleCandidates)
	mux.HandleFunc("/api/fusion/eval", ws.handleEval)
	mux.HandleFunc("/api/fusion/observations", ws.handleObservations)
	mux.HandleFunc("/api/fusion/phase", ws.handlePhaseOverride)
	mux.HandleFunc("/api/fusion/camera_info", ws.handleCameraInfo)
	mux.HandleFunc("/api/fusion/bundle", ws.handleBundle)
	mux.HandleFunc("/charts/eval", ws.handleEvalChart)
	mux.HandleFunc("/plots/trajectory.png", ws.handleTrajectoryPlot)
	mux.HandleFunc("/ws/pose", ws.handlePoseSocket)

	return mux
}

// handleHealth handles the health check endpoint.
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "fusion", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus handles the main status page endpoint.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	tmpl, err := template.ParseFS(StatusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	snap := ws.engine.Snapshot()

	runID := ""
	if ws.store != nil {
		runID = ws.store.RunID()
	}

	data := struct {
		HTTPAddress string
		Uptime      string
		RunID       string
		Snapshot    fusion.Snapshot
	}{
		HTTPAddress: ws.address,
		Uptime:      time.Since(ws.started).Round(time.Second).String(),
		RunID:       runID,
		Snapshot:    snap,
	}

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// handleState returns the full engine snapshot plus the most recent
// filtered-cloud summary.
func (ws *WebServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := ws.engine.Snapshot()

	out := struct {
		fusion.Snapshot
		RunID        string         `json:"run_id,omitempty"`
		CloudSummary *cloud.Summary `json:"cloud_summary,omitempty"`
	}{
		Snapshot:     snap,
		CloudSummary: ws.history.CloudSummary(),
	}
	if ws.store != nil {
		out.RunID = ws.store.RunID()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleCandidates returns the current candidate set.
func (ws *WebServer) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap := ws.engine.Snapshot()
	if snap.Candidates == nil {
		snap.Candidates = []fusion.CandidateView{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap.Candidates)
}

// handleEval returns the recent ground-truth comparison samples.
// Query params:
//
//	limit (optional, default all retained)
func (ws *WebServer) handleEval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	evals := ws.history.Evals()
	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil && limit > 0 && limit < len(evals) {
			evals = evals[len(evals)-limit:]
		}
	}
	if evals == nil {
		evals = []EvalRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(evals)
}

// handleObservations returns the persisted observations of the current run.
func (ws *WebServer) handleObservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.store == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no database configured for this run")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	obs, err := ws.store.GetObservations(limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("get observations: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(obs)
}

// handlePhaseOverride forces the state machine into a phase. This is the
// only way out of the too-near terminal phase.
// Expects POST with JSON body {"phase": "<phase>"} or form value `phase`.
func (ws *WebServer) handlePhaseOverride(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	phase := r.FormValue("phase")
	if phase == "" {
		var body struct {
			Phase string `json:"phase"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			phase = body.Phase
		}
	}
	if phase == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'phase' parameter")
		return
	}

	if err := ws.engine.HandlePhaseOverride(phase); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("override phase: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "phase": phase})
	log.Printf("phase override applied: %s", phase)
}

// PublishPose implements fusion.OutputPort.
func (ws *WebServer) PublishPose(kind fusion.PoseKind, p geom.StampedPoint, candidateID int64, confidence float64) {
	rec := PoseRecord{
		Kind:        kind,
		Position:    p.Point,
		FrameID:     p.FrameID,
		Stamp:       p.Stamp,
		CandidateID: candidateID,
		Confidence:  confidence,
	}
	ws.history.AddPose(rec)
	ws.hub.broadcast(rec)
}

// PublishFilteredCloud implements fusion.OutputPort.
func (ws *WebServer) PublishFilteredCloud(c cloud.Cloud) {
	ws.history.SetCloudSummary(cloud.Summarize(c))
}

// PublishEval implements fusion.OutputPort.
func (ws *WebServer) PublishEval(s fusion.EvalSample) {
	ws.history.AddEval(EvalRecord{
		Stamp:       s.Stamp,
		CandidateID: s.CandidateID,
		DeltaX:      s.Delta.X,
		DeltaY:      s.Delta.Y,
		DeltaZ:      s.Delta.Z,
		Distance:    s.Distance,
	})
}

// Close shuts down the web server.
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
