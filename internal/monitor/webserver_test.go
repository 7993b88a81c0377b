package monitor

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/targetfusion/internal/camera"
	"github.com/banshee-data/targetfusion/internal/cloud"
	"github.com/banshee-data/targetfusion/internal/fusion"
	"github.com/banshee-data/targetfusion/internal/geom"
	"github.com/banshee-data/targetfusion/internal/testutil"
)

// fakeEngine records everything the monitor forwards to it.
type fakeEngine struct {
	snap        fusion.Snapshot
	overrides   []string
	overrideErr error
	intrinsics  []camera.Intrinsics
	bundles     []fusion.Bundle
}

func (f *fakeEngine) Snapshot() fusion.Snapshot { return f.snap }

func (f *fakeEngine) HandlePhaseOverride(phase string) error {
	if f.overrideErr != nil {
		return f.overrideErr
	}
	f.overrides = append(f.overrides, phase)
	return nil
}

func (f *fakeEngine) HandleCameraInfo(in camera.Intrinsics) {
	f.intrinsics = append(f.intrinsics, in)
}

func (f *fakeEngine) HandleBundle(b fusion.Bundle) {
	f.bundles = append(f.bundles, b)
}

func newTestServer(engine *fakeEngine) (*WebServer, http.Handler) {
	ws := NewWebServer(WebServerConfig{Address: ":0", Engine: engine})
	return ws, ws.setupRoutes()
}

func TestHandleHealth(t *testing.T) {
	_, mux := newTestServer(&fakeEngine{})

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/health"))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"status": "ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandleStatusPage(t *testing.T) {
	engine := &fakeEngine{snap: fusion.Snapshot{Phase: fusion.PhaseVisualWithDepth}}
	_, mux := newTestServer(engine)

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/"))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if !strings.Contains(w.Body.String(), string(fusion.PhaseVisualWithDepth)) {
		t.Error("status page missing the active phase")
	}

	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/nosuchpage"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestHandleState(t *testing.T) {
	engine := &fakeEngine{snap: fusion.Snapshot{
		Phase:       fusion.PhaseOnlyDepthDetection,
		BundlesSeen: 7,
	}}
	ws, mux := newTestServer(engine)
	ws.PublishFilteredCloud(cloud.Cloud{Points: []geom.Vec3{{Z: 1}, {Z: 3}}})

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/api/fusion/state"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var out struct {
		Phase        string         `json:"phase"`
		BundlesSeen  int64          `json:"bundles_seen"`
		CloudSummary *cloud.Summary `json:"cloud_summary"`
	}
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	if out.Phase != string(fusion.PhaseOnlyDepthDetection) || out.BundlesSeen != 7 {
		t.Errorf("state = %+v", out)
	}
	if out.CloudSummary == nil || out.CloudSummary.Count != 2 {
		t.Errorf("cloud summary = %+v", out.CloudSummary)
	}

	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("POST", "/api/fusion/state"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

func TestHandleCandidatesEmpty(t *testing.T) {
	_, mux := newTestServer(&fakeEngine{})

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/api/fusion/candidates"))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("empty candidate list = %q, want []", w.Body.String())
	}
}

func TestHandleEvalLimit(t *testing.T) {
	ws, mux := newTestServer(&fakeEngine{})
	for i := 0; i < 5; i++ {
		ws.PublishEval(fusion.EvalSample{CandidateID: int64(i), Distance: float64(i)})
	}

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/api/fusion/eval?limit=2"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var evals []EvalRecord
	testutil.AssertNoError(t, json.Unmarshal(w.Body.Bytes(), &evals))
	if len(evals) != 2 {
		t.Fatalf("evals = %d, want 2", len(evals))
	}
	if evals[0].CandidateID != 3 || evals[1].CandidateID != 4 {
		t.Errorf("limit kept wrong samples: %v", evals)
	}
}

func TestHandleObservationsWithoutStore(t *testing.T) {
	_, mux := newTestServer(&fakeEngine{})

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/api/fusion/observations"))
	testutil.AssertStatusCode(t, w.Code, http.StatusServiceUnavailable)
}

func TestHandlePhaseOverrideForm(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	form := url.Values{"phase": {string(fusion.PhaseNoDetection)}}
	req := httptest.NewRequest("POST", "/api/fusion/phase", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if len(engine.overrides) != 1 || engine.overrides[0] != string(fusion.PhaseNoDetection) {
		t.Errorf("overrides = %v", engine.overrides)
	}
}

func TestHandlePhaseOverrideJSON(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	body := strings.NewReader(`{"phase":"only_depth_detection"}`)
	req := httptest.NewRequest("POST", "/api/fusion/phase", body)
	req.Header.Set("Content-Type", "application/json")

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if len(engine.overrides) != 1 || engine.overrides[0] != "only_depth_detection" {
		t.Errorf("overrides = %v", engine.overrides)
	}
}

func TestHandlePhaseOverrideErrors(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	// Method not allowed.
	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/api/fusion/phase"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)

	// Missing phase.
	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/phase", strings.NewReader("{}")))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)

	// Engine rejects the phase.
	engine.overrideErr = fmt.Errorf("unknown phase")
	body := strings.NewReader(`{"phase":"descend"}`)
	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/phase", body))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestHandleCameraInfo(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	body := strings.NewReader(`{"fx":500,"fy":500,"cx":320,"cy":240,"width":640,"height":480}`)
	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/camera_info", body))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if len(engine.intrinsics) != 1 {
		t.Fatalf("intrinsics delivered = %d, want 1", len(engine.intrinsics))
	}
	in := engine.intrinsics[0]
	if in.Fx != 500 || in.Cx != 320 || in.Width != 640 {
		t.Errorf("intrinsics = %+v", in)
	}

	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/api/fusion/camera_info"))
	testutil.AssertStatusCode(t, w.Code, http.StatusMethodNotAllowed)
}

func encodeDepth(data []float32) string {
	raw := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestHandleBundle(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	depth := encodeDepth([]float32{1.5, 2.5, 3.5, 4.5})
	body := fmt.Sprintf(`{
		"stamp_unix_nanos": 1700000000000000000,
		"frame_id": "depth_camera",
		"detections": [{"center_x":320,"center_y":240,"width":40,"height":40,"class":"box","score":0.9}],
		"rgb_present": true,
		"depth": {"width":2,"height":2,"data":%q}
	}`, depth)

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/bundle", strings.NewReader(body)))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if len(engine.bundles) != 1 {
		t.Fatalf("bundles delivered = %d, want 1", len(engine.bundles))
	}
	b := engine.bundles[0]
	if b.FrameID != "depth_camera" || !b.RGBPresent {
		t.Errorf("bundle = %+v", b)
	}
	if b.Stamp.UnixNano() != 1700000000000000000 {
		t.Errorf("stamp = %v", b.Stamp)
	}
	if len(b.Detections) != 1 || b.Detections[0].Class != "box" {
		t.Errorf("detections = %v", b.Detections)
	}
	if b.Depth == nil || b.Depth.At(1, 1) != 4.5 {
		t.Errorf("depth payload not decoded: %+v", b.Depth)
	}
}

func TestHandleBundleZeroStampDefaultsToNow(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	body := `{"frame_id":"depth_camera","detections":[]}`
	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/bundle", strings.NewReader(body)))

	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if len(engine.bundles) != 1 {
		t.Fatal("bundle not delivered")
	}
	if time.Since(engine.bundles[0].Stamp) > time.Minute {
		t.Errorf("zero stamp not defaulted: %v", engine.bundles[0].Stamp)
	}
}

func TestHandleBundleRejectsBadInput(t *testing.T) {
	engine := &fakeEngine{}
	_, mux := newTestServer(engine)

	// Missing frame_id.
	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/bundle", strings.NewReader(`{"detections":[]}`)))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)

	// Corrupt depth payload.
	body := `{"frame_id":"depth_camera","depth":{"width":2,"height":2,"data":"!!not-base64!!"}}`
	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("POST", "/api/fusion/bundle", strings.NewReader(body)))
	testutil.AssertStatusCode(t, w.Code, http.StatusBadRequest)

	if len(engine.bundles) != 0 {
		t.Errorf("rejected requests still delivered %d bundles", len(engine.bundles))
	}
}

func TestOutputPortFeedsHistory(t *testing.T) {
	ws, _ := newTestServer(&fakeEngine{})

	stamp := time.Now()
	ws.PublishPose(fusion.PoseBest, geom.NewStampedPoint(geom.Vec3{X: 1, Z: 2}, "earth", stamp), 3, 0.8)

	rec, ok := ws.History().Latest(fusion.PoseBest)
	if !ok {
		t.Fatal("pose not recorded")
	}
	if rec.Position.X != 1 || rec.CandidateID != 3 || rec.Confidence != 0.8 {
		t.Errorf("record = %+v", rec)
	}
	if len(ws.History().Trajectory()) != 1 {
		t.Error("best pose missing from trajectory")
	}

	ws.PublishEval(fusion.EvalSample{Stamp: stamp, CandidateID: 3, Delta: geom.Vec3{Z: 2}, Distance: 2})
	evals := ws.History().Evals()
	if len(evals) != 1 || evals[0].DeltaZ != 2 || evals[0].Distance != 2 {
		t.Errorf("evals = %v", evals)
	}
}

func TestEvalChart(t *testing.T) {
	ws, mux := newTestServer(&fakeEngine{})

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/charts/eval"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)

	ws.PublishEval(fusion.EvalSample{Stamp: time.Now(), Distance: 1.5})

	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/charts/eval"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %s", ct)
	}
}

func TestTrajectoryPlot(t *testing.T) {
	ws, mux := newTestServer(&fakeEngine{})

	w := testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/plots/trajectory.png"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)

	for i := 0; i < 3; i++ {
		ws.PublishPose(fusion.PoseBest, geom.NewStampedPoint(geom.Vec3{X: float64(i)}, "earth", time.Now()), 1, 0.9)
	}

	w = testutil.NewTestRecorder()
	mux.ServeHTTP(w, testutil.NewTestRequest("GET", "/plots/trajectory.png"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty plot body")
	}
}
