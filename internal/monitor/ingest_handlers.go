package monitor

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/banshee-data/targetfusion/internal/camera"
	"github.com/banshee-data/targetfusion/internal/fusion"
)

// cameraInfoRequest is the JSON body for POST /api/fusion/camera_info.
type cameraInfoRequest struct {
	Fx         float64   `json:"fx"`
	Fy         float64   `json:"fy"`
	Cx         float64   `json:"cx"`
	Cy         float64   `json:"cy"`
	Distortion []float64 `json:"distortion,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

// bundleRequest is the JSON body for POST /api/fusion/bundle. Depth is
// optional; when present it carries the row-major float32 plane as
// base64-encoded little-endian bytes.
type bundleRequest struct {
	StampUnixNanos int64                `json:"stamp_unix_nanos"`
	FrameID        string               `json:"frame_id"`
	Detections     []camera.Detection2D `json:"detections"`
	RGBPresent     bool                 `json:"rgb_present"`
	Depth          *depthPayload        `json:"depth,omitempty"`
}

type depthPayload struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   string `json:"data"`
}

func (p *depthPayload) decode() (*camera.DepthImage, error) {
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode depth data: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("depth data length %d not a multiple of 4", len(raw))
	}
	data := make([]float32, len(raw)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return camera.DepthImageFrom(p.Width, p.Height, data)
}

// handleCameraInfo delivers camera intrinsics to the engine. The first
// valid calibration wins; repeats are accepted and ignored.
func (ws *WebServer) handleCameraInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req cameraInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode camera info: %v", err))
		return
	}

	ws.engine.HandleCameraInfo(camera.Intrinsics{
		Fx:         req.Fx,
		Fy:         req.Fy,
		Cx:         req.Cx,
		Cy:         req.Cy,
		Distortion: req.Distortion,
		Width:      req.Width,
		Height:     req.Height,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleBundle delivers one synchronized detection bundle to the engine.
// The perception stack posts here once per frame; synchronization happens
// upstream, never in this service.
func (ws *WebServer) handleBundle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req bundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode bundle: %v", err))
		return
	}
	if req.FrameID == "" {
		ws.writeJSONError(w, http.StatusBadRequest, "missing 'frame_id' field")
		return
	}

	b := fusion.Bundle{
		Stamp:      time.Unix(0, req.StampUnixNanos),
		FrameID:    req.FrameID,
		Detections: req.Detections,
		RGBPresent: req.RGBPresent,
	}
	if req.StampUnixNanos == 0 {
		b.Stamp = time.Now()
	}
	if req.Depth != nil {
		depth, err := req.Depth.decode()
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("bad depth payload: %v", err))
			return
		}
		b.Depth = depth
	}

	ws.engine.HandleBundle(b)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"detections": len(req.Detections),
	})
}
