package monitor

import (
	"fmt"
	"image/color"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// handleTrajectoryPlot renders the best-candidate trajectory (X/Y ground
// track) as a PNG. Useful for a quick look at the estimate path after a
// replayed flight without exporting the observation table.
func (ws *WebServer) handleTrajectoryPlot(w http.ResponseWriter, r *http.Request) {
	trajectory := ws.history.Trajectory()
	if len(trajectory) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no trajectory samples available")
		return
	}

	pts := make(plotter.XYs, 0, len(trajectory))
	for _, rec := range trajectory {
		pts = append(pts, plotter.XY{X: rec.Position.X, Y: rec.Position.Y})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Target Trajectory (%d samples)", len(pts))
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("build line: %v", err))
		return
	}
	line.Color = color.RGBA{R: 0x26, G: 0x82, B: 0x8e, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("estimate", line)
	p.Legend.Top = true

	// Mark the latest position.
	last := pts[len(pts)-1:]
	scatter, err := plotter.NewScatter(last)
	if err == nil {
		scatter.GlyphStyle.Color = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 255}
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add("latest", scatter)
	}

	wt, err := p.WriterTo(10*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render plot: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// Client likely went away mid-write; nothing to recover.
		return
	}
}
