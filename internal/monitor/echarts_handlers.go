package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// handleEvalChart renders the estimate-vs-ground-truth distance over time
// using go-echarts. This is a debugging-only endpoint (no auth) to eyeball
// convergence during a trial without pulling the JSON into a notebook.
// Query params:
//   - limit (optional; default all retained samples)
func (ws *WebServer) handleEvalChart(w http.ResponseWriter, r *http.Request) {
	evals := ws.history.Evals()
	if len(evals) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no eval samples available")
		return
	}

	xs := make([]string, 0, len(evals))
	dist := make([]opts.LineData, 0, len(evals))
	dz := make([]opts.LineData, 0, len(evals))
	for _, e := range evals {
		xs = append(xs, e.Stamp.Format("15:04:05.000"))
		dist = append(dist, opts.LineData{Value: e.Distance})
		dz = append(dz, opts.LineData{Value: e.DeltaZ})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Fusion Eval", Theme: "dark", Width: "1200px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Estimate Error vs Ground Truth", Subtitle: fmt.Sprintf("samples=%d latest=%s", len(evals), evals[len(evals)-1].Stamp.Format(time.RFC3339))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "meters"}),
	)

	line.SetXAxis(xs).
		AddSeries("distance", dist).
		AddSeries("delta z", dz).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
