package report

import (
	"bytes"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/heart5/happyjoplin-go/internal/models"
)

// ChartFunc renders one chart over an enriched table. Each chart is
// independent: a failure is logged by the caller and only that report
// section is omitted.
type ChartFunc func(table models.Table, scope string) ([]byte, error)

// Charts is the render set for a report, keyed by artifact name.
func Charts() map[string]ChartFunc {
	return map[string]ChartFunc{
		"trajectory":   TrajectoryChart,
		"hourly":       HourlyChart,
		"devices":      DeviceShareChart,
		"accuracy":     AccuracyChart,
		"daily_points": DailyPointsChart,
	}
}

// RenderAll runs every chart function, storing successful renders through
// store and returning artifact name -> resource reference. Failed charts
// are skipped, not fatal.
func RenderAll(table models.Table, scope string, store func(name string, png []byte) (string, error)) map[string]string {
	refs := make(map[string]string)
	for name, render := range Charts() {
		png, err := render(table, scope)
		if err != nil {
			log.Printf("[Report] chart %s failed for scope %s: %v", name, scope, err)
			continue
		}
		ref, err := store(name, png)
		if err != nil {
			log.Printf("[Report] failed to store chart %s for scope %s: %v", name, scope, err)
			continue
		}
		refs[name] = ref
	}
	return refs
}

var segmentPalette = []drawing.Color{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 255},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
	{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	{R: 0x94, G: 0x67, B: 0xbd, A: 255},
	{R: 0x8c, G: 0x56, B: 0x4b, A: 255},
}

// TrajectoryChart draws the smoothed trajectory as one scatter series per
// segment, legend-labeled by each segment's start timestamp.
func TrajectoryChart(table models.Table, scope string) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}

	segments := make(map[int]models.Table)
	for _, r := range table {
		segments[r.Segment] = append(segments[r.Segment], r)
	}
	ids := make([]int, 0, len(segments))
	for id := range segments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var series []chart.Series
	for _, id := range ids {
		rows := segments[id]
		xs := make([]float64, len(rows))
		ys := make([]float64, len(rows))
		for i, r := range rows {
			xs[i] = r.SmoothedLon
			ys[i] = r.SmoothedLat
		}
		color := segmentPalette[id%len(segmentPalette)]
		series = append(series, chart.ContinuousSeries{
			Name:    rows[0].Time.Format("01-02 15:04"),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColor:    color,
			},
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Trajectory (%s)", scope),
		Width:  1024,
		Height: 768,
		Series: series,
	}
	if len(series) <= 12 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	return renderPNG(&graph)
}

// HourlyChart draws the hour-of-day histogram.
func HourlyChart(table models.Table, scope string) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}
	var hist [24]int
	for _, r := range table {
		hist[r.Time.Hour()]++
	}

	bars := make([]chart.Value, 24)
	for h, n := range hist {
		bars[h] = chart.Value{Label: fmt.Sprintf("%02d", h), Value: float64(n)}
	}
	graph := chart.BarChart{
		Title:    fmt.Sprintf("Points by hour (%s)", scope),
		Width:    1024,
		Height:   512,
		BarWidth: 30,
		Bars:     bars,
	}
	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// DeviceShareChart draws per-device point counts.
func DeviceShareChart(table models.Table, scope string) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}
	counts := make(map[string]int)
	for _, r := range table {
		counts[r.DeviceID]++
	}
	devices := make([]string, 0, len(counts))
	for dev := range counts {
		devices = append(devices, dev)
	}
	sort.Strings(devices)

	bars := make([]chart.Value, 0, len(devices))
	for _, dev := range devices {
		bars = append(bars, chart.Value{Label: dev, Value: float64(counts[dev])})
	}
	graph := chart.BarChart{
		Title:    fmt.Sprintf("Points by device (%s)", scope),
		Width:    1024,
		Height:   512,
		BarWidth: 60,
		Bars:     bars,
	}
	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// AccuracyChart draws the accuracy time series over known readings.
func AccuracyChart(table models.Table, scope string) ([]byte, error) {
	var xs []time.Time
	var ys []float64
	for _, r := range table {
		if r.HasAccuracy() {
			xs = append(xs, r.Time)
			ys = append(ys, r.Accuracy)
		}
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("not enough accuracy readings")
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Accuracy (%s)", scope),
		Width:  1024,
		Height: 512,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("01-02")},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "accuracy (m)",
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return renderPNG(&graph)
}

// DailyPointsChart draws the per-day point count series.
func DailyPointsChart(table models.Table, scope string) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}
	counts := make(map[string]int)
	for _, r := range table {
		counts[r.Time.Format("2006-01-02")] = counts[r.Time.Format("2006-01-02")] + 1
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	if len(days) < 2 {
		return nil, fmt.Errorf("not enough days to plot")
	}

	xs := make([]time.Time, len(days))
	ys := make([]float64, len(days))
	for i, d := range days {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, fmt.Errorf("failed to parse day key: %w", err)
		}
		xs[i] = t
		ys[i] = float64(counts[d])
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Points per day (%s)", scope),
		Width:  1024,
		Height: 512,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("01-02")},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "points",
				XValues: xs,
				YValues: ys,
			},
		},
	}
	return renderPNG(&graph)
}

func renderPNG(graph *chart.Chart) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}
