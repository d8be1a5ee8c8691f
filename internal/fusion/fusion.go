package fusion

import (
	"log"
	"math"
	"sort"
	"time"

	"github.com/heart5/happyjoplin-go/internal/models"
	"github.com/heart5/happyjoplin-go/internal/spatial"
)

// DefaultWindow is the fusion competition window width.
const DefaultWindow = 2 * time.Hour

const (
	scoreCap     = 100.0
	activityW    = 0.7
	spreadW      = 0.3
	stabilityEps = 1e-6
)

// deviceScore holds the per-window scoring breakdown for one device.
type deviceScore struct {
	activity  float64
	stability float64
	accuracy  float64
	composite float64
}

// FuseDevices resolves multi-device conflicts: records are grouped into
// floor-aligned windows, every contributing device is scored, and only the
// winning device's rows survive per window. Ties resolve to the lexically
// smallest device id so the output is deterministic.
func FuseDevices(table models.Table, window time.Duration) models.Table {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(table) == 0 {
		return nil
	}

	windows := make(map[int64]models.Table)
	for _, r := range table {
		key := r.Time.Unix() - r.Time.Unix()%int64(window.Seconds())
		windows[key] = append(windows[key], r)
	}

	keys := make([]int64, 0, len(windows))
	for k := range windows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out models.Table
	for _, k := range keys {
		rows := windows[k]
		byDevice := make(map[string]models.Table)
		for _, r := range rows {
			byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
		}

		winner := ""
		var best deviceScore
		for _, dev := range sortedDevices(byDevice) {
			s := scoreDevice(byDevice[dev])
			// Strictly-greater keeps the lexically first device on ties
			if winner == "" || s.composite > best.composite {
				winner = dev
				best = s
			}
		}

		for _, r := range byDevice[winner] {
			r.FusionScore = best.composite
			out = append(out, r)
		}
	}

	out.SortByTimeAsc()
	log.Printf("[Fusion] %d rows in, %d rows out across %d windows", len(table), len(out), len(keys))
	return out
}

func sortedDevices(byDevice map[string]models.Table) []string {
	devices := make([]string, 0, len(byDevice))
	for dev := range byDevice {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	return devices
}

// scoreDevice computes the composite score for one device's rows within a
// window: activity (travel rate and positional spread, both capped),
// stability (inverse coordinate deviation) and accuracy (inverse mean error).
// Single-device windows still go through here so diagnostics stay comparable.
func scoreDevice(rows models.Table) deviceScore {
	rows.SortByTimeAsc()

	var travel float64
	for i := 1; i < len(rows); i++ {
		travel += spatial.Haversine(rows[i-1].Latitude, rows[i-1].Longitude, rows[i].Latitude, rows[i].Longitude)
	}
	elapsed := rows[len(rows)-1].Time.Sub(rows[0].Time).Hours()
	rate := 0.0
	if elapsed > 0 {
		rate = travel / elapsed
	}
	if rate > scoreCap {
		rate = scoreCap
	}

	latStd, lonStd := coordStdDev(rows)
	// Degrees of latitude to meters; good enough at positional-noise scale
	spreadM := (latStd + lonStd) / 2 * 111320.0
	if spreadM > scoreCap {
		spreadM = scoreCap
	}

	s := deviceScore{
		activity:  rate*activityW + spreadM*spreadW,
		stability: 1 / (latStd + lonStd + stabilityEps),
	}

	var accSum float64
	accN := 0
	for _, r := range rows {
		if r.HasAccuracy() {
			accSum += r.Accuracy
			accN++
		}
	}
	meanAcc := 1.0
	if accN > 0 {
		meanAcc = math.Max(accSum/float64(accN), 1.0)
	}
	s.accuracy = 1 / meanAcc

	s.composite = s.activity * s.stability * s.accuracy
	return s
}

func coordStdDev(rows models.Table) (latStd, lonStd float64) {
	n := float64(len(rows))
	if n == 0 {
		return 0, 0
	}
	var latSum, lonSum float64
	for _, r := range rows {
		latSum += r.Latitude
		lonSum += r.Longitude
	}
	latMean := latSum / n
	lonMean := lonSum / n

	var latVar, lonVar float64
	for _, r := range rows {
		latVar += (r.Latitude - latMean) * (r.Latitude - latMean)
		lonVar += (r.Longitude - lonMean) * (r.Longitude - lonMean)
	}
	return math.Sqrt(latVar / n), math.Sqrt(lonVar / n)
}
