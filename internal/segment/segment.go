package segment

import (
	"log"
	"time"

	"github.com/heart5/happyjoplin-go/internal/models"
	"github.com/heart5/happyjoplin-go/internal/spatial"
)

// Options controls gap detection.
type Options struct {
	DayThresholdMin   float64 // gap threshold during working hours, minutes
	NightThresholdMin float64 // gap threshold at night and on Sundays, minutes
	StayDistanceM     float64 // displacement below which a long pause counts as a gap
}

// DefaultOptions matches the production thresholds.
func DefaultOptions() Options {
	return Options{
		DayThresholdMin:   30,
		NightThresholdMin: 360,
		StayDistanceM:     200,
	}
}

// ByTimeGaps sorts the table by time and assigns TimeDiffMin, DistChange,
// BigGap, DeviceChange and a monotonically increasing Segment id. A big gap
// is a long pause with negligible movement; a fast device hand-off that
// covers real distance does not split the segment, but a device change
// always does.
func ByTimeGaps(table models.Table, opts Options) models.Table {
	out := table.Clone()
	out.SortByTimeAsc()

	seg := 0
	for i := range out {
		if i == 0 {
			out[i].TimeDiffMin = 0
			out[i].DistChange = 0
			out[i].BigGap = false
			out[i].DeviceChange = false
			out[i].Segment = seg
			continue
		}
		prev := out[i-1]
		out[i].TimeDiffMin = out[i].Time.Sub(prev.Time).Minutes()
		out[i].DistChange = spatial.Haversine(prev.Latitude, prev.Longitude, out[i].Latitude, out[i].Longitude)

		threshold := opts.NightThresholdMin
		if isDaytime(out[i].Time) {
			threshold = opts.DayThresholdMin
		}

		out[i].BigGap = out[i].TimeDiffMin > threshold && out[i].DistChange < opts.StayDistanceM
		out[i].DeviceChange = out[i].DeviceID != prev.DeviceID

		if out[i].BigGap || out[i].DeviceChange {
			seg++
		}
		out[i].Segment = seg
	}

	log.Printf("[Segment] %d rows split into %d segments", len(out), seg+1)
	return out
}

// isDaytime reports whether the day threshold applies: 08:00-20:00 on
// Monday through Saturday. Sunday always uses the night threshold.
func isDaytime(t time.Time) bool {
	h := t.Hour()
	return h >= 8 && h <= 20 && t.Weekday() != time.Sunday
}
