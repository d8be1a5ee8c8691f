package models

import (
	"math"
	"sort"
	"time"
)

// LocationRecord represents a single GPS sample from one device.
// Derived fields are filled in by the pipeline stages in order:
// smoothing, fusion, segmentation, clustering, stay detection.
type LocationRecord struct {
	Time      time.Time `json:"time"`
	DeviceID  string    `json:"deviceId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"` // meters, NaN when unknown
	Accuracy  float64   `json:"accuracy"` // meters, NaN when unknown

	// Derived fields
	SmoothedLat  float64 `json:"smoothedLat,omitempty"`
	SmoothedLon  float64 `json:"smoothedLon,omitempty"`
	FusionScore  float64 `json:"fusionScore,omitempty"`  // composite score of the window-winning device
	TimeDiffMin  float64 `json:"timeDiffMin,omitempty"`  // minutes since previous record
	DistChange   float64 `json:"distChange,omitempty"`   // meters from previous record
	BigGap       bool    `json:"bigGap,omitempty"`
	DeviceChange bool    `json:"deviceChange,omitempty"`
	Segment      int     `json:"segment"`
	Cluster      int     `json:"cluster"`              // -1 = noise / not clustered
	StayGroup    int     `json:"stayGroup,omitempty"`
	IsStay       bool    `json:"isStay,omitempty"`
	StayDuration float64 `json:"stayDurationMin,omitempty"` // minutes, broadcast over the stay group
}

// HasAccuracy reports whether the accuracy reading is known.
func (r *LocationRecord) HasAccuracy() bool {
	return !math.IsNaN(r.Accuracy)
}

// Table is a chronologically ordered collection of location records,
// possibly spanning multiple devices.
type Table []LocationRecord

// SortByTimeAsc sorts the table by time ascending, device id as tie-break
// so ordering stays deterministic for same-second samples.
func (t Table) SortByTimeAsc() {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Time.Equal(t[j].Time) {
			return t[i].DeviceID < t[j].DeviceID
		}
		return t[i].Time.Before(t[j].Time)
	})
}

// SortByTimeDesc sorts the table by time descending.
func (t Table) SortByTimeDesc() {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].Time.Equal(t[j].Time) {
			return t[i].DeviceID < t[j].DeviceID
		}
		return t[i].Time.After(t[j].Time)
	})
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// TimeRange returns the earliest and latest timestamps in the table.
// ok is false for an empty table.
func (t Table) TimeRange() (min, max time.Time, ok bool) {
	if len(t) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = t[0].Time, t[0].Time
	for _, r := range t[1:] {
		if r.Time.Before(min) {
			min = r.Time
		}
		if r.Time.After(max) {
			max = r.Time
		}
	}
	return min, max, true
}
