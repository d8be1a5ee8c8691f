package models

import "time"

// PlaceSummary describes one important place found by density clustering.
type PlaceSummary struct {
	Cluster    int     `json:"cluster"`
	PointCount int     `json:"pointCount"`
	CenterLat  float64 `json:"centerLat"`
	CenterLon  float64 `json:"centerLon"`
}

// StaySummary aggregates the stay-point detection output.
type StaySummary struct {
	GroupCount      int            `json:"groupCount"`
	MeanDurationMin float64        `json:"meanDurationMin"`
	TopClusters     []PlaceSummary `json:"topClusters"` // up to 3, ranked by visit count
}

// AnalysisResult is an immutable aggregate snapshot of one analyzed table.
// Artifacts maps chart name to the resource id returned by the note store.
type AnalysisResult struct {
	Scope        string           `json:"scope"`
	StartTime    time.Time        `json:"startTime"`
	EndTime      time.Time        `json:"endTime"`
	PointCount   int              `json:"pointCount"`
	DayCount     int              `json:"dayCount"`
	DeviceCounts map[string]int   `json:"deviceCounts"`
	BBoxDiagonal float64          `json:"bboxDiagonalMeters"`
	GapCount     int              `json:"gapCount"`
	LongestGapH  float64          `json:"longestGapHours"`
	HourlyHist   [24]int          `json:"hourlyHist"`
	AccuracyMin  float64          `json:"accuracyMin"`  // NaN when no known accuracy
	AccuracyMax  float64          `json:"accuracyMax"`
	AccuracyMean float64          `json:"accuracyMean"`
	TopPlaces    []PlaceSummary   `json:"topPlaces"` // up to 5, ranked by point count
	Stays        StaySummary      `json:"stays"`
	Artifacts    map[string]string `json:"artifacts"`
}
