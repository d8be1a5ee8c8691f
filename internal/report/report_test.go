package report

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart5/happyjoplin-go/internal/models"
)

func chartFixture() models.Table {
	base := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	var table models.Table
	for i := 0; i < 48; i++ {
		table = append(table, models.LocationRecord{
			Time:        base.Add(time.Duration(i) * time.Hour),
			DeviceID:    "phone",
			Latitude:    39.9 + float64(i)*0.001,
			Longitude:   116.4 + float64(i)*0.001,
			SmoothedLat: 39.9 + float64(i)*0.001,
			SmoothedLon: 116.4 + float64(i)*0.001,
			Accuracy:    10 + float64(i%5),
			Segment:     i / 24,
			Cluster:     -1,
		})
	}
	return table
}

func TestChartsRenderPNG(t *testing.T) {
	table := chartFixture()
	for name, render := range Charts() {
		png, err := render(table, "monthly")
		require.NoError(t, err, "chart %s", name)
		require.Greater(t, len(png), 8, "chart %s", name)
		// PNG magic bytes
		assert.Equal(t, byte(0x89), png[0], "chart %s", name)
		assert.Equal(t, byte('P'), png[1], "chart %s", name)
	}
}

func TestChartsRejectEmptyTable(t *testing.T) {
	for name, render := range Charts() {
		_, err := render(nil, "monthly")
		assert.Error(t, err, "chart %s", name)
	}
}

func TestRenderAllIsolatesFailures(t *testing.T) {
	table := chartFixture()

	refs := RenderAll(table, "monthly", func(name string, png []byte) (string, error) {
		if name == "hourly" {
			return "", fmt.Errorf("upload exploded")
		}
		return "ref-" + name, nil
	})

	assert.NotContains(t, refs, "hourly")
	assert.Equal(t, "ref-trajectory", refs["trajectory"])
	assert.Equal(t, "ref-devices", refs["devices"])
}

func TestBuildFullReport(t *testing.T) {
	result := &models.AnalysisResult{
		Scope:        "monthly",
		StartTime:    time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
		PointCount:   1000,
		DayCount:     30,
		DeviceCounts: map[string]int{"phone": 900, "watch": 100},
		BBoxDiagonal: 12345,
		GapCount:     3,
		LongestGapH:  9.5,
		AccuracyMin:  5, AccuracyMax: 50, AccuracyMean: 12.5,
		TopPlaces: []models.PlaceSummary{{Cluster: 0, PointCount: 400, CenterLat: 39.9, CenterLon: 116.4}},
		Stays:     models.StaySummary{GroupCount: 12, MeanDurationMin: 95},
		Artifacts: map[string]string{"trajectory": "res-tr", "hourly": "res-h"},
	}

	body := Build(result)
	assert.Contains(t, body, Title("monthly"))
	assert.Contains(t, body, "Points: 1000 over 30 days")
	assert.Contains(t, body, "phone: 900 points (90.0%)")
	assert.Contains(t, body, "(:/res-tr)")
	assert.Contains(t, body, "(:/res-h)")
	assert.Contains(t, body, "12 stay groups")
	// Charts without a stored artifact are absent
	assert.NotContains(t, body, "devices")
}

func TestBuildEmptyResult(t *testing.T) {
	result := &models.AnalysisResult{
		Scope:        "yearly",
		DeviceCounts: map[string]int{},
		AccuracyMean: math.NaN(),
		Artifacts:    map[string]string{},
	}
	body := Build(result)
	assert.Contains(t, body, "No location data available")
}
