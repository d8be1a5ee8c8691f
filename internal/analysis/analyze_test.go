package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart5/happyjoplin-go/internal/models"
)

func TestAnalyzeEmptyTable(t *testing.T) {
	result := Analyze(nil, "monthly")
	require.NotNil(t, result)
	assert.Equal(t, "monthly", result.Scope)
	assert.Zero(t, result.PointCount)
	assert.True(t, math.IsNaN(result.AccuracyMean))
	assert.Empty(t, result.TopPlaces)
	assert.Zero(t, result.Stays.GroupCount)
}

func TestAnalyzeStatistics(t *testing.T) {
	base := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	table := models.Table{
		{Time: base, DeviceID: "phone", Latitude: 39.9, Longitude: 116.4, Accuracy: 10, Cluster: 0},
		{Time: base.Add(time.Hour), DeviceID: "phone", Latitude: 39.91, Longitude: 116.41, Accuracy: math.NaN(), Cluster: 0},
		{Time: base.Add(25 * time.Hour), DeviceID: "watch", Latitude: 39.92, Longitude: 116.42, Accuracy: 20, Cluster: 1,
			BigGap: true, TimeDiffMin: 24 * 60},
	}

	result := Analyze(table, "quarterly")

	assert.Equal(t, 3, result.PointCount)
	assert.Equal(t, 2, result.DayCount)
	assert.Equal(t, 2, result.DeviceCounts["phone"])
	assert.Equal(t, 1, result.DeviceCounts["watch"])
	assert.True(t, result.StartTime.Equal(base))
	assert.True(t, result.EndTime.Equal(base.Add(25*time.Hour)))

	// Unknown accuracy is excluded from the statistics, not treated as zero
	assert.InDelta(t, 15.0, result.AccuracyMean, 1e-9)
	assert.InDelta(t, 10.0, result.AccuracyMin, 1e-9)
	assert.InDelta(t, 20.0, result.AccuracyMax, 1e-9)

	assert.Equal(t, 1, result.GapCount)
	assert.InDelta(t, 24.0, result.LongestGapH, 1e-9)

	assert.Equal(t, 1, result.HourlyHist[8])
	assert.Equal(t, 2, result.HourlyHist[9]) // 09:00 on both days
	assert.Greater(t, result.BBoxDiagonal, 0.0)
}

func TestAnalyzeTopPlacesRanking(t *testing.T) {
	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	var table models.Table
	add := func(cluster, n int, lat, lon float64) {
		for i := 0; i < n; i++ {
			table = append(table, models.LocationRecord{
				Time: base.Add(time.Duration(len(table)) * time.Minute), DeviceID: "phone",
				Latitude: lat, Longitude: lon, Accuracy: math.NaN(), Cluster: cluster,
			})
		}
	}
	add(0, 3, 39.9, 116.4)
	add(1, 10, 31.2, 121.4)
	add(2, 5, 22.5, 114.0)
	add(-1, 4, 45.0, 100.0) // noise never ranks

	result := Analyze(table, "yearly")
	require.Len(t, result.TopPlaces, 3)
	assert.Equal(t, 1, result.TopPlaces[0].Cluster)
	assert.Equal(t, 10, result.TopPlaces[0].PointCount)
	assert.InDelta(t, 31.2, result.TopPlaces[0].CenterLat, 1e-9)
	assert.Equal(t, 2, result.TopPlaces[1].Cluster)
	assert.Equal(t, 0, result.TopPlaces[2].Cluster)
}

func TestAnalyzeStaySummary(t *testing.T) {
	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	table := models.Table{
		{Time: base, DeviceID: "phone", IsStay: true, StayGroup: 0, StayDuration: 30, Cluster: 2, Accuracy: math.NaN()},
		{Time: base.Add(time.Minute), DeviceID: "phone", IsStay: true, StayGroup: 0, StayDuration: 30, Cluster: 2, Accuracy: math.NaN()},
		{Time: base.Add(time.Hour), DeviceID: "phone", IsStay: true, StayGroup: 1, StayDuration: 10, Cluster: 2, Accuracy: math.NaN()},
		{Time: base.Add(2 * time.Hour), DeviceID: "phone", IsStay: false, StayGroup: 2, Accuracy: math.NaN()},
	}

	result := Analyze(table, "monthly")
	assert.Equal(t, 2, result.Stays.GroupCount)
	assert.InDelta(t, 20.0, result.Stays.MeanDurationMin, 1e-9)
	require.NotEmpty(t, result.Stays.TopClusters)
	assert.Equal(t, 2, result.Stays.TopClusters[0].Cluster)
	assert.Equal(t, 2, result.Stays.TopClusters[0].PointCount) // two distinct stays at this cluster
}
