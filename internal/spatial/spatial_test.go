package spatial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart5/happyjoplin-go/internal/models"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Beijing -> Shanghai, roughly 1067 km
	d := Haversine(39.9042, 116.4074, 31.2304, 121.4737)
	assert.InDelta(t, 1067000, d, 10000)

	assert.InDelta(t, 0, Haversine(39.9, 116.4, 39.9, 116.4), 1e-9)
}

func TestSmoothCoordinatesCenteredMean(t *testing.T) {
	table := models.Table{
		{Latitude: 10, Longitude: 0},
		{Latitude: 20, Longitude: 0},
		{Latitude: 30, Longitude: 0},
		{Latitude: 40, Longitude: 0},
		{Latitude: 50, Longitude: 0},
	}
	SmoothCoordinates(table, 3)

	// Edges shrink to the available window, no NaN introduced
	assert.InDelta(t, 15, table[0].SmoothedLat, 1e-9)
	assert.InDelta(t, 20, table[1].SmoothedLat, 1e-9)
	assert.InDelta(t, 30, table[2].SmoothedLat, 1e-9)
	assert.InDelta(t, 45, table[4].SmoothedLat, 1e-9)
}

func TestSmoothCoordinatesSinglePoint(t *testing.T) {
	table := models.Table{{Latitude: 39.9, Longitude: 116.4}}
	SmoothCoordinates(table, 5)
	assert.InDelta(t, 39.9, table[0].SmoothedLat, 1e-9)
	assert.InDelta(t, 116.4, table[0].SmoothedLon, 1e-9)
}

func clusterFixture() models.Table {
	var table models.Table
	// Dense cluster near Beijing
	for i := 0; i < 20; i++ {
		table = append(table, models.LocationRecord{
			Latitude:  39.9000 + float64(i%5)*0.0001,
			Longitude: 116.4000 + float64(i/5)*0.0001,
		})
	}
	// Dense cluster near Shanghai
	for i := 0; i < 20; i++ {
		table = append(table, models.LocationRecord{
			Latitude:  31.2300 + float64(i%5)*0.0001,
			Longitude: 121.4700 + float64(i/5)*0.0001,
		})
	}
	// Isolated noise points
	table = append(table,
		models.LocationRecord{Latitude: 45.0, Longitude: 100.0},
		models.LocationRecord{Latitude: -20.0, Longitude: 30.0},
	)
	return table
}

func TestIdentifyImportantPlacesFindsClusters(t *testing.T) {
	table := clusterFixture()
	IdentifyImportantPlaces(table, ClusterOptions{RadiusKm: 0.2, MinPoints: 5})

	clusters := make(map[int]int)
	for _, r := range table {
		clusters[r.Cluster]++
	}
	assert.Equal(t, 2, clusters[-1], "isolated points must stay noise")

	delete(clusters, -1)
	require.Len(t, clusters, 2)
	for id, n := range clusters {
		assert.Equal(t, 20, n, "cluster %d", id)
	}
}

func TestClusterDeterminismWithSeed(t *testing.T) {
	first := clusterFixture()
	second := clusterFixture()

	opts := ClusterOptions{RadiusKm: 0.2, MinPoints: 5, SampleSize: 30, Seed: 7}
	IdentifyImportantPlaces(first, opts)
	IdentifyImportantPlaces(second, opts)

	for i := range first {
		assert.Equal(t, first[i].Cluster, second[i].Cluster, "row %d", i)
	}
}

func TestClusterNoSubsamplingCoversAllPoints(t *testing.T) {
	table := clusterFixture()
	// sampleSize >= row count means no subsampling at all
	IdentifyImportantPlaces(table, ClusterOptions{RadiusKm: 0.2, MinPoints: 5, SampleSize: len(table)})

	clustered := 0
	for _, r := range table {
		if r.Cluster >= 0 {
			clustered++
		}
	}
	assert.Equal(t, 40, clustered)
}

func TestIdentifyStayPointsGroupsAndDurations(t *testing.T) {
	base := time.Date(2024, 7, 3, 21, 0, 0, 0, time.UTC)
	table := models.Table{
		{Time: base, SmoothedLat: 39.900000, SmoothedLon: 116.400000, TimeDiffMin: 0},
		{Time: base.Add(1 * time.Minute), SmoothedLat: 39.900010, SmoothedLon: 116.400010, TimeDiffMin: 1},
		{Time: base.Add(3 * time.Minute), SmoothedLat: 39.900020, SmoothedLon: 116.400020, TimeDiffMin: 2},
		// far away: new group, isolated
		{Time: base.Add(63 * time.Minute), SmoothedLat: 39.950000, SmoothedLon: 116.450000, TimeDiffMin: 60},
	}

	IdentifyStayPoints(table, 200)

	assert.True(t, table[0].IsStay)
	assert.True(t, table[1].IsStay)
	assert.True(t, table[2].IsStay)
	assert.False(t, table[3].IsStay)

	assert.Equal(t, table[0].StayGroup, table[2].StayGroup)
	assert.NotEqual(t, table[2].StayGroup, table[3].StayGroup)

	// Duration is the sum of the group's time deltas, broadcast to members
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 3.0, table[i].StayDuration, 1e-9)
	}
	assert.Zero(t, table[3].StayDuration)
}

func TestStayGroupDistanceBound(t *testing.T) {
	base := time.Date(2024, 7, 3, 21, 0, 0, 0, time.UTC)
	var table models.Table
	for i := 0; i < 30; i++ {
		table = append(table, models.LocationRecord{
			Time:        base.Add(time.Duration(i) * time.Minute),
			SmoothedLat: 39.9 + float64(i%7)*0.0003,
			SmoothedLon: 116.4 + float64(i%3)*0.0005,
			TimeDiffMin: 1,
		})
	}

	threshold := 200.0
	IdentifyStayPoints(table, threshold)

	for i := 1; i < len(table); i++ {
		if !table[i].IsStay || table[i].StayGroup != table[i-1].StayGroup {
			continue
		}
		d := Haversine(table[i-1].SmoothedLat, table[i-1].SmoothedLon, table[i].SmoothedLat, table[i].SmoothedLon)
		assert.Less(t, d, threshold, "row %d", i)
	}
}

func TestIdentifyStayPointsEmptyTable(t *testing.T) {
	IdentifyStayPoints(nil, 200) // must not panic
}
