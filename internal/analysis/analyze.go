package analysis

import (
	"log"
	"math"
	"sort"

	"github.com/heart5/happyjoplin-go/internal/models"
	"github.com/heart5/happyjoplin-go/internal/spatial"
)

// Analyze computes the aggregate statistics snapshot for one enriched table.
// An empty table degrades to a zero-value result, never an error.
func Analyze(table models.Table, scope string) *models.AnalysisResult {
	result := &models.AnalysisResult{
		Scope:        scope,
		DeviceCounts: make(map[string]int),
		AccuracyMin:  math.NaN(),
		AccuracyMax:  math.NaN(),
		AccuracyMean: math.NaN(),
		Artifacts:    make(map[string]string),
	}
	if len(table) == 0 {
		log.Printf("[Analysis] Empty table for scope %s", scope)
		return result
	}

	start, end, _ := table.TimeRange()
	result.StartTime = start
	result.EndTime = end
	result.PointCount = len(table)

	days := make(map[string]struct{})
	var (
		minLat, maxLat = table[0].Latitude, table[0].Latitude
		minLon, maxLon = table[0].Longitude, table[0].Longitude
		accSum         float64
		accN           int
	)
	for _, r := range table {
		days[r.Time.Format("2006-01-02")] = struct{}{}
		result.DeviceCounts[r.DeviceID]++
		result.HourlyHist[r.Time.Hour()]++

		minLat = math.Min(minLat, r.Latitude)
		maxLat = math.Max(maxLat, r.Latitude)
		minLon = math.Min(minLon, r.Longitude)
		maxLon = math.Max(maxLon, r.Longitude)

		if r.HasAccuracy() {
			if accN == 0 || r.Accuracy < result.AccuracyMin {
				result.AccuracyMin = r.Accuracy
			}
			if accN == 0 || r.Accuracy > result.AccuracyMax {
				result.AccuracyMax = r.Accuracy
			}
			accSum += r.Accuracy
			accN++
		}

		if r.BigGap {
			result.GapCount++
			if gapH := r.TimeDiffMin / 60; gapH > result.LongestGapH {
				result.LongestGapH = gapH
			}
		}
	}
	result.DayCount = len(days)
	result.BBoxDiagonal = spatial.Haversine(minLat, minLon, maxLat, maxLon)
	if accN > 0 {
		result.AccuracyMean = accSum / float64(accN)
	}

	result.TopPlaces = topPlaces(table, 5)
	result.Stays = staySummary(table)

	log.Printf("[Analysis] scope=%s points=%d days=%d devices=%d gaps=%d",
		scope, result.PointCount, result.DayCount, len(result.DeviceCounts), result.GapCount)
	return result
}

// topPlaces ranks clusters by point count and returns up to n place
// summaries with mean coordinates. Noise points (cluster -1) are skipped.
func topPlaces(table models.Table, n int) []models.PlaceSummary {
	type acc struct {
		count  int
		latSum float64
		lonSum float64
	}
	clusters := make(map[int]*acc)
	for _, r := range table {
		if r.Cluster < 0 {
			continue
		}
		a := clusters[r.Cluster]
		if a == nil {
			a = &acc{}
			clusters[r.Cluster] = a
		}
		a.count++
		a.latSum += r.Latitude
		a.lonSum += r.Longitude
	}

	places := make([]models.PlaceSummary, 0, len(clusters))
	for id, a := range clusters {
		places = append(places, models.PlaceSummary{
			Cluster:    id,
			PointCount: a.count,
			CenterLat:  a.latSum / float64(a.count),
			CenterLon:  a.lonSum / float64(a.count),
		})
	}
	sort.Slice(places, func(i, j int) bool {
		if places[i].PointCount == places[j].PointCount {
			return places[i].Cluster < places[j].Cluster
		}
		return places[i].PointCount > places[j].PointCount
	})
	if len(places) > n {
		places = places[:n]
	}
	return places
}

// staySummary aggregates stay groups: distinct group count, mean duration
// and the top visited clusters among stay rows.
func staySummary(table models.Table) models.StaySummary {
	type group struct {
		duration float64
		cluster  int
		count    int
	}
	groups := make(map[int]*group)
	for _, r := range table {
		if !r.IsStay {
			continue
		}
		g := groups[r.StayGroup]
		if g == nil {
			g = &group{duration: r.StayDuration, cluster: r.Cluster}
			groups[r.StayGroup] = g
		}
		g.count++
	}

	summary := models.StaySummary{GroupCount: len(groups)}
	if len(groups) == 0 {
		return summary
	}

	var total float64
	visits := make(map[int]int)
	for _, g := range groups {
		total += g.duration
		if g.cluster >= 0 {
			visits[g.cluster]++
		}
	}
	summary.MeanDurationMin = total / float64(len(groups))

	ranked := make([]models.PlaceSummary, 0, len(visits))
	for id, n := range visits {
		ranked = append(ranked, models.PlaceSummary{Cluster: id, PointCount: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].PointCount == ranked[j].PointCount {
			return ranked[i].Cluster < ranked[j].Cluster
		}
		return ranked[i].PointCount > ranked[j].PointCount
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	summary.TopClusters = ranked
	return summary
}
