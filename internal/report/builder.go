package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/heart5/happyjoplin-go/internal/models"
)

// Section order for chart embeds in the built report.
var chartOrder = []struct {
	name  string
	title string
}{
	{"trajectory", "Trajectory"},
	{"hourly", "Points by hour"},
	{"devices", "Points by device"},
	{"daily_points", "Points per day"},
	{"accuracy", "Accuracy"},
}

// Title returns the canonical note title for a scope. The title is the
// upsert key in the note store.
func Title(scope string) string {
	return fmt.Sprintf("位置报告 Location Report (%s)", scope)
}

// Build assembles the structured text report for one analyzed scope.
// Artifact references use the note store's resource link syntax; charts
// without a stored artifact are simply absent from the document.
func Build(result *models.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title(result.Scope))

	if result.PointCount == 0 {
		b.WriteString("No location data available for this period.\n")
		return b.String()
	}

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Period: %s — %s\n",
		result.StartTime.Format("2006-01-02"), result.EndTime.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Points: %d over %d days\n", result.PointCount, result.DayCount)
	fmt.Fprintf(&b, "- Bounding box diagonal: %.1f km\n", result.BBoxDiagonal/1000)
	fmt.Fprintf(&b, "- Gaps: %d (longest %.1f h)\n", result.GapCount, result.LongestGapH)

	b.WriteString("\n## Devices\n\n")
	devices := make([]string, 0, len(result.DeviceCounts))
	for dev := range result.DeviceCounts {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	for _, dev := range devices {
		n := result.DeviceCounts[dev]
		fmt.Fprintf(&b, "- %s: %d points (%.1f%%)\n", dev, n, float64(n)/float64(result.PointCount)*100)
	}

	if !math.IsNaN(result.AccuracyMean) {
		b.WriteString("\n## Accuracy\n\n")
		fmt.Fprintf(&b, "- min %.1f m / mean %.1f m / max %.1f m\n",
			result.AccuracyMin, result.AccuracyMean, result.AccuracyMax)
	}

	if len(result.TopPlaces) > 0 {
		b.WriteString("\n## Important places\n\n")
		for i, p := range result.TopPlaces {
			fmt.Fprintf(&b, "%d. cluster %d: %d points at (%.5f, %.5f)\n",
				i+1, p.Cluster, p.PointCount, p.CenterLat, p.CenterLon)
		}
	}

	if result.Stays.GroupCount > 0 {
		b.WriteString("\n## Stays\n\n")
		fmt.Fprintf(&b, "- %d stay groups, mean duration %.1f min\n",
			result.Stays.GroupCount, result.Stays.MeanDurationMin)
		for _, c := range result.Stays.TopClusters {
			fmt.Fprintf(&b, "- cluster %d visited %d times\n", c.Cluster, c.PointCount)
		}
	}

	embedded := false
	for _, c := range chartOrder {
		ref, ok := result.Artifacts[c.name]
		if !ok {
			continue
		}
		if !embedded {
			b.WriteString("\n## Charts\n")
			embedded = true
		}
		fmt.Fprintf(&b, "\n### %s\n\n![%s](:/%s)\n", c.title, c.name, ref)
	}

	return b.String()
}
