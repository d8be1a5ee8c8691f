package spatial

import (
	"github.com/heart5/happyjoplin-go/internal/models"
)

// SmoothCoordinates applies a centered rolling mean over latitude and
// longitude and stores the result in SmoothedLat/SmoothedLon. Window edges
// shrink to the available points (minimum period 1), so edge rows fall back
// toward their raw values and no NaN is ever introduced.
func SmoothCoordinates(table models.Table, windowSize int) {
	if windowSize < 1 {
		windowSize = 1
	}
	// Ensure window size is odd so the window stays centered
	if windowSize%2 == 0 {
		windowSize++
	}
	half := windowSize / 2

	for i := range table {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(table) {
			end = len(table)
		}

		var sumLat, sumLon float64
		for j := start; j < end; j++ {
			sumLat += table[j].Latitude
			sumLon += table[j].Longitude
		}
		n := float64(end - start)
		table[i].SmoothedLat = sumLat / n
		table[i].SmoothedLon = sumLon / n
	}
}
