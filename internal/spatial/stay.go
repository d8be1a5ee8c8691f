package spatial

import (
	"log"

	"github.com/heart5/happyjoplin-go/internal/models"
)

// IdentifyStayPoints walks the table in time order and groups consecutive
// records whose displacement over smoothed coordinates stays under
// distanceThresholdM meters. Groups with at least two members are stays;
// their total duration (sum of member TimeDiffMin) is broadcast to every
// member row. Isolated rows keep IsStay=false.
//
// The table must already be time-sorted and smoothed.
func IdentifyStayPoints(table models.Table, distanceThresholdM float64) {
	if len(table) == 0 {
		return
	}

	groupID := 0
	groupStart := 0
	table[0].StayGroup = groupID

	closeGroup := func(start, end int) {
		// [start, end) is one displacement group
		if end-start < 2 {
			table[start].IsStay = false
			table[start].StayDuration = 0
			return
		}
		var duration float64
		for i := start; i < end; i++ {
			duration += table[i].TimeDiffMin
		}
		for i := start; i < end; i++ {
			table[i].IsStay = true
			table[i].StayDuration = duration
		}
	}

	for i := 1; i < len(table); i++ {
		prev := table[i-1]
		cur := table[i]
		d := Haversine(prev.SmoothedLat, prev.SmoothedLon, cur.SmoothedLat, cur.SmoothedLon)
		if d < distanceThresholdM {
			table[i].StayGroup = groupID
			continue
		}
		closeGroup(groupStart, i)
		groupID++
		groupStart = i
		table[i].StayGroup = groupID
	}
	closeGroup(groupStart, len(table))

	stays := 0
	for i := range table {
		if table[i].IsStay {
			stays++
		}
	}
	log.Printf("[StayPoints] %d groups, %d rows marked as stays", groupID+1, stays)
}
