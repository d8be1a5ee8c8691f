package spatial

import (
	"log"
	"math/rand"

	"github.com/heart5/happyjoplin-go/internal/models"
)

// ClusterOptions controls the density clustering pass.
type ClusterOptions struct {
	RadiusKm   float64 // neighborhood radius in kilometers
	MinPoints  int     // minimum neighborhood size for a core point
	SampleSize int     // max points fed to the clustering, 0 = no limit
	Seed       int64   // RNG seed for subsampling, fixed seed = reproducible
}

// IdentifyImportantPlaces runs density-based clustering (DBSCAN with
// haversine distance) over the table's raw coordinates and writes the
// cluster id into each record. Points that do not belong to any dense
// cluster, and points excluded by subsampling, get cluster -1.
func IdentifyImportantPlaces(table models.Table, opts ClusterOptions) {
	for i := range table {
		table[i].Cluster = -1
	}
	if len(table) == 0 {
		log.Printf("[Cluster] Empty table, nothing to cluster")
		return
	}

	// Pick the rows that participate in clustering
	indices := make([]int, len(table))
	for i := range indices {
		indices[i] = i
	}
	if opts.SampleSize > 0 && opts.SampleSize < len(indices) {
		rng := rand.New(rand.NewSource(opts.Seed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		indices = indices[:opts.SampleSize]
		log.Printf("[Cluster] Subsampled %d of %d points (seed=%d)", len(indices), len(table), opts.Seed)
	}

	eps := opts.RadiusKm / EarthRadiusKm // radians on the unit sphere
	minPts := opts.MinPoints
	if minPts < 1 {
		minPts = 1
	}

	const (
		unvisited = 0
		noise     = 1
		clustered = 2
	)
	state := make([]int, len(indices))
	assigned := make([]int, len(indices))

	neighbors := func(i int) []int {
		var out []int
		a := table[indices[i]]
		for j := range indices {
			if j == i {
				continue
			}
			b := table[indices[j]]
			if AngularDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	clusterID := 0
	for i := range indices {
		if state[i] != unvisited {
			continue
		}
		nbrs := neighbors(i)
		if len(nbrs)+1 < minPts {
			state[i] = noise
			continue
		}

		// Expand a new cluster from this core point
		state[i] = clustered
		assigned[i] = clusterID
		queue := append([]int(nil), nbrs...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if state[j] == noise {
				state[j] = clustered
				assigned[j] = clusterID
			}
			if state[j] != unvisited {
				continue
			}
			state[j] = clustered
			assigned[j] = clusterID
			jn := neighbors(j)
			if len(jn)+1 >= minPts {
				queue = append(queue, jn...)
			}
		}
		clusterID++
	}

	for i, idx := range indices {
		if state[i] == clustered {
			table[idx].Cluster = assigned[i]
		}
	}
	log.Printf("[Cluster] Found %d clusters over %d points", clusterID, len(indices))
}
