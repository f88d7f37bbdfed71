package reconcile

import (
	"math"
	"sort"
	"time"

	"github.com/mkarlsen/stride/internal/geo"
	"github.com/mkarlsen/stride/internal/run"
)

// A route and a workout describe the same run when they started within this
// window of each other.
const linkMaxStartDiff = 5 * time.Minute

// Two routes further apart than this at the centroid cannot be similar, and
// it is also the default clustering radius.
const maxCentroidKm = 2.0

// LinkRoute finds a workout from any source whose start is within five
// minutes of the route's and returns a copy of the route augmented with the
// workout's heart-rate summary, series, and id. Re-running against updated
// workout data refreshes the copied fields. When nothing matches, the route
// is returned unchanged with ok=false.
func LinkRoute(route run.Route, workouts []run.Workout) (run.Route, bool) {
	for i := range workouts {
		w := &workouts[i]
		if w.Start.Sub(route.Start).Abs() > linkMaxStartDiff {
			continue
		}
		route.HeartRateAvg = w.AvgHeartRate
		route.HeartRateMin = w.MinHeartRate
		route.HeartRateMax = w.MaxHeartRate
		if len(w.HeartRateSeries) > 0 {
			route.HeartRateSeries = w.HeartRateSeries
		}
		route.LinkedWorkoutID = w.ID
		return route, true
	}
	return route, false
}

// Similarity scores how alike two routes are, in [0,1]. Routes whose
// centroids are more than 2 km apart score 0; otherwise the score is a
// weighted sum of bounding-box overlap, total-distance ratio, and centroid
// proximity.
func Similarity(a, b *run.Route) float64 {
	centroidKm := geo.Distance(a.Center, b.Center)
	if centroidKm > maxCentroidKm {
		return 0
	}

	overlap := geo.OverlapRatio(a.Bounds, b.Bounds)

	var distRatio float64
	larger := math.Max(a.DistanceKm, b.DistanceKm)
	if larger > 0 {
		distRatio = math.Min(a.DistanceKm, b.DistanceKm) / larger
	}

	proximity := math.Max(0, 1-centroidKm/maxCentroidKm)

	return 0.5*overlap + 0.3*distRatio + 0.2*proximity
}

// Scored is a route with its similarity to some target.
type Scored struct {
	Route run.Route
	Score float64
}

// FindSimilar returns every other route scoring at least threshold against
// target, sorted by descending score (ties broken by id for determinism).
func FindSimilar(target *run.Route, routes []run.Route, threshold float64) []Scored {
	var out []Scored
	for i := range routes {
		if routes[i].ID == target.ID {
			continue
		}
		score := Similarity(target, &routes[i])
		if score >= threshold {
			out = append(out, Scored{Route: routes[i], Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Route.ID < out[j].Route.ID
	})
	return out
}

// Cluster is a group of routes sharing a neighborhood.
type Cluster struct {
	Center geo.Point
	Routes []run.Route
}

// ClusterRoutes greedily partitions routes by centroid proximity: each
// unconsumed route seeds a cluster and absorbs every remaining route whose
// centroid lies within radiusKm (default 2 km) of the seed's. Every input
// route lands in exactly one cluster. A route equidistant between two seeds
// joins whichever is processed first. Clusters come back sorted by member
// count, largest first.
func ClusterRoutes(routes []run.Route, radiusKm float64) []Cluster {
	if radiusKm <= 0 {
		radiusKm = maxCentroidKm
	}

	used := make([]bool, len(routes))
	var clusters []Cluster
	for i := range routes {
		if used[i] {
			continue
		}
		used[i] = true
		c := Cluster{Center: routes[i].Center, Routes: []run.Route{routes[i]}}
		for j := i + 1; j < len(routes); j++ {
			if used[j] {
				continue
			}
			if geo.Distance(routes[i].Center, routes[j].Center) <= radiusKm {
				used[j] = true
				c.Routes = append(c.Routes, routes[j])
			}
		}
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Routes) > len(clusters[j].Routes)
	})
	return clusters
}
