package raptor

import (
	"sort"

	"github.com/passbi/raptor_core/internal/timetable"
)

// tripKey memoises earliest/latest-trip lookups. The key carries the
// stop label rather than the round: labels often stabilise across
// rounds, so the same lookup keeps recurring with the same answer. The
// cache is query-local; keeping it across queries would grow without
// bound.
type tripKey struct {
	route    timetable.RouteID
	stopIdx  int
	at       timetable.Time
	backward bool
}

// earliestTripIdx returns the index within route of the earliest trip
// whose departure at stopIdx is >= t0, or -1 if none exists. The FIFO
// invariant makes every stop-time column non-decreasing over trips, so
// this is a lower-bound binary search.
func (r *Raptor) earliestTripIdx(route *timetable.Route, routeID timetable.RouteID, stopIdx int, t0 timetable.Time) int {
	if t0 == timetable.Infinity {
		return -1
	}
	key := tripKey{route: routeID, stopIdx: stopIdx, at: t0}
	if idx, ok := r.tripCache[key]; ok {
		return idx
	}

	sts := route.StopTimes
	idx := sort.Search(len(sts), func(i int) bool {
		return sts[i][stopIdx].Dep >= t0
	})
	if idx == len(sts) {
		idx = -1
	}
	r.tripCache[key] = idx
	return idx
}

// latestTripIdx is the backward dual: the latest trip whose arrival at
// stopIdx is <= t0, or -1.
func (r *Raptor) latestTripIdx(route *timetable.Route, routeID timetable.RouteID, stopIdx int, t0 timetable.Time) int {
	if t0 == timetable.NegInfinity {
		return -1
	}
	key := tripKey{route: routeID, stopIdx: stopIdx, at: t0, backward: true}
	if idx, ok := r.tripCache[key]; ok {
		return idx
	}

	sts := route.StopTimes
	idx := sort.Search(len(sts), func(i int) bool {
		return sts[i][stopIdx].Arr > t0
	}) - 1
	r.tripCache[key] = idx
	return idx
}
