package raptor

import (
	"sort"

	"github.com/passbi/raptor_core/internal/timetable"
)

// routeStop pairs a route with the stop the scan of that route starts
// from this round.
type routeStop struct {
	route timetable.RouteID
	stop  timetable.StopID
}

// makeQueue turns the marked set into one (route, boarding stop) entry
// per route: the earliest marked stop along the route forward, the
// latest backward. The marked set is consumed and cleared. Entries
// come back sorted by route id so scans run in a deterministic order.
func (r *Raptor) makeQueue(backward bool) []routeStop {
	queue := make(map[timetable.RouteID]timetable.StopID)

	for _, s := range r.markedList {
		for _, routeID := range r.tt.Stops[s].Routes {
			cur, ok := queue[routeID]
			if !ok || r.scansBefore(routeID, s, cur, backward) {
				queue[routeID] = s
			}
		}
	}

	for _, s := range r.markedList {
		r.marked[s] = false
	}
	r.markedList = r.markedList[:0]

	out := make([]routeStop, 0, len(queue))
	for routeID, s := range queue {
		out = append(out, routeStop{route: routeID, stop: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].route < out[j].route })
	return out
}

// scansBefore reports whether boarding at s covers more of the route's
// scan than boarding at cur. Forward scans run toward increasing
// positions from the first occurrence of the stop; backward scans run
// toward decreasing positions from the last occurrence.
func (r *Raptor) scansBefore(routeID timetable.RouteID, s, cur timetable.StopID, backward bool) bool {
	pos := r.tt.Route(routeID).StopPositions
	if backward {
		ps, pc := pos[s], pos[cur]
		return ps[len(ps)-1] > pc[len(pc)-1]
	}
	return pos[s][0] < pos[cur][0]
}
