package timetable

import (
	"fmt"
	"log"
	"time"
)

// Timetable is the immutable in-memory store behind every query: the
// routes with their dense stop-time tables, the per-stop route and
// footpath lists, and, under HLR, the hub labelling and its inverse
// maps. It is built once by Load and safe to share by reference across
// concurrent query executors.
type Timetable struct {
	Name string
	Algo Algorithm

	Routes        []Route
	Stops         []Stop
	TripPositions map[TripID]TripPos

	// Indexed by hub node id; only populated under HLR.
	InverseInHubs  [][]InverseHubLink
	InverseOutHubs [][]InverseHubLink

	MaxStopID StopID
	MaxNodeID NodeID
}

// Load reads a preprocessed dataset from dir and builds the store for
// the given walking backend. Parsing is order-sensitive: trips come
// first so that routes exist, stop_routes next, then the walking
// backend files, and stop_times last so that the stop patterns can be
// built from the first trip of each route.
func Load(dir, name string, algo Algorithm) (*Timetable, error) {
	if !algo.Valid() {
		return nil, fmt.Errorf("unknown algorithm %q", algo)
	}

	start := time.Now()
	log.Printf("Loading dataset %s (%s)...", name, algo)

	tt := &Timetable{
		Name:          name,
		Algo:          algo,
		TripPositions: make(map[TripID]TripPos),
	}

	if err := tt.parseTrips(dir); err != nil {
		return nil, fmt.Errorf("trips: %w", err)
	}
	if err := tt.parseStopRoutes(dir); err != nil {
		return nil, fmt.Errorf("stop_routes: %w", err)
	}
	switch algo {
	case AlgoR:
		if err := tt.parseTransfers(dir); err != nil {
			return nil, fmt.Errorf("transfers: %w", err)
		}
	case AlgoHLR:
		if err := tt.parseHubs(dir); err != nil {
			return nil, fmt.Errorf("hubs: %w", err)
		}
	}
	if err := tt.parseStopTimes(dir); err != nil {
		return nil, fmt.Errorf("stop_times: %w", err)
	}

	tt.sortLists()
	if err := tt.Verify(); err != nil {
		return nil, err
	}

	log.Printf("Dataset %s loaded in %v", name, time.Since(start))
	return tt, nil
}

// Stop returns the stop record for id, or an invalid placeholder when
// the id is outside the loaded range.
func (tt *Timetable) Stop(id StopID) *Stop {
	if int(id) >= len(tt.Stops) {
		return &Stop{ID: id}
	}
	return &tt.Stops[id]
}

// Route returns the route record for id.
func (tt *Timetable) Route(id RouteID) *Route {
	return &tt.Routes[id]
}

// IsValidStop reports whether id names a stop served by at least one
// route.
func (tt *Timetable) IsValidStop(id StopID) bool {
	return int(id) < len(tt.Stops) && tt.Stops[id].IsValid()
}

// WalkingTime is the unrestricted walking distance between two stops
// under the hub labelling: the best out-hub of u that is also an
// in-hub of v. It is distance-only, not journey-aware. Returns
// Infinity when the stops share no hub.
func (tt *Timetable) WalkingTime(u, v StopID) Time {
	su, sv := tt.Stop(u), tt.Stop(v)

	best := Infinity
	if len(su.OutHubs) == 0 || len(sv.InHubs) == 0 {
		return best
	}

	via := make(map[NodeID]Time, len(su.OutHubs))
	for _, hl := range su.OutHubs {
		if cur, ok := via[hl.Hub]; !ok || hl.Time < cur {
			via[hl.Hub] = hl.Time
		}
	}
	for _, hl := range sv.InHubs {
		if d, ok := via[hl.Hub]; ok {
			best = minTime(best, d.Add(hl.Time))
		}
	}
	return best
}

// Verify checks the structural invariants a correct preprocessing run
// guarantees: every trip row matches its route's stop pattern, rows
// are monotone along the route, and trips within a route never
// overtake (FIFO). A violation means the input data is broken, so
// loading fails.
func (tt *Timetable) Verify() error {
	for i := range tt.Stops {
		s := &tt.Stops[i]
		for _, routeID := range s.Routes {
			if int(routeID) >= len(tt.Routes) {
				return fmt.Errorf("stop %d references unknown route %d", s.ID, routeID)
			}
			if len(tt.Routes[routeID].StopPositions[s.ID]) == 0 {
				return fmt.Errorf("stop %d is listed on route %d but absent from its stop pattern", s.ID, routeID)
			}
		}
	}

	for r := range tt.Routes {
		route := &tt.Routes[r]
		if len(route.Trips) == 0 {
			continue
		}
		if len(route.Stops) == 0 {
			return fmt.Errorf("route %d has trips but no stop pattern", route.ID)
		}

		for ti, row := range route.StopTimes {
			if len(row) != len(route.Stops) {
				return fmt.Errorf("route %d trip %d: %d stop times for %d stops",
					route.ID, route.Trips[ti], len(row), len(route.Stops))
			}
			for si, st := range row {
				if st.Stop != route.Stops[si] {
					return fmt.Errorf("route %d trip %d: stop pattern mismatch at position %d",
						route.ID, route.Trips[ti], si)
				}
				if st.Arr > st.Dep {
					return fmt.Errorf("route %d trip %d stop %d: arrival after departure",
						route.ID, route.Trips[ti], st.Stop)
				}
				if si > 0 && row[si-1].Arr > st.Arr {
					return fmt.Errorf("route %d trip %d: arrivals not monotone at position %d",
						route.ID, route.Trips[ti], si)
				}
				if ti > 0 {
					prev := route.StopTimes[ti-1][si]
					if prev.Arr > st.Arr || prev.Dep > st.Dep {
						return fmt.Errorf("route %d: trip %d overtakes trip %d at position %d",
							route.ID, route.Trips[ti-1], route.Trips[ti], si)
					}
				}
			}
		}
	}
	return nil
}

// Summary logs the size of the loaded dataset.
func (tt *Timetable) Summary() {
	trips, events := 0, 0
	for i := range tt.Routes {
		trips += len(tt.Routes[i].Trips)
		for _, row := range tt.Routes[i].StopTimes {
			events += len(row)
		}
	}

	stops, transfers, hubs := 0, 0, 0
	for i := range tt.Stops {
		if tt.Stops[i].IsValid() {
			stops++
		}
		transfers += len(tt.Stops[i].Transfers)
		hubs += len(tt.Stops[i].InHubs) + len(tt.Stops[i].OutHubs)
	}

	log.Printf("Dataset %s: %d routes, %d trips, %d stops, %d events",
		tt.Name, len(tt.Routes), trips, stops, events)
	switch tt.Algo {
	case AlgoR:
		log.Printf("  %d transfers", transfers)
	case AlgoHLR:
		if stops > 0 {
			log.Printf("  %.3f hubs per stop on average", float64(hubs)/float64(stops))
		}
	}
}
