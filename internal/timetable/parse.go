package timetable

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// datasetFile streams one gzip-compressed dataset file record by
// record. comma is the field separator (the hub files are
// space-separated); header skips the first row.
func datasetFile(dir, name string, comma rune, header bool, row func(fields []string) error) error {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", path, err)
	}
	defer gz.Close()

	r := csv.NewReader(gz)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	line := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line++
		if header && line == 1 {
			continue
		}
		if err := row(fields); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad id %q", s)
	}
	return uint32(v), nil
}

func parseTime(s string) (Time, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad time %q", s)
	}
	return Time(v), nil
}

// parseTrips populates the route records and the trip-to-position map.
// The order of the rows within a route defines the trip index, which
// the FIFO ordering of stop_times relies on.
func (tt *Timetable) parseTrips(dir string) error {
	return datasetFile(dir, "trips.csv.gz", ',', true, func(fields []string) error {
		if len(fields) < 2 {
			return fmt.Errorf("expected route_id,trip_id")
		}
		routeID, err := parseID(fields[0])
		if err != nil {
			return err
		}
		trip, err := parseID(fields[1])
		if err != nil {
			return err
		}
		tripID := TripID(trip)

		for len(tt.Routes) <= int(routeID) {
			tt.Routes = append(tt.Routes, Route{
				ID:            RouteID(len(tt.Routes)),
				StopPositions: make(map[StopID][]int),
			})
		}

		route := &tt.Routes[routeID]
		tt.TripPositions[tripID] = TripPos{Route: RouteID(routeID), Pos: len(route.Trips)}
		route.Trips = append(route.Trips, tripID)
		route.StopTimes = append(route.StopTimes, nil)
		return nil
	})
}

// parseStopRoutes fills the per-stop route lists. Ids may be sparse;
// missing ids leave invalid placeholder records behind.
func (tt *Timetable) parseStopRoutes(dir string) error {
	return datasetFile(dir, "stop_routes.csv.gz", ',', true, func(fields []string) error {
		if len(fields) < 2 {
			return fmt.Errorf("expected stop_id,route_id")
		}
		stopID, err := parseID(fields[0])
		if err != nil {
			return err
		}
		routeID, err := parseID(fields[1])
		if err != nil {
			return err
		}
		if int(routeID) >= len(tt.Routes) {
			return fmt.Errorf("unknown route %d", routeID)
		}

		tt.growStops(stopID)
		tt.Stops[stopID].Routes = append(tt.Stops[stopID].Routes, RouteID(routeID))
		return nil
	})
}

// parseTransfers loads the explicit footpath lists (R backend) and
// derives the backward adjacency from them.
func (tt *Timetable) parseTransfers(dir string) error {
	return datasetFile(dir, "transfers.csv.gz", ',', true, func(fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("expected from_stop_id,to_stop_id,min_transfer_time")
		}
		from, err := parseID(fields[0])
		if err != nil {
			return err
		}
		to, err := parseID(fields[1])
		if err != nil {
			return err
		}
		t, err := parseTime(fields[2])
		if err != nil {
			return err
		}

		if !tt.IsValidStop(from) || !tt.IsValidStop(to) {
			return nil
		}
		tt.Stops[from].Transfers = append(tt.Stops[from].Transfers, Transfer{Dest: to, Time: t})
		tt.Stops[to].BackwardTransfers = append(tt.Stops[to].BackwardTransfers, Transfer{Dest: from, Time: t})
		return nil
	})
}

// parseHubs loads the two-hop labelling (HLR backend). The hub files
// are space-separated and headerless; in_hubs rows are
// "hub_node stop_id distance", out_hubs rows "stop_id hub_node
// distance". Distances are converted to walking seconds here.
func (tt *Timetable) parseHubs(dir string) error {
	err := datasetFile(dir, "in_hubs.gr.gz", ' ', false, func(fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("expected hub_node stop_id distance")
		}
		hub, err := parseID(fields[0])
		if err != nil {
			return err
		}
		stopID, err := parseID(fields[1])
		if err != nil {
			return err
		}
		dist, err := parseID(fields[2])
		if err != nil {
			return err
		}
		t := DistanceToTime(dist)

		tt.growStops(stopID)
		tt.growHub(hub)
		tt.Stops[stopID].InHubs = append(tt.Stops[stopID].InHubs, HubLink{Time: t, Hub: hub})
		tt.InverseInHubs[hub] = append(tt.InverseInHubs[hub], InverseHubLink{Time: t, Stop: stopID})
		return nil
	})
	if err != nil {
		return err
	}

	return datasetFile(dir, "out_hubs.gr.gz", ' ', false, func(fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("expected stop_id hub_node distance")
		}
		stopID, err := parseID(fields[0])
		if err != nil {
			return err
		}
		hub, err := parseID(fields[1])
		if err != nil {
			return err
		}
		dist, err := parseID(fields[2])
		if err != nil {
			return err
		}
		t := DistanceToTime(dist)

		tt.growStops(stopID)
		tt.growHub(hub)
		tt.Stops[stopID].OutHubs = append(tt.Stops[stopID].OutHubs, HubLink{Time: t, Hub: hub})
		tt.InverseOutHubs[hub] = append(tt.InverseOutHubs[hub], InverseHubLink{Time: t, Stop: stopID})
		return nil
	})
}

// parseStopTimes fills the dense stop-time tables. Rows arrive grouped
// by trip in route-stop order, so the stop pattern of a route can be
// recorded while its first trip streams past.
func (tt *Timetable) parseStopTimes(dir string) error {
	return datasetFile(dir, "stop_times.csv.gz", ',', true, func(fields []string) error {
		if len(fields) < 4 {
			return fmt.Errorf("expected trip_id,arrival_time,departure_time,stop_id")
		}
		trip, err := parseID(fields[0])
		if err != nil {
			return err
		}
		arr, err := parseTime(fields[1])
		if err != nil {
			return err
		}
		dep, err := parseTime(fields[2])
		if err != nil {
			return err
		}
		stopID, err := parseID(fields[3])
		if err != nil {
			return err
		}

		tripID := TripID(trip)
		pos, ok := tt.TripPositions[tripID]
		if !ok {
			return fmt.Errorf("unknown trip %d", tripID)
		}

		route := &tt.Routes[pos.Route]
		route.StopTimes[pos.Pos] = append(route.StopTimes[pos.Pos], StopTime{Stop: stopID, Arr: arr, Dep: dep})

		// The first trip of the route defines the stop pattern and the
		// position index of every stop on it.
		if tripID == route.Trips[0] {
			route.Stops = append(route.Stops, stopID)
			route.StopPositions[stopID] = append(route.StopPositions[stopID], len(route.Stops)-1)
		}
		return nil
	})
}

func (tt *Timetable) growStops(id StopID) {
	for len(tt.Stops) <= int(id) {
		tt.Stops = append(tt.Stops, Stop{ID: StopID(len(tt.Stops))})
	}
	if id > tt.MaxStopID {
		tt.MaxStopID = id
	}
	if NodeID(id) > tt.MaxNodeID {
		tt.MaxNodeID = NodeID(id)
	}
}

func (tt *Timetable) growHub(id NodeID) {
	for len(tt.InverseInHubs) <= int(id) {
		tt.InverseInHubs = append(tt.InverseInHubs, nil)
		tt.InverseOutHubs = append(tt.InverseOutHubs, nil)
	}
	if id > tt.MaxNodeID {
		tt.MaxNodeID = id
	}
}

// sortLists establishes the ascending-weight orderings every early
// exit in the engine depends on. Nothing mutates these lists after
// load.
func (tt *Timetable) sortLists() {
	for i := range tt.Stops {
		s := &tt.Stops[i]
		sortTransfers(s.Transfers)
		sortTransfers(s.BackwardTransfers)
		sortHubs(s.InHubs)
		sortHubs(s.OutHubs)
	}
	for _, lists := range [][][]InverseHubLink{tt.InverseInHubs, tt.InverseOutHubs} {
		for _, l := range lists {
			sort.Slice(l, func(a, b int) bool {
				if l[a].Time != l[b].Time {
					return l[a].Time < l[b].Time
				}
				return l[a].Stop < l[b].Stop
			})
		}
	}
}

func sortTransfers(l []Transfer) {
	sort.Slice(l, func(a, b int) bool {
		if l[a].Time != l[b].Time {
			return l[a].Time < l[b].Time
		}
		return l[a].Dest < l[b].Dest
	})
}

func sortHubs(l []HubLink) {
	sort.Slice(l, func(a, b int) bool {
		if l[a].Time != l[b].Time {
			return l[a].Time < l[b].Time
		}
		return l[a].Hub < l[b].Hub
	})
}
