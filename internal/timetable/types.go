package timetable

// Dense integer identifiers. Stop ids and walking-graph node ids share
// one id space; a hub is any node of the walking graph, stop or not.
type (
	StopID  = uint32
	NodeID  = uint32
	RouteID = uint32
	TripID  = int32
)

// NullTrip marks "no trip boarded yet" during a route scan.
const NullTrip TripID = -1

// Algorithm selects the walking backend of the engine.
type Algorithm string

const (
	// AlgoR relaxes footpaths over the explicit transfer lists.
	AlgoR Algorithm = "R"
	// AlgoHLR relaxes footpaths through the two-hop hub labelling.
	AlgoHLR Algorithm = "HLR"
)

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	return a == AlgoR || a == AlgoHLR
}

// Transfer is a directed footpath to Dest taking Time seconds.
type Transfer struct {
	Dest StopID
	Time Time
}

// HubLink connects a stop to one of its hubs. Per-stop hub lists are
// sorted by ascending Time, which is what makes the early-exit bound
// in the relaxer work.
type HubLink struct {
	Time Time
	Hub  NodeID
}

// InverseHubLink is the reverse view: a stop reachable from a hub.
// Inverse lists are also sorted by ascending Time.
type InverseHubLink struct {
	Time Time
	Stop StopID
}

// Stop carries everything the engine needs at one stop. Transfers and
// BackwardTransfers are sorted by (time, dest); hubs by (time, hub).
type Stop struct {
	ID                StopID
	Routes            []RouteID
	Transfers         []Transfer
	BackwardTransfers []Transfer
	InHubs            []HubLink
	OutHubs           []HubLink
}

// IsValid reports whether at least one route serves the stop. Ids can
// be sparse in the input, so the stops slice contains placeholder
// records for unused ids.
func (s *Stop) IsValid() bool {
	return len(s.Routes) > 0
}

// StopTime is one event of a trip at one position of its route.
type StopTime struct {
	Stop StopID
	Arr  Time
	Dep  Time
}

// Route groups the trips sharing one stop pattern. StopTimes is dense
// and row-major: StopTimes[tripIdx][stopIdx]. Trips are ordered so
// that every column of StopTimes is non-decreasing (FIFO: trips do not
// overtake each other). StopPositions maps a stop id to the indices at
// which it appears in Stops; circular routes visit a stop twice.
type Route struct {
	ID            RouteID
	Trips         []TripID
	Stops         []StopID
	StopTimes     [][]StopTime
	StopPositions map[StopID][]int
}

// TripPos locates a trip inside its route.
type TripPos struct {
	Route RouteID
	Pos   int
}
