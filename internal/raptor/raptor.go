// Package raptor implements the round-based earliest-arrival search
// over a loaded timetable, with either explicit transfer lists (R) or
// the two-hop hub labelling (HLR) as the walking backend, plus the
// backward search and the profile loop built on top of it.
package raptor

import (
	"fmt"

	"github.com/passbi/raptor_core/internal/timetable"
)

// DayEnd is the end of the query horizon in seconds.
const DayEnd timetable.Time = 86400

// Raptor holds the per-query state of one search over a shared
// read-only timetable. A query is a pure function of the timetable and
// its inputs, so concurrent queries simply use separate Raptor
// instances over the same store.
type Raptor struct {
	tt *timetable.Timetable

	// profile suppresses the pure-walking upper bound at the target
	// and the round-1 source trick; the profile loop needs raw
	// per-round labels without the walking journey folded in.
	profile bool

	source timetable.StopID
	target timetable.StopID

	// best is the earliest arrival per stop in a forward run and the
	// latest departure per stop in a backward run. prev freezes the
	// value each marked stop had at the start of the current round.
	best []timetable.Time
	prev []timetable.Time

	marked     []bool
	markedList []timetable.StopID

	// tmpHub accumulates the best time propagated onto each hub over
	// the whole query; improvedHubs lists the hubs touched in the
	// current round, each at most once.
	tmpHub       []timetable.Time
	hubImproved  []bool
	improvedHubs []timetable.NodeID

	tripCache map[tripKey]int
}

// New creates a query executor over tt.
func New(tt *timetable.Timetable) *Raptor {
	return &Raptor{
		tt:          tt,
		best:        make([]timetable.Time, len(tt.Stops)),
		prev:        make([]timetable.Time, len(tt.Stops)),
		marked:      make([]bool, len(tt.Stops)),
		tmpHub:      make([]timetable.Time, int(tt.MaxNodeID)+1),
		hubImproved: make([]bool, int(tt.MaxNodeID)+1),
	}
}

// Query answers an earliest-arrival query: the per-round arrival
// labels at the target, starting with the round-0 label. The last
// entry is the earliest arrival over any number of trips; Infinity
// means the target is unreachable.
func (r *Raptor) Query(source, target timetable.StopID, dep timetable.Time) ([]timetable.Time, error) {
	if err := r.validate(source, target); err != nil {
		return nil, err
	}
	if dep < 0 || dep > DayEnd {
		return nil, fmt.Errorf("departure time %d is out of range", dep)
	}
	r.tripCache = make(map[tripKey]int)
	return r.runForward(source, target, dep), nil
}

func (r *Raptor) runForward(source, target timetable.StopID, dep timetable.Time) []timetable.Time {
	r.reset(source, target, false)

	r.best[source] = dep
	r.mark(source)

	if r.tt.Algo == timetable.AlgoHLR && !r.profile {
		// Upper-bound the target with the pure-walking journey.
		r.best[target] = dep.Add(r.tt.WalkingTime(source, target))
	}

	rounds := []timetable.Time{r.best[target]}

	for round := 1; round <= len(r.tt.Stops); round++ {
		// Stage 1: freeze the labels of the marked stops.
		for _, s := range r.markedList {
			r.prev[s] = r.best[s]
		}

		// Stage 2: scan each queued route from its earliest marked
		// stop. makeQueue consumes and clears the marked set.
		for _, rs := range r.makeQueue(false) {
			r.scanRoute(rs.route, rs.stop)
		}

		// Stage 3: relax footpaths out of every stop improved by the
		// route scans. In the first HLR round the source joins in, so
		// that walking away from it is explored without re-queuing its
		// routes next round.
		sourceTrick := round == 1 && r.tt.Algo == timetable.AlgoHLR && !r.profile
		if sourceTrick {
			r.mark(source)
		}
		r.relaxFootpaths()
		if sourceTrick {
			r.unmark(source)
		}

		rounds = append(rounds, r.best[target])
		if len(r.markedList) == 0 {
			break
		}
	}
	return rounds
}

// scanRoute walks forward along a route from the boarding stop,
// hopping onto the earliest catchable trip and propagating its arrival
// times under local and target pruning.
func (r *Raptor) scanRoute(routeID timetable.RouteID, board timetable.StopID) {
	route := r.tt.Route(routeID)
	trip := -1

	for i := route.StopPositions[board][0]; i < len(route.Stops); i++ {
		p := route.Stops[i]

		dep := timetable.Infinity
		if trip >= 0 {
			st := route.StopTimes[trip][i]
			if st.Arr < timetable.MinTime(r.best[p], r.best[r.target]) {
				r.best[p] = st.Arr
				r.mark(p)
			}
			dep = st.Dep
		}

		// Hop onto an earlier trip if one departs no sooner than the
		// label p carried into this round.
		if r.prev[p] <= dep {
			trip = r.earliestTripIdx(route, routeID, i, r.prev[p])
		}
	}
}

func (r *Raptor) relaxFootpaths() {
	switch r.tt.Algo {
	case timetable.AlgoR:
		r.relaxTransfers()
	case timetable.AlgoHLR:
		r.relaxHubs()
	}
}

// relaxTransfers relaxes the explicit footpath lists. Transfers are
// sorted by walking time, so the scan of a stop aborts as soon as the
// candidate time exceeds the target's current label. Improved stops
// are marked after the pass so the scan sees a stable marked set.
func (r *Raptor) relaxTransfers() {
	var improved []timetable.StopID
	for _, s := range r.markedList {
		from := r.best[s]
		for _, tr := range r.tt.Stops[s].Transfers {
			tmp := from.Add(tr.Time)
			if tmp > r.best[r.target] {
				break
			}
			if tmp < r.best[tr.Dest] {
				r.best[tr.Dest] = tmp
				improved = append(improved, tr.Dest)
			}
		}
	}
	for _, s := range improved {
		r.mark(s)
	}
}

// relaxHubs is the two-stage hub relaxation: marked stops push their
// labels onto their out-hubs, improved hubs pull them down into every
// stop having the hub as an in-hub. Both stages ride the ascending
// walking-time order for the early exit against the target label.
func (r *Raptor) relaxHubs() {
	for _, h := range r.improvedHubs {
		r.hubImproved[h] = false
	}
	r.improvedHubs = r.improvedHubs[:0]

	for _, s := range r.markedList {
		from := r.best[s]
		for _, hl := range r.tt.Stops[s].OutHubs {
			tmp := from.Add(hl.Time)
			if tmp > r.best[r.target] {
				break
			}
			if tmp < r.tmpHub[hl.Hub] {
				r.tmpHub[hl.Hub] = tmp
				if !r.hubImproved[hl.Hub] {
					r.hubImproved[hl.Hub] = true
					r.improvedHubs = append(r.improvedHubs, hl.Hub)
				}
			}
		}
	}

	var improved []timetable.StopID
	for _, h := range r.improvedHubs {
		at := r.tmpHub[h]
		for _, il := range r.tt.InverseInHubs[h] {
			tmp := at.Add(il.Time)
			if tmp > r.best[r.target] {
				break
			}
			if tmp < r.best[il.Stop] {
				r.best[il.Stop] = tmp
				improved = append(improved, il.Stop)
			}
		}
	}
	for _, s := range improved {
		r.mark(s)
	}
}

func (r *Raptor) validate(source, target timetable.StopID) error {
	if !r.tt.IsValidStop(source) {
		return fmt.Errorf("source stop %d is not a valid stop", source)
	}
	if !r.tt.IsValidStop(target) {
		return fmt.Errorf("target stop %d is not a valid stop", target)
	}
	if source == target {
		return fmt.Errorf("source and target must be distinct")
	}
	return nil
}

// reset reinitialises the per-query state. backward flips the label
// sentinels: an unreached stop is Infinity forward, NegInfinity
// backward.
func (r *Raptor) reset(source, target timetable.StopID, backward bool) {
	unreached := timetable.Infinity
	if backward {
		unreached = timetable.NegInfinity
	}
	for i := range r.best {
		r.best[i] = unreached
		r.prev[i] = unreached
	}
	for _, s := range r.markedList {
		r.marked[s] = false
	}
	r.markedList = r.markedList[:0]
	for i := range r.tmpHub {
		r.tmpHub[i] = unreached
	}
	for _, h := range r.improvedHubs {
		r.hubImproved[h] = false
	}
	r.improvedHubs = r.improvedHubs[:0]
	r.source = source
	r.target = target
}

func (r *Raptor) mark(s timetable.StopID) {
	if !r.marked[s] {
		r.marked[s] = true
		r.markedList = append(r.markedList, s)
	}
}

func (r *Raptor) unmark(s timetable.StopID) {
	if !r.marked[s] {
		return
	}
	r.marked[s] = false
	for i, m := range r.markedList {
		if m == s {
			r.markedList = append(r.markedList[:i], r.markedList[i+1:]...)
			break
		}
	}
}
