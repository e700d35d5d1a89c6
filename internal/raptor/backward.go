package raptor

import (
	"github.com/passbi/raptor_core/internal/timetable"
)

// BackwardQuery answers the dual question: departing source as late as
// possible while still reaching target by arrival. It mirrors the
// forward search with every operator dualised: min becomes max,
// addition becomes saturating subtraction, and "earliest trip
// boardable" becomes "latest trip alightable". The returned per-round
// labels are the latest feasible departures from the source;
// NegInfinity means the arrival cannot be met.
func (r *Raptor) BackwardQuery(source, target timetable.StopID, arrival timetable.Time) ([]timetable.Time, error) {
	if err := r.validate(source, target); err != nil {
		return nil, err
	}
	r.tripCache = make(map[tripKey]int)
	return r.runBackward(source, target, arrival), nil
}

func (r *Raptor) runBackward(source, target timetable.StopID, arrival timetable.Time) []timetable.Time {
	r.reset(source, target, true)

	r.best[target] = arrival
	r.mark(target)

	if r.tt.Algo == timetable.AlgoHLR && !r.profile {
		r.best[source] = arrival.Sub(r.tt.WalkingTime(source, target))
	}

	rounds := []timetable.Time{r.best[source]}

	for round := 1; round <= len(r.tt.Stops); round++ {
		for _, s := range r.markedList {
			r.prev[s] = r.best[s]
		}

		for _, rs := range r.makeQueue(true) {
			r.scanRouteBackward(rs.route, rs.stop)
		}

		// Dual of the forward round-1 trick: walking into the target
		// is explored in the first round.
		targetTrick := round == 1 && r.tt.Algo == timetable.AlgoHLR && !r.profile
		if targetTrick {
			r.mark(target)
		}
		r.relaxFootpathsBackward()
		if targetTrick {
			r.unmark(target)
		}

		rounds = append(rounds, r.best[source])
		if len(r.markedList) == 0 {
			break
		}
	}
	return rounds
}

// scanRouteBackward walks a route from the last occurrence of the
// boarding stop toward its start, riding the latest trip that still
// makes the alighting label and propagating its departure times. The
// source's label is the global lower bound for pruning.
func (r *Raptor) scanRouteBackward(routeID timetable.RouteID, board timetable.StopID) {
	route := r.tt.Route(routeID)
	trip := -1

	positions := route.StopPositions[board]
	for i := positions[len(positions)-1]; i >= 0; i-- {
		p := route.Stops[i]

		arr := timetable.NegInfinity
		if trip >= 0 {
			st := route.StopTimes[trip][i]
			if st.Dep > timetable.MaxTime(r.best[p], r.best[r.source]) {
				r.best[p] = st.Dep
				r.mark(p)
			}
			arr = st.Arr
		}

		if r.prev[p] >= arr {
			trip = r.latestTripIdx(route, routeID, i, r.prev[p])
		}
	}
}

func (r *Raptor) relaxFootpathsBackward() {
	switch r.tt.Algo {
	case timetable.AlgoR:
		r.relaxTransfersBackward()
	case timetable.AlgoHLR:
		r.relaxHubsBackward()
	}
}

// relaxTransfersBackward relaxes the reverse footpath adjacency:
// departing d, walking to s, and continuing from there means d's
// latest departure is s's label minus the walking time. The ascending
// sort still gives the early exit, now against the source's label from
// below.
func (r *Raptor) relaxTransfersBackward() {
	var improved []timetable.StopID
	for _, s := range r.markedList {
		from := r.best[s]
		for _, tr := range r.tt.Stops[s].BackwardTransfers {
			tmp := from.Sub(tr.Time)
			if tmp < r.best[r.source] {
				break
			}
			if tmp > r.best[tr.Dest] {
				r.best[tr.Dest] = tmp
				improved = append(improved, tr.Dest)
			}
		}
	}
	for _, s := range improved {
		r.mark(s)
	}
}

// relaxHubsBackward swaps the hub roles: in-hubs of marked stops feed
// the hub labels, and the inverse out-hub lists push them back onto
// stops that can walk through the hub.
func (r *Raptor) relaxHubsBackward() {
	for _, h := range r.improvedHubs {
		r.hubImproved[h] = false
	}
	r.improvedHubs = r.improvedHubs[:0]

	for _, s := range r.markedList {
		from := r.best[s]
		for _, hl := range r.tt.Stops[s].InHubs {
			tmp := from.Sub(hl.Time)
			if tmp < r.best[r.source] {
				break
			}
			if tmp > r.tmpHub[hl.Hub] {
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
		for _, il := range r.tt.InverseOutHubs[h] {
			tmp := at.Sub(il.Time)
			if tmp < r.best[r.source] {
				break
			}
			if tmp > r.best[il.Stop] {
				r.best[il.Stop] = tmp
				improved = append(improved, il.Stop)
			}
		}
	}
	for _, s := range improved {
		r.mark(s)
	}
}
