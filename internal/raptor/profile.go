package raptor

import (
	"container/heap"

	"github.com/passbi/raptor_core/internal/timetable"
)

// Journey is one entry of a profile: depart the source at Dep, arrive
// at the target at Arr.
type Journey struct {
	Dep timetable.Time `json:"dep"`
	Arr timetable.Time `json:"arr"`
}

// ProfileQuery enumerates the non-dominated (departure, arrival) pairs
// over the day by alternating forward and backward searches: each
// forward run contributes candidate arrivals, each popped arrival is
// tightened into its latest feasible departure by a backward run, and
// the next forward run starts one second after that departure. Under
// HLR the pure-walking journey is applied as a final dominance filter
// and prepended as the baseline.
func (r *Raptor) ProfileQuery(source, target timetable.StopID) ([]Journey, error) {
	if err := r.validate(source, target); err != nil {
		return nil, err
	}

	r.profile = true
	defer func() { r.profile = false }()
	r.tripCache = make(map[tripKey]int)

	candidates := &arrivalHeap{}
	seen := make(map[timetable.Time]bool)
	var journeys []Journey

	dep := timetable.Time(0)
	for {
		labels := r.runForward(source, target, dep)
		for _, arr := range RemoveDominated(labels) {
			if !seen[arr] {
				seen[arr] = true
				heap.Push(candidates, arr)
			}
		}

		if candidates.Len() == 0 {
			break
		}
		arr := heap.Pop(candidates).(timetable.Time)

		back := r.runBackward(source, target, arr)
		depStar := back[len(back)-1]
		if !depStar.IsReachable() {
			continue
		}

		journeys = append(journeys, Journey{Dep: depStar, Arr: arr})

		dep = depStar.Add(1)
		if dep > DayEnd {
			break
		}
	}

	if r.tt.Algo == timetable.AlgoHLR {
		journeys = applyWalkingDominance(journeys, r.tt.WalkingTime(source, target))
	}
	return journeys, nil
}

// applyWalkingDominance drops every journey that does not beat walking
// the whole way and puts the walk itself first. A transit journey
// exactly as long as the walk counts as dominated.
func applyWalkingDominance(journeys []Journey, walk timetable.Time) []Journey {
	if walk == timetable.Infinity {
		return journeys
	}
	out := make([]Journey, 0, len(journeys)+1)
	out = append(out, Journey{Dep: 0, Arr: walk})
	for _, j := range journeys {
		if j.Arr.Sub(j.Dep) < walk {
			out = append(out, j)
		}
	}
	return out
}

// arrivalHeap is a min-heap of candidate arrival times.
type arrivalHeap []timetable.Time

func (h arrivalHeap) Len() int            { return len(h) }
func (h arrivalHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h arrivalHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *arrivalHeap) Push(x interface{}) { *h = append(*h, x.(timetable.Time)) }

func (h *arrivalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}
