// Package genquery produces Dijkstra-rank-stratified query sets. The
// rank of a (source, target) pair is the log2 of the target's position
// in the source's distance-sorted stop list, so each rank bucket holds
// queries of comparable difficulty.
package genquery

import (
	"encoding/csv"
	"io"
	"log"
	"math"
	"math/rand"
	"sort"
	"strconv"

	"github.com/passbi/raptor_core/internal/labels"
	"github.com/passbi/raptor_core/internal/timetable"
)

// Query is one generated test query.
type Query struct {
	Rank   int
	Source labels.Node
	Target labels.Node
	Time   timetable.Time
}

// Options bounds the generation process.
type Options struct {
	MaxPerRank int   // quota per rank bucket
	MinRank    int   // smallest rank bucket to fill
	MaxInertia int   // consecutive fruitless sources before giving up
	Seed       int64 // rng seed; 0 keeps runs reproducible by default
}

// DefaultOptions are the settings the standard query sets are built
// with.
func DefaultOptions() Options {
	return Options{MaxPerRank: 1000, MinRank: 4, MaxInertia: 1000}
}

// Generate samples sources weighted by the number of trips serving
// their routes, computes each source's single-source walking
// distances through the hub labels, and fills every rank bucket
// [2^r, 2^(r+1)) up to the quota with uniformly chosen targets and
// departure times. It stops when every bucket is full or when
// MaxInertia consecutive sources add nothing.
func Generate(gl *labels.GraphLabel, tt *timetable.Timetable, opts Options) []Query {
	picker := newSourcePicker(gl, tt, opts.Seed)
	if picker.empty() {
		return nil
	}

	buckets := make(map[int][]Query)
	maxRank := opts.MinRank
	inertia := 0
	count := 0

	for {
		source, ok := picker.next()
		if !ok {
			break
		}

		dists := gl.SingleSourceDistances(source)
		currentRank := 0
		if len(dists) > 0 {
			currentRank = int(math.Floor(math.Log2(float64(len(dists)))))
		}
		if currentRank > maxRank {
			maxRank = currentRank
		}

		added := false
		for rank := opts.MinRank; rank < currentRank; rank++ {
			if len(buckets[rank]) >= opts.MaxPerRank {
				continue
			}

			lo := 1 << uint(rank)
			hi := 2 << uint(rank)
			if hi > len(dists) {
				hi = len(dists)
			}
			target := dists[lo+picker.rng.Intn(hi-lo)].Stop
			dep := timetable.Time(picker.rng.Intn(86400))

			buckets[rank] = append(buckets[rank], Query{Rank: rank, Source: source, Target: target, Time: dep})
			added = true
			count++
		}

		if added {
			inertia = 0
		} else {
			inertia++
		}
		if inertia >= opts.MaxInertia {
			log.Printf("Query generation stalled after %d fruitless sources", inertia)
			break
		}

		full := true
		for rank := opts.MinRank; rank < maxRank; rank++ {
			if len(buckets[rank]) < opts.MaxPerRank {
				full = false
				break
			}
		}
		if full {
			break
		}
	}

	ranks := make([]int, 0, len(buckets))
	for rank := range buckets {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	out := make([]Query, 0, count)
	for _, rank := range ranks {
		out = append(out, buckets[rank]...)
	}
	log.Printf("Generated %d queries over %d rank buckets", len(out), len(ranks))
	return out
}

// Write emits the query set as CSV with the rank,source,target,time
// header the experiment runner expects.
func Write(w io.Writer, queries []Query) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"rank", "source", "target", "time"}); err != nil {
		return err
	}
	for _, q := range queries {
		rec := []string{
			strconv.Itoa(q.Rank),
			strconv.FormatUint(uint64(q.Source), 10),
			strconv.FormatUint(uint64(q.Target), 10),
			strconv.FormatInt(int64(q.Time), 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// sourcePicker draws distinct source stops with probability
// proportional to the number of trips serving each stop's routes.
// Stops without trips never come up; they cannot anchor a meaningful
// query.
type sourcePicker struct {
	rng     *rand.Rand
	stops   []labels.Node
	cumulat []int64
	total   int64
	used    map[labels.Node]bool
}

func newSourcePicker(gl *labels.GraphLabel, tt *timetable.Timetable, seed int64) *sourcePicker {
	p := &sourcePicker{
		rng:  rand.New(rand.NewSource(seed)),
		used: make(map[labels.Node]bool),
	}

	for _, stop := range gl.Stops() {
		if !tt.IsValidStop(stop) {
			continue
		}
		weight := int64(0)
		for _, routeID := range tt.Stop(stop).Routes {
			weight += int64(len(tt.Route(routeID).Trips))
		}
		if weight == 0 {
			continue
		}
		p.total += weight
		p.stops = append(p.stops, stop)
		p.cumulat = append(p.cumulat, p.total)
	}
	return p
}

func (p *sourcePicker) empty() bool { return len(p.stops) == 0 }

// next draws an unused source, or reports exhaustion once every
// candidate has been used.
func (p *sourcePicker) next() (labels.Node, bool) {
	if len(p.used) == len(p.stops) {
		return 0, false
	}
	for {
		w := p.rng.Int63n(p.total)
		idx := sort.Search(len(p.cumulat), func(i int) bool { return p.cumulat[i] > w })
		s := p.stops[idx]
		if !p.used[s] {
			p.used[s] = true
			return s, true
		}
	}
}
