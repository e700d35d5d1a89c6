// Package experiments runs a generated query set against the engine
// and records the measurements: per-query running time and per-round
// arrival labels on disk, plus an optional batch run log in postgres.
package experiments

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/raptor_core/internal/raptor"
	"github.com/passbi/raptor_core/internal/timetable"
)

// QueryType selects between single earliest-arrival queries and
// profile queries.
type QueryType string

const (
	// NormalQueries run one forward search per row.
	NormalQueries QueryType = "n"
	// ProfileQueries enumerate the day's Pareto front per row.
	ProfileQueries QueryType = "p"
)

// Valid reports whether t is a supported query type.
func (t QueryType) Valid() bool {
	return t == NormalQueries || t == ProfileQueries
}

// Query is one row of queries.csv.
type Query struct {
	Rank   int
	Source timetable.StopID
	Target timetable.StopID
	Dep    timetable.Time
}

// Result is the outcome of one query. Failed queries keep empty label
// and journey slices; an unreachable target is not a failure, it shows
// up as Infinity in the labels.
type Result struct {
	Rank        int
	RunningTime float64 // seconds
	Arrivals    []timetable.Time
	Journeys    []raptor.Journey
}

// ReadQueries loads the query set from dir/queries.csv.
func ReadQueries(dir string) ([]Query, error) {
	path := filepath.Join(dir, "queries.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	var queries []Query
	line := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			return queries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line++
		if line == 1 {
			continue
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("%s line %d: expected rank,source,target,time", path, line)
		}

		rank, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad rank %q", path, line, fields[0])
		}
		source, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad source %q", path, line, fields[1])
		}
		target, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad target %q", path, line, fields[2])
		}
		dep, err := strconv.ParseInt(fields[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad time %q", path, line, fields[3])
		}

		queries = append(queries, Query{
			Rank:   rank,
			Source: timetable.StopID(source),
			Target: timetable.StopID(target),
			Dep:    timetable.Time(dep),
		})
	}
}

// Run executes every query in order. A query that fails validation is
// logged and leaves an empty result row; the batch keeps going.
func Run(tt *timetable.Timetable, queries []Query, qt QueryType) []Result {
	engine := raptor.New(tt)
	results := make([]Result, len(queries))

	for i, q := range queries {
		start := time.Now()

		var (
			arrivals []timetable.Time
			journeys []raptor.Journey
			err      error
		)
		switch qt {
		case ProfileQueries:
			journeys, err = engine.ProfileQuery(q.Source, q.Target)
		default:
			arrivals, err = engine.Query(q.Source, q.Target, q.Dep)
		}

		elapsed := time.Since(start).Seconds()
		if err != nil {
			log.Printf("Query %d (%d -> %d at %d): %v", i, q.Source, q.Target, q.Dep, err)
		}

		results[i] = Result{
			Rank:        q.Rank,
			RunningTime: elapsed,
			Arrivals:    arrivals,
			Journeys:    journeys,
		}
	}
	return results
}

// WriteResults writes the measurement files into outDir:
// <dataset>_<ALGO>_running_time.csv with one running time per query,
// and <dataset>_<ALGO>_arrival_times.csv with the per-round label
// vector of each normal query (one comma-separated row per query, the
// empty row standing for a failed query). Profile journeys go to
// <dataset>_<ALGO>_profile_results.csv as dep:arr pairs.
func WriteResults(outDir string, tt *timetable.Timetable, qt QueryType, results []Result) error {
	prefix := filepath.Join(outDir, fmt.Sprintf("%s_%s_", tt.Name, tt.Algo))

	if err := writeRunningTimes(prefix+"running_time.csv", results); err != nil {
		return err
	}
	if qt == ProfileQueries {
		return writeProfiles(prefix+"profile_results.csv", results)
	}
	return writeArrivalTimes(prefix+"arrival_times.csv", results)
}

func writeRunningTimes(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := strings.Builder{}
	w.WriteString("running_time\n")
	for _, res := range results {
		fmt.Fprintf(&w, "%.4f\n", res.RunningTime)
	}
	if _, err := f.WriteString(w.String()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeArrivalTimes(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var w strings.Builder
	w.WriteString("arrival_times\n")
	for _, res := range results {
		for i, t := range res.Arrivals {
			if i > 0 {
				w.WriteByte(',')
			}
			w.WriteString(strconv.FormatInt(int64(t), 10))
		}
		w.WriteByte('\n')
	}
	if _, err := f.WriteString(w.String()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeProfiles(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var w strings.Builder
	w.WriteString("journeys\n")
	for _, res := range results {
		for i, j := range res.Journeys {
			if i > 0 {
				w.WriteByte(',')
			}
			fmt.Fprintf(&w, "%d:%d", j.Dep, j.Arr)
		}
		w.WriteByte('\n')
	}
	if _, err := f.WriteString(w.String()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
