package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passbi/raptor_core/internal/timetable"
)

// buildRoute assembles a route from its trip ids, stop pattern and a
// dense (arr, dep) table indexed [trip][stop].
func buildRoute(id timetable.RouteID, trips []timetable.TripID, stops []timetable.StopID, times [][][2]timetable.Time) timetable.Route {
	route := timetable.Route{
		ID:            id,
		Trips:         trips,
		Stops:         stops,
		StopPositions: make(map[timetable.StopID][]int),
	}
	for i, s := range stops {
		route.StopPositions[s] = append(route.StopPositions[s], i)
	}
	for _, row := range times {
		sts := make([]timetable.StopTime, len(row))
		for i, ad := range row {
			sts[i] = timetable.StopTime{Stop: stops[i], Arr: ad[0], Dep: ad[1]}
		}
		route.StopTimes = append(route.StopTimes, sts)
	}
	return route
}

// testTimetable is a five-stop network exercising every scan path:
//
//	route 0: 0 -> 1 -> 2        (two trips, dep 28800 and 30000)
//	route 1: 1 -> 3             (two trips)
//	route 2: 4                  (single-stop route, disconnected)
//	route 3: 0 -> 3 -> 0        (circular, stop 0 appears twice)
//
// Footpaths connect 2 and 3 both ways at 300s; under HLR the same
// walks go through hub 6, and hub 5 links 0 to 1 at 300s total.
func testTimetable(algo timetable.Algorithm) *timetable.Timetable {
	tt := &timetable.Timetable{
		Name: "fixture",
		Algo: algo,
		Routes: []timetable.Route{
			buildRoute(0, []timetable.TripID{0, 1}, []timetable.StopID{0, 1, 2}, [][][2]timetable.Time{
				{{28800, 28800}, {29100, 29160}, {29400, 29400}},
				{{30000, 30000}, {30300, 30360}, {30600, 30600}},
			}),
			buildRoute(1, []timetable.TripID{10, 11}, []timetable.StopID{1, 3}, [][][2]timetable.Time{
				{{29400, 29400}, {29700, 29700}},
				{{30600, 30660}, {31000, 31000}},
			}),
			buildRoute(2, []timetable.TripID{20}, []timetable.StopID{4}, [][][2]timetable.Time{
				{{10000, 10000}},
			}),
			buildRoute(3, []timetable.TripID{30}, []timetable.StopID{0, 3, 0}, [][][2]timetable.Time{
				{{40000, 40000}, {40300, 40300}, {40600, 40600}},
			}),
		},
		Stops: []timetable.Stop{
			{ID: 0, Routes: []timetable.RouteID{0, 3}},
			{ID: 1, Routes: []timetable.RouteID{0, 1}},
			{ID: 2, Routes: []timetable.RouteID{0}},
			{ID: 3, Routes: []timetable.RouteID{1, 3}},
			{ID: 4, Routes: []timetable.RouteID{2}},
		},
		MaxStopID: 4,
		MaxNodeID: 4,
	}

	switch algo {
	case timetable.AlgoR:
		tt.Stops[2].Transfers = []timetable.Transfer{{Dest: 3, Time: 300}}
		tt.Stops[3].Transfers = []timetable.Transfer{{Dest: 2, Time: 300}}
		tt.Stops[2].BackwardTransfers = []timetable.Transfer{{Dest: 3, Time: 300}}
		tt.Stops[3].BackwardTransfers = []timetable.Transfer{{Dest: 2, Time: 300}}

	case timetable.AlgoHLR:
		tt.MaxNodeID = 6
		tt.Stops[0].OutHubs = []timetable.HubLink{{Time: 60, Hub: 5}}
		tt.Stops[1].InHubs = []timetable.HubLink{{Time: 240, Hub: 5}}
		tt.Stops[1].OutHubs = []timetable.HubLink{{Time: 240, Hub: 5}}
		tt.Stops[2].InHubs = []timetable.HubLink{{Time: 150, Hub: 6}}
		tt.Stops[2].OutHubs = []timetable.HubLink{{Time: 120, Hub: 6}}
		tt.Stops[3].InHubs = []timetable.HubLink{{Time: 180, Hub: 6}}
		tt.Stops[3].OutHubs = []timetable.HubLink{{Time: 150, Hub: 6}}

		tt.InverseInHubs = make([][]timetable.InverseHubLink, 7)
		tt.InverseOutHubs = make([][]timetable.InverseHubLink, 7)
		tt.InverseInHubs[5] = []timetable.InverseHubLink{{Time: 240, Stop: 1}}
		tt.InverseInHubs[6] = []timetable.InverseHubLink{{Time: 150, Stop: 2}, {Time: 180, Stop: 3}}
		tt.InverseOutHubs[5] = []timetable.InverseHubLink{{Time: 60, Stop: 0}, {Time: 240, Stop: 1}}
		tt.InverseOutHubs[6] = []timetable.InverseHubLink{{Time: 120, Stop: 2}, {Time: 150, Stop: 3}}
	}

	return tt
}

func TestForwardQueryR(t *testing.T) {
	engine := New(testTimetable(timetable.AlgoR))

	t.Run("one trip plus footpath", func(t *testing.T) {
		rounds, err := engine.Query(0, 3, 28800)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{timetable.Infinity, 29700, 29700}, rounds)
	})

	t.Run("single trip", func(t *testing.T) {
		rounds, err := engine.Query(0, 2, 28800)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{timetable.Infinity, 29400, 29400}, rounds)
	})

	t.Run("direct neighbour", func(t *testing.T) {
		rounds, err := engine.Query(0, 1, 28800)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{timetable.Infinity, 29100, 29100}, rounds)
	})

	t.Run("unreachable target stays infinite", func(t *testing.T) {
		rounds, err := engine.Query(0, 4, 28800)
		require.NoError(t, err)
		for _, label := range rounds {
			assert.Equal(t, timetable.Infinity, label)
		}
	})

	t.Run("labels never increase over rounds", func(t *testing.T) {
		rounds, err := engine.Query(0, 3, 0)
		require.NoError(t, err)
		for i := 1; i < len(rounds); i++ {
			assert.LessOrEqual(t, rounds[i], rounds[i-1])
		}
	})

	t.Run("departure after last trip", func(t *testing.T) {
		rounds, err := engine.Query(1, 3, 86400)
		require.NoError(t, err)
		assert.Equal(t, timetable.Infinity, rounds[len(rounds)-1])
	})

	t.Run("single-stop route goes nowhere", func(t *testing.T) {
		rounds, err := engine.Query(4, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, timetable.Infinity, rounds[len(rounds)-1])
	})

	t.Run("circular route reaches second occurrence", func(t *testing.T) {
		rounds, err := engine.Query(3, 0, 40000)
		require.NoError(t, err)
		assert.Equal(t, timetable.Time(40600), rounds[len(rounds)-1])
	})
}

func TestForwardQueryHLR(t *testing.T) {
	engine := New(testTimetable(timetable.AlgoHLR))

	t.Run("agrees with explicit transfers", func(t *testing.T) {
		// The hub walks between 2 and 3 reproduce the R transfer
		// graph, so the arrivals have to line up.
		rounds, err := engine.Query(0, 3, 28800)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{timetable.Infinity, 29700, 29700}, rounds)
	})

	t.Run("pure walking bounds the target from round zero", func(t *testing.T) {
		rounds, err := engine.Query(0, 1, 28800)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{29100, 29100}, rounds)
	})

	t.Run("walk from source opens a later journey", func(t *testing.T) {
		// Departing at 29100 the direct trips are gone; walking to
		// stop 1 still catches the first trip of route 1 in round 2.
		rounds, err := engine.Query(0, 3, 29100)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{timetable.Infinity, 30900, 29700, 29700}, rounds)
	})

	t.Run("never later than R", func(t *testing.T) {
		rEngine := New(testTimetable(timetable.AlgoR))
		for _, dep := range []timetable.Time{0, 28800, 29000, 30000} {
			hl, err := engine.Query(0, 3, dep)
			require.NoError(t, err)
			ex, err := rEngine.Query(0, 3, dep)
			require.NoError(t, err)
			assert.LessOrEqual(t, hl[len(hl)-1], ex[len(ex)-1], "dep %d", dep)
		}
	})
}

func TestQueryValidation(t *testing.T) {
	engine := New(testTimetable(timetable.AlgoR))

	tests := []struct {
		name   string
		source timetable.StopID
		target timetable.StopID
		dep    timetable.Time
	}{
		{"unknown source", 99, 3, 28800},
		{"unknown target", 0, 99, 28800},
		{"identical endpoints", 1, 1, 28800},
		{"departure past end of day", 0, 3, 86401},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Query(tc.source, tc.target, tc.dep)
			assert.Error(t, err)
		})
	}

	t.Run("departure at end of day is allowed", func(t *testing.T) {
		_, err := engine.Query(0, 3, 86400)
		assert.NoError(t, err)
	})

	t.Run("departure zero is allowed", func(t *testing.T) {
		rounds, err := engine.Query(0, 3, 0)
		require.NoError(t, err)
		assert.Equal(t, timetable.Time(29700), rounds[len(rounds)-1])
	})
}

func TestWalkingTime(t *testing.T) {
	tt := testTimetable(timetable.AlgoHLR)

	assert.Equal(t, timetable.Time(300), tt.WalkingTime(0, 1))
	assert.Equal(t, timetable.Time(300), tt.WalkingTime(2, 3))
	assert.Equal(t, timetable.Time(300), tt.WalkingTime(3, 2))
	assert.Equal(t, timetable.Infinity, tt.WalkingTime(0, 3), "no common hub")
}
