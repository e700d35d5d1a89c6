package timetable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGz(t *testing.T, dir, name, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
}

// writeDataset lays down the standard test dataset: two plain routes,
// a single-stop route, a circular route, footpaths between stops 2 and
// 3, and hub files covering the same walks.
func writeDataset(t *testing.T, dir string) {
	t.Helper()

	writeGz(t, dir, "trips.csv.gz", `route_id,trip_id
0,0
0,1
1,10
1,11
2,20
3,30
`)
	writeGz(t, dir, "stop_routes.csv.gz", `stop_id,route_id
0,0
0,3
1,0
1,1
2,0
3,1
3,3
4,2
`)
	writeGz(t, dir, "transfers.csv.gz", `from_stop_id,to_stop_id,min_transfer_time
2,3,300
3,2,300
`)
	writeGz(t, dir, "in_hubs.gr.gz", `5 1 2000
6 2 1500
6 3 2000
`)
	writeGz(t, dir, "out_hubs.gr.gz", `0 5 1000
2 6 1200
3 6 1500
`)
	writeGz(t, dir, "stop_times.csv.gz", `trip_id,arrival_time,departure_time,stop_id
0,28800,28800,0
0,29100,29160,1
0,29400,29400,2
1,30000,30000,0
1,30300,30360,1
1,30600,30600,2
10,29400,29400,1
10,29700,29700,3
11,30600,30660,1
11,31000,31000,3
20,10000,10000,4
30,40000,40000,0
30,40300,40300,3
30,40600,40600,0
`)
}

func TestLoadR(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	tt, err := Load(dir, "test", AlgoR)
	require.NoError(t, err)

	t.Run("routes and trips", func(t *testing.T) {
		require.Len(t, tt.Routes, 4)
		assert.Equal(t, []StopID{0, 1, 2}, tt.Routes[0].Stops)
		assert.Equal(t, []TripID{0, 1}, tt.Routes[0].Trips)
		assert.Equal(t, TripPos{Route: 1, Pos: 1}, tt.TripPositions[11])
	})

	t.Run("stop times are dense and ordered", func(t *testing.T) {
		require.Len(t, tt.Routes[0].StopTimes, 2)
		assert.Equal(t, StopTime{Stop: 1, Arr: 29100, Dep: 29160}, tt.Routes[0].StopTimes[0][1])
		assert.Equal(t, StopTime{Stop: 2, Arr: 30600, Dep: 30600}, tt.Routes[0].StopTimes[1][2])
	})

	t.Run("circular route records both occurrences", func(t *testing.T) {
		assert.Equal(t, []StopID{0, 3, 0}, tt.Routes[3].Stops)
		assert.Equal(t, []int{0, 2}, tt.Routes[3].StopPositions[0])
	})

	t.Run("transfers and their reverse adjacency", func(t *testing.T) {
		assert.Equal(t, []Transfer{{Dest: 3, Time: 300}}, tt.Stops[2].Transfers)
		assert.Equal(t, []Transfer{{Dest: 2, Time: 300}}, tt.Stops[3].BackwardTransfers)
		assert.Equal(t, []Transfer{{Dest: 3, Time: 300}}, tt.Stops[2].BackwardTransfers)
	})

	t.Run("every listed stop is valid", func(t *testing.T) {
		require.Len(t, tt.Stops, 5)
		for _, s := range tt.Stops {
			assert.True(t, s.IsValid(), "stop %d", s.ID)
		}
		assert.False(t, tt.IsValidStop(99))
	})
}

func TestLoadHLR(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)

	tt, err := Load(dir, "test", AlgoHLR)
	require.NoError(t, err)

	t.Run("hub links carry converted times", func(t *testing.T) {
		assert.Equal(t, []HubLink{{Time: 180, Hub: 5}}, tt.Stops[1].InHubs)
		assert.Equal(t, []HubLink{{Time: 90, Hub: 5}}, tt.Stops[0].OutHubs)
	})

	t.Run("inverse maps are sorted by walking time", func(t *testing.T) {
		require.GreaterOrEqual(t, len(tt.InverseInHubs), 7)
		assert.Equal(t, []InverseHubLink{{Time: 135, Stop: 2}, {Time: 180, Stop: 3}}, tt.InverseInHubs[6])
		assert.Equal(t, []InverseHubLink{{Time: 108, Stop: 2}, {Time: 135, Stop: 3}}, tt.InverseOutHubs[6])
	})

	t.Run("pairwise walking times", func(t *testing.T) {
		assert.Equal(t, Time(270), tt.WalkingTime(0, 1))
		assert.Equal(t, Time(288), tt.WalkingTime(2, 3))
		assert.Equal(t, Infinity, tt.WalkingTime(0, 3))
	})

	t.Run("no transfers are loaded", func(t *testing.T) {
		assert.Empty(t, tt.Stops[2].Transfers)
	})

	t.Run("max node id covers the hubs", func(t *testing.T) {
		assert.Equal(t, NodeID(6), tt.MaxNodeID)
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(t.TempDir(), "test", AlgoR)
		assert.Error(t, err)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		_, err := Load(t.TempDir(), "test", Algorithm("X"))
		assert.Error(t, err)
	})

	t.Run("stop time for unknown trip", func(t *testing.T) {
		dir := t.TempDir()
		writeDataset(t, dir)
		writeGz(t, dir, "stop_times.csv.gz", `trip_id,arrival_time,departure_time,stop_id
77,100,100,0
`)
		_, err := Load(dir, "test", AlgoR)
		assert.Error(t, err)
	})

	t.Run("fifo violation is fatal", func(t *testing.T) {
		dir := t.TempDir()
		writeDataset(t, dir)
		// Trip 1 overtakes trip 0 on route 0.
		writeGz(t, dir, "stop_times.csv.gz", `trip_id,arrival_time,departure_time,stop_id
0,28800,28800,0
0,29100,29160,1
0,29400,29400,2
1,20000,20000,0
1,20300,20360,1
1,20600,20600,2
10,29400,29400,1
10,29700,29700,3
11,30600,30660,1
11,31000,31000,3
20,10000,10000,4
30,40000,40000,0
30,40300,40300,3
30,40600,40600,0
`)
		_, err := Load(dir, "test", AlgoR)
		assert.Error(t, err)
	})

	t.Run("arrival after departure is fatal", func(t *testing.T) {
		dir := t.TempDir()
		writeDataset(t, dir)
		writeGz(t, dir, "trips.csv.gz", "route_id,trip_id\n0,0\n")
		writeGz(t, dir, "stop_routes.csv.gz", "stop_id,route_id\n0,0\n1,0\n")
		writeGz(t, dir, "transfers.csv.gz", "from_stop_id,to_stop_id,min_transfer_time\n")
		writeGz(t, dir, "stop_times.csv.gz", `trip_id,arrival_time,departure_time,stop_id
0,200,100,0
0,300,300,1
`)
		_, err := Load(dir, "test", AlgoR)
		assert.Error(t, err)
	})

	t.Run("malformed row", func(t *testing.T) {
		dir := t.TempDir()
		writeDataset(t, dir)
		writeGz(t, dir, "trips.csv.gz", "route_id,trip_id\nnot,a number\n")
		_, err := Load(dir, "test", AlgoR)
		assert.Error(t, err)
	})
}
