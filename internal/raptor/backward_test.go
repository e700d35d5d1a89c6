package raptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passbi/raptor_core/internal/timetable"
)

func TestBackwardQueryR(t *testing.T) {
	engine := New(testTimetable(timetable.AlgoR))

	t.Run("latest departure for a known arrival", func(t *testing.T) {
		rounds, err := engine.BackwardQuery(0, 3, 29700)
		require.NoError(t, err)
		assert.Equal(t, []timetable.Time{
			timetable.NegInfinity, timetable.NegInfinity, 28800, 28800,
		}, rounds)
	})

	t.Run("labels never decrease over rounds", func(t *testing.T) {
		rounds, err := engine.BackwardQuery(0, 3, 40000)
		require.NoError(t, err)
		for i := 1; i < len(rounds); i++ {
			assert.GreaterOrEqual(t, rounds[i], rounds[i-1])
		}
	})

	t.Run("arrival before any trip", func(t *testing.T) {
		rounds, err := engine.BackwardQuery(0, 3, 20000)
		require.NoError(t, err)
		assert.Equal(t, timetable.NegInfinity, rounds[len(rounds)-1])
	})

	t.Run("rejects invalid stops", func(t *testing.T) {
		_, err := engine.BackwardQuery(99, 3, 29700)
		assert.Error(t, err)
		_, err = engine.BackwardQuery(3, 3, 29700)
		assert.Error(t, err)
	})
}

func TestBackwardQueryHLR(t *testing.T) {
	engine := New(testTimetable(timetable.AlgoHLR))

	t.Run("walking from the source allows a later departure", func(t *testing.T) {
		// R has to board at 28800; walking to stop 1 and catching the
		// first trip of route 1 pushes the departure to 29100.
		rounds, err := engine.BackwardQuery(0, 3, 29700)
		require.NoError(t, err)
		assert.Equal(t, timetable.Time(29100), rounds[len(rounds)-1])
	})

	t.Run("round trip never overshoots the arrival", func(t *testing.T) {
		for _, arr := range []timetable.Time{29700, 30900, 40000} {
			back, err := engine.BackwardQuery(0, 3, arr)
			require.NoError(t, err)
			depStar := back[len(back)-1]
			if !depStar.IsReachable() {
				continue
			}

			fwd, err := engine.Query(0, 3, depStar)
			require.NoError(t, err)
			assert.LessOrEqual(t, fwd[len(fwd)-1], arr, "arr %d", arr)
		}
	})
}
