package raptor

import "github.com/passbi/raptor_core/internal/timetable"

// RemoveDominated reduces a per-round label vector to its Pareto set:
// scanning left to right, it drops Infinity and every value not
// strictly below the running minimum. Later rounds use more trips, so
// an arrival that is not strictly earlier than one from a previous
// round is dominated. The output is strictly decreasing, and the
// function is idempotent.
func RemoveDominated(times []timetable.Time) []timetable.Time {
	out := make([]timetable.Time, 0, len(times))
	best := timetable.Infinity
	for _, t := range times {
		if t >= best {
			continue
		}
		best = t
		out = append(out, t)
	}
	return out
}
