// Package labels loads the raw hub labelling of the walking graph on
// its own, without the timetable. It answers distance-only questions:
// pairwise walking distances by sorted merge and single-source
// distance lists, which is all the query generator needs.
package labels

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/klauspost/compress/gzip"
)

// Node identifies a walking-graph node; stops share this id space.
type Node = uint32

// Distance is a walking distance in the graph's native units.
type Distance = uint32

// InfiniteDistance marks an unreachable pair.
const InfiniteDistance Distance = math.MaxUint32

// HubRef is one entry of a node's label: the hub and the distance to
// (or from) it.
type HubRef struct {
	Hub  Node
	Dist Distance
}

// DistStop is one entry of a single-source result list.
type DistStop struct {
	Dist Distance
	Stop Node
}

// GraphLabel is the 2-hop cover of the walking graph: per stop, the
// hubs reachable walking out of it and the hubs that reach it. Both
// label lists are kept sorted by hub id so that pairwise distances
// reduce to a sorted merge.
type GraphLabel struct {
	In  map[Node][]HubRef
	Out map[Node][]HubRef
}

// Load reads in_hubs.gr.gz and out_hubs.gr.gz from dir. The files are
// space-separated and headerless; in_hubs rows are "hub_node stop_id
// distance", out_hubs rows "stop_id hub_node distance".
func Load(dir string) (*GraphLabel, error) {
	gl := &GraphLabel{
		In:  make(map[Node][]HubRef),
		Out: make(map[Node][]HubRef),
	}

	err := eachRow(filepath.Join(dir, "in_hubs.gr.gz"), func(a, b, c uint32) {
		gl.In[b] = append(gl.In[b], HubRef{Hub: a, Dist: c})
	})
	if err != nil {
		return nil, fmt.Errorf("in_hubs: %w", err)
	}

	err = eachRow(filepath.Join(dir, "out_hubs.gr.gz"), func(a, b, c uint32) {
		gl.Out[a] = append(gl.Out[a], HubRef{Hub: b, Dist: c})
	})
	if err != nil {
		return nil, fmt.Errorf("out_hubs: %w", err)
	}

	gl.sort()
	return gl, nil
}

func (gl *GraphLabel) sort() {
	for _, m := range []map[Node][]HubRef{gl.In, gl.Out} {
		for _, refs := range m {
			sort.Slice(refs, func(i, j int) bool { return refs[i].Hub < refs[j].Hub })
		}
	}
}

// Distance returns the walking distance between u and v: the best
// common hub of out(u) and in(v), found by merging the two hub-sorted
// label lists. InfiniteDistance when the labels share no hub.
func (gl *GraphLabel) Distance(u, v Node) Distance {
	out, in := gl.Out[u], gl.In[v]
	best := InfiniteDistance

	i, j := 0, 0
	for i < len(out) && j < len(in) {
		switch {
		case out[i].Hub < in[j].Hub:
			i++
		case out[i].Hub > in[j].Hub:
			j++
		default:
			if d := out[i].Dist + in[j].Dist; d < best {
				best = d
			}
			i++
			j++
		}
	}
	return best
}

// SingleSourceDistances returns every stop reachable from u by
// walking, sorted by ascending distance. It seeds a working map with
// out(u) and then joins each stop's in-label against it.
func (gl *GraphLabel) SingleSourceDistances(u Node) []DistStop {
	via := make(map[Node]Distance, len(gl.Out[u]))
	for _, ref := range gl.Out[u] {
		if cur, ok := via[ref.Hub]; !ok || ref.Dist < cur {
			via[ref.Hub] = ref.Dist
		}
	}

	out := make([]DistStop, 0, len(gl.In))
	for stop, refs := range gl.In {
		best := InfiniteDistance
		for _, ref := range refs {
			if d, ok := via[ref.Hub]; ok && d+ref.Dist < best {
				best = d + ref.Dist
			}
		}
		if best < InfiniteDistance {
			out = append(out, DistStop{Dist: best, Stop: stop})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist != out[j].Dist {
			return out[i].Dist < out[j].Dist
		}
		return out[i].Stop < out[j].Stop
	})
	return out
}

// Stops returns the stop ids carrying an in-label, sorted ascending.
func (gl *GraphLabel) Stops() []Node {
	out := make([]Node, 0, len(gl.In))
	for stop := range gl.In {
		out = append(out, stop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func eachRow(path string, row func(a, b, c uint32)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", path, err)
	}
	defer gz.Close()

	r := csv.NewReader(gz)
	r.Comma = ' '
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	line := 0
	for {
		fields, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		line++
		if len(fields) < 3 {
			return fmt.Errorf("%s line %d: expected 3 fields", path, line)
		}

		var vals [3]uint32
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(fields[i], 10, 32)
			if err != nil {
				return fmt.Errorf("%s line %d: bad value %q", path, line, fields[i])
			}
			vals[i] = uint32(v)
		}
		row(vals[0], vals[1], vals[2])
	}
}
