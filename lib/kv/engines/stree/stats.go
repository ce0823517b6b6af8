package stree

import (
	"github.com/ValentinKolb/nvKV/lib/kv/engines/stree/internal"
	"github.com/ValentinKolb/nvKV/lib/kv/util"
)

// --------------------------------------------------------------------------
// Engine Statistics
// --------------------------------------------------------------------------

// Stats describes the shape of the tree and its payload sizes.
type Stats struct {
	Records    uint64 `json:"records"`
	Leaves     int    `json:"leaves"`
	InnerNodes int    `json:"inner_nodes"`
	FreeLeaves int    `json:"free_leaves"`
	Depth      int    `json:"depth"`
	PoolSize   uint64 `json:"pool_size_bytes"`

	ValueSizeMedian  int `json:"value_size_median"`
	ValueSizeAverage int `json:"value_size_average"`
}

// Stats walks the volatile index and summarizes the engine state.
func (e *engine) Stats() Stats {
	stats := Stats{
		FreeLeaves: len(e.free),
		PoolSize:   e.pool.Size(),
	}

	histogram := util.NewSizeHistogram()
	var walk func(n internal.Node, depth int)
	walk = func(n internal.Node, depth int) {
		if depth > stats.Depth {
			stats.Depth = depth
		}
		switch t := n.(type) {
		case *internal.Leaf:
			stats.Leaves++
			pl := e.leaf(t.Leaf)
			for i := 0; i < internal.LeafKeys; i++ {
				if t.Hashes[i] == 0 {
					continue
				}
				stats.Records++
				_, valueSize := pl.slotSizes(i)
				histogram.AddSample(int(valueSize))
			}
		case *internal.Inner:
			stats.InnerNodes++
			for _, child := range t.Children {
				walk(child, depth+1)
			}
		}
	}
	if e.top != nil {
		walk(e.top, 1)
	}

	stats.ValueSizeMedian = histogram.MedianEstimate()
	stats.ValueSizeAverage = histogram.AverageSize()
	return stats
}

// EngineStats exposes Stats through the store info hook.
func (e *engine) EngineStats() interface{} { return e.Stats() }
