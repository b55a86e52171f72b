package topology

import (
	"time"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// spCache holds shortest-path trees already computed by Dijkstra, keyed by
// their root vertex. This generalizes github.com/iti/mrnes's package-level
// cachedSP/getSPTree (routes.go) into a value owned by one Topology, so
// multiple topologies never share state. Unlike mrnes's undirected graph,
// this one is directed, so the "reuse a dst-rooted tree in reverse" trick
// routeFrom relies on does not apply here — a tree rooted at dst only
// answers queries whose direction the graph actually permits.
type spCache struct {
	trees        map[int64]path.Shortest
	dijkstraTime time.Duration
}

func newSPCache() *spCache {
	return &spCache{trees: make(map[int64]path.Shortest)}
}

// treeFrom returns the shortest-path tree rooted at from, computing and
// caching it on first request. Caller must hold the graph lock.
func (c *spCache) treeFrom(from int64, g graph.Graph) path.Shortest {
	if tree, ok := c.trees[from]; ok {
		return tree
	}
	start := time.Now()
	tree := path.DijkstraFrom(simple.Node(from), g)
	c.dijkstraTime += time.Since(start)
	c.trees[from] = tree
	return tree
}

// clear discards every cached tree, forcing recomputation on next use.
func (c *spCache) clear() {
	c.trees = make(map[int64]path.Shortest)
}

// shortestPath computes the Path between src and dst vertex indices: sums
// latency over the path's edges and composes reliability from the
// endpoint and edge packet-loss rates (spec.md §4.3, "Shortest-path
// computation"). Caller must hold the graph lock; this method touches the
// gonum graph and the tree cache but returns plain values, matching §9's
// "typed query API that releases the lock before cache insertion".
func (t *Topology) shortestPath(src, dst int64) (*Path, error) {
	srcRec, dstRec := t.loaded.byIndex[src], t.loaded.byIndex[dst]
	if srcRec == nil || dstRec == nil {
		return nil, ErrPathComputationFailed
	}

	if src == dst {
		return &Path{
			Latency:     SelfHopLatencyMs,
			Reliability: (1 - srcRec.desc.PacketLoss) * (1 - dstRec.desc.PacketLoss),
		}, nil
	}

	tree := t.spCache.treeFrom(src, t.loaded.g)
	nodeSeq, _ := tree.To(dst)
	if len(nodeSeq) == 0 {
		return nil, ErrPathComputationFailed
	}

	totalLatency := 0.0
	totalReliability := (1 - srcRec.desc.PacketLoss) * (1 - dstRec.desc.PacketLoss)
	for i := 1; i < len(nodeSeq); i++ {
		from := nodeSeq[i-1].ID()
		to := nodeSeq[i].ID()
		edge, ok := t.loaded.edgeAttrs[edgeKey{from: from, to: to}]
		if !ok {
			return nil, ErrPathComputationFailed
		}
		totalLatency += edge.Latency
		totalReliability *= 1 - edge.PacketLoss
	}

	return &Path{Latency: totalLatency, Reliability: totalReliability}, nil
}
