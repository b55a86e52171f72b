// Package topology implements the graph-backed routing service: it loads
// and validates a static network graph, pins virtual hosts to
// point-of-interest vertices, and answers latency/reliability queries
// through a two-level path cache backed by cached Dijkstra shortest-path
// trees. Grounded on github.com/iti/mrnes's routes.go, generalized from an
// unweighted undirected hop-count graph to one weighted by latency, and
// from package-level state to fields on a Topology value.
package topology

import (
	"sync"
	"time"

	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"

	"github.com/iti/pdessim/engine"
)

// Topology is a loaded, validated network graph plus the runtime state
// (attachments, path cache, SP-tree cache) needed to answer queries
// against it. Lock order, enforced structurally, is
// virtualIPLock -> graphLock -> pathCacheLock (spec.md §5).
type Topology struct {
	graphMu sync.Mutex
	loaded  *loadedGraph
	spCache *spCache

	attachMu sync.RWMutex
	attach   map[engine.HostID]int64

	pathMu    sync.RWMutex
	pathCache map[engine.HostID]map[engine.HostID]*Path
}

// New loads, validates, and indexes the graph description at graphPath.
func New(graphPath string) (*Topology, error) {
	desc, err := loadGraphDesc(graphPath)
	if err != nil {
		return nil, err
	}
	loaded, err := buildGraph(desc)
	if err != nil {
		return nil, err
	}
	return &Topology{
		loaded:    loaded,
		spCache:   newSPCache(),
		attach:    make(map[engine.HostID]int64),
		pathCache: make(map[engine.HostID]map[engine.HostID]*Path),
	}, nil
}

// candidates returns the PoI vertices matching typeHint/clusterHint/
// ipHint. Empty hints are wildcards. ipHint, when non-empty, keeps only
// the candidates with the longest common prefix against its own IP — the
// longest-prefix match spec.md §9 recommends to resolve the "implementer
// should honor the hints" open question.
func (t *Topology) candidates(ipHint, clusterHint, typeHint string) []*vertexRecord {
	var out []*vertexRecord
	for _, v := range t.loaded.pois {
		if typeHint != "" && v.desc.Type != typeHint {
			continue
		}
		if clusterHint != "" && v.desc.Geocode != clusterHint {
			continue
		}
		out = append(out, v)
	}
	if ipHint == "" || len(out) == 0 {
		return out
	}

	best := -1
	var kept []*vertexRecord
	for _, v := range out {
		n := commonPrefixLen(ipHint, v.desc.IP)
		switch {
		case n > best:
			best = n
			kept = []*vertexRecord{v}
		case n == best:
			kept = append(kept, v)
		}
	}
	return kept
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Connect pins host to a PoI vertex matching the given hints, chosen
// uniformly at random via rng when more than one candidate remains, and
// returns the chosen vertex's downlink/uplink bandwidth.
func (t *Topology) Connect(host engine.HostID, rng *rngstream.RngStream, ipHint, clusterHint, typeHint string) (bwDown, bwUp float64, err error) {
	t.graphMu.Lock()
	cands := t.candidates(ipHint, clusterHint, typeHint)
	t.graphMu.Unlock()

	if len(cands) == 0 {
		return 0, 0, ErrNoCandidate
	}

	chosen := cands[0]
	if len(cands) > 1 {
		idx := int(rng.RandU01() * float64(len(cands)))
		if idx >= len(cands) {
			idx = len(cands) - 1
		}
		chosen = cands[idx]
	}

	t.attachMu.Lock()
	t.attach[host] = chosen.index
	t.attachMu.Unlock()

	return chosen.desc.BandwidthDown, chosen.desc.BandwidthUp, nil
}

// Disconnect removes host's PoI attachment, if any.
func (t *Topology) Disconnect(host engine.HostID) {
	t.attachMu.Lock()
	delete(t.attach, host)
	t.attachMu.Unlock()
}

func (t *Topology) vertexFor(host engine.HostID) (int64, bool) {
	t.attachMu.RLock()
	defer t.attachMu.RUnlock()
	idx, ok := t.attach[host]
	return idx, ok
}

func (t *Topology) cachedPath(src, dst engine.HostID) (*Path, bool) {
	t.pathMu.RLock()
	defer t.pathMu.RUnlock()
	inner, ok := t.pathCache[src]
	if !ok {
		return nil, false
	}
	p, ok := inner[dst]
	return p, ok
}

// insertPath records p for (src, dst). A concurrently inserted equivalent
// entry is not an error: Paths for the same endpoints are functionally
// equal, so last writer wins (spec.md §4.3, "Path lookup" step 3).
func (t *Topology) insertPath(src, dst engine.HostID, p *Path) {
	t.pathMu.Lock()
	defer t.pathMu.Unlock()
	inner, ok := t.pathCache[src]
	if !ok {
		inner = make(map[engine.HostID]*Path)
		t.pathCache[src] = inner
	}
	inner[dst] = p
}

// resolvePath is the shared implementation behind Latency and
// Reliability: resolve attachments, consult the cache, and on a miss
// compute under the graph lock before inserting. Both query-time failure
// classes (AddressUnattached, PathComputationFailed) collapse to "no
// path" here; the public accessors apply the <0 sentinel.
func (t *Topology) resolvePath(src, dst engine.HostID) (*Path, bool) {
	srcVertex, ok := t.vertexFor(src)
	if !ok {
		logrus.Warnf("topology: address %d unattached", src)
		return nil, false
	}
	dstVertex, ok := t.vertexFor(dst)
	if !ok {
		logrus.Warnf("topology: address %d unattached", dst)
		return nil, false
	}

	if p, ok := t.cachedPath(src, dst); ok {
		return p, true
	}

	t.graphMu.Lock()
	p, err := t.shortestPath(srcVertex, dstVertex)
	t.graphMu.Unlock()
	if err != nil {
		logrus.Errorf("topology: path computation failed for %d->%d: %v", src, dst, err)
		return nil, false
	}

	t.insertPath(src, dst, p)
	return p, true
}

// Latency returns the millisecond latency between src and dst, or the
// documented negative sentinel if either endpoint is unattached or the
// path computation failed.
func (t *Topology) Latency(src, dst engine.HostID) float64 {
	p, ok := t.resolvePath(src, dst)
	if !ok {
		return UnattachedSentinel
	}
	return p.Latency
}

// Reliability returns the end-to-end delivery probability between src and
// dst, or the documented negative sentinel if either endpoint is
// unattached or the path computation failed.
func (t *Topology) Reliability(src, dst engine.HostID) float64 {
	p, ok := t.resolvePath(src, dst)
	if !ok {
		return UnattachedSentinel
	}
	return p.Reliability
}

// IsRoutable reports whether a path exists between src and dst.
func (t *Topology) IsRoutable(src, dst engine.HostID) bool {
	return t.Latency(src, dst) >= 0
}

// ClearCache discards the path cache and every cached shortest-path tree.
// This is the only way either cache is invalidated; the core never does
// so implicitly (spec.md §4.3, "Cache invalidation").
func (t *Topology) ClearCache() {
	t.pathMu.Lock()
	t.pathCache = make(map[engine.HostID]map[engine.HostID]*Path)
	t.pathMu.Unlock()

	t.graphMu.Lock()
	t.spCache.clear()
	t.graphMu.Unlock()
}

// DijkstraTimeSpent returns the cumulative wall-clock time spent inside
// Dijkstra computations, for the cache-idempotence observability
// invariant (spec.md §8, invariant 7).
func (t *Topology) DijkstraTimeSpent() time.Duration {
	t.graphMu.Lock()
	defer t.graphMu.Unlock()
	return t.spCache.dijkstraTime
}
