package topology

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gopkg.in/yaml.v3"
)

// VertexDesc is one vertex of a graph description document.
type VertexDesc struct {
	ID            string  `yaml:"id"`
	Type          string  `yaml:"type"`
	IP            string  `yaml:"ip,omitempty"`
	Geocode       string  `yaml:"geocode,omitempty"`
	BandwidthUp   float64 `yaml:"bandwidthUp,omitempty"`
	BandwidthDown float64 `yaml:"bandwidthDown,omitempty"`
	PacketLoss    float64 `yaml:"packetLoss,omitempty"`
}

// EdgeDesc is one directed edge of a graph description document.
type EdgeDesc struct {
	Src        string  `yaml:"src"`
	Dst        string  `yaml:"dst"`
	Latency    float64 `yaml:"latency"`
	Jitter     float64 `yaml:"jitter"`
	PacketLoss float64 `yaml:"packetLoss"`
}

// GraphDesc is the on-disk declarative graph description consumed by
// Topology.New (SPEC_FULL.md §6). It follows the same Desc-struct-with-
// yaml-tags convention github.com/iti/mrnes uses for TopoCfg/HostDesc in
// desc-topo.go.
type GraphDesc struct {
	Name     string       `yaml:"name"`
	Vertices []VertexDesc `yaml:"vertices"`
	Edges    []EdgeDesc   `yaml:"edges"`
}

// loadGraphDesc reads and parses a graph description from path.
func loadGraphDesc(path string) (*GraphDesc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphUnloadable, err)
	}
	var desc GraphDesc
	if err := yaml.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGraphUnloadable, err)
	}
	return &desc, nil
}

// isPoI reports whether a vertex id marks a point-of-interest vertex,
// eligible to host virtual machines (spec.md's "id containing poi").
func isPoI(id string) bool {
	return strings.Contains(id, "poi")
}

// vertexRecord is the validated, indexed form of one VertexDesc.
type vertexRecord struct {
	desc  VertexDesc
	index int64
	isPoI bool
}

// edgeKey identifies a directed edge by its endpoint vertex indices, used
// to recover jitter/packetLoss attributes the gonum weighted graph itself
// doesn't carry (it only stores the latency weight).
type edgeKey struct {
	from, to int64
}

// loadedGraph is the validated, graph-library-backed form of a GraphDesc:
// everything Topology needs to answer queries, built once at New time.
type loadedGraph struct {
	g         *simple.WeightedDirectedGraph
	byID      map[string]*vertexRecord
	byIndex   map[int64]*vertexRecord
	edgeAttrs map[edgeKey]EdgeDesc
	pois      []*vertexRecord
}

// buildGraph validates desc per spec.md §4.3 steps 2-5 and constructs the
// gonum graph used for shortest-path queries. Every vertex must carry
// id/type; PoI vertices must also carry ip/geocode and a positive
// bandwidthUp/bandwidthDown. A PoI vertex's packetLoss and an edge's
// latency/jitter/packetLoss are not checked for presence: an absent value
// reads as 0. Edges must reference known vertices. The resulting graph
// must be strongly connected or load fails.
func buildGraph(desc *GraphDesc) (*loadedGraph, error) {
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	byID := make(map[string]*vertexRecord, len(desc.Vertices))
	byIndex := make(map[int64]*vertexRecord, len(desc.Vertices))
	var pois []*vertexRecord

	for i, v := range desc.Vertices {
		if v.ID == "" || v.Type == "" {
			return nil, fmt.Errorf("%w: vertex %d missing id or type", ErrGraphUnloadable, i)
		}
		if _, dup := byID[v.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate vertex id %q", ErrGraphUnloadable, v.ID)
		}

		poi := isPoI(v.ID)
		if poi {
			if v.IP == "" || v.Geocode == "" || v.BandwidthUp <= 0 || v.BandwidthDown <= 0 {
				return nil, fmt.Errorf("%w: PoI vertex %q missing ip/geocode/bandwidthUp/bandwidthDown", ErrGraphUnloadable, v.ID)
			}
		}

		rec := &vertexRecord{desc: v, index: int64(i), isPoI: poi}
		byID[v.ID] = rec
		byIndex[rec.index] = rec
		g.AddNode(simple.Node(rec.index))
		if poi {
			pois = append(pois, rec)
		}
	}

	edgeAttrs := make(map[edgeKey]EdgeDesc, len(desc.Edges))
	for i, e := range desc.Edges {
		src, ok := byID[e.Src]
		if !ok {
			return nil, fmt.Errorf("%w: edge %d references unknown src %q", ErrGraphUnloadable, i, e.Src)
		}
		dst, ok := byID[e.Dst]
		if !ok {
			return nil, fmt.Errorf("%w: edge %d references unknown dst %q", ErrGraphUnloadable, i, e.Dst)
		}
		g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(src.index), T: simple.Node(dst.index), W: e.Latency})
		edgeAttrs[edgeKey{from: src.index, to: dst.index}] = e
	}

	if err := checkStronglyConnected(g, len(desc.Vertices)); err != nil {
		return nil, err
	}

	return &loadedGraph{g: g, byID: byID, byIndex: byIndex, edgeAttrs: edgeAttrs, pois: pois}, nil
}

// checkStronglyConnected fails with ErrUnconnectedTopology unless every
// vertex in the graph belongs to one single strongly connected component
// (spec.md §4.3 step 2, "single cluster").
func checkStronglyConnected(g *simple.WeightedDirectedGraph, nVertices int) error {
	if nVertices == 0 {
		return fmt.Errorf("%w: graph has no vertices", ErrUnconnectedTopology)
	}
	sccs := topo.TarjanSCC(g)
	if len(sccs) != 1 || len(sccs[0]) != nVertices {
		return ErrUnconnectedTopology
	}
	return nil
}
