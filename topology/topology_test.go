package topology

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/iti/rngstream"

	"github.com/iti/pdessim/engine"
)

const ringYAML = `
name: ring
vertices:
  - id: poi-A
    type: poi
    ip: "10.0.0.1"
    geocode: us-east
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.0
  - id: poi-B
    type: poi
    ip: "10.0.0.2"
    geocode: us-west
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.0
edges:
  - src: poi-A
    dst: poi-B
    latency: 50.0
    jitter: 1.0
    packetLoss: 0.0
  - src: poi-B
    dst: poi-A
    latency: 50.0
    jitter: 1.0
    packetLoss: 0.0
`

const lossYAML = `
name: loss
vertices:
  - id: poi-A
    type: poi
    ip: "10.0.0.1"
    geocode: us-east
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.1
  - id: poi-B
    type: poi
    ip: "10.0.0.2"
    geocode: us-west
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.2
edges:
  - src: poi-A
    dst: poi-B
    latency: 50.0
    jitter: 1.0
    packetLoss: 0.5
  - src: poi-B
    dst: poi-A
    latency: 50.0
    jitter: 1.0
    packetLoss: 0.0
`

func writeGraph(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "topo.yaml")
	if err := os.WriteFile(p, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return p
}

func mustTopology(t *testing.T, yaml string) *Topology {
	t.Helper()
	top, err := New(writeGraph(t, yaml))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return top
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// scenario 1: two-vertex ring.
func TestTwoVertexRingLatencyAndReliability(t *testing.T) {
	top := mustTopology(t, ringYAML)
	rng := rngstream.New("ring-test")

	hostA, hostB := engine.HostID(1), engine.HostID(2)
	if _, _, err := top.Connect(hostA, rng, "10.0.0.1", "", ""); err != nil {
		t.Fatalf("Connect(hostA) error = %v", err)
	}
	if _, _, err := top.Connect(hostB, rng, "10.0.0.2", "", ""); err != nil {
		t.Fatalf("Connect(hostB) error = %v", err)
	}

	if lat := top.Latency(hostA, hostB); !almostEqual(lat, 50.0) {
		t.Errorf("Latency(A,B) = %v, want 50.0", lat)
	}
	if rel := top.Reliability(hostA, hostB); !almostEqual(rel, 1.0) {
		t.Errorf("Reliability(A,B) = %v, want 1.0", rel)
	}
}

// scenario 2: loss composition, 0.9 * 0.8 * 0.5 = 0.36.
func TestLossComposition(t *testing.T) {
	top := mustTopology(t, lossYAML)
	rng := rngstream.New("loss-test")

	hostA, hostB := engine.HostID(1), engine.HostID(2)
	if _, _, err := top.Connect(hostA, rng, "10.0.0.1", "", ""); err != nil {
		t.Fatalf("Connect(hostA) error = %v", err)
	}
	if _, _, err := top.Connect(hostB, rng, "10.0.0.2", "", ""); err != nil {
		t.Fatalf("Connect(hostB) error = %v", err)
	}

	got := top.Reliability(hostA, hostB)
	if !almostEqual(got, 0.36) {
		t.Errorf("Reliability(A,B) = %v, want 0.36", got)
	}
}

// scenario 3: self-path.
func TestSelfPathLatencyAndReliability(t *testing.T) {
	top := mustTopology(t, lossYAML)
	rng := rngstream.New("self-test")

	hostA := engine.HostID(1)
	if _, _, err := top.Connect(hostA, rng, "10.0.0.1", "", ""); err != nil {
		t.Fatalf("Connect(hostA) error = %v", err)
	}

	if lat := top.Latency(hostA, hostA); !almostEqual(lat, SelfHopLatencyMs) {
		t.Errorf("Latency(A,A) = %v, want %v", lat, SelfHopLatencyMs)
	}
	want := (1 - 0.1) * (1 - 0.1)
	if rel := top.Reliability(hostA, hostA); !almostEqual(rel, want) {
		t.Errorf("Reliability(A,A) = %v, want %v", rel, want)
	}
}

// scenario 6: unreachable query (unattached endpoint).
func TestUnreachableQueryReturnsSentinel(t *testing.T) {
	top := mustTopology(t, ringYAML)
	rng := rngstream.New("unattached-test")

	hostA, hostB := engine.HostID(1), engine.HostID(2)
	if _, _, err := top.Connect(hostA, rng, "10.0.0.1", "", ""); err != nil {
		t.Fatalf("Connect(hostA) error = %v", err)
	}
	// hostB never connected.

	if lat := top.Latency(hostA, hostB); lat != UnattachedSentinel {
		t.Errorf("Latency(attached, unattached) = %v, want %v", lat, UnattachedSentinel)
	}
	if top.IsRoutable(hostA, hostB) {
		t.Errorf("IsRoutable(attached, unattached) = true, want false")
	}
}

func TestDisconnectMakesQueriesUnattached(t *testing.T) {
	top := mustTopology(t, ringYAML)
	rng := rngstream.New("disconnect-test")

	hostA, hostB := engine.HostID(1), engine.HostID(2)
	top.Connect(hostA, rng, "10.0.0.1", "", "")
	top.Connect(hostB, rng, "10.0.0.2", "", "")

	if lat := top.Latency(hostA, hostB); lat < 0 {
		t.Fatalf("expected a valid latency before Disconnect, got %v", lat)
	}

	top.Disconnect(hostB)
	if lat := top.Latency(hostA, hostB); lat != UnattachedSentinel {
		t.Errorf("Latency after Disconnect(B) = %v, want %v", lat, UnattachedSentinel)
	}
}

// invariant 7: cache idempotence — the second call must not advance the
// cumulative Dijkstra time.
func TestCacheIdempotence(t *testing.T) {
	top := mustTopology(t, ringYAML)
	rng := rngstream.New("idempotence-test")

	hostA, hostB := engine.HostID(1), engine.HostID(2)
	top.Connect(hostA, rng, "10.0.0.1", "", "")
	top.Connect(hostB, rng, "10.0.0.2", "", "")

	first := top.Latency(hostA, hostB)
	spent := top.DijkstraTimeSpent()

	second := top.Latency(hostA, hostB)
	spentAfter := top.DijkstraTimeSpent()

	if first != second {
		t.Errorf("Latency not idempotent: first=%v second=%v", first, second)
	}
	if spentAfter != spent {
		t.Errorf("DijkstraTimeSpent advanced on a cache hit: before=%v after=%v", spent, spentAfter)
	}
}

func TestLoadRejectsUnconnectedGraph(t *testing.T) {
	const disconnected = `
name: split
vertices:
  - id: poi-A
    type: poi
    ip: "10.0.0.1"
    geocode: us-east
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.0
  - id: poi-B
    type: poi
    ip: "10.0.0.2"
    geocode: us-west
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.0
edges: []
`
	_, err := New(writeGraph(t, disconnected))
	if err == nil {
		t.Fatal("expected ErrUnconnectedTopology for a graph with no edges")
	}
}

func TestLoadRejectsPoIMissingAttributes(t *testing.T) {
	const malformed = `
name: bad
vertices:
  - id: poi-A
    type: poi
edges: []
`
	_, err := New(writeGraph(t, malformed))
	if err == nil {
		t.Fatal("expected ErrGraphUnloadable for a PoI vertex missing required attributes")
	}
}

func TestConnectHonorsTypeAndClusterHints(t *testing.T) {
	const multi = `
name: multi
vertices:
  - id: poi-A
    type: edge
    ip: "10.0.0.1"
    geocode: us-east
    bandwidthUp: 100.0
    bandwidthDown: 1000.0
    packetLoss: 0.0
  - id: poi-B
    type: core
    ip: "10.0.0.2"
    geocode: us-west
    bandwidthUp: 200.0
    bandwidthDown: 2000.0
    packetLoss: 0.0
edges:
  - src: poi-A
    dst: poi-B
    latency: 10.0
    jitter: 0.0
    packetLoss: 0.0
  - src: poi-B
    dst: poi-A
    latency: 10.0
    jitter: 0.0
    packetLoss: 0.0
`
	top := mustTopology(t, multi)
	rng := rngstream.New("hint-test")

	host := engine.HostID(1)
	bwDown, bwUp, err := top.Connect(host, rng, "", "us-west", "core")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if bwDown != 2000.0 || bwUp != 200.0 {
		t.Errorf("Connect() = (%v, %v), want (2000.0, 200.0) for poi-B", bwDown, bwUp)
	}
}

func TestConnectReturnsNoCandidateWhenHintsExcludeEverything(t *testing.T) {
	top := mustTopology(t, ringYAML)
	rng := rngstream.New("no-candidate-test")

	_, _, err := top.Connect(engine.HostID(1), rng, "", "", "nonexistent-type")
	if err != ErrNoCandidate {
		t.Fatalf("Connect() error = %v, want ErrNoCandidate", err)
	}
}
