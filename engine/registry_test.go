package engine

import "testing"

func TestRegistryPutGet(t *testing.T) {
	r := newRegistry()
	r.put(Software, "bittorrent", "v1.0")

	got, ok := r.get(Software, "bittorrent")
	if !ok || got != "v1.0" {
		t.Fatalf("get(Software, bittorrent) = (%v, %v), want (v1.0, true)", got, ok)
	}

	if _, ok := r.get(CDFs, "bittorrent"); ok {
		t.Errorf("expected no entry for CDFs/bittorrent")
	}
}

func TestRegistryKindsAreIsolated(t *testing.T) {
	r := newRegistry()
	r.put(Software, "x", 1)
	r.put(CDFs, "x", 2)
	r.put(PluginPaths, "x", 3)

	sw, _ := r.get(Software, "x")
	cdf, _ := r.get(CDFs, "x")
	pp, _ := r.get(PluginPaths, "x")

	if sw != 1 || cdf != 2 || pp != 3 {
		t.Errorf("registry kinds leaked into each other: sw=%v cdf=%v pp=%v", sw, cdf, pp)
	}
}
