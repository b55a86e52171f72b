package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadConfigRoundTrip(t *testing.T) {
	p := writeConfig(t, `
minTimeJumpNs: 1000000
endTimeNs: 5000000000
nWorkers: 4
topologyPath: "testdata/topo.yaml"
seed: 42
`)
	c, err := LoadConfig(p)
	require.NoError(t, err)

	want := Config{
		MinTimeJumpNs: 1000000,
		EndTimeNs:     5000000000,
		NWorkers:      4,
		TopologyPath:  "testdata/topo.yaml",
		Seed:          42,
	}
	assert.Equal(t, want, c)
	assert.NoError(t, c.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadFields(t *testing.T) {
	base := Config{MinTimeJumpNs: 100, EndTimeNs: 1000, NWorkers: 2, TopologyPath: "x.yaml", Seed: 1}

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero minTimeJumpNs", func(c *Config) { c.MinTimeJumpNs = 0 }},
		{"negative minTimeJumpNs", func(c *Config) { c.MinTimeJumpNs = -1 }},
		{"zero endTimeNs", func(c *Config) { c.EndTimeNs = 0 }},
		{"negative nWorkers", func(c *Config) { c.NWorkers = -1 }},
		{"empty topologyPath", func(c *Config) { c.TopologyPath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
