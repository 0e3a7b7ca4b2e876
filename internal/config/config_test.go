package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoscan/internal/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	assert.Equal(t, 10000, c.PathLimit)
	assert.Equal(t, runtime.NumCPU(), c.Workers)
	assert.Equal(t, config.FormatText, c.Format)
	assert.NoError(t, c.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`
detectors: [sig-mal, hash-collision]
exclude:
  - weak-prng
pathLimit: 50
format: sarif
verbosity: 2
metricsAddr: ":9102"
inventory: true
`), 0o644))

	got, err := config.Load(path)
	require.NoError(t, err)

	want := config.Default()
	want.Detectors = []string{"sig-mal", "hash-collision"}
	want.Exclude = []string{"weak-prng"}
	want.PathLimit = 50
	want.Format = config.FormatSARIF
	want.Verbosity = 2
	want.MetricsAddr = ":9102"
	want.Inventory = true
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestRejectsUnknownKeys(t *testing.T) {
	_, err := config.Parse([]byte("pathlimits: 3\n"))
	assert.ErrorContains(t, err, "invalid config")
}

func TestValidate(t *testing.T) {
	for name, edit := range map[string]func(*config.Config){
		"format":    func(c *config.Config) { c.Format = "xml" },
		"pathLimit": func(c *config.Config) { c.PathLimit = -1 },
		"workers":   func(c *config.Config) { c.Workers = -2 },
		"verbosity": func(c *config.Config) { c.Verbosity = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			c := config.Default()
			edit(c)
			assert.ErrorContains(t, c.Validate(), name)
		})
	}
}

func TestMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestMarshalRoundTrips(t *testing.T) {
	c := config.Default()
	c.Exclude = []string{"sig-front-run"}
	data, err := c.Marshal()
	require.NoError(t, err)

	back, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
