package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSummaryConfigDefaults(t *testing.T) {
	cfg, err := LoadSummaryConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSummaryConfig(), cfg)
	assert.Equal(t, 40, cfg.Bins)
	assert.Equal(t, 10, cfg.MinNumGenotypes)
	assert.Equal(t, 0.95, cfg.PolymorphicThreshold)
}

func TestLoadSummaryConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	body := "chunk_size: 500\nmin_num_genotypes: 3\ndraw_maf: false\nbins: 20\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	t.Setenv("VARIATION_BINS", "25")
	t.Setenv("VARIATION_SILENCE_RUNTIME_WARNINGS", "true")

	cfg, err := LoadSummaryConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 3, cfg.MinNumGenotypes)
	assert.False(t, cfg.DrawMAF)
	assert.True(t, cfg.DrawObsHet)
	assert.Equal(t, 25, cfg.Bins)
	assert.True(t, cfg.SilenceRuntimeWarnings)
	assert.Len(t, cfg.materializeOptions(), 1)
}

func TestLoadSummaryConfigErrors(t *testing.T) {
	_, err := LoadSummaryConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	t.Setenv("VARIATION_WORKERS", "many")
	_, err = LoadSummaryConfig("")
	assert.Error(t, err)
}
