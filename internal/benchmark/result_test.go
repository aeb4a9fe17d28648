package benchmark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResult = `{
  "scenario_name": "Compute Unit Count vs. Performance",
  "label": "5",
  "times": [
    {},
    {"cpu_times": [1.0, 1.5, 2.0, 2.75], "kernel_times": [1.1, 1.4]},
    {"cpu_times": [3.0, 3.25]}
  ]
}`

func TestLoadResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cu_mask_fffffffffffffffe.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleResult), 0o644))

	result, err := LoadResult(path)
	require.NoError(t, err)

	assert.Equal(t, "Compute Unit Count vs. Performance", result.ScenarioName)
	assert.Equal(t, "5", result.Label)
	require.Len(t, result.Times, 3)

	assert.True(t, result.Times[0].Skipped())
	assert.False(t, result.Times[1].Skipped())

	assert.Equal(t, []float64{0.5, 0.75}, result.Times[1].Durations())
	assert.Equal(t, []float64{0.25}, result.Times[2].Durations())
	assert.Empty(t, result.Times[0].Durations())
}

func TestLoadResultErrors(t *testing.T) {
	_, err := LoadResult(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = LoadResult(path)
	assert.Error(t, err)
}

func TestDurationsDropTrailingUnpaired(t *testing.T) {
	record := TimeRecord{CPUTimes: []float64{1.0, 2.0, 5.0}}
	assert.Equal(t, []float64{1.0}, record.Durations())
}
