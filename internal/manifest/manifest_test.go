package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	m := &Manifest{
		RunID:        "0b7f6a8e-run",
		Process:      "hillshade",
		Output:       "out/shade.tif",
		Masked:       true,
		Clipped:      true,
		ElevationMin: -12.5,
		ElevationMax: 4807.8,
		Producer:     "opendem v0.1.0",
		CreatedAt:    time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC),
	}
	m.AddArtifact("descriptor", "/cache/source.xml")
	m.AddArtifact("output", "out/shade.tif")
	m.AddStage("acquire", 1500*time.Millisecond)
	m.AddStage("decode", 230*time.Millisecond)

	require.NoError(t, Write(path, m))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, int64(1500), got.Stages[0].DurationMS)
}

func TestWrite_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	require.NoError(t, Write(path, &Manifest{RunID: "first"}))
	require.NoError(t, Write(path, &Manifest{RunID: "second"}))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second", got.RunID)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
