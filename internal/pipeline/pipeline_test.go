package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendem/opendem/internal/config"
	"github.com/opendem/opendem/internal/dem"
	"github.com/opendem/opendem/internal/engine"
	"github.com/opendem/opendem/internal/engine/enginetest"
	"github.com/opendem/opendem/internal/export"
	"github.com/opendem/opendem/internal/manifest"
	"github.com/opendem/opendem/internal/source"
)

// rgbProduct builds a 2x2 three-band mosaic whose Terrarium decode is
// [0, 10, 0.5, 256] meters.
func rgbProduct() *enginetest.Raster {
	r := enginetest.NewRaster(2, 2, 3)
	r.GT = [6]float64{1236455, 30, 0, 5985507, 0, -30}
	r.Proj = `PROJCS["WGS 84 / Pseudo-Mercator"]`
	r.SetBand(1, []float64{128, 128, 128, 129})
	r.SetBand(2, []float64{0, 10, 0, 0})
	r.SetBand(3, []float64{0, 0, 128, 0})
	return r
}

func TestRun_ContinuousRaster(t *testing.T) {
	cacheDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "slope.tif")

	cfg := testConfig(t)
	cfg.CacheDir = cacheDir
	cfg.Output = outPath

	fake := enginetest.New()
	fake.WarpProduct = rgbProduct()

	p := New(cfg, fake, WithRetryDelay(time.Millisecond))
	require.NoError(t, p.Run(context.Background()))

	// The TMS descriptor lands in the cache directory.
	desc, err := os.ReadFile(filepath.Join(cacheDir, source.DescriptorFile))
	require.NoError(t, err)
	assert.Contains(t, string(desc), cfg.Source)

	// Acquisition warps the descriptor into the cache mosaic.
	require.Len(t, fake.WarpCalls, 1)
	assert.Equal(t, filepath.Join(cacheDir, "remote_rgb.tif"), fake.WarpCalls[0].Dst)

	// Decoded elevation is a Float32 intermediate with no declared nodata:
	// every decoded value is meaningful.
	elev := fake.Rasters[filepath.Join(cacheDir, "elevation.tif")]
	require.NotNil(t, elev)
	assert.Equal(t, engine.Float32, elev.PT)
	_, hasNoData := elev.NoData(1)
	assert.False(t, hasNoData)
	assert.Equal(t, []float64{0, 10, 0.5, 256}, elev.Pixels[1])
	assert.Equal(t, fake.WarpProduct.GT, elev.GT)
	assert.Equal(t, fake.WarpProduct.Proj, elev.Proj)

	// The derivative runs against the elevation intermediate, not the RGB.
	require.Len(t, fake.DerivativeCalls, 1)
	assert.Equal(t, "slope", fake.DerivativeCalls[0].Name)
	assert.Equal(t, filepath.Join(cacheDir, "elevation.tif"), fake.DerivativeCalls[0].Src)

	// Final artifact: continuous Float32 with the standard nodata.
	out := fake.Rasters[outPath]
	require.NotNil(t, out)
	assert.Equal(t, engine.Float32, out.PT)
	nd, ok := out.NoData(1)
	require.True(t, ok)
	assert.Equal(t, dem.NoData, nd)
	assert.Equal(t, []float64{0, 10, 0.5, 256}, out.Pixels[1])
	assert.Equal(t, fake.WarpProduct.GT, out.GT)
	assert.Equal(t, fake.WarpProduct.Proj, out.Proj)

	man, err := manifest.Load(filepath.Join(cacheDir, manifest.FileName))
	require.NoError(t, err)
	assert.Equal(t, "slope", man.Process)
	assert.False(t, man.Masked)
	assert.False(t, man.Clipped)
	assert.Equal(t, 0.0, man.ElevationMin)
	assert.Equal(t, 256.0, man.ElevationMax)
	assert.Equal(t, outPath, man.Artifacts["output"])

	var stageNames []string
	for _, s := range man.Stages {
		stageNames = append(stageNames, s.Name)
	}
	assert.Equal(t, []string{"descriptor", "acquire", "decode", "derive", "export"}, stageNames)
}

func TestRun_MaskedVector(t *testing.T) {
	cacheDir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "steep.gpkg")

	min := 0.1
	cfg := testConfig(t)
	cfg.CacheDir = cacheDir
	cfg.Output = outPath
	cfg.Mask = &config.Mask{Min: &min}

	fake := enginetest.New()
	fake.WarpProduct = rgbProduct()
	fake.DerivativeProduct = enginetest.NewRaster(2, 2, 1).
		SetBand(1, []float64{0.05, 0.2, dem.NoData, 0.5})
	fake.DerivativeProduct.GT = fake.WarpProduct.GT
	fake.DerivativeProduct.Proj = fake.WarpProduct.Proj

	p := New(cfg, fake, WithRetryDelay(time.Millisecond))
	require.NoError(t, p.Run(context.Background()))

	// Below-threshold and nodata pixels are excluded from the mask.
	require.Len(t, fake.MemRasters, 1)
	mem := fake.MemRasters[0]
	assert.Equal(t, engine.Byte, mem.PT)
	assert.Equal(t, []float64{0, 1, 0, 1}, mem.Pixels[1])

	assert.Contains(t, fake.Removed, outPath)
	require.Len(t, fake.VectorCalls, 1)
	assert.Equal(t, outPath, fake.VectorCalls[0].Path)
	assert.Equal(t, export.LayerName, fake.VectorCalls[0].Layer)
	assert.Equal(t, export.FieldName, fake.VectorCalls[0].Field)

	require.Len(t, fake.PolygonizeCalls, 1)
	assert.Equal(t, 2, fake.PolygonizeCalls[0].Features)

	man, err := manifest.Load(filepath.Join(cacheDir, manifest.FileName))
	require.NoError(t, err)
	assert.True(t, man.Masked)
}

func TestRun_VectorWithoutMask(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output = filepath.Join(t.TempDir(), "steep.gpkg")

	fake := enginetest.New()
	fake.WarpProduct = rgbProduct()

	p := New(cfg, fake, WithRetryDelay(time.Millisecond))
	err := p.Run(context.Background())
	require.ErrorIs(t, err, export.ErrVectorRequiresMask)
	assert.Empty(t, fake.VectorCalls)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := enginetest.New()
	p := New(testConfig(t), fake, WithRetryDelay(time.Millisecond))

	err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.WarpCalls, "no engine work after cancellation")
}
