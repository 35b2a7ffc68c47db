package terrain

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendem/opendem/internal/dem"
	"github.com/opendem/opendem/internal/engine/enginetest"
)

func TestSupported(t *testing.T) {
	assert.Equal(t, []string{"aspect", "hillshade", "roughness", "slope", "tpi", "tri"}, Supported())

	assert.True(t, IsSupported("slope"))
	assert.True(t, IsSupported("Hillshade"))
	assert.False(t, IsSupported("color-relief"))
	assert.False(t, IsSupported("magma-depth"))
}

func TestRun_UnsupportedDerivative(t *testing.T) {
	fake := enginetest.New()
	p := NewProcessor(fake, t.TempDir())

	_, err := p.Run(context.Background(), "dem.tif", "magma-depth", "")
	require.ErrorIs(t, err, ErrUnsupportedDerivative)
	assert.Empty(t, fake.DerivativeCalls, "engine must not be invoked for unknown derivatives")
}

func TestRun_NoClipping(t *testing.T) {
	fake := enginetest.New()
	fake.Rasters["dem.tif"] = enginetest.NewRaster(4, 4, 1)
	cacheDir := t.TempDir()
	p := NewProcessor(fake, cacheDir)

	out, err := p.Run(context.Background(), "dem.tif", "slope", "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cacheDir, "derivative.tif"), out)
	require.Len(t, fake.DerivativeCalls, 1)
	assert.Equal(t, "slope", fake.DerivativeCalls[0].Name)
	assert.Equal(t, "dem.tif", fake.DerivativeCalls[0].Src)
	assert.Empty(t, fake.WarpCalls, "no cutline pass without clipping")
}

func TestRun_WithClipping(t *testing.T) {
	fake := enginetest.New()
	fake.Rasters["dem.tif"] = enginetest.NewRaster(4, 4, 1)
	cacheDir := t.TempDir()
	p := NewProcessor(fake, cacheDir)

	out, err := p.Run(context.Background(), "dem.tif", "hillshade", "/data/boundary.geojson")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cacheDir, "derivative_clipped.tif"), out)

	// The derivative runs over the full raster before any clipping, so
	// boundary pixels see true neighbors.
	require.Len(t, fake.DerivativeCalls, 1)
	require.Len(t, fake.WarpCalls, 1)

	warp := fake.WarpCalls[0]
	assert.Equal(t, filepath.Join(cacheDir, "derivative.tif"), warp.Src)
	assert.Equal(t, "/data/boundary.geojson", warp.Opts.Cutline)
	assert.True(t, warp.Opts.CropToCutline)
	require.NotNil(t, warp.Opts.DstNodata)
	assert.Equal(t, dem.NoData, *warp.Opts.DstNodata)
}

func TestRun_CaseInsensitiveDerivative(t *testing.T) {
	fake := enginetest.New()
	fake.Rasters["dem.tif"] = enginetest.NewRaster(2, 2, 1)
	p := NewProcessor(fake, t.TempDir())

	_, err := p.Run(context.Background(), "dem.tif", "SLOPE", "")
	require.NoError(t, err)
	assert.Equal(t, "slope", fake.DerivativeCalls[0].Name)
}
