package dem

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTerrarium_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		want    float64
	}{
		{"sea level", 128, 0, 0, 0.0},
		{"all zero", 0, 0, 0, -32768.0},
		{"all max", 255, 255, 255, 32767.99609375},
		{"everest-ish", 162, 144, 0, 8848.0},
		{"one below sea level", 127, 255, 0, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elev, err := DecodeTerrarium([]float64{tt.r}, []float64{tt.g}, []float64{tt.b})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, elev[0], 1e-9)
		})
	}
}

func TestDecodeTerrarium_Formula(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	n := 1000
	r := make([]float64, n)
	g := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		r[i] = float64(rng.Intn(256))
		g[i] = float64(rng.Intn(256))
		b[i] = float64(rng.Intn(256))
	}

	elev, err := DecodeTerrarium(r, g, b)
	require.NoError(t, err)
	require.Len(t, elev, n)

	for i := 0; i < n; i++ {
		want := r[i]*256 + g[i] + b[i]/256 - 32768
		assert.Equal(t, want, elev[i])
	}
}

func TestDecodeTerrarium_LengthMismatch(t *testing.T) {
	_, err := DecodeTerrarium([]float64{1, 2}, []float64{1}, []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "band length mismatch")
}

func TestGridMinMax(t *testing.T) {
	g := &Grid{W: 2, H: 2, Data: []float64{-12.5, 300, 0, 8.25}}
	min, max := g.MinMax()
	assert.Equal(t, -12.5, min)
	assert.Equal(t, 300.0, max)

	empty := &Grid{}
	min, max = empty.MinMax()
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 0.0, max)
}
