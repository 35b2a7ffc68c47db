package dem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestApplyMask_NoThresholds(t *testing.T) {
	g := &Grid{W: 2, H: 2, Data: []float64{0.5, -3, NoData, 100}}

	out := ApplyMask(g, Thresholds{}, NoData)

	// Everything passes except the nodata pixel.
	assert.Equal(t, []uint8{1, 1, 0, 1}, out.Data)
	assert.Equal(t, 2, out.W)
	assert.Equal(t, 2, out.H)
}

func TestApplyMask_MinOnly(t *testing.T) {
	g := &Grid{W: 3, H: 1, Data: []float64{0.05, 0.1, 0.3}}

	out := ApplyMask(g, Thresholds{Min: fp(0.1)}, NoData)

	assert.Equal(t, []uint8{0, 1, 1}, out.Data)
}

func TestApplyMask_MaxOnly(t *testing.T) {
	g := &Grid{W: 3, H: 1, Data: []float64{0.05, 0.1, 0.3}}

	out := ApplyMask(g, Thresholds{Max: fp(0.1)}, NoData)

	assert.Equal(t, []uint8{1, 1, 0}, out.Data)
}

func TestApplyMask_NodataAlwaysExcluded(t *testing.T) {
	// NoData lies inside the threshold window; it must still be 0.
	g := &Grid{W: 2, H: 1, Data: []float64{NoData, NoData + 1}}

	out := ApplyMask(g, Thresholds{Min: fp(-100000), Max: fp(100000)}, NoData)

	assert.Equal(t, []uint8{0, 1}, out.Data)
}

// Adding an upper bound can only shrink the mask produced by the lower
// bound alone.
func TestApplyMask_Monotonicity(t *testing.T) {
	g := &Grid{W: 4, H: 2, Data: []float64{
		0.05, 0.15, 0.25, 0.35,
		NoData, 0.45, 0.55, 0.65,
	}}

	minOnly := ApplyMask(g, Thresholds{Min: fp(0.1)}, NoData)
	both := ApplyMask(g, Thresholds{Min: fp(0.1), Max: fp(0.5)}, NoData)

	for i := range minOnly.Data {
		assert.GreaterOrEqual(t, minOnly.Data[i], both.Data[i],
			"pixel %d: min-only mask must be a superset", i)
	}
}

func TestByteGridFloat64(t *testing.T) {
	b := &ByteGrid{W: 2, H: 1, Data: []uint8{0, 1}}
	assert.Equal(t, []float64{0, 1}, b.Float64())
}
