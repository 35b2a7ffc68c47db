// Package dem holds the in-memory grid model, the Terrarium elevation
// decode and the threshold mask evaluation.
package dem

import "math"

// NoData is the nodata sentinel for process-source rasters. Pixels outside
// a cutline, and the declared nodata of continuous exports, carry this
// value.
const NoData = -9999.0

// Grid is a row-major single-band real-valued raster payload.
type Grid struct {
	W, H int
	Data []float64
}

// ByteGrid is a row-major single-band unsigned 8-bit raster payload.
type ByteGrid struct {
	W, H int
	Data []uint8
}

// MinMax returns the minimum and maximum values of the grid. NaN values
// are skipped; an empty grid returns (0, 0).
func (g *Grid) MinMax() (min, max float64) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(min, 1) {
		return 0, 0
	}
	return min, max
}

// Float64 converts the byte grid to float64 values for engine writes.
func (b *ByteGrid) Float64() []float64 {
	out := make([]float64, len(b.Data))
	for i, v := range b.Data {
		out[i] = float64(v)
	}
	return out
}
