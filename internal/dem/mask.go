package dem

// Thresholds holds optional inclusive mask bounds. A nil bound leaves
// that side unconstrained.
type Thresholds struct {
	Min *float64
	Max *float64
}

// ApplyMask thresholds a grid into a binary byte grid: 1 where the value
// satisfies every configured bound, 0 otherwise. Pixels equal to nodata
// are always 0, regardless of the thresholds. The binary grid's nodata
// convention is 0, so true nodata and "outside mask" are indistinguishable
// downstream.
func ApplyMask(g *Grid, t Thresholds, nodata float64) *ByteGrid {
	out := &ByteGrid{
		W:    g.W,
		H:    g.H,
		Data: make([]uint8, len(g.Data)),
	}

	for i, v := range g.Data {
		if v == nodata {
			continue
		}
		if t.Min != nil && v < *t.Min {
			continue
		}
		if t.Max != nil && v > *t.Max {
			continue
		}
		out.Data[i] = 1
	}
	return out
}
