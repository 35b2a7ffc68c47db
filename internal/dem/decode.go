package dem

import "fmt"

// Terrarium encoding constants: elevation = R*256 + G + B/256 - 32768,
// giving signed meters at 1/256 m precision.
const (
	terrariumOffset = 32768.0
	terrariumScale  = 256.0
)

// DecodeTerrarium converts the three byte bands of a Terrarium tile
// mosaic into metric elevation. No clamping or void handling is applied;
// ocean/void tiles decode to whatever sentinel the source encodes.
func DecodeTerrarium(r, g, b []float64) ([]float64, error) {
	if len(r) != len(g) || len(g) != len(b) {
		return nil, fmt.Errorf("band length mismatch: r=%d g=%d b=%d", len(r), len(g), len(b))
	}

	elev := make([]float64, len(r))
	for i := range r {
		elev[i] = r[i]*terrariumScale + g[i] + b[i]/terrariumScale - terrariumOffset
	}
	return elev, nil
}
