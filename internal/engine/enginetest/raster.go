package enginetest

import (
	"fmt"

	"github.com/opendem/opendem/internal/engine"
)

// Raster is an in-memory raster handle.
type Raster struct {
	W, H, NBands int
	PT           engine.PixelType
	GT           [6]float64
	Proj         string
	Pixels       map[int][]float64
	NoDataVals   map[int]float64
	Closed       bool
}

var _ engine.Raster = (*Raster)(nil)

// NewRaster creates a zero-filled raster.
func NewRaster(w, h, bands int) *Raster {
	pixels := make(map[int][]float64, bands)
	for b := 1; b <= bands; b++ {
		pixels[b] = make([]float64, w*h)
	}
	return &Raster{
		W:          w,
		H:          h,
		NBands:     bands,
		Pixels:     pixels,
		NoDataVals: make(map[int]float64),
	}
}

// Clone deep-copies the raster.
func (r *Raster) Clone() *Raster {
	c := NewRaster(r.W, r.H, r.NBands)
	c.PT = r.PT
	c.GT = r.GT
	c.Proj = r.Proj
	for b, data := range r.Pixels {
		copy(c.Pixels[b], data)
	}
	for b, nd := range r.NoDataVals {
		c.NoDataVals[b] = nd
	}
	return c
}

// SetBand replaces a band's pixel data.
func (r *Raster) SetBand(band int, data []float64) *Raster {
	buf := make([]float64, r.W*r.H)
	copy(buf, data)
	r.Pixels[band] = buf
	return r
}

func (r *Raster) Width() int  { return r.W }
func (r *Raster) Height() int { return r.H }
func (r *Raster) Bands() int  { return r.NBands }

func (r *Raster) GeoTransform() [6]float64 { return r.GT }

func (r *Raster) SetGeoTransform(gt [6]float64) error {
	r.GT = gt
	return nil
}

func (r *Raster) Projection() string { return r.Proj }

func (r *Raster) SetProjection(wkt string) error {
	r.Proj = wkt
	return nil
}

func (r *Raster) ReadBand(band int) ([]float64, error) {
	data, ok := r.Pixels[band]
	if !ok {
		return nil, fmt.Errorf("band %d out of range (raster has %d)", band, r.NBands)
	}
	out := make([]float64, len(data))
	copy(out, data)
	return out, nil
}

func (r *Raster) WriteBand(band int, data []float64) error {
	if _, ok := r.Pixels[band]; !ok {
		return fmt.Errorf("band %d out of range (raster has %d)", band, r.NBands)
	}
	if len(data) != r.W*r.H {
		return fmt.Errorf("band data length %d does not match %dx%d", len(data), r.W, r.H)
	}
	buf := make([]float64, len(data))
	copy(buf, data)
	r.Pixels[band] = buf
	return nil
}

func (r *Raster) NoData(band int) (float64, bool) {
	nd, ok := r.NoDataVals[band]
	return nd, ok
}

func (r *Raster) SetNoData(band int, v float64) error {
	r.NoDataVals[band] = v
	return nil
}

func (r *Raster) Close() error {
	r.Closed = true
	return nil
}

// Vector is an in-memory vector dataset handle.
type Vector struct {
	Path     string
	Features int
	Closed   bool
}

var _ engine.VectorDataset = (*Vector)(nil)

func (v *Vector) Close() error {
	v.Closed = true
	return nil
}
