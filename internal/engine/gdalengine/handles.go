package gdalengine

import (
	"fmt"

	"github.com/airbusgeo/godal"
)

// raster adapts a godal dataset to the engine's Raster interface.
type raster struct {
	ds *godal.Dataset
}

func (r *raster) Width() int  { return r.ds.Structure().SizeX }
func (r *raster) Height() int { return r.ds.Structure().SizeY }
func (r *raster) Bands() int  { return r.ds.Structure().NBands }

func (r *raster) GeoTransform() [6]float64 {
	gt, err := r.ds.GeoTransform()
	if err != nil {
		return [6]float64{}
	}
	return gt
}

func (r *raster) SetGeoTransform(gt [6]float64) error {
	return r.ds.SetGeoTransform(gt)
}

func (r *raster) Projection() string {
	return r.ds.Projection()
}

func (r *raster) SetProjection(wkt string) error {
	return r.ds.SetProjection(wkt)
}

func (r *raster) band(band int) (godal.Band, error) {
	bands := r.ds.Bands()
	if band < 1 || band > len(bands) {
		return godal.Band{}, fmt.Errorf("band %d out of range (raster has %d)", band, len(bands))
	}
	return bands[band-1], nil
}

func (r *raster) ReadBand(band int) ([]float64, error) {
	b, err := r.band(band)
	if err != nil {
		return nil, err
	}

	w, h := r.Width(), r.Height()
	buf := make([]float64, w*h)
	if err := b.Read(0, 0, buf, w, h); err != nil {
		return nil, fmt.Errorf("read band %d: %w", band, err)
	}
	return buf, nil
}

func (r *raster) WriteBand(band int, data []float64) error {
	b, err := r.band(band)
	if err != nil {
		return err
	}

	w, h := r.Width(), r.Height()
	if len(data) != w*h {
		return fmt.Errorf("band data length %d does not match %dx%d", len(data), w, h)
	}
	if err := b.Write(0, 0, data, w, h); err != nil {
		return fmt.Errorf("write band %d: %w", band, err)
	}
	return nil
}

func (r *raster) NoData(band int) (float64, bool) {
	b, err := r.band(band)
	if err != nil {
		return 0, false
	}
	return b.NoData()
}

func (r *raster) SetNoData(band int, v float64) error {
	b, err := r.band(band)
	if err != nil {
		return err
	}
	return b.SetNoData(v)
}

func (r *raster) Close() error {
	return r.ds.Close()
}

// vector adapts a godal vector dataset plus its single layer.
type vector struct {
	ds    *godal.Dataset
	layer godal.Layer
}

func (v *vector) Close() error {
	return v.ds.Close()
}
