// Package engine defines the raster engine boundary: the warp, terrain
// and polygonize operations the pipeline needs, abstracted from any
// particular geospatial backend.
package engine

import "context"

// PixelType is the storage type of a raster band.
type PixelType int

const (
	// Byte is an unsigned 8-bit band, used for binary masks.
	Byte PixelType = iota
	// Float32 is a 32-bit float band, used for continuous surfaces.
	Float32
)

func (p PixelType) String() string {
	if p == Byte {
		return "Byte"
	}
	return "Float32"
}

// ProgressFunc receives completion in [0,1] with an optional message.
// The return value is advisory only; implementations keep running
// regardless.
type ProgressFunc func(complete float64, message string) bool

// WarpOptions parameterizes a warp: target window, resolution,
// projection and the optional cutline.
type WarpOptions struct {
	// Bounds is the target window as [minX, minY, maxX, maxY],
	// interpreted in BoundsSRS. A zero value means no -te window.
	Bounds    [4]float64
	BoundsSRS string

	// XRes and YRes are the target pixel sizes in DstSRS units.
	XRes, YRes float64

	DstSRS string

	// Cutline names a polygon datasource to clip against. CropToCutline
	// additionally shrinks the output extent to the cutline envelope.
	Cutline       string
	CropToCutline bool

	// DstNodata, when set, is declared on the output and fills pixels
	// outside the cutline.
	DstNodata *float64
}

// Raster is an open raster dataset handle. Bands are 1-based.
type Raster interface {
	Width() int
	Height() int
	Bands() int

	GeoTransform() [6]float64
	SetGeoTransform(gt [6]float64) error
	Projection() string
	SetProjection(wkt string) error

	ReadBand(band int) ([]float64, error)
	WriteBand(band int, data []float64) error

	NoData(band int) (float64, bool)
	SetNoData(band int, v float64) error

	Close() error
}

// VectorDataset is an open vector dataset handle.
type VectorDataset interface {
	Close() error
}

// Engine is the raster backend the pipeline runs against.
type Engine interface {
	// Warp mosaics/reprojects src into dst per opts.
	Warp(ctx context.Context, dst, src string, opts WarpOptions, progress ProgressFunc) error

	// TerrainDerivative computes a named derivative (slope, hillshade,
	// ...) of the elevation raster src into dst.
	TerrainDerivative(ctx context.Context, dst, src, derivative string) error

	// ExtractPolygons vectorizes src's band into dst, merging connected
	// pixels of equal value into polygon features. Pixels masked by
	// maskBand produce no features.
	ExtractPolygons(ctx context.Context, src Raster, band, maskBand int, dst VectorDataset, progress ProgressFunc) error

	OpenRaster(path string) (Raster, error)
	CreateRaster(path string, width, height, bands int, pt PixelType) (Raster, error)
	CreateMemRaster(width, height, bands int, pt PixelType) (Raster, error)

	// CreateVectorDataset creates a polygon dataset at path with a single
	// layer carrying one integer attribute.
	CreateVectorDataset(path, layer, projectionWKT, intField string) (VectorDataset, error)

	// RemoveVectorDataset deletes a vector dataset, tolerating absence.
	RemoveVectorDataset(path string) error
}
