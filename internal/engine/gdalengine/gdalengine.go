// Package gdalengine implements the raster engine boundary on GDAL via
// the godal bindings. All parameterization goes through gdalwarp-style
// switch lists, matching how the utilities are driven everywhere else.
package gdalengine

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/airbusgeo/godal"

	"github.com/opendem/opendem/internal/engine"
)

// Engine is the GDAL-backed raster engine.
type Engine struct {
	classifier engine.Classifier
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClassifier replaces the failure classifier. GDAL reports errors as
// text only, so the default classifies by message signature.
func WithClassifier(c engine.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// New registers GDAL drivers and returns the engine.
func New(opts ...Option) (*Engine, error) {
	godal.RegisterAll()

	e := &Engine{
		classifier: engine.MessageClassifier(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// wrap classifies and wraps a godal error at the engine boundary.
func (e *Engine) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &engine.Error{
		Op:   op,
		Kind: e.classifier.Classify(err),
		Err:  err,
	}
}

// Warp mosaics/reprojects src into dst.
//
// godal does not surface GDAL's per-chunk progress callback, so the relay
// only sees the operation's start and end.
func (e *Engine) Warp(ctx context.Context, dst, src string, opts engine.WarpOptions, progress engine.ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if progress != nil {
		progress(0, "")
	}

	srcDS, err := godal.Open(src)
	if err != nil {
		return e.wrap("warp", err)
	}
	defer srcDS.Close()

	switches := []string{"-of", "GTiff"}
	if opts.Bounds != ([4]float64{}) {
		switches = append(switches, "-te",
			formatFloat(opts.Bounds[0]), formatFloat(opts.Bounds[1]),
			formatFloat(opts.Bounds[2]), formatFloat(opts.Bounds[3]))
	}
	if opts.BoundsSRS != "" {
		switches = append(switches, "-te_srs", opts.BoundsSRS)
	}
	if opts.XRes > 0 && opts.YRes > 0 {
		switches = append(switches, "-tr", formatFloat(opts.XRes), formatFloat(opts.YRes))
	}
	if opts.DstSRS != "" {
		switches = append(switches, "-t_srs", opts.DstSRS)
	}
	if opts.Cutline != "" {
		switches = append(switches, "-cutline", opts.Cutline)
		if opts.CropToCutline {
			switches = append(switches, "-crop_to_cutline")
		}
	}
	if opts.DstNodata != nil {
		switches = append(switches, "-dstnodata", formatFloat(*opts.DstNodata))
	}

	out, err := srcDS.Warp(dst, switches)
	if err != nil {
		return e.wrap("warp", err)
	}
	if err := out.Close(); err != nil {
		return e.wrap("warp", err)
	}

	if progress != nil {
		progress(1, "")
	}
	return nil
}

// TerrainDerivative computes a gdaldem product of src into dst.
func (e *Engine) TerrainDerivative(ctx context.Context, dst, src, derivative string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcDS, err := godal.Open(src)
	if err != nil {
		return e.wrap("dem", err)
	}
	defer srcDS.Close()

	out, err := srcDS.Dem(dst, derivative, "", []string{"-of", "GTiff"})
	if err != nil {
		return e.wrap("dem", err)
	}
	if err := out.Close(); err != nil {
		return e.wrap("dem", err)
	}
	return nil
}

// ExtractPolygons vectorizes the band into the dataset's layer. The band's
// declared nodata acts as the extraction mask, so maskBand must equal
// band here; GDAL derives the mask from the band itself.
func (e *Engine) ExtractPolygons(ctx context.Context, src engine.Raster, band, maskBand int, dst engine.VectorDataset, progress engine.ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if band != maskBand {
		return fmt.Errorf("gdal polygonize uses the band's own nodata mask; band %d != mask band %d", band, maskBand)
	}

	gr, ok := src.(*raster)
	if !ok {
		return fmt.Errorf("foreign raster handle %T", src)
	}
	gv, ok := dst.(*vector)
	if !ok {
		return fmt.Errorf("foreign vector handle %T", dst)
	}

	if progress != nil {
		progress(0, "")
	}

	bands := gr.ds.Bands()
	if band < 1 || band > len(bands) {
		return fmt.Errorf("band %d out of range (raster has %d)", band, len(bands))
	}

	err := bands[band-1].Polygonize(gv.layer, godal.PixelValueFieldIndex(0))
	if err != nil {
		return e.wrap("polygonize", err)
	}

	if progress != nil {
		progress(1, "")
	}
	return nil
}

// OpenRaster opens an existing raster read-only.
func (e *Engine) OpenRaster(path string) (engine.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, e.wrap("open", err)
	}
	return &raster{ds: ds}, nil
}

// CreateRaster creates a GeoTIFF at path.
func (e *Engine) CreateRaster(path string, width, height, bands int, pt engine.PixelType) (engine.Raster, error) {
	ds, err := godal.Create(godal.GTiff, path, bands, dataType(pt), width, height)
	if err != nil {
		return nil, e.wrap("create", err)
	}
	return &raster{ds: ds}, nil
}

// CreateMemRaster creates a raster in the MEM driver.
func (e *Engine) CreateMemRaster(width, height, bands int, pt engine.PixelType) (engine.Raster, error) {
	ds, err := godal.Create(godal.Memory, "", bands, dataType(pt), width, height)
	if err != nil {
		return nil, e.wrap("create", err)
	}
	return &raster{ds: ds}, nil
}

// CreateVectorDataset creates a GeoPackage with one polygon layer and one
// integer attribute.
func (e *Engine) CreateVectorDataset(path, layer, projectionWKT, intField string) (engine.VectorDataset, error) {
	ds, err := godal.CreateVector(godal.GeoPackage, path)
	if err != nil {
		return nil, e.wrap("create_vector", err)
	}

	sr, err := godal.NewSpatialRefFromWKT(projectionWKT)
	if err != nil {
		ds.Close()
		return nil, e.wrap("create_vector", err)
	}
	defer sr.Close()

	l, err := ds.CreateLayer(layer, sr, godal.GTPolygon,
		godal.NewFieldDefinition(intField, godal.FTInt))
	if err != nil {
		ds.Close()
		return nil, e.wrap("create_vector", err)
	}

	return &vector{ds: ds, layer: l}, nil
}

// RemoveVectorDataset deletes a GeoPackage file if present.
func (e *Engine) RemoveVectorDataset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return e.wrap("remove_vector", err)
	}
	return nil
}

func dataType(pt engine.PixelType) godal.DataType {
	if pt == engine.Byte {
		return godal.Byte
	}
	return godal.Float32
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
