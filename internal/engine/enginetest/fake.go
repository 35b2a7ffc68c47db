// Package enginetest provides an in-memory raster engine for tests.
package enginetest

import (
	"context"
	"fmt"

	"github.com/opendem/opendem/internal/engine"
)

// WarpCall records one Warp invocation.
type WarpCall struct {
	Dst, Src string
	Opts     engine.WarpOptions
}

// DerivativeCall records one TerrainDerivative invocation.
type DerivativeCall struct {
	Dst, Src, Name string
}

// PolygonizeCall records one ExtractPolygons invocation.
type PolygonizeCall struct {
	Band, MaskBand int
	Features       int
}

// CreateRasterCall records one CreateRaster/CreateMemRaster invocation.
type CreateRasterCall struct {
	Path         string // empty for memory rasters
	W, H, BandsN int
	PT           engine.PixelType
}

// VectorCall records one CreateVectorDataset invocation.
type VectorCall struct {
	Path, Layer, Projection, Field string
}

// Fake implements engine.Engine entirely in memory. Warp and derivative
// results are synthesized from configured product rasters; every call is
// recorded for assertions.
type Fake struct {
	// WarpErrs is consumed one per Warp call; a nil entry means success.
	// Once exhausted, Warp succeeds.
	WarpErrs []error

	// WarpProduct is cloned as the warp result when the warp source is
	// not itself a known raster (i.e. the descriptor).
	WarpProduct *Raster

	// DerivativeProduct, when set, is cloned as every derivative result;
	// otherwise the source raster is cloned.
	DerivativeProduct *Raster

	// DerivativeErr fails TerrainDerivative when set.
	DerivativeErr error

	// Rasters maps paths to raster contents, as written by prior calls.
	Rasters map[string]*Raster

	WarpCalls         []WarpCall
	DerivativeCalls   []DerivativeCall
	PolygonizeCalls   []PolygonizeCall
	CreateRasterCalls []CreateRasterCall
	VectorCalls       []VectorCall
	MemRasters        []*Raster
	CreatedVectors    []*Vector
	Removed           []string
}

var _ engine.Engine = (*Fake)(nil)

// New creates an empty fake engine.
func New() *Fake {
	return &Fake{
		Rasters: make(map[string]*Raster),
	}
}

func (f *Fake) Warp(ctx context.Context, dst, src string, opts engine.WarpOptions, progress engine.ProgressFunc) error {
	f.WarpCalls = append(f.WarpCalls, WarpCall{Dst: dst, Src: src, Opts: opts})

	if len(f.WarpErrs) > 0 {
		err := f.WarpErrs[0]
		f.WarpErrs = f.WarpErrs[1:]
		if err != nil {
			return err
		}
	}

	var product *Raster
	switch {
	case f.Rasters[src] != nil:
		product = f.Rasters[src].Clone()
	case f.WarpProduct != nil:
		product = f.WarpProduct.Clone()
	default:
		product = NewRaster(2, 2, 3)
	}
	if opts.DstNodata != nil {
		product.NoDataVals[1] = *opts.DstNodata
	}
	f.Rasters[dst] = product

	if progress != nil {
		progress(0, "")
		progress(0.5, "")
		progress(1, "")
	}
	return nil
}

func (f *Fake) TerrainDerivative(ctx context.Context, dst, src, derivative string) error {
	f.DerivativeCalls = append(f.DerivativeCalls, DerivativeCall{Dst: dst, Src: src, Name: derivative})

	if f.DerivativeErr != nil {
		return f.DerivativeErr
	}

	var product *Raster
	switch {
	case f.DerivativeProduct != nil:
		product = f.DerivativeProduct.Clone()
	case f.Rasters[src] != nil:
		product = f.Rasters[src].Clone()
	default:
		return fmt.Errorf("derivative source %s: no such raster", src)
	}
	f.Rasters[dst] = product
	return nil
}

func (f *Fake) ExtractPolygons(ctx context.Context, src engine.Raster, band, maskBand int, dst engine.VectorDataset, progress engine.ProgressFunc) error {
	data, err := src.ReadBand(band)
	if err != nil {
		return err
	}

	features := 0
	for _, v := range data {
		if v == 1 {
			features++
		}
	}
	f.PolygonizeCalls = append(f.PolygonizeCalls, PolygonizeCall{Band: band, MaskBand: maskBand, Features: features})

	if fv, ok := dst.(*Vector); ok {
		fv.Features = features
	}

	if progress != nil {
		progress(0, "")
		progress(1, "")
	}
	return nil
}

func (f *Fake) OpenRaster(path string) (engine.Raster, error) {
	r, ok := f.Rasters[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such raster", path)
	}
	return r, nil
}

func (f *Fake) CreateRaster(path string, width, height, bands int, pt engine.PixelType) (engine.Raster, error) {
	f.CreateRasterCalls = append(f.CreateRasterCalls, CreateRasterCall{
		Path: path, W: width, H: height, BandsN: bands, PT: pt,
	})

	r := NewRaster(width, height, bands)
	r.PT = pt
	f.Rasters[path] = r
	return r, nil
}

func (f *Fake) CreateMemRaster(width, height, bands int, pt engine.PixelType) (engine.Raster, error) {
	f.CreateRasterCalls = append(f.CreateRasterCalls, CreateRasterCall{
		W: width, H: height, BandsN: bands, PT: pt,
	})

	r := NewRaster(width, height, bands)
	r.PT = pt
	f.MemRasters = append(f.MemRasters, r)
	return r, nil
}

func (f *Fake) CreateVectorDataset(path, layer, projectionWKT, intField string) (engine.VectorDataset, error) {
	f.VectorCalls = append(f.VectorCalls, VectorCall{
		Path: path, Layer: layer, Projection: projectionWKT, Field: intField,
	})

	v := &Vector{Path: path}
	f.CreatedVectors = append(f.CreatedVectors, v)
	return v, nil
}

func (f *Fake) RemoveVectorDataset(path string) error {
	f.Removed = append(f.Removed, path)
	return nil
}
