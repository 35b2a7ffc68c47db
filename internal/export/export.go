// Package export persists the final grid, branching on the output path's
// extension between a gridded raster and a vectorized polygon layer.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/opendem/opendem/internal/dem"
	"github.com/opendem/opendem/internal/engine"
	"github.com/opendem/opendem/internal/logging"
	"github.com/opendem/opendem/internal/progress"
)

// ErrVectorRequiresMask is returned when a vector output path is
// configured without a mask: polygonizing a continuous grid is a
// configuration error, not something to coerce silently.
var ErrVectorRequiresMask = errors.New("vector export requires a configured mask")

// LayerName is the single polygon layer written by vector exports.
const LayerName = "mask"

// FieldName is the integer attribute carried by every extracted polygon;
// its value is 1 for masked regions.
const FieldName = "dn"

// IsVectorPath reports whether the output path routes to the vector
// branch. Matching is case-insensitive on the extension.
func IsVectorPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gpkg")
}

// Exporter writes the final artifact through engine primitives.
type Exporter struct {
	eng engine.Engine
	log *slog.Logger
}

// New creates an exporter.
func New(eng engine.Engine) *Exporter {
	return &Exporter{
		eng: eng,
		log: logging.Component("export"),
	}
}

// Export writes the run's final artifact at out. src provides the
// georeferencing (size, transform, projection) of the process-source
// raster. Exactly one of continuous or masked must be non-nil: masked is
// set when the mask evaluator produced a binary grid.
func (e *Exporter) Export(ctx context.Context, out string, src engine.Raster, continuous *dem.Grid, masked *dem.ByteGrid) error {
	if IsVectorPath(out) {
		if masked == nil {
			return fmt.Errorf("%w: %s", ErrVectorRequiresMask, out)
		}
		e.log.Info("exporting vector layer", "output", out)
		return e.exportVector(ctx, out, src, masked)
	}

	e.log.Info("exporting raster", "output", out, "masked", masked != nil)
	return e.exportRaster(ctx, out, src, continuous, masked)
}

// exportRaster persists the grid as a single-band raster. Pixel type and
// nodata are explicit in both branches: Byte/0 when masked, Float32/-9999
// when continuous.
func (e *Exporter) exportRaster(_ context.Context, out string, src engine.Raster, continuous *dem.Grid, masked *dem.ByteGrid) error {
	var (
		pt     engine.PixelType
		nodata float64
		data   []float64
	)
	if masked != nil {
		pt = engine.Byte
		nodata = 0
		data = masked.Float64()
	} else {
		pt = engine.Float32
		nodata = dem.NoData
		data = continuous.Data
	}

	dst, err := e.eng.CreateRaster(out, src.Width(), src.Height(), 1, pt)
	if err != nil {
		return fmt.Errorf("create output raster %s: %w", out, err)
	}
	defer dst.Close()

	if err := dst.SetGeoTransform(src.GeoTransform()); err != nil {
		return fmt.Errorf("set geotransform: %w", err)
	}
	if err := dst.SetProjection(src.Projection()); err != nil {
		return fmt.Errorf("set projection: %w", err)
	}
	if err := dst.SetNoData(1, nodata); err != nil {
		return fmt.Errorf("set nodata: %w", err)
	}
	if err := dst.WriteBand(1, data); err != nil {
		return fmt.Errorf("write band: %w", err)
	}
	return nil
}

// exportVector rasterizes the binary grid into an in-memory byte raster
// and extracts one polygon feature per contiguous value-1 region. The
// byte raster serves as its own extraction mask (nodata 0), so 0-valued
// pixels produce no features.
func (e *Exporter) exportVector(ctx context.Context, out string, src engine.Raster, masked *dem.ByteGrid) error {
	mem, err := e.eng.CreateMemRaster(src.Width(), src.Height(), 1, engine.Byte)
	if err != nil {
		return fmt.Errorf("create memory raster: %w", err)
	}
	defer mem.Close()

	if err := mem.SetGeoTransform(src.GeoTransform()); err != nil {
		return fmt.Errorf("set geotransform: %w", err)
	}
	if err := mem.SetProjection(src.Projection()); err != nil {
		return fmt.Errorf("set projection: %w", err)
	}
	if err := mem.WriteBand(1, masked.Float64()); err != nil {
		return fmt.Errorf("write mask band: %w", err)
	}
	if err := mem.SetNoData(1, 0); err != nil {
		return fmt.Errorf("set mask nodata: %w", err)
	}

	// Replace any previous output wholesale.
	if err := e.eng.RemoveVectorDataset(out); err != nil {
		return fmt.Errorf("remove existing output %s: %w", out, err)
	}

	vds, err := e.eng.CreateVectorDataset(out, LayerName, src.Projection(), FieldName)
	if err != nil {
		return fmt.Errorf("create vector dataset %s: %w", out, err)
	}
	defer vds.Close()

	relay := progress.NewRelay("polygonize")
	if err := e.eng.ExtractPolygons(ctx, mem, 1, 1, vds, relay.Tick); err != nil {
		return fmt.Errorf("extract polygons: %w", err)
	}
	return nil
}
