// Package terrain runs the engine's terrain-derivative computation and
// the optional cutline clip pass.
package terrain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opendem/opendem/internal/dem"
	"github.com/opendem/opendem/internal/engine"
	"github.com/opendem/opendem/internal/logging"
)

// ErrUnsupportedDerivative is returned when the configured process names
// a derivative the engine cannot compute.
var ErrUnsupportedDerivative = errors.New("unsupported terrain derivative")

// supported lists the single-band derivatives the engine computes without
// auxiliary inputs (color-relief needs a color table and is excluded).
var supported = map[string]bool{
	"slope":     true,
	"hillshade": true,
	"aspect":    true,
	"tri":       true,
	"tpi":       true,
	"roughness": true,
}

// Supported returns the sorted list of derivative names.
func Supported() []string {
	names := make([]string, 0, len(supported))
	for name := range supported {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSupported reports whether name is a computable derivative.
// Names are case-insensitive.
func IsSupported(name string) bool {
	return supported[strings.ToLower(name)]
}

// Processor derives terrain products from a decoded elevation raster.
type Processor struct {
	eng      engine.Engine
	cacheDir string
	log      *slog.Logger
}

// NewProcessor creates a terrain processor writing intermediates under
// cacheDir.
func NewProcessor(eng engine.Engine, cacheDir string) *Processor {
	return &Processor{
		eng:      eng,
		cacheDir: cacheDir,
		log:      logging.Component("terrain"),
	}
}

// Run computes the named derivative over the full elevation raster and,
// when clipping is non-empty, crops the result to the boundary polygon in
// a second pass. The derivative always runs before clipping so pixels at
// the boundary are computed from true neighboring elevation instead of a
// nodata-padded neighborhood. Returns the process-source raster path.
func (p *Processor) Run(ctx context.Context, demPath, derivative, clipping string) (string, error) {
	name := strings.ToLower(derivative)
	if !supported[name] {
		return "", fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedDerivative, derivative, strings.Join(Supported(), ", "))
	}

	p.log.Info("running terrain analysis", "derivative", name)

	derived := filepath.Join(p.cacheDir, "derivative.tif")
	if err := p.eng.TerrainDerivative(ctx, derived, demPath, name); err != nil {
		return "", fmt.Errorf("terrain derivative %s: %w", name, err)
	}

	if clipping == "" {
		return derived, nil
	}

	p.log.Info("applying cutline", "boundary", clipping)

	nodata := dem.NoData
	clipped := filepath.Join(p.cacheDir, "derivative_clipped.tif")
	opts := engine.WarpOptions{
		Cutline:       clipping,
		CropToCutline: true,
		DstNodata:     &nodata,
	}
	if err := p.eng.Warp(ctx, clipped, derived, opts, nil); err != nil {
		return "", fmt.Errorf("cutline clip: %w", err)
	}

	return clipped, nil
}
