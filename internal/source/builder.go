// Package source builds the declarative descriptor for the remote tiled
// elevation source. The descriptor is a GDAL_WMS/TMS document describing
// the fixed global Web-Mercator tile pyramid plus the configured tile URL
// template; the raster engine consumes it directly as a warp source.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/opendem/opendem/internal/logging"
	"github.com/opendem/opendem/internal/util"
)

// ErrNoSource is returned when no tile service URL is configured.
var ErrNoSource = errors.New("no tile source URL configured")

// Fixed parameters of the global Web-Mercator tile pyramid the source is
// addressed with. These describe the remote service to the engine; they
// are not tunables.
const (
	WebMercatorExtent = 20037508.34
	TileSize          = 256
	ZoomLevels        = 15
	BandCount         = 3
	ProjectionCode    = "EPSG:3857"
)

// DescriptorFile is the descriptor artifact name inside the cache dir.
const DescriptorFile = "source.xml"

// Builder writes the source descriptor artifact.
type Builder struct {
	sourceURL string
	cacheDir  string
	log       *slog.Logger
}

// NewBuilder creates a descriptor builder for the given tile service URL
// and cache directory.
func NewBuilder(sourceURL, cacheDir string) *Builder {
	return &Builder{
		sourceURL: sourceURL,
		cacheDir:  cacheDir,
		log:       logging.Component("source"),
	}
}

// Write renders the descriptor and writes it under the cache directory,
// overwriting any previous artifact. Output is byte-for-byte stable for
// unchanged configuration.
func (b *Builder) Write() (string, error) {
	if b.sourceURL == "" {
		return "", ErrNoSource
	}

	if err := util.EnsureDir(b.cacheDir); err != nil {
		return "", fmt.Errorf("create cache dir %s: %w", b.cacheDir, err)
	}

	absCache, err := filepath.Abs(b.cacheDir)
	if err != nil {
		return "", fmt.Errorf("resolve cache dir %s: %w", b.cacheDir, err)
	}

	path := filepath.Join(b.cacheDir, DescriptorFile)
	content := b.render(absCache)

	if err := util.WriteFileAtomic(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write descriptor: %w", err)
	}

	b.log.Info("wrote source descriptor", "path", path)
	return path, nil
}

// render produces the GDAL_WMS document. The tile cache path points the
// engine's own per-URL tile cache into our cache directory so repeated
// runs reuse already-fetched tiles.
func (b *Builder) render(absCachePath string) string {
	return fmt.Sprintf(`<GDAL_WMS>
    <Service name="TMS">
        <ServerUrl>%s</ServerUrl>
    </Service>
    <DataWindow>
        <UpperLeftX>-%.2f</UpperLeftX>
        <UpperLeftY>%.2f</UpperLeftY>
        <LowerRightX>%.2f</LowerRightX>
        <LowerRightY>-%.2f</LowerRightY>
        <TileLevel>%d</TileLevel>
        <YOrigin>top</YOrigin>
    </DataWindow>
    <Projection>%s</Projection>
    <BlockSizeX>%d</BlockSizeX>
    <BlockSizeY>%d</BlockSizeY>
    <BandsCount>%d</BandsCount>
    <Cache><Path>%s</Path></Cache>
</GDAL_WMS>`,
		b.sourceURL,
		WebMercatorExtent, WebMercatorExtent, WebMercatorExtent, WebMercatorExtent,
		ZoomLevels,
		ProjectionCode,
		TileSize, TileSize,
		BandCount,
		absCachePath,
	)
}
