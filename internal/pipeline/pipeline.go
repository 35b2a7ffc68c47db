// Package pipeline sequences the acquisition-and-decision pipeline:
// descriptor → retry-governed warp → Terrarium decode → terrain
// derivative → mask decision → export. Stages run strictly one after
// another; cancellation is checked between stages.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/opendem/opendem/internal/clip"
	"github.com/opendem/opendem/internal/config"
	"github.com/opendem/opendem/internal/dem"
	"github.com/opendem/opendem/internal/engine"
	"github.com/opendem/opendem/internal/export"
	"github.com/opendem/opendem/internal/logging"
	"github.com/opendem/opendem/internal/manifest"
	"github.com/opendem/opendem/internal/metrics"
	"github.com/opendem/opendem/internal/notify"
	"github.com/opendem/opendem/internal/publish"
	"github.com/opendem/opendem/internal/source"
	"github.com/opendem/opendem/internal/terrain"
	"github.com/opendem/opendem/internal/util"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Intermediate artifact names inside the cache directory.
const (
	rgbArtifact       = "remote_rgb.tif"
	elevationArtifact = "elevation.tif"
)

// Pipeline owns one end-to-end run.
type Pipeline struct {
	cfg   config.Config
	eng   engine.Engine
	log   *slog.Logger
	runID string

	retryDelay time.Duration

	man manifest.Manifest
}

// Option adjusts pipeline behavior.
type Option func(*Pipeline)

// WithRetryDelay overrides the fixed inter-attempt acquisition delay.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.retryDelay = d }
}

// New creates a pipeline run for the given configuration and engine.
func New(cfg config.Config, eng engine.Engine, opts ...Option) *Pipeline {
	runID := uuid.New().String()
	p := &Pipeline{
		cfg:        cfg,
		eng:        eng,
		log:        logging.RunLogger(runID, cfg.Process, cfg.Output),
		runID:      runID,
		retryDelay: defaultRetryDelay,
		man: manifest.Manifest{
			RunID:    runID,
			Process:  cfg.Process,
			Output:   cfg.Output,
			Producer: "opendem " + Version,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline to completion or the first error.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.log.Info("starting run", "version", Version, "git_sha", GitSHA)

	if err := util.EnsureDir(p.cfg.CacheDir); err != nil {
		return p.fail(fmt.Errorf("create cache dir %s: %w", p.cfg.CacheDir, err))
	}

	var (
		descriptorPath string
		rgbPath        string
		elevPath       string
		procPath       string
		elevMin        float64
		elevMax        float64
	)

	err := p.runStage(ctx, "descriptor", func(ctx context.Context) error {
		var err error
		descriptorPath, err = source.NewBuilder(p.cfg.Source, p.cfg.CacheDir).Write()
		return err
	})
	if err != nil {
		return p.fail(err)
	}
	p.man.AddArtifact("descriptor", descriptorPath)

	err = p.runStage(ctx, "acquire", func(ctx context.Context) error {
		var err error
		rgbPath, err = p.acquire(ctx, descriptorPath)
		return err
	})
	if err != nil {
		return p.fail(err)
	}
	p.man.AddArtifact("rgb", rgbPath)

	err = p.runStage(ctx, "decode", func(ctx context.Context) error {
		var err error
		elevPath, elevMin, elevMax, err = p.decode(ctx, rgbPath)
		return err
	})
	if err != nil {
		return p.fail(err)
	}
	p.man.AddArtifact("elevation", elevPath)
	p.man.ElevationMin = elevMin
	p.man.ElevationMax = elevMax

	err = p.runStage(ctx, "derive", func(ctx context.Context) error {
		boundary, err := clip.NewResolver(p.cfg.CacheDir).Resolve(ctx, p.cfg.Clipping)
		if err != nil {
			return err
		}
		p.man.Clipped = boundary != ""

		procPath, err = terrain.NewProcessor(p.eng, p.cfg.CacheDir).Run(ctx, elevPath, p.cfg.Process, boundary)
		return err
	})
	if err != nil {
		return p.fail(err)
	}
	p.man.AddArtifact("process_source", procPath)

	err = p.runStage(ctx, "export", func(ctx context.Context) error {
		return p.export(ctx, procPath)
	})
	if err != nil {
		return p.fail(err)
	}
	p.man.AddArtifact("output", p.cfg.Output)

	p.finalize(ctx, time.Since(start))

	p.log.Info("run complete", "output", p.cfg.Output, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// runStage times one stage and enforces the between-stage cancellation
// check. Abort is prompt but leaves any partial cache artifact as-is.
func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("aborted before stage %s: %w", name, err)
	}

	p.log.Info("stage starting", "stage", name)
	start := time.Now()

	if err := fn(ctx); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}

	elapsed := time.Since(start)
	p.man.AddStage(name, elapsed)
	if m := metrics.Get(); m != nil {
		m.ObserveStageDuration(name, elapsed.Seconds())
	}
	p.log.Info("stage complete", "stage", name, "duration_ms", elapsed.Milliseconds())
	return nil
}

// decode reads the three byte bands of the acquired mosaic, converts
// them to metric elevation and persists the result as a Float32 raster
// with no declared nodata. Returns the artifact path and the decode
// statistics.
func (p *Pipeline) decode(_ context.Context, rgbPath string) (string, float64, float64, error) {
	src, err := p.eng.OpenRaster(rgbPath)
	if err != nil {
		return "", 0, 0, fmt.Errorf("open acquired raster: %w", err)
	}
	defer src.Close()

	if src.Bands() < source.BandCount {
		return "", 0, 0, fmt.Errorf("acquired raster has %d bands, want %d", src.Bands(), source.BandCount)
	}

	r, err := src.ReadBand(1)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read band 1: %w", err)
	}
	g, err := src.ReadBand(2)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read band 2: %w", err)
	}
	b, err := src.ReadBand(3)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read band 3: %w", err)
	}

	elev, err := dem.DecodeTerrarium(r, g, b)
	if err != nil {
		return "", 0, 0, fmt.Errorf("decode terrarium: %w", err)
	}

	grid := dem.Grid{W: src.Width(), H: src.Height(), Data: elev}
	min, max := grid.MinMax()
	p.log.Info("decoded elevation", "min_m", min, "max_m", max, "pixels", len(elev))
	if m := metrics.Get(); m != nil {
		m.SetElevationStats(min, max)
		m.SetPixelsProcessed(float64(len(elev)))
	}

	out := filepath.Join(p.cfg.CacheDir, elevationArtifact)
	dst, err := p.eng.CreateRaster(out, grid.W, grid.H, 1, engine.Float32)
	if err != nil {
		return "", 0, 0, fmt.Errorf("create elevation raster: %w", err)
	}
	defer dst.Close()

	if err := dst.SetGeoTransform(src.GeoTransform()); err != nil {
		return "", 0, 0, fmt.Errorf("set geotransform: %w", err)
	}
	if err := dst.SetProjection(src.Projection()); err != nil {
		return "", 0, 0, fmt.Errorf("set projection: %w", err)
	}
	if err := dst.WriteBand(1, elev); err != nil {
		return "", 0, 0, fmt.Errorf("write elevation band: %w", err)
	}

	return out, min, max, nil
}

// export reads the process-source raster, applies the mask decision and
// writes the final artifact.
func (p *Pipeline) export(ctx context.Context, procPath string) error {
	src, err := p.eng.OpenRaster(procPath)
	if err != nil {
		return fmt.Errorf("open process source: %w", err)
	}
	defer src.Close()

	data, err := src.ReadBand(1)
	if err != nil {
		return fmt.Errorf("read process band: %w", err)
	}
	grid := &dem.Grid{W: src.Width(), H: src.Height(), Data: data}

	var masked *dem.ByteGrid
	if p.cfg.Mask != nil {
		p.log.Info("mask configured, generating binary output",
			"min", maskBound(p.cfg.Mask.Min), "max", maskBound(p.cfg.Mask.Max))
		masked = dem.ApplyMask(grid, dem.Thresholds{
			Min: p.cfg.Mask.Min,
			Max: p.cfg.Mask.Max,
		}, dem.NoData)
		p.man.Masked = true
	} else {
		p.log.Info("no mask configured, generating continuous output")
	}

	return export.New(p.eng).Export(ctx, p.cfg.Output, src, grid, masked)
}

// finalize writes the run manifest and drives the optional publish and
// notify sinks. Sink failures are warnings: the output artifact already
// exists.
func (p *Pipeline) finalize(ctx context.Context, elapsed time.Duration) {
	p.man.CreatedAt = time.Now().UTC()

	manPath := filepath.Join(p.cfg.CacheDir, manifest.FileName)
	if err := manifest.Write(manPath, &p.man); err != nil {
		p.log.Warn("failed to write run manifest", "error", err)
	}

	pub := publish.New(p.cfg.Publish.URL)
	if pub.Enabled() {
		if err := pub.Publish(ctx, p.cfg.Output); err != nil {
			p.log.Warn("failed to publish output", "error", err)
		}
		if err := pub.Publish(ctx, manPath); err != nil {
			p.log.Warn("failed to publish manifest", "error", err)
		}
	}

	ntf := notify.New(p.cfg.Notify.Endpoint)
	if ntf.Enabled() {
		summary := notify.RunSummary{
			RunID:        p.runID,
			Process:      p.cfg.Process,
			Output:       p.cfg.Output,
			Masked:       p.man.Masked,
			Clipped:      p.man.Clipped,
			ElevationMin: p.man.ElevationMin,
			ElevationMax: p.man.ElevationMax,
			DurationMS:   elapsed.Milliseconds(),
			CompletedAt:  time.Now().UTC(),
		}
		if err := ntf.Notify(ctx, summary); err != nil {
			p.log.Warn("failed to post run summary", "error", err)
		}
	}

	if m := metrics.Get(); m != nil {
		format := "raster"
		if export.IsVectorPath(p.cfg.Output) {
			format = "vector"
		}
		m.IncRunsCompleted(p.cfg.Process, format)
	}
}

func (p *Pipeline) fail(err error) error {
	if m := metrics.Get(); m != nil {
		m.IncRunsFailed(p.cfg.Process)
	}
	return err
}

func maskBound(v *float64) any {
	if v == nil {
		return "unset"
	}
	return *v
}
