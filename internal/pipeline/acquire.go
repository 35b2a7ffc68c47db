package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opendem/opendem/internal/engine"
	"github.com/opendem/opendem/internal/metrics"
	"github.com/opendem/opendem/internal/progress"
	"github.com/opendem/opendem/internal/source"
)

// Acquisition retry policy: at most maxAttempts warps with a fixed delay
// between them. No jitter, no exponential growth; the attempt count is
// small enough that a constant interval keeps behavior predictable.
const (
	maxAttempts       = 5
	defaultRetryDelay = 10 * time.Second
)

// ErrMaxRetries is returned when every acquisition attempt failed with a
// transient network classification.
var ErrMaxRetries = errors.New("max retries exceeded acquiring tile source")

// acquire warps the source descriptor into a 3-band byte mosaic at the
// configured bounds and resolution. Only failures classified as transient
// network errors are retried; anything else (disk exhaustion, bad
// configuration) aborts on the first occurrence.
func (p *Pipeline) acquire(ctx context.Context, descriptorPath string) (string, error) {
	dst := filepath.Join(p.cfg.CacheDir, rgbArtifact)
	relay := progress.NewRelay("warp")

	opts := engine.WarpOptions{
		Bounds:    p.cfg.BoundsArray(),
		BoundsSRS: "EPSG:4326",
		XRes:      p.cfg.Resolution,
		YRes:      p.cfg.Resolution,
		DstSRS:    source.ProjectionCode,
	}

	attempt := 0
	op := func() error {
		attempt++
		p.log.Info("warp attempt", "attempt", attempt, "max", maxAttempts)
		if m := metrics.Get(); m != nil {
			m.IncWarpAttempts()
		}

		err := p.eng.Warp(ctx, dst, descriptorPath, opts, relay.Tick)
		if err == nil {
			return nil
		}

		if engine.KindOf(err) == engine.KindTransientNetwork {
			p.log.Warn("transient network failure during warp", "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.retryDelay), maxAttempts-1),
		ctx,
	)
	notifyRetry := func(err error, wait time.Duration) {
		p.log.Info("retrying warp", "wait", wait.String())
		if m := metrics.Get(); m != nil {
			m.IncRetryAttempts()
		}
	}

	if err := backoff.RetryNotify(op, policy, notifyRetry); err != nil {
		if engine.KindOf(err) == engine.KindTransientNetwork {
			return "", fmt.Errorf("%w: %d attempts, last error: %v", ErrMaxRetries, attempt, err)
		}
		return "", err
	}

	return dst, nil
}
