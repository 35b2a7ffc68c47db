// Package progress adapts the engine's fractional-completion callbacks
// into coarse log events.
package progress

import (
	"log/slog"

	"github.com/opendem/opendem/internal/logging"
)

// Relay throttles dense per-tile progress callbacks down to one log line
// per 5% step. It never requests cancellation of the underlying
// operation.
type Relay struct {
	stage string
	log   *slog.Logger
	last  int
}

// NewRelay creates a relay for the named stage.
func NewRelay(stage string) *Relay {
	return &Relay{
		stage: stage,
		log:   logging.Component("progress"),
		last:  -1,
	}
}

// Tick receives fractional completion in [0,1]. A line is logged only
// when the whole percent strictly increases and lands on a multiple
// of 5.
func (r *Relay) Tick(complete float64, _ string) bool {
	percent := int(complete * 100)

	if percent > r.last {
		r.last = percent
		if percent%5 == 0 {
			r.log.Info("progress", "stage", r.stage, "percent", percent)
		}
	}
	return true
}
