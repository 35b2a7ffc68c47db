// Package notify posts a completion event to a configured webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/opendem/opendem/internal/logging"
)

// RunSummary is the JSON payload posted on completion.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Process      string    `json:"process"`
	Output       string    `json:"output"`
	Masked       bool      `json:"masked"`
	Clipped      bool      `json:"clipped"`
	ElevationMin float64   `json:"elevation_min"`
	ElevationMax float64   `json:"elevation_max"`
	DurationMS   int64     `json:"duration_ms"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Notifier sends run summaries to an HTTP endpoint. An empty endpoint
// disables notification.
type Notifier struct {
	endpoint string
	client   *http.Client
	log      *slog.Logger
}

// New creates a notifier for the given endpoint.
func New(endpoint string) *Notifier {
	return &Notifier{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logging.Component("notify"),
	}
}

// Enabled reports whether an endpoint is configured.
func (n *Notifier) Enabled() bool { return n.endpoint != "" }

// Notify posts the summary. Failures are the caller's to log; they never
// invalidate a completed run.
func (n *Notifier) Notify(ctx context.Context, summary RunSummary) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.log.Info("posted run summary", "endpoint", n.endpoint, "run_id", summary.RunID)
	return nil
}
