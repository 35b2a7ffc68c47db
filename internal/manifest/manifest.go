// Package manifest records what a pipeline run did: inputs, intermediate
// artifacts, stage timings and decode statistics. The manifest lands in
// the cache directory next to the artifacts it describes.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/opendem/opendem/internal/util"
)

// FileName is the manifest artifact name inside the cache dir.
const FileName = "run_manifest.json"

// StageTiming records the wall-clock duration of one pipeline stage.
type StageTiming struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
}

// Manifest describes a single pipeline run.
type Manifest struct {
	RunID   string `json:"run_id"`
	Process string `json:"process"`
	Output  string `json:"output"`
	Masked  bool   `json:"masked"`
	Clipped bool   `json:"clipped"`

	ElevationMin float64 `json:"elevation_min"`
	ElevationMax float64 `json:"elevation_max"`

	// Artifacts maps artifact roles (descriptor, rgb, elevation,
	// process_source, output) to their paths.
	Artifacts map[string]string `json:"artifacts"`

	Stages []StageTiming `json:"stages"`

	Producer  string    `json:"producer"`
	CreatedAt time.Time `json:"created_at"`
}

// AddStage appends a stage timing.
func (m *Manifest) AddStage(name string, d time.Duration) {
	m.Stages = append(m.Stages, StageTiming{
		Name:       name,
		DurationMS: d.Milliseconds(),
	})
}

// AddArtifact records an artifact path under a role name.
func (m *Manifest) AddArtifact(role, path string) {
	if m.Artifacts == nil {
		m.Artifacts = make(map[string]string)
	}
	m.Artifacts[role] = path
}

// Write persists the manifest atomically at path.
func Write(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
