// Package pipeline - Orchestration of the real-time detection pipeline:
// frame throttling, per-run execution, and atomic publication of results.
package pipeline

import (
	"time"

	"github.com/pkg/errors"

	"github.com/fruitsight/go-ripeness/inference"
	"github.com/fruitsight/go-ripeness/postprocess"
)

// ErrConfiguration marks a mismatch between the declared model metadata and
// the pipeline configuration. Unlike per-frame errors it is fatal: it is
// detected once at construction and the pipeline refuses to start until
// corrected.
var ErrConfiguration = errors.New("configuration error")

// Config is the externally settable surface of the pipeline. The model's
// input size, attribute count, and anchor count are deliberately absent:
// those belong to the engine's declared metadata, never to the caller.
type Config struct {
	// ConfidenceThreshold drops candidates not scoring strictly above it.
	ConfidenceThreshold float32
	// IoUThreshold is the overlap above which suppression drops the
	// lower-confidence box.
	IoUThreshold float32
	// SampleInterval runs the pipeline on every n-th delivered frame.
	SampleInterval int
	// Layout is the model's declared output attribute layout.
	Layout postprocess.Layout
	// RunTimeout bounds a single pipeline run; exceeding it fails the run.
	RunTimeout time.Duration
	// Labels is the class label list, in class-index order.
	Labels []string
}

// Validate checks the configuration against the loaded model's declared
// metadata.
//
// Arguments:
//   - meta: The engine's model metadata.
//
// Returns:
//   - error: An error wrapping ErrConfiguration describing the first
//     mismatch found, nil when the configuration is usable.
func (c *Config) Validate(meta inference.Metadata) error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold >= 1 {
		return errors.Wrapf(ErrConfiguration, "confidence threshold %v outside [0,1)", c.ConfidenceThreshold)
	}
	if c.IoUThreshold < 0 || c.IoUThreshold > 1 {
		return errors.Wrapf(ErrConfiguration, "IoU threshold %v outside [0,1]", c.IoUThreshold)
	}
	if c.SampleInterval < 1 {
		return errors.Wrapf(ErrConfiguration, "sample interval %d below 1", c.SampleInterval)
	}
	if c.RunTimeout <= 0 {
		return errors.Wrapf(ErrConfiguration, "run timeout %v must be positive", c.RunTimeout)
	}
	if !c.Layout.Valid() {
		return errors.Wrapf(ErrConfiguration, "unknown output layout %q", c.Layout)
	}
	if len(c.Labels) == 0 {
		return errors.Wrap(ErrConfiguration, "no class labels configured")
	}

	if meta.InputSize <= 0 {
		return errors.Wrapf(ErrConfiguration, "model declares input size %d", meta.InputSize)
	}
	if meta.AnchorCount <= 0 {
		return errors.Wrapf(ErrConfiguration, "model declares anchor count %d", meta.AnchorCount)
	}
	expected := c.Layout.ScoreOffset() + len(c.Labels)
	if meta.AttributeCount != expected {
		return errors.Wrapf(ErrConfiguration,
			"model declares %d attributes but layout %q with %d labels needs %d",
			meta.AttributeCount, c.Layout, len(c.Labels), expected)
	}
	return nil
}
