package inference

import (
	"context"

	"github.com/pkg/errors"
)

// ErrInference marks an engine failure or timeout on a single run. It is
// non-fatal: the run is abandoned and the previously published detections
// stay visible.
var ErrInference = errors.New("inference failed")

// Metadata is the loaded model's declared contract. All three values come
// from the model itself; callers never hardcode them.
type Metadata struct {
	// InputSize is the spatial edge length of the square model input.
	InputSize int
	// AttributeCount is the per-anchor attribute count: 4+classes, or
	// 5+classes when the model emits a separate objectness channel.
	AttributeCount int
	// AnchorCount is the number of candidate locations the model evaluates.
	AnchorCount int
}

// Engine is the opaque inference capability: it maps an input tensor to a
// raw output tensor. Implementations own their runtime resources and must be
// safe for use from the pipeline's single worker.
type Engine interface {
	// Metadata reports the loaded model's declared shapes.
	Metadata() Metadata
	// Infer runs one forward pass. It honors ctx cancellation and deadline;
	// a cancelled run returns an error wrapping ErrInference.
	Infer(ctx context.Context, t *Tensor) (*RawOutput, error)
	// Close releases the engine's resources.
	Close() error
}
