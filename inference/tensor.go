// Package inference - Tensor types and the opaque inference engine boundary.
package inference

import (
	"fmt"

	"github.com/pkg/errors"
)

// Tensor is the model input: a flattened float32 buffer of logical shape
// [1, Size, Size, 3], row-major and channel-interleaved, values in [0,1].
type Tensor struct {
	// Size is the spatial edge length of the square input.
	Size int
	// Data holds Size*Size*3 floats.
	Data []float32
}

// Len returns the expected element count for the tensor's shape.
func (t *Tensor) Len() int { return t.Size * t.Size * 3 }

// RawOutput is the model output: a flattened float32 buffer of logical shape
// [1, Attributes, Anchors], attribute-major. A strided accessor replaces
// ragged nested-array indexing; every read is addressed by
// (attribute, anchor) against the declared shape.
type RawOutput struct {
	Attributes int
	Anchors    int
	data       []float32
}

// NewRawOutput wraps a flat buffer with its declared shape.
//
// Arguments:
//   - attributes: The attribute count (box coordinates plus score channels).
//   - anchors: The anchor count.
//   - data: The flat buffer; its length must match attributes*anchors.
//
// Returns:
//   - *RawOutput: The shaped view.
//   - error: A shape mismatch between the declared metadata and the buffer.
func NewRawOutput(attributes, anchors int, data []float32) (*RawOutput, error) {
	if attributes <= 0 || anchors <= 0 {
		return nil, errors.Errorf("invalid output shape [1,%d,%d]", attributes, anchors)
	}
	if len(data) != attributes*anchors {
		return nil, errors.Errorf("output buffer holds %d floats, shape [1,%d,%d] needs %d",
			len(data), attributes, anchors, attributes*anchors)
	}
	return &RawOutput{Attributes: attributes, Anchors: anchors, data: data}, nil
}

// At reads one value addressed by (attribute, anchor).
func (o *RawOutput) At(attribute, anchor int) float32 {
	if attribute < 0 || attribute >= o.Attributes || anchor < 0 || anchor >= o.Anchors {
		panic(fmt.Sprintf("output index (%d,%d) outside shape [1,%d,%d]",
			attribute, anchor, o.Attributes, o.Anchors))
	}
	return o.data[attribute*o.Anchors+anchor]
}
