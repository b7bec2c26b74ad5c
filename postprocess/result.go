// Package postprocess - Decoding and suppression of raw detection outputs.
package postprocess

import (
	"fmt"

	"github.com/fruitsight/go-ripeness/images"
)

// Detection is a single decoded detection in normalized coordinates.
// The box always lies entirely within the unit frame.
type Detection struct {
	// The bounding box of the detection.
	Box images.Rect
	// The confidence score of the detection, in (0,1].
	Score float32
	// The predicted class index of the detection.
	Class int
	// The human-readable label for Class.
	Label string
}

// Left returns the box's left edge.
func (d Detection) Left() float32 { return d.Box.X1 }

// Top returns the box's top edge.
func (d Detection) Top() float32 { return d.Box.Y1 }

// Width returns the box width.
func (d Detection) Width() float32 { return d.Box.Dx() }

// Height returns the box height.
func (d Detection) Height() float32 { return d.Box.Dy() }

func (d Detection) String() string {
	return fmt.Sprintf("%s (%.2f): [%.3f, %.3f, %.3f, %.3f]",
		d.Label, d.Score, d.Left(), d.Top(), d.Width(), d.Height())
}
