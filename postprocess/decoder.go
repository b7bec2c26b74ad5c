package postprocess

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/fruitsight/go-ripeness/images"
	"github.com/fruitsight/go-ripeness/inference"
)

// Layout identifies how a model arranges its per-anchor output attributes.
// It is a property of the loaded model, declared in its contract rather than
// inferred at runtime: the two layouts' shapes can coincide for some class
// counts and a wrong guess silently yields nonsensical boxes.
type Layout string

const (
	// LayoutClassScores is box coordinates followed directly by per-class
	// scores: attributeCount = 4 + classCount.
	LayoutClassScores Layout = "class-scores"
	// LayoutObjectness is box coordinates, one objectness score, then
	// per-class scores: attributeCount = 5 + classCount.
	LayoutObjectness Layout = "objectness"
)

// ScoreOffset returns the attribute index of the first class score.
func (l Layout) ScoreOffset() int {
	if l == LayoutObjectness {
		return 5
	}
	return 4
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == LayoutClassScores || l == LayoutObjectness
}

// Decoder turns raw output tensors into unfiltered candidate detections.
type Decoder struct {
	layout    Layout
	labels    []string
	threshold float32
}

// NewDecoder creates a decoder for the given model layout and label set.
//
// Arguments:
//   - layout: The model's declared attribute layout.
//   - labels: The class label list; its length fixes the class count.
//   - threshold: Confidence threshold; candidates must score strictly above
//     it to be emitted.
//
// Returns:
//   - *Decoder: The configured decoder.
//   - error: An unknown layout or empty label set.
func NewDecoder(layout Layout, labels []string, threshold float32) (*Decoder, error) {
	if !layout.Valid() {
		return nil, errors.Errorf("unknown output layout %q", layout)
	}
	if len(labels) == 0 {
		return nil, errors.New("decoder needs at least one class label")
	}
	return &Decoder{layout: layout, labels: labels, threshold: threshold}, nil
}

// AttributeCount returns the attribute count this decoder expects per anchor.
func (d *Decoder) AttributeCount() int {
	return d.layout.ScoreOffset() + len(d.labels)
}

// Decode walks every anchor of the raw output and emits the candidates that
// clear the confidence threshold.
//
// With a separate objectness channel the confidence is
// objectness·bestClassScore; otherwise it is the best class score alone.
// Argmax ties resolve to the lowest class index. Boxes arrive as normalized
// center/size and leave as left/top/width/height clamped into the unit
// frame, so a raw prediction that overshoots still yields a box fully inside
// [0,1]².
//
// Arguments:
//   - out: The raw output tensor, shape [1, attributes, anchors].
//
// Returns:
//   - []Detection: Candidates in anchor order.
//   - error: An attribute-count mismatch with the decoder's declared layout.
func (d *Decoder) Decode(out *inference.RawOutput) ([]Detection, error) {
	if out.Attributes != d.AttributeCount() {
		return nil, errors.Errorf("output has %d attributes, layout %q with %d classes needs %d",
			out.Attributes, d.layout, len(d.labels), d.AttributeCount())
	}

	offset := d.layout.ScoreOffset()
	candidates := make([]Detection, 0, 64)

	for i := 0; i < out.Anchors; i++ {
		class := 0
		best := out.At(offset, i)
		for j := 1; j < len(d.labels); j++ {
			// Strictly greater: ties keep the lowest class index.
			if score := out.At(offset+j, i); score > best {
				best = score
				class = j
			}
		}

		confidence := best
		if d.layout == LayoutObjectness {
			confidence = out.At(4, i) * best
		}
		if confidence <= d.threshold {
			continue
		}

		cx := out.At(0, i)
		cy := out.At(1, i)
		w := out.At(2, i)
		h := out.At(3, i)

		left := clamp(cx-w/2, 0, 1)
		top := clamp(cy-h/2, 0, 1)
		width := clamp(w, 0, 1-left)
		height := clamp(h, 0, 1-top)

		candidates = append(candidates, Detection{
			Box:   images.Rect{X1: left, Y1: top, X2: left + width, Y2: top + height},
			Score: confidence,
			Class: class,
			Label: d.labels[class],
		})
	}
	return candidates, nil
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}
