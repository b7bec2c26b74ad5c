package images

import (
	"github.com/chewxy/math32"
)

// Rect is a lightweight bounding box in normalized coordinates.
type Rect struct {
	// X2,Y2 are exclusive edges; all four values live in [0,1].
	X1, Y1, X2, Y2 float32
}

// Dx returns the box width.
func (r Rect) Dx() float32 { return r.X2 - r.X1 }

// Dy returns the box height.
func (r Rect) Dy() float32 { return r.Y2 - r.Y1 }

// Area returns the box area, zero for degenerate boxes.
func (r Rect) Area() float32 {
	w := r.Dx()
	h := r.Dy()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// CalculateIoU computes Intersection over Union between two boxes, the
// overlap metric driving non-max suppression.
//
// The intersection rectangle spans from the maximum of the two top-left
// corners to the minimum of the two bottom-right corners; when that span is
// empty in either axis the boxes are disjoint and the result is 0. The union
// follows inclusion-exclusion: Area(A) + Area(B) - Area(A∩B). A union of
// zero or less (two degenerate boxes) also yields 0 rather than dividing.
//
// Arguments:
//   - r: The first box.
//   - o: The other box.
//
// Returns:
//   - float32: A value in [0,1]; 1.0 means the boxes coincide.
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	if ix1 >= ix2 || iy1 >= iy2 {
		return 0
	}
	interArea := (ix2 - ix1) * (iy2 - iy1)

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}
	return interArea / unionArea
}
