// Package images - Frame, raster, and box geometry for the detection pipeline.
package images

import (
	"github.com/pkg/errors"
)

// ErrFrameConversion marks malformed or short camera frame data. Per-frame
// conversion failures are non-fatal to the pipeline; callers report them and
// keep the previously published detections.
var ErrFrameConversion = errors.New("frame conversion failed")

// Plane is one component plane of a subsampled camera frame.
type Plane struct {
	// Data is the raw plane bytes as delivered by the capture callback.
	Data []byte
	// RowStride is the byte distance between vertically adjacent samples.
	RowStride int
	// PixelStride is the byte distance between horizontally adjacent
	// samples. 1 for planar chroma, 2 when the chroma planes are
	// interleaved (NV12/NV21-style); always read, never assumed.
	PixelStride int
}

// Frame is a single 4:2:0 chroma-subsampled camera frame. The luma plane is
// full resolution; the two chroma planes are half resolution in both
// dimensions. A Frame is produced per capture callback and discarded as soon
// as it has been converted.
type Frame struct {
	Width  int
	Height int
	Y      Plane
	U      Plane
	V      Plane
}

// Validate checks that the frame carries all three planes with usable
// geometry.
//
// Returns:
//   - error: ErrFrameConversion when a plane is missing or the declared
//     strides cannot describe a frame of this size.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Wrapf(ErrFrameConversion, "invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Y.Data) == 0 || len(f.U.Data) == 0 || len(f.V.Data) == 0 {
		return errors.Wrap(ErrFrameConversion, "frame is missing plane data")
	}
	if f.Y.RowStride < f.Width {
		return errors.Wrapf(ErrFrameConversion, "luma row stride %d shorter than width %d", f.Y.RowStride, f.Width)
	}
	if f.U.RowStride <= 0 || f.V.RowStride <= 0 {
		return errors.Wrap(ErrFrameConversion, "non-positive chroma row stride")
	}
	if f.U.PixelStride <= 0 || f.V.PixelStride <= 0 {
		return errors.Wrap(ErrFrameConversion, "non-positive chroma pixel stride")
	}
	return nil
}
