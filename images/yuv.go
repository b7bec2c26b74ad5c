package images

// BT.601 full-range coefficients, the transform camera stacks apply to
// preview frames.
const (
	yuvRV = 1.402
	yuvGU = 0.344
	yuvGV = 0.714
	yuvBU = 1.772
)

// ConvertYUV420 converts a 4:2:0 chroma-subsampled frame into a
// full-resolution RGB raster of identical dimensions.
//
// Each pixel reads its luma sample at (y·lumaRowStride + x) and its two
// chroma samples at (y/2)·chromaRowStride + (x/2)·chromaPixelStride. A
// computed index that falls outside a plane's byte length skips that pixel
// rather than aborting: conversion is total and bounded-time even on
// truncated buffers.
//
// Arguments:
//   - f: The raw camera frame. Must carry all three planes.
//
// Returns:
//   - *Raster: The converted raster, same width/height as the frame.
//   - error: ErrFrameConversion when the frame fails validation outright.
func ConvertYUV420(f *Frame) (*Raster, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	out := NewRaster(f.Width, f.Height)
	for y := 0; y < f.Height; y++ {
		lumaRow := y * f.Y.RowStride
		for x := 0; x < f.Width; x++ {
			li := lumaRow + x
			ui := (y/2)*f.U.RowStride + (x/2)*f.U.PixelStride
			vi := (y/2)*f.V.RowStride + (x/2)*f.V.PixelStride
			if li >= len(f.Y.Data) || ui >= len(f.U.Data) || vi >= len(f.V.Data) {
				continue
			}

			luma := float32(f.Y.Data[li])
			u := float32(f.U.Data[ui]) - 128
			v := float32(f.V.Data[vi]) - 128

			out.SetRGB(x, y,
				clampChannel(luma+yuvRV*v),
				clampChannel(luma-yuvGU*u-yuvGV*v),
				clampChannel(luma+yuvBU*u))
		}
	}
	return out, nil
}

func clampChannel(v float32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
