package images

import (
	"image"
	"image/color"
)

// Raster is a full-resolution row-major RGB raster: three bytes per pixel,
// no padding between rows. It is the intermediate between a converted camera
// frame (or a decoded still image) and the model preprocessor.
type Raster struct {
	Width  int
	Height int
	// Pix holds R, G, B triplets, row-major.
	Pix []byte
}

// NewRaster allocates a zeroed raster of the given dimensions.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// SetRGB writes one pixel. Callers are expected to stay in bounds; the
// converter pre-computes its indices.
func (r *Raster) SetRGB(x, y int, red, green, blue byte) {
	i := (y*r.Width + x) * 3
	r.Pix[i] = red
	r.Pix[i+1] = green
	r.Pix[i+2] = blue
}

// RGBAt reads one pixel's channels.
func (r *Raster) RGBAt(x, y int) (red, green, blue byte) {
	i := (y*r.Width + x) * 3
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (r *Raster) Bounds() image.Rectangle { return image.Rect(0, 0, r.Width, r.Height) }

// At implements image.Image so a Raster can feed any resampling filter
// directly.
func (r *Raster) At(x, y int) color.Color {
	red, green, blue := r.RGBAt(x, y)
	return color.RGBA{R: red, G: green, B: blue, A: 0xff}
}

// RasterFromImage copies a decoded still image into a Raster. This is the
// entry point of the single-shot path, where the source is already RGB and
// the YUV conversion step is skipped.
//
// Arguments:
//   - img: Any decoded image; bounds may start at a non-zero origin.
//
// Returns:
//   - *Raster: A raster of identical dimensions with every channel in [0,255].
func RasterFromImage(img image.Image) *Raster {
	bounds := img.Bounds()
	out := NewRaster(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			red, green, blue, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.SetRGB(x, y, byte(red>>8), byte(green>>8), byte(blue>>8))
		}
	}
	return out
}
