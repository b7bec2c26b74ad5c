package inference

import (
	"github.com/nfnt/resize"

	"github.com/fruitsight/go-ripeness/images"
)

// PrepareInput resizes a raster to the model's square input resolution and
// normalizes it into a flattened [1, S, S, 3] tensor, channel-interleaved,
// every channel scaled to [0,1]. Lanczos3 keeps the resampling deterministic.
//
// Pure function of its input; no hidden state.
//
// Arguments:
//   - raster: The full-resolution RGB raster.
//   - inputSize: The model's declared input edge length.
//
// Returns:
//   - *Tensor: The populated input tensor.
func PrepareInput(raster *images.Raster, inputSize int) *Tensor {
	resized := resize.Resize(uint(inputSize), uint(inputSize), raster, resize.Lanczos3)

	data := make([]float32, inputSize*inputSize*3)
	i := 0
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[i+1] = float32(g>>8) / 255.0
			data[i+2] = float32(b>>8) / 255.0
			i += 3
		}
	}
	return &Tensor{Size: inputSize, Data: data}
}
