package texture

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/born-ml/texel/internal/tensor"
)

// FromPixels reads img into a [height, width, numChannels] matrix of channel
// values in [0, 255]. numChannels must be 1, 3 or 4; the kept channels are
// the leading ones of non-premultiplied RGBA.
func FromPixels(img image.Image, numChannels int) ([]float32, tensor.Shape, error) {
	if numChannels != 1 && numChannels != 3 && numChannels != 4 {
		return nil, nil, fmt.Errorf("texture: %w: pixels need 1, 3 or 4 channels, got %d",
			ErrInvalidChannels, numChannels)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rgba := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Copy(rgba, image.Point{}, img, bounds, draw.Src, nil)

	unpacked := make([]float32, width*height*4)
	for y := 0; y < height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		for i, v := range row {
			unpacked[y*width*4+i] = float32(v)
		}
	}

	matrix := make([]float32, width*height*numChannels)
	if err := DecodeMatrixFromUnpackedColorRGBAArray(unpacked, matrix, numChannels); err != nil {
		return nil, nil, err
	}
	return matrix, tensor.Shape{height, width, numChannels}, nil
}
