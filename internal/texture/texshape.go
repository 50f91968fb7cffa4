package texture

import (
	"fmt"
	"math"

	"github.com/born-ml/texel/internal/tensor"
)

// UnpackedTexShape returns the physical [height, width] of an unpacked
// texture for shape. A maxTextureSize <= 0 disables the limit.
func UnpackedTexShape(shape tensor.Shape, maxTextureSize int) ([2]int, error) {
	w, h := UnpackedMatrixTextureShapeWidthHeight(shape.FlatRows(), shape.Cols())
	return fitTexShape(shape, h, w, maxTextureSize)
}

// PackedTexShape returns the physical [height, width] in texels of a packed
// texture for shape. A maxTextureSize <= 0 disables the limit.
func PackedTexShape(shape tensor.Shape, maxTextureSize int) ([2]int, error) {
	w, h := PackedMatrixTextureShapeWidthHeight(shape.FlatRows(), shape.Cols())
	return fitTexShape(shape, h, w, maxTextureSize)
}

// TexShape dispatches to PackedTexShape or UnpackedTexShape.
func TexShape(shape tensor.Shape, packed bool, maxTextureSize int) ([2]int, error) {
	if packed {
		return PackedTexShape(shape, maxTextureSize)
	}
	return UnpackedTexShape(shape, maxTextureSize)
}

// fitTexShape keeps the natural [h, w] when it fits and squarifies the texel
// count otherwise.
func fitTexShape(shape tensor.Shape, h, w, maxTextureSize int) ([2]int, error) {
	if maxTextureSize <= 0 || (h <= maxTextureSize && w <= maxTextureSize) {
		return [2]int{h, w}, nil
	}

	size := h * w
	side := int(math.Ceil(math.Sqrt(float64(size))))
	sq := [2]int{(size + side - 1) / side, side}
	if sq[0] > maxTextureSize || sq[1] > maxTextureSize {
		return [2]int{}, fmt.Errorf("texture: %w: shape %v needs %d texels, limit is %dx%d",
			ErrTextureTooLarge, shape, size, maxTextureSize, maxTextureSize)
	}
	return sq, nil
}
