package texture

import "fmt"

// Element is the set of CPU-side element kinds a texture upload accepts.
type Element interface {
	~float32 | ~uint8
}

// UnpackedMatrixTextureShapeWidthHeight returns the [width, height] of an
// unpacked texture holding a rows x columns matrix.
func UnpackedMatrixTextureShapeWidthHeight(rows, columns int) (width, height int) {
	return columns, rows
}

// UnpackedArraySizeFromMatrixSize returns the flat length of an unpacked
// array storing matrixSize elements with the given channel stride.
func UnpackedArraySizeFromMatrixSize(matrixSize, channelsPerTexture int) int {
	return matrixSize * channelsPerTexture
}

// ColorMatrixTextureShapeWidthHeight returns the [width, height] of a
// 4-channel color texture backing an unpacked rows x columns matrix.
func ColorMatrixTextureShapeWidthHeight(rows, columns int) (width, height int) {
	return columns * 4, rows
}

// MatrixSizeFromUnpackedArraySize is the inverse of
// UnpackedArraySizeFromMatrixSize. It fails when unpackedSize is not an exact
// multiple of channelsPerTexture.
func MatrixSizeFromUnpackedArraySize(unpackedSize, channelsPerTexture int) (int, error) {
	if channelsPerTexture <= 0 {
		return 0, fmt.Errorf("texture: %w: %d", ErrInvalidChannels, channelsPerTexture)
	}
	if unpackedSize%channelsPerTexture != 0 {
		return 0, fmt.Errorf("texture: %w: unpackedSize (%d) must be a multiple of %d",
			ErrNotDivisible, unpackedSize, channelsPerTexture)
	}
	return unpackedSize / channelsPerTexture, nil
}

// EncodeMatrixToUnpackedArray scatters matrix into unpackedArray, one element
// per texel, advancing channelsPerTexture slots per element. Channels other
// than the first are left untouched.
func EncodeMatrixToUnpackedArray[T Element](matrix, unpackedArray []T, channelsPerTexture int) error {
	if channelsPerTexture <= 0 {
		return fmt.Errorf("texture: %w: %d", ErrInvalidChannels, channelsPerTexture)
	}
	requiredSize := UnpackedArraySizeFromMatrixSize(len(matrix), channelsPerTexture)
	if len(unpackedArray) < requiredSize {
		return fmt.Errorf("texture: %w: unpackedArray length (%d) must be >= %d",
			ErrBufferTooSmall, len(unpackedArray), requiredSize)
	}

	dst := 0
	for _, v := range matrix {
		unpackedArray[dst] = v
		dst += channelsPerTexture
	}
	return nil
}

// DecodeMatrixFromUnpackedArray gathers the first channel of every texel of
// unpackedArray into matrix.
func DecodeMatrixFromUnpackedArray(unpackedArray, matrix []float32, channelsPerTexture int) error {
	requiredSize, err := MatrixSizeFromUnpackedArraySize(len(unpackedArray), channelsPerTexture)
	if err != nil {
		return err
	}
	if len(matrix) < requiredSize {
		return fmt.Errorf("texture: %w: matrix length (%d) must be >= %d",
			ErrBufferTooSmall, len(matrix), requiredSize)
	}

	dst := 0
	for src := 0; src < len(unpackedArray); src += channelsPerTexture {
		matrix[dst] = unpackedArray[src]
		dst++
	}
	return nil
}

// DecodeMatrixFromUnpackedColorRGBAArray gathers the first channels values of
// every RGBA texel of unpackedArray into matrix, keeping them interleaved.
func DecodeMatrixFromUnpackedColorRGBAArray(unpackedArray, matrix []float32, channels int) error {
	if channels <= 0 || channels > 4 {
		return fmt.Errorf("texture: %w: %d (must be 1..4)", ErrInvalidChannels, channels)
	}
	if len(unpackedArray)%4 != 0 {
		return fmt.Errorf("texture: %w: RGBA array length (%d) must be a multiple of 4",
			ErrNotDivisible, len(unpackedArray))
	}
	requiredSize := len(unpackedArray) * channels / 4
	if len(matrix) < requiredSize {
		return fmt.Errorf("texture: %w: matrix length (%d) must be >= %d",
			ErrBufferTooSmall, len(matrix), requiredSize)
	}

	dst := 0
	for src := 0; src < len(unpackedArray); src += 4 {
		for c := 0; c < channels; c++ {
			matrix[dst] = unpackedArray[src+c]
			dst++
		}
	}
	return nil
}

// PackedMatrixTextureShapeWidthHeight returns the [width, height] in texels of
// a packed texture holding a rows x columns matrix.
func PackedMatrixTextureShapeWidthHeight(rows, columns int) (width, height int) {
	return (columns + 1) / 2, (rows + 1) / 2
}

// PackedRGBAArraySizeFromMatrixShape returns the flat float count of a packed
// RGBA array holding a rows x columns matrix.
func PackedRGBAArraySizeFromMatrixShape(rows, columns int) int {
	w, h := PackedMatrixTextureShapeWidthHeight(rows, columns)
	return w * h * 4
}

/*
EncodeMatrixToPackedRGBA lays out a tensor of shape [2, 3, 5] (indices are
[batch, row, col]) like this:

	000|001   002|003   004|xxx
	-------   -------   -------
	010|011   012|013   014|xxx

	020|021   022|023   024|xxx
	-------   -------   -------
	100|101   102|103   104|xxx

	110|111   112|113   114|xxx
	-------   -------   -------
	120|121   122|123   124|xxx

Each texel holds a 2x2 block of adjacent rows and columns as R G / B A. The
row after the last row of a batch is the first row of the next batch; xxx
positions are written as 0.
*/
func EncodeMatrixToPackedRGBA(matrix []float32, batches, rows, columns int, packedRGBA []float32) error {
	srcHeightInRows := batches * rows
	if required := srcHeightInRows * columns; len(matrix) < required {
		return fmt.Errorf("texture: %w: matrix length (%d) must be >= %d",
			ErrBufferTooSmall, len(matrix), required)
	}
	requiredSize := PackedRGBAArraySizeFromMatrixShape(srcHeightInRows, columns)
	if len(packedRGBA) < requiredSize {
		return fmt.Errorf("texture: %w: packedRGBA length (%d) must be >= %d",
			ErrBufferTooSmall, len(packedRGBA), requiredSize)
	}

	srcHeightInFullBlocks := srcHeightInRows / 2
	widthInFullBlocks := columns / 2
	oddWidth := columns%2 == 1
	oddHeight := srcHeightInRows%2 == 1

	srcRow1 := 0
	srcRow2 := columns
	dst := 0
	for j := 0; j < srcHeightInFullBlocks; j++ {
		for i := 0; i < widthInFullBlocks; i++ {
			packedRGBA[dst] = matrix[srcRow1]
			packedRGBA[dst+1] = matrix[srcRow1+1]
			packedRGBA[dst+2] = matrix[srcRow2]
			packedRGBA[dst+3] = matrix[srcRow2+1]
			srcRow1 += 2
			srcRow2 += 2
			dst += 4
		}
		if oddWidth {
			packedRGBA[dst] = matrix[srcRow1]
			packedRGBA[dst+1] = 0
			packedRGBA[dst+2] = matrix[srcRow2]
			packedRGBA[dst+3] = 0
			srcRow1++
			srcRow2++
			dst += 4
		}
		srcRow1 = srcRow2
		srcRow2 += columns
	}
	if oddHeight {
		for i := 0; i < widthInFullBlocks; i++ {
			packedRGBA[dst] = matrix[srcRow1]
			packedRGBA[dst+1] = matrix[srcRow1+1]
			packedRGBA[dst+2] = 0
			packedRGBA[dst+3] = 0
			srcRow1 += 2
			dst += 4
		}
		if oddWidth {
			packedRGBA[dst] = matrix[srcRow1]
			packedRGBA[dst+1] = 0
			packedRGBA[dst+2] = 0
			packedRGBA[dst+3] = 0
		}
	}
	return nil
}

// DecodeMatrixFromPackedRGBA is the inverse of EncodeMatrixToPackedRGBA. Padding
// channels are skipped, never read into matrix.
func DecodeMatrixFromPackedRGBA(packedRGBA []float32, batches, rows, columns int, matrix []float32) error {
	dstHeightInRows := batches * rows
	if requiredSize := dstHeightInRows * columns; len(matrix) < requiredSize {
		return fmt.Errorf("texture: %w: matrix length (%d) must be >= %d",
			ErrBufferTooSmall, len(matrix), requiredSize)
	}
	if required := PackedRGBAArraySizeFromMatrixShape(dstHeightInRows, columns); len(packedRGBA) < required {
		return fmt.Errorf("texture: %w: packedRGBA length (%d) must be >= %d",
			ErrBufferTooSmall, len(packedRGBA), required)
	}

	srcWidthInFullBlocks := columns / 2
	srcHeightInFullBlocks := dstHeightInRows / 2
	oddWidth := columns%2 == 1
	oddHeight := dstHeightInRows%2 == 1

	dstRow1 := 0
	dstRow2 := columns
	src := 0
	for j := 0; j < srcHeightInFullBlocks; j++ {
		for i := 0; i < srcWidthInFullBlocks; i++ {
			matrix[dstRow1] = packedRGBA[src]
			matrix[dstRow1+1] = packedRGBA[src+1]
			matrix[dstRow2] = packedRGBA[src+2]
			matrix[dstRow2+1] = packedRGBA[src+3]
			dstRow1 += 2
			dstRow2 += 2
			src += 4
		}
		if oddWidth {
			matrix[dstRow1] = packedRGBA[src]
			matrix[dstRow2] = packedRGBA[src+2]
			dstRow1++
			dstRow2++
			src += 4
		}
		dstRow1 += columns
		dstRow2 = dstRow1 + columns
	}
	if oddHeight {
		for i := 0; i < srcWidthInFullBlocks; i++ {
			matrix[dstRow1] = packedRGBA[src]
			matrix[dstRow1+1] = packedRGBA[src+1]
			dstRow1 += 2
			src += 4
		}
		if oddWidth {
			matrix[dstRow1] = packedRGBA[src]
		}
	}
	return nil
}
