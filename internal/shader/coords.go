package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
)

// coordNames are the canonical per-axis variable names, outermost axis first.
var coordNames = [tensor.MaxRank]string{"r", "c", "d", "e", "f", "g"}

// componentNames are the accessors of the coordinate types returned by
// CoordsType.
var componentNames = [tensor.MaxRank]string{"x", "y", "z", "w", "u", "v"}

// CoordNames returns the canonical variable names for a rank-r coordinate.
func CoordNames(rank int) []string {
	checkRank(rank)
	names := make([]string, rank)
	copy(names, coordNames[:rank])
	return names
}

// Components returns the per-axis accessors of a coordinate value named name.
// A rank-1 coordinate is a plain i32, so its only accessor is name itself.
func Components(name string, rank int) []string {
	checkRank(rank)
	if rank == 1 {
		return []string{name}
	}
	out := make([]string, rank)
	for i := range out {
		out[i] = name + "." + componentNames[i]
	}
	return out
}

// CoordsType returns the WGSL type holding a rank-r coordinate. Ranks 5 and 6
// use the ivec5/ivec6 structs declared by the program header.
func CoordsType(rank int) string {
	checkRank(rank)
	switch rank {
	case 1:
		return "i32"
	case 2, 3, 4:
		return fmt.Sprintf("vec%d<i32>", rank)
	default:
		return fmt.Sprintf("ivec%d", rank)
	}
}

// CoordsConstructor returns a WGSL expression building a rank-r coordinate
// from per-axis expressions.
func CoordsConstructor(values []string) string {
	if len(values) == 1 {
		return values[0]
	}
	return CoordsType(len(values)) + "(" + strings.Join(values, ", ") + ")"
}

// CoordsFromFlatIndex returns WGSL statements declaring one let binding per
// name, holding the row-major coordinates of the flat index expression over
// shape. The statements use a scratch var named idx.
func CoordsFromFlatIndex(names []string, shape tensor.Shape, index string) string {
	strides := shape.ComputeStrides()
	var sb strings.Builder
	fmt.Fprintf(&sb, "var idx = %s;\n", index)
	for i, name := range names {
		if i == len(names)-1 {
			fmt.Fprintf(&sb, "let %s = idx;\n", name)
			break
		}
		stride := max(strides[i], 1)
		fmt.Fprintf(&sb, "let %s = idx / %d;\n", name, stride)
		fmt.Fprintf(&sb, "idx = idx - %s * %d;\n", name, stride)
	}
	return sb.String()
}

// FlatIndexFromCoords returns the WGSL dot product of coords with the
// row-major strides of shape.
func FlatIndexFromCoords(coords []string, shape tensor.Shape) string {
	if len(coords) == 0 {
		return "0"
	}
	strides := shape.ComputeStrides()
	terms := make([]string, len(strides))
	for i, s := range strides {
		terms[i] = strconv.Itoa(s)
	}
	return Dotify(coords, terms)
}

// Dotify returns the WGSL expression a[0] * b[0] + a[1] * b[1] + ...,
// dropping multiplications by 1.
func Dotify(a, b []string) string {
	if len(a) != len(b) {
		panic(fmt.Sprintf("shader: dotify length mismatch: %d vs %d", len(a), len(b)))
	}
	terms := make([]string, len(a))
	for i := range a {
		if b[i] == "1" {
			terms[i] = a[i]
			continue
		}
		terms[i] = a[i] + " * " + b[i]
	}
	return strings.Join(terms, " + ")
}

// FlatRowExpr returns the WGSL expression of the flattened row of the
// element at coords in a texture of the given shape: the row-major index over
// every axis but the last.
func FlatRowExpr(coords []string, shape tensor.Shape) string {
	rank := len(shape)
	if rank < 2 {
		return "0"
	}
	return FlatIndexFromCoords(coords[:rank-1], shape[:rank-1])
}

// IndexToCoords returns the row-major coordinates of a flat index over shape.
func IndexToCoords(index int, shape tensor.Shape) []int {
	strides := shape.ComputeStrides()
	coords := make([]int, len(shape))
	for i, s := range strides {
		if i == len(strides)-1 {
			coords[i] = index
			break
		}
		s = max(s, 1)
		coords[i] = index / s
		index -= coords[i] * s
	}
	return coords
}

// CoordsToIndex returns the row-major flat index of coords over shape.
func CoordsToIndex(coords []int, shape tensor.Shape) int {
	strides := shape.ComputeStrides()
	index := 0
	for i, c := range coords {
		index += c * strides[i]
	}
	return index
}

// FlatRow returns the flattened row of the element at coords in a texture
// of the given shape.
func FlatRow(coords []int, shape tensor.Shape) int {
	rank := len(shape)
	if rank < 2 {
		return 0
	}
	return CoordsToIndex(coords[:rank-1], shape[:rank-1])
}

// OutputCoords returns the logical coordinates a program invocation sees
// from getOutputCoords for the given output texel. Packed outputs report the
// top-left element of the texel's 2x2 block.
func OutputCoords(shape tensor.Shape, packed bool, texel int) []int {
	if !packed {
		return IndexToCoords(texel, shape)
	}
	rank := len(shape)
	texelsPerRow := max((shape.Cols()+1)/2, 1)
	texRow := texel / texelsPerRow
	col := (texel - texRow*texelsPerRow) * 2
	if rank == 1 {
		return []int{col}
	}
	coords := IndexToCoords(texRow*2, shape[:rank-1])
	return append(coords, col)
}

// Channel selects the value of a packed texel holding the element at
// (flatRow, col).
func Channel(texel [4]float32, flatRow, col int) float32 {
	return texel[(flatRow%2)*2+col%2]
}

func checkRank(rank int) {
	if rank < 1 || rank > tensor.MaxRank {
		panic(fmt.Sprintf("shader: rank %d out of range [1, %d]", rank, tensor.MaxRank))
	}
}
