package tensor

import "fmt"

// MaxRank is the highest rank the packed program generators accept.
const MaxRank = 6

// Shape represents the logical dimensions of a tensor.
// Flattening is always row-major: the last dimension varies fastest.
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is non-negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Rows returns the second-to-last dimension, or 1 for rank < 2.
func (s Shape) Rows() int {
	if len(s) < 2 {
		return 1
	}
	return s[len(s)-2]
}

// Cols returns the last dimension, or 1 for a scalar.
func (s Shape) Cols() int {
	if len(s) == 0 {
		return 1
	}
	return s[len(s)-1]
}

// BatchDim returns the product of every dimension before the last two.
func (s Shape) BatchDim() int {
	if len(s) <= 2 {
		return 1
	}
	return Shape(s[:len(s)-2]).NumElements()
}

// FlatRows returns the number of rows once every leading dimension is
// folded into the row axis (batch * rows).
func (s Shape) FlatRows() int {
	return s.BatchDim() * s.Rows()
}

// As3D folds the shape into the canonical [batch, rows, cols] triple.
//
// Examples:
//
//	Shape{}              → [1, 1, 1]
//	Shape{15}            → [1, 1, 15]
//	Shape{5, 3}          → [1, 5, 3]
//	Shape{1, 1, 1, 3, 1, 5} → [3, 1, 5]
func (s Shape) As3D() Shape {
	return Shape{s.BatchDim(), s.Rows(), s.Cols()}
}

// Permute returns the shape whose axis i is s[perm[i]].
func (s Shape) Permute(perm []int) Shape {
	out := make(Shape, len(perm))
	for i, axis := range perm {
		out[i] = s[axis]
	}
	return out
}

// ValidatePermutation reports whether perm is a bijection on [0, rank).
func ValidatePermutation(perm []int, rank int) error {
	if len(perm) != rank {
		return fmt.Errorf("permutation length %d does not match rank %d", len(perm), rank)
	}
	seen := make([]bool, rank)
	for i, axis := range perm {
		if axis < 0 || axis >= rank {
			return fmt.Errorf("permutation[%d] = %d out of range [0, %d)", i, axis, rank)
		}
		if seen[axis] {
			return fmt.Errorf("duplicate axis %d in permutation", axis)
		}
		seen[axis] = true
	}
	return nil
}
