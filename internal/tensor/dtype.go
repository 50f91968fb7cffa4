// Package tensor provides the shape and element-type descriptors shared by the
// texture codec, the program generators and the execution harnesses.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
//
// Every kind is stored in textures as float32 channels; Bool is uint8-backed
// on the CPU side. Complex64 tensors never own a texture: they are views over
// two Float32 component records.
const (
	Float32 DataType = iota
	Int32
	Bool
	Complex64
)

// Size returns the byte size of one element on the CPU side.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Bool:
		return 1
	case Complex64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	case Bool:
		return "bool"
	case Complex64:
		return "complex64"
	default:
		return "unknown"
	}
}
