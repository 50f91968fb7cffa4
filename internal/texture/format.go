package texture

import (
	"github.com/gogpu/gputypes"
)

// PhysicalType is the storage format of a texture.
type PhysicalType int

// Physical texture types.
const (
	UnpackedFloat16 PhysicalType = iota
	UnpackedFloat32
	Packed4x1UnsignedByte
	Packed2x2Float32
	Packed2x2Float16
)

// String returns a human-readable name for the physical type.
func (p PhysicalType) String() string {
	switch p {
	case UnpackedFloat16:
		return "unpacked_float16"
	case UnpackedFloat32:
		return "unpacked_float32"
	case Packed4x1UnsignedByte:
		return "packed_4x1_unsigned_byte"
	case Packed2x2Float32:
		return "packed_2x2_float32"
	case Packed2x2Float16:
		return "packed_2x2_float16"
	default:
		return "unknown"
	}
}

// PhysicalTypeFor picks the physical type of a float texture.
func PhysicalTypeFor(packed, float16 bool) PhysicalType {
	switch {
	case packed && float16:
		return Packed2x2Float16
	case packed:
		return Packed2x2Float32
	case float16:
		return UnpackedFloat16
	default:
		return UnpackedFloat32
	}
}

// Channels returns the number of channels per texel.
func (p PhysicalType) Channels() int {
	switch p {
	case UnpackedFloat16, UnpackedFloat32:
		return 1
	default:
		return 4
	}
}

// IsPacked reports whether the type stores a 2x2 block per texel.
func (p PhysicalType) IsPacked() bool {
	return p == Packed2x2Float32 || p == Packed2x2Float16
}

// IsFloat16 reports whether channels are stored as IEEE-754 half floats.
func (p PhysicalType) IsFloat16() bool {
	return p == UnpackedFloat16 || p == Packed2x2Float16
}

// BytesPerTexel returns the storage size of a single texel.
func (p PhysicalType) BytesPerTexel() int {
	switch p {
	case UnpackedFloat16:
		return 2
	case UnpackedFloat32:
		return 4
	case Packed4x1UnsignedByte:
		return 4
	case Packed2x2Float16:
		return 8
	case Packed2x2Float32:
		return 16
	default:
		return 0
	}
}

// Format returns the GPU texture format matching the physical type.
func (p PhysicalType) Format() gputypes.TextureFormat {
	switch p {
	case UnpackedFloat16:
		return gputypes.TextureFormatR16Float
	case UnpackedFloat32:
		return gputypes.TextureFormatR32Float
	case Packed4x1UnsignedByte:
		return gputypes.TextureFormatRGBA8Unorm
	case Packed2x2Float16:
		return gputypes.TextureFormatRGBA16Float
	case Packed2x2Float32:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

// BufferUsage returns the buffer usage flags a harness should request for a
// texture with this usage. Every record may be bound by a program and read
// back, so only the download staging area differs.
func (u Usage) BufferUsage() gputypes.BufferUsage {
	if u == UsageDownload {
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	}
	return gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
}
