package texture

import (
	"fmt"

	"github.com/x448/float16"
)

// RoundFloat16 rounds every value in place to the nearest IEEE-754 binary16
// value, which is what a half-float texture stores.
func RoundFloat16(values []float32) {
	for i, v := range values {
		values[i] = float16.Fromfloat32(v).Float32()
	}
}

// EncodeFloat16 converts src into half-float bit patterns.
func EncodeFloat16(src []float32, dst []uint16) error {
	if len(dst) < len(src) {
		return fmt.Errorf("texture: %w: float16 destination length (%d) must be >= %d",
			ErrBufferTooSmall, len(dst), len(src))
	}
	for i, v := range src {
		dst[i] = float16.Fromfloat32(v).Bits()
	}
	return nil
}

// DecodeFloat16 converts half-float bit patterns back to float32.
func DecodeFloat16(src []uint16, dst []float32) error {
	if len(dst) < len(src) {
		return fmt.Errorf("texture: %w: float32 destination length (%d) must be >= %d",
			ErrBufferTooSmall, len(dst), len(src))
	}
	for i, bits := range src {
		dst[i] = float16.Frombits(bits).Float32()
	}
	return nil
}
