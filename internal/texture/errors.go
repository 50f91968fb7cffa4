package texture

import "errors"

// Common errors.
var (
	ErrBufferTooSmall  = errors.New("buffer too small")
	ErrNotDivisible    = errors.New("size is not a multiple of the channel count")
	ErrTextureTooLarge = errors.New("texture exceeds the maximum texture size")
	ErrInvalidRecord   = errors.New("invalid texture record")
	ErrInvalidChannels = errors.New("invalid channel count")
)
