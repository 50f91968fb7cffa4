package engine

import "github.com/born-ml/texel/internal/parallel"

// Config holds the settings that would otherwise be process-wide flags.
type Config struct {
	// MaxTextureSize bounds both texture dimensions, in texels. Zero or
	// negative disables the bound.
	MaxTextureSize int
	// PackedTextures uploads new tensors in the packed 2x2 layout.
	PackedTextures bool
	// LazilyUnpack decodes packed textures on the host when reading,
	// instead of running the unpack program first.
	LazilyUnpack bool
	// Float16Textures stores textures as half floats.
	Float16Textures bool
	// Parallel controls host-side parallelism.
	Parallel parallel.Config
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxTextureSize: 16384,
		PackedTextures: true,
		LazilyUnpack:   true,
		Parallel:       parallel.DefaultConfig(),
	}
}

// Option configures an Engine during creation.
type Option func(*Config)

// WithMaxTextureSize sets the texture dimension bound.
func WithMaxTextureSize(n int) Option {
	return func(c *Config) {
		c.MaxTextureSize = n
	}
}

// WithPackedTextures selects the layout of uploaded tensors.
func WithPackedTextures(enabled bool) Option {
	return func(c *Config) {
		c.PackedTextures = enabled
	}
}

// WithLazyUnpack selects host-side decoding of packed reads.
func WithLazyUnpack(enabled bool) Option {
	return func(c *Config) {
		c.LazilyUnpack = enabled
	}
}

// WithFloat16Textures stores textures as half floats.
func WithFloat16Textures(enabled bool) Option {
	return func(c *Config) {
		c.Float16Textures = enabled
	}
}

// WithParallel sets host-side parallelism.
func WithParallel(cfg parallel.Config) Option {
	return func(c *Config) {
		c.Parallel = cfg
	}
}

// NewConfig applies opts to DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
