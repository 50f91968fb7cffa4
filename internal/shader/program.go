// Package shader generates WGSL compute programs that operate directly on
// packed textures.
//
// Every generator emits only the program body: a texelMain function plus
// helpers, written against a fixed intrinsic surface
//
//	getOutputCoords()          logical coordinates of the current output texel
//	get<Name>(coords...)       accessor per input variable
//	getChannel(texel, sel)     channel of a packed texel for (flat row, col)
//	setOutput(value)           writes the current output texel
//
// which Assemble provides for a concrete set of input bindings. Each program
// also carries a Go kernel (Eval) with the same semantics so that harnesses
// without a GPU can execute it.
package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
)

// Kind identifies a program generator.
type Kind int

// Program kinds.
const (
	KindPack Kind = iota
	KindUnpack
	KindTransposePacked
	KindReshapePacked
)

// String returns the generator name.
func (k Kind) String() string {
	switch k {
	case KindPack:
		return "pack"
	case KindUnpack:
		return "unpack"
	case KindTransposePacked:
		return "transpose_packed"
	case KindReshapePacked:
		return "reshape_packed"
	default:
		return "unknown"
	}
}

// Inputs gives a kernel access to its bound input textures.
type Inputs interface {
	// Value returns the logical element at coords of an unpacked input.
	Value(name string, coords ...int) float32
	// Texel returns the packed texel holding the element at coords.
	Texel(name string, coords ...int) [4]float32
}

// Program is a generated compute program.
type Program interface {
	Kind() Kind
	// Key identifies the program text; equal keys mean equal source.
	Key() string
	OutputShape() tensor.Shape
	VariableNames() []string
	// UsesPackedTextures reports whether the inputs are packed.
	UsesPackedTextures() bool
	// PackedOutput reports whether the output is packed.
	PackedOutput() bool
	// UserCode returns the WGSL program body.
	UserCode() string
	// Eval computes one output texel on the CPU. rc is what getOutputCoords
	// returns for that texel. Unpacked outputs use only the first channel.
	Eval(rc []int, in Inputs) [4]float32
}

// program holds the fields every generator shares.
type program struct {
	kind          Kind
	key           string
	outputShape   tensor.Shape
	variableNames []string
	packedInputs  bool
	packedOutput  bool
	userCode      string
}

func (p *program) Kind() Kind                { return p.kind }
func (p *program) Key() string               { return p.key }
func (p *program) OutputShape() tensor.Shape { return p.outputShape }
func (p *program) VariableNames() []string   { return p.variableNames }
func (p *program) UsesPackedTextures() bool  { return p.packedInputs }
func (p *program) PackedOutput() bool        { return p.packedOutput }
func (p *program) UserCode() string          { return p.userCode }

// shapeKey formats a shape for program keys, e.g. 3x1x5.
func shapeKey(shape []int) string {
	if len(shape) == 0 {
		return "scalar"
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

// Key returns the cache key of the program a generator of kind produces for
// the given shape arguments.
func Key(kind Kind, shapes ...[]int) string {
	parts := make([]string, 0, len(shapes)+1)
	parts = append(parts, kind.String())
	for _, s := range shapes {
		parts = append(parts, shapeKey(s))
	}
	return strings.Join(parts, "_")
}

func checkOutputRank(kind Kind, shape tensor.Shape) error {
	if shape.Rank() < 1 || shape.Rank() > tensor.MaxRank {
		return fmt.Errorf("shader: %s: %w: rank %d (supported 1..%d)",
			kind, ErrUnsupportedRank, shape.Rank(), tensor.MaxRank)
	}
	return shape.Validate()
}

// indent prefixes every non-empty line of src with n tabs.
func indent(src string, n int) string {
	prefix := strings.Repeat("\t", n)
	lines := strings.Split(strings.TrimRight(src, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
