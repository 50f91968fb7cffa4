package shader

import (
	"fmt"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

// WorkgroupSize is the number of invocations per workgroup of an assembled
// program. One invocation computes one output texel.
const WorkgroupSize = 64

// maxWorkgroupsPerDimension is the WebGPU default limit.
const maxWorkgroupsPerDimension = 65535

// Binding describes the texture bound to one input variable.
type Binding struct {
	Name   string
	Shape  tensor.Shape
	Packed bool
}

// Dispatch returns the workgroup counts covering texels invocations.
func Dispatch(texels int) (x, y uint32) {
	groups := (texels + WorkgroupSize - 1) / WorkgroupSize
	if groups <= maxWorkgroupsPerDimension {
		return uint32(max(groups, 1)), 1
	}
	rows := (groups + maxWorkgroupsPerDimension - 1) / maxWorkgroupsPerDimension
	return maxWorkgroupsPerDimension, uint32(rows)
}

// Assemble returns the complete WGSL module for p: storage buffers at
// @group(0), the intrinsics for the given bindings, the program body and the
// compute entry point. Binding 0 is the output; input i is binding i+1.
func Assemble(p Program, bindings []Binding) (string, error) {
	if err := checkBindings(p, bindings); err != nil {
		return "", err
	}

	out := p.OutputShape()
	texels := texture.TexelCount(out, p.PackedOutput())
	dx, _ := Dispatch(texels)

	var sb strings.Builder
	sb.WriteString("// ")
	sb.WriteString(p.Key())
	sb.WriteString("\n\n")
	sb.WriteString(structDecls)

	fmt.Fprintf(&sb, "@group(0) @binding(0) var<storage, read_write> texOut: array<%s>;\n",
		texelType(p.PackedOutput()))
	for i, b := range bindings {
		fmt.Fprintf(&sb, "@group(0) @binding(%d) var<storage, read> tex%s: array<%s>;\n",
			i+1, b.Name, texelType(b.Packed))
	}
	sb.WriteString("\nvar<private> outIndex: i32;\n\n")

	sb.WriteString(outputCoordsFunc(out, p.PackedOutput()))
	for _, b := range bindings {
		sb.WriteString(accessorFunc(b))
	}
	sb.WriteString(getChannelFunc)
	sb.WriteString(setOutputFunc(p.PackedOutput()))

	sb.WriteString(p.UserCode())
	sb.WriteString("\n")

	fmt.Fprintf(&sb, `@compute @workgroup_size(%d)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	let index = i32(gid.x + gid.y * %du);
	if (index >= %d) {
		return;
	}
	outIndex = index;
	texelMain();
}
`, WorkgroupSize, dx*WorkgroupSize, texels)
	return sb.String(), nil
}

func checkBindings(p Program, bindings []Binding) error {
	names := p.VariableNames()
	if len(names) != len(bindings) {
		return fmt.Errorf("shader: %s: %w: want %d inputs, got %d",
			p.Key(), ErrBindingMismatch, len(names), len(bindings))
	}
	for i, b := range bindings {
		if b.Name != names[i] {
			return fmt.Errorf("shader: %s: %w: input %d is %q, want %q",
				p.Key(), ErrBindingMismatch, i, b.Name, names[i])
		}
		if b.Packed != p.UsesPackedTextures() {
			return fmt.Errorf("shader: %s: %w: input %q packed=%t",
				p.Key(), ErrBindingMismatch, b.Name, b.Packed)
		}
		if b.Shape.Rank() < 1 || b.Shape.Rank() > tensor.MaxRank {
			return fmt.Errorf("shader: %s: input %q: %w: rank %d",
				p.Key(), b.Name, ErrUnsupportedRank, b.Shape.Rank())
		}
	}
	return nil
}

func texelType(packed bool) string {
	if packed {
		return "vec4<f32>"
	}
	return "f32"
}

const structDecls = `struct ivec5 {
	x: i32,
	y: i32,
	z: i32,
	w: i32,
	u: i32,
}

struct ivec6 {
	x: i32,
	y: i32,
	z: i32,
	w: i32,
	u: i32,
	v: i32,
}

`

const getChannelFunc = `fn getChannel(v: vec4<f32>, sel: vec2<i32>) -> f32 {
	let k = (sel.x % 2) * 2 + sel.y % 2;
	if (k == 0) {
		return v.x;
	}
	if (k == 1) {
		return v.y;
	}
	if (k == 2) {
		return v.z;
	}
	return v.w;
}

`

func setOutputFunc(packed bool) string {
	return fmt.Sprintf("fn setOutput(value: %s) {\n\ttexOut[outIndex] = value;\n}\n\n", texelType(packed))
}

func outputCoordsFunc(shape tensor.Shape, packed bool) string {
	rank := len(shape)
	names := CoordNames(rank)
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn getOutputCoords() -> %s {\n", CoordsType(rank))

	if !packed {
		sb.WriteString(indent(CoordsFromFlatIndex(names, shape, "outIndex"), 1))
		fmt.Fprintf(&sb, "\treturn %s;\n}\n\n", CoordsConstructor(names))
		return sb.String()
	}

	texelsPerRow := max((shape.Cols()+1)/2, 1)
	if rank == 1 {
		sb.WriteString("\treturn outIndex * 2;\n}\n\n")
		return sb.String()
	}
	fmt.Fprintf(&sb, "\tlet texRow = outIndex / %d;\n", texelsPerRow)
	fmt.Fprintf(&sb, "\tlet %s = (outIndex - texRow * %d) * 2;\n", names[rank-1], texelsPerRow)
	sb.WriteString(indent(CoordsFromFlatIndex(names[:rank-1], shape[:rank-1], "texRow * 2"), 1))
	fmt.Fprintf(&sb, "\treturn %s;\n}\n\n", CoordsConstructor(names))
	return sb.String()
}

func accessorFunc(b Binding) string {
	rank := b.Shape.Rank()
	names := CoordNames(rank)
	params := make([]string, rank)
	for i, n := range names {
		params[i] = n + ": i32"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "fn get%s(%s) -> %s {\n", b.Name, strings.Join(params, ", "), texelType(b.Packed))
	if b.Packed {
		texelsPerRow := max((b.Shape.Cols()+1)/2, 1)
		fmt.Fprintf(&sb, "\tlet flatRow = %s;\n", FlatRowExpr(names, b.Shape))
		fmt.Fprintf(&sb, "\treturn tex%s[(flatRow / 2) * %d + %s / 2];\n}\n\n",
			b.Name, texelsPerRow, names[rank-1])
		return sb.String()
	}
	fmt.Fprintf(&sb, "\treturn tex%s[%s];\n}\n\n", b.Name, FlatIndexFromCoords(names, b.Shape))
	return sb.String()
}

// Bindings returns the bindings p expects: one per input variable, packed
// as the program requires, shaped like the texture the program reads.
func Bindings(p Program) []Binding {
	shape := p.OutputShape()
	switch p := p.(type) {
	case *TransposePackedProgram:
		shape = p.srcShape
	case *ReshapePackedProgram:
		shape = p.inputShape
	}
	names := p.VariableNames()
	out := make([]Binding, len(names))
	for i, n := range names {
		out[i] = Binding{Name: n, Shape: shape, Packed: p.UsesPackedTextures()}
	}
	return out
}
