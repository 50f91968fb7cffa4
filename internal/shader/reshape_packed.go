package shader

import (
	"fmt"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
)

// ReshapePackedProgram recomputes a packed input A under a new
// [batch, rows, cols] shape. Each output element is read from the input
// element with the same row-major flat index.
type ReshapePackedProgram struct {
	program
	inputShape tensor.Shape
}

// NewReshapePackedProgram generates a packed reshape. Both shapes must be
// rank-3 triples holding the same number of elements; callers normalize
// other ranks with tensor.Shape.As3D.
func NewReshapePackedProgram(outputShape, inputShape tensor.Shape) (*ReshapePackedProgram, error) {
	if outputShape.Rank() != 3 || inputShape.Rank() != 3 {
		return nil, fmt.Errorf("shader: packed reshape %v -> %v: %w: shapes must be rank 3",
			inputShape, outputShape, ErrUnsupportedRank)
	}
	if err := outputShape.Validate(); err != nil {
		return nil, err
	}
	if err := inputShape.Validate(); err != nil {
		return nil, err
	}
	if outputShape.NumElements() != inputShape.NumElements() {
		return nil, fmt.Errorf("shader: packed reshape %v -> %v: %w",
			inputShape, outputShape, ErrShapeMismatch)
	}

	out, in := outputShape.Clone(), inputShape.Clone()
	return &ReshapePackedProgram{
		program: program{
			kind:          KindReshapePacked,
			key:           Key(KindReshapePacked, out, in),
			outputShape:   out,
			variableNames: []string{"A"},
			packedInputs:  true,
			packedOutput:  true,
			userCode:      reshapeUserCode(out, in),
		},
		inputShape: in,
	}, nil
}

func reshapeUserCode(out, in tensor.Shape) string {
	var sb strings.Builder

	sb.WriteString("fn inputCoordsFromReshapedOutCoords(index: i32) -> vec3<i32> {\n")
	sb.WriteString(indent(CoordsFromFlatIndex([]string{"r", "c", "d"}, in, "index"), 1))
	sb.WriteString("\treturn vec3<i32>(r, c, d);\n}\n\n")

	sb.WriteString("fn getFlatIndex(coords: vec3<i32>) -> i32 {\n")
	fmt.Fprintf(&sb, "\treturn %s;\n}\n\n",
		FlatIndexFromCoords([]string{"coords.x", "coords.y", "coords.z"}, out))

	sb.WriteString("fn fetchA(rc: vec3<i32>) -> f32 {\n")
	sb.WriteString("\tlet inputRC = inputCoordsFromReshapedOutCoords(getFlatIndex(rc));\n")
	fmt.Fprintf(&sb, "\tlet flatRow = inputRC.x * %d + inputRC.y;\n", in[1])
	sb.WriteString("\treturn getChannel(getA(inputRC.x, inputRC.y, inputRC.z), vec2<i32>(flatRow, inputRC.z));\n}\n\n")

	sb.WriteString("fn texelMain() {\n")
	sb.WriteString("\tlet rc = getOutputCoords();\n")
	sb.WriteString("\tvar result = vec4<f32>(0.0);\n")
	fmt.Fprintf(&sb, "\tlet batches = %d;\n\tlet rows = %d;\n\tlet cols = %d;\n", out[0], out[1], out[2])
	sb.WriteString(`	var thisRC = rc;
	result.x = fetchA(thisRC);
	thisRC.z = thisRC.z + 1;
	if (thisRC.z < cols) {
		result.y = fetchA(thisRC);
	}
	if (rc.y + 1 == rows) {
		thisRC = vec3<i32>(rc.x + 1, 0, rc.z);
	} else {
		thisRC = vec3<i32>(rc.x, rc.y + 1, rc.z);
	}
	if (thisRC.x < batches && thisRC.y < rows) {
		result.z = fetchA(thisRC);
		thisRC.z = thisRC.z + 1;
		if (thisRC.z < cols) {
			result.w = fetchA(thisRC);
		}
	}
	setOutput(result);
}
`)
	return sb.String()
}

func (p *ReshapePackedProgram) fetch(rc []int, in Inputs) float32 {
	src := IndexToCoords(CoordsToIndex(rc, p.outputShape), p.inputShape)
	texel := in.Texel("A", src...)
	return Channel(texel, src[0]*p.inputShape[1]+src[1], src[2])
}

// Eval implements Program.
func (p *ReshapePackedProgram) Eval(rc []int, in Inputs) [4]float32 {
	batches, rows, cols := p.outputShape[0], p.outputShape[1], p.outputShape[2]
	var result [4]float32

	this := []int{rc[0], rc[1], rc[2]}
	result[0] = p.fetch(this, in)
	this[2]++
	if this[2] < cols {
		result[1] = p.fetch(this, in)
	}
	if rc[1]+1 == rows {
		this = []int{rc[0] + 1, 0, rc[2]}
	} else {
		this = []int{rc[0], rc[1] + 1, rc[2]}
	}
	if this[0] < batches && this[1] < rows {
		result[2] = p.fetch(this, in)
		this[2]++
		if this[2] < cols {
			result[3] = p.fetch(this, in)
		}
	}
	return result
}
