package shader

import (
	"fmt"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
)

// PackProgram packs an unpacked input A into the 2x2 RGBA layout.
//
// The last two axes of the output shape are the rows and columns being
// packed; leading axes are batches, and the row after the last row of a
// batch is row 0 of the next batch.
type PackProgram struct {
	program
}

// NewPackProgram generates a pack program for outputShape (rank 1..6).
func NewPackProgram(outputShape tensor.Shape) (*PackProgram, error) {
	if err := checkOutputRank(KindPack, outputShape); err != nil {
		return nil, err
	}
	shape := outputShape.Clone()
	return &PackProgram{program{
		kind:          KindPack,
		key:           Key(KindPack, shape),
		outputShape:   shape,
		variableNames: []string{"A"},
		packedInputs:  false,
		packedOutput:  true,
		userCode:      packUserCode(shape),
	}}, nil
}

func packUserCode(shape tensor.Shape) string {
	rank := len(shape)
	var sb strings.Builder
	sb.WriteString("fn texelMain() {\n")
	sb.WriteString("\tlet rc = getOutputCoords();\n")

	if rank == 1 {
		fmt.Fprintf(&sb, "\tif (rc >= %d) {\n", shape[0])
		sb.WriteString("\t\tsetOutput(vec4<f32>(0.0));\n\t\treturn;\n\t}\n")
		sb.WriteString("\tvar result = vec4<f32>(getA(rc), 0.0, 0.0, 0.0);\n")
		fmt.Fprintf(&sb, "\tif (rc + 1 < %d) {\n\t\tresult.y = getA(rc + 1);\n\t}\n", shape[0])
		sb.WriteString("\tsetOutput(result);\n}\n")
		return sb.String()
	}

	rc := Components("rc", rank)
	rcp1 := Components("rcp1", rank)
	row, col := rank-2, rank-1

	fmt.Fprintf(&sb, "\tif (%s) {\n", packOutOfBounds(rc, shape))
	sb.WriteString("\t\tsetOutput(vec4<f32>(0.0));\n\t\treturn;\n\t}\n")

	sb.WriteString("\tvar rcp1 = rc;\n")
	fmt.Fprintf(&sb, "\t%s = %s + 1;\n", rcp1[row], rcp1[row])
	fmt.Fprintf(&sb, "\t%s = %s + 1;\n", rcp1[col], rcp1[col])
	// edge.x: the row below is out of bounds; edge.y: the column to the right.
	fmt.Fprintf(&sb, "\tvar edge = vec2<bool>(%s >= %d, %s >= %d);\n",
		rcp1[row], shape[row], rcp1[col], shape[col])
	// The row after the last one of a batch is row 0 of the next batch.
	for i := 3; i <= rank; i++ {
		inner, outer := rank-i+1, rank-i
		fmt.Fprintf(&sb, "\tif (%s == %d) {\n", rcp1[inner], shape[inner])
		fmt.Fprintf(&sb, "\t\t%s = 0;\n", rcp1[inner])
		fmt.Fprintf(&sb, "\t\t%s = %s + 1;\n", rcp1[outer], rcp1[outer])
		fmt.Fprintf(&sb, "\t\tedge.x = %s >= %d;\n", rcp1[outer], shape[outer])
		sb.WriteString("\t}\n")
	}

	src := packSourceCoords(rc, rcp1)
	fmt.Fprintf(&sb, "\tvar result = vec4<f32>(getA(%s), 0.0, 0.0, 0.0);\n", src[0])
	fmt.Fprintf(&sb, "\tif (!edge.y) {\n\t\tresult.y = getA(%s);\n\t}\n", src[1])
	fmt.Fprintf(&sb, "\tif (!edge.x) {\n\t\tresult.z = getA(%s);\n\t}\n", src[2])
	fmt.Fprintf(&sb, "\tif (!(edge.x || edge.y)) {\n\t\tresult.w = getA(%s);\n\t}\n", src[3])
	sb.WriteString("\tsetOutput(result);\n}\n")
	return sb.String()
}

func packOutOfBounds(rc []string, shape tensor.Shape) string {
	conds := make([]string, len(rc))
	for i := range rc {
		conds[i] = fmt.Sprintf("%s >= %d", rc[i], shape[i])
	}
	return strings.Join(conds, " || ")
}

// packSourceCoords returns the getA argument lists of the four channels.
// Channels 2 and 3 take every axis but the last from rcp1 so that the batch
// carry applies to them; channels 1 and 3 take the last axis from rcp1.
func packSourceCoords(rc, rcp1 []string) [4]string {
	rank := len(rc)
	var out [4]string
	for ch := 0; ch < 4; ch++ {
		args := make([]string, rank)
		for d := 0; d < rank-1; d++ {
			if ch > 1 {
				args[d] = rcp1[d]
			} else {
				args[d] = rc[d]
			}
		}
		if ch%2 == 0 {
			args[rank-1] = rc[rank-1]
		} else {
			args[rank-1] = rcp1[rank-1]
		}
		out[ch] = strings.Join(args, ", ")
	}
	return out
}

// Eval implements Program.
func (p *PackProgram) Eval(rc []int, in Inputs) [4]float32 {
	shape := p.outputShape
	rank := len(shape)
	var out [4]float32

	if rank == 1 {
		if rc[0] >= shape[0] {
			return out
		}
		out[0] = in.Value("A", rc[0])
		if rc[0]+1 < shape[0] {
			out[1] = in.Value("A", rc[0]+1)
		}
		return out
	}

	for i := range shape {
		if rc[i] >= shape[i] {
			return out
		}
	}

	row, col := rank-2, rank-1
	rcp1 := append([]int(nil), rc...)
	rcp1[row]++
	rcp1[col]++
	edgeRow := rcp1[row] >= shape[row]
	edgeCol := rcp1[col] >= shape[col]
	for i := 3; i <= rank; i++ {
		inner, outer := rank-i+1, rank-i
		if rcp1[inner] == shape[inner] {
			rcp1[inner] = 0
			rcp1[outer]++
			edgeRow = rcp1[outer] >= shape[outer]
		}
	}

	below := append([]int(nil), rcp1...)
	below[col] = rc[col]
	right := append([]int(nil), rc...)
	right[col] = rcp1[col]

	out[0] = in.Value("A", rc...)
	if !edgeCol {
		out[1] = in.Value("A", right...)
	}
	if !edgeRow {
		out[2] = in.Value("A", below...)
	}
	if !edgeRow && !edgeCol {
		out[3] = in.Value("A", rcp1...)
	}
	return out
}
