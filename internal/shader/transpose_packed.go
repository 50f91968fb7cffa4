package shader

import (
	"fmt"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
)

// TransposePackedProgram permutes the axes of a packed input A into a packed
// output without unpacking. Output axis i reads source axis perm[i].
type TransposePackedProgram struct {
	program
	srcShape tensor.Shape
	perm     []int
}

// NewTransposePackedProgram generates a packed transpose of srcShape.
// Ranks above 6 fail with ErrUnsupportedRank.
func NewTransposePackedProgram(srcShape tensor.Shape, perm []int) (*TransposePackedProgram, error) {
	rank := srcShape.Rank()
	if rank > tensor.MaxRank {
		return nil, fmt.Errorf("shader: packed transpose of rank %d: %w", rank, ErrUnsupportedRank)
	}
	if err := tensor.ValidatePermutation(perm, rank); err != nil {
		return nil, fmt.Errorf("shader: %w: %v", ErrInvalidPermutation, err)
	}
	outShape := srcShape.Permute(perm)
	if err := checkOutputRank(KindTransposePacked, outShape); err != nil {
		return nil, err
	}

	src := srcShape.Clone()
	p := append([]int(nil), perm...)
	return &TransposePackedProgram{
		program: program{
			kind:          KindTransposePacked,
			key:           Key(KindTransposePacked, src, p),
			outputShape:   outShape,
			variableNames: []string{"A"},
			packedInputs:  true,
			packedOutput:  true,
			userCode:      transposeUserCode(src, outShape, p),
		},
		srcShape: src,
		perm:     p,
	}, nil
}

// Perm returns the axis permutation.
func (p *TransposePackedProgram) Perm() []int { return p.perm }

func transposeUserCode(src, out tensor.Shape, perm []int) string {
	rank := len(out)
	rc := Components("rc", rank)

	// Source axis perm[i] is output axis i.
	switched := make([]string, rank)
	for i := range perm {
		switched[perm[i]] = rc[i]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "fn fetchA(rc: %s) -> f32 {\n", CoordsType(rank))
	fmt.Fprintf(&sb, "\treturn getChannel(getA(%s), vec2<i32>(%s, %s));\n}\n\n",
		strings.Join(switched, ", "), FlatRowExpr(switched, src), switched[rank-1])

	sb.WriteString("fn texelMain() {\n")
	sb.WriteString("\tlet resRC = getOutputCoords();\n")
	sb.WriteString("\tvar result = vec4<f32>(0.0);\n")
	sb.WriteString("\tvar rc = resRC;\n")
	sb.WriteString("\tresult.x = fetchA(rc);\n")
	fmt.Fprintf(&sb, "\t%s = %s + 1;\n", rc[rank-1], rc[rank-1])
	fmt.Fprintf(&sb, "\tif (%s < %d) {\n\t\tresult.y = fetchA(rc);\n\t}\n", rc[rank-1], out[rank-1])

	if rank > 1 {
		row := rank - 2
		sb.WriteString("\trc = resRC;\n")
		fmt.Fprintf(&sb, "\t%s = %s + 1;\n", rc[row], rc[row])
		for i := row; i > 0; i-- {
			fmt.Fprintf(&sb, "\tif (%s == %d) {\n", rc[i], out[i])
			fmt.Fprintf(&sb, "\t\t%s = 0;\n", rc[i])
			fmt.Fprintf(&sb, "\t\t%s = %s + 1;\n", rc[i-1], rc[i-1])
			sb.WriteString("\t}\n")
		}
		fmt.Fprintf(&sb, "\tif (%s < %d) {\n", rc[0], out[0])
		sb.WriteString("\t\tresult.z = fetchA(rc);\n")
		fmt.Fprintf(&sb, "\t\t%s = %s + 1;\n", rc[rank-1], rc[rank-1])
		fmt.Fprintf(&sb, "\t\tif (%s < %d) {\n\t\t\tresult.w = fetchA(rc);\n\t\t}\n", rc[rank-1], out[rank-1])
		sb.WriteString("\t}\n")
	}

	sb.WriteString("\tsetOutput(result);\n}\n")
	return sb.String()
}

func (p *TransposePackedProgram) fetch(rc []int, in Inputs) float32 {
	src := make([]int, len(rc))
	for i, axis := range p.perm {
		src[axis] = rc[i]
	}
	texel := in.Texel("A", src...)
	return Channel(texel, FlatRow(src, p.srcShape), src[len(src)-1])
}

// Eval implements Program.
func (p *TransposePackedProgram) Eval(resRC []int, in Inputs) [4]float32 {
	out := p.outputShape
	rank := len(out)
	last := rank - 1
	var result [4]float32

	rc := append([]int(nil), resRC...)
	result[0] = p.fetch(rc, in)
	rc[last]++
	if rc[last] < out[last] {
		result[1] = p.fetch(rc, in)
	}
	if rank == 1 {
		return result
	}

	copy(rc, resRC)
	rc[rank-2]++
	for i := rank - 2; i > 0; i-- {
		if rc[i] == out[i] {
			rc[i] = 0
			rc[i-1]++
		}
	}
	if rc[0] < out[0] {
		result[2] = p.fetch(rc, in)
		rc[last]++
		if rc[last] < out[last] {
			result[3] = p.fetch(rc, in)
		}
	}
	return result
}
