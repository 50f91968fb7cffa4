package shader

import (
	"fmt"
	"strings"

	"github.com/born-ml/texel/internal/tensor"
)

// UnpackProgram converts a packed input A back to one element per texel.
type UnpackProgram struct {
	program
}

// NewUnpackProgram generates the inverse of the pack program for shape.
func NewUnpackProgram(shape tensor.Shape) (*UnpackProgram, error) {
	if err := checkOutputRank(KindUnpack, shape); err != nil {
		return nil, err
	}
	s := shape.Clone()
	return &UnpackProgram{program{
		kind:          KindUnpack,
		key:           Key(KindUnpack, s),
		outputShape:   s,
		variableNames: []string{"A"},
		packedInputs:  true,
		packedOutput:  false,
		userCode:      unpackUserCode(s),
	}}, nil
}

func unpackUserCode(shape tensor.Shape) string {
	rank := len(shape)
	rc := Components("rc", rank)
	var sb strings.Builder
	sb.WriteString("fn texelMain() {\n")
	sb.WriteString("\tlet rc = getOutputCoords();\n")
	fmt.Fprintf(&sb, "\tsetOutput(getChannel(getA(%s), vec2<i32>(%s, %s)));\n}\n",
		strings.Join(rc, ", "), FlatRowExpr(rc, shape), rc[rank-1])
	return sb.String()
}

// Eval implements Program.
func (p *UnpackProgram) Eval(rc []int, in Inputs) [4]float32 {
	texel := in.Texel("A", rc...)
	return [4]float32{Channel(texel, FlatRow(rc, p.outputShape), rc[len(rc)-1])}
}
