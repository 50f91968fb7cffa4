package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

// testTexture is an input texture in its physical layout.
type testTexture struct {
	shape  tensor.Shape
	packed bool
	data   []float32
}

type testInputs map[string]testTexture

func (in testInputs) Value(name string, coords ...int) float32 {
	t := in[name]
	return t.data[CoordsToIndex(coords, t.shape)]
}

func (in testInputs) Texel(name string, coords ...int) [4]float32 {
	t := in[name]
	perRow := max((t.shape.Cols()+1)/2, 1)
	i := ((FlatRow(coords, t.shape)/2)*perRow + coords[len(coords)-1]/2) * 4
	return [4]float32(t.data[i : i+4])
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

func packValues(t *testing.T, shape tensor.Shape, values []float32) []float32 {
	t.Helper()
	s := shape.As3D()
	packed := make([]float32, texture.TexelCount(shape, true)*4)
	require.NoError(t, texture.EncodeMatrixToPackedRGBA(values, s[0], s[1], s[2], packed))
	return packed
}

func unpackValues(t *testing.T, shape tensor.Shape, packed []float32) []float32 {
	t.Helper()
	s := shape.As3D()
	values := make([]float32, shape.NumElements())
	require.NoError(t, texture.DecodeMatrixFromPackedRGBA(packed, s[0], s[1], s[2], values))
	return values
}

// run evaluates p once per output texel, the way a harness dispatches it.
func run(p Program, in Inputs) []float32 {
	out := p.OutputShape()
	texels := texture.TexelCount(out, p.PackedOutput())
	if !p.PackedOutput() {
		result := make([]float32, texels)
		for i := range result {
			result[i] = p.Eval(OutputCoords(out, false, i), in)[0]
		}
		return result
	}
	result := make([]float32, texels*4)
	for i := 0; i < texels; i++ {
		v := p.Eval(OutputCoords(out, true, i), in)
		copy(result[i*4:], v[:])
	}
	return result
}

// skipIfUnsupported skips when the WGSL validator lacks a feature.
func skipIfUnsupported(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		return
	}
	msg := err.Error()
	for _, s := range []string{"not yet implemented", "not supported", "unsupported", "lowering error"} {
		if strings.Contains(msg, s) {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
	}
}

// referenceTranspose permutes values of shape src: output axis i is source
// axis perm[i].
func referenceTranspose(values []float32, src tensor.Shape, perm []int) []float32 {
	dst := src.Permute(perm)
	out := make([]float32, len(values))
	for i := range out {
		oc := IndexToCoords(i, dst)
		sc := make([]int, len(oc))
		for k, axis := range perm {
			sc[axis] = oc[k]
		}
		out[i] = values[CoordsToIndex(sc, src)]
	}
	return out
}
