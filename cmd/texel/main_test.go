package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/texel/internal/tensor"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI("version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "texel "+version+"\n", out)
}

func TestUsage(t *testing.T) {
	code, out, _ := runCLI()
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Commands:")

	code, _, errOut := runCLI("train")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown command "train"`)
}

func TestGenPrograms(t *testing.T) {
	cases := []struct {
		args []string
		key  string
	}{
		{[]string{"gen", "pack", "3x1x5"}, "// pack_3x1x5"},
		{[]string{"gen", "unpack", "3,5"}, "// unpack_3x5"},
		{[]string{"gen", "transpose", "3x5", "1,0"}, "fn fetchA("},
		{[]string{"gen", "reshape", "3x5x1", "1x15x1"}, "fn inputCoordsFromReshapedOutCoords("},
	}
	for _, tc := range cases {
		code, out, errOut := runCLI(tc.args...)
		require.Equal(t, 0, code, errOut)
		assert.Contains(t, out, tc.key)
		assert.Contains(t, out, "fn main(")
	}
}

func TestGenWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.wgsl")
	code, out, errOut := runCLI("gen", "-o", path, "pack", "4x4")
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "// pack_4x4")
}

func TestGenErrors(t *testing.T) {
	cases := map[string][]string{
		"no kind":        {"gen"},
		"bad kind":       {"gen", "scatter", "3x5"},
		"bad shape":      {"gen", "pack", "3xq"},
		"negative":       {"gen", "pack", "3x-1"},
		"missing perm":   {"gen", "transpose", "3x5"},
		"bad perm":       {"gen", "transpose", "3x5", "0,0"},
		"rank 2 reshape": {"gen", "reshape", "3x5", "15x1"},
		"extra argument": {"gen", "pack", "3x5", "1,0"},
		"count mismatch": {"gen", "reshape", "1x4x4", "1x15x1"},
		"unknown flag":   {"gen", "-x", "pack", "3"},
	}
	for name, args := range cases {
		code, out, errOut := runCLI(args...)
		assert.Equal(t, 1, code, name)
		assert.Empty(t, out, name)
		assert.NotEmpty(t, errOut, name)
	}
}

func TestParseShape(t *testing.T) {
	s, err := parseShape("2x3x4")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3, 4}, s)

	s, err = parseShape(" 5 ")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5}, s)
}
