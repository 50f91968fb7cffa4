// Package main provides the texel CLI: it prints the WGSL of generated
// layout programs and optionally validates it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/texel/internal/logging"
	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/tensor"
)

const version = "v0.1.0-dev"

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stdout)
		return 0
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "texel %s\n", version)
		return 0
	case "gen":
		if err := runGen(args[1:], stdout, stderr); err != nil {
			if errors.Is(err, errUsage) {
				usage(stderr)
			}
			fmt.Fprintf(stderr, "texel: %v\n", err)
			return 1
		}
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "texel: unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "texel - packed texture layout programs")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                              Show version")
	fmt.Fprintln(w, "  gen [flags] pack <shape>             Print the pack program")
	fmt.Fprintln(w, "  gen [flags] unpack <shape>           Print the unpack program")
	fmt.Fprintln(w, "  gen [flags] transpose <shape> <perm> Print the packed transpose program")
	fmt.Fprintln(w, "  gen [flags] reshape <out> <in>       Print the packed reshape program (rank-3 shapes)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Shapes are written 3x1x5 or 3,1,5; permutations 1,0,2.")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -check    validate the program with naga")
	fmt.Fprintln(w, "  -o file   write the program to file")
	fmt.Fprintln(w, "  -v        log to stderr")
}

func runGen(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	check := fs.Bool("check", false, "validate the program with naga")
	output := fs.String("o", "", "write the program to file")
	verbose := fs.Bool("v", false, "log to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verbose {
		logging.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer logging.SetLogger(nil)
	}

	p, err := buildProgram(fs.Args())
	if err != nil {
		return err
	}
	code, err := shader.Assemble(p, shader.Bindings(p))
	if err != nil {
		return err
	}

	if *check {
		spirv, err := shader.Compile(code)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "%s: ok (%d bytes SPIR-V)\n", p.Key(), len(spirv))
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(code), 0o600)
	}
	_, err = io.WriteString(stdout, code)
	return err
}

func buildProgram(args []string) (shader.Program, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: gen needs a program kind and a shape", errUsage)
	}
	kind := args[0]
	shape, err := parseShape(args[1])
	if err != nil {
		return nil, err
	}

	want := 2
	if kind == "transpose" || kind == "reshape" {
		want = 3
	}
	if len(args) != want {
		return nil, fmt.Errorf("%w: gen %s takes %d arguments, got %d", errUsage, kind, want-1, len(args)-1)
	}

	switch kind {
	case "pack":
		return shader.NewPackProgram(shape)
	case "unpack":
		return shader.NewUnpackProgram(shape)
	case "transpose":
		perm, err := parseInts(args[2], ",")
		if err != nil {
			return nil, fmt.Errorf("permutation %q: %w", args[2], err)
		}
		return shader.NewTransposePackedProgram(shape, perm)
	case "reshape":
		in, err := parseShape(args[2])
		if err != nil {
			return nil, err
		}
		return shader.NewReshapePackedProgram(shape, in)
	default:
		return nil, fmt.Errorf("%w: unknown program kind %q", errUsage, kind)
	}
}

func parseShape(s string) (tensor.Shape, error) {
	sep := "x"
	if strings.Contains(s, ",") {
		sep = ","
	}
	dims, err := parseInts(s, sep)
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", s, err)
	}
	shape := tensor.Shape(dims)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("shape %q: %w", s, err)
	}
	return shape, nil
}

func parseInts(s, sep string) ([]int, error) {
	parts := strings.Split(s, sep)
	out := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
