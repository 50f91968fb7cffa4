package shader

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gogpu/naga"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/texel/internal/logging"
)

// Compile validates a WGSL module by compiling it to SPIR-V.
func Compile(source string) ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return spirv, nil
}

// CompileProgram assembles p for bindings and compiles the result.
func CompileProgram(p Program, bindings []Binding) ([]byte, error) {
	src, err := Assemble(p, bindings)
	if err != nil {
		return nil, err
	}
	spirv, err := Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: %s: %w", p.Key(), err)
	}
	logging.Logger().Debug("program compiled", "key", p.Key(), "spirvBytes", len(spirv))
	return spirv, nil
}

// CompileAll compiles programs concurrently, stopping at the first error.
// Every program is bound as Bindings reports. The result is indexed like
// programs.
func CompileAll(ctx context.Context, programs []Program) ([][]byte, error) {
	out := make([][]byte, len(programs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range programs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			spirv, err := CompileProgram(p, Bindings(p))
			if err != nil {
				return err
			}
			out[i] = spirv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
