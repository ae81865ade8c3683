package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/analyze"
	"github.com/slowlang/sysy/compiler/ast"
	"github.com/slowlang/sysy/compiler/back"
	"github.com/slowlang/sysy/compiler/format"
	"github.com/slowlang/sysy/compiler/front"
	"github.com/slowlang/sysy/compiler/ir"
	"github.com/slowlang/sysy/compiler/parse"
	"github.com/slowlang/sysy/compiler/sim"
)

func CompileFile(ctx context.Context, name string, cfg Config) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, cfg)
}

// Compile parses text and generates the output cfg.Mode asks for.
func Compile(ctx context.Context, name string, text []byte, cfg Config) (obj []byte, err error) {
	u, err := parse.Parse(ctx, name, text)
	if err != nil {
		return nil, errors.Wrap(err, "parse text")
	}

	return Generate(ctx, u, cfg)
}

// Generate turns a parsed unit into AST, IR or assembly text.
// Nothing is returned if any stage fails.
func Generate(ctx context.Context, u *ast.CompUnit, cfg Config) (obj []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "generate", "mode", cfg.Mode, "alloc", cfg.Alloc)
	defer tr.Finish("err", &err)

	if cfg.Mode == ModeAST {
		obj, err = format.Format(ctx, nil, u)
		if err != nil {
			return nil, errors.Wrap(err, "format")
		}

		return obj, nil
	}

	p, err := Lower(ctx, u, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeIR:
		return ir.Format(nil, p), nil
	case ModeAsm:
		c, err := newCompiler(cfg)
		if err != nil {
			return nil, err
		}

		obj, err = c.CompileProgram(ctx, nil, p)
		if err != nil {
			return nil, errors.Wrap(err, "compile")
		}

		return obj, nil
	default:
		return nil, errors.New("unsupported mode: %v", cfg.Mode)
	}
}

// Lower checks u and emits its IR.
func Lower(ctx context.Context, u *ast.CompUnit, cfg Config) (p *ir.Program, err error) {
	err = analyze.Check(ctx, u)
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	p, err = front.Emit(ctx, u)
	if err != nil {
		return nil, errors.Wrap(err, "emit")
	}

	if !cfg.Verify {
		return p, nil
	}

	for _, f := range p.Funcs {
		err = ir.Verify(f)
		if err != nil {
			return nil, errors.Wrap(err, "verify func %v", f.Name)
		}
	}

	return p, nil
}

// Run compiles u and executes its main function in the emulator.
// The result is the full a0 value; processes only see its low 8 bits.
func Run(ctx context.Context, u *ast.CompUnit, cfg Config) (res int32, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run", "alloc", cfg.Alloc)
	defer tr.Finish("err", &err)

	p, err := Lower(ctx, u, cfg)
	if err != nil {
		return 0, err
	}

	c, err := newCompiler(cfg)
	if err != nil {
		return 0, err
	}

	fs, err := c.Compile(ctx, p)
	if err != nil {
		return 0, errors.Wrap(err, "compile")
	}

	for _, f := range fs {
		if f.Name != "main" {
			continue
		}

		res, err = sim.Run(f)
		if err != nil {
			return 0, errors.Wrap(err, "execute")
		}

		tr.Printw("exited", "a0", res, "code", sim.ExitCode(res))

		return res, nil
	}

	return 0, errors.New("no main function")
}

func newCompiler(cfg Config) (*back.Compiler, error) {
	a, err := back.NewAllocator(cfg.Alloc)
	if err != nil {
		return nil, err
	}

	return back.New(a), nil
}
