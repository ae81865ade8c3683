package back

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/asm"
	"github.com/slowlang/sysy/compiler/ir"
)

type (
	Compiler struct {
		Alloc Allocator
	}

	funContext struct {
		*ir.Func

		a   Allocator
		out *asm.Func

		frame int
	}
)

func New(a Allocator) *Compiler {
	if a == nil {
		a = &StackAllocator{}
	}

	return &Compiler{Alloc: a}
}

// CompileProgram appends the assembly text of p to b.
// Nothing is appended if any function fails.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, p *ir.Program) (_ []byte, err error) {
	fs, err := c.Compile(ctx, p)
	if err != nil {
		return nil, err
	}

	return asm.AppendFuncs(b, fs...), nil
}

func (c *Compiler) Compile(ctx context.Context, p *ir.Program) (fs []*asm.Func, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "funcs", len(p.Funcs))
	defer tr.Finish("err", &err)

	for _, f := range p.Funcs {
		fn, err := c.CompileFunc(ctx, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		fs = append(fs, fn)
	}

	return fs, nil
}

// CompileFunc generates the listing of a single function.
// On error the partial listing is dropped.
func (c *Compiler) CompileFunc(ctx context.Context, f *ir.Func) (_ *asm.Func, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile func", "name", f.Name, "values", len(f.Values))
	defer tr.Finish("err", &err)

	c.Alloc.Reset()

	err = ir.Verify(f)
	if err != nil {
		return nil, errors.Wrap(err, "verify")
	}

	c.Alloc.Analyze(f)

	g := &funContext{
		Func:  f,
		a:     c.Alloc,
		out:   asm.NewFunc(f.Name),
		frame: c.Alloc.StackSize(),
	}

	if g.frame%16 != 0 {
		return nil, ir.NewInternal(g.frame, "frame size is not 16-byte aligned")
	}

	g.out.Add(asm.Section(".text"))
	g.out.Add(asm.Globl(f.Name))
	g.out.Add(asm.Label(f.Name))

	g.prologue()

	for _, b := range f.Layout {
		for _, id := range f.Blocks[b].Insts {
			err = g.inst(ctx, id)
			if err != nil {
				return nil, errors.Wrap(err, "value %v", id)
			}
		}
	}

	if tr.If("dump_asm") {
		for i, l := range g.out.Lines {
			tr.Printw("asm", "i", i, "line", l.String())
		}
	}

	tr.Printw("compiled", "frame", g.frame, "insts", g.out.Insts())

	return g.out, nil
}

func (g *funContext) prologue() {
	if g.frame == 0 {
		return
	}

	g.addSp(-g.frame)
}

// epilogue restores the stack pointer. It is emitted by every return.
func (g *funContext) epilogue() {
	if g.frame == 0 {
		return
	}

	g.addSp(g.frame)
}

func (g *funContext) addSp(d int) {
	if asm.FitsImm12(d) {
		g.out.Add(asm.Addi{Out: r1(asm.Sp), In: r1(asm.Sp), Imm: int32(d)})
		return
	}

	g.out.Add(asm.Li{Out: r1(asm.T2), Imm: int32(d)})
	g.out.Add(asm.Arith{Op: asm.ADD, Out: r1(asm.Sp), In: r2(asm.Sp, asm.T2)})
}

func r1(r asm.Reg) [1]asm.Reg     { return [1]asm.Reg{r} }
func r2(a, b asm.Reg) [2]asm.Reg { return [2]asm.Reg{a, b} }
