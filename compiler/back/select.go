package back

import (
	"context"
	"fmt"
	"strconv"

	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/asm"
	"github.com/slowlang/sysy/compiler/ir"
)

// Scratch registers live only inside one instruction's code.
// T2 is reserved for addresses that don't fit an immediate offset.
const (
	scratchL = asm.T0
	scratchR = asm.T1
	scratchA = asm.T2
)

func (g *funContext) inst(ctx context.Context, id ir.Value) (err error) {
	x := g.Values[id]

	if tr := tlog.SpanFromContext(ctx); tr.If("dump_select") {
		tr.Printw("select", "id", id, "typ", tlog.NextAsType, x, "val", x)
	}

	switch x := x.(type) {
	case ir.Alloc:
		l, err := g.a.Alloc(id)
		if err != nil {
			return err
		}

		g.out.Add(asm.Comment(fmt.Sprintf("alloc %s -> %v", g.comment(id), l)))
	case ir.Load:
		src, err := g.a.Locate(x.Addr)
		if err != nil {
			return err
		}

		r := g.load(src, scratchL, "")

		return g.result(id, func(rd asm.Reg) {
			if rd != r {
				g.out.AddC(asm.Mv{Out: r1(rd), In: r1(r)}, g.comment(x.Addr))
			}
		})
	case ir.Store:
		return g.store(id, x)
	case ir.Binary:
		return g.binary(id, x)
	case ir.Return:
		return g.ret(x)
	default:
		return ir.NewInternal(id, "unhandled instruction %T", x)
	}

	return nil
}

func (g *funContext) store(id ir.Value, x ir.Store) error {
	val, err := g.where(x.Val)
	if err != nil {
		return err
	}

	dst, err := g.a.Locate(x.Addr)
	if err != nil {
		return err
	}

	c := g.comment(x.Addr)

	switch dst.Kind {
	case InReg:
		switch val.Kind {
		case InReg:
			if val.Reg != dst.Reg {
				g.out.AddC(asm.Mv{Out: r1(dst.Reg), In: r1(val.Reg)}, c)
			}
		case Imm:
			g.out.AddC(asm.Li{Out: r1(dst.Reg), Imm: val.Imm}, c)
		case OnStack:
			g.lw(dst.Reg, val.Off, c)
		}
	case OnStack:
		r := g.load(val, scratchL, "")

		g.sw(r, dst.Off, c)
	default:
		return ir.NewInternal(id, "store target %v has no address: %v", x.Addr, dst)
	}

	return nil
}

func (g *funContext) binary(id ir.Value, x ir.Binary) error {
	switch {
	case x.Op == ir.Sub && g.IsZero(x.L):
		// 0 - x is negation: sub from the zero register.
		// rd is a scratch or allocated register, never zero itself.
		rv, err := g.where(x.R)
		if err != nil {
			return err
		}

		r := g.load(rv, scratchR, "")

		return g.result(id, func(rd asm.Reg) {
			g.out.AddC(asm.Arith{Op: asm.SUB, Out: r1(rd), In: r2(asm.Zero, r)}, g.comment(id))
		})
	case (x.Op == ir.Eq || x.Op == ir.NotEq) && g.IsZero(x.R):
		lv, err := g.where(x.L)
		if err != nil {
			return err
		}

		l := g.load(lv, scratchL, "")

		op := asm.SEQZ
		if x.Op == ir.NotEq {
			op = asm.SNEZ
		}

		return g.result(id, func(rd asm.Reg) {
			g.out.AddC(asm.Set{Op: op, Out: r1(rd), In: r1(l)}, g.comment(id))
		})
	}

	lv, err := g.where(x.L)
	if err != nil {
		return err
	}

	rv, err := g.where(x.R)
	if err != nil {
		return err
	}

	l := g.load(lv, scratchL, "")
	r := g.load(rv, scratchR, "")

	var op, post string

	switch x.Op {
	case ir.Add:
		op = asm.ADD
	case ir.Sub:
		op = asm.SUB
	case ir.Mul:
		op = asm.MUL
	case ir.Div:
		op = asm.DIV
	case ir.Mod:
		op = asm.REM
	case ir.Lt:
		op = asm.SLT
	case ir.Gt:
		op = asm.SGT
	case ir.Le:
		op, post = asm.SGT, asm.SEQZ
	case ir.Ge:
		op, post = asm.SLT, asm.SEQZ
	case ir.Eq:
		op, post = asm.SUB, asm.SEQZ
	case ir.NotEq:
		op, post = asm.SUB, asm.SNEZ
	case ir.And:
		op = asm.AND
	case ir.Or:
		op = asm.OR
	default:
		return ir.NewInternal(id, "unhandled binary op %v", x.Op)
	}

	return g.result(id, func(rd asm.Reg) {
		if post == "" {
			g.out.AddC(asm.Arith{Op: op, Out: r1(rd), In: r2(l, r)}, g.comment(id))
			return
		}

		g.out.Add(asm.Arith{Op: op, Out: r1(rd), In: r2(l, r)})
		g.out.AddC(asm.Set{Op: post, Out: r1(rd), In: r1(rd)}, g.comment(id))
	})
}

func (g *funContext) ret(x ir.Return) error {
	var l Location

	if x.Val != ir.Nil {
		var err error

		l, err = g.where(x.Val)
		if err != nil {
			return err
		}
	}

	g.epilogue()

	if x.Val != ir.Nil {
		c := g.comment(x.Val)

		switch l.Kind {
		case InReg:
			if l.Reg != asm.A0 {
				g.out.AddC(asm.Mv{Out: r1(asm.A0), In: r1(l.Reg)}, c)
			}
		case Imm:
			g.out.AddC(asm.Li{Out: r1(asm.A0), Imm: l.Imm}, c)
		case OnStack:
			// sp is already restored, the slot is frame bytes below it.
			g.lw(asm.A0, l.Off-g.frame, c)
		}
	}

	g.out.Add(asm.Ret{})

	return nil
}

// where returns the location of an operand.
// Literal 0 is the zero register and other literals are immediates;
// neither ever takes a slot.
func (g *funContext) where(v ir.Value) (Location, error) {
	if x, ok := g.Values[v].(ir.Integer); ok {
		if x == 0 {
			return Register(asm.Zero), nil
		}

		return Immediate(int32(x)), nil
	}

	return g.a.Locate(v)
}

// load brings l into a register, using scratch if it is not in one already.
func (g *funContext) load(l Location, scratch asm.Reg, c string) asm.Reg {
	switch l.Kind {
	case InReg:
		return l.Reg
	case Imm:
		g.out.AddC(asm.Li{Out: r1(scratch), Imm: l.Imm}, c)
	case OnStack:
		g.lw(scratch, l.Off, c)
	}

	return scratch
}

// result commits the value produced by emit to the location the allocator gives id.
func (g *funContext) result(id ir.Value, emit func(rd asm.Reg)) error {
	l, err := g.a.Alloc(id)
	if err != nil {
		return err
	}

	switch l.Kind {
	case InReg:
		emit(l.Reg)
	case OnStack:
		emit(scratchL)
		g.sw(scratchL, l.Off, g.comment(id))
	default:
		return ir.NewInternal(id, "result can't be kept in %v", l)
	}

	return nil
}

func (g *funContext) lw(rd asm.Reg, off int, c string) {
	if asm.FitsImm12(off) {
		g.out.AddC(asm.Lw{Out: r1(rd), Base: asm.Sp, Off: int32(off)}, c)
		return
	}

	g.out.Add(asm.Li{Out: r1(scratchA), Imm: int32(off)})
	g.out.Add(asm.Arith{Op: asm.ADD, Out: r1(scratchA), In: r2(asm.Sp, scratchA)})
	g.out.AddC(asm.Lw{Out: r1(rd), Base: scratchA}, c)
}

func (g *funContext) sw(rs asm.Reg, off int, c string) {
	if asm.FitsImm12(off) {
		g.out.AddC(asm.Sw{In: r1(rs), Base: asm.Sp, Off: int32(off)}, c)
		return
	}

	g.out.Add(asm.Li{Out: r1(scratchA), Imm: int32(off)})
	g.out.Add(asm.Arith{Op: asm.ADD, Out: r1(scratchA), In: r2(asm.Sp, scratchA)})
	g.out.AddC(asm.Sw{In: r1(rs), Base: scratchA}, c)
}

// comment names a value the way the IR text does.
func (g *funContext) comment(v ir.Value) string {
	if x, ok := g.Values[v].(ir.Integer); ok {
		return strconv.Itoa(int(x))
	}

	if n := g.NameOf(v); n != "" {
		return "@" + n
	}

	return fmt.Sprintf("%%v%d", v)
}
