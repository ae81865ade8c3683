package back

import (
	"nikand.dev/go/heap"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/asm"
	"github.com/slowlang/sysy/compiler/ir"
	"github.com/slowlang/sysy/compiler/set"
)

type (
	// RegAllocator keeps the most used values in registers
	// for the whole function and spills the rest to the stack.
	//
	// There is no live range analysis: a register, once given,
	// is never reused, so the pool only covers the values that
	// profit most from it.
	RegAllocator struct {
		Pool []asm.Reg

		reg  []asm.Reg // value -> assigned register, 0 is none
		offs []int     // value -> offset+1
		done set.Bits[ir.Value]

		next int
		size int
	}

	candidate struct {
		v    ir.Value
		uses int
	}
)

// DefaultPool are caller-saved registers not used as scratch or for the result.
var DefaultPool = []asm.Reg{
	asm.A1, asm.A2, asm.A3, asm.A4, asm.A5, asm.A6, asm.A7,
	asm.T3, asm.T4, asm.T5, asm.T6,
}

func NewRegAllocator() *RegAllocator {
	return &RegAllocator{
		Pool: DefaultPool,
	}
}

func (a *RegAllocator) Analyze(f *ir.Func) {
	var uses []int

	f.Insts(func(_ ir.Block, id ir.Value) {
		x := f.Values[id]

		if in, ok := x.(ir.Iner); ok {
			for _, op := range in.In() {
				uses = sliceSet(uses, op, sliceGet(uses, op)+1)
			}
		}
	})

	q := heap.Heap[candidate]{Less: candidateLess}

	f.Insts(func(_ ir.Block, id ir.Value) {
		switch f.Values[id].(type) {
		case ir.Alloc, ir.Load, ir.Binary:
			q.Push(candidate{v: id, uses: sliceGet(uses, id)})
		}
	})

	var inRegs set.Bits[ir.Value]

	for _, r := range a.Pool {
		if q.Len() == 0 {
			break
		}

		c := q.Pop()

		a.reg = sliceSet(a.reg, c.v, r)
		inRegs.Set(c.v)

		tlog.V("alloc").Printw("register", "func", f.Name, "value", c.v, "uses", c.uses, "reg", r)
	}

	a.size = align16(slotSize * q.Len())

	tlog.V("alloc").Printw("reg frame", "func", f.Name, "in_regs", inRegs, "spilled", q.Len(), "size", a.size)
}

func (a *RegAllocator) Alloc(v ir.Value) (Location, error) {
	if a.done.IsSet(v) {
		return Location{}, ir.NewInternal(v, "value allocated twice")
	}

	if r := sliceGet(a.reg, v); r != asm.Zero {
		a.done.Set(v)

		return Register(r), nil
	}

	if a.next+slotSize > a.size {
		return Location{}, ir.NewInternal(v, "frame overflow: slot %d of %d bytes", a.next, a.size)
	}

	off := a.next
	a.next += slotSize

	a.offs = sliceSet(a.offs, v, off+1)
	a.done.Set(v)

	return Stack(off), nil
}

func (a *RegAllocator) Locate(v ir.Value) (Location, error) {
	if !a.done.IsSet(v) {
		return Location{}, ir.NewInternal(v, "value was never allocated")
	}

	if r := sliceGet(a.reg, v); r != asm.Zero {
		return Register(r), nil
	}

	return Stack(sliceGet(a.offs, v) - 1), nil
}

func (a *RegAllocator) StackSize() int {
	return a.size
}

func (a *RegAllocator) Reset() {
	a.reg = a.reg[:0]
	a.offs = a.offs[:0]
	a.done.Reset()
	a.next = 0
	a.size = 0
}

// candidateLess orders the most used values first, earlier values break ties.
func candidateLess(d []candidate, i, j int) bool {
	if d[i].uses != d[j].uses {
		return d[i].uses > d[j].uses
	}

	return d[i].v < d[j].v
}
