package back

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/ir"
)

// # Storage allocation
//
// Instruction selection never decides where a value lives.
// It asks an Allocator: Alloc when a value is produced,
// Locate when it is consumed. Analyze runs once before code
// is emitted so the prologue knows the frame size.
//
// Allocators keep per-function state and are Reset
// before every function.

type (
	Allocator interface {
		// Analyze prepares allocation for f and fixes the frame size.
		Analyze(f *ir.Func)

		// Alloc assigns a location to a freshly produced value.
		// It is called at most once per value.
		Alloc(v ir.Value) (Location, error)

		// Locate returns the location assigned by Alloc.
		Locate(v ir.Value) (Location, error)

		// StackSize is the 16-byte aligned frame size.
		StackSize() int

		Reset()
	}

	// StackAllocator spills every value to its own 4-byte stack slot.
	StackAllocator struct {
		offs []int // value -> offset+1, 0 is not allocated

		next int
		size int
	}
)

const slotSize = 4

// NewAllocator returns the strategy registered under name.
// Empty name means the default "stack".
func NewAllocator(name string) (Allocator, error) {
	switch name {
	case "", "stack":
		return &StackAllocator{}, nil
	case "reg", "regs":
		return NewRegAllocator(), nil
	default:
		return nil, errors.New("unknown allocator: %q", name)
	}
}

func (a *StackAllocator) Analyze(f *ir.Func) {
	n := 0

	f.Insts(func(_ ir.Block, id ir.Value) {
		if ir.HasSlot(f.Values[id]) {
			n++
		}
	})

	a.size = align16(slotSize * n)

	tlog.V("alloc").Printw("stack frame", "func", f.Name, "slots", n, "size", a.size)
}

func (a *StackAllocator) Alloc(v ir.Value) (Location, error) {
	if sliceGet(a.offs, v) != 0 {
		return Location{}, ir.NewInternal(v, "value allocated twice")
	}

	if a.next+slotSize > a.size {
		return Location{}, ir.NewInternal(v, "frame overflow: slot %d of %d bytes", a.next, a.size)
	}

	off := a.next
	a.next += slotSize

	a.offs = sliceSet(a.offs, v, off+1)

	return Stack(off), nil
}

func (a *StackAllocator) Locate(v ir.Value) (Location, error) {
	off := sliceGet(a.offs, v)
	if off == 0 {
		return Location{}, ir.NewInternal(v, "value was never allocated")
	}

	return Stack(off - 1), nil
}

func (a *StackAllocator) StackSize() int {
	return a.size
}

func (a *StackAllocator) Reset() {
	a.offs = a.offs[:0]
	a.next = 0
	a.size = 0
}
