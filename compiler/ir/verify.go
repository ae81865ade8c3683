package ir

import (
	"github.com/slowlang/sysy/compiler/set"
)

// Verify checks the structural invariants of f:
// operands only refer to earlier values that are already placed,
// every block ends with exactly one terminator,
// stores and loads address Alloc values,
// and every instruction is placed at most once.
//
// Violations are reported as InternalError.
func Verify(f *Func) error {
	placed := set.MakeBits(Value(0))

	if len(f.Names) != len(f.Values) {
		return NewInternal(f.Name, "names table is out of sync: %d names for %d values", len(f.Names), len(f.Values))
	}

	for _, b := range f.Layout {
		if b < 0 || int(b) >= len(f.Blocks) {
			return NewInternal(b, "layout refers to unknown block")
		}

		bb := &f.Blocks[b]

		if len(bb.Insts) == 0 {
			return NewInternal(blockName(bb, b), "empty block")
		}

		for i, id := range bb.Insts {
			if id < 0 || int(id) >= len(f.Values) {
				return NewInternal(id, "block %v refers to unknown value", blockName(bb, b))
			}

			if placed.IsSet(id) {
				return NewInternal(id, "value placed twice")
			}

			x := f.Values[id]

			switch x := x.(type) {
			case Integer:
				return NewInternal(id, "integer constant placed into block")
			case Alloc:
			case Load:
				if _, ok := f.valueAt(x.Addr).(Alloc); !ok {
					return NewInternal(id, "load from non-alloc value %v", x.Addr)
				}
			case Store:
				if _, ok := f.valueAt(x.Addr).(Alloc); !ok {
					return NewInternal(id, "store target %v is not an alloc", x.Addr)
				}

				if err := f.verifyResult(id, x.Val); err != nil {
					return err
				}
			case Binary:
				if x.Op < Add || x.Op > Or {
					return NewInternal(id, "unknown binary op %d", int(x.Op))
				}

				if err := f.verifyResult(id, x.L); err != nil {
					return err
				}

				if err := f.verifyResult(id, x.R); err != nil {
					return err
				}
			case Return:
				if x.Val != Nil {
					if err := f.verifyResult(id, x.Val); err != nil {
						return err
					}
				}
			default:
				return NewInternal(id, "unhandled value kind %T", x)
			}

			if in, ok := x.(Iner); ok {
				for _, op := range in.In() {
					if op >= id {
						return NewInternal(id, "forward reference to %v", op)
					}

					if _, ok := f.Values[op].(Integer); ok {
						continue
					}

					if !placed.IsSet(op) {
						return NewInternal(id, "operand %v used before it is placed", op)
					}
				}
			}

			last := i == len(bb.Insts)-1

			switch {
			case IsTerminator(x) && !last:
				return NewInternal(id, "terminator in the middle of block %v", blockName(bb, b))
			case !IsTerminator(x) && last:
				return NewInternal(blockName(bb, b), "block is not terminated")
			}

			placed.Set(id)
		}
	}

	return nil
}

func (f *Func) verifyResult(id, op Value) error {
	switch x := f.valueAt(op).(type) {
	case Integer, Load, Binary:
		return nil
	case nil:
		return NewInternal(id, "operand %v out of range", op)
	default:
		return NewInternal(id, "operand %v (%T) does not produce a value", op, x)
	}
}

func (f *Func) valueAt(v Value) any {
	if v < 0 || int(v) >= len(f.Values) {
		return nil
	}

	return f.Values[v]
}

func blockName(bb *BasicBlock, b Block) any {
	if bb.Name != "" {
		return bb.Name
	}

	return b
}
