package ir

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

// Format appends the Koopa IR text of every function in p.
func Format(b []byte, p *Program) []byte {
	for i, f := range p.Funcs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = FormatFunc(b, f)
	}

	return b
}

func FormatFunc(b []byte, f *Func) []byte {
	names := textNames(f)

	operand := func(v Value) string {
		if x, ok := f.Values[v].(Integer); ok {
			return strconv.Itoa(int(x))
		}

		return names[v]
	}

	b = hfmt.Appendf(b, "fun @%s(): %v {\n", f.Name, f.Ret)

	for _, blk := range f.Layout {
		bb := &f.Blocks[blk]

		if bb.Name != "" {
			b = hfmt.Appendf(b, "%%%s:\n", bb.Name)
		} else {
			b = hfmt.Appendf(b, "%%bb%d:\n", blk)
		}

		for _, id := range bb.Insts {
			switch x := f.Values[id].(type) {
			case Alloc:
				b = hfmt.Appendf(b, "  %s = alloc i32\n", names[id])
			case Load:
				b = hfmt.Appendf(b, "  %s = load %s\n", names[id], operand(x.Addr))
			case Store:
				b = hfmt.Appendf(b, "  store %s, %s\n", operand(x.Val), operand(x.Addr))
			case Binary:
				b = hfmt.Appendf(b, "  %s = %v %s, %s\n", names[id], x.Op, operand(x.L), operand(x.R))
			case Return:
				if x.Val == Nil {
					b = append(b, "  ret\n"...)
				} else {
					b = hfmt.Appendf(b, "  ret %s\n", operand(x.Val))
				}
			default:
				b = hfmt.Appendf(b, "  // %T\n", x)
			}
		}
	}

	b = append(b, "}\n"...)

	return b
}

// textNames gives every placed value a unique textual name.
// Named values become @name, the rest are numbered %0, %1, ... in layout order.
func textNames(f *Func) []string {
	names := make([]string, len(f.Values))
	used := map[string]int{}
	tmp := 0

	f.Insts(func(_ Block, id Value) {
		x := f.Values[id]

		if !HasSlot(x) {
			return
		}

		if n := f.Names[id]; n != "" {
			name := "@" + n

			if cnt := used[name]; cnt != 0 {
				used[name]++
				name += "_" + strconv.Itoa(cnt)
			} else {
				used[name] = 1
			}

			names[id] = name

			return
		}

		if _, ok := x.(Store); ok {
			return
		}

		names[id] = "%" + strconv.Itoa(tmp)
		tmp++
	})

	return names
}
