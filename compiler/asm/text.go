package asm

import (
	"github.com/nikandfor/hacked/hfmt"
)

// AppendFuncs renders listings one after another, separated by an empty line.
func AppendFuncs(b []byte, fs ...*Func) []byte {
	for i, f := range fs {
		if i != 0 {
			b = append(b, '\n')
		}

		b = AppendFunc(b, f)
	}

	return b
}

func AppendFunc(b []byte, f *Func) []byte {
	for _, l := range f.Lines {
		b = AppendLine(b, l)
		b = append(b, '\n')
	}

	return b
}

func AppendLine(b []byte, l Line) []byte {
	switch x := l.X.(type) {
	case Section:
		b = append(b, x...)
	case Globl:
		b = hfmt.Appendf(b, ".globl %s", string(x))
	case Label:
		b = hfmt.Appendf(b, "%s:", string(x))
	case Comment:
		b = hfmt.Appendf(b, "  # %s", string(x))
	case Li:
		b = hfmt.Appendf(b, "  li %v, %d", x.Out[0], x.Imm)
	case Mv:
		b = hfmt.Appendf(b, "  mv %v, %v", x.Out[0], x.In[0])
	case Addi:
		b = hfmt.Appendf(b, "  addi %v, %v, %d", x.Out[0], x.In[0], x.Imm)
	case Arith:
		b = hfmt.Appendf(b, "  %s %v, %v, %v", x.Op, x.Out[0], x.In[0], x.In[1])
	case Set:
		b = hfmt.Appendf(b, "  %s %v, %v", x.Op, x.Out[0], x.In[0])
	case Lw:
		b = hfmt.Appendf(b, "  lw %v, %d(%v)", x.Out[0], x.Off, x.Base)
	case Sw:
		b = hfmt.Appendf(b, "  sw %v, %d(%v)", x.In[0], x.Off, x.Base)
	case Ret:
		b = append(b, "  ret"...)
	default:
		b = hfmt.Appendf(b, "  # unknown %T", x)
	}

	if l.Comment != "" {
		b = append(b, "  # "...)
		b = append(b, l.Comment...)
	}

	return b
}

func (l Line) String() string {
	return string(AppendLine(nil, l))
}
