package back

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/sysy/compiler/asm"
)

type (
	LocKind int

	// Location is where a value lives.
	Location struct {
		Kind LocKind
		Reg  asm.Reg
		Off  int
		Imm  int32
	}
)

const (
	_ LocKind = iota
	InReg
	OnStack
	Imm
)

func Register(r asm.Reg) Location { return Location{Kind: InReg, Reg: r} }
func Stack(off int) Location      { return Location{Kind: OnStack, Off: off} }
func Immediate(x int32) Location  { return Location{Kind: Imm, Imm: x} }

func (l Location) String() string {
	switch l.Kind {
	case InReg:
		return l.Reg.String()
	case OnStack:
		return strconv.Itoa(l.Off) + "(sp)"
	case Imm:
		return strconv.Itoa(int(l.Imm))
	default:
		return "nowhere"
	}
}

func (l Location) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 1)

	switch l.Kind {
	case InReg:
		b = e.AppendKeyInt(b, "reg", int(l.Reg))
	case OnStack:
		b = e.AppendKeyInt(b, "stack", l.Off)
	case Imm:
		b = e.AppendKeyInt64(b, "imm", int64(l.Imm))
	default:
		b = e.AppendKeyInt(b, "nowhere", 0)
	}

	return b
}
