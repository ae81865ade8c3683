// Package sim executes generated assembly listings.
//
// It models the rv32im subset the back end emits:
// 32-bit registers, a word-addressed stack and the
// RISC-V rules for division by zero and overflow.
package sim

import (
	"math"

	"tlog.app/go/errors"

	"github.com/slowlang/sysy/compiler/asm"
)

type (
	Machine struct {
		Regs [asm.NumRegs]int32

		// Stack memory, addressed downwards from StackTop.
		Mem []byte

		Steps int
		Limit int
	}
)

const (
	StackTop  = 0x10000
	StackSize = 0x10000

	returnAddr = -1
)

var ErrStepLimit = errors.New("step limit exceeded")

// Run executes f from its first line until it returns and reports a0.
func Run(f *asm.Func) (int32, error) {
	m := New()

	return m.Run(f)
}

func New() *Machine {
	return &Machine{
		Mem:   make([]byte, StackSize),
		Limit: 1 << 20,
	}
}

func (m *Machine) Run(f *asm.Func) (_ int32, err error) {
	m.Regs[asm.Sp] = StackTop
	m.Regs[asm.Ra] = returnAddr

	for pc := 0; pc < len(f.Lines); pc++ {
		m.Steps++

		if m.Limit != 0 && m.Steps > m.Limit {
			return 0, ErrStepLimit
		}

		l := f.Lines[pc]

		done, err := m.step(l.X)
		if err != nil {
			return 0, errors.Wrap(err, "line %d: %v", pc, l)
		}

		if done {
			return m.Regs[asm.A0], nil
		}
	}

	return 0, errors.New("%v: fell off the end of the function", f.Name)
}

func (m *Machine) step(x any) (done bool, err error) {
	switch x := x.(type) {
	case asm.Section, asm.Globl, asm.Label, asm.Comment:
	case asm.Li:
		m.set(x.Out[0], x.Imm)
	case asm.Mv:
		m.set(x.Out[0], m.Regs[x.In[0]])
	case asm.Addi:
		m.set(x.Out[0], m.Regs[x.In[0]]+x.Imm)
	case asm.Arith:
		v, err := arith(x.Op, m.Regs[x.In[0]], m.Regs[x.In[1]])
		if err != nil {
			return false, err
		}

		m.set(x.Out[0], v)
	case asm.Set:
		v := m.Regs[x.In[0]]

		switch x.Op {
		case asm.SEQZ:
			m.set(x.Out[0], b2i(v == 0))
		case asm.SNEZ:
			m.set(x.Out[0], b2i(v != 0))
		default:
			return false, errors.New("unknown set op: %v", x.Op)
		}
	case asm.Lw:
		v, err := m.load(m.Regs[x.Base] + x.Off)
		if err != nil {
			return false, err
		}

		m.set(x.Out[0], v)
	case asm.Sw:
		err = m.store(m.Regs[x.Base]+x.Off, m.Regs[x.In[0]])
		if err != nil {
			return false, err
		}
	case asm.Ret:
		if m.Regs[asm.Ra] != returnAddr {
			return false, errors.New("return to unknown address %#x", m.Regs[asm.Ra])
		}

		if m.Regs[asm.Sp] != StackTop {
			return false, errors.New("stack pointer not restored: %#x", m.Regs[asm.Sp])
		}

		return true, nil
	default:
		return false, errors.New("unsupported instruction: %T", x)
	}

	return false, nil
}

func (m *Machine) set(r asm.Reg, v int32) {
	if r == asm.Zero {
		return
	}

	m.Regs[r] = v
}

func (m *Machine) addr(a int32) (int, error) {
	if a%4 != 0 {
		return 0, errors.New("misaligned access: %#x", a)
	}

	off := int(a) - (StackTop - len(m.Mem))
	if off < 0 || off+4 > len(m.Mem) {
		return 0, errors.New("access out of stack: %#x", a)
	}

	return off, nil
}

func (m *Machine) load(a int32) (int32, error) {
	off, err := m.addr(a)
	if err != nil {
		return 0, err
	}

	b := m.Mem[off : off+4]

	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24), nil
}

func (m *Machine) store(a, v int32) error {
	off, err := m.addr(a)
	if err != nil {
		return err
	}

	b := m.Mem[off : off+4]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)

	return nil
}

func arith(op string, x, y int32) (int32, error) {
	switch op {
	case asm.ADD:
		return x + y, nil
	case asm.SUB:
		return x - y, nil
	case asm.MUL:
		return x * y, nil
	case asm.DIV:
		switch {
		case y == 0:
			return -1, nil
		case x == math.MinInt32 && y == -1:
			return x, nil
		}

		return x / y, nil
	case asm.REM:
		switch {
		case y == 0:
			return x, nil
		case x == math.MinInt32 && y == -1:
			return 0, nil
		}

		return x % y, nil
	case asm.SLT:
		return b2i(x < y), nil
	case asm.SGT:
		return b2i(x > y), nil
	case asm.AND:
		return x & y, nil
	case asm.OR:
		return x | y, nil
	default:
		return 0, errors.New("unknown arith op: %v", op)
	}
}

// ExitCode is what a process exit status keeps of a returned value: the low 8 bits.
func ExitCode(v int32) uint8 {
	return uint8(v)
}

func b2i(b bool) int32 {
	if b {
		return 1
	}

	return 0
}
