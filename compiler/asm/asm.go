package asm

type (
	Reg int

	// Func is the assembly listing of a single function.
	Func struct {
		Name  string
		Lines []Line
	}

	Line struct {
		X       any
		Comment string
	}

	Section string
	Globl   string
	Label   string
	Comment string

	Li struct {
		Out [1]Reg
		Imm int32
	}

	Mv struct {
		Out [1]Reg
		In  [1]Reg
	}

	Addi struct {
		Out [1]Reg
		In  [1]Reg
		Imm int32
	}

	// Arith is a three-register instruction: add, sub, mul, div, rem, slt, sgt, and, or.
	Arith struct {
		Op  string
		Out [1]Reg
		In  [2]Reg
	}

	// Set is seqz or snez.
	Set struct {
		Op  string
		Out [1]Reg
		In  [1]Reg
	}

	Lw struct {
		Out  [1]Reg
		Base Reg
		Off  int32
	}

	Sw struct {
		In   [1]Reg
		Base Reg
		Off  int32
	}

	Ret struct{}
)

// Register numbers follow the RISC-V ABI: x0..x31.
const (
	Zero Reg = iota
	Ra
	Sp
	Gp
	Tp
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6

	NumRegs
)

const (
	ADD  = "add"
	SUB  = "sub"
	MUL  = "mul"
	DIV  = "div"
	REM  = "rem"
	SLT  = "slt"
	SGT  = "sgt"
	AND  = "and"
	OR   = "or"
	SEQZ = "seqz"
	SNEZ = "snez"
)

var regNames = [NumRegs]string{
	"zero", "ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

func (r Reg) String() string {
	if r < 0 || r >= NumRegs {
		return "x?"
	}

	return regNames[r]
}

// FitsImm12 reports whether x fits the signed 12-bit immediate of I and S type instructions.
func FitsImm12(x int) bool {
	return x >= -2048 && x <= 2047
}

func NewFunc(name string) *Func {
	return &Func{Name: name}
}

func (f *Func) Add(x any) {
	f.Lines = append(f.Lines, Line{X: x})
}

// AddC adds x with a trailing comment.
func (f *Func) AddC(x any, comment string) {
	f.Lines = append(f.Lines, Line{X: x, Comment: comment})
}

// Insts counts lines holding machine instructions.
func (f *Func) Insts() (n int) {
	for _, l := range f.Lines {
		switch l.X.(type) {
		case Section, Globl, Label, Comment, nil:
		default:
			n++
		}
	}

	return n
}
