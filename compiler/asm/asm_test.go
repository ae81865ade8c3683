package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"rsc.io/diff"
)

func TestRegNames(t *testing.T) {
	assert.Equal(t, "zero", Zero.String())
	assert.Equal(t, "sp", Sp.String())
	assert.Equal(t, "t2", T2.String())
	assert.Equal(t, "a0", A0.String())
	assert.Equal(t, "s11", S11.String())
	assert.Equal(t, "t6", T6.String())
	assert.Equal(t, Reg(31), T6)
	assert.Equal(t, "x?", Reg(40).String())
}

func TestFitsImm12(t *testing.T) {
	assert.True(t, FitsImm12(0))
	assert.True(t, FitsImm12(2047))
	assert.True(t, FitsImm12(-2048))
	assert.False(t, FitsImm12(2048))
	assert.False(t, FitsImm12(-2049))
}

func TestAppendFunc(t *testing.T) {
	f := NewFunc("main")

	f.Add(Section(".text"))
	f.Add(Globl("main"))
	f.Add(Label("main"))
	f.Add(Addi{Out: [1]Reg{Sp}, In: [1]Reg{Sp}, Imm: -16})
	f.Add(Comment("alloc @a"))
	f.AddC(Li{Out: [1]Reg{T0}, Imm: 3}, "3")
	f.AddC(Sw{In: [1]Reg{T0}, Base: Sp, Off: 0}, "@a")
	f.Add(Lw{Out: [1]Reg{T0}, Base: Sp, Off: 0})
	f.Add(Arith{Op: ADD, Out: [1]Reg{T0}, In: [2]Reg{T0, T1}})
	f.Add(Set{Op: SEQZ, Out: [1]Reg{T0}, In: [1]Reg{T0}})
	f.Add(Mv{Out: [1]Reg{A0}, In: [1]Reg{Zero}})
	f.Add(Ret{})

	got := string(AppendFunc(nil, f))

	want := `.text
.globl main
main:
  addi sp, sp, -16
  # alloc @a
  li t0, 3  # 3
  sw t0, 0(sp)  # @a
  lw t0, 0(sp)
  add t0, t0, t1
  seqz t0, t0
  mv a0, zero
  ret
`

	if got != want {
		t.Errorf("AppendFunc:\n%s", diff.Format(got, want))
	}

	assert.Equal(t, 8, f.Insts())
}

func TestAppendFuncs(t *testing.T) {
	a := NewFunc("a")
	a.Add(Ret{})

	b := NewFunc("b")
	b.Add(Ret{})

	assert.Equal(t, "  ret\n\n  ret\n", string(AppendFuncs(nil, a, b)))
}
