package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/sysy/compiler/asm"
)

func r1(r asm.Reg) [1]asm.Reg     { return [1]asm.Reg{r} }
func r2(a, b asm.Reg) [2]asm.Reg { return [2]asm.Reg{a, b} }

func TestRunFrame(t *testing.T) {
	f := asm.NewFunc("main")
	f.Add(asm.Section(".text"))
	f.Add(asm.Globl("main"))
	f.Add(asm.Label("main"))
	f.Add(asm.Addi{Out: r1(asm.Sp), In: r1(asm.Sp), Imm: -16})
	f.Add(asm.Li{Out: r1(asm.T0), Imm: 40})
	f.Add(asm.Sw{In: r1(asm.T0), Base: asm.Sp, Off: 4})
	f.Add(asm.Li{Out: r1(asm.T1), Imm: 2})
	f.Add(asm.Lw{Out: r1(asm.T0), Base: asm.Sp, Off: 4})
	f.Add(asm.Arith{Op: asm.ADD, Out: r1(asm.T0), In: r2(asm.T0, asm.T1)})
	f.Add(asm.Sw{In: r1(asm.T0), Base: asm.Sp, Off: 8})
	f.Add(asm.Addi{Out: r1(asm.Sp), In: r1(asm.Sp), Imm: 16})
	f.Add(asm.Lw{Out: r1(asm.A0), Base: asm.Sp, Off: 8 - 16})
	f.Add(asm.Ret{})

	v, err := Run(f)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestZeroRegister(t *testing.T) {
	f := asm.NewFunc("main")
	f.Add(asm.Li{Out: r1(asm.Zero), Imm: 7})
	f.Add(asm.Mv{Out: r1(asm.A0), In: r1(asm.Zero)})
	f.Add(asm.Ret{})

	v, err := Run(f)
	require.NoError(t, err)
	assert.Equal(t, int32(0), v)
}

func TestArith(t *testing.T) {
	for _, tc := range []struct {
		op   string
		x, y int32
		res  int32
	}{
		{asm.ADD, 2, 3, 5},
		{asm.SUB, 2, 3, -1},
		{asm.MUL, -4, 3, -12},
		{asm.DIV, -7, 2, -3},
		{asm.REM, -7, 2, -1},
		{asm.REM, 7, -2, 1},
		{asm.DIV, 5, 0, -1},
		{asm.REM, 5, 0, 5},
		{asm.DIV, math.MinInt32, -1, math.MinInt32},
		{asm.REM, math.MinInt32, -1, 0},
		{asm.SLT, 1, 2, 1},
		{asm.SLT, 2, 1, 0},
		{asm.SGT, 2, 1, 1},
		{asm.AND, 6, 3, 2},
		{asm.OR, 6, 3, 7},
		{asm.ADD, math.MaxInt32, 1, math.MinInt32},
	} {
		res, err := arith(tc.op, tc.x, tc.y)
		require.NoError(t, err)
		assert.Equal(t, tc.res, res, "%v %v %v", tc.x, tc.op, tc.y)
	}

	_, err := arith("xor", 1, 1)
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	t.Run("sp_not_restored", func(t *testing.T) {
		f := asm.NewFunc("main")
		f.Add(asm.Addi{Out: r1(asm.Sp), In: r1(asm.Sp), Imm: -16})
		f.Add(asm.Ret{})

		_, err := Run(f)
		assert.Error(t, err)
	})

	t.Run("misaligned", func(t *testing.T) {
		f := asm.NewFunc("main")
		f.Add(asm.Lw{Out: r1(asm.A0), Base: asm.Sp, Off: -3})
		f.Add(asm.Ret{})

		_, err := Run(f)
		assert.Error(t, err)
	})

	t.Run("out_of_stack", func(t *testing.T) {
		f := asm.NewFunc("main")
		f.Add(asm.Sw{In: r1(asm.A0), Base: asm.Sp, Off: 0})
		f.Add(asm.Ret{})

		_, err := Run(f)
		assert.Error(t, err)
	})

	t.Run("no_ret", func(t *testing.T) {
		f := asm.NewFunc("main")
		f.Add(asm.Li{Out: r1(asm.A0), Imm: 1})

		_, err := Run(f)
		assert.Error(t, err)
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, uint8(0), ExitCode(0))
	assert.Equal(t, uint8(5), ExitCode(5))
	assert.Equal(t, uint8(249), ExitCode(-7))
	assert.Equal(t, uint8(0), ExitCode(256))
}
