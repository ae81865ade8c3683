package back

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsc.io/diff"

	"github.com/slowlang/sysy/compiler/asm"
	"github.com/slowlang/sysy/compiler/ir"
	"github.com/slowlang/sysy/compiler/sim"
)

func TestCompileStack(t *testing.T) {
	p := ir.NewProgram()
	p.Funcs = append(p.Funcs, sumFunc())

	got, err := New(&StackAllocator{}).CompileProgram(context.Background(), nil, p)
	require.NoError(t, err)

	want := `.text
.globl main
main:
  addi sp, sp, -16
  li t0, 1
  li t1, 2
  add t0, t0, t1  # %v2
  sw t0, 0(sp)  # %v2
  addi sp, sp, 16
  lw a0, -16(sp)  # %v2
  ret
`

	if string(got) != want {
		t.Errorf("asm:\n%s", diff.Format(string(got), want))
	}
}

func TestCompileReg(t *testing.T) {
	p := ir.NewProgram()
	p.Funcs = append(p.Funcs, sumFunc())

	got, err := New(NewRegAllocator()).CompileProgram(context.Background(), nil, p)
	require.NoError(t, err)

	want := `.text
.globl main
main:
  li t0, 1
  li t1, 2
  add a1, t0, t1  # %v2
  mv a0, a1  # %v2
  ret
`

	if string(got) != want {
		t.Errorf("asm:\n%s", diff.Format(string(got), want))
	}
}

func TestCompileLargeFrame(t *testing.T) {
	p := ir.NewProgram()
	p.Funcs = append(p.Funcs, wideFunc(700))

	got, err := New(&StackAllocator{}).CompileProgram(context.Background(), nil, p)
	require.NoError(t, err)

	// 700 allocs, 700 stores and a load: align16(4*1401) bytes.
	text := string(got)

	assert.Contains(t, text, "main:\n  li t2, -5616\n  add sp, sp, t2\n")
	assert.Contains(t, text, "  li t2, 2048\n  add t2, sp, t2\n  sw t0, 0(t2)")
	assert.Contains(t, text, "  li t2, 2796\n  add t2, sp, t2\n  lw t0, 0(t2)\n  li t2, 2800\n  add t2, sp, t2\n  sw t0, 0(t2)")
	assert.Contains(t, text, "  li t2, 5616\n  add sp, sp, t2\n  li t2, -2816\n  add t2, sp, t2\n  lw a0, 0(t2)")
	assert.NotContains(t, text, "addi sp")

	for _, a := range []Allocator{&StackAllocator{}, NewRegAllocator()} {
		fs, err := New(a).Compile(context.Background(), p)
		require.NoError(t, err)

		res, err := sim.Run(fs[0])
		require.NoError(t, err)
		assert.Equal(t, int32(699), res)
	}
}

func TestCompileRun(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    *ir.Func
		res  int32
	}{
		{"sum", sumFunc(), 3},
		{"chain", chainFunc(10), 11},
		{"big_frame", wideFunc(700), 699},
		{"negate", negFunc(5), -5},
		{"void", voidFunc(), 0},
	} {
		tc := tc

		for _, alloc := range []string{"stack", "reg"} {
			alloc := alloc

			t.Run(tc.name+"/"+alloc, func(t *testing.T) {
				a, err := NewAllocator(alloc)
				require.NoError(t, err)

				fn, err := New(a).CompileFunc(context.Background(), tc.f)
				require.NoError(t, err)

				res, err := sim.Run(fn)
				require.NoError(t, err, "%s", asm.AppendFunc(nil, fn))

				assert.Equal(t, tc.res, res)
			})
		}
	}
}

func TestCompileBinaryOps(t *testing.T) {
	for _, tc := range []struct {
		op   ir.Op
		l, r int32
		res  int32
	}{
		{ir.Add, 7, 5, 12},
		{ir.Sub, 7, 5, 2},
		{ir.Mul, -7, 5, -35},
		{ir.Div, -7, 2, -3},
		{ir.Mod, -7, 2, -1},
		{ir.Lt, 1, 2, 1},
		{ir.Lt, 2, 2, 0},
		{ir.Gt, 3, 2, 1},
		{ir.Le, 2, 2, 1},
		{ir.Le, 3, 2, 0},
		{ir.Ge, 2, 2, 1},
		{ir.Ge, 1, 2, 0},
		{ir.Eq, 4, 4, 1},
		{ir.Eq, 4, 5, 0},
		{ir.NotEq, 4, 5, 1},
		{ir.NotEq, 4, 0, 1},
		{ir.Eq, 0, 0, 1},
		{ir.And, 6, 3, 2},
		{ir.Or, 6, 3, 7},
	} {
		for _, alloc := range []string{"stack", "reg"} {
			a, err := NewAllocator(alloc)
			require.NoError(t, err)

			fn, err := New(a).CompileFunc(context.Background(), binFunc(tc.op, tc.l, tc.r))
			require.NoError(t, err)

			res, err := sim.Run(fn)
			require.NoError(t, err)

			assert.Equal(t, tc.res, res, "%v %v %v (%v)", tc.l, tc.op, tc.r, alloc)
		}
	}
}

func TestCompileResetsBetweenFuncs(t *testing.T) {
	p := ir.NewProgram()
	p.Funcs = append(p.Funcs, chainFunc(3), sumFunc())
	p.Funcs[1].Name = "second"

	c := New(nil)

	fs, err := c.Compile(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, fs, 2)

	// both frames are computed from scratch
	assert.Equal(t, asm.Addi{Out: r1(asm.Sp), In: r1(asm.Sp), Imm: -48}, fs[0].Lines[3].X)
	assert.Equal(t, asm.Addi{Out: r1(asm.Sp), In: r1(asm.Sp), Imm: -16}, fs[1].Lines[3].X)

	again, err := c.Compile(context.Background(), p)
	require.NoError(t, err)

	if d := cmp.Diff(fs, again); d != "" {
		t.Errorf("second compile differs: %s", d)
	}
}

func TestCompileErrorDropsOutput(t *testing.T) {
	p := ir.NewProgram()
	p.Funcs = append(p.Funcs, sumFunc())

	bad := p.NewFunc("bad", ir.I32)
	bad.AddBlock("entry")

	b, err := New(nil).CompileProgram(context.Background(), []byte("prefix"), p)
	assert.Nil(t, b)
	assert.True(t, ir.IsInternal(err), "%v", err)
}

func TestCompileUnallocatedOperand(t *testing.T) {
	f := ir.NewProgram().NewFunc("main", ir.I32)
	bb := f.AddBlock("entry")

	a := f.NewValue(ir.Alloc{}, "a")
	f.Append(bb, a)

	ld := f.NewValue(ir.Load{Addr: a}, "")
	f.Append(bb, ld)
	f.Append(bb, f.NewValue(ir.Return{Val: ld}, ""))

	// the allocator answers for values it was never asked to place
	_, err := New(&forgetful{}).CompileFunc(context.Background(), f)
	assert.True(t, ir.IsInternal(err), "%v", err)
}

type forgetful struct {
	StackAllocator
}

func (a *forgetful) Alloc(v ir.Value) (Location, error) { return Stack(0), nil }

func sumFunc() *ir.Func {
	f := ir.NewProgram().NewFunc("main", ir.I32)
	bb := f.AddBlock("entry")

	sum := f.NewValue(ir.Binary{Op: ir.Add, L: f.NewValue(ir.Integer(1), ""), R: f.NewValue(ir.Integer(2), "")}, "")
	f.Append(bb, sum)
	f.Append(bb, f.NewValue(ir.Return{Val: sum}, ""))

	return f
}

func binFunc(op ir.Op, l, r int32) *ir.Func {
	f := ir.NewProgram().NewFunc("main", ir.I32)
	bb := f.AddBlock("entry")

	x := f.NewValue(ir.Alloc{}, "x")
	f.Append(bb, x)
	f.Append(bb, f.NewValue(ir.Store{Val: f.NewValue(ir.Integer(l), ""), Addr: x}, ""))

	ld := f.NewValue(ir.Load{Addr: x}, "")
	f.Append(bb, ld)

	res := f.NewValue(ir.Binary{Op: op, L: ld, R: f.NewValue(ir.Integer(r), "")}, "")
	f.Append(bb, res)
	f.Append(bb, f.NewValue(ir.Return{Val: res}, ""))

	return f
}

func negFunc(x int32) *ir.Func {
	f := ir.NewProgram().NewFunc("main", ir.I32)
	bb := f.AddBlock("entry")

	neg := f.NewValue(ir.Binary{Op: ir.Sub, L: f.NewValue(ir.Integer(0), ""), R: f.NewValue(ir.Integer(x), "")}, "")
	f.Append(bb, neg)
	f.Append(bb, f.NewValue(ir.Return{Val: neg}, ""))

	return f
}

// wideFunc declares n variables, so the frame outgrows the 12-bit immediate.
func wideFunc(n int) *ir.Func {
	f := ir.NewProgram().NewFunc("main", ir.I32)
	bb := f.AddBlock("entry")

	var last ir.Value

	for i := 0; i < n; i++ {
		last = f.NewValue(ir.Alloc{}, "")
		f.Append(bb, last)
		f.Append(bb, f.NewValue(ir.Store{Val: f.NewValue(ir.Integer(i), ""), Addr: last}, ""))
	}

	ld := f.NewValue(ir.Load{Addr: last}, "")
	f.Append(bb, ld)
	f.Append(bb, f.NewValue(ir.Return{Val: ld}, ""))

	return f
}

func voidFunc() *ir.Func {
	f := ir.NewProgram().NewFunc("main", ir.Unit)
	bb := f.AddBlock("entry")

	f.Append(bb, f.NewValue(ir.Return{Val: ir.Nil}, ""))

	return f
}
