package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"rsc.io/diff"
)

// buildVarFunc builds `int a = 3; a = a + 2; return a;`.
func buildVarFunc() *Func {
	p := NewProgram()
	f := p.NewFunc("main", I32)
	bb := f.AddBlock("entry")

	a := f.NewValue(Alloc{}, "a")
	f.Append(bb, a)

	three := f.NewValue(Integer(3), "")
	st := f.NewValue(Store{Val: three, Addr: a}, "")
	f.Append(bb, st)

	ld := f.NewValue(Load{Addr: a}, "")
	f.Append(bb, ld)

	two := f.NewValue(Integer(2), "")
	add := f.NewValue(Binary{Op: Add, L: ld, R: two}, "")
	f.Append(bb, add)

	st = f.NewValue(Store{Val: add, Addr: a}, "")
	f.Append(bb, st)

	ld = f.NewValue(Load{Addr: a}, "")
	f.Append(bb, ld)

	ret := f.NewValue(Return{Val: ld}, "")
	f.Append(bb, ret)

	return f
}

func TestArenaHandles(t *testing.T) {
	p := NewProgram()
	f := p.NewFunc("main", I32)

	require.Len(t, p.Funcs, 1)
	assert.Same(t, f, p.Funcs[0])

	b0 := f.AddBlock("entry")
	b1 := f.AddBlock("")

	assert.Equal(t, Block(0), b0)
	assert.Equal(t, Block(1), b1)
	assert.Equal(t, []Block{b0, b1}, f.Layout)

	for i := 0; i < 5; i++ {
		v := f.NewValue(Integer(i), "")
		assert.Equal(t, Value(i), v)
		assert.Equal(t, Integer(i), f.Value(v))
	}

	a := f.NewValue(Alloc{}, "x")
	assert.Equal(t, "x", f.NameOf(a))
	assert.Empty(t, f.Block(b0).Insts, "NewValue must not place values")

	f.Append(b0, a)
	assert.Equal(t, []Value{a}, f.Block(b0).Insts)

	assert.True(t, f.IsZero(0))
	assert.False(t, f.IsZero(1))
	assert.False(t, f.IsZero(a))
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsTerminator(Return{Val: Nil}))
	assert.False(t, IsTerminator(Store{}))

	for _, x := range []any{Alloc{}, Load{}, Store{}, Binary{}} {
		assert.True(t, HasSlot(x), "%T", x)
	}

	assert.False(t, HasSlot(Return{Val: Nil}))
	assert.False(t, HasSlot(Integer(1)))

	assert.Nil(t, Return{Val: Nil}.In())
	assert.Equal(t, []Value{4}, Return{Val: 4}.In())
	assert.Equal(t, []Value{1, 2}, Store{Val: 1, Addr: 2}.In())

	assert.Equal(t, "ne", NotEq.String())
	assert.Equal(t, "mod", Mod.String())
	assert.Equal(t, "i32", I32.String())
}

func TestVerifyOK(t *testing.T) {
	f := buildVarFunc()

	require.NoError(t, Verify(f))
}

func TestVerifyErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(f *Func, bb Block)
	}{
		{"empty_block", func(f *Func, bb Block) {}},
		{"not_terminated", func(f *Func, bb Block) {
			f.Append(bb, f.NewValue(Alloc{}, "a"))
		}},
		{"terminator_in_middle", func(f *Func, bb Block) {
			f.Append(bb, f.NewValue(Return{Val: Nil}, ""))
			f.Append(bb, f.NewValue(Alloc{}, "a"))
			f.Append(bb, f.NewValue(Return{Val: Nil}, ""))
		}},
		{"store_to_non_alloc", func(f *Func, bb Block) {
			one := f.NewValue(Integer(1), "")
			f.Append(bb, f.NewValue(Store{Val: one, Addr: one}, ""))
			f.Append(bb, f.NewValue(Return{Val: Nil}, ""))
		}},
		{"forward_reference", func(f *Func, bb Block) {
			add := f.NewValue(Binary{Op: Add, L: 1, R: 1}, "")
			f.NewValue(Integer(1), "")
			f.Append(bb, add)
			f.Append(bb, f.NewValue(Return{Val: add}, ""))
		}},
		{"integer_placed", func(f *Func, bb Block) {
			f.Append(bb, f.NewValue(Integer(1), ""))
			f.Append(bb, f.NewValue(Return{Val: Nil}, ""))
		}},
		{"placed_twice", func(f *Func, bb Block) {
			a := f.NewValue(Alloc{}, "a")
			f.Append(bb, a)
			f.Append(bb, a)
			f.Append(bb, f.NewValue(Return{Val: Nil}, ""))
		}},
		{"operand_not_placed", func(f *Func, bb Block) {
			one := f.NewValue(Integer(1), "")
			add := f.NewValue(Binary{Op: Add, L: one, R: one}, "")
			f.Append(bb, f.NewValue(Return{Val: add}, ""))
		}},
		{"return_alloc", func(f *Func, bb Block) {
			a := f.NewValue(Alloc{}, "a")
			f.Append(bb, a)
			f.Append(bb, f.NewValue(Return{Val: a}, ""))
		}},
		{"unknown_kind", func(f *Func, bb Block) {
			f.Append(bb, f.NewValue("junk", ""))
			f.Append(bb, f.NewValue(Return{Val: Nil}, ""))
		}},
	} {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			f := NewProgram().NewFunc("main", I32)
			bb := f.AddBlock("entry")

			tc.build(f, bb)

			err := Verify(f)
			require.Error(t, err)
			assert.True(t, IsInternal(err), "%v", err)
			assert.False(t, IsUnsupported(err))
		})
	}
}

func TestFormat(t *testing.T) {
	p := NewProgram()
	p.Funcs = append(p.Funcs, buildVarFunc())

	f := p.NewFunc("zero", I32)
	bb := f.AddBlock("entry")
	zero := f.NewValue(Integer(0), "")
	neg := f.NewValue(Binary{Op: Sub, L: zero, R: f.NewValue(Integer(5), "")}, "")
	f.Append(bb, neg)
	f.Append(bb, f.NewValue(Return{Val: neg}, ""))

	got := string(Format(nil, p))

	want := `fun @main(): i32 {
%entry:
  @a = alloc i32
  store 3, @a
  %0 = load @a
  %1 = add %0, 2
  store %1, @a
  %2 = load @a
  ret %2
}

fun @zero(): i32 {
%entry:
  %0 = sub 0, 5
  ret %0
}
`

	if got != want {
		t.Errorf("Format:\n%s", diff.Format(got, want))
	}
}

func TestFormatNameCollision(t *testing.T) {
	f := NewProgram().NewFunc("main", I32)
	bb := f.AddBlock("")

	f.Append(bb, f.NewValue(Alloc{}, "a"))
	f.Append(bb, f.NewValue(Alloc{}, "a"))
	f.Append(bb, f.NewValue(Return{Val: Nil}, ""))

	got := string(FormatFunc(nil, f))

	want := `fun @main(): i32 {
%bb0:
  @a = alloc i32
  @a_1 = alloc i32
  ret
}
`

	if got != want {
		t.Errorf("FormatFunc:\n%s", diff.Format(got, want))
	}
}
