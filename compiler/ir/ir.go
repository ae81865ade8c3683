package ir

type (
	Value int
	Block int
	Type  int
	Op    int

	Program struct {
		Funcs []*Func
	}

	// Func owns its value arena. Values and Names are parallel tables
	// indexed by Value, Blocks is indexed by Block.
	// Layout is the order blocks are laid out in.
	Func struct {
		Name   string
		Ret    Type
		Params []Type

		Layout []Block

		Values []any
		Names  []string
		Blocks []BasicBlock
	}

	BasicBlock struct {
		Name  string
		Insts []Value
	}

	Integer int32

	Alloc struct{}

	Load struct {
		Addr Value
	}

	Store struct {
		Val  Value
		Addr Value
	}

	Binary struct {
		Op   Op
		L, R Value
	}

	Return struct {
		Val Value
	}

	Iner interface {
		In() []Value
	}
)

const (
	Nil Value = -1
)

const (
	I32 Type = iota
	Unit
)

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	Lt
	Gt
	Le
	Ge
	Eq
	NotEq
	And
	Or
)

var opNames = []string{
	Add:   "add",
	Sub:   "sub",
	Mul:   "mul",
	Div:   "div",
	Mod:   "mod",
	Lt:    "lt",
	Gt:    "gt",
	Le:    "le",
	Ge:    "ge",
	Eq:    "eq",
	NotEq: "ne",
	And:   "and",
	Or:    "or",
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) NewFunc(name string, ret Type) *Func {
	f := &Func{
		Name: name,
		Ret:  ret,
	}

	p.Funcs = append(p.Funcs, f)

	return f
}

// AddBlock creates a block and appends it to the layout.
func (f *Func) AddBlock(name string) Block {
	id := Block(len(f.Blocks))
	f.Blocks = append(f.Blocks, BasicBlock{Name: name})
	f.Layout = append(f.Layout, id)

	return id
}

// NewValue adds x to the arena. It is not placed into any block.
func (f *Func) NewValue(x any, name string) Value {
	id := Value(len(f.Values))
	f.Values = append(f.Values, x)
	f.Names = append(f.Names, name)

	return id
}

// Append places instruction v at the end of block b.
func (f *Func) Append(b Block, v Value) {
	bb := &f.Blocks[b]
	bb.Insts = append(bb.Insts, v)
}

func (f *Func) Value(v Value) any {
	return f.Values[v]
}

func (f *Func) NameOf(v Value) string {
	return f.Names[v]
}

func (f *Func) Block(b Block) *BasicBlock {
	return &f.Blocks[b]
}

// Insts calls fn for every placed instruction in layout order.
func (f *Func) Insts(fn func(b Block, id Value)) {
	for _, b := range f.Layout {
		for _, id := range f.Blocks[b].Insts {
			fn(b, id)
		}
	}
}

func (x Load) In() []Value   { return []Value{x.Addr} }
func (x Store) In() []Value  { return []Value{x.Val, x.Addr} }
func (x Binary) In() []Value { return []Value{x.L, x.R} }

func (x Return) In() []Value {
	if x.Val == Nil {
		return nil
	}

	return []Value{x.Val}
}

// IsTerminator reports whether x ends a block.
func IsTerminator(x any) bool {
	_, ok := x.(Return)
	return ok
}

// HasSlot reports whether instruction x needs a storage location.
// That is every placed kind except the terminator.
func HasSlot(x any) bool {
	switch x.(type) {
	case Alloc, Load, Store, Binary:
		return true
	default:
		return false
	}
}

// IsZero reports whether v is the literal 0.
func (f *Func) IsZero(v Value) bool {
	x, ok := f.Values[v].(Integer)
	return ok && x == 0
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "op?"
	}

	return opNames[op]
}

func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case Unit:
		return "unit"
	default:
		return "type?"
	}
}
