package ast

type (
	Node interface{}

	Expr interface{}

	Stmt interface{}

	// Base is the byte range of a node in the source text.
	Base struct {
		Pos int
		End int
	}

	BType int

	UnaryOp int

	BinaryOp int

	CompUnit struct {
		Funcs []*FuncDef

		// Globals are top-level declarations, kept in source order.
		Globals []Stmt
	}

	FuncDef struct {
		Base `tlog:",embed"`

		Type   BType
		Name   string
		Params []*Param
		Body   *Block
	}

	Param struct {
		Base `tlog:",embed"`

		Type BType
		Name string

		// Array is set for `int a[]` parameters, Dims are the dimensions after the first one.
		Array bool
		Dims  []Expr
	}

	Block struct {
		Base `tlog:",embed"`

		Items []Stmt
	}

	ConstDecl struct {
		Base `tlog:",embed"`

		Type BType
		Defs []*ConstDef
	}

	ConstDef struct {
		Base `tlog:",embed"`

		Name string
		Dims []Expr
		Init Expr
	}

	VarDecl struct {
		Base `tlog:",embed"`

		Type BType
		Defs []*VarDef
	}

	VarDef struct {
		Base `tlog:",embed"`

		Name string
		Dims []Expr
		Init Expr // nil if not initialized
	}

	// InitList is a braced array initializer.
	InitList struct {
		Base `tlog:",embed"`

		Items []Expr
	}

	Assign struct {
		Base `tlog:",embed"`

		Target *LVal
		Value  Expr
	}

	// ExprStmt is an expression evaluated for nothing. X is nil for an empty statement.
	ExprStmt struct {
		Base `tlog:",embed"`

		X Expr
	}

	Return struct {
		Base `tlog:",embed"`

		Value Expr // nil for bare return
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then Stmt
		Else Stmt
	}

	While struct {
		Base `tlog:",embed"`

		Cond Expr
		Body Stmt
	}

	Break struct {
		Base `tlog:",embed"`
	}

	Continue struct {
		Base `tlog:",embed"`
	}

	Number struct {
		Base `tlog:",embed"`

		Value int32
	}

	LVal struct {
		Base `tlog:",embed"`

		Name  string
		Index []Expr
	}

	Unary struct {
		Base `tlog:",embed"`

		Op UnaryOp
		X  Expr
	}

	Binary struct {
		Base `tlog:",embed"`

		Op   BinaryOp
		L, R Expr
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []Expr
	}
)

const (
	Int BType = iota
	Void
)

const (
	Plus UnaryOp = iota
	Minus
	Not
)

const (
	Add BinaryOp = iota
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

var binaryOps = []string{
	Add:   "+",
	Sub:   "-",
	Mul:   "*",
	Div:   "/",
	Mod:   "%",
	Lt:    "<",
	Gt:    ">",
	Le:    "<=",
	Ge:    ">=",
	Eq:    "==",
	NotEq: "!=",
	And:   "&&",
	Or:    "||",
}

func (t BType) String() string {
	switch t {
	case Int:
		return "int"
	case Void:
		return "void"
	default:
		return "type?"
	}
}

func (op UnaryOp) String() string {
	switch op {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Not:
		return "!"
	default:
		return "?"
	}
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOps) {
		return "?"
	}

	return binaryOps[op]
}

// Precedence is the binding strength of op, higher binds tighter.
func (op BinaryOp) Precedence() int {
	switch op {
	case Or:
		return 1
	case And:
		return 2
	case Eq, NotEq:
		return 3
	case Lt, Gt, Le, Ge:
		return 4
	case Add, Sub:
		return 5
	default:
		return 6
	}
}
