package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/ast"
	"github.com/slowlang/sysy/compiler/ir"
)

type (
	// FuncScope is the state of the function being emitted.
	FuncScope struct {
		*ir.Func

		bb   ir.Block
		done bool // bb is terminated

		expanding map[*binding]bool
	}

	// Scope is one lexical block. Names resolve through Prev.
	Scope struct {
		*FuncScope

		Prev *Scope

		Syms map[string]*binding
	}

	// binding is a constant expression or a variable storage.
	// Constants are lowered again at every use, in the scope they were declared in.
	binding struct {
		Const ast.Expr
		Scope *Scope

		Var ir.Value
	}
)

// Emit lowers a checked compilation unit into IR.
func Emit(ctx context.Context, u *ast.CompUnit) (p *ir.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: emit program", "funcs", len(u.Funcs))
	defer tr.Finish("err", &err)

	if len(u.Globals) != 0 {
		return nil, ir.NewUnsupported(u.Globals[0], "global declarations")
	}

	p = ir.NewProgram()

	for _, f := range u.Funcs {
		_, err = EmitFunc(ctx, p, f)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return p, nil
}

// EmitFunc lowers f and adds it to p.
func EmitFunc(ctx context.Context, p *ir.Program, f *ast.FuncDef) (fn *ir.Func, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "front: emit func", "name", f.Name)
	defer tr.Finish("err", &err)

	if len(f.Params) != 0 {
		return nil, ir.NewUnsupported(f.Params[0], "function parameters")
	}

	ret := ir.I32
	if f.Type == ast.Void {
		ret = ir.Unit
	}

	fs := &FuncScope{
		Func:      p.NewFunc(f.Name, ret),
		expanding: map[*binding]bool{},
	}

	fs.bb = fs.AddBlock("entry")

	s := fs.scope(nil)

	err = s.items(f.Body.Items)
	if err != nil {
		return nil, err
	}

	if !fs.done {
		// falling off the end returns 0 from int functions
		val := ir.Nil
		if ret == ir.I32 {
			val = fs.NewValue(ir.Integer(0), "")
		}

		fs.add(ir.Return{Val: val}, "")
	}

	if tr.If("dump_ir") {
		for id, x := range fs.Values {
			tr.Printw("value", "id", id, "name", fs.Names[id], "typ", tlog.NextAsType, x, "val", x)
		}
	}

	tr.Printw("emitted", "values", len(fs.Values), "insts", len(fs.Block(fs.bb).Insts))

	return fs.Func, nil
}

func (s *Scope) items(items []ast.Stmt) error {
	for i, x := range items {
		if s.done {
			tlog.V("unreachable").Printw("statements after return dropped", "func", s.Func.Name, "stmts", len(items)-i)

			return nil
		}

		err := s.stmt(x)
		if err != nil {
			return errors.Wrap(err, "stmt %d", i)
		}
	}

	return nil
}

func (s *Scope) stmt(x ast.Stmt) (err error) {
	switch x := x.(type) {
	case *ast.ConstDecl:
		for _, d := range x.Defs {
			if len(d.Dims) != 0 {
				return ir.NewUnsupported(d.Name, "array constants")
			}

			s.Syms[d.Name] = &binding{Const: d.Init, Scope: s}
		}
	case *ast.VarDecl:
		for _, d := range x.Defs {
			if len(d.Dims) != 0 {
				return ir.NewUnsupported(d.Name, "arrays")
			}

			a := s.add(ir.Alloc{}, d.Name)

			if d.Init != nil {
				v, err := s.expr(d.Init)
				if err != nil {
					return errors.Wrap(err, "var %v", d.Name)
				}

				s.add(ir.Store{Val: v, Addr: a}, "")
			}

			// bound after the initializer, so `int a = a;` sees the outer a
			s.Syms[d.Name] = &binding{Var: a}
		}
	case *ast.Assign:
		if len(x.Target.Index) != 0 {
			return ir.NewUnsupported(x.Target.Name, "array indexing")
		}

		b := s.lookup(x.Target.Name)

		switch {
		case b == nil:
			return ir.NewInternal(x.Target.Name, "unbound identifier")
		case b.Const != nil:
			return ir.NewInternal(x.Target.Name, "assignment to a constant")
		}

		v, err := s.expr(x.Value)
		if err != nil {
			return err
		}

		s.add(ir.Store{Val: v, Addr: b.Var}, "")
	case *ast.ExprStmt:
		if x.X == nil {
			return nil
		}

		_, err = s.expr(x.X)

		return err
	case *ast.Return:
		val := ir.Nil

		if x.Value != nil {
			val, err = s.expr(x.Value)
			if err != nil {
				return err
			}
		}

		s.add(ir.Return{Val: val}, "")
		s.done = true
	case *ast.Block:
		return s.scope(s).items(x.Items)
	case *ast.If:
		return ir.NewUnsupported("if", "control flow")
	case *ast.While:
		return ir.NewUnsupported("while", "control flow")
	case *ast.Break:
		return ir.NewUnsupported("break", "control flow")
	case *ast.Continue:
		return ir.NewUnsupported("continue", "control flow")
	default:
		return ir.NewInternal(nil, "unexpected statement %T", x)
	}

	return nil
}

func (s *Scope) expr(x ast.Expr) (v ir.Value, err error) {
	switch x := x.(type) {
	case *ast.Number:
		return s.NewValue(ir.Integer(x.Value), ""), nil
	case *ast.LVal:
		return s.ident(x)
	case *ast.Unary:
		v, err = s.expr(x.X)
		if err != nil {
			return ir.Nil, err
		}

		switch x.Op {
		case ast.Plus:
			return v, nil
		case ast.Minus:
			return s.binary(ir.Sub, s.zero(), v), nil
		case ast.Not:
			return s.binary(ir.Eq, v, s.zero()), nil
		default:
			return ir.Nil, ir.NewInternal(x.Op, "unexpected unary op")
		}
	case *ast.Binary:
		return s.binaryExpr(x)
	case *ast.Call:
		return ir.Nil, ir.NewUnsupported(x.Name, "function calls")
	case *ast.InitList:
		return ir.Nil, ir.NewUnsupported("{...}", "array initializers")
	default:
		return ir.Nil, ir.NewInternal(nil, "unexpected expression %T", x)
	}
}

func (s *Scope) binaryExpr(x *ast.Binary) (v ir.Value, err error) {
	l, err := s.expr(x.L)
	if err != nil {
		return ir.Nil, err
	}

	// both sides of && and || are always evaluated
	if x.Op == ast.And {
		l = s.binary(ir.NotEq, l, s.zero())
	}

	r, err := s.expr(x.R)
	if err != nil {
		return ir.Nil, err
	}

	switch x.Op {
	case ast.And:
		r = s.binary(ir.NotEq, r, s.zero())

		return s.binary(ir.And, l, r), nil
	case ast.Or:
		or := s.binary(ir.Or, l, r)

		return s.binary(ir.NotEq, or, s.zero()), nil
	}

	op, ok := binaryOps[x.Op]
	if !ok {
		return ir.Nil, ir.NewInternal(x.Op, "unexpected binary op")
	}

	return s.binary(op, l, r), nil
}

func (s *Scope) ident(x *ast.LVal) (ir.Value, error) {
	if len(x.Index) != 0 {
		return ir.Nil, ir.NewUnsupported(x.Name, "array indexing")
	}

	b := s.lookup(x.Name)
	if b == nil {
		return ir.Nil, ir.NewInternal(x.Name, "unbound identifier")
	}

	if b.Const == nil {
		return s.add(ir.Load{Addr: b.Var}, ""), nil
	}

	if s.expanding[b] {
		return ir.Nil, ir.NewInternal(x.Name, "constant defined in terms of itself")
	}

	s.expanding[b] = true
	defer delete(s.expanding, b)

	v, err := b.Scope.expr(b.Const)
	if err != nil {
		return ir.Nil, errors.Wrap(err, "const %v", x.Name)
	}

	return v, nil
}

var binaryOps = map[ast.BinaryOp]ir.Op{
	ast.Add:   ir.Add,
	ast.Sub:   ir.Sub,
	ast.Mul:   ir.Mul,
	ast.Div:   ir.Div,
	ast.Mod:   ir.Mod,
	ast.Lt:    ir.Lt,
	ast.Gt:    ir.Gt,
	ast.Le:    ir.Le,
	ast.Ge:    ir.Ge,
	ast.Eq:    ir.Eq,
	ast.NotEq: ir.NotEq,
}

func (fs *FuncScope) scope(prev *Scope) *Scope {
	return &Scope{
		FuncScope: fs,
		Prev:      prev,
		Syms:      map[string]*binding{},
	}
}

func (s *Scope) lookup(name string) *binding {
	for q := s; q != nil; q = q.Prev {
		if b, ok := q.Syms[name]; ok {
			return b
		}
	}

	return nil
}

// add creates an instruction and places it at the end of the current block.
func (fs *FuncScope) add(x any, name string) ir.Value {
	v := fs.NewValue(x, name)
	fs.Append(fs.bb, v)

	return v
}

func (fs *FuncScope) binary(op ir.Op, l, r ir.Value) ir.Value {
	return fs.add(ir.Binary{Op: op, L: l, R: r}, "")
}

// zero is a fresh literal 0.
func (fs *FuncScope) zero() ir.Value {
	return fs.NewValue(ir.Integer(0), "")
}
