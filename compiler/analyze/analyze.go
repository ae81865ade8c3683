package analyze

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/ast"
)

type (
	// Error is a name resolution or declaration misuse found before lowering.
	Error struct {
		Name string
		Pos  int
		Msg  string
	}

	scope struct {
		Prev *scope

		Names map[string]kind
	}

	kind int

	checker struct {
		funcs map[string]*ast.FuncDef
		fn    *ast.FuncDef
	}
)

const (
	_ kind = iota
	kindConst
	kindVar
)

// Runtime are the library functions SysY programs may call without declaring them.
var Runtime = []string{
	"getint", "getch", "getarray",
	"putint", "putch", "putarray",
	"starttime", "stoptime",
}

// Check validates that every name is declared before use,
// declared once per scope, and that constants are neither
// assigned nor initialized from variables.
func Check(ctx context.Context, u *ast.CompUnit) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "analyze", "funcs", len(u.Funcs), "globals", len(u.Globals))
	defer tr.Finish("err", &err)

	c := &checker{
		funcs: map[string]*ast.FuncDef{},
	}

	for _, name := range Runtime {
		c.funcs[name] = nil
	}

	global := &scope{Names: map[string]kind{}}

	for _, d := range u.Globals {
		err = c.decl(global, d)
		if err != nil {
			return errors.Wrap(err, "global")
		}
	}

	for _, f := range u.Funcs {
		if _, ok := c.funcs[f.Name]; ok {
			return newError(f.Name, f.Pos, "function redeclared")
		}

		if _, ok := global.Names[f.Name]; ok {
			return newError(f.Name, f.Pos, "function name is already a global")
		}

		c.funcs[f.Name] = f

		err = c.funcDef(global, f)
		if err != nil {
			return errors.Wrap(err, "func %v", f.Name)
		}
	}

	tr.Printw("checked")

	return nil
}

func (c *checker) funcDef(global *scope, f *ast.FuncDef) error {
	c.fn = f

	s := global.sub()

	for _, a := range f.Params {
		err := s.define(a.Name, a.Pos, kindVar)
		if err != nil {
			return err
		}

		for _, d := range a.Dims {
			err = c.constExpr(s, d)
			if err != nil {
				return err
			}
		}
	}

	// parameters and the body share the outermost function scope
	return c.items(s, f.Body.Items)
}

func (c *checker) items(s *scope, items []ast.Stmt) error {
	for i, x := range items {
		err := c.stmt(s, x)
		if err != nil {
			return errors.Wrap(err, "stmt %d", i)
		}
	}

	return nil
}

func (c *checker) stmt(s *scope, x ast.Stmt) (err error) {
	switch x := x.(type) {
	case *ast.ConstDecl, *ast.VarDecl:
		return c.decl(s, x)
	case *ast.Block:
		return c.items(s.sub(), x.Items)
	case *ast.Assign:
		k, err := s.lookup(x.Target.Name, x.Target.Pos)
		if err != nil {
			return err
		}

		if k == kindConst {
			return newError(x.Target.Name, x.Target.Pos, "cannot assign to a constant")
		}

		err = c.exprs(s, x.Target.Index...)
		if err != nil {
			return err
		}

		return c.expr(s, x.Value)
	case *ast.ExprStmt:
		if x.X == nil {
			return nil
		}

		return c.expr(s, x.X)
	case *ast.Return:
		switch {
		case x.Value == nil && c.fn.Type != ast.Void:
			return newError(c.fn.Name, x.Pos, "missing return value")
		case x.Value != nil && c.fn.Type == ast.Void:
			return newError(c.fn.Name, x.Pos, "void function returns a value")
		case x.Value == nil:
			return nil
		}

		return c.expr(s, x.Value)
	case *ast.If:
		err = c.expr(s, x.Cond)
		if err != nil {
			return err
		}

		err = c.stmt(s.sub(), x.Then)
		if err != nil {
			return err
		}

		if x.Else == nil {
			return nil
		}

		return c.stmt(s.sub(), x.Else)
	case *ast.While:
		err = c.expr(s, x.Cond)
		if err != nil {
			return err
		}

		return c.stmt(s.sub(), x.Body)
	case *ast.Break, *ast.Continue:
		return nil
	default:
		return errors.New("unexpected statement: %T", x)
	}
}

func (c *checker) decl(s *scope, x ast.Stmt) (err error) {
	switch x := x.(type) {
	case *ast.ConstDecl:
		for _, d := range x.Defs {
			err = c.constExpr(s, d.Dims...)
			if err != nil {
				return err
			}

			err = c.constExpr(s, d.Init)
			if err != nil {
				return errors.Wrap(err, "const %v", d.Name)
			}

			// the name is visible only after its own initializer
			err = s.define(d.Name, d.Pos, kindConst)
			if err != nil {
				return err
			}
		}
	case *ast.VarDecl:
		for _, d := range x.Defs {
			err = c.constExpr(s, d.Dims...)
			if err != nil {
				return err
			}

			if d.Init != nil {
				err = c.expr(s, d.Init)
				if err != nil {
					return errors.Wrap(err, "var %v", d.Name)
				}
			}

			err = s.define(d.Name, d.Pos, kindVar)
			if err != nil {
				return err
			}
		}
	default:
		return errors.New("unexpected declaration: %T", x)
	}

	return nil
}

func (c *checker) exprs(s *scope, xs ...ast.Expr) error {
	for _, x := range xs {
		err := c.expr(s, x)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *checker) expr(s *scope, x ast.Expr) error {
	return walk(x, func(x ast.Expr) error {
		switch x := x.(type) {
		case *ast.LVal:
			_, err := s.lookup(x.Name, x.Pos)
			return err
		case *ast.Call:
			if _, ok := c.funcs[x.Name]; !ok {
				return newError(x.Name, x.Pos, "undefined function")
			}
		}

		return nil
	})
}

// constExpr checks that xs refer to constants only.
func (c *checker) constExpr(s *scope, xs ...ast.Expr) error {
	for _, x := range xs {
		err := walk(x, func(x ast.Expr) error {
			switch x := x.(type) {
			case *ast.LVal:
				k, err := s.lookup(x.Name, x.Pos)
				if err != nil {
					return err
				}

				if k != kindConst {
					return newError(x.Name, x.Pos, "variable in constant expression")
				}
			case *ast.Call:
				return newError(x.Name, x.Pos, "call in constant expression")
			}

			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// walk calls fn for x and every nested expression, parents first.
func walk(x ast.Expr, fn func(ast.Expr) error) error {
	if x == nil {
		return nil
	}

	err := fn(x)
	if err != nil {
		return err
	}

	var sub []ast.Expr

	switch x := x.(type) {
	case *ast.Number:
	case *ast.LVal:
		sub = x.Index
	case *ast.Unary:
		sub = []ast.Expr{x.X}
	case *ast.Binary:
		sub = []ast.Expr{x.L, x.R}
	case *ast.Call:
		sub = x.Args
	case *ast.InitList:
		sub = x.Items
	default:
		return errors.New("unexpected expression: %T", x)
	}

	for _, y := range sub {
		err = walk(y, fn)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *scope) sub() *scope {
	return &scope{
		Prev:  s,
		Names: map[string]kind{},
	}
}

func (s *scope) define(name string, pos int, k kind) error {
	if _, ok := s.Names[name]; ok {
		return newError(name, pos, "redeclared in this block")
	}

	s.Names[name] = k

	return nil
}

func (s *scope) lookup(name string, pos int) (kind, error) {
	for q := s; q != nil; q = q.Prev {
		if k, ok := q.Names[name]; ok {
			return k, nil
		}
	}

	return 0, newError(name, pos, "undefined")
}

func newError(name string, pos int, msg string) Error {
	return Error{
		Name: name,
		Pos:  pos,
		Msg:  msg,
	}
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Msg)
}
