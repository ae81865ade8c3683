package parse

import (
	"context"
	"fmt"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler/ast"
)

type (
	parser struct {
		name string
		b    []byte

		ts []token
	}

	SyntaxError struct {
		File string
		Pos  int
		Line int
		Col  int
		Msg  string
	}
)

func ParseFile(ctx context.Context, name string) (*ast.CompUnit, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	return Parse(ctx, name, data)
}

// Parse parses a whole SysY compilation unit.
func Parse(ctx context.Context, name string, text []byte) (u *ast.CompUnit, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	p := &parser{
		name: name,
		b:    text,
	}

	p.ts, err = p.lex()
	if err != nil {
		return nil, err
	}

	tr.V("tokens").Printw("lexed", "tokens", len(p.ts))

	u, err = p.compUnit()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func (p *parser) compUnit() (u *ast.CompUnit, err error) {
	u = &ast.CompUnit{}

	for i := 0; p.ts[i].Kind != tEOF; {
		if p.is(i, "const") || p.is(i+2, "[") || p.is(i+2, "=") || p.is(i+2, ",") || p.is(i+2, ";") {
			var d ast.Stmt

			d, i, err = p.decl(i)
			if err != nil {
				return nil, err
			}

			u.Globals = append(u.Globals, d)

			continue
		}

		var f *ast.FuncDef

		f, i, err = p.funcDef(i)
		if err != nil {
			return nil, err
		}

		u.Funcs = append(u.Funcs, f)
	}

	return u, nil
}

func (p *parser) funcDef(st int) (f *ast.FuncDef, i int, err error) {
	f = &ast.FuncDef{}

	f.Type, i, err = p.btype(st, true)
	if err != nil {
		return nil, st, err
	}

	f.Name, i, err = p.ident(i)
	if err != nil {
		return nil, st, err
	}

	i, err = p.expect(i, "(")
	if err != nil {
		return nil, st, err
	}

	for !p.is(i, ")") {
		if len(f.Params) != 0 {
			i, err = p.expect(i, ",")
			if err != nil {
				return nil, st, err
			}
		}

		var a *ast.Param

		a, i, err = p.param(i)
		if err != nil {
			return nil, st, err
		}

		f.Params = append(f.Params, a)
	}

	i++ // )

	f.Body, i, err = p.block(i)
	if err != nil {
		return nil, st, errors.Wrap(err, "func %v", f.Name)
	}

	f.Base = p.base(st, i)

	return f, i, nil
}

func (p *parser) param(st int) (a *ast.Param, i int, err error) {
	a = &ast.Param{}

	a.Type, i, err = p.btype(st, false)
	if err != nil {
		return nil, st, err
	}

	a.Name, i, err = p.ident(i)
	if err != nil {
		return nil, st, err
	}

	if p.is(i, "[") {
		i, err = p.expect(i+1, "]")
		if err != nil {
			return nil, st, err
		}

		a.Array = true

		a.Dims, i, err = p.dims(i)
		if err != nil {
			return nil, st, err
		}
	}

	a.Base = p.base(st, i)

	return a, i, nil
}

func (p *parser) block(st int) (b *ast.Block, i int, err error) {
	i, err = p.expect(st, "{")
	if err != nil {
		return nil, st, err
	}

	b = &ast.Block{}

	for !p.is(i, "}") {
		if p.ts[i].Kind == tEOF {
			return nil, st, p.errorf(p.ts[i].Pos, "unexpected end of file, expected }")
		}

		var s ast.Stmt

		if p.is(i, "const") || p.is(i, "int") {
			s, i, err = p.decl(i)
		} else {
			s, i, err = p.stmt(i)
		}

		if err != nil {
			return nil, st, err
		}

		b.Items = append(b.Items, s)
	}

	i++ // }

	b.Base = p.base(st, i)

	return b, i, nil
}

func (p *parser) decl(st int) (d ast.Stmt, i int, err error) {
	i = st

	if p.is(i, "const") {
		c := &ast.ConstDecl{}

		c.Type, i, err = p.btype(i+1, false)
		if err != nil {
			return nil, st, err
		}

		for {
			var def *ast.ConstDef

			def, i, err = p.constDef(i)
			if err != nil {
				return nil, st, err
			}

			c.Defs = append(c.Defs, def)

			if !p.is(i, ",") {
				break
			}

			i++
		}

		i, err = p.expect(i, ";")
		if err != nil {
			return nil, st, err
		}

		c.Base = p.base(st, i)

		return c, i, nil
	}

	v := &ast.VarDecl{}

	v.Type, i, err = p.btype(i, false)
	if err != nil {
		return nil, st, err
	}

	for {
		var def *ast.VarDef

		def, i, err = p.varDef(i)
		if err != nil {
			return nil, st, err
		}

		v.Defs = append(v.Defs, def)

		if !p.is(i, ",") {
			break
		}

		i++
	}

	i, err = p.expect(i, ";")
	if err != nil {
		return nil, st, err
	}

	v.Base = p.base(st, i)

	return v, i, nil
}

func (p *parser) constDef(st int) (d *ast.ConstDef, i int, err error) {
	d = &ast.ConstDef{}

	d.Name, i, err = p.ident(st)
	if err != nil {
		return nil, st, err
	}

	d.Dims, i, err = p.dims(i)
	if err != nil {
		return nil, st, err
	}

	i, err = p.expect(i, "=")
	if err != nil {
		return nil, st, err
	}

	d.Init, i, err = p.initVal(i)
	if err != nil {
		return nil, st, err
	}

	d.Base = p.base(st, i)

	return d, i, nil
}

func (p *parser) varDef(st int) (d *ast.VarDef, i int, err error) {
	d = &ast.VarDef{}

	d.Name, i, err = p.ident(st)
	if err != nil {
		return nil, st, err
	}

	d.Dims, i, err = p.dims(i)
	if err != nil {
		return nil, st, err
	}

	if p.is(i, "=") {
		d.Init, i, err = p.initVal(i + 1)
		if err != nil {
			return nil, st, err
		}
	}

	d.Base = p.base(st, i)

	return d, i, nil
}

func (p *parser) dims(st int) (ds []ast.Expr, i int, err error) {
	i = st

	for p.is(i, "[") {
		var x ast.Expr

		x, i, err = p.expr(i + 1)
		if err != nil {
			return nil, st, err
		}

		i, err = p.expect(i, "]")
		if err != nil {
			return nil, st, err
		}

		ds = append(ds, x)
	}

	return ds, i, nil
}

func (p *parser) initVal(st int) (x ast.Expr, i int, err error) {
	if !p.is(st, "{") {
		return p.expr(st)
	}

	l := &ast.InitList{}
	i = st + 1

	for !p.is(i, "}") {
		if len(l.Items) != 0 {
			i, err = p.expect(i, ",")
			if err != nil {
				return nil, st, err
			}
		}

		var y ast.Expr

		y, i, err = p.initVal(i)
		if err != nil {
			return nil, st, err
		}

		l.Items = append(l.Items, y)
	}

	i++ // }

	l.Base = p.base(st, i)

	return l, i, nil
}

func (p *parser) stmt(st int) (s ast.Stmt, i int, err error) {
	t := p.ts[st]

	switch {
	case p.is(st, "{"):
		return p.block(st)
	case p.is(st, ";"):
		return &ast.ExprStmt{Base: p.base(st, st+1)}, st + 1, nil
	case p.is(st, "return"):
		r := &ast.Return{}
		i = st + 1

		if !p.is(i, ";") {
			r.Value, i, err = p.expr(i)
			if err != nil {
				return nil, st, err
			}
		}

		i, err = p.expect(i, ";")
		if err != nil {
			return nil, st, err
		}

		r.Base = p.base(st, i)

		return r, i, nil
	case p.is(st, "if"):
		x := &ast.If{}

		x.Cond, i, err = p.paren(st + 1)
		if err != nil {
			return nil, st, err
		}

		x.Then, i, err = p.stmt(i)
		if err != nil {
			return nil, st, err
		}

		if p.is(i, "else") {
			x.Else, i, err = p.stmt(i + 1)
			if err != nil {
				return nil, st, err
			}
		}

		x.Base = p.base(st, i)

		return x, i, nil
	case p.is(st, "while"):
		x := &ast.While{}

		x.Cond, i, err = p.paren(st + 1)
		if err != nil {
			return nil, st, err
		}

		x.Body, i, err = p.stmt(i)
		if err != nil {
			return nil, st, err
		}

		x.Base = p.base(st, i)

		return x, i, nil
	case p.is(st, "break"), p.is(st, "continue"):
		i, err = p.expect(st+1, ";")
		if err != nil {
			return nil, st, err
		}

		if t.Text == "break" {
			return &ast.Break{Base: p.base(st, i)}, i, nil
		}

		return &ast.Continue{Base: p.base(st, i)}, i, nil
	}

	x, i, err := p.expr(st)
	if err != nil {
		return nil, st, err
	}

	if p.is(i, "=") {
		lv, ok := x.(*ast.LVal)
		if !ok {
			return nil, st, p.errorf(p.ts[i].Pos, "cannot assign to %s", p.text(st, i))
		}

		a := &ast.Assign{Target: lv}

		a.Value, i, err = p.expr(i + 1)
		if err != nil {
			return nil, st, err
		}

		i, err = p.expect(i, ";")
		if err != nil {
			return nil, st, err
		}

		a.Base = p.base(st, i)

		return a, i, nil
	}

	i, err = p.expect(i, ";")
	if err != nil {
		return nil, st, err
	}

	return &ast.ExprStmt{Base: p.base(st, i), X: x}, i, nil
}

func (p *parser) paren(st int) (x ast.Expr, i int, err error) {
	i, err = p.expect(st, "(")
	if err != nil {
		return nil, st, err
	}

	x, i, err = p.expr(i)
	if err != nil {
		return nil, st, err
	}

	i, err = p.expect(i, ")")
	if err != nil {
		return nil, st, err
	}

	return x, i, nil
}

func (p *parser) expr(st int) (x ast.Expr, i int, err error) {
	return p.binary(st, 1)
}

// binary parses operators of precedence prec and higher. All of them are left associative.
func (p *parser) binary(st int, prec int) (x ast.Expr, i int, err error) {
	x, i, err = p.unary(st)
	if err != nil {
		return nil, st, err
	}

	for {
		op, ok := binaryOp(p.ts[i])
		if !ok || op.Precedence() < prec {
			return x, i, nil
		}

		var y ast.Expr

		y, i, err = p.binary(i+1, op.Precedence()+1)
		if err != nil {
			return nil, st, err
		}

		x = &ast.Binary{
			Base: p.base(st, i),
			Op:   op,
			L:    x,
			R:    y,
		}
	}
}

func (p *parser) unary(st int) (x ast.Expr, i int, err error) {
	var op ast.UnaryOp

	switch {
	case p.is(st, "+"):
		op = ast.Plus
	case p.is(st, "-"):
		op = ast.Minus
	case p.is(st, "!"):
		op = ast.Not
	default:
		return p.primary(st)
	}

	x, i, err = p.unary(st + 1)
	if err != nil {
		return nil, st, err
	}

	return &ast.Unary{
		Base: p.base(st, i),
		Op:   op,
		X:    x,
	}, i, nil
}

func (p *parser) primary(st int) (x ast.Expr, i int, err error) {
	t := p.ts[st]

	switch {
	case p.is(st, "("):
		return p.paren(st)
	case t.Kind == tNumber:
		return &ast.Number{Base: p.base(st, st+1), Value: t.Num}, st + 1, nil
	case t.Kind == tIdent && !keywords[t.Text]:
	case t.Kind == tEOF:
		return nil, st, p.errorf(t.Pos, "unexpected end of file, expected expression")
	default:
		return nil, st, p.errorf(t.Pos, "unexpected %q, expected expression", t.Text)
	}

	i = st + 1

	if p.is(i, "(") {
		c := &ast.Call{Name: t.Text}
		i++

		for !p.is(i, ")") {
			if len(c.Args) != 0 {
				i, err = p.expect(i, ",")
				if err != nil {
					return nil, st, err
				}
			}

			var a ast.Expr

			a, i, err = p.expr(i)
			if err != nil {
				return nil, st, err
			}

			c.Args = append(c.Args, a)
		}

		i++ // )

		c.Base = p.base(st, i)

		return c, i, nil
	}

	lv := &ast.LVal{Name: t.Text}

	lv.Index, i, err = p.dims(i)
	if err != nil {
		return nil, st, err
	}

	lv.Base = p.base(st, i)

	return lv, i, nil
}

func binaryOp(t token) (ast.BinaryOp, bool) {
	if t.Kind != tPunct {
		return 0, false
	}

	switch t.Text {
	case "+":
		return ast.Add, true
	case "-":
		return ast.Sub, true
	case "*":
		return ast.Mul, true
	case "/":
		return ast.Div, true
	case "%":
		return ast.Mod, true
	case "<":
		return ast.Lt, true
	case ">":
		return ast.Gt, true
	case "<=":
		return ast.Le, true
	case ">=":
		return ast.Ge, true
	case "==":
		return ast.Eq, true
	case "!=":
		return ast.NotEq, true
	case "&&":
		return ast.And, true
	case "||":
		return ast.Or, true
	}

	return 0, false
}

func (p *parser) btype(st int, void bool) (t ast.BType, i int, err error) {
	switch {
	case p.is(st, "int"):
		return ast.Int, st + 1, nil
	case void && p.is(st, "void"):
		return ast.Void, st + 1, nil
	}

	return 0, st, p.unexpected(st, "type")
}

func (p *parser) ident(st int) (string, int, error) {
	t := p.ts[st]

	if t.Kind != tIdent || keywords[t.Text] {
		return "", st, p.unexpected(st, "identifier")
	}

	return t.Text, st + 1, nil
}

func (p *parser) expect(st int, s string) (int, error) {
	if !p.is(st, s) {
		return st, p.unexpected(st, fmt.Sprintf("%q", s))
	}

	return st + 1, nil
}

// is reports whether token i is the punctuation or keyword s.
func (p *parser) is(i int, s string) bool {
	if i >= len(p.ts) {
		return false
	}

	t := p.ts[i]

	return (t.Kind == tPunct || t.Kind == tIdent) && t.Text == s
}

func (p *parser) unexpected(i int, what string) error {
	t := p.ts[i]

	if t.Kind == tEOF {
		return p.errorf(t.Pos, "unexpected end of file, expected %s", what)
	}

	return p.errorf(t.Pos, "unexpected %q, expected %s", t.Text, what)
}

// base converts token range [st, end) into a byte range.
func (p *parser) base(st, end int) ast.Base {
	return ast.Base{
		Pos: p.ts[st].Pos,
		End: p.ts[end-1].End,
	}
}

func (p *parser) text(st, end int) string {
	b := p.base(st, end)

	return string(p.b[b.Pos:b.End])
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	line, col := LineCol(p.b, pos)

	return SyntaxError{
		File: p.name,
		Pos:  pos,
		Line: line,
		Col:  col,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// LineCol converts byte offset pos into 1-based line and column.
func LineCol(b []byte, pos int) (line, col int) {
	line, col = 1, 1

	for i := 0; i < pos && i < len(b); i++ {
		if b[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}

func (e SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
	}

	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Col, e.Msg)
}
