package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/sysy/compiler/ast"
)

// Format prints x back as SysY source. x is a CompUnit, FuncDef, statement or expression.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.CompUnit:
		return formatUnit(ctx, b, x, d)
	case *ast.FuncDef:
		return formatFunc(ctx, b, x, d)
	case *ast.Number, *ast.LVal, *ast.Unary, *ast.Binary, *ast.Call, *ast.InitList:
		return formatExpr(ctx, b, x, 0)
	default:
		return formatStmt(ctx, b, x, d)
	}
}

func formatUnit(ctx context.Context, b []byte, x *ast.CompUnit, d int) (_ []byte, err error) {
	for _, g := range x.Globals {
		b, err = formatStmt(ctx, b, g, d)
		if err != nil {
			return nil, errors.Wrap(err, "global")
		}
	}

	for i, f := range x.Funcs {
		if i != 0 || len(x.Globals) != 0 {
			b = append(b, '\n')
		}

		b, err = formatFunc(ctx, b, f, d)
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, x *ast.FuncDef, d int) (_ []byte, err error) {
	b = app(b, d, "%v %v(", x.Type, x.Name)

	for i, a := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v %v", a.Type, a.Name)

		if a.Array {
			b = append(b, "[]"...)
		}

		b, err = formatDims(ctx, b, a.Dims)
		if err != nil {
			return nil, errors.Wrap(err, "param %v", a.Name)
		}
	}

	b = append(b, ") "...)

	b, err = formatBlock(ctx, b, x.Body, d)
	if err != nil {
		return nil, errors.Wrap(err, "body")
	}

	b = append(b, '\n')

	return b, nil
}

// formatBlock prints braces and items. The caller indents the opening brace.
func formatBlock(ctx context.Context, b []byte, x *ast.Block, d int) (_ []byte, err error) {
	b = append(b, "{\n"...)

	for i, s := range x.Items {
		b, err = formatStmt(ctx, b, s, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "stmt %d", i)
		}
	}

	b = app(b, d, "}")

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, x ast.Stmt, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.ConstDecl:
		b = app(b, d, "const %v ", x.Type)

		for i, def := range x.Defs {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatDef(ctx, b, def.Name, def.Dims, def.Init)
			if err != nil {
				return nil, errors.Wrap(err, "const %v", def.Name)
			}
		}

		b = append(b, ";\n"...)
	case *ast.VarDecl:
		b = app(b, d, "%v ", x.Type)

		for i, def := range x.Defs {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatDef(ctx, b, def.Name, def.Dims, def.Init)
			if err != nil {
				return nil, errors.Wrap(err, "var %v", def.Name)
			}
		}

		b = append(b, ";\n"...)
	case *ast.Assign:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, x.Target, 0)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}

		b = append(b, " = "...)

		b, err = formatExpr(ctx, b, x.Value, 0)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}

		b = append(b, ";\n"...)
	case *ast.ExprStmt:
		b = app(b, d, "")

		if x.X != nil {
			b, err = formatExpr(ctx, b, x.X, 0)
			if err != nil {
				return nil, errors.Wrap(err, "expr")
			}
		}

		b = append(b, ";\n"...)
	case *ast.Return:
		if x.Value == nil {
			b = app(b, d, "return;\n")
			break
		}

		b = app(b, d, "return ")

		b, err = formatExpr(ctx, b, x.Value, 0)
		if err != nil {
			return nil, errors.Wrap(err, "expr")
		}

		b = append(b, ";\n"...)
	case *ast.Block:
		b = app(b, d, "")

		b, err = formatBlock(ctx, b, x, d)
		if err != nil {
			return nil, err
		}

		b = append(b, '\n')
	case *ast.If:
		b = app(b, d, "if (")

		b, err = formatExpr(ctx, b, x.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ")\n"...)

		b, err = formatStmt(ctx, b, x.Then, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		if x.Else != nil {
			b = app(b, d, "else\n")

			b, err = formatStmt(ctx, b, x.Else, d+1)
			if err != nil {
				return nil, errors.Wrap(err, "else")
			}
		}
	case *ast.While:
		b = app(b, d, "while (")

		b, err = formatExpr(ctx, b, x.Cond, 0)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ")\n"...)

		b, err = formatStmt(ctx, b, x.Body, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	case *ast.Break:
		b = app(b, d, "break;\n")
	case *ast.Continue:
		b = app(b, d, "continue;\n")
	default:
		return nil, errors.New("unsupported stmt: %T", x)
	}

	return b, nil
}

func formatDef(ctx context.Context, b []byte, name string, dims []ast.Expr, init ast.Expr) (_ []byte, err error) {
	b = append(b, name...)

	b, err = formatDims(ctx, b, dims)
	if err != nil {
		return nil, err
	}

	if init == nil {
		return b, nil
	}

	b = append(b, " = "...)

	return formatExpr(ctx, b, init, 0)
}

func formatDims(ctx context.Context, b []byte, dims []ast.Expr) (_ []byte, err error) {
	for _, x := range dims {
		b = append(b, '[')

		b, err = formatExpr(ctx, b, x, 0)
		if err != nil {
			return nil, errors.Wrap(err, "dim")
		}

		b = append(b, ']')
	}

	return b, nil
}

// formatExpr prints x, parenthesized if it binds weaker than prec.
func formatExpr(ctx context.Context, b []byte, x ast.Expr, prec int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Number:
		b = hfmt.Appendf(b, "%d", x.Value)
	case *ast.LVal:
		b = append(b, x.Name...)

		b, err = formatDims(ctx, b, x.Index)
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}
	case *ast.Unary:
		b = append(b, x.Op.String()...)

		if y, ok := x.X.(*ast.Unary); ok && y.Op == x.Op && x.Op != ast.Not {
			// keep `- -x` from becoming a decrement
			b = append(b, ' ')
		}

		b, err = formatExpr(ctx, b, x.X, 7)
		if err != nil {
			return nil, errors.Wrap(err, "operand")
		}
	case *ast.Binary:
		p := x.Op.Precedence()

		if p < prec {
			b = append(b, '(')
		}

		b, err = formatExpr(ctx, b, x.L, p)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %v ", x.Op)

		b, err = formatExpr(ctx, b, x.R, p+1)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		if p < prec {
			b = append(b, ')')
		}
	case *ast.Call:
		b = hfmt.Appendf(b, "%s(", x.Name)

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a, 0)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	case *ast.InitList:
		b = append(b, '{')

		for i, y := range x.Items {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, y, 0)
			if err != nil {
				return nil, errors.Wrap(err, "item %d", i)
			}
		}

		b = append(b, '}')
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
