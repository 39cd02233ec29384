// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package interp

import (
	"go/ast"
	"go/token"
	"strconv"

	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/fmterr"
	"github.com/gx-org/einloop/build/syntax"
)

type (
	// frame holds the current value of every index, by slot.
	frame []int

	evalFn func(fr frame) (values.Value, error)

	intFn func(fr frame) (int, error)

	// compiler turns expressions into closures. Names are resolved once,
	// when the closure is built.
	compiler struct {
		fset     *token.FileSet
		slots    map[string]int
		env      values.Env
		builtins map[string]values.Func
	}
)

func (c *compiler) errorf(node ast.Node, format string, a ...any) error {
	return fmterr.Errorf(c.fset, node, format, a...)
}

func (c *compiler) compile(expr ast.Expr) (evalFn, error) {
	switch e := expr.(type) {
	case *ast.Ident:
		return c.ident(e)
	case *ast.BasicLit:
		return c.literal(e)
	case *ast.ParenExpr:
		return c.compile(e.X)
	case *ast.UnaryExpr:
		return c.unary(e)
	case *ast.BinaryExpr:
		return c.binary(e)
	case *ast.CallExpr:
		return c.call(e)
	case *ast.SelectorExpr:
		return c.selector(e)
	case *ast.IndexExpr, *ast.IndexListExpr:
		return c.index(e)
	}
	return nil, c.errorf(expr, "%T not supported", expr)
}

func (c *compiler) compileAtom(expr ast.Expr) (func(frame) (values.Atom, error), error) {
	fn, err := c.compile(expr)
	if err != nil {
		return nil, err
	}
	return func(fr frame) (values.Atom, error) {
		v, err := fn(fr)
		if err != nil {
			return values.Atom{}, err
		}
		atom, ok := v.(values.Atom)
		if !ok {
			return values.Atom{}, c.errorf(expr, "%s is %s: want a number", syntax.Unprime(exprString(expr)), kindOf(v))
		}
		return atom, nil
	}, nil
}

func (c *compiler) ident(ident *ast.Ident) (evalFn, error) {
	if slot, ok := c.slots[ident.Name]; ok {
		return func(fr frame) (values.Value, error) {
			return values.UntypedInt(int64(fr[slot])), nil
		}, nil
	}
	val, err := c.lookup(ident)
	if err != nil {
		return nil, err
	}
	return func(frame) (values.Value, error) {
		return val, nil
	}, nil
}

func (c *compiler) lookup(ident *ast.Ident) (values.Value, error) {
	if val, ok := c.env.Lookup(ident.Name); ok {
		return val, nil
	}
	if fn, ok := c.builtins[ident.Name]; ok {
		return fn, nil
	}
	return nil, c.errorf(ident, "undefined: %s", syntax.Unprime(ident.Name))
}

func (c *compiler) literal(lit *ast.BasicLit) (evalFn, error) {
	var val values.Atom
	switch lit.Kind {
	case token.INT:
		i, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, c.errorf(lit, "invalid integer literal %s: %v", lit.Value, err)
		}
		val = values.UntypedInt(i)
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, c.errorf(lit, "invalid float literal %s: %v", lit.Value, err)
		}
		val = values.UntypedFloat(f)
	default:
		return nil, c.errorf(lit, "%s literal not supported", lit.Kind)
	}
	return func(frame) (values.Value, error) {
		return val, nil
	}, nil
}

func (c *compiler) unary(expr *ast.UnaryExpr) (evalFn, error) {
	x, err := c.compileAtom(expr.X)
	if err != nil {
		return nil, err
	}
	return func(fr frame) (values.Value, error) {
		xv, err := x(fr)
		if err != nil {
			return nil, err
		}
		r, err := unary(expr.Op, xv)
		if err != nil {
			return nil, c.errorf(expr, "%v", err)
		}
		return r, nil
	}, nil
}

func (c *compiler) binary(expr *ast.BinaryExpr) (evalFn, error) {
	x, err := c.compileAtom(expr.X)
	if err != nil {
		return nil, err
	}
	y, err := c.compileAtom(expr.Y)
	if err != nil {
		return nil, err
	}
	return func(fr frame) (values.Value, error) {
		xv, err := x(fr)
		if err != nil {
			return nil, err
		}
		yv, err := y(fr)
		if err != nil {
			return nil, err
		}
		r, err := binary(expr.Op, xv, yv)
		if err != nil {
			return nil, c.errorf(expr, "%v", err)
		}
		return r, nil
	}, nil
}

func (c *compiler) call(expr *ast.CallExpr) (evalFn, error) {
	name, ok := expr.Fun.(*ast.Ident)
	if !ok {
		return nil, c.errorf(expr.Fun, "cannot call %s: want a function name", exprString(expr.Fun))
	}
	val, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	fn, ok := val.(values.Func)
	if !ok {
		return nil, c.errorf(name, "cannot call %s: %s is %s", name.Name, name.Name, kindOf(val))
	}
	args := make([]evalFn, len(expr.Args))
	for i, arg := range expr.Args {
		if args[i], err = c.compile(arg); err != nil {
			return nil, err
		}
	}
	return func(fr frame) (values.Value, error) {
		vals := make([]values.Value, len(args))
		for i, arg := range args {
			var err error
			if vals[i], err = arg(fr); err != nil {
				return nil, err
			}
		}
		return fn(vals)
	}, nil
}

func (c *compiler) selector(expr *ast.SelectorExpr) (evalFn, error) {
	x, err := c.compile(expr.X)
	if err != nil {
		return nil, err
	}
	return func(fr frame) (values.Value, error) {
		xv, err := x(fr)
		if err != nil {
			return nil, err
		}
		st, ok := xv.(*values.Struct)
		if !ok {
			return nil, c.errorf(expr, "%s is %s: want a structure", exprString(expr.X), kindOf(xv))
		}
		field, err := st.Field(expr.Sel.Name)
		if err != nil {
			return nil, c.errorf(expr.Sel, "%v", err)
		}
		return field, nil
	}, nil
}

func (c *compiler) position(expr ast.Expr) (intFn, error) {
	if ident, ok := expr.(*ast.Ident); ok {
		if slot, ok := c.slots[ident.Name]; ok {
			return func(fr frame) (int, error) {
				return fr[slot], nil
			}, nil
		}
	}
	fn, err := c.compileAtom(expr)
	if err != nil {
		return nil, err
	}
	return func(fr frame) (int, error) {
		v, err := fn(fr)
		if err != nil {
			return 0, err
		}
		return int(v.Int()), nil
	}, nil
}

func (c *compiler) index(expr ast.Expr) (evalFn, error) {
	xExpr, idxExprs, _ := syntax.IndexParts(expr)
	x, err := c.compile(xExpr)
	if err != nil {
		return nil, err
	}
	idx := make([]intFn, len(idxExprs))
	for i, ie := range idxExprs {
		if idx[i], err = c.position(ie); err != nil {
			return nil, err
		}
	}
	return func(fr frame) (values.Value, error) {
		xv, err := x(fr)
		if err != nil {
			return nil, err
		}
		pos := make([]int, len(idx))
		for i, fn := range idx {
			if pos[i], err = fn(fr); err != nil {
				return nil, err
			}
		}
		switch xv := xv.(type) {
		case values.Array:
			off, err := xv.Offset(pos)
			if err != nil {
				return nil, c.errorf(expr, "%s: %v", exprString(xExpr), err)
			}
			return xv.AtFlat(off), nil
		case *values.Slice:
			if len(pos) != 1 {
				return nil, c.errorf(expr, "cannot index %s with %d indices", exprString(xExpr), len(pos))
			}
			el, err := xv.Elem(pos[0])
			if err != nil {
				return nil, c.errorf(expr, "%s: %v", exprString(xExpr), err)
			}
			return el, nil
		}
		return nil, c.errorf(expr, "cannot index %s: %s is %s", exprString(xExpr), exprString(xExpr), kindOf(xv))
	}, nil
}
