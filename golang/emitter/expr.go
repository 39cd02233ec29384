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

package emitter

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
)

// mathFuncs maps builtin functions to their implementation in the math
// package.
var mathFuncs = map[string]string{
	"log":  "math.Log",
	"exp":  "math.Exp",
	"sqrt": "math.Sqrt",
	"sin":  "math.Sin",
	"cos":  "math.Cos",
	"tanh": "math.Tanh",
	"pow":  "math.Pow",
	"abs":  "math.Abs",
}

var conversions = map[string]bool{
	"float64": true,
	"float32": true,
	"int64":   true,
	"int32":   true,
}

func (e *emitter) isIndex(name string) bool {
	_, ok := e.prog.Indices.Load(name)
	return ok
}

func (e *emitter) addParam(name string, kind paramKind, rank int) *param {
	p, ok := e.byName[name]
	if !ok {
		p = &param{name: name, kind: kind, rank: rank}
		e.byName[name] = p
		e.params = append(e.params, p)
		return p
	}
	p.rank = max(p.rank, rank)
	return p
}

// chain returns the identifier at the base of an index chain and the total
// number of indices of the chain.
func chain(expr ast.Expr) (ast.Expr, int) {
	n := 0
	for {
		x, indices, ok := syntax.IndexParts(expr)
		if !ok {
			return expr, n
		}
		n += len(indices)
		expr = x
	}
}

// collectParams lists the parameters of the generated function: the arrays,
// scalars, and functions of the right-hand side and the names used by
// explicit bounds.
func (e *emitter) collectParams() error {
	var err error
	ast.Inspect(e.prog.Assign.RHS, func(node ast.Node) bool {
		if err != nil {
			return false
		}
		switch node := node.(type) {
		case *ast.IndexExpr, *ast.IndexListExpr:
			base, rank := chain(node.(ast.Expr))
			ident, ok := base.(*ast.Ident)
			if !ok {
				err = e.errorf(base, "cannot lower %s: only plain arrays can be indexed", exprString(base))
				return false
			}
			e.addParam(ident.Name, arrayParam, rank)
		case *ast.CallExpr:
			fun, ok := node.Fun.(*ast.Ident)
			if !ok {
				err = e.errorf(node.Fun, "cannot lower %s: want a function name", exprString(node.Fun))
				return false
			}
			if _, ok := mathFuncs[fun.Name]; ok {
				e.imports["math"] = true
			} else if !conversions[fun.Name] {
				e.addParam(fun.Name, funcParam, len(node.Args))
			}
		case *ast.SelectorExpr:
			err = e.errorf(node, "cannot lower field access %s", exprString(node))
			return false
		case *ast.Ident:
			if e.isIndex(node.Name) {
				return false
			}
			if _, ok := e.byName[node.Name]; ok {
				return false
			}
			if _, ok := mathFuncs[node.Name]; ok || conversions[node.Name] {
				return false
			}
			e.addParam(node.Name, scalarParam, 0)
		}
		return true
	})
	if err != nil {
		return err
	}
	tgt := e.prog.Target
	if p, ok := e.byName[tgt.Name.Name]; ok {
		if tgt.Define {
			return e.errorf(tgt.Name, "cannot lower %s: %s is both the output and an input", tgt, tgt.Name.Name)
		}
		if p.kind != arrayParam || p.rank != len(tgt.Indices) {
			return e.errorf(tgt.Name, "cannot lower %s: %s is used with different ranks", tgt, tgt.Name.Name)
		}
		e.removeParam(tgt.Name.Name)
	}
	for _, bnd := range e.prog.Catalog.Bindings() {
		bound, ok := bnd.Axis.(*ir.BoundAxis)
		if !ok {
			continue
		}
		for _, expr := range []ast.Expr{bound.Lo, bound.Hi} {
			if expr == nil {
				continue
			}
			ast.Inspect(expr, func(node ast.Node) bool {
				if ident, ok := node.(*ast.Ident); ok {
					if p, ok := e.byName[ident.Name]; ok && p.kind == scalarParam {
						err = e.errorf(ident, "cannot lower %s: used both as a bound and as an element", ident.Name)
						return false
					}
					e.addParam(ident.Name, intParam, 0)
				}
				return true
			})
		}
	}
	return err
}

func (e *emitter) removeParam(name string) {
	delete(e.byName, name)
	for i, p := range e.params {
		if p.name == name {
			e.params = append(e.params[:i], e.params[i+1:]...)
			return
		}
	}
}

func exprString(expr ast.Expr) string {
	return syntax.Unprime(types.ExprString(expr))
}

// index renders an expression used as a position in an array or a bound.
func (e *emitter) index(expr ast.Expr) (string, error) {
	switch expr := expr.(type) {
	case *ast.Ident:
		if s, ok := e.subst[expr.Name]; ok {
			return s, nil
		}
		if p, ok := e.byName[expr.Name]; ok && p.kind == scalarParam {
			return "int(" + expr.Name + ")", nil
		}
		return expr.Name, nil
	case *ast.BasicLit:
		if expr.Kind != token.INT {
			return "", e.errorf(expr, "%s is not an integer", expr.Value)
		}
		return expr.Value, nil
	case *ast.ParenExpr:
		x, err := e.index(expr.X)
		return "(" + x + ")", err
	case *ast.UnaryExpr:
		x, err := e.index(expr.X)
		return expr.Op.String() + x, err
	case *ast.BinaryExpr:
		x, err := e.index(expr.X)
		if err != nil {
			return "", err
		}
		y, err := e.index(expr.Y)
		return x + " " + expr.Op.String() + " " + y, err
	}
	return "", e.errorf(expr, "cannot lower %s as a position", exprString(expr))
}

// ref renders an index chain, e.g. B[i][j] for B[i,j].
func (e *emitter) ref(expr ast.Expr) (string, error) {
	x, indices, ok := syntax.IndexParts(expr)
	if !ok {
		ident, isIdent := expr.(*ast.Ident)
		if !isIdent {
			return "", e.errorf(expr, "cannot lower %s", exprString(expr))
		}
		return ident.Name, nil
	}
	s, err := e.ref(x)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(s)
	for _, idx := range indices {
		pos, err := e.index(idx)
		if err != nil {
			return "", err
		}
		b.WriteString("[" + pos + "]")
	}
	return b.String(), nil
}

func (e *emitter) elemConv(s string) string {
	return e.opts.Elem + "(" + s + ")"
}

func (e *emitter) floatArg(s string) string {
	if e.opts.Elem == "float64" {
		return s
	}
	return "float64(" + s + ")"
}

// value renders an expression computing an element.
func (e *emitter) value(expr ast.Expr) (string, error) {
	switch expr := expr.(type) {
	case *ast.Ident:
		if e.isIndex(expr.Name) {
			pos, err := e.index(expr)
			return e.elemConv(pos), err
		}
		if p, ok := e.byName[expr.Name]; ok && p.kind == intParam {
			return e.elemConv(expr.Name), nil
		}
		return expr.Name, nil
	case *ast.BasicLit:
		if expr.Kind != token.INT && expr.Kind != token.FLOAT {
			return "", e.errorf(expr, "%s literal not supported", expr.Kind)
		}
		return expr.Value, nil
	case *ast.ParenExpr:
		x, err := e.value(expr.X)
		return "(" + x + ")", err
	case *ast.UnaryExpr:
		if expr.Op != token.SUB && expr.Op != token.ADD {
			return "", e.errorf(expr, "cannot lower operator %s", expr.Op)
		}
		x, err := e.value(expr.X)
		return expr.Op.String() + x, err
	case *ast.BinaryExpr:
		switch expr.Op {
		case token.ADD, token.SUB, token.MUL, token.QUO, token.REM, token.AND, token.OR, token.XOR:
		default:
			return "", e.errorf(expr, "cannot lower operator %s: the result is not a number", expr.Op)
		}
		x, err := e.value(expr.X)
		if err != nil {
			return "", err
		}
		y, err := e.value(expr.Y)
		return x + " " + expr.Op.String() + " " + y, err
	case *ast.CallExpr:
		return e.call(expr)
	case *ast.IndexExpr, *ast.IndexListExpr:
		return e.ref(expr)
	}
	return "", e.errorf(expr, "cannot lower %s", exprString(expr))
}

func (e *emitter) call(expr *ast.CallExpr) (string, error) {
	name := expr.Fun.(*ast.Ident).Name
	args := make([]string, len(expr.Args))
	for i, arg := range expr.Args {
		var err error
		if args[i], err = e.value(arg); err != nil {
			return "", err
		}
	}
	if fn, ok := mathFuncs[name]; ok {
		for i, arg := range args {
			args[i] = e.floatArg(arg)
		}
		s := fn + "(" + strings.Join(args, ", ") + ")"
		if e.opts.Elem == "float64" {
			return s, nil
		}
		return e.elemConv(s), nil
	}
	if conversions[name] {
		if len(args) != 1 {
			return "", e.errorf(expr, "%s takes one argument", name)
		}
		if name == e.opts.Elem {
			return name + "(" + args[0] + ")", nil
		}
		return e.elemConv(name + "(" + args[0] + ")"), nil
	}
	return name + "(" + strings.Join(args, ", ") + ")", nil
}
