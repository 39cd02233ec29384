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

package builder

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
)

func exprString(expr ast.Expr) string {
	return syntax.Unprime(types.ExprString(expr))
}

// collect walks the right-hand side, recording every array reference and
// the indices it uses, and binding each index to the axis of the array
// dimension it indexes.
func (ctx *context) collect() bool {
	return ctx.collectExpr(ctx.prog.Assign.RHS)
}

func (ctx *context) collectExprs(exprs []ast.Expr) bool {
	ok := true
	for _, expr := range exprs {
		ok = ctx.collectExpr(expr) && ok
	}
	return ok
}

func (ctx *context) collectExpr(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.IndexExpr, *ast.IndexListExpr:
		return ctx.collectRef(e)
	case *ast.BinaryExpr:
		return ctx.collectExprs([]ast.Expr{e.X, e.Y})
	case *ast.UnaryExpr:
		return ctx.collectExpr(e.X)
	case *ast.ParenExpr:
		return ctx.collectExpr(e.X)
	case *ast.CallExpr:
		if _, ok := e.Fun.(*ast.Ident); !ok {
			return ctx.Err().Appendf(e.Fun, "cannot call %s: want a function name", exprString(e.Fun))
		}
		return ctx.collectExprs(e.Args)
	case *ast.SelectorExpr:
		return ctx.collectExpr(e.X)
	case *ast.Ident, *ast.BasicLit:
		return true
	}
	return ctx.Err().Appendf(expr, "expression %s of type %T not supported", exprString(expr), expr)
}

// collectRef processes an array reference. The indexed expression is
// processed first so that indices are recorded from left to right.
func (ctx *context) collectRef(expr ast.Expr) bool {
	indexed, indices, _ := syntax.IndexParts(expr)
	if !ctx.collectExpr(indexed) {
		return false
	}
	ref := &ir.ArrayRef{
		Expr:    expr,
		Base:    baseOf(indexed),
		Indexed: indexed,
	}
	ok := true
	for _, idx := range indices {
		ri, rOk := ctx.refIndex(idx)
		if !rOk {
			ok = false
			continue
		}
		if ri.Index != nil && !ctx.rhsIndices.Has(ri.Index.Name) {
			ctx.rhsIndices.Store(ri.Index.Name, ri.Index)
		}
		ref.Indices = append(ref.Indices, ri)
	}
	if !ok {
		return false
	}
	ref.AxisSource = ctx.origin(indexed)
	ctx.prog.Refs = append(ctx.prog.Refs, ref)
	if name := ref.BaseName(); !ctx.prog.Arrays.Has(name) {
		ctx.prog.Arrays.Store(name, ref.Base)
	}
	for dim, ri := range ref.Indices {
		if ri.Index == nil {
			continue
		}
		ctx.prog.Catalog.Bind(ri.Index, &ir.ArrayAxis{
			Ref:    ref,
			Source: ref.AxisSource,
			Dim:    dim,
		})
	}
	return true
}

// baseOf returns the identity of an array by removing field accesses,
// wrapping calls with a single argument, and outer indexing.
func baseOf(expr ast.Expr) ast.Expr {
	for {
		switch e := expr.(type) {
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.SelectorExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.CallExpr:
			if len(e.Args) != 1 {
				return expr
			}
			expr = e.Args[0]
		default:
			return expr
		}
	}
}

// origin returns a copy of expr where every index symbol is replaced by the
// origin of its axis. It is used to derive the axes of the elements of an
// array of arrays from its first element.
func (ctx *context) origin(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.Ident:
		if ctx.prog.Indices.Has(e.Name) {
			return &ast.BasicLit{ValuePos: e.Pos(), Kind: token.INT, Value: "0"}
		}
		return e
	case *ast.IndexExpr:
		return &ast.IndexExpr{X: ctx.origin(e.X), Lbrack: e.Lbrack, Index: ctx.origin(e.Index), Rbrack: e.Rbrack}
	case *ast.IndexListExpr:
		indices := make([]ast.Expr, len(e.Indices))
		for i, idx := range e.Indices {
			indices[i] = ctx.origin(idx)
		}
		return &ast.IndexListExpr{X: ctx.origin(e.X), Lbrack: e.Lbrack, Indices: indices, Rbrack: e.Rbrack}
	case *ast.SelectorExpr:
		return &ast.SelectorExpr{X: ctx.origin(e.X), Sel: e.Sel}
	case *ast.ParenExpr:
		return &ast.ParenExpr{Lparen: e.Lparen, X: ctx.origin(e.X), Rparen: e.Rparen}
	case *ast.CallExpr:
		args := make([]ast.Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = ctx.origin(arg)
		}
		return &ast.CallExpr{Fun: e.Fun, Lparen: e.Lparen, Args: args, Rparen: e.Rparen}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{X: ctx.origin(e.X), OpPos: e.OpPos, Op: e.Op, Y: ctx.origin(e.Y)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{OpPos: e.OpPos, Op: e.Op, X: ctx.origin(e.X)}
	}
	return expr
}
