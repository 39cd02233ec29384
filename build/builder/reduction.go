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
	"fmt"
	"go/ast"
	"go/token"
	"slices"
	"strconv"
	"strings"

	"github.com/gx-org/einloop/build/fmterr"
	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
)

const (
	unrollKeyword = "unroll"

	// DefaultUnrollWidth is the width of loops marked with unroll without
	// an explicit width.
	DefaultUnrollWidth = 4
)

// reductionReader reads the arguments of a reduction directive.
type reductionReader struct {
	ctx    *context
	spec   *ir.ReductionSpec
	unroll int
	listed map[string]bool
}

// defaultReduction returns the reduction over all the right-hand side indices
// absent from the left-hand side, in order of first occurrence.
func (ctx *context) defaultReduction() []*ir.Index {
	var order []*ir.Index
	for x := range ctx.rhsIndices.Values() {
		if x.Role == ir.Reduction {
			order = append(order, x)
		}
	}
	return order
}

// readReduction sets the reduction of the program from the directive, or
// from the defaults if there is no directive.
func (ctx *context) readReduction() bool {
	inferred := ctx.defaultReduction()
	clause := ctx.prog.Assign.Reduce
	spec := &ir.ReductionSpec{
		Op:    ir.Operator{Name: ir.OpAdd},
		Order: inferred,
		Src:   clause,
	}
	if clause != nil {
		ctx.Err().Push(fmterr.PrefixWith("reduction directive: "))
		ok := ctx.readReductionClause(spec, clause)
		ok = ok && ctx.checkCompleteness(spec, inferred, clause)
		ctx.Err().Pop()
		if !ok {
			return false
		}
	}
	if len(spec.Order) > 0 {
		ctx.prog.Reduce = spec
	}
	return true
}

func (ctx *context) readReductionClause(spec *ir.ReductionSpec, clause *syntax.ReductionClause) bool {
	if !slices.Contains(ir.Operators, clause.Op.Name) {
		return ctx.Err().Appendf(clause.Op, "unknown reduction operator %q: want one of %s", clause.Op.Name, strings.Join(ir.Operators, ", "))
	}
	spec.Op = ir.Operator{Name: clause.Op.Name, Src: clause.Op}
	r := &reductionReader{ctx: ctx, spec: spec, listed: make(map[string]bool)}
	var order []*ir.Index
	ok := true
	for _, arg := range clause.Args {
		x, argOk := r.read(arg)
		if !argOk {
			ok = false
			continue
		}
		if x != nil {
			order = append(order, x)
		}
	}
	if len(order) > 0 {
		spec.Order = order
		spec.Explicit = true
	}
	return ok
}

// read one argument. It returns the index added to the loop order, if any.
func (r *reductionReader) read(arg ast.Node) (*ir.Index, bool) {
	switch a := arg.(type) {
	case *syntax.InitArg:
		if r.spec.Init != nil {
			return nil, r.ctx.Err().Appendf(a, "init set more than once")
		}
		r.spec.Init = a.Value
		return nil, true
	case *ast.Ident:
		if a.Name == unrollKeyword {
			r.unroll = DefaultUnrollWidth
			return nil, true
		}
		return r.index(a)
	case *ast.CallExpr:
		return nil, r.readUnroll(a)
	case *ast.BinaryExpr:
		return r.readBound(a)
	}
	return nil, r.ctx.Err().Appendf(arg, "unrecognized argument %s", nodeString(arg))
}

func nodeString(node ast.Node) string {
	if expr, ok := node.(ast.Expr); ok {
		return exprString(expr)
	}
	return fmt.Sprintf("%T", node)
}

func (r *reductionReader) readUnroll(call *ast.CallExpr) bool {
	fun, ok := call.Fun.(*ast.Ident)
	if !ok || fun.Name != unrollKeyword || len(call.Args) != 1 {
		return r.ctx.Err().Appendf(call, "unrecognized argument %s: want unroll(N)", exprString(call))
	}
	width, ok := intLiteral(call.Args[0])
	if !ok || width <= 0 {
		return r.ctx.Err().Appendf(call.Args[0], "unroll width %s is not a positive integer literal", exprString(call.Args[0]))
	}
	r.unroll = width
	return true
}

func intLiteral(expr ast.Expr) (int, bool) {
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.INT {
		return 0, false
	}
	v, err := strconv.Atoi(lit.Value)
	if err != nil {
		return 0, false
	}
	return v, true
}

// index adds an index to the loop order.
func (r *reductionReader) index(ident *ast.Ident) (*ir.Index, bool) {
	x, ok := r.ctx.prog.Indices.Load(ident.Name)
	if !ok {
		return nil, r.ctx.Err().Appendf(ident, "unknown index %s", syntax.Unprime(ident.Name))
	}
	if r.listed[x.Name] {
		return nil, r.ctx.Err().Appendf(ident, "index %s listed more than once", x)
	}
	r.listed[x.Name] = true
	x.Unroll = r.unroll
	return x, true
}

func isBound(op token.Token) bool {
	return op == token.LEQ || op == token.LSS
}

// readBound reads hi bounds (k <= hi, k < hi) and lo-hi bounds
// (lo <= k <= hi, lo <= k < hi).
func (r *reductionReader) readBound(expr *ast.BinaryExpr) (*ir.Index, bool) {
	if !isBound(expr.Op) {
		return nil, r.ctx.Err().Appendf(expr, "unrecognized argument %s: want index <= hi or lo <= index <= hi", exprString(expr))
	}
	bound := &ir.BoundAxis{Src: expr, Hi: expr.Y, Inclusive: expr.Op == token.LEQ}
	var ident *ast.Ident
	switch x := expr.X.(type) {
	case *ast.Ident:
		ident = x
	case *ast.BinaryExpr:
		if x.Op != token.LEQ {
			return nil, r.ctx.Err().Appendf(x, "lower bound %s must use <=", exprString(x))
		}
		id, ok := x.Y.(*ast.Ident)
		if !ok {
			return nil, r.ctx.Err().Appendf(x.Y, "expected an index name, got %s", exprString(x.Y))
		}
		ident = id
		bound.Lo = x.X
	default:
		return nil, r.ctx.Err().Appendf(expr.X, "expected an index name, got %s", exprString(expr.X))
	}
	x, ok := r.index(ident)
	if !ok {
		return nil, false
	}
	x.Bound = bound
	r.ctx.prog.Catalog.Override(x, bound)
	return x, true
}

// checkCompleteness makes sure the indices listed in the directive are
// exactly the inferred reduction indices.
func (ctx *context) checkCompleteness(spec *ir.ReductionSpec, inferred []*ir.Index, clause *syntax.ReductionClause) bool {
	if !spec.Explicit {
		return true
	}
	ok := true
	for _, x := range spec.Order {
		if x.Role != ir.Reduction {
			ok = ctx.Err().Appendf(clause, "index %s is an output index, not a reduction index", x)
		}
	}
	for _, x := range inferred {
		if !slices.Contains(spec.Order, x) {
			ok = ctx.Err().Appendf(clause, "reduction index %s is missing", x)
		}
	}
	return ok
}
