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

// Package builder compiles a parsed index statement into a program: it
// collects the array references and the axis of every index, reads the
// reduction and tiling directives, and builds the loop plan.
//
// The passes share one compilation context. Each pass appends errors to the
// context and returns false on failure so that the following passes can be
// skipped. All errors are reported together at the end.
package builder

import (
	"go/ast"

	"github.com/gx-org/einloop/base/ordered"
	"github.com/gx-org/einloop/build/fmterr"
	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
)

// context is the state of one compilation.
type context struct {
	errs *fmterr.Errors
	app  *fmterr.Appender
	prog *ir.Program

	// rhsIndices lists the symbolic indices of the right-hand side in order
	// of first occurrence.
	rhsIndices *ordered.Map[string, *ir.Index]
}

func newContext(assign *syntax.Assign) *context {
	errs := &fmterr.Errors{}
	return &context{
		errs: errs,
		app:  errs.NewAppender(assign.FSet),
		prog: &ir.Program{
			Assign:  assign,
			Indices: ordered.NewMap[string, *ir.Index](),
			Catalog: ir.NewCatalog(),
			Arrays:  ordered.NewMap[string, ast.Expr](),
		},
		rhsIndices: ordered.NewMap[string, *ir.Index](),
	}
}

func (ctx *context) Err() *fmterr.Appender {
	return ctx.app
}

// index returns the index symbol given its name, creating it if needed.
func (ctx *context) index(ident *ast.Ident) *ir.Index {
	if x, ok := ctx.prog.Indices.Load(ident.Name); ok {
		return x
	}
	x := &ir.Index{
		Name: ident.Name,
		Src:  ident,
		Slot: ctx.prog.Indices.Size(),
		Role: ir.Reduction,
	}
	ctx.prog.Indices.Store(ident.Name, x)
	return x
}

// Build a program from a parsed statement.
func Build(assign *syntax.Assign) (*ir.Program, error) {
	ctx := newContext(assign)
	ok := ctx.buildTarget() &&
		ctx.collect() &&
		ctx.checkAxes() &&
		ctx.readReduction() &&
		ctx.readTiling() &&
		ctx.checkAmbiguities() &&
		ctx.buildPlan()
	if !ok && ctx.errs.Empty() {
		ctx.app.Append(fmterr.Internal(errInternalNoError))
	}
	if err := ctx.errs.ToError(); err != nil {
		return nil, err
	}
	return ctx.prog, nil
}

// BuildSource parses and builds a statement given its source.
func BuildSource(name, src string, directives ...string) (*ir.Program, error) {
	assign, err := syntax.Parse(name, src, directives...)
	if err != nil {
		return nil, err
	}
	return Build(assign)
}
