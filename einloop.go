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

// Package einloop compiles statements in index notation to loop plans and
// runs them on host arrays.
//
// A statement assigns an expression to an indexed output:
//
//	A[i,j] := B[i] * log(C[j])
//	A[i] := B[i,j] * C[k] (+, j, k) {tile(256), i}
//
// Indices appearing on the left-hand side are output indices. Other indices
// are reduction indices, combined with + unless a reduction directive says
// otherwise. The range of every index is inferred from the arrays it
// indexes.
package einloop

import (
	"io"
	"strings"

	"github.com/gx-org/einloop/api/options"
	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/builder"
	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
	"github.com/gx-org/einloop/golang/emitter"
	"github.com/gx-org/einloop/interp"
)

// sourceName is the file name used in error positions.
const sourceName = "expr"

type (
	// Program is a compiled statement.
	Program struct {
		prog *ir.Program
	}

	// Index describes an index of a program.
	Index struct {
		// Name of the index.
		Name string
		// Role of the index: output or reduction.
		Role ir.Role
		// Axis is the range of the index, e.g. axes(B, 0).
		Axis string
		// Unroll is the width of the unrolled loop, 0 if not unrolled.
		Unroll int
		// Tiled is true if the index belongs to the tile group.
		Tiled bool
	}
)

// Compile a statement. Directives can follow the statement in src or be
// given separately.
func Compile(src string, directives ...string) (*Program, error) {
	prog, err := builder.BuildSource(sourceName, src, directives...)
	if err != nil {
		return nil, err
	}
	return &Program{prog: prog}, nil
}

// MustCompile compiles a statement and panics if an error occurs.
func MustCompile(src string, directives ...string) *Program {
	prog, err := Compile(src, directives...)
	if err != nil {
		panic(err)
	}
	return prog
}

// IR returns the intermediate representation of the program.
func (p *Program) IR() *ir.Program {
	return p.prog
}

// Plan returns the loop plan of the program.
func (p *Program) Plan() *ir.Plan {
	return p.prog.Plan
}

// PlanString returns the loop plan as an indented loop tree.
func (p *Program) PlanString() string {
	return p.prog.PlanString()
}

// Indices returns the indices of the program: the output indices in
// left-hand side order followed by the reduction indices from the outermost
// loop to the innermost loop.
func (p *Program) Indices() []Index {
	var idx []Index
	add := func(x *ir.Index) {
		axis := "?"
		if bnd, ok := p.prog.Catalog.Lookup(x.Name); ok {
			axis = bnd.Axis.String()
		}
		idx = append(idx, Index{
			Name:   x.String(),
			Role:   x.Role,
			Axis:   axis,
			Unroll: x.Unroll,
			Tiled:  x.Tiled,
		})
	}
	for _, x := range p.prog.Target.OutputIndices() {
		add(x)
	}
	for _, x := range p.prog.ReductionIndices() {
		add(x)
	}
	return idx
}

// Run executes the program. Names of the right-hand side are read from env.
// A := statement returns a new array. Other statements update the output
// array found in env and return it.
func (p *Program) Run(env values.Env, opts ...options.Option) (values.Array, error) {
	return interp.Run(p.prog, env, opts...)
}

// GoSource returns a Go function named funcName computing the program on
// float64 arrays.
func (p *Program) GoSource(funcName string) (string, error) {
	opts := emitter.DefaultOptions()
	opts.Func = funcName
	return emitter.Source(p.prog, opts)
}

// EmitGo writes a Go file computing the program.
func (p *Program) EmitGo(w io.Writer, opts emitter.Options) error {
	return emitter.Emit(w, p.prog, opts)
}

// String returns the source of the program.
func (p *Program) String() string {
	return syntax.Unprime(strings.TrimSpace(p.prog.Assign.Src))
}
