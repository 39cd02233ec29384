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

// Package ir is the intermediate representation of a compiled index
// statement: index symbols, axes, array references, directives, and the
// loop plan computing the output.
package ir

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"github.com/gx-org/einloop/base/ordered"
	"github.com/gx-org/einloop/build/syntax"
)

// Role of an index in a statement.
type Role int

const (
	// Output indices appear on the left-hand side.
	Output Role = iota
	// Reduction indices only appear on the right-hand side.
	Reduction
)

func (r Role) String() string {
	if r == Output {
		return "output"
	}
	return "reduction"
}

type (
	// Index is an index symbol. Two occurrences of the same name denote the
	// same index.
	Index struct {
		// Name of the index.
		Name string
		// Src is the first occurrence of the index.
		Src *ast.Ident
		// Slot is the position of the index value in an evaluation frame.
		Slot int
		// Role of the index.
		Role Role
		// Bound is an explicit axis set by a directive, nil otherwise.
		Bound *BoundAxis
		// Unroll is the static width of an unrolled loop, 0 if the loop
		// is not unrolled.
		Unroll int
		// Tiled is true if the index belongs to the tile group.
		Tiled bool
	}

	// ArrayRef is an array indexed in the right-hand side.
	ArrayRef struct {
		// Expr is the index expression, e.g. S.w[i][j].
		Expr ast.Expr
		// Base is the identity of the array with field accesses, wrapping
		// calls, and outer indexing removed, e.g. S.
		Base ast.Expr
		// Indexed is the expression being indexed, e.g. S.w[i].
		Indexed ast.Expr
		// AxisSource is the expression from which the axes of the indices are
		// derived: Indexed with every index replaced by its origin, e.g. S.w[0].
		AxisSource ast.Expr
		// Indices is either an *Index or a fixed position for each dimension.
		Indices []RefIndex
	}

	// RefIndex is one dimension of an array reference: either an index
	// symbol or a fixed position.
	RefIndex struct {
		Index *Index
		Fixed ast.Expr
	}

	// Target is the output of the statement.
	Target struct {
		// Name of the output array.
		Name *ast.Ident
		// Define is true if a new array is allocated.
		Define bool
		// Indices of the output in left-hand side order.
		Indices []RefIndex
	}
)

func (x *Index) String() string {
	return syntax.Unprime(x.Name)
}

// BaseName returns the identity of the array as a string.
func (r *ArrayRef) BaseName() string {
	return types.ExprString(r.Base)
}

func (r *ArrayRef) String() string {
	return types.ExprString(r.Expr)
}

func (ri RefIndex) String() string {
	if ri.Index != nil {
		return ri.Index.String()
	}
	return types.ExprString(ri.Fixed)
}

// OutputIndices returns the symbolic indices of the target.
func (t *Target) OutputIndices() []*Index {
	var idx []*Index
	for _, ri := range t.Indices {
		if ri.Index != nil {
			idx = append(idx, ri.Index)
		}
	}
	return idx
}

func (t *Target) String() string {
	return t.cellString(t.Name.Name, false)
}

// PartialString returns the cell of the partial result of a tiled reduction.
// Fixed positions of the output are at 0 in the partial result.
func (t *Target) PartialString() string {
	return t.cellString("partial("+t.Name.Name+")", true)
}

func (t *Target) cellString(name string, fixedAtOrigin bool) string {
	if len(t.Indices) == 0 {
		return name
	}
	ss := make([]string, len(t.Indices))
	for i, ri := range t.Indices {
		if fixedAtOrigin && ri.Index == nil {
			ss[i] = "0"
			continue
		}
		ss[i] = ri.String()
	}
	return fmt.Sprintf("%s[%s]", name, strings.Join(ss, ","))
}

// Program is a compiled index statement.
type Program struct {
	// Assign is the parsed statement.
	Assign *syntax.Assign
	// Target of the statement.
	Target *Target
	// Indices maps index names to index symbols in order of first occurrence.
	Indices *ordered.Map[string, *Index]
	// Catalog maps indices to their axes.
	Catalog *Catalog
	// Arrays maps array identities to their base expression.
	Arrays *ordered.Map[string, ast.Expr]
	// Refs are all the array references of the right-hand side.
	Refs []*ArrayRef
	// Reduce is the reduction or nil if there is no reduction index.
	Reduce *ReductionSpec
	// Tile is the tiling directive or nil.
	Tile *TileSpec
	// Plan computes the output.
	Plan *Plan
}

// NumSlots returns the size of an evaluation frame.
func (p *Program) NumSlots() int {
	return p.Indices.Size()
}

// ReductionIndices returns the reduction indices in loop order.
func (p *Program) ReductionIndices() []*Index {
	if p.Reduce == nil {
		return nil
	}
	return p.Reduce.Order
}
