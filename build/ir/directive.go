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

package ir

import (
	"go/ast"
	"math"

	"github.com/gx-org/einloop/build/syntax"
)

// Reduction operators.
const (
	OpAdd = "+"
	OpMul = "*"
	OpMax = "max"
	OpMin = "min"
	OpAnd = "&"
	OpOr  = "|"
)

// Operators lists the supported reduction operators.
var Operators = []string{OpAdd, OpMul, OpMax, OpMin, OpAnd, OpOr}

type (
	// Operator is a binary, associative, and commutative reduction operator.
	Operator struct {
		// Name of the operator, one of Operators.
		Name string
		// Src is the operator in the directive, nil if the default is used.
		Src *ast.Ident
	}

	// ReductionSpec specifies how the reduction indices are combined.
	ReductionSpec struct {
		// Op combines the accumulator with one element.
		Op Operator
		// Init overrides the neutral element of the operator. Nil if the
		// neutral element of the operator is used.
		Init ast.Expr
		// Order lists the reduction indices from the outermost loop to
		// the innermost loop.
		Order []*Index
		// Explicit is true if the order has been given by a directive.
		Explicit bool
		// Src is the directive or nil.
		Src *syntax.ReductionClause
	}

	// TileSpec groups indices iterated block by block.
	TileSpec struct {
		// Indices of the group.
		Indices []*Index
		// Volume is the maximum number of elements in one block.
		Volume int
		// Width is the length of a block along every axis of the group.
		Width int
		// Src is the directive.
		Src *syntax.TileClause
	}
)

// DefaultTileVolume is the tile volume when the directive does not set one.
const DefaultTileVolume = 512

// TileWidth returns floor(volume^(1/n)), the width shared by the n axes of
// a tile group. The width is at least 1.
func TileWidth(volume, n int) int {
	if n <= 0 || volume <= 1 {
		return 1
	}
	w := int(math.Pow(float64(volume), 1/float64(n)))
	for pow(w+1, n) <= volume {
		w++
	}
	for w > 1 && pow(w, n) > volume {
		w--
	}
	return max(w, 1)
}

func pow(x, n int) int {
	r := 1
	for range n {
		r *= x
	}
	return r
}
