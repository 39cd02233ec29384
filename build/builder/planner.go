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
	"github.com/gx-org/einloop/build/ir"
)

// checkAmbiguities rejects combinations of directives without a defined
// meaning.
func (ctx *context) checkAmbiguities() bool {
	ok := true
	for x := range ctx.prog.Indices.Values() {
		if x.Tiled && x.Unroll > 0 {
			ok = ctx.Err().Appendf(x.Src, "index %s is both tiled and unrolled", x)
		}
	}
	return ok
}

// tiledReduction returns true if a reduction index belongs to the tile group.
func (ctx *context) tiledReduction() bool {
	if ctx.prog.Tile == nil || ctx.prog.Reduce == nil {
		return false
	}
	for _, x := range ctx.prog.Tile.Indices {
		if x.Role == ir.Reduction {
			return true
		}
	}
	return false
}

// outputLoops wraps body with one loop per output index. The first output
// index of the left-hand side is the innermost loop.
func (ctx *context) outputLoops(body ir.Node) ir.Node {
	for _, x := range ctx.prog.Target.OutputIndices() {
		body = &ir.RangeLoop{Index: x, Body: body}
	}
	return body
}

// buildPlan builds the loop nest, from the innermost node to the outermost:
// the element computation, the reduction loops, the output loops, and the
// tile loop.
func (ctx *context) buildPlan() bool {
	var body ir.Node = &ir.Store{}
	combine := ctx.tiledReduction()
	if spec := ctx.prog.Reduce; spec != nil {
		var inner ir.Node = &ir.Accumulate{Op: spec.Op}
		for i := len(spec.Order) - 1; i >= 0; i-- {
			x := spec.Order[i]
			if x.Unroll > 0 {
				inner = &ir.UnrolledLoop{Index: x, Width: x.Unroll, Body: inner}
			} else {
				inner = &ir.RangeLoop{Index: x, Body: inner}
			}
		}
		body = &ir.Reduce{Spec: spec, Body: inner, Combine: combine}
	}
	body = ctx.outputLoops(body)
	if tile := ctx.prog.Tile; tile != nil {
		widths := make([]int, len(tile.Indices))
		for i := range widths {
			widths[i] = tile.Width
		}
		body = &ir.TileLoop{Indices: tile.Indices, Widths: widths, Body: body}
	}
	ctx.prog.Plan = &ir.Plan{Root: body}
	if combine {
		ctx.prog.Plan.Prologue = ctx.outputLoops(&ir.Fill{Spec: ctx.prog.Reduce})
		ctx.prog.Plan.Epilogue = ctx.outputLoops(&ir.Flush{})
	}
	return true
}
