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

	"github.com/gx-org/einloop/build/fmterr"
	"github.com/gx-org/einloop/build/ir"
)

const tileKeyword = "tile"

// readTiling reads the tiling directive, if any.
func (ctx *context) readTiling() bool {
	clause := ctx.prog.Assign.Tile
	if clause == nil {
		return true
	}
	ctx.Err().Push(fmterr.PrefixWith("tiling directive: "))
	defer ctx.Err().Pop()
	volume, ok := ctx.tileVolume(clause.Keyword)
	if !ok {
		return false
	}
	spec := &ir.TileSpec{Volume: volume, Src: clause}
	for _, expr := range clause.Indices {
		ident, isIdent := expr.(*ast.Ident)
		if !isIdent {
			ok = ctx.Err().Appendf(expr, "malformed tiling directive: expected an index name, got %s", exprString(expr))
			continue
		}
		x, known := ctx.prog.Indices.Load(ident.Name)
		if !known {
			ok = ctx.Err().Appendf(ident, "unknown index %s", exprString(ident))
			continue
		}
		if x.Tiled {
			ok = ctx.Err().Appendf(ident, "index %s listed more than once", x)
			continue
		}
		x.Tiled = true
		spec.Indices = append(spec.Indices, x)
	}
	if !ok {
		return false
	}
	if len(spec.Indices) == 0 {
		return ctx.Err().Appendf(clause, "malformed tiling directive: no index to tile")
	}
	spec.Width = ir.TileWidth(spec.Volume, len(spec.Indices))
	ctx.prog.Tile = spec
	return true
}

// tileVolume reads tile or tile(N).
func (ctx *context) tileVolume(keyword ast.Expr) (int, bool) {
	switch k := keyword.(type) {
	case *ast.Ident:
		if k.Name == tileKeyword {
			return ir.DefaultTileVolume, true
		}
	case *ast.CallExpr:
		fun, ok := k.Fun.(*ast.Ident)
		if !ok || fun.Name != tileKeyword || len(k.Args) != 1 {
			break
		}
		volume, ok := intLiteral(k.Args[0])
		if !ok || volume <= 0 {
			return 0, ctx.Err().Appendf(k.Args[0], "tile volume %s is not a positive integer literal", exprString(k.Args[0]))
		}
		return volume, true
	}
	return 0, ctx.Err().Appendf(keyword, "malformed tiling directive: expected tile or tile(N), got %s", exprString(keyword))
}
