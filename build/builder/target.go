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

	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
	"github.com/pkg/errors"
)

var errInternalNoError = errors.New("compilation failed without reporting an error")

// buildTarget creates the output indices from the left-hand side.
func (ctx *context) buildTarget() bool {
	tgt := ctx.prog.Assign.Target
	ctx.prog.Target = &ir.Target{
		Name:   tgt.Name,
		Define: ctx.prog.Assign.Define(),
	}
	ok := true
	seen := make(map[string]bool)
	for _, expr := range tgt.Indices {
		ri, rOk := ctx.refIndex(expr)
		if !rOk {
			ok = false
			continue
		}
		if ri.Index == nil {
			if ctx.prog.Target.Define && !isOrigin(ri.Fixed) {
				ok = ctx.Err().Appendf(expr, "fixed output position %s: a new output can only use _ or 0", ri)
				continue
			}
			ctx.prog.Target.Indices = append(ctx.prog.Target.Indices, ri)
			continue
		}
		if seen[ri.Index.Name] {
			ok = ctx.Err().Appendf(expr, "output index %s appears more than once", ri)
			continue
		}
		seen[ri.Index.Name] = true
		ri.Index.Role = ir.Output
		ctx.prog.Target.Indices = append(ctx.prog.Target.Indices, ri)
	}
	return ok
}

func isOrigin(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.INT && lit.Value == "0"
}

// refIndex returns the index or the fixed position used in an index list.
func (ctx *context) refIndex(expr ast.Expr) (ir.RefIndex, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		if e.Name == syntax.Placeholder {
			return ir.RefIndex{}, ctx.Err().AppendInternalf(e, "placeholder has not been normalized")
		}
		return ir.RefIndex{Index: ctx.index(e)}, true
	case *ast.BasicLit:
		if e.Kind == token.INT {
			return ir.RefIndex{Fixed: e}, true
		}
	case *ast.ParenExpr:
		return ctx.refIndex(e.X)
	}
	return ir.RefIndex{}, ctx.Err().Appendf(expr, "invalid index %s: an index is a name, _, or an integer literal", exprString(expr))
}
