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

// checkAxes makes sure every output index has an axis. When an existing
// array is updated, its dimensions are other derivations of the axes of the
// output indices.
func (ctx *context) checkAxes() bool {
	tgt := ctx.prog.Target
	if !tgt.Define {
		ref := &ir.ArrayRef{
			Expr:       ctx.prog.Assign.Target.Expr,
			Base:       tgt.Name,
			Indexed:    tgt.Name,
			AxisSource: tgt.Name,
			Indices:    tgt.Indices,
		}
		for dim, ri := range tgt.Indices {
			if ri.Index == nil {
				continue
			}
			ctx.prog.Catalog.Bind(ri.Index, &ir.ArrayAxis{Ref: ref, Source: tgt.Name, Dim: dim})
		}
	}
	ok := true
	for _, x := range tgt.OutputIndices() {
		if _, bound := ctx.prog.Catalog.Lookup(x.Name); !bound {
			ok = ctx.Err().Appendf(x.Src, "cannot infer the axis of output index %s: it does not index any array of the right-hand side", x)
		}
	}
	return ok
}
