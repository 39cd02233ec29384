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
	"fmt"
	"go/types"
	"strings"
)

type (
	// Node is a node of a loop plan.
	Node interface {
		node()
		write(w *planWriter, p *Program)
	}

	// RangeLoop iterates an index over its axis.
	RangeLoop struct {
		Index *Index
		Body  Node
	}

	// UnrolledLoop iterates an index over its axis Width values at a time,
	// the body being repeated Width times in each iteration.
	UnrolledLoop struct {
		Index *Index
		Width int
		Body  Node
	}

	// TileLoop iterates over the blocks of the cartesian product of the axes
	// of a group of indices. For the duration of the body, the axis of each
	// index of the group is narrowed to the current block.
	TileLoop struct {
		Indices []*Index
		Widths  []int
		Body    Node
	}

	// Reduce initializes an accumulator, runs the reduction loops, then
	// writes the accumulator in the output cell.
	Reduce struct {
		Spec *ReductionSpec
		Body Node
		// Combine is true if the accumulator is combined with the partial
		// result cell using the reduction operator instead of being written
		// in the output cell. The accumulator then starts from the neutral
		// element of the operator: the initial value has been written in
		// the partial result by the prologue.
		Combine bool
	}

	// Accumulate combines the accumulator with the element at the current
	// indices.
	Accumulate struct {
		Op Operator
	}

	// Store writes the element at the current indices in the output cell.
	Store struct{}

	// Fill writes the initial value of a reduction in the partial result
	// cell.
	Fill struct {
		Spec *ReductionSpec
	}

	// Flush copies the partial result cell in the output cell.
	Flush struct{}

	// Plan is the complete loop nest of a program.
	Plan struct {
		// Prologue runs before Root and Epilogue after Root. Both are nil
		// unless a reduction index is tiled. Tiles then combine their
		// accumulator in a partial result shaped like the output: the
		// prologue fills it with the initial value and the epilogue copies
		// it in the output. The output is not written before the epilogue,
		// so the right-hand side always reads its original elements.
		Prologue Node
		// Root is the outermost node.
		Root Node
		Epilogue Node
	}
)

func (*RangeLoop) node()    {}
func (*UnrolledLoop) node() {}
func (*TileLoop) node()     {}
func (*Reduce) node()       {}
func (*Accumulate) node()   {}
func (*Store) node()        {}
func (*Fill) node()         {}
func (*Flush) node()        {}

// OutermostOutput returns the outermost loop over an output index, looking
// through tile loops. It returns nil if there is no output loop.
func (p *Plan) OutermostOutput() *RangeLoop {
	node := p.Root
	for {
		switch n := node.(type) {
		case *TileLoop:
			node = n.Body
		case *RangeLoop:
			if n.Index.Role == Output {
				return n
			}
			return nil
		default:
			return nil
		}
	}
}

type planWriter struct {
	b      strings.Builder
	indent int
}

func (w *planWriter) line(format string, a ...any) {
	w.b.WriteString(strings.Repeat("\t", w.indent))
	fmt.Fprintf(&w.b, format, a...)
	w.b.WriteString("\n")
}

func (w *planWriter) block(body Node, p *Program) {
	w.indent++
	body.write(w, p)
	w.indent--
	w.line("}")
}

func axisString(p *Program, x *Index) string {
	if bnd, ok := p.Catalog.Lookup(x.Name); ok {
		return bnd.Axis.String()
	}
	return "?"
}

func (n *RangeLoop) write(w *planWriter, p *Program) {
	w.line("for %s in %s {", n.Index, axisString(p, n.Index))
	w.block(n.Body, p)
}

func (n *UnrolledLoop) write(w *planWriter, p *Program) {
	w.line("for %s in %s unroll %d {", n.Index, axisString(p, n.Index), n.Width)
	w.block(n.Body, p)
}

func (n *TileLoop) write(w *planWriter, p *Program) {
	names := make([]string, len(n.Indices))
	for i, x := range n.Indices {
		names[i] = fmt.Sprintf("%s/%d", x, n.Widths[i])
	}
	w.line("for tile(%s) {", strings.Join(names, ", "))
	w.block(n.Body, p)
}

func neutralString(spec *ReductionSpec) string {
	if spec.Init != nil {
		return types.ExprString(spec.Init)
	}
	return "neutral(" + spec.Op.Name + ")"
}

func (n *Reduce) write(w *planWriter, p *Program) {
	if n.Combine {
		w.line("acc := neutral(%s)", n.Spec.Op.Name)
	} else {
		w.line("acc := %s", neutralString(n.Spec))
	}
	n.Body.write(w, p)
	if n.Combine {
		partial := p.Target.PartialString()
		w.line("%s = %s", partial, combineString(n.Spec.Op, partial, "acc"))
		return
	}
	w.line("%s = acc", p.Target)
}

func combineString(op Operator, x, y string) string {
	switch op.Name {
	case OpMax, OpMin:
		return fmt.Sprintf("%s(%s, %s)", op.Name, x, y)
	}
	return fmt.Sprintf("%s %s %s", x, op.Name, y)
}

func (n *Accumulate) write(w *planWriter, p *Program) {
	w.line("acc = %s", combineString(n.Op, "acc", types.ExprString(p.Assign.RHS)))
}

func (n *Store) write(w *planWriter, p *Program) {
	w.line("%s = %s", p.Target, types.ExprString(p.Assign.RHS))
}

func (n *Fill) write(w *planWriter, p *Program) {
	w.line("%s = %s", p.Target.PartialString(), neutralString(n.Spec))
}

func (n *Flush) write(w *planWriter, p *Program) {
	w.line("%s = %s", p.Target, p.Target.PartialString())
}

// PlanString returns the plan as an indented loop nest.
func (p *Program) PlanString() string {
	w := &planWriter{}
	if p.Plan.Prologue != nil {
		p.Plan.Prologue.write(w, p)
	}
	p.Plan.Root.write(w, p)
	if p.Plan.Epilogue != nil {
		p.Plan.Epilogue.write(w, p)
	}
	return w.b.String()
}
