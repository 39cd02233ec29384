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

package interp

import (
	"go/ast"
	"slices"

	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/ir"
	"github.com/pkg/errors"
)

type (
	// state is the mutable state of a loop nest.
	state struct {
		fr frame
		// ranges are the current ranges of the indices. A tile loop narrows
		// the ranges of its group.
		ranges []Range
		acc    *values.Atom
	}

	execFn func(st *state) error
)

func (st *state) fork(acc *values.Atom) *state {
	return &state{
		fr:     slices.Clone(st.fr),
		ranges: slices.Clone(st.ranges),
		acc:    acc,
	}
}

func rangeLoop(st *state, slot int, r Range, body execFn) error {
	for v := r.Lo; v < r.Hi; v++ {
		st.fr[slot] = v
		if err := body(st); err != nil {
			return err
		}
	}
	return nil
}

func (rn *runner) compileNode(node ir.Node) (execFn, error) {
	switch node := node.(type) {
	case *ir.RangeLoop:
		return rn.rangeLoop(node)
	case *ir.UnrolledLoop:
		return rn.unrolledLoop(node)
	case *ir.TileLoop:
		return rn.tileLoop(node)
	case *ir.Reduce:
		return rn.reduce(node)
	case *ir.Accumulate:
		return rn.accumulate(node), nil
	case *ir.Store:
		return rn.store, nil
	case *ir.Fill:
		return rn.fill, nil
	case *ir.Flush:
		return rn.flush, nil
	}
	return nil, errors.Errorf("plan node %T not supported", node)
}

func (rn *runner) rangeLoop(node *ir.RangeLoop) (execFn, error) {
	body, err := rn.compileNode(node.Body)
	if err != nil {
		return nil, err
	}
	slot := node.Index.Slot
	if rn.parallel == node {
		return rn.parallelLoop(slot, body), nil
	}
	return func(st *state) error {
		return rangeLoop(st, slot, st.ranges[slot], body)
	}, nil
}

// unrolledLoop repeats the body Width times per iteration, then runs the
// remaining values one at a time.
func (rn *runner) unrolledLoop(node *ir.UnrolledLoop) (execFn, error) {
	body, err := rn.compileNode(node.Body)
	if err != nil {
		return nil, err
	}
	slot := node.Index.Slot
	bodies := slices.Repeat([]execFn{body}, node.Width)
	return func(st *state) error {
		r := st.ranges[slot]
		v := r.Lo
		for ; v+len(bodies) <= r.Hi; v += len(bodies) {
			for u, b := range bodies {
				st.fr[slot] = v + u
				if err := b(st); err != nil {
					return err
				}
			}
		}
		return rangeLoop(st, slot, Range{Lo: v, Hi: r.Hi}, body)
	}, nil
}

func (rn *runner) tileLoop(node *ir.TileLoop) (execFn, error) {
	body, err := rn.compileNode(node.Body)
	if err != nil {
		return nil, err
	}
	slots := make([]int, len(node.Indices))
	for i, x := range node.Indices {
		slots[i] = x.Slot
	}
	var blocks func(st *state, k int) error
	blocks = func(st *state, k int) error {
		if k == len(slots) {
			return body(st)
		}
		slot, width := slots[k], node.Widths[k]
		full := st.ranges[slot]
		defer func() { st.ranges[slot] = full }()
		for lo := full.Lo; lo < full.Hi; lo += width {
			st.ranges[slot] = Range{Lo: lo, Hi: min(lo+width, full.Hi)}
			if err := blocks(st, k+1); err != nil {
				return err
			}
		}
		return nil
	}
	return func(st *state) error {
		return blocks(st, 0)
	}, nil
}

func (rn *runner) reduce(node *ir.Reduce) (execFn, error) {
	body, err := rn.compileNode(node.Body)
	if err != nil {
		return nil, err
	}
	op := node.Spec.Op.Name
	if !node.Combine {
		return func(st *state) error {
			*st.acc = rn.init
			if err := body(st); err != nil {
				return err
			}
			return rn.write(st.fr, *st.acc)
		}, nil
	}
	return func(st *state) error {
		*st.acc = rn.neutral
		if err := body(st); err != nil {
			return err
		}
		off, err := rn.partialCell(st.fr)
		if err != nil {
			return err
		}
		v, err := combine(op, rn.partial.AtFlat(off), *st.acc)
		if err != nil {
			return err
		}
		rn.partial.SetFlat(off, v)
		return nil
	}, nil
}

func (rn *runner) accumulate(node *ir.Accumulate) execFn {
	op := node.Op.Name
	var src ast.Node = rn.prog.Assign.RHS
	if node.Op.Src != nil {
		src = node.Op.Src
	}
	return func(st *state) error {
		x, err := rn.elem(st.fr)
		if err != nil {
			return err
		}
		acc, err := combine(op, *st.acc, x)
		if err != nil {
			return rn.c.errorf(src, "%v", err)
		}
		*st.acc = acc
		return nil
	}
}

func (rn *runner) store(st *state) error {
	x, err := rn.elem(st.fr)
	if err != nil {
		return err
	}
	return rn.write(st.fr, x)
}

func (rn *runner) fill(st *state) error {
	off, err := rn.partialCell(st.fr)
	if err != nil {
		return err
	}
	rn.partial.SetFlat(off, rn.init)
	return nil
}

func (rn *runner) flush(st *state) error {
	off, err := rn.partialCell(st.fr)
	if err != nil {
		return err
	}
	return rn.write(st.fr, rn.partial.AtFlat(off))
}

// partialCell returns the offset of the partial result cell at the current
// indices. Fixed positions of the output are at 0 in the partial result.
func (rn *runner) partialCell(fr frame) (int, error) {
	pos := make([]int, len(rn.target))
	for i, p := range rn.target {
		if p.slot >= 0 {
			pos[i] = fr[p.slot]
		}
	}
	return rn.partial.Offset(pos)
}

// cell returns the offset of the output cell at the current indices.
func (rn *runner) cell(fr frame) (int, error) {
	pos := make([]int, len(rn.target))
	for i, p := range rn.target {
		if p.slot >= 0 {
			pos[i] = fr[p.slot]
		} else {
			pos[i] = p.fixed
		}
	}
	off, err := rn.out.Offset(pos)
	if err != nil {
		return 0, rn.c.errorf(rn.prog.Assign.Target.Expr, "%s: %v", rn.prog.Target.Name.Name, err)
	}
	return off, nil
}

func (rn *runner) write(fr frame, v values.Atom) error {
	off, err := rn.cell(fr)
	if err != nil {
		return err
	}
	rn.out.SetFlat(off, v)
	return nil
}
