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

// Package interp runs the loop plan of a program on host arrays.
//
// The right-hand side is compiled once into closures reading the index
// values from a frame. The loops of the plan then update the frame and
// write the elements in the output array.
package interp

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/einloop/api/options"
	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/ir"
)

type (
	// targetPos is a dimension of the output: either the slot of an index
	// or a fixed position if slot is negative.
	targetPos struct {
		slot  int
		fixed int
	}

	runner struct {
		prog   *ir.Program
		opts   options.Options
		c      *compiler
		elem   func(frame) (values.Atom, error)
		out    values.Array
		target []targetPos
		// axes of the output indices, 1 for fixed positions.
		axes []int
		// partial is the result of a tiled reduction before it is copied
		// in the output, nil if no reduction index is tiled.
		partial values.Array
		// init is the first value of the accumulator and neutral the
		// neutral element of the reduction operator.
		init, neutral values.Atom
		// parallel is the loop run on the worker pool, nil if none.
		parallel *ir.RangeLoop
	}
)

// Run executes a program given the values of the names of its right-hand
// side. A := statement returns a new array. Other statements update the
// array of env named by the left-hand side and return it.
func Run(prog *ir.Program, env values.Env, opts ...options.Option) (values.Array, error) {
	rn := &runner{
		prog: prog,
		opts: options.New(opts...),
		c: &compiler{
			fset:     prog.Assign.FSet,
			slots:    make(map[string]int, prog.NumSlots()),
			env:      env,
			builtins: values.Builtins(),
		},
	}
	for name, x := range prog.Indices.Iter() {
		rn.c.slots[name] = x.Slot
	}
	ranges, err := rn.c.resolveAxes(prog)
	if err != nil {
		return nil, err
	}
	for _, bnd := range prog.Catalog.Bindings() {
		rn.opts.Tracef("%s in %s: %s", bnd.Index, bnd.Axis, ranges[bnd.Index.Slot])
	}
	if rn.elem, err = rn.c.compileAtom(prog.Assign.RHS); err != nil {
		return nil, err
	}
	if err := rn.buildTarget(ranges); err != nil {
		return nil, err
	}
	if err := rn.buildReduction(); err != nil {
		return nil, err
	}
	if rn.opts.Parallel {
		rn.parallel = prog.Plan.OutermostOutput()
	}
	return rn.run(ranges)
}

func (rn *runner) run(ranges []Range) (values.Array, error) {
	var acc accSlot
	st := &state{
		fr:     make(frame, rn.prog.NumSlots()),
		ranges: ranges,
		acc:    &acc.acc,
	}
	if prologue := rn.prog.Plan.Prologue; prologue != nil {
		fn, err := rn.compileNode(prologue)
		if err != nil {
			return nil, err
		}
		if err := fn(st); err != nil {
			return nil, err
		}
	}
	fn, err := rn.compileNode(rn.prog.Plan.Root)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if epilogue := rn.prog.Plan.Epilogue; epilogue != nil {
		fn, err := rn.compileNode(epilogue)
		if err != nil {
			return nil, err
		}
		if err := fn(st); err != nil {
			return nil, err
		}
	}
	return rn.out, nil
}

// elementType evaluates the right-hand side at the first value of every
// index. The element type is float64 if an axis is empty.
func (rn *runner) elementType(ranges []Range) (dtype.DataType, error) {
	fr := make(frame, len(ranges))
	for slot, r := range ranges {
		if r.Len() == 0 {
			return dtype.Float64, nil
		}
		fr[slot] = r.Lo
	}
	sample, err := rn.elem(fr)
	if err != nil {
		return dtype.Invalid, err
	}
	return sample.DType(), nil
}

func (rn *runner) buildTarget(ranges []Range) error {
	tgt := rn.prog.Target
	rn.target = make([]targetPos, len(tgt.Indices))
	axes := make([]int, len(tgt.Indices))
	for i, ri := range tgt.Indices {
		if ri.Index != nil {
			rn.target[i] = targetPos{slot: ri.Index.Slot}
			axes[i] = ranges[ri.Index.Slot].Len()
			continue
		}
		pos, err := rn.c.constInt(ri.Fixed)
		if err != nil {
			return err
		}
		rn.target[i] = targetPos{slot: -1, fixed: pos}
		axes[i] = 1
	}
	rn.axes = axes
	if tgt.Define {
		dt, err := rn.elementType(ranges)
		if err != nil {
			return err
		}
		out, err := values.Zeros(dt, axes)
		if err != nil {
			return rn.c.errorf(rn.prog.Assign.RHS, "%v", err)
		}
		rn.out = out
		rn.opts.Tracef("%s: allocate %s", tgt, out.Shape())
		return nil
	}
	val, err := rn.c.lookup(tgt.Name)
	if err != nil {
		return err
	}
	out, ok := val.(values.Array)
	if !ok {
		return rn.c.errorf(tgt.Name, "cannot assign to %s: %s is %s", tgt.Name.Name, tgt.Name.Name, kindOf(val))
	}
	if got := len(out.Shape().AxisLengths); got != len(tgt.Indices) {
		return rn.c.errorf(rn.prog.Assign.Target.Expr, "cannot index %s with %d indices: %s has %d axes", tgt.Name.Name, len(tgt.Indices), tgt.Name.Name, got)
	}
	rn.out = out
	return nil
}

func (rn *runner) buildReduction() error {
	spec := rn.prog.Reduce
	if spec == nil {
		return nil
	}
	dt := rn.out.Shape().DType
	var err error
	if rn.neutral, err = neutral(spec.Op.Name, dt); err != nil {
		return err
	}
	if rn.prog.Plan.Prologue != nil {
		if rn.partial, err = values.Zeros(dt, rn.axes); err != nil {
			return rn.c.errorf(rn.prog.Assign.RHS, "%v", err)
		}
	}
	rn.init = rn.neutral
	if spec.Init == nil {
		return nil
	}
	init, err := rn.c.compileAtom(spec.Init)
	if err != nil {
		return err
	}
	v, err := init(rn.c.zeroFrame())
	if err != nil {
		return err
	}
	rn.init = v.Convert(dt)
	return nil
}
