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
	"fmt"
	"go/ast"
	"go/types"

	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
)

// Range is the half-open interval [Lo, Hi) of values taken by an index.
type Range struct {
	Lo, Hi int
}

// Len returns the number of values in the range.
func (r Range) Len() int {
	return max(r.Hi-r.Lo, 0)
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Lo, r.Hi)
}

// AxisMismatchError is returned when the derivations of the axis of an index
// disagree at run time.
type AxisMismatchError struct {
	// Index is the name of the index.
	Index string
	// Axis is the axis used to iterate over the index.
	Axis string
	// Got is the range of Axis.
	Got Range
	// Other is the derivation disagreeing with Axis.
	Other string
	// Want is the range of Other.
	Want Range
}

func (e *AxisMismatchError) Error() string {
	return fmt.Sprintf("axis mismatch for index %s: %s is %s but %s is %s", e.Index, e.Axis, e.Got, e.Other, e.Want)
}

func exprString(expr ast.Expr) string {
	return syntax.Unprime(types.ExprString(expr))
}

func kindOf(v values.Value) string {
	switch v.(type) {
	case values.Atom:
		return "a number"
	case values.Array:
		return "an array"
	case *values.Slice:
		return "a slice"
	case *values.Struct:
		return "a structure"
	case values.Func:
		return "a function"
	}
	return fmt.Sprintf("%T", v)
}

// axisRange evaluates an axis. Array sources cannot depend on an index
// value: the builder replaces their indices by the origin.
func (c *compiler) axisRange(axis ir.Axis) (Range, error) {
	switch axis := axis.(type) {
	case *ir.ArrayAxis:
		src, err := c.compile(axis.Source)
		if err != nil {
			return Range{}, err
		}
		val, err := src(c.zeroFrame())
		if err != nil {
			return Range{}, err
		}
		switch val := val.(type) {
		case values.Array:
			if axis.Dim >= len(val.Shape().AxisLengths) {
				return Range{}, c.errorf(axis.Ref.Expr, "cannot index %s with %d indices: %s has %d axes", exprString(axis.Source), axis.Dim+1, exprString(axis.Source), len(val.Shape().AxisLengths))
			}
			return Range{Hi: val.Len(axis.Dim)}, nil
		case *values.Slice:
			if axis.Dim > 0 {
				return Range{}, c.errorf(axis.Ref.Expr, "cannot index %s with %d indices", exprString(axis.Source), axis.Dim+1)
			}
			return Range{Hi: val.Len()}, nil
		}
		return Range{}, c.errorf(axis.Ref.Expr, "cannot index %s: %s is %s", exprString(axis.Source), exprString(axis.Source), kindOf(val))
	case *ir.BoundAxis:
		r := Range{}
		if axis.Lo != nil {
			lo, err := c.constInt(axis.Lo)
			if err != nil {
				return Range{}, err
			}
			r.Lo = lo
		}
		hi, err := c.constInt(axis.Hi)
		if err != nil {
			return Range{}, err
		}
		r.Hi = hi
		if axis.Inclusive {
			r.Hi++
		}
		return r, nil
	case *ir.FixedAxis:
		pos, err := c.constInt(axis.Src)
		if err != nil {
			return Range{}, err
		}
		return Range{Lo: pos, Hi: pos + 1}, nil
	}
	return Range{}, fmt.Errorf("axis %T not supported", axis)
}

func (c *compiler) constInt(expr ast.Expr) (int, error) {
	fn, err := c.compileAtom(expr)
	if err != nil {
		return 0, err
	}
	v, err := fn(c.zeroFrame())
	if err != nil {
		return 0, err
	}
	if v.IsFloat() {
		return 0, c.errorf(expr, "%s is not an integer", exprString(expr))
	}
	return int(v.Int()), nil
}

// resolveAxes returns the range of every index, by slot, and checks that all
// the derivations of an axis agree.
func (c *compiler) resolveAxes(prog *ir.Program) ([]Range, error) {
	ranges := make([]Range, prog.NumSlots())
	for _, bnd := range prog.Catalog.Bindings() {
		r, err := c.axisRange(bnd.Axis)
		if err != nil {
			return nil, err
		}
		for _, check := range bnd.Checks {
			other, err := c.axisRange(check)
			if err != nil {
				return nil, err
			}
			if other != r {
				return nil, &AxisMismatchError{
					Index: bnd.Index.String(),
					Axis:  bnd.Axis.String(),
					Got:   r,
					Other: check.String(),
					Want:  other,
				}
			}
		}
		ranges[bnd.Index.Slot] = r
	}
	return ranges, nil
}

// zeroFrame returns a frame with every index at 0 for expressions evaluated
// before the loops start.
func (c *compiler) zeroFrame() frame {
	return make(frame, len(c.slots))
}
