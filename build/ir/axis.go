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
	"go/ast"
	"go/types"
	"slices"

	"github.com/gx-org/einloop/base/ordered"
)

type (
	// Axis is the range of values of an index.
	Axis interface {
		axis()
		// Node returns the source of the axis for error reporting.
		Node() ast.Node
		String() string
	}

	// ArrayAxis is the range [0, n) where n is the length of a dimension
	// of an array.
	ArrayAxis struct {
		// Ref is the reference from which the axis has been derived.
		Ref *ArrayRef
		// Source evaluates to the array, see ArrayRef.AxisSource.
		Source ast.Expr
		// Dim is the dimension of the array.
		Dim int
	}

	// BoundAxis is a range given explicitly in a directive.
	BoundAxis struct {
		// Src is the directive argument setting the bound.
		Src ast.Expr
		// Lo is the first value of the range. Nil means the origin 0.
		Lo ast.Expr
		// Hi is the upper bound.
		Hi ast.Expr
		// Inclusive is true if Hi belongs to the range.
		Inclusive bool
	}

	// FixedAxis is the range of one element of an output dimension set to a
	// fixed position.
	FixedAxis struct {
		Src ast.Expr
	}
)

var (
	_ Axis = (*ArrayAxis)(nil)
	_ Axis = (*BoundAxis)(nil)
	_ Axis = (*FixedAxis)(nil)
)

func (*ArrayAxis) axis() {}

// Node returns the array reference.
func (a *ArrayAxis) Node() ast.Node { return a.Ref.Expr }

func (a *ArrayAxis) String() string {
	return fmt.Sprintf("axes(%s, %d)", types.ExprString(a.Source), a.Dim)
}

func (*BoundAxis) axis() {}

// Node returns the directive argument.
func (a *BoundAxis) Node() ast.Node { return a.Src }

func (a *BoundAxis) String() string {
	lo := "0"
	if a.Lo != nil {
		lo = types.ExprString(a.Lo)
	}
	op := "<"
	if a.Inclusive {
		op = "<="
	}
	return fmt.Sprintf("%s <= _ %s %s", lo, op, types.ExprString(a.Hi))
}

func (*FixedAxis) axis() {}

// Node returns the fixed position.
func (a *FixedAxis) Node() ast.Node { return a.Src }

func (a *FixedAxis) String() string {
	return "fixed(" + types.ExprString(a.Src) + ")"
}

// SameAxis returns true if two axes are structurally equal, in which case
// no run-time check is required.
func SameAxis(a, b Axis) bool {
	switch a := a.(type) {
	case *ArrayAxis:
		b, ok := b.(*ArrayAxis)
		return ok && a.Dim == b.Dim && types.ExprString(a.Source) == types.ExprString(b.Source)
	case *BoundAxis:
		return a == b
	}
	return false
}

// Binding is the axis of an index.
type Binding struct {
	// Index bound to the axis.
	Index *Index
	// Axis iterated over by the index.
	Axis Axis
	// Checks are other derivations of the axis. They are compared with Axis
	// when the program runs.
	Checks []Axis
}

// Catalog maps indices to their axis.
type Catalog struct {
	bindings *ordered.Map[string, *Binding]
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{bindings: ordered.NewMap[string, *Binding]()}
}

// Bind an axis to an index. If the index is already bound, the axis is
// recorded as a derivation to check against the existing one at run time,
// unless both are structurally equal.
func (c *Catalog) Bind(index *Index, axis Axis) *Binding {
	bnd, ok := c.bindings.Load(index.Name)
	if !ok {
		bnd = &Binding{Index: index, Axis: axis}
		c.bindings.Store(index.Name, bnd)
		return bnd
	}
	if SameAxis(bnd.Axis, axis) {
		return bnd
	}
	for _, check := range bnd.Checks {
		if SameAxis(check, axis) {
			return bnd
		}
	}
	bnd.Checks = append(bnd.Checks, axis)
	return bnd
}

// Override the axis of an index with an explicit bound. Derivations from
// arrays are dropped: accesses out of the arrays are reported when the
// program runs.
func (c *Catalog) Override(index *Index, axis *BoundAxis) {
	c.bindings.Store(index.Name, &Binding{Index: index, Axis: axis})
}

// Lookup returns the binding of an index.
func (c *Catalog) Lookup(name string) (*Binding, bool) {
	return c.bindings.Load(name)
}

// Bindings returns all the bindings in order of first derivation.
func (c *Catalog) Bindings() []*Binding {
	return slices.Collect(c.bindings.Values())
}
