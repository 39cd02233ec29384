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

package values

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gx-org/backend/dtype"
)

// Atom is a scalar value.
// Integer and boolean values are stored in an int64, floating point values
// in a float64. Untyped atoms come from literals in the expression and adopt
// the type of the other operand in binary operations.
type Atom struct {
	dt      dtype.DataType
	f       float64
	i       int64
	untyped bool
}

var _ Value = Atom{}

// Float64 returns a float64 atom.
func Float64(v float64) Atom { return Atom{dt: dtype.Float64, f: v} }

// Float32 returns a float32 atom.
func Float32(v float32) Atom { return Atom{dt: dtype.Float32, f: float64(v)} }

// Int64 returns an int64 atom.
func Int64(v int64) Atom { return Atom{dt: dtype.Int64, i: v} }

// Int32 returns an int32 atom.
func Int32(v int32) Atom { return Atom{dt: dtype.Int32, i: int64(v)} }

// Bool returns a boolean atom.
func Bool(v bool) Atom {
	a := Atom{dt: dtype.Bool}
	if v {
		a.i = 1
	}
	return a
}

// UntypedInt returns an atom for an integer literal.
func UntypedInt(v int64) Atom { return Atom{dt: dtype.Int64, i: v, untyped: true} }

// UntypedFloat returns an atom for a floating point literal.
func UntypedFloat(v float64) Atom { return Atom{dt: dtype.Float64, f: v, untyped: true} }

func (Atom) value() {}

// DType returns the data type of the atom.
func (a Atom) DType() dtype.DataType { return a.dt }

// Untyped returns true if the atom comes from a literal.
func (a Atom) Untyped() bool { return a.untyped }

// IsFloat returns true if the atom holds a floating point value.
func (a Atom) IsFloat() bool { return IsFloat(a.dt) }

// Float returns the value of the atom as a float64.
func (a Atom) Float() float64 {
	if a.IsFloat() {
		return a.f
	}
	return float64(a.i)
}

// Int returns the value of the atom as an int64.
// Floating point values are truncated.
func (a Atom) Int() int64 {
	if a.IsFloat() {
		return int64(a.f)
	}
	return a.i
}

// Bool returns the value of the atom as a boolean.
func (a Atom) Bool() bool {
	if a.IsFloat() {
		return a.f != 0
	}
	return a.i != 0
}

// Convert the atom to a data type. The result is typed.
func (a Atom) Convert(dt dtype.DataType) Atom {
	switch dt {
	case dtype.Float64:
		return Float64(a.Float())
	case dtype.Float32:
		return Float32(float32(a.Float()))
	case dtype.Int64:
		return Int64(a.Int())
	case dtype.Int32:
		return Int32(int32(a.Int()))
	case dtype.Uint32:
		return Atom{dt: dt, i: int64(uint32(a.Int()))}
	case dtype.Bool:
		return Bool(a.Bool())
	}
	return a
}

// Typed returns the atom marked as typed.
func (a Atom) Typed() Atom {
	a.untyped = false
	return a
}

// String representation of the atom.
func (a Atom) String() string {
	switch {
	case a.dt == dtype.Bool:
		return strconv.FormatBool(a.Bool())
	case a.IsFloat():
		return strconv.FormatFloat(a.f, 'g', -1, 64)
	}
	return strconv.FormatInt(a.i, 10)
}

// GoString returns the atom with its type, e.g. float32(2).
func (a Atom) GoString() string {
	return fmt.Sprintf("%s(%s)", a.dt.String(), a.String())
}

// IsFloat returns true if the data type is a floating point type.
func IsFloat(dt dtype.DataType) bool {
	return dt == dtype.Float32 || dt == dtype.Float64
}

// Zero returns the zero of a data type.
func Zero(dt dtype.DataType) Atom {
	return UntypedInt(0).Convert(dt)
}

// One returns the one of a data type.
func One(dt dtype.DataType) Atom {
	return UntypedInt(1).Convert(dt)
}

// Lowest returns the smallest value of a data type.
// Floating point types return negative infinity.
func Lowest(dt dtype.DataType) Atom {
	switch dt {
	case dtype.Float32:
		return Float32(float32(math.Inf(-1)))
	case dtype.Float64:
		return Float64(math.Inf(-1))
	case dtype.Int32:
		return Int32(math.MinInt32)
	case dtype.Uint32:
		return Zero(dt)
	case dtype.Bool:
		return Bool(false)
	}
	return Int64(math.MinInt64)
}

// Highest returns the largest value of a data type.
// Floating point types return positive infinity.
func Highest(dt dtype.DataType) Atom {
	switch dt {
	case dtype.Float32:
		return Float32(float32(math.Inf(1)))
	case dtype.Float64:
		return Float64(math.Inf(1))
	case dtype.Int32:
		return Int32(math.MaxInt32)
	case dtype.Uint32:
		return Atom{dt: dt, i: math.MaxUint32}
	case dtype.Bool:
		return Bool(true)
	}
	return Int64(math.MaxInt64)
}
