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
	"reflect"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

type (
	// Element is the constraint on Go types that can be stored in an array.
	Element interface {
		constraints.Float | ~int32 | ~int64 | ~uint32
	}

	// Array is a multi-dimensional array stored on the host in row-major order.
	Array interface {
		Value

		// Shape of the array.
		Shape() *shape.Shape

		// Len returns the length of an axis.
		Len(axis int) int

		// Offset returns the position of an element in the flat data.
		Offset(pos []int) (int, error)

		// AtFlat returns the element at a position in the flat data.
		AtFlat(i int) Atom

		// SetFlat sets the element at a position in the flat data.
		// The atom is converted to the data type of the array.
		SetFlat(i int, a Atom)

		// Flat returns the underlying Go slice, e.g. []float64.
		Flat() any
	}

	hostArray[T Element] struct {
		shape   shape.Shape
		strides []int
		data    []T
	}
)

var _ Array = (*hostArray[float32])(nil)

// DTypeOf returns the data type corresponding to a Go element type.
func DTypeOf[T Element]() dtype.DataType {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Float32:
		return dtype.Float32
	case reflect.Float64:
		return dtype.Float64
	case reflect.Int32:
		return dtype.Int32
	case reflect.Uint32:
		return dtype.Uint32
	}
	return dtype.Int64
}

func strides(axes []int) []int {
	st := make([]int, len(axes))
	acc := 1
	for i := len(axes) - 1; i >= 0; i-- {
		st[i] = acc
		acc *= axes[i]
	}
	return st
}

func newHostArray[T Element](data []T, axes []int) *hostArray[T] {
	return &hostArray[T]{
		shape: shape.Shape{
			DType:       DTypeOf[T](),
			AxisLengths: axes,
		},
		strides: strides(axes),
		data:    data,
	}
}

// NewArray returns an array given its flat data in row-major order and the
// length of its axes. A vector of len(data) is returned if no axis is given.
// The array references data: it is not copied.
func NewArray[T Element](data []T, axes ...int) (Array, error) {
	if len(axes) == 0 {
		axes = []int{len(data)}
	}
	size := 1
	for _, ax := range axes {
		if ax < 0 {
			return nil, errors.Errorf("invalid negative axis length in %v", axes)
		}
		size *= ax
	}
	if size != len(data) {
		return nil, errors.Errorf("len(data)=%d does not match axes %v=%d", len(data), axes, size)
	}
	return newHostArray(data, append([]int{}, axes...)), nil
}

// Vector returns a one-dimensional array.
func Vector[T Element](data ...T) Array {
	return newHostArray(data, []int{len(data)})
}

// Matrix returns a two-dimensional array given its rows.
// It panics if the rows do not have the same length.
func Matrix[T Element](rows ...[]T) Array {
	if len(rows) == 0 {
		return newHostArray([]T{}, []int{0, 0})
	}
	cols := len(rows[0])
	data := make([]T, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			panic(errors.Errorf("row %d has %d columns but row 0 has %d", i, len(row), cols))
		}
		data = append(data, row...)
	}
	return newHostArray(data, []int{len(rows), cols})
}

// Zeros returns a new array filled with zeros given a data type.
func Zeros(dt dtype.DataType, axes []int) (Array, error) {
	size := 1
	for _, ax := range axes {
		size *= ax
	}
	axes = append([]int{}, axes...)
	switch dt {
	case dtype.Float32:
		return newHostArray(make([]float32, size), axes), nil
	case dtype.Float64:
		return newHostArray(make([]float64, size), axes), nil
	case dtype.Int32:
		return newHostArray(make([]int32, size), axes), nil
	case dtype.Int64:
		return newHostArray(make([]int64, size), axes), nil
	case dtype.Uint32:
		return newHostArray(make([]uint32, size), axes), nil
	}
	return nil, errors.Errorf("cannot allocate an array of %s", dt.String())
}

func (*hostArray[T]) value() {}

// Shape of the array.
func (a *hostArray[T]) Shape() *shape.Shape {
	return &a.shape
}

// Len returns the length of an axis.
func (a *hostArray[T]) Len(axis int) int {
	return a.shape.AxisLengths[axis]
}

// Offset returns the position of an element in the flat data.
func (a *hostArray[T]) Offset(pos []int) (int, error) {
	axes := a.shape.AxisLengths
	if len(pos) != len(axes) {
		return 0, errors.Errorf("cannot index a %d-dimensional array with %d indices", len(axes), len(pos))
	}
	off := 0
	for i, p := range pos {
		if p < 0 || p >= axes[i] {
			return 0, errors.Errorf("index %d out of range [0,%d) on axis %d", p, axes[i], i)
		}
		off += p * a.strides[i]
	}
	return off, nil
}

// AtFlat returns the element at a position in the flat data.
func (a *hostArray[T]) AtFlat(i int) Atom {
	switch a.shape.DType {
	case dtype.Float32, dtype.Float64:
		return Atom{dt: a.shape.DType, f: float64(a.data[i])}
	}
	return Atom{dt: a.shape.DType, i: int64(a.data[i])}
}

// SetFlat sets the element at a position in the flat data.
func (a *hostArray[T]) SetFlat(i int, v Atom) {
	if v.IsFloat() {
		a.data[i] = T(v.Float())
		return
	}
	a.data[i] = T(v.Int())
}

// Flat returns the underlying Go slice.
func (a *hostArray[T]) Flat() any {
	return a.data
}

// String representation of the array.
func (a *hostArray[T]) String() string {
	return formatArray(a.data, a.shape.DType, a.shape.AxisLengths)
}

// ToSlice returns the flat data of an array as a slice of a given Go type.
func ToSlice[T Element](a Array) ([]T, error) {
	data, ok := a.Flat().([]T)
	if !ok {
		return nil, errors.Errorf("cannot convert array of %s to %T", a.Shape().DType.String(), data)
	}
	return data, nil
}
