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
	"math"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

// Func is a function called from an expression.
// Its body is opaque: errors it returns are reported to the caller as is.
type Func func(args []Value) (Value, error)

var _ Value = Func(nil)

func (Func) value() {}

// String representation of the function.
func (Func) String() string {
	return "func"
}

// FloatFunc returns a function applying f to one numerical argument.
// The result is float64, or float32 if the argument is float32.
func FloatFunc(f func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		x, err := atomArgs(args, 1)
		if err != nil {
			return nil, err
		}
		r := Float64(f(x[0].Float()))
		if x[0].DType() == dtype.Float32 && !x[0].Untyped() {
			return r.Convert(x[0].DType()), nil
		}
		return r, nil
	}
}

// FloatFunc2 returns a function applying f to two numerical arguments.
func FloatFunc2(f func(float64, float64) float64) Func {
	return func(args []Value) (Value, error) {
		x, err := atomArgs(args, 2)
		if err != nil {
			return nil, err
		}
		return Float64(f(x[0].Float(), x[1].Float())), nil
	}
}

func atomArgs(args []Value, n int) ([]Atom, error) {
	if len(args) != n {
		return nil, errors.Errorf("got %d arguments but want %d", len(args), n)
	}
	atoms := make([]Atom, n)
	for i, arg := range args {
		atom, ok := arg.(Atom)
		if !ok {
			return nil, errors.Errorf("argument %d is %T: want a number", i, arg)
		}
		atoms[i] = atom
	}
	return atoms, nil
}

// Builtins returns the functions available in every environment.
func Builtins() map[string]Func {
	return map[string]Func{
		"log":     FloatFunc(math.Log),
		"exp":     FloatFunc(math.Exp),
		"sqrt":    FloatFunc(math.Sqrt),
		"sin":     FloatFunc(math.Sin),
		"cos":     FloatFunc(math.Cos),
		"tanh":    FloatFunc(math.Tanh),
		"pow":     FloatFunc2(math.Pow),
		"abs":     absFunc,
		"float64": convFunc(dtype.Float64),
		"float32": convFunc(dtype.Float32),
		"int64":   convFunc(dtype.Int64),
		"int32":   convFunc(dtype.Int32),
	}
}

func absFunc(args []Value) (Value, error) {
	x, err := atomArgs(args, 1)
	if err != nil {
		return nil, err
	}
	if x[0].IsFloat() {
		return Float64(math.Abs(x[0].Float())).Convert(x[0].DType()), nil
	}
	v := x[0].Int()
	if v < 0 {
		v = -v
	}
	return Int64(v).Convert(x[0].DType()), nil
}

func convFunc(target dtype.DataType) Func {
	return func(args []Value) (Value, error) {
		x, err := atomArgs(args, 1)
		if err != nil {
			return nil, err
		}
		return x[0].Convert(target), nil
	}
}
