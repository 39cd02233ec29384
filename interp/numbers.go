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
	"go/token"
	"math"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/ir"
	"github.com/pkg/errors"
)

// resultType returns the type of a binary operation between two atoms and
// whether the result is untyped.
func resultType(x, y values.Atom) (dtype.DataType, bool) {
	xf, yf := x.IsFloat(), y.IsFloat()
	switch {
	case x.Untyped() && y.Untyped():
		if xf || yf {
			return dtype.Float64, true
		}
		return dtype.Int64, true
	case x.Untyped():
		if xf && !yf {
			return dtype.Float64, false
		}
		return y.DType(), false
	case y.Untyped():
		if yf && !xf {
			return dtype.Float64, false
		}
		return x.DType(), false
	case x.DType() == y.DType():
		return x.DType(), false
	case xf || yf:
		return dtype.Float64, false
	}
	return dtype.Int64, false
}

func newAtom(dt dtype.DataType, untyped bool, f float64, i int64) values.Atom {
	isFloat := values.IsFloat(dt)
	switch {
	case untyped && isFloat:
		return values.UntypedFloat(f)
	case untyped:
		return values.UntypedInt(i)
	case isFloat:
		return values.Float64(f).Convert(dt)
	}
	return values.Int64(i).Convert(dt)
}

func compare(op token.Token, c int) (values.Atom, bool) {
	switch op {
	case token.EQL:
		return values.Bool(c == 0), true
	case token.NEQ:
		return values.Bool(c != 0), true
	case token.LSS:
		return values.Bool(c < 0), true
	case token.LEQ:
		return values.Bool(c <= 0), true
	case token.GTR:
		return values.Bool(c > 0), true
	case token.GEQ:
		return values.Bool(c >= 0), true
	}
	return values.Atom{}, false
}

func cmp3[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func binary(op token.Token, x, y values.Atom) (values.Atom, error) {
	switch op {
	case token.LAND:
		return values.Bool(x.Bool() && y.Bool()), nil
	case token.LOR:
		return values.Bool(x.Bool() || y.Bool()), nil
	}
	dt, untyped := resultType(x, y)
	if values.IsFloat(dt) {
		a, b := x.Float(), y.Float()
		switch op {
		case token.ADD:
			return newAtom(dt, untyped, a+b, 0), nil
		case token.SUB:
			return newAtom(dt, untyped, a-b, 0), nil
		case token.MUL:
			return newAtom(dt, untyped, a*b, 0), nil
		case token.QUO:
			return newAtom(dt, untyped, a/b, 0), nil
		}
		if math.IsNaN(a) || math.IsNaN(b) {
			switch op {
			case token.EQL, token.LSS, token.LEQ, token.GTR, token.GEQ:
				return values.Bool(false), nil
			case token.NEQ:
				return values.Bool(true), nil
			}
		}
		if r, ok := compare(op, cmp3(a, b)); ok {
			return r, nil
		}
		return values.Atom{}, errors.Errorf("operator %s not supported on %s", op, dt.String())
	}
	a, b := x.Int(), y.Int()
	switch op {
	case token.ADD:
		return newAtom(dt, untyped, 0, a+b), nil
	case token.SUB:
		return newAtom(dt, untyped, 0, a-b), nil
	case token.MUL:
		return newAtom(dt, untyped, 0, a*b), nil
	case token.QUO, token.REM:
		if b == 0 {
			return values.Atom{}, errors.New("integer division by zero")
		}
		if op == token.QUO {
			return newAtom(dt, untyped, 0, a/b), nil
		}
		return newAtom(dt, untyped, 0, a%b), nil
	case token.AND:
		return newAtom(dt, untyped, 0, a&b), nil
	case token.OR:
		return newAtom(dt, untyped, 0, a|b), nil
	case token.XOR:
		return newAtom(dt, untyped, 0, a^b), nil
	}
	if r, ok := compare(op, cmp3(a, b)); ok {
		return r, nil
	}
	return values.Atom{}, errors.Errorf("operator %s not supported on %s", op, dt.String())
}

func unary(op token.Token, x values.Atom) (values.Atom, error) {
	switch op {
	case token.ADD:
		return x, nil
	case token.SUB:
		if x.IsFloat() {
			return newAtom(x.DType(), x.Untyped(), -x.Float(), 0), nil
		}
		return newAtom(x.DType(), x.Untyped(), 0, -x.Int()), nil
	case token.NOT:
		return values.Bool(!x.Bool()), nil
	}
	return values.Atom{}, errors.Errorf("unary operator %s not supported", op)
}

// combine applies a reduction operator to the accumulator and an element.
func combine(op string, acc, x values.Atom) (values.Atom, error) {
	switch op {
	case ir.OpAdd:
		return binary(token.ADD, acc, x)
	case ir.OpMul:
		return binary(token.MUL, acc, x)
	case ir.OpAnd:
		return binary(token.AND, acc, x)
	case ir.OpOr:
		return binary(token.OR, acc, x)
	case ir.OpMax:
		return extreme(acc, x, 1), nil
	case ir.OpMin:
		return extreme(acc, x, -1), nil
	}
	return values.Atom{}, errors.Errorf("unknown reduction operator %q", op)
}

// extreme keeps x over acc when x compares to acc with the sign dir.
// NaN elements propagate.
func extreme(acc, x values.Atom, dir int) values.Atom {
	dt, untyped := resultType(acc, x)
	var c int
	if values.IsFloat(dt) {
		if math.IsNaN(x.Float()) {
			return newAtom(dt, untyped, x.Float(), 0)
		}
		c = cmp3(x.Float(), acc.Float())
	} else {
		c = cmp3(x.Int(), acc.Int())
	}
	if c == dir {
		return newAtom(dt, untyped, x.Float(), x.Int())
	}
	return newAtom(dt, untyped, acc.Float(), acc.Int())
}

// neutral returns the neutral element of a reduction operator for a data
// type. The neutral element of min is the largest value of the type.
func neutral(op string, dt dtype.DataType) (values.Atom, error) {
	switch op {
	case ir.OpAdd, ir.OpOr:
		return values.Zero(dt), nil
	case ir.OpMul:
		return values.One(dt), nil
	case ir.OpAnd:
		return values.UntypedInt(-1).Convert(dt), nil
	case ir.OpMax:
		return values.Lowest(dt), nil
	case ir.OpMin:
		return values.Highest(dt), nil
	}
	return values.Atom{}, errors.Errorf("unknown reduction operator %q", op)
}
