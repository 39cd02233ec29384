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
	"slices"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Struct groups named values. It is the base of a field access in an
	// expression, e.g. S.weights[i].
	Struct struct {
		fields map[string]Value
	}

	// Slice is an array of arrays: each element is indexed separately, e.g.
	// B[i][j] where B is a slice of vectors.
	Slice struct {
		elems []Value
	}
)

var (
	_ Value = (*Struct)(nil)
	_ Value = (*Slice)(nil)
)

// NewStruct returns a new structure given its fields.
func NewStruct(fields map[string]Value) *Struct {
	return &Struct{fields: fields}
}

func (*Struct) value() {}

// Field returns the value of a field.
func (s *Struct) Field(name string) (Value, error) {
	v, ok := s.fields[name]
	if !ok {
		return nil, errors.Errorf("structure has no field %q", name)
	}
	return v, nil
}

// String representation of the structure.
func (s *Struct) String() string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	b.WriteString("struct{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", name, s.fields[name].String())
	}
	b.WriteString("}")
	return b.String()
}

// NewSlice returns a slice of values.
func NewSlice(elems ...Value) *Slice {
	return &Slice{elems: elems}
}

func (*Slice) value() {}

// Len returns the number of elements in the slice.
func (s *Slice) Len() int {
	return len(s.elems)
}

// Elem returns an element given its index.
func (s *Slice) Elem(i int) (Value, error) {
	if i < 0 || i >= len(s.elems) {
		return nil, errors.Errorf("index %d out of range [0,%d)", i, len(s.elems))
	}
	return s.elems[i], nil
}

// String representation of the slice.
func (s *Slice) String() string {
	ss := make([]string, len(s.elems))
	for i, el := range s.elems {
		ss[i] = el.String()
	}
	return fmt.Sprintf("[%d]{%s}", len(s.elems), strings.Join(ss, ", "))
}
