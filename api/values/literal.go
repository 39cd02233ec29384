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
	"slices"
	"strconv"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParseLiteral parses a value written in YAML flow syntax:
//
//	2.5                  a number
//	[1, 2, 3]            a vector
//	[[1, 2], [3, 4]]     a matrix
//	[[1, 2], [3]]        a slice of vectors
//	{w: [1, 2], b: 3}    a structure
//
// Numbers are converted to dt.
func ParseLiteral(src string, dt dtype.DataType) (Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %q", src)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, errors.Errorf("cannot parse %q: want a single value", src)
	}
	return fromNode(doc.Content[0], dt)
}

func fromNode(node *yaml.Node, dt dtype.DataType) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, errors.Errorf("line %d: %q is not a number", node.Line, node.Value)
		}
		return Float64(f).Convert(dt), nil
	case yaml.MappingNode:
		fields := make(map[string]Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			val, err := fromNode(node.Content[i+1], dt)
			if err != nil {
				return nil, err
			}
			fields[node.Content[i].Value] = val
		}
		return NewStruct(fields), nil
	case yaml.SequenceNode:
		if axes, ok := denseShape(node); ok {
			return denseArray(node, dt, axes)
		}
		elems := make([]Value, len(node.Content))
		for i, child := range node.Content {
			var err error
			if elems[i], err = fromNode(child, dt); err != nil {
				return nil, err
			}
		}
		return NewSlice(elems...), nil
	}
	return nil, errors.Errorf("line %d: unsupported value", node.Line)
}

// denseShape returns the axis lengths of nested sequences of numbers with
// the same lengths at each level.
func denseShape(node *yaml.Node) ([]int, bool) {
	switch node.Kind {
	case yaml.ScalarNode:
		return nil, true
	case yaml.SequenceNode:
	default:
		return nil, false
	}
	var inner []int
	for i, child := range node.Content {
		axes, ok := denseShape(child)
		if !ok {
			return nil, false
		}
		if i > 0 && !slices.Equal(axes, inner) {
			return nil, false
		}
		inner = axes
	}
	return append([]int{len(node.Content)}, inner...), true
}

func denseArray(node *yaml.Node, dt dtype.DataType, axes []int) (Value, error) {
	array, err := Zeros(dt, axes)
	if err != nil {
		return nil, err
	}
	i := 0
	var fill func(*yaml.Node) error
	fill = func(node *yaml.Node) error {
		if node.Kind == yaml.ScalarNode {
			f, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return errors.Errorf("line %d: %q is not a number", node.Line, node.Value)
			}
			array.SetFlat(i, Float64(f))
			i++
			return nil
		}
		for _, child := range node.Content {
			if err := fill(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := fill(node); err != nil {
		return nil, err
	}
	return array, nil
}
