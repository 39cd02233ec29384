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
	"strings"

	"github.com/gx-org/backend/dtype"
)

const tab = "\t"

type formatter[T Element] struct {
	w       *strings.Builder
	data    []T
	axes    []int
	strides []int
}

func (f *formatter[T]) toValue(x T) string {
	var fmtstr string
	switch any(x).(type) {
	case float32:
		fmtstr = "%.6f"
	case float64:
		fmtstr = "%.10f"
	default:
		return fmt.Sprint(x)
	}
	result := fmt.Sprintf(fmtstr, x)
	if strings.ContainsRune(result, '.') {
		// Remove trailing zeroes after the decimal point, and remove
		// the point itself if there are no digits after it.
		result = strings.TrimRight(result, "0")
		result = strings.TrimSuffix(result, ".")
	}
	return result
}

func (f *formatter[T]) printVector(offset int) {
	n := f.axes[len(f.axes)-1]
	vec := make([]string, n)
	for i := range n {
		vec[i] = f.toValue(f.data[offset+i])
	}
	fmt.Fprintf(f.w, "{%s}", strings.Join(vec, ", "))
}

func (f *formatter[T]) printRec(indent string, axis, offset int) {
	if axis == len(f.axes)-1 {
		f.printVector(offset)
		return
	}
	f.w.WriteString("{\n")
	for i := range f.axes[axis] {
		f.w.WriteString(indent + tab)
		f.printRec(indent+tab, axis+1, offset+i*f.strides[axis])
		f.w.WriteString(",\n")
	}
	f.w.WriteString(indent + "}")
}

// formatArray returns a Go-like literal of an array, e.g. [2]float64{1, 2}.
func formatArray[T Element](data []T, dt dtype.DataType, axes []int) string {
	f := &formatter[T]{
		w:       &strings.Builder{},
		data:    data,
		axes:    axes,
		strides: strides(axes),
	}
	for _, ax := range axes {
		fmt.Fprintf(f.w, "[%d]", ax)
	}
	f.w.WriteString(dt.String())
	if len(axes) == 0 {
		fmt.Fprintf(f.w, "(%s)", f.toValue(data[0]))
		return f.w.String()
	}
	if len(data) == 0 {
		f.w.WriteString("{}")
		return f.w.String()
	}
	f.printRec("", 0, 0)
	return f.w.String()
}
