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

package values_test

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/einloop/api/values"
)

func TestArrayString(t *testing.T) {
	tests := []struct {
		array values.Array
		want  string
	}{
		{
			array: values.Vector[int32](1, 2, 3),
			want:  "[3]int32{1, 2, 3}",
		},
		{
			array: values.Matrix([]float64{0, 1}, []float64{0.5, 2}),
			want: `
[2][2]float64{
	{0, 1},
	{0.5, 2},
}`,
		},
		{
			array: values.Vector[float32](),
			want:  "[0]float32{}",
		},
	}
	for i, test := range tests {
		got := test.array.String()
		want := strings.TrimSpace(test.want)
		if got != want {
			t.Errorf("test %d: got:\n%s\nwant:\n%s\ndiff:\n%s", i, got, want, cmp.Diff(got, want))
		}
	}
}

func TestArrayOffset(t *testing.T) {
	a, err := values.NewArray([]int64{0, 1, 2, 3, 4, 5}, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	off, err := a.Offset([]int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := a.AtFlat(off).Int(); got != 5 {
		t.Errorf("got %d but want 5", got)
	}
	if _, err := a.Offset([]int{2, 0}); err == nil {
		t.Errorf("expected an out of range error")
	}
	if _, err := a.Offset([]int{0}); err == nil {
		t.Errorf("expected an error for a missing index")
	}
	if _, err := values.NewArray([]int64{0, 1, 2}, 2, 2); err == nil {
		t.Errorf("expected an error for a data/axes mismatch")
	}
}

func TestArraySetConverts(t *testing.T) {
	a, err := values.Zeros(dtype.Int32, []int{2})
	if err != nil {
		t.Fatal(err)
	}
	a.SetFlat(1, values.Float64(2.75))
	got, err := values.ToSlice[int32](a)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{0, 2}, got); diff != "" {
		t.Errorf("unexpected data (-want +got):\n%s", diff)
	}
}

func TestExtremes(t *testing.T) {
	if got := values.Lowest(dtype.Float64).Float(); !math.IsInf(got, -1) {
		t.Errorf("lowest float64 = %v but want -Inf", got)
	}
	if got := values.Highest(dtype.Int32).Int(); got != math.MaxInt32 {
		t.Errorf("highest int32 = %d but want %d", got, math.MaxInt32)
	}
	if got := values.One(dtype.Float32).GoString(); got != "float32(1)" {
		t.Errorf("got %s but want float32(1)", got)
	}
}

func TestBuiltins(t *testing.T) {
	fns := values.Builtins()
	got, err := fns["log"]([]values.Value{values.Float64(math.E)})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.(values.Atom).Float()-1) > 1e-12 {
		t.Errorf("log(e) = %s but want 1", got)
	}
	if _, err := fns["exp"]([]values.Value{values.Vector[float64](1)}); err == nil {
		t.Errorf("expected an error when calling exp on an array")
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		src  string
		dt   dtype.DataType
		want string
	}{
		{src: "2.5", dt: dtype.Float64, want: "2.5"},
		{src: "[1, 2, 3]", dt: dtype.Int32, want: "[3]int32{1, 2, 3}"},
		{src: "[]", dt: dtype.Float32, want: "[0]float32{}"},
		{src: "[[1, 2], [3]]", dt: dtype.Int64, want: "[2]{[2]int64{1, 2}, [1]int64{3}}"},
		{src: "{w: [1, 2], b: 3}", dt: dtype.Float64, want: "struct{b: 3, w: [2]float64{1, 2}}"},
	}
	for _, test := range tests {
		got, err := values.ParseLiteral(test.src, test.dt)
		if err != nil {
			t.Errorf("%q: %v", test.src, err)
			continue
		}
		if got.String() != test.want {
			t.Errorf("%q: got %s but want %s", test.src, got.String(), test.want)
		}
	}
	matrix, err := values.ParseLiteral("[[1, 2, 3], [4, 5, 6]]", dtype.Float64)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2, 3}, matrix.(values.Array).Shape().AxisLengths); diff != "" {
		t.Errorf("unexpected shape:\n%s", diff)
	}
	for _, src := range []string{"[1, x]", "a: [1", "{a: 1"} {
		if _, err := values.ParseLiteral(src, dtype.Float64); err == nil {
			t.Errorf("%q: expected an error", src)
		}
	}
}
