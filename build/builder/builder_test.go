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

package builder_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/einloop/build/builder"
	"github.com/gx-org/einloop/build/ir"
)

func build(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := builder.BuildSource("expr", src)
	if err != nil {
		t.Fatalf("cannot build %q:\n%+v", src, err)
	}
	return prog
}

func names(indices []*ir.Index) []string {
	var ss []string
	for _, x := range indices {
		ss = append(ss, x.String())
	}
	return ss
}

func TestPlan(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{
			src: "A[i,j] := B[i] * log(C[j])",
			want: `
for j in axes(C, 0) {
	for i in axes(B, 0) {
		A[i,j] = B[i] * log(C[j])
	}
}
`,
		},
		{
			src: "A[i] := B[i,j]*C[k] (+, j, k)",
			want: `
for i in axes(B, 0) {
	acc := neutral(+)
	for j in axes(B, 1) {
		for k in axes(C, 0) {
			acc = acc + B[i, j] * C[k]
		}
	}
	A[i] = acc
}
`,
		},
		{
			src: "A[i] := B[i,j]*C[k] (max, k, unroll(2), j, init = 0)",
			want: `
for i in axes(B, 0) {
	acc := 0
	for k in axes(C, 0) {
		for j in axes(B, 1) unroll 2 {
			acc = max(acc, B[i, j] * C[k])
		}
	}
	A[i] = acc
}
`,
		},
		{
			src: "A[i,j] := B[i,k]*C[k,j] {tile(256), i, j}",
			want: `
for tile(i/16, j/16) {
	for j in axes(C, 1) {
		for i in axes(B, 0) {
			acc := neutral(+)
			for k in axes(B, 1) {
				acc = acc + B[i, k] * C[k, j]
			}
			A[i,j] = acc
		}
	}
}
`,
		},
		{
			src: "A[i] := B[i,k] {tile(4), k}",
			want: `
for i in axes(B, 0) {
	partial(A)[i] = neutral(+)
}
for tile(k/4) {
	for i in axes(B, 0) {
		acc := neutral(+)
		for k in axes(B, 1) {
			acc = acc + B[i, k]
		}
		partial(A)[i] = partial(A)[i] + acc
	}
}
for i in axes(B, 0) {
	A[i] = partial(A)[i]
}
`,
		},
		{
			src: "s := B[i]*C[i]",
			want: `
acc := neutral(+)
for i in axes(B, 0) {
	acc = acc + B[i] * C[i]
}
s = acc
`,
		},
	}
	for i, test := range tests {
		prog := build(t, test.src)
		got := strings.TrimSpace(prog.PlanString())
		want := strings.TrimSpace(test.want)
		if got != want {
			t.Errorf("test %d: %q: got:\n%s\nwant:\n%s\ndiff:\n%s", i, test.src, got, want, cmp.Diff(got, want))
		}
	}
}

func TestReductionOrder(t *testing.T) {
	tests := []struct {
		src    string
		want   []string
		unroll []int
	}{
		{src: "A[i] := B[i,j]*C[k]", want: []string{"j", "k"}, unroll: []int{0, 0}},
		{src: "A[i] := B[i,j]*C[k] (+, j, k)", want: []string{"j", "k"}, unroll: []int{0, 0}},
		{src: "A[i] := B[i,j]*C[k] (+, k, j)", want: []string{"k", "j"}, unroll: []int{0, 0}},
		{src: "A[i] := B[i,j]*C[k] (*, unroll, k, j)", want: []string{"k", "j"}, unroll: []int{builder.DefaultUnrollWidth, builder.DefaultUnrollWidth}},
		{src: "A[i] := B[i,j]*C[k] (+, k, unroll(8), j)", want: []string{"k", "j"}, unroll: []int{0, 8}},
		{src: "A[i] := B[i,j]*C[j]", want: []string{"j"}, unroll: []int{0}},
		{src: "A[i] := B[i]*C[i]"},
	}
	for i, test := range tests {
		prog := build(t, test.src)
		order := prog.ReductionIndices()
		if diff := cmp.Diff(test.want, names(order)); diff != "" {
			t.Errorf("test %d: %q: unexpected reduction order (-want +got):\n%s", i, test.src, diff)
		}
		var unroll []int
		for _, x := range order {
			unroll = append(unroll, x.Unroll)
		}
		if diff := cmp.Diff(test.unroll, unroll); diff != "" {
			t.Errorf("test %d: %q: unexpected unroll widths (-want +got):\n%s", i, test.src, diff)
		}
	}
}

func TestAxes(t *testing.T) {
	tests := []struct {
		src   string
		index string
		axis  string
		check []string
	}{
		{src: "A[i] := B[i] * C[i]", index: "i", axis: "axes(B, 0)", check: []string{"axes(C, 0)"}},
		{src: "A[i] := B[i] * B[i]", index: "i", axis: "axes(B, 0)"},
		{src: "A[i,j] := B[i][j]", index: "j", axis: "axes(B[0], 0)"},
		{src: "A[i] := S.w[i]", index: "i", axis: "axes(S.w, 0)"},
		{src: "A[i] = B[i]", index: "i", axis: "axes(B, 0)", check: []string{"axes(A, 0)"}},
		{src: "A[i] := B[i,j] (+, 1 <= j <= 2)", index: "j", axis: "1 <= _ <= 2"},
		{src: "A[i] := B[i,j] (+, j < n)", index: "j", axis: "0 <= _ < n"},
		{src: "A[i,j] := B[i,j'] * C[j]", index: "j'", axis: "axes(B, 1)"},
	}
	for i, test := range tests {
		prog := build(t, test.src)
		name := strings.ReplaceAll(test.index, "'", "ʹ")
		bnd, ok := prog.Catalog.Lookup(name)
		if !ok {
			t.Errorf("test %d: %q: index %s not bound", i, test.src, test.index)
			continue
		}
		if got := bnd.Axis.String(); got != test.axis {
			t.Errorf("test %d: %q: got axis %s but want %s", i, test.src, got, test.axis)
		}
		var checks []string
		for _, check := range bnd.Checks {
			checks = append(checks, check.String())
		}
		if diff := cmp.Diff(test.check, checks); diff != "" {
			t.Errorf("test %d: %q: unexpected checks (-want +got):\n%s", i, test.src, diff)
		}
	}
}

func TestArrays(t *testing.T) {
	prog := build(t, "A[i] := S.w[i] * f(D)[i] + D[i] * E[i][j]")
	if diff := cmp.Diff([]string{"S", "D", "E"}, prog.Arrays.Keys()); diff != "" {
		t.Errorf("unexpected array set (-want +got):\n%s", diff)
	}
	if got, want := len(prog.Refs), 5; got != want {
		t.Errorf("got %d references but want %d", got, want)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		src string
		err string
	}{
		{src: "A[i] := B[i,j]*C[k] (+, j)", err: "reduction index k is missing"},
		{src: "A[i] := B[i,j]*C[k] (+, i, j, k)", err: "index i is an output index"},
		{src: "A[i] := B[i,j] (+, j, j)", err: "index j listed more than once"},
		{src: "A[i] := B[i,j] (+, x)", err: "unknown index x"},
		{src: "A[i] := B[i,j] (^, j)", err: `unknown reduction operator "^"`},
		{src: "A[i] := B[i,j] (foo, j)", err: "cannot call B[i, j]: want a function name"},
		{src: "A[i] := B[i,j] (+, unroll(0), j)", err: "not a positive integer"},
		{src: "A[i] := B[i,j] (+, unroll, j) {tile, j}", err: "index j is both tiled and unrolled"},
		{src: "A[i] := B[i,j] {tiles, i}", err: "expected tile or tile(N)"},
		{src: "A[i] := B[i,j] {tile}", err: "no index to tile"},
		{src: "A[i] := B[i,j] {tile(x), i}", err: "tile volume x"},
		{src: "A[i,j] := B[i]", err: "cannot infer the axis of output index j"},
		{src: "A[i] := B[i+1]", err: "invalid index i + 1"},
		{src: "A[i,i] := B[i]", err: "output index i appears more than once"},
		{src: "A[2,i] := B[i]", err: "a new output can only use _ or 0"},
		{src: "A[i] := B[i,j] (+, j, init = 0, init = 1)", err: "init set more than once"},
		{src: "A[i] := B[i,j] (+, 1 < j <= 3)", err: "lower bound 1 < j must use <="},
		{src: "A[i] := B[i,j] (+, 1 <= j)", err: "expected an index name, got 1"},
		{src: "A[i] := B[i] (+, init = 1)", err: ""},
	}
	for i, test := range tests {
		_, err := builder.BuildSource("expr", test.src)
		if test.err == "" {
			if err != nil {
				t.Errorf("test %d: %q: unexpected error: %v", i, test.src, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("test %d: %q: expected an error containing %q", i, test.src, test.err)
			continue
		}
		if !strings.Contains(err.Error(), test.err) {
			t.Errorf("test %d: %q: got error:\n%v\nbut want an error containing %q", i, test.src, err, test.err)
		}
	}
}

func TestTileWidth(t *testing.T) {
	tests := []struct {
		volume, n, want int
	}{
		{volume: 256, n: 2, want: 16},
		{volume: 512, n: 3, want: 8},
		{volume: 100, n: 3, want: 4},
		{volume: 1000, n: 3, want: 10},
		{volume: 512, n: 1, want: 512},
		{volume: 3, n: 4, want: 1},
	}
	for _, test := range tests {
		if got := ir.TileWidth(test.volume, test.n); got != test.want {
			t.Errorf("TileWidth(%d, %d) = %d but want %d", test.volume, test.n, got, test.want)
		}
	}
}
