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

package interp_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/einloop/api/options"
	"github.com/gx-org/einloop/api/values"
	"github.com/gx-org/einloop/build/builder"
	"github.com/gx-org/einloop/interp"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string, env values.Env, opts ...options.Option) (values.Array, error) {
	t.Helper()
	prog, err := builder.BuildSource("expr", src)
	require.NoError(t, err)
	return interp.Run(prog, env, opts...)
}

func mustRun(t *testing.T, src string, env values.Env, opts ...options.Option) values.Array {
	t.Helper()
	out, err := run(t, src, env, opts...)
	require.NoError(t, err)
	return out
}

func float64s(t *testing.T, a values.Array) []float64 {
	t.Helper()
	data, err := values.ToSlice[float64](a)
	require.NoError(t, err)
	return data
}

func TestOuterProduct(t *testing.T) {
	out := mustRun(t, "A[i,j] := B[i] * log(C[j])", values.Env{
		"B": values.Vector[float64](1, 2),
		"C": values.Vector(1, math.Exp(1)),
	})
	require.Equal(t, []int{2, 2}, out.Shape().AxisLengths)
	require.Equal(t, dtype.Float64, out.Shape().DType)
	require.InDeltaSlice(t, []float64{0, 1, 0, 2}, float64s(t, out), 1e-12)
}

func TestReduction(t *testing.T) {
	env := values.Env{
		"B": values.Matrix([]float64{1, 2}, []float64{3, 4}),
		"C": values.Vector[float64](1, 1),
	}
	for _, src := range []string{
		"A[i] := B[i,j]*C[k] (+, j, k)",
		"A[i] := B[i,j]*C[k] (+, k, j)",
		"A[i] := B[i,j]*C[k]",
	} {
		t.Run(src, func(t *testing.T) {
			out := mustRun(t, src, env)
			require.Equal(t, []float64{6, 14}, float64s(t, out))
		})
	}
}

func TestMatMul(t *testing.T) {
	env := values.Env{
		"X": values.Matrix([]float32{1, 2, 3}, []float32{4, 5, 6}),
		"Y": values.Matrix([]float32{1, 0}, []float32{0, 1}, []float32{1, 1}),
	}
	want := []float32{4, 5, 10, 11}
	for _, src := range []string{
		"Z[i,j] := X[i,k] * Y[k,j]",
		"Z[i,j] := X[i,k] * Y[k,j] (+, unroll(2), k)",
		"Z[i,j] := X[i,k] * Y[k,j] {tile(4), i, j}",
		"Z[i,j] := X[i,k] * Y[k,j] {tile(2), i, k}",
		"Z[i,j] := X[i,k] * Y[k,j] (+, k) {tile(8), i, j, k}",
	} {
		t.Run(src, func(t *testing.T) {
			out := mustRun(t, src, env)
			require.Equal(t, dtype.Float32, out.Shape().DType)
			got, err := values.ToSlice[float32](out)
			require.NoError(t, err)
			require.Equal(t, want, got)
			par := mustRun(t, src, env, options.Parallel(3))
			require.Equal(t, out.String(), par.String())
		})
	}
}

func TestTiledEqualsUntiled(t *testing.T) {
	const n = 13
	data := make([]float64, n*n)
	for i := range data {
		data[i] = float64(i%7) - 3
	}
	m, err := values.NewArray(data, n, n)
	require.NoError(t, err)
	env := values.Env{"M": m}
	want := mustRun(t, "S[i,j] := M[i,k] * M[k,j]", env)
	for _, src := range []string{
		"S[i,j] := M[i,k] * M[k,j] {tile(16), i, j}",
		"S[i,j] := M[i,k] * M[k,j] {tile(27), i, j, k}",
		"S[i,j] := M[i,k] * M[k,j] (+, unroll(4), k) {tile, i, j}",
	} {
		got := mustRun(t, src, env, options.Parallel(4))
		require.Equal(t, want.String(), got.String(), src)
	}
}

func TestTiledUpdateReadsOriginalOutput(t *testing.T) {
	tests := []struct {
		untiled, tiled string
		want           []float64
	}{
		{
			untiled: "A[i] += B[i,j]",
			tiled:   "A[i] += B[i,j] {tile(2), j}",
			want:    []float64{410, 826},
		},
		{
			untiled: "A[i] = A[i] * B[i,j] (+, j)",
			tiled:   "A[i] = A[i] * B[i,j] (+, j) {tile(4), i, j}",
			want:    []float64{1000, 5200},
		},
		{
			untiled: "A[i] = A[i] - B[i,j] (min, j)",
			tiled:   "A[i] = A[i] - B[i,j] (min, j) {tile(3), j}",
			want:    []float64{96, 192},
		},
	}
	newEnv := func() values.Env {
		return values.Env{
			"A": values.Vector[float64](100, 200),
			"B": values.Matrix([]float64{1, 2, 3, 4}, []float64{5, 6, 7, 8}),
		}
	}
	for _, test := range tests {
		t.Run(test.tiled, func(t *testing.T) {
			untiled := mustRun(t, test.untiled, newEnv())
			for _, opts := range [][]options.Option{nil, {options.Parallel(2)}} {
				tiled := mustRun(t, test.tiled, newEnv(), opts...)
				require.Equal(t, untiled.String(), tiled.String())
				got, err := values.ToSlice[float64](tiled)
				require.NoError(t, err)
				require.Equal(t, test.want, got)
			}
		})
	}
}

func TestIdempotence(t *testing.T) {
	env := values.Env{"B": values.Vector[int32](3, 1, 2)}
	first := mustRun(t, "A[i,j] := B[i] - B[j]", env)
	second := mustRun(t, "A[i,j] := B[i] - B[j]", env)
	require.Equal(t, first.Shape(), second.Shape())
	require.Equal(t, first.String(), second.String())
	require.Equal(t, dtype.Int32, first.Shape().DType)
}

func TestNeutralElements(t *testing.T) {
	env := values.Env{
		"B": values.Matrix([]int64{3, -1, 2}, []int64{5, 4, 9}),
	}
	tests := []struct {
		src  string
		want []int64
	}{
		{src: "A[i] := B[i,j] (max, j)", want: []int64{3, 9}},
		{src: "A[i] := B[i,j] (min, j)", want: []int64{-1, 4}},
		{src: "A[i] := B[i,j] (*, j)", want: []int64{-6, 180}},
		{src: "A[i] := B[i,j] (|, j)", want: []int64{3 | -1 | 2, 5 | 4 | 9}},
		{src: "A[i] := B[i,j] (&, j)", want: []int64{3 & -1 & 2, 5 & 4 & 9}},
		{src: "A[i] := B[i,j] (+, j, init = 10)", want: []int64{14, 28}},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			got, err := values.ToSlice[int64](mustRun(t, test.src, env))
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

// An empty reduction writes the neutral element. The neutral element of
// min is the largest value of the type. The element type is float64 because
// the axis of k is empty.
func TestEmptyReduction(t *testing.T) {
	env := values.Env{
		"B": values.Vector[float32](1, 2),
		"C": values.Vector[float32](1, 2),
	}
	tests := []struct {
		src  string
		want float64
	}{
		{src: "A[i] := B[i] * C[k] (+, 1 <= k < 1)", want: 0},
		{src: "A[i] := B[i] * C[k] (*, 1 <= k < 1)", want: 1},
		{src: "A[i] := B[i] * C[k] (max, 1 <= k < 1)", want: math.Inf(-1)},
		{src: "A[i] := B[i] * C[k] (min, 1 <= k < 1)", want: math.Inf(1)},
		{src: "A[i] := B[i] * C[k] (min, 1 <= k < 1, init = 7)", want: 7},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			require.Equal(t, []float64{test.want, test.want}, float64s(t, mustRun(t, test.src, env)))
		})
	}
}

func TestMinUsesLargestValue(t *testing.T) {
	env := values.Env{"B": values.Matrix([]int32{7, 5}, []int32{2, 8})}
	got, err := values.ToSlice[int32](mustRun(t, "A[i] := B[i,j] (min, j)", env))
	require.NoError(t, err)
	require.Equal(t, []int32{5, 2}, got)
}

func TestBounds(t *testing.T) {
	env := values.Env{"B": values.Vector[int64](1, 2, 3, 4, 5)}
	tests := []struct {
		src  string
		want int64
	}{
		{src: "s := B[k] (+, k)", want: 15},
		{src: "s := B[k] (+, k <= 2)", want: 6},
		{src: "s := B[k] (+, 1 <= k <= 3)", want: 9},
		{src: "s := B[k] (+, 2 <= k < 5)", want: 12},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			out := mustRun(t, test.src, env)
			require.Empty(t, out.Shape().AxisLengths)
			require.Equal(t, test.want, out.AtFlat(0).Int())
		})
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		src  string
		want []float64
	}{
		{src: "A[i] = B[i] * 2", want: []float64{2, 4, 6}},
		{src: "A[i] += B[i]", want: []float64{11, 22, 33}},
		{src: "A[i] -= B[i]", want: []float64{9, 18, 27}},
		{src: "A[i] *= B[i] + 1", want: []float64{20, 60, 120}},
		{src: "A[i] = B[j] (+, j)", want: []float64{6, 6, 6}},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			a := values.Vector[float64](10, 20, 30)
			out := mustRun(t, test.src, values.Env{
				"A": a,
				"B": values.Vector[float64](1, 2, 3),
			})
			require.Same(t, a, out)
			require.Equal(t, test.want, float64s(t, a))
		})
	}
}

func TestFixedPositions(t *testing.T) {
	env := values.Env{
		"B": values.Vector[int64](1, 2),
		"T": values.Matrix([]int64{0, 0}, []int64{0, 0}),
	}
	out := mustRun(t, "A[i, _] := B[i]", env)
	require.Equal(t, []int{2, 1}, out.Shape().AxisLengths)
	mustRun(t, "T[1, j] = B[j] * 10", env)
	got, err := values.ToSlice[int64](env["T"].(values.Array))
	require.NoError(t, err)
	require.Equal(t, []int64{0, 0, 10, 20}, got)
}

func TestElementType(t *testing.T) {
	tests := []struct {
		src  string
		want dtype.DataType
	}{
		{src: "A[i] := I[i] + 1", want: dtype.Int32},
		{src: "A[i] := I[i] * 0.5", want: dtype.Float64},
		{src: "A[i] := I[i] + F[i]", want: dtype.Float64},
		{src: "A[i] := F[i] * 2", want: dtype.Float32},
		{src: "A[i] := I[i] + L[i]", want: dtype.Int64},
		{src: "A[i] := float32(I[i])", want: dtype.Float32},
		{src: "A[i] := I[i] + i", want: dtype.Int32},
		{src: "A[i] := E[i]", want: dtype.Float64},
	}
	env := values.Env{
		"I": values.Vector[int32](1, 2),
		"L": values.Vector[int64](1, 2),
		"F": values.Vector[float32](1, 2),
		"E": values.Vector[int32](),
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			out := mustRun(t, test.src, env)
			require.Equal(t, test.want, out.Shape().DType)
		})
	}
}

func TestArrayOfArrays(t *testing.T) {
	env := values.Env{
		"S": values.NewStruct(map[string]values.Value{
			"rows": values.NewSlice(
				values.Vector[float64](1, 2, 3),
				values.Vector[float64](4, 5, 6),
			),
		}),
	}
	out := mustRun(t, "A[i] := S.rows[i][j]", env)
	require.Equal(t, []float64{6, 15}, float64s(t, out))
}

func TestAxisMismatch(t *testing.T) {
	_, err := run(t, "A[i] := B[i] * C[i]", values.Env{
		"B": values.Vector[float64](1, 2, 3),
		"C": values.Vector[float64](1, 2),
	})
	var mismatch *interp.AxisMismatchError
	require.True(t, errors.As(err, &mismatch), "unexpected error: %v", err)
	require.Equal(t, "i", mismatch.Index)
	require.Equal(t, 3, mismatch.Got.Len())
	require.Equal(t, 2, mismatch.Want.Len())
	require.Contains(t, err.Error(), "index i")
}

func TestTargetMismatch(t *testing.T) {
	_, err := run(t, "A[i] = B[i]", values.Env{
		"A": values.Vector[float64](0, 0),
		"B": values.Vector[float64](1, 2, 3),
	})
	var mismatch *interp.AxisMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "i", mismatch.Index)
}

func TestFunctionError(t *testing.T) {
	errFailed := errors.New("function failed")
	env := values.Env{
		"B": values.Vector[float64](1, 2, 3),
		"f": values.Func(func(args []values.Value) (values.Value, error) {
			if args[0].(values.Atom).Float() > 1 {
				return nil, errFailed
			}
			return args[0], nil
		}),
	}
	_, err := run(t, "A[i] := f(B[i])", env)
	require.ErrorIs(t, err, errFailed)
	_, err = run(t, "A[i] := f(B[i])", env, options.Parallel(2))
	require.ErrorIs(t, err, errFailed)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		src  string
		env  values.Env
		want string
	}{
		{
			src:  "A[i] := B[i] + x",
			env:  values.Env{"B": values.Vector[float64](1)},
			want: "expr:1:16: undefined: x",
		},
		{
			src:  "A[i] = B[i]",
			env:  values.Env{"B": values.Vector[float64](1)},
			want: "undefined: A",
		},
		{
			src: "A[i] = B[i]",
			env: values.Env{
				"A": values.Matrix([]float64{1}),
				"B": values.Vector[float64](1),
			},
			want: "cannot index A with 1 indices: A has 2 axes",
		},
		{
			src:  "A[i] := B[i] / 0",
			env:  values.Env{"B": values.Vector[int64](1)},
			want: "integer division by zero",
		},
		{
			src:  "A[i] := B[i] * x",
			env:  values.Env{"B": values.Vector[int64](1), "x": values.Vector[int64](1)},
			want: "x is an array: want a number",
		},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			_, err := run(t, test.src, test.env)
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), test.want), "got error %q, want %q", err.Error(), test.want)
		})
	}
}

func TestParallelEqualsSequential(t *testing.T) {
	const rows, cols = 37, 11
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Sin(float64(i))
	}
	m, err := values.NewArray(data, rows, cols)
	require.NoError(t, err)
	env := values.Env{"M": m}
	for _, src := range []string{
		"N[j] := M[i,j] * M[i,j]",
		"T[j,i] := M[i,j]",
		"R[i] := M[i,j] (max, j)",
	} {
		seq := mustRun(t, src, env, options.Sequential())
		for _, workers := range []int{2, 5, 64} {
			par := mustRun(t, src, env, options.Parallel(workers))
			require.Equal(t, seq.String(), par.String(), "%s on %d workers", src, workers)
		}
	}
}

func TestTrace(t *testing.T) {
	var lines []string
	trace := options.Trace(func(format string, a ...any) {
		lines = append(lines, format)
	})
	mustRun(t, "A[i] := B[i]", values.Env{"B": values.Vector[float64](1)}, trace)
	require.NotEmpty(t, lines)
}

func TestPanicPropagates(t *testing.T) {
	env := values.Env{
		"B": values.Vector[float64](1, 2, 3, 4),
		"f": values.Func(func(args []values.Value) (values.Value, error) {
			if args[0].(values.Atom).Float() == 3 {
				panic("bad element")
			}
			return args[0], nil
		}),
	}
	for _, opts := range [][]options.Option{nil, {options.Parallel(2)}, {options.Parallel(4)}} {
		require.PanicsWithValue(t, "bad element", func() {
			run(t, "A[i] := f(B[i])", env, opts...)
		})
	}
}
