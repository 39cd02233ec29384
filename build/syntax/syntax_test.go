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

package syntax_test

import (
	"go/ast"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/einloop/build/syntax"
)

type parsed struct {
	Target  string
	Indices []string
	Tok     token.Token
	RHS     string
	Op      string
	Args    []string
	Tile    []string
}

func exprStrings(exprs []ast.Expr) []string {
	var ss []string
	for _, expr := range exprs {
		ss = append(ss, types.ExprString(expr))
	}
	return ss
}

func summarize(a *syntax.Assign) parsed {
	p := parsed{
		Target:  a.Target.Name.Name,
		Indices: exprStrings(a.Target.Indices),
		Tok:     a.Tok,
		RHS:     types.ExprString(a.RHS),
	}
	if a.Reduce != nil {
		p.Op = a.Reduce.Op.Name
		for _, arg := range a.Reduce.Args {
			switch arg := arg.(type) {
			case *syntax.InitArg:
				p.Args = append(p.Args, "init="+types.ExprString(arg.Value))
			case ast.Expr:
				p.Args = append(p.Args, types.ExprString(arg))
			}
		}
	}
	if a.Tile != nil {
		p.Tile = append([]string{types.ExprString(a.Tile.Keyword)}, exprStrings(a.Tile.Indices)...)
	}
	return p
}

func TestParse(t *testing.T) {
	tests := []struct {
		src        string
		directives []string
		want       parsed
	}{
		{
			src: "A[i,j] := B[i] * log(C[j])",
			want: parsed{
				Target:  "A",
				Indices: []string{"i", "j"},
				Tok:     token.DEFINE,
				RHS:     "B[i] * log(C[j])",
			},
		},
		{
			src: "A[i] := B[i,j]*C[k] (+, j, k)",
			want: parsed{
				Target:  "A",
				Indices: []string{"i"},
				Tok:     token.DEFINE,
				RHS:     "B[i, j] * C[k]",
				Op:      "+",
				Args:    []string{"j", "k"},
			},
		},
		{
			src: "A[i] = max(B[i,j], C[j]) (max, unroll(4), 0 <= j <= 3, init = 0) {tile(256), i}",
			want: parsed{
				Target:  "A",
				Indices: []string{"i"},
				Tok:     token.ASSIGN,
				RHS:     "max(B[i, j], C[j])",
				Op:      "max",
				Args:    []string{"unroll(4)", "0 <= j <= 3", "init=0"},
				Tile:    []string{"tile(256)", "i"},
			},
		},
		{
			src:        "A[i] += B[i,j]",
			directives: []string{"(*, j)"},
			want: parsed{
				Target:  "A",
				Indices: []string{"i"},
				Tok:     token.ASSIGN,
				RHS:     "A[i] + (B[i, j])",
				Op:      "*",
				Args:    []string{"j"},
			},
		},
		{
			src: "A[i] := g (x, B[i]) (min, j)",
			want: parsed{
				Target:  "A",
				Indices: []string{"i"},
				Tok:     token.DEFINE,
				RHS:     "g(x, B[i])",
				Op:      "min",
				Args:    []string{"j"},
			},
		},
		{
			src: "A[_, i] := B[i'] - B[i]",
			want: parsed{
				Target:  "A",
				Indices: []string{"0", "i"},
				Tok:     token.DEFINE,
				RHS:     "B[iʹ] - B[i]",
			},
		},
		{
			src: "s := B[i] * (C[i])",
			want: parsed{
				Target: "s",
				Tok:    token.DEFINE,
				RHS:    "B[i] * (C[i])",
			},
		},
	}
	for i, test := range tests {
		assign, err := syntax.Parse("expr", test.src, test.directives...)
		if err != nil {
			t.Errorf("test %d: cannot parse %q: %+v", i, test.src, err)
			continue
		}
		if diff := cmp.Diff(test.want, summarize(assign)); diff != "" {
			t.Errorf("test %d: unexpected parse of %q (-want +got):\n%s", i, test.src, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src string
		err string
	}{
		{src: "A[i] B[i]", err: "expected an assignment"},
		{src: "f(x)[i] := B[i]", err: "output must be a name"},
		{src: "A[i] := B[i,j] (+, j) (+, j)", err: "more than one reduction directive"},
		{src: "A[i] := B[i] {tile, i} x", err: "unexpected x after the statement"},
		{src: "A[i] := B[i] (+, init 0)", err: "cannot parse"},
		{src: "A[i] := B[i] (+, j = 0)", err: "only init = value"},
		{src: "A[i] := ", err: "missing expression"},
	}
	for i, test := range tests {
		_, err := syntax.Parse("expr", test.src)
		if err == nil {
			t.Errorf("test %d: expected an error for %q", i, test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.err) {
			t.Errorf("test %d: got error %q but want an error containing %q", i, err.Error(), test.err)
		}
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := syntax.Parse("expr", "A[i] := B[i] (+, j = 0)")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.HasPrefix(err.Error(), "expr:1:20:") {
		t.Errorf("error %q does not point at the offending =", err.Error())
	}
}

func TestNormalizePrimes(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{src: "A[i,i'] := B[i'']", want: "A[i,iʹ] := B[iʹʹ]"},
		{src: "A[i] := f('a')", want: "A[i] := f('a')"},
	}
	for i, test := range tests {
		if got := syntax.NormalizePrimes(test.src); got != test.want {
			t.Errorf("test %d: got %q but want %q", i, got, test.want)
		}
	}
	if got := syntax.Unprime("iʹʹ"); got != "i''" {
		t.Errorf("got %q but want %q", got, "i''")
	}
}
