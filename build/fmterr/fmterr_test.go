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

package fmterr_test

import (
	"go/ast"
	"go/token"
	"strings"
	"testing"

	"github.com/gx-org/einloop/build/fmterr"
	"github.com/pkg/errors"
)

func TestAppender(t *testing.T) {
	src := "A[i] := B[i,j]"
	fset, file := fmterr.NewFileSet("expr", src)
	node := &ast.Ident{NamePos: file.Pos(8), Name: "B"}
	errs := &fmterr.Errors{}
	app := errs.NewAppender(fset)
	app.Push(fmterr.PrefixWith("reduction directive: "))
	app.Appendf(node, "unknown index %q", "k")
	if errs.ToError() != nil {
		t.Fatalf("errors visible before Pop: %v", errs)
	}
	app.Pop()
	got := errs.ToError()
	if got == nil {
		t.Fatal("no error after Pop")
	}
	want := `reduction directive: expr:1:9: unknown index "k"`
	if got.Error() != want {
		t.Errorf("got %q but want %q", got.Error(), want)
	}
	var posErr *fmterr.PosError
	if !errors.As(got, &posErr) {
		t.Fatalf("error %T does not carry a position", got)
	}
	if posErr.Node != node {
		t.Errorf("got source node %v but want %v", posErr.Node, node)
	}
}

func TestNoPosition(t *testing.T) {
	err := fmterr.Errorf(token.NewFileSet(), &ast.Ident{Name: "x"}, "bare")
	if got := err.Error(); got != "bare" {
		t.Errorf("got %q but want %q", got, "bare")
	}
	if got := fmterr.Internal(err).Error(); !strings.Contains(got, "internal error") {
		t.Errorf("internal error %q does not say so", got)
	}
}

func TestInternalf(t *testing.T) {
	fset, file := fmterr.NewFileSet("expr", "A[_] := B[i]")
	errs := &fmterr.Errors{}
	app := errs.NewAppender(fset)
	if app.AppendInternalf(&ast.Ident{NamePos: file.Pos(2), Name: "_"}, "placeholder left") {
		t.Errorf("AppendInternalf returned true")
	}
	got := errs.Error()
	if !strings.Contains(got, "internal error") || !strings.Contains(got, "expr:1:3: placeholder left") {
		t.Errorf("unexpected error %q", got)
	}
}
