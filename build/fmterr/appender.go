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

package fmterr

import (
	"go/ast"
	"go/token"
)

// Appender appends errors at nodes of a statement to a set.
// Errors appended between Push and Pop are transformed when Pop is called,
// e.g. to prefix them with the directive being read.
type Appender struct {
	fset     *token.FileSet
	errs     *Errors
	contexts []context
}

type context struct {
	f    func(error) error
	errs Errors
}

// NewAppender returns an appender adding errors to errs.
func (errs *Errors) NewAppender(fset *token.FileSet) *Appender {
	return &Appender{fset: fset, errs: errs}
}

// Push a function transforming the errors appended until the next Pop.
func (app *Appender) Push(f func(error) error) {
	app.contexts = append(app.contexts, context{f: f})
}

// Pop the last context and append its errors once transformed.
func (app *Appender) Pop() {
	last := app.contexts[len(app.contexts)-1]
	app.contexts = app.contexts[:len(app.contexts)-1]
	for _, err := range last.errs.errs {
		app.Append(last.f(err))
	}
}

// Append an error. Returns false if err is not nil.
func (app *Appender) Append(err error) bool {
	if n := len(app.contexts); n > 0 {
		return app.contexts[n-1].errs.Append(err)
	}
	return app.errs.Append(err)
}

// Appendf appends an error at the position of a node.
func (app *Appender) Appendf(node ast.Node, format string, a ...any) bool {
	return app.Append(Errorf(app.fset, node, format, a...))
}

// AppendInternalf appends an error reporting a bug at the position of a node.
func (app *Appender) AppendInternalf(node ast.Node, format string, a ...any) bool {
	return app.Append(Internal(Errorf(app.fset, node, format, a...)))
}
