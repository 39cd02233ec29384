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

// Package emitter lowers the loop plan of a program to Go source code.
//
// The generated function takes the arrays of the right-hand side as nested
// Go slices of a single element type. A := statement allocates and returns
// the output. Other statements update the output passed as the first
// argument. Unrolled loops are lowered to copies of their body.
package emitter

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"io"
	"slices"
	"strings"
	"text/template"

	"github.com/gx-org/einloop/base/uname"
	"github.com/gx-org/einloop/build/fmterr"
	"github.com/gx-org/einloop/build/ir"
	"github.com/pkg/errors"
)

var funcTemplate = template.Must(template.New("FuncTMPL").Parse(
	`// Code generated by einloop. DO NOT EDIT.

package {{.Package}}
{{if .Imports}}
import (
{{range .Imports}}	"{{.}}"
{{end}})
{{end}}
// {{.Func}} computes:
//
//	{{.Source}}
func {{.Func}}({{.Params}}) {{.Results}} {
{{.Body}}}
`))

// Options of the generated code.
type Options struct {
	// Package is the name of the package of the generated file.
	Package string
	// Func is the name of the generated function.
	Func string
	// Elem is the Go element type of all the arrays: float64, float32,
	// int64, or int32.
	Elem string
}

// DefaultOptions returns the options used when none is given.
func DefaultOptions() Options {
	return Options{Package: "kernels", Func: "Kernel", Elem: "float64"}
}

var elemTypes = []string{"float64", "float32", "int64", "int32"}

type (
	paramKind int

	param struct {
		name string
		kind paramKind
		// rank of an array or the number of arguments of a function.
		rank int
	}

	// loopRange is the range of an index in the generated code.
	loopRange struct {
		lo, hi    string
		inclusive bool
	}

	emitter struct {
		prog    *ir.Program
		opts    Options
		params  []*param
		byName  map[string]*param
		subst   map[string]string
		ranges  map[string]loopRange
		imports map[string]bool
		names   *uname.Unique
		// guarded lists the slices already checked for missing elements.
		guarded map[string]bool
		// acc is the name of the accumulator.
		acc string
		// partial is the name of the partial result of a tiled reduction.
		partial string
		body    bytes.Buffer
	}
)

const (
	arrayParam paramKind = iota
	scalarParam
	intParam
	funcParam
)

func (e *emitter) errorf(node ast.Node, format string, a ...any) error {
	return fmterr.Errorf(e.prog.Assign.FSet, node, format, a...)
}

func (e *emitter) line(format string, a ...any) {
	fmt.Fprintf(&e.body, format, a...)
	e.body.WriteString("\n")
}

func (e *emitter) isFloat() bool {
	return strings.HasPrefix(e.opts.Elem, "float")
}

// Emit writes the Go source of a program.
func Emit(w io.Writer, prog *ir.Program, opts Options) error {
	def := DefaultOptions()
	if opts.Package == "" {
		opts.Package = def.Package
	}
	if opts.Func == "" {
		opts.Func = def.Func
	}
	if opts.Elem == "" {
		opts.Elem = def.Elem
	}
	if !slices.Contains(elemTypes, opts.Elem) {
		return errors.Errorf("element type %s not supported: want one of %s", opts.Elem, strings.Join(elemTypes, ", "))
	}
	e := &emitter{
		prog:    prog,
		opts:    opts,
		byName:  make(map[string]*param),
		subst:   make(map[string]string),
		ranges:  make(map[string]loopRange),
		imports: make(map[string]bool),
		guarded: make(map[string]bool),
		names:   uname.New("math", "fmt", "min", "max", "len", "make"),
	}
	e.reserveNames()
	e.acc = e.names.Name("acc")
	if err := e.checkOperator(); err != nil {
		return err
	}
	if err := e.collectParams(); err != nil {
		return err
	}
	if err := e.emitBody(); err != nil {
		return err
	}
	return e.write(w)
}

// Source returns the Go source of a program.
func Source(prog *ir.Program, opts Options) (string, error) {
	var b strings.Builder
	if err := Emit(&b, prog, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

// reserveNames reserves all the identifiers of the statement so that
// generated variables do not shadow them.
func (e *emitter) reserveNames() {
	ast.Inspect(e.prog.Assign.RHS, e.reserve)
	ast.Inspect(e.prog.Assign.Target.Expr, e.reserve)
	for _, bnd := range e.prog.Catalog.Bindings() {
		if bound, ok := bnd.Axis.(*ir.BoundAxis); ok {
			ast.Inspect(bound.Src, e.reserve)
		}
	}
	if spec := e.prog.Reduce; spec != nil && spec.Init != nil {
		ast.Inspect(spec.Init, e.reserve)
	}
}

func (e *emitter) reserve(node ast.Node) bool {
	if ident, ok := node.(*ast.Ident); ok {
		e.names.Reserve(ident.Name)
	}
	return true
}

func (e *emitter) checkOperator() error {
	spec := e.prog.Reduce
	if spec == nil || !e.isFloat() {
		return nil
	}
	if spec.Op.Name == ir.OpAnd || spec.Op.Name == ir.OpOr {
		return errors.Errorf("reduction operator %s requires an integer element type, got %s", spec.Op.Name, e.opts.Elem)
	}
	return nil
}

func (e *emitter) outputType() string {
	return strings.Repeat("[]", len(e.prog.Target.Indices)) + e.opts.Elem
}

func (e *emitter) signature() (params, results string) {
	var ps []string
	tgt := e.prog.Target
	if !tgt.Define {
		typ := e.outputType()
		if len(tgt.Indices) == 0 {
			typ = "*" + e.opts.Elem
		}
		ps = append(ps, tgt.Name.Name+" "+typ)
	}
	for _, p := range e.params {
		switch p.kind {
		case arrayParam:
			ps = append(ps, p.name+" "+strings.Repeat("[]", p.rank)+e.opts.Elem)
		case scalarParam:
			ps = append(ps, p.name+" "+e.opts.Elem)
		case intParam:
			ps = append(ps, p.name+" int")
		case funcParam:
			args := slices.Repeat([]string{e.opts.Elem}, p.rank)
			ps = append(ps, p.name+" func("+strings.Join(args, ", ")+") "+e.opts.Elem)
		}
	}
	if tgt.Define {
		return strings.Join(ps, ", "), "(" + e.outputType() + ", error)"
	}
	return strings.Join(ps, ", "), "error"
}

func (e *emitter) write(w io.Writer) error {
	params, results := e.signature()
	imports := make([]string, 0, len(e.imports))
	for imp := range e.imports {
		imports = append(imports, imp)
	}
	slices.Sort(imports)
	data := struct {
		Package, Func, Source string
		Params, Results, Body string
		Imports               []string
	}{
		Package: e.opts.Package,
		Func:    e.opts.Func,
		Source:  strings.Join(strings.Fields(e.prog.Assign.Src), " "),
		Params:  params,
		Results: results,
		Body:    e.body.String(),
		Imports: imports,
	}
	var source bytes.Buffer
	if err := funcTemplate.Execute(&source, data); err != nil {
		return err
	}
	formatted, err := format.Source(source.Bytes())
	if err != nil {
		// We copy the generated content to the writer for debugging.
		io.Copy(w, &source)
		return errors.Errorf("cannot format source code: %v", err)
	}
	_, err = w.Write(formatted)
	return err
}
