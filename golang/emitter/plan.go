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

package emitter

import (
	"fmt"
	"go/ast"
	"strconv"
	"strings"

	"github.com/gx-org/einloop/build/ir"
	"github.com/gx-org/einloop/build/syntax"
	"github.com/pkg/errors"
)

// intExtremes are the lowest and the largest values of integer types.
var intExtremes = map[string][2]string{
	"int64": {"math.MinInt64", "math.MaxInt64"},
	"int32": {"math.MinInt32", "math.MaxInt32"},
}

func (e *emitter) axisRange(axis ir.Axis) (loopRange, error) {
	switch axis := axis.(type) {
	case *ir.ArrayAxis:
		src, err := e.ref(axis.Source)
		if err != nil {
			return loopRange{}, err
		}
		return loopRange{lo: "0", hi: "len(" + src + strings.Repeat("[0]", axis.Dim) + ")"}, nil
	case *ir.BoundAxis:
		r := loopRange{lo: "0", inclusive: axis.Inclusive}
		if axis.Lo != nil {
			lo, err := e.index(axis.Lo)
			if err != nil {
				return loopRange{}, err
			}
			r.lo = lo
		}
		hi, err := e.index(axis.Hi)
		if err != nil {
			return loopRange{}, err
		}
		r.hi = hi
		return r, nil
	}
	return loopRange{}, errors.Errorf("cannot lower axis %s", axis)
}

// element is a slice read at a position to derive an axis.
type element struct {
	slice, pos string
}

// elements renders an axis source and lists the slices it reads, from the
// outermost to the innermost.
func (e *emitter) elements(expr ast.Expr) (string, []element, error) {
	x, indices, ok := syntax.IndexParts(expr)
	if !ok {
		s, err := e.ref(expr)
		return s, nil, err
	}
	s, els, err := e.elements(x)
	if err != nil {
		return "", nil, err
	}
	for _, idx := range indices {
		pos, err := e.index(idx)
		if err != nil {
			return "", nil, err
		}
		els = append(els, element{slice: s, pos: pos})
		s += "[" + pos + "]"
	}
	return s, els, nil
}

// emitGuards returns an error from the generated function if a slice read to
// derive the length of an axis does not have the element being read.
func (e *emitter) emitGuards(axis ir.Axis) error {
	arrayAxis, ok := axis.(*ir.ArrayAxis)
	if !ok {
		return nil
	}
	s, els, err := e.elements(arrayAxis.Source)
	if err != nil {
		return err
	}
	for range arrayAxis.Dim {
		els = append(els, element{slice: s, pos: "0"})
		s += "[0]"
	}
	for _, el := range els {
		key := el.slice + "[" + el.pos + "]"
		if e.guarded[key] {
			continue
		}
		e.guarded[key] = true
		e.imports["fmt"] = true
		cond := "len(" + el.slice + ") <= " + el.pos
		if el.pos == "0" {
			cond = "len(" + el.slice + ") == 0"
		}
		msg := fmt.Sprintf("cannot derive the axes of %s: %s has no element %s", exprString(arrayAxis.Ref.Expr), el.slice, el.pos)
		e.line("if %s {", cond)
		e.line("return %sfmt.Errorf(%s)", e.zeroResult(), strconv.Quote(msg))
		e.line("}")
	}
	return nil
}

// exclusive returns the upper bound of a range excluded from the range.
func (r loopRange) exclusive() string {
	if r.inclusive {
		return r.hi + "+1"
	}
	return r.hi
}

func (r loopRange) cond(name string) string {
	if r.inclusive {
		return name + " <= " + r.hi
	}
	return name + " < " + r.hi
}

func (e *emitter) zeroResult() string {
	if !e.prog.Target.Define {
		return ""
	}
	if len(e.prog.Target.Indices) == 0 {
		return "0, "
	}
	return "nil, "
}

func (e *emitter) emitBody() error {
	for _, bnd := range e.prog.Catalog.Bindings() {
		if err := e.emitGuards(bnd.Axis); err != nil {
			return err
		}
		r, err := e.axisRange(bnd.Axis)
		if err != nil {
			return err
		}
		e.ranges[bnd.Index.Name] = r
		for _, check := range bnd.Checks {
			if err := e.emitGuards(check); err != nil {
				return err
			}
			if err := e.emitCheck(bnd.Index, r, check); err != nil {
				return err
			}
		}
	}
	e.emitAlloc()
	if prologue := e.prog.Plan.Prologue; prologue != nil {
		e.partial = e.names.Name("partial")
		e.emitPartialAlloc()
		if err := e.node(prologue); err != nil {
			return err
		}
	}
	if err := e.node(e.prog.Plan.Root); err != nil {
		return err
	}
	if epilogue := e.prog.Plan.Epilogue; epilogue != nil {
		if err := e.node(epilogue); err != nil {
			return err
		}
	}
	if e.prog.Target.Define {
		e.line("return %s, nil", e.prog.Target.Name.Name)
	} else {
		e.line("return nil")
	}
	return nil
}

func (e *emitter) emitCheck(x *ir.Index, r loopRange, check ir.Axis) error {
	other, err := e.axisRange(check)
	if err != nil {
		return err
	}
	e.imports["fmt"] = true
	msg := fmt.Sprintf("axis mismatch for index %s: %s is %%d but %s is %%d", x, r.hi, other.hi)
	e.line("if %s != %s {", r.hi, other.hi)
	e.line("return %sfmt.Errorf(%s, %s, %s)", e.zeroResult(), strconv.Quote(msg), r.hi, other.hi)
	e.line("}")
	return nil
}

func (e *emitter) emitAlloc() {
	if !e.prog.Target.Define {
		return
	}
	e.allocLike(e.prog.Target.Name.Name)
}

// emitPartialAlloc allocates the partial result of a tiled reduction.
// Fixed positions of the output have a length of 1.
func (e *emitter) emitPartialAlloc() {
	e.allocLike(e.partial)
}

// allocLike declares a variable with the dimensions of the output indices.
func (e *emitter) allocLike(name string) {
	tgt := e.prog.Target
	if len(tgt.Indices) == 0 {
		e.line("var %s %s", name, e.opts.Elem)
		return
	}
	dims := make([]string, len(tgt.Indices))
	for i, ri := range tgt.Indices {
		if ri.Index == nil {
			dims[i] = "1"
			continue
		}
		dims[i] = e.ranges[ri.Index.Name].exclusive()
	}
	e.alloc(name, ":=", dims, 0)
}

func (e *emitter) alloc(target, tok string, dims []string, depth int) {
	typ := strings.Repeat("[]", len(dims)-depth) + e.opts.Elem
	e.line("%s %s make(%s, %s)", target, tok, typ, dims[depth])
	if depth+1 == len(dims) {
		return
	}
	v := e.names.Name(fmt.Sprintf("x%d", depth))
	e.line("for %s := range %s {", v, target)
	e.alloc(target+"["+v+"]", "=", dims, depth+1)
	e.line("}")
}

// cell renders the output cell at the current indices.
func (e *emitter) cell() (string, error) {
	tgt := e.prog.Target
	if len(tgt.Indices) == 0 {
		if tgt.Define {
			return tgt.Name.Name, nil
		}
		return "*" + tgt.Name.Name, nil
	}
	var b strings.Builder
	b.WriteString(tgt.Name.Name)
	for _, ri := range tgt.Indices {
		if ri.Index == nil {
			pos, err := e.index(ri.Fixed)
			if err != nil {
				return "", err
			}
			b.WriteString("[" + pos + "]")
			continue
		}
		pos, err := e.index(ri.Index.Src)
		if err != nil {
			return "", err
		}
		b.WriteString("[" + pos + "]")
	}
	return b.String(), nil
}

// partialCell renders the partial result cell at the current indices.
func (e *emitter) partialCell() (string, error) {
	var b strings.Builder
	b.WriteString(e.partial)
	for _, ri := range e.prog.Target.Indices {
		if ri.Index == nil {
			b.WriteString("[0]")
			continue
		}
		pos, err := e.index(ri.Index.Src)
		if err != nil {
			return "", err
		}
		b.WriteString("[" + pos + "]")
	}
	return b.String(), nil
}

func (e *emitter) neutral(op string) string {
	switch op {
	case ir.OpMul:
		return "1"
	case ir.OpAnd:
		return "-1"
	case ir.OpMax, ir.OpMin:
		e.imports["math"] = true
		ext, ok := intExtremes[e.opts.Elem]
		if !ok {
			ext = [2]string{"math.Inf(-1)", "math.Inf(1)"}
		}
		if op == ir.OpMax {
			return ext[0]
		}
		return ext[1]
	}
	return "0"
}

func (e *emitter) initValue(spec *ir.ReductionSpec) (string, error) {
	if spec.Init == nil {
		return e.neutral(spec.Op.Name), nil
	}
	return e.value(spec.Init)
}

// combine renders the statement combining x into target with a reduction
// operator.
func combine(op, target, x string) string {
	switch op {
	case ir.OpMax, ir.OpMin:
		return fmt.Sprintf("%s = %s(%s, %s)", target, op, target, x)
	}
	return fmt.Sprintf("%s %s= %s", target, op, x)
}

func (e *emitter) node(node ir.Node) error {
	switch node := node.(type) {
	case *ir.RangeLoop:
		x := node.Index.Name
		r := e.ranges[x]
		e.line("for %s := %s; %s; %s++ {", x, r.lo, r.cond(x), x)
		if err := e.node(node.Body); err != nil {
			return err
		}
		e.line("}")
	case *ir.UnrolledLoop:
		return e.unrolledLoop(node)
	case *ir.TileLoop:
		return e.tileLoop(node)
	case *ir.Reduce:
		return e.reduce(node)
	case *ir.Accumulate:
		x, err := e.value(e.prog.Assign.RHS)
		if err != nil {
			return err
		}
		e.line("%s", combine(node.Op.Name, e.acc, x))
	case *ir.Store:
		cell, err := e.cell()
		if err != nil {
			return err
		}
		x, err := e.value(e.prog.Assign.RHS)
		if err != nil {
			return err
		}
		e.line("%s = %s", cell, x)
	case *ir.Fill:
		cell, err := e.partialCell()
		if err != nil {
			return err
		}
		init, err := e.initValue(node.Spec)
		if err != nil {
			return err
		}
		e.line("%s = %s", cell, e.elemConv(init))
	case *ir.Flush:
		cell, err := e.cell()
		if err != nil {
			return err
		}
		partial, err := e.partialCell()
		if err != nil {
			return err
		}
		e.line("%s = %s", cell, partial)
	default:
		return errors.Errorf("cannot lower plan node %T", node)
	}
	return nil
}

// unrolledLoop repeats the body Width times with the index shifted in each
// copy, then runs the remaining values in a regular loop.
func (e *emitter) unrolledLoop(node *ir.UnrolledLoop) error {
	x := node.Index.Name
	r := e.ranges[x]
	hi := r.exclusive()
	e.line("{")
	e.line("%s := %s", x, r.lo)
	e.line("for ; %s+%d <= %s; %s += %d {", x, node.Width, hi, x, node.Width)
	for u := range node.Width {
		if u > 0 {
			e.subst[x] = fmt.Sprintf("%s+%d", x, u)
		}
		if err := e.node(node.Body); err != nil {
			return err
		}
	}
	delete(e.subst, x)
	e.line("}")
	e.line("for ; %s < %s; %s++ {", x, hi, x)
	if err := e.node(node.Body); err != nil {
		return err
	}
	e.line("}")
	e.line("}")
	return nil
}

func (e *emitter) tileLoop(node *ir.TileLoop) error {
	saved := make([]loopRange, len(node.Indices))
	for i, idx := range node.Indices {
		x := idx.Name
		r := e.ranges[x]
		saved[i] = r
		hi := r.exclusive()
		lo := e.names.Name(x + "Lo")
		e.line("for %s := %s; %s < %s; %s += %d {", lo, r.lo, lo, hi, lo, node.Widths[i])
		e.ranges[x] = loopRange{
			lo: lo,
			hi: fmt.Sprintf("min(%s+%d, %s)", lo, node.Widths[i], hi),
		}
	}
	if err := e.node(node.Body); err != nil {
		return err
	}
	for i, idx := range node.Indices {
		e.ranges[idx.Name] = saved[i]
		e.line("}")
	}
	return nil
}

func (e *emitter) reduce(node *ir.Reduce) error {
	init := e.neutral(node.Spec.Op.Name)
	if !node.Combine {
		var err error
		if init, err = e.initValue(node.Spec); err != nil {
			return err
		}
	}
	e.line("%s := %s", e.acc, e.elemConv(init))
	if err := e.node(node.Body); err != nil {
		return err
	}
	if node.Combine {
		partial, err := e.partialCell()
		if err != nil {
			return err
		}
		e.line("%s", combine(node.Spec.Op.Name, partial, e.acc))
		return nil
	}
	cell, err := e.cell()
	if err != nil {
		return err
	}
	e.line("%s = %s", cell, e.acc)
	return nil
}
