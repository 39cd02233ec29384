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

package syntax

import (
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/gx-org/einloop/build/fmterr"
	"github.com/pkg/errors"
)

type (
	lexeme struct {
		pos      token.Pos
		off, end int
		tok      token.Token
		lit      string
	}

	parserState struct {
		name string
		src  string
		fset *token.FileSet
		file *token.File
		lex  []lexeme
	}
)

var augmented = map[token.Token]token.Token{
	token.ADD_ASSIGN: token.ADD,
	token.SUB_ASSIGN: token.SUB,
	token.MUL_ASSIGN: token.MUL,
}

// Parse an index statement and its directives. name is used as the file name
// in error positions. Directives can be passed separately: they are parsed as
// if they followed src.
func Parse(name, src string, directives ...string) (*Assign, error) {
	if len(directives) > 0 {
		src = src + " " + strings.Join(directives, " ")
	}
	p := &parserState{name: name, src: NormalizePrimes(src)}
	p.fset, p.file = fmterr.NewFileSet(name, p.src)
	if err := p.scan(); err != nil {
		return nil, err
	}
	return p.parse()
}

func tokenEnd(off int, tok token.Token, lit string) int {
	if lit != "" {
		return off + len(lit)
	}
	return off + len(tok.String())
}

func (p *parserState) scan() error {
	var errs scanner.ErrorList
	var sc scanner.Scanner
	sc.Init(p.file, []byte(p.src), func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)
	for {
		pos, tok, lit := sc.Scan()
		if tok == token.EOF {
			break
		}
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		off := p.file.Offset(pos)
		p.lex = append(p.lex, lexeme{pos: pos, off: off, end: tokenEnd(off, tok, lit), tok: tok, lit: lit})
	}
	if len(errs) > 0 {
		return errs.Err()
	}
	if len(p.lex) == 0 {
		return errors.Errorf("%s: empty statement", p.name)
	}
	return nil
}

func (p *parserState) errorf(pos token.Pos, format string, a ...any) error {
	return fmterr.Errorf(p.fset, &ast.Ident{NamePos: pos}, format, a...)
}

// mask returns the source with all bytes outside [start,end) replaced by
// spaces so that positions of the parsed nodes are positions in the source.
func (p *parserState) mask(start, end int) string {
	b := []byte(p.src)
	for i := range b {
		if (i < start || i >= end) && b[i] != '\n' {
			b[i] = ' '
		}
	}
	return string(b)
}

func (p *parserState) parseExpr(from, to int) (ast.Expr, error) {
	if from >= to {
		return nil, errors.Errorf("%s: missing expression", p.name)
	}
	start, end := p.lex[from].off, p.lex[to-1].end
	expr, err := parser.ParseExprFrom(p.fset, p.name, p.mask(start, end), parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	NormalizePlaceholders(expr)
	return expr, nil
}

func isOpen(tok token.Token) bool {
	return tok == token.LPAREN || tok == token.LBRACK || tok == token.LBRACE
}

func isClose(tok token.Token) bool {
	return tok == token.RPAREN || tok == token.RBRACK || tok == token.RBRACE
}

// matching returns the index of the lexeme closing the group opened at i.
func (p *parserState) matching(i int) (int, error) {
	depth := 0
	for j := i; j < len(p.lex); j++ {
		switch {
		case isOpen(p.lex[j].tok):
			depth++
		case isClose(p.lex[j].tok):
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, p.errorf(p.lex[i].pos, "unbalanced %s", p.lex[i].tok)
}

func (p *parserState) findAssign() (int, error) {
	if len(p.lex) == 0 {
		return 0, p.errorf(token.NoPos, "empty statement")
	}
	depth := 0
	for i, lx := range p.lex {
		switch {
		case isOpen(lx.tok):
			depth++
		case isClose(lx.tok):
			depth--
		case depth != 0:
		case lx.tok == token.DEFINE, lx.tok == token.ASSIGN:
			return i, nil
		case augmented[lx.tok] != token.ILLEGAL:
			return i, nil
		}
	}
	return 0, p.errorf(p.lex[0].pos, "malformed statement: expected an assignment with :=, =, +=, -=, or *=")
}

// isDirective returns true if the group opened at i starts a directive.
// A directive is separated from the expression by white space. A reduction
// directive starts with an operator symbol, max, or min: a name followed by
// a parenthesized group is a call, e.g. g (x, y).
func (p *parserState) isDirective(i int) bool {
	if i == 0 || p.lex[i].off == p.lex[i-1].end {
		return false
	}
	if p.lex[i].tok == token.LBRACE {
		return true
	}
	if p.lex[i].tok != token.LPAREN || i+2 >= len(p.lex) {
		return false
	}
	op, next := p.lex[i+1], p.lex[i+2].tok
	if next != token.COMMA && next != token.RPAREN {
		return false
	}
	switch op.tok {
	case token.ADD, token.MUL, token.AND, token.OR, token.XOR:
		return true
	case token.IDENT:
		return op.lit == "max" || op.lit == "min"
	}
	return false
}

func (p *parserState) parse() (*Assign, error) {
	opIdx, err := p.findAssign()
	if err != nil {
		return nil, err
	}
	opLex := p.lex[opIdx]
	rhsEnd := len(p.lex)
	depth := 0
	for i := opIdx + 1; i < len(p.lex); i++ {
		tok := p.lex[i].tok
		if depth == 0 && isOpen(tok) && p.isDirective(i) {
			rhsEnd = i
			break
		}
		switch {
		case isOpen(tok):
			depth++
		case isClose(tok):
			depth--
		}
	}
	lhs, err := p.parseExpr(0, opIdx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse left-hand side")
	}
	target, err := p.target(lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr(opIdx+1, rhsEnd)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse right-hand side")
	}
	assign := &Assign{
		FSet:   p.fset,
		Src:    p.src,
		Target: target,
		Tok:    opLex.tok,
		TokPos: opLex.pos,
		RHS:    rhs,
	}
	if op, ok := augmented[opLex.tok]; ok {
		// A[i] += x is A[i] = A[i] + (x)
		assign.Tok = token.ASSIGN
		lhsCopy, err := p.parseExpr(0, opIdx)
		if err != nil {
			return nil, err
		}
		assign.RHS = &ast.BinaryExpr{
			X:     lhsCopy,
			OpPos: opLex.pos,
			Op:    op,
			Y:     &ast.ParenExpr{Lparen: rhs.Pos(), X: rhs, Rparen: rhs.End()},
		}
	}
	if err := p.parseDirectives(assign, rhsEnd); err != nil {
		return nil, err
	}
	return assign, nil
}

func (p *parserState) target(lhs ast.Expr) (*Target, error) {
	if ident, ok := lhs.(*ast.Ident); ok {
		return &Target{Expr: lhs, Name: ident}, nil
	}
	base, indices, ok := IndexParts(lhs)
	if !ok {
		return nil, fmterr.Errorf(p.fset, lhs, "malformed left-hand side: expected A or A[index, ...], got %T", lhs)
	}
	ident, ok := base.(*ast.Ident)
	if !ok {
		return nil, fmterr.Errorf(p.fset, base, "malformed left-hand side: output must be a name, got %T", base)
	}
	return &Target{Expr: lhs, Name: ident, Indices: indices}, nil
}

func (p *parserState) parseDirectives(assign *Assign, from int) error {
	for i := from; i < len(p.lex); {
		lx := p.lex[i]
		if lx.tok != token.LPAREN && lx.tok != token.LBRACE {
			return p.errorf(lx.pos, "unexpected %s after the statement: expected a (reduction) or {tile} directive", tokString(lx))
		}
		end, err := p.matching(i)
		if err != nil {
			return err
		}
		if lx.tok == token.LPAREN {
			if assign.Reduce != nil {
				return p.errorf(lx.pos, "more than one reduction directive")
			}
			if assign.Reduce, err = p.reductionClause(i, end); err != nil {
				return err
			}
		} else {
			if assign.Tile != nil {
				return p.errorf(lx.pos, "more than one tiling directive")
			}
			if assign.Tile, err = p.tileClause(i, end); err != nil {
				return err
			}
		}
		i = end + 1
	}
	return nil
}

func tokString(lx lexeme) string {
	if lx.lit != "" {
		return lx.lit
	}
	return lx.tok.String()
}

// segments splits the lexemes between an opening and closing token at the
// commas of the top level.
func (p *parserState) segments(open, close int) ([][2]int, error) {
	var segs [][2]int
	depth := 0
	start := open + 1
	for i := open + 1; i < close; i++ {
		switch tok := p.lex[i].tok; {
		case isOpen(tok):
			depth++
		case isClose(tok):
			depth--
		case tok == token.COMMA && depth == 0:
			segs = append(segs, [2]int{start, i})
			start = i + 1
		}
	}
	segs = append(segs, [2]int{start, close})
	for _, seg := range segs {
		if seg[0] == seg[1] {
			return nil, p.errorf(p.lex[seg[0]].pos, "empty element in directive")
		}
	}
	return segs, nil
}

func (p *parserState) reductionClause(open, close int) (*ReductionClause, error) {
	segs, err := p.segments(open, close)
	if err != nil {
		return nil, err
	}
	clause := &ReductionClause{Lparen: p.lex[open].pos, Rparen: p.lex[close].pos}
	opSeg := segs[0]
	if opSeg[1]-opSeg[0] != 1 {
		return nil, p.errorf(p.lex[opSeg[0]].pos, "malformed reduction directive: the first element must be an operator")
	}
	opLex := p.lex[opSeg[0]]
	clause.Op = &ast.Ident{NamePos: opLex.pos, Name: tokString(opLex)}
	for _, seg := range segs[1:] {
		arg, err := p.reductionArg(seg)
		if err != nil {
			return nil, err
		}
		clause.Args = append(clause.Args, arg)
	}
	return clause, nil
}

func (p *parserState) reductionArg(seg [2]int) (ast.Node, error) {
	for i := seg[0]; i < seg[1]; i++ {
		if p.lex[i].tok != token.ASSIGN {
			continue
		}
		if i != seg[0]+1 || p.lex[seg[0]].lit != "init" {
			return nil, p.errorf(p.lex[i].pos, "malformed reduction directive: only init = value can use =")
		}
		value, err := p.parseExpr(i+1, seg[1])
		if err != nil {
			return nil, errors.Wrap(err, "cannot parse init value")
		}
		return &InitArg{Init: p.lex[seg[0]].pos, Value: value}, nil
	}
	expr, err := p.parseExpr(seg[0], seg[1])
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse reduction directive")
	}
	return expr, nil
}

func (p *parserState) tileClause(open, close int) (*TileClause, error) {
	segs, err := p.segments(open, close)
	if err != nil {
		return nil, err
	}
	clause := &TileClause{Lbrace: p.lex[open].pos, Rbrace: p.lex[close].pos}
	for i, seg := range segs {
		expr, err := p.parseExpr(seg[0], seg[1])
		if err != nil {
			return nil, errors.Wrap(err, "cannot parse tiling directive")
		}
		if i == 0 {
			clause.Keyword = expr
			continue
		}
		clause.Indices = append(clause.Indices, expr)
	}
	return clause, nil
}
