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

// Package syntax parses the surface syntax of an index statement:
// an assignment followed by optional reduction and tiling directives, e.g.
//
//	A[i] := B[i,j] * C[k] (+, j, unroll(4), k) {tile(256), i}
//
// Expressions use the Go expression syntax and are returned as go/ast nodes.
// A parenthesized group separated from the expression by white space is a
// reduction directive if it starts with +, *, &, |, ^, max, or min.
package syntax

import (
	"go/ast"
	"go/token"
)

type (
	// Assign is a parsed index statement.
	Assign struct {
		// FSet contains the source of the statement.
		FSet *token.FileSet
		// Src is the normalized source.
		Src string
		// Target is the output of the statement.
		Target *Target
		// Tok is token.DEFINE when a new output is allocated,
		// token.ASSIGN when an existing output is updated.
		// Augmented assignments are desugared into token.ASSIGN.
		Tok token.Token
		// TokPos is the position of the assignment operator.
		TokPos token.Pos
		// RHS is the expression computing one element of the output.
		RHS ast.Expr
		// Reduce is the reduction directive or nil.
		Reduce *ReductionClause
		// Tile is the tiling directive or nil.
		Tile *TileClause
	}

	// Target is the left-hand side of a statement.
	Target struct {
		// Expr is the complete left-hand side expression.
		Expr ast.Expr
		// Name of the output array.
		Name *ast.Ident
		// Indices of the output: identifiers or fixed positions.
		Indices []ast.Expr
	}

	// ReductionClause is a directive (operator, arg...).
	ReductionClause struct {
		Lparen, Rparen token.Pos
		// Op is the reduction operator. Operator symbols, e.g. +, are
		// stored as identifiers.
		Op *ast.Ident
		// Args are ast.Expr or *InitArg nodes.
		Args []ast.Node
	}

	// InitArg is an init = value argument of a reduction directive.
	InitArg struct {
		Init  token.Pos
		Value ast.Expr
	}

	// TileClause is a directive {tile(N), index...}.
	TileClause struct {
		Lbrace, Rbrace token.Pos
		// Keyword is either the identifier tile or the call tile(N).
		Keyword ast.Expr
		Indices []ast.Expr
	}
)

// Pos returns the position of the init keyword.
func (a *InitArg) Pos() token.Pos { return a.Init }

// End returns the end of the value.
func (a *InitArg) End() token.Pos { return a.Value.End() }

// Pos returns the position of the opening parenthesis.
func (c *ReductionClause) Pos() token.Pos { return c.Lparen }

// End returns the position after the closing parenthesis.
func (c *ReductionClause) End() token.Pos { return c.Rparen + 1 }

// Pos returns the position of the opening brace.
func (c *TileClause) Pos() token.Pos { return c.Lbrace }

// End returns the position after the closing brace.
func (c *TileClause) End() token.Pos { return c.Rbrace + 1 }

// IndexParts splits an index expression into the indexed expression and its
// indices. It returns false if expr is not an index expression.
func IndexParts(expr ast.Expr) (ast.Expr, []ast.Expr, bool) {
	switch e := expr.(type) {
	case *ast.IndexExpr:
		return e.X, []ast.Expr{e.Index}, true
	case *ast.IndexListExpr:
		return e.X, e.Indices, true
	}
	return nil, nil, false
}

// Define returns true if the statement allocates a new output.
func (a *Assign) Define() bool {
	return a.Tok == token.DEFINE
}
