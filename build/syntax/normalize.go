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
	"go/token"
	"strings"
	"unicode"
)

// Prime is the letter replacing a prime decoration on an index name:
// i' becomes iʹ, a different identifier.
const Prime = 'ʹ' // U+02B9 MODIFIER LETTER PRIME

// Placeholder is the index name fixing an axis at its origin.
const Placeholder = "_"

func isIdentRune(r rune) bool {
	return r == '_' || r == Prime || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// NormalizePrimes rewrites every prime decoration following an identifier
// into the Prime letter so that go/scanner reads i' as one identifier.
// Quotes not following an identifier, e.g. character literals, are kept.
func NormalizePrimes(src string) string {
	if !strings.ContainsRune(src, '\'') {
		return src
	}
	var b strings.Builder
	var prev rune
	inChar := false
	for _, r := range src {
		switch {
		case inChar:
			inChar = r != '\'' || prev == '\\'
		case r == '\'' && prev != 0 && isIdentRune(prev):
			r = Prime
		case r == '\'':
			inChar = true
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// Unprime returns the name of an index as the user wrote it.
func Unprime(name string) string {
	return strings.ReplaceAll(name, string(Prime), "'")
}

// NormalizePlaceholders replaces the placeholder index in every index list
// of an expression by the literal 0.
func NormalizePlaceholders(expr ast.Expr) {
	ast.Inspect(expr, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IndexExpr:
			n.Index = placeholderToLit(n.Index)
		case *ast.IndexListExpr:
			for i, idx := range n.Indices {
				n.Indices[i] = placeholderToLit(idx)
			}
		}
		return true
	})
}

func placeholderToLit(expr ast.Expr) ast.Expr {
	ident, ok := expr.(*ast.Ident)
	if !ok || ident.Name != Placeholder {
		return expr
	}
	return &ast.BasicLit{ValuePos: ident.Pos(), Kind: token.INT, Value: "0"}
}
