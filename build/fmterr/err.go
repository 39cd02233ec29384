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
	"fmt"
	"go/ast"
	"go/token"

	"github.com/pkg/errors"
)

// PosError is an error at a node of a statement.
type PosError struct {
	fset *token.FileSet
	// Node is the part of the statement responsible for the error.
	Node ast.Node
	// Err is the error without its position.
	Err error
}

// Errorf returns an error at the position of a node.
func Errorf(fset *token.FileSet, node ast.Node, format string, a ...any) error {
	return &PosError{fset: fset, Node: node, Err: errors.Errorf(format, a...)}
}

func (err *PosError) Error() string {
	pos := err.Node.Pos()
	if err.fset == nil || !pos.IsValid() {
		return err.Err.Error()
	}
	return fmt.Sprintf("%s: %s", err.fset.Position(pos), err.Err)
}

// Unwrap returns the error without its position.
func (err *PosError) Unwrap() error {
	return err.Err
}

// Internal returns an error reporting a bug in einloop.
func Internal(err error) error {
	return fmt.Errorf("einloop internal error. This is a bug. Please report it. Error:\n%+v", err)
}
