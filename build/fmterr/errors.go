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

import "strings"

// Errors is the set of errors of one compilation.
type Errors struct {
	errs []error
}

// Append an error to the set. Returns false if err is not nil so that passes
// can write `return errs.Append(err)`.
func (errs *Errors) Append(err error) bool {
	if err == nil {
		return true
	}
	errs.errs = append(errs.errs, err)
	return false
}

// Empty returns true if no error has been appended.
func (errs *Errors) Empty() bool {
	return errs == nil || len(errs.errs) == 0
}

// Error returns the errors, one per line.
func (errs *Errors) Error() string {
	ss := make([]string, len(errs.errs))
	for i, err := range errs.errs {
		ss[i] = err.Error()
	}
	return strings.Join(ss, "\n")
}

// Unwrap returns the errors of the set for errors.Is and errors.As.
func (errs *Errors) Unwrap() []error {
	return errs.errs
}

// ToError returns nil if the set is empty, the set otherwise.
func (errs *Errors) ToError() error {
	if errs.Empty() {
		return nil
	}
	return errs
}
