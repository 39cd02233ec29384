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

// Package values implements all the values an index expression can refer to.
package values

type (
	// Value is a value bound to a name in an environment.
	Value interface {
		value() // Make sure all value types are implemented in this package.

		// String representation of the value.
		// The returned string is a string reported to the user.
		String() string
	}

	// Env maps the names used in an expression to their values.
	Env map[string]Value
)

// Lookup returns the value bound to a name.
func (env Env) Lookup(name string) (Value, bool) {
	v, ok := env[name]
	return v, ok
}
