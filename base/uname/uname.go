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

// Package uname provides names that do not collide with reserved names.
package uname

import "fmt"

// Unique generates unique names.
type Unique struct {
	used  map[string]bool
	count map[string]int
}

// New name generator. Reserved names are never returned.
func New(reserved ...string) *Unique {
	n := &Unique{
		used:  make(map[string]bool),
		count: make(map[string]int),
	}
	n.Reserve(reserved...)
	return n
}

// Reserve names so that they are never returned.
func (n *Unique) Reserve(names ...string) {
	for _, name := range names {
		n.used[name] = true
	}
}

// Name returns a unique name given a desired base name.
// If the base name is available, it is returned directly. Else, the first
// available numerical suffix is appended.
func (n *Unique) Name(root string) string {
	name := root
	for n.used[name] {
		n.count[root]++
		name = fmt.Sprintf("%s%d", root, n.count[root])
	}
	n.used[name] = true
	return name
}
