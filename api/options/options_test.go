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

package options_test

import (
	"testing"

	"github.com/gx-org/einloop/api/options"
)

func TestOptions(t *testing.T) {
	t.Setenv("EINLOOP_PARALLEL", "")
	t.Setenv("EINLOOP_WORKERS", "3")
	def := options.New()
	if def.Parallel {
		t.Errorf("parallel execution enabled by default")
	}
	if def.Workers != 3 {
		t.Errorf("got %d workers but want 3", def.Workers)
	}
	if got := def.NumWorkers(10); got != 1 {
		t.Errorf("sequential execution uses %d workers", got)
	}
	par := options.New(options.Parallel(8))
	if got := par.NumWorkers(10); got != 8 {
		t.Errorf("got %d workers but want 8", got)
	}
	if got := par.NumWorkers(2); got != 2 {
		t.Errorf("got %d workers for 2 iterations", got)
	}
	if got := options.New(options.Parallel(0)).Workers; got != 3 {
		t.Errorf("got %d workers but want the default 3", got)
	}
	if options.New(options.Parallel(2), options.Sequential()).Parallel {
		t.Errorf("the last option does not take precedence")
	}
}

func TestTrace(t *testing.T) {
	var lines []string
	opts := options.New(options.Trace(func(format string, a ...any) {
		lines = append(lines, format)
	}))
	opts.Tracef("step %d", 1)
	if len(lines) != 1 || lines[0] != "step %d" {
		t.Errorf("unexpected trace: %v", lines)
	}
	none := options.New()
	none.Tracef("ignored")
}
