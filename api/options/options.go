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

// Package options configures the execution of a program.
//
// Defaults are read from the environment:
//
//	EINLOOP_PARALLEL  run the outermost output loop on several goroutines.
//	EINLOOP_WORKERS   number of goroutines, the number of CPUs if unset.
package options

import (
	"runtime"

	"github.com/xyproto/env/v2"
)

type (
	// Options of an execution.
	Options struct {
		// Parallel is true if the outermost output loop is partitioned
		// across workers.
		Parallel bool
		// Workers is the size of the worker pool.
		Workers int
		// Trace, if not nil, is called with a description of the steps of
		// an execution.
		Trace func(format string, a ...any)
	}

	// Option modifies the options of an execution.
	Option func(*Options)
)

// Defaults returns the options set by the environment.
func Defaults() Options {
	return Options{
		Parallel: env.Bool("EINLOOP_PARALLEL"),
		Workers:  max(env.Int("EINLOOP_WORKERS", runtime.NumCPU()), 1),
	}
}

// New returns the default options modified by opts.
func New(opts ...Option) Options {
	o := Defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Parallel runs the outermost output loop on n workers.
// A non-positive n keeps the default number of workers.
// A panic in a worker is raised again by Run once every worker has stopped.
func Parallel(n int) Option {
	return func(o *Options) {
		o.Parallel = true
		if n > 0 {
			o.Workers = n
		}
	}
}

// Sequential runs all the loops on the calling goroutine.
func Sequential() Option {
	return func(o *Options) {
		o.Parallel = false
	}
}

// Trace sets a function receiving the steps of an execution.
func Trace(f func(format string, a ...any)) Option {
	return func(o *Options) {
		o.Trace = f
	}
}

// Tracef calls the trace function if one has been set.
func (o *Options) Tracef(format string, a ...any) {
	if o.Trace != nil {
		o.Trace(format, a...)
	}
}

// NumWorkers returns the number of workers used to run n iterations.
func (o *Options) NumWorkers(n int) int {
	if !o.Parallel {
		return 1
	}
	return max(min(o.Workers, n), 1)
}
