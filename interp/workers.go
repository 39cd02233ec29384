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

package interp

import (
	"sync"

	"github.com/gx-org/einloop/api/values"
	"go.uber.org/multierr"
	"golang.org/x/sys/cpu"
)

type (
	// accSlot is the accumulator of a worker. Slots of different workers do
	// not share a cache line.
	accSlot struct {
		acc values.Atom
		_   cpu.CacheLinePad
	}

	asyncErrors struct {
		locker sync.Mutex
		errs   error
		// panicked is true if a worker panicked with the value panicValue.
		panicked   bool
		panicValue any
	}
)

func (ae *asyncErrors) add(err error) {
	ae.locker.Lock()
	defer ae.locker.Unlock()

	ae.errs = multierr.Append(ae.errs, err)
}

func (ae *asyncErrors) errors() error {
	ae.locker.Lock()
	defer ae.locker.Unlock()

	return ae.errs
}

// recoverPanic records the first panic of the workers.
func (ae *asyncErrors) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	ae.locker.Lock()
	defer ae.locker.Unlock()

	if !ae.panicked {
		ae.panicked, ae.panicValue = true, r
	}
}

// rethrow panics on the calling goroutine with the value of the first panic
// of the workers, if any.
func (ae *asyncErrors) rethrow() {
	if ae.panicked {
		panic(ae.panicValue)
	}
}

// partition splits a range into n contiguous ranges of almost equal lengths.
func partition(r Range, n int) []Range {
	size := r.Len()
	parts := make([]Range, 0, n)
	lo := r.Lo
	for i := range n {
		l := size / n
		if i < size%n {
			l++
		}
		if l == 0 {
			continue
		}
		parts = append(parts, Range{Lo: lo, Hi: lo + l})
		lo += l
	}
	return parts
}

// parallelLoop runs a loop over the index in slot on a pool of workers. Each
// worker owns a copy of the state: a frame and an accumulator.
// Two workers never write to the same output cell because the index is an
// output index. A panic in a worker is raised again on the calling goroutine
// once all the workers are done, as it would be by a sequential loop.
func (rn *runner) parallelLoop(slot int, body execFn) execFn {
	return func(st *state) error {
		full := st.ranges[slot]
		numWorkers := rn.opts.NumWorkers(full.Len())
		if numWorkers <= 1 {
			return rangeLoop(st, slot, full, body)
		}
		chunks := partition(full, numWorkers)
		slots := make([]accSlot, numWorkers)
		toWorker := make(chan Range, len(chunks))
		var (
			wg   sync.WaitGroup
			errs asyncErrors
		)
		for w := range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer errs.recoverPanic()
				wst := st.fork(&slots[w].acc)
				for r := range toWorker {
					if err := rangeLoop(wst, slot, r, body); err != nil {
						errs.add(err)
					}
				}
			}()
		}
		for _, r := range chunks {
			toWorker <- r
		}
		close(toWorker)
		wg.Wait()
		errs.rethrow()
		rn.opts.Tracef("%s: %d chunks on %d workers", rn.prog.Target.String(), len(chunks), numWorkers)
		return errs.errors()
	}
}
