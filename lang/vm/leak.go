// Copyright 2024 The Slate Authors
// This file is part of Slate.
//
// Slate is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Slate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Slate. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	mapset "github.com/deckarep/golang-set"

	"github.com/probechain/slate/lang/value"
)

// leakTracker is a debug-build aid for asserting P1 (no reference-count
// leaks): it records every heap payload pointer retained while tracking is
// armed, and Sweep reports any whose count never returned to zero. It is
// not consulted by the interpreter's hot path; Arm/Sweep are called only
// from test harnesses.
type leakTracker struct {
	armed bool
	seen mapset.Set
}

func newLeakTracker() *leakTracker {
	return &leakTracker{seen: mapset.NewSet()}
}

// Arm starts tracking; call before the bytecode under test runs.
func (t *leakTracker) Arm() {
	t.armed = true
	t.seen.Clear()
}

// Observe records a heap payload pointer touched during execution.
func (t *leakTracker) observe(v value.Value) {
	if !t.armed {
		return
	}
	if p, ok := value.HeapIdentity(v); ok {
		t.seen.Add(p)
	}
}

// Sweep disarms tracking and returns every observed pointer whose value
// still reports a nonzero reference count, i.e. candidates for a leak (P1).
func (t *leakTracker) Sweep(live func(uintptr) bool) []uintptr {
	t.armed = false
	var leaked []uintptr
	for p := range t.seen.Iter() {
		ptr := p.(uintptr)
		if live(ptr) {
			leaked = append(leaked, ptr)
		}
	}
	return leaked
}
