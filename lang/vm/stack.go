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
	"github.com/probechain/slate/lang/value"
)

// defaultStackCapacity is the fallback initial operand-stack size when no
// config.Settings.StackCapacity is supplied; recommends 256
// with growth at push time.
const defaultStackCapacity = 256

// operandStack is the primary data stack the interpreter manipulates; it
// also houses function locals inside each frame's slot window.
type operandStack struct {
	values []value.Value
	tracker *leakTracker
}

func newOperandStack(tracker *leakTracker, capacity int) *operandStack {
	if capacity <= 0 {
		capacity = defaultStackCapacity
	}
	return &operandStack{values: make([]value.Value, 0, capacity), tracker: tracker}
}

// push retains v and appends it to the stack.
func (s *operandStack) push(v value.Value) {
	value.Retain(v)
	if s.tracker != nil {
		s.tracker.observe(v)
	}
	s.values = append(s.values, v)
}

// pop removes and returns the top value. Ownership transfers to the
// caller: pop does not release — the consumer must call value.Release
// exactly once.
func (s *operandStack) pop() (value.Value, bool) {
	n := len(s.values)
	if n == 0 {
		return value.Value{}, false
	}
	v := s.values[n-1]
	s.values[n-1] = value.Value{}
	s.values = s.values[:n-1]
	return v, true
}

// peek returns (without retaining) the value at depth d, 0 = top.
func (s *operandStack) peek(d int) (value.Value, bool) {
	idx := len(s.values) - 1 - d
	if idx < 0 || idx >= len(s.values) {
		return value.Value{}, false
	}
	return s.values[idx], true
}

func (s *operandStack) depth() int { return len(s.values) }

// setAt overwrites the value at absolute index idx, retaining v and
// releasing what was there. Used by SET_LOCAL.
func (s *operandStack) setAt(idx int, v value.Value) {
	value.Retain(v)
	value.Release(s.values[idx])
	s.values[idx] = v
}

func (s *operandStack) at(idx int) value.Value { return s.values[idx] }

// truncate releases every value above newLen and shrinks the stack to it.
func (s *operandStack) truncate(newLen int) {
	for i := newLen; i < len(s.values); i++ {
		value.Release(s.values[i])
		s.values[i] = value.Value{}
	}
	s.values = s.values[:newLen]
}
