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
	"testing"

	"github.com/probechain/slate/lang/value"
)

func TestOperandStackPushPopPeek(t *testing.T) {
	s := newOperandStack(nil, 0)
	s.push(value.Int32(1))
	s.push(value.Int32(2))
	if s.depth() != 2 {
		t.Fatalf("depth = %d, want 2", s.depth())
	}
	top, ok := s.peek(0)
	if !ok || top.AsInt32() != 2 {
		t.Fatalf("peek(0) = %v, want 2", top)
	}
	v, ok := s.pop()
	if !ok || v.AsInt32() != 2 {
		t.Fatalf("pop = %v, want 2", v)
	}
	value.Release(v)
	if s.depth() != 1 {
		t.Fatalf("depth after pop = %d, want 1", s.depth())
	}
}

func TestOperandStackPopEmptyReportsFalse(t *testing.T) {
	s := newOperandStack(nil, 0)
	if _, ok := s.pop(); ok {
		t.Fatal("pop on an empty stack must report ok=false")
	}
	if _, ok := s.peek(0); ok {
		t.Fatal("peek on an empty stack must report ok=false")
	}
}

// P1: truncate must release every value it drops, including nested
// array children, leaking nothing.
func TestOperandStackTruncateReleasesDroppedValues(t *testing.T) {
	s := newOperandStack(nil, 0)
	inner := value.String("child")
	value.Retain(inner)
	arr := value.Array([]value.Value{inner})
	value.Retain(arr)
	s.push(arr)
	value.Release(arr)
	s.push(value.Int32(1))

	mark := s.depth() - 2
	s.truncate(mark)
	if s.depth() != mark {
		t.Fatalf("depth after truncate = %d, want %d", s.depth(), mark)
	}
	if value.RefCount(arr) != 0 {
		t.Fatalf("truncate must release the array it dropped, refcount = %d", value.RefCount(arr))
	}
	if value.RefCount(inner) != 0 {
		t.Fatalf("truncate must cascade-release the array's children, refcount = %d", value.RefCount(inner))
	}
}

func TestOperandStackSetAtReleasesPrevious(t *testing.T) {
	s := newOperandStack(nil, 0)
	old := value.String("old")
	value.Retain(old)
	s.push(old)
	value.Release(old)

	next := value.Int32(2)
	value.Retain(next)
	s.setAt(0, next)
	value.Release(next)

	if got := s.at(0); got.AsInt32() != 2 {
		t.Fatalf("setAt did not overwrite the slot: got %v", got)
	}
	if value.RefCount(old) != 0 {
		t.Fatalf("setAt must release the value it overwrites, refcount = %d", value.RefCount(old))
	}
}
