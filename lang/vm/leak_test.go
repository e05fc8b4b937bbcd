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

	"github.com/probechain/slate/lang/bytecode"
	"github.com/probechain/slate/lang/value"
)

// P1: after a program that builds and discards a heap value (here, an
// array built then popped), Sweep reports only pointers its live function
// accepts; with a live function that accepts none, nothing is reported.
func TestLeakDetectionCatchesNoLeakOnCleanProgram(t *testing.T) {
	b := bytecode.NewBuilder("main", 0)
	idx := b.Constant(value.Int32(1))
	b.Emit16(bytecode.PUSH_CONSTANT, idx)
	b.Emit16(bytecode.BUILD_ARRAY, 1)
	b.Emit0(bytecode.POP)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	m.ArmLeakDetection()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}

	leaked := m.SweepLeaks(func(uintptr) bool { return false })
	if len(leaked) != 0 {
		t.Fatalf("expected no live pointers after Sweep with an always-false live func, got %v", leaked)
	}
}

func TestLeakDetectionReportsStillLiveValue(t *testing.T) {
	b := bytecode.NewBuilder("main", 0)
	idx := b.Constant(value.Int32(1))
	b.Emit16(bytecode.PUSH_CONSTANT, idx)
	b.Emit16(bytecode.BUILD_ARRAY, 1)
	b.Emit0(bytecode.SET_RESULT)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	m.ArmLeakDetection()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	ptr, ok := value.HeapIdentity(m.ResultRegister())
	if !ok {
		t.Fatal("result register must be a heap value")
	}
	leaked := m.SweepLeaks(func(p uintptr) bool { return p == ptr })
	if len(leaked) != 1 || leaked[0] != ptr {
		t.Fatalf("Sweep must report the still-live result, got %v", leaked)
	}
}
