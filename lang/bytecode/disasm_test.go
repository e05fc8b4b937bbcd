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

package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/probechain/slate/lang/value"
)

func TestDisassembleListsEveryInstruction(t *testing.T) {
	b := NewBuilder("main", 0)
	idx := b.Constant(value.Int32(41))
	b.Emit16(PUSH_CONSTANT, idx)
	b.Emit0(INCREMENT)
	b.Emit0(HALT)
	fn := b.Finish()

	var buf bytes.Buffer
	if err := Disassemble(&buf, fn, false); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PUSH_CONSTANT", "INCREMENT", "HALT", "41"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleVerboseDumpsConstants(t *testing.T) {
	b := NewBuilder("main", 0)
	b.Constant(value.String("hi"))
	b.Emit0(HALT)
	fn := b.Finish()

	var buf bytes.Buffer
	if err := Disassemble(&buf, fn, true); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(buf.String(), "constants:") {
		t.Error("verbose disassembly must include a constants section")
	}
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	b := NewBuilder("main", 0)
	b.EmitJump(JUMP, "end")
	b.Label("end")
	b.Emit0(HALT)
	fn := b.Finish()

	var buf bytes.Buffer
	if err := Disassemble(&buf, fn, false); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(buf.String(), "->") {
		t.Error("jump disassembly must show its resolved target")
	}
}

func TestDisassemblePropagatesFetchError(t *testing.T) {
	fn := &value.Function{Code: []byte{0xFF}}
	if err := Disassemble(&bytes.Buffer{}, fn, false); err == nil {
		t.Fatal("Disassemble must surface an invalid-opcode error from Fetch")
	}
}
