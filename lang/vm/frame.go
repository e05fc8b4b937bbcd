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

import "github.com/probechain/slate/lang/value"

// defaultFrameCapacity is the fallback bound on nested CALLs before
// InternalError("stack overflow") fires, used when no config.Settings.
// FrameCapacity is supplied; overridden per-VM by vm.cfg (see
// VM.frameCapacity in closure.go).
const defaultFrameCapacity = 512

// frame is the per-invocation record of: closure pointer, this
// invocation's own instruction pointer, the start of its local slot window
// on the operand stack, and the stack index RETURN truncates back to.
type frame struct {
	closure *value.Closure
	slots int // index into the operand stack where locals begin
	ip int // this frame's instruction pointer into closure.Fn.Code

	// baseIdx is the stack index RETURN truncates back to: the position of
	// the callee value itself for a CALL-entered frame, or slots for the
	// entry frame (which has no callee value beneath it).
	baseIdx int
}

func (f *frame) code() []byte { return f.closure.Fn.Code }
