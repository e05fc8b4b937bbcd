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
	"encoding/binary"

	"github.com/probechain/slate/lang/value"
)

// Builder assembles a *value.Function one instruction at a time. It plays
// the role the teacher's codegen.Generator plays for the register VM, but
// emits Slate's variable-width encoding directly; Slate's code generator
// itself is out of scope, so Builder exists purely as the
// construction surface tests, the disassembler's fixtures, and cmd/slate's
// chunk loader build on.
type Builder struct {
	fn *value.Function
	labels map[string]int
	fixups []fixup
}

type fixup struct {
	at int // offset of the 16-bit operand to patch
	label string
	opBase int // offset of the instruction following the jump, for relative encoding
}

// NewBuilder starts assembling a function with the given name and arity.
func NewBuilder(name string, arity int) *Builder {
	return &Builder{
		fn: &value.Function{
			Name: name,
			Arity: arity,
		},
		labels: make(map[string]int),
	}
}

// Constant appends v to the constant pool and returns its index.
func (b *Builder) Constant(v value.Value) uint16 {
	b.fn.Constants = append(b.fn.Constants, v)
	return uint16(len(b.fn.Constants) - 1)
}

// Upvalue appends an upvalue descriptor and returns its index.
func (b *Builder) Upvalue(isLocal bool, index uint8) uint8 {
	b.fn.Upvalues = append(b.fn.Upvalues, value.UpvalueDesc{IsLocal: isLocal, Index: index})
	return uint8(len(b.fn.Upvalues) - 1)
}

// SetLocalCount records the maximum simultaneously live locals.
func (b *Builder) SetLocalCount(n int) { b.fn.LocalCount = n }
func (b *Builder) SetParamNames(names []string) { b.fn.ParamNames = names }

// Label marks the current offset under name for later jump resolution.
func (b *Builder) Label(name string) { b.labels[name] = len(b.fn.Code) }

// Offset returns the current code length.
func (b *Builder) Offset() int { return len(b.fn.Code) }

func (b *Builder) emitOp(op Opcode) { b.fn.Code = append(b.fn.Code, byte(op)) }

// Emit0 appends a no-operand instruction.
func (b *Builder) Emit0(op Opcode) { b.emitOp(op) }

// Emit8 appends a single 8-bit-operand instruction.
func (b *Builder) Emit8(op Opcode, operand uint8) {
	b.emitOp(op)
	b.fn.Code = append(b.fn.Code, operand)
}

// Emit16 appends a single 16-bit-operand instruction.
func (b *Builder) Emit16(op Opcode, operand uint16) {
	b.emitOp(op)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], operand)
	b.fn.Code = append(b.fn.Code, buf[:]...)
}

// Emit16_8 appends a (16-bit, 8-bit)-operand instruction, e.g. DEFINE_GLOBAL.
func (b *Builder) Emit16_8(op Opcode, a uint16, c uint8) {
	b.emitOp(op)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], a)
	b.fn.Code = append(b.fn.Code, buf[0], buf[1], c)
}

// Emit16_8_8 appends a (16-bit, 8-bit, 8-bit)-operand instruction, i.e.
// SET_DEBUG_LOCATION.
func (b *Builder) Emit16_8_8(op Opcode, a uint16, c, d uint8) {
	b.emitOp(op)
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], a)
	b.fn.Code = append(b.fn.Code, buf[0], buf[1], c, d)
}

// EmitJump appends a jump-family instruction with a placeholder operand and
// registers a fixup to patch it once label is defined via Label.
func (b *Builder) EmitJump(op Opcode, label string) {
	b.emitOp(op)
	at := len(b.fn.Code)
	b.fn.Code = append(b.fn.Code, 0, 0)
	b.fixups = append(b.fixups, fixup{at: at, label: label, opBase: at + 2})
}

// Finish resolves pending jump fixups and returns the assembled function.
// It panics if a referenced label was never defined; Builder is a test and
// tooling convenience, not a production compiler pass with user-facing
// error recovery.
func (b *Builder) Finish() *value.Function {
	for _, fx := range b.fixups {
		target, ok := b.labels[fx.label]
		if !ok {
			panic("bytecode: undefined label " + fx.label)
		}
		delta := int16(target - fx.opBase)
		binary.LittleEndian.PutUint16(b.fn.Code[fx.at:fx.at+2], uint16(delta))
	}
	return b.fn
}
