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
	"fmt"
)

// Instruction is one decoded bytecode instruction: the opcode plus up to
// three operand words, and the offset of the instruction immediately
// following it.
type Instruction struct {
	Op     Opcode
	Offset int // byte offset of this instruction's opcode byte
	Next   int // byte offset of the following instruction
	A16    uint16
	A8     uint8
	B8     uint8
}

// Fetch decodes exactly one instruction at ip. It is the single decode
// routine shared by the VM's dispatch loop (lang/vm) and the disassembler.
func Fetch(code []byte, ip int) (Instruction, error) {
	if ip < 0 || ip >= len(code) {
		return Instruction{}, fmt.Errorf("bytecode: offset %d out of range (len %d)", ip, len(code))
	}
	op := Opcode(code[ip])
	if !op.Valid() {
		return Instruction{}, fmt.Errorf("bytecode: invalid opcode 0x%02x at offset %d", code[ip], ip)
	}
	width := op.Shape().Width()
	if ip+1+width > len(code) {
		return Instruction{}, fmt.Errorf("bytecode: truncated operand for %s at offset %d", op, ip)
	}
	inst := Instruction{Op: op, Offset: ip, Next: ip + 1 + width}
	operands := code[ip+1 : ip+1+width]
	switch op.Shape() {
	case ShapeNone:
	case ShapeU8:
		inst.A8 = operands[0]
	case ShapeU16:
		inst.A16 = binary.LittleEndian.Uint16(operands)
	case ShapeU16U8:
		inst.A16 = binary.LittleEndian.Uint16(operands[0:2])
		inst.A8 = operands[2]
	case ShapeU16U8U8:
		inst.A16 = binary.LittleEndian.Uint16(operands[0:2])
		inst.A8 = operands[2]
		inst.B8 = operands[3]
	}
	return inst, nil
}

// JumpOffset interprets A16 as the signed 16-bit relative offset used by
// JUMP/JUMP_IF_FALSE/JUMP_IF_TRUE/LOOP: an unsigned two's-complement
// representation added to the instruction pointer immediately following
// the 3-byte instruction.
func (i Instruction) JumpOffset() int {
	return int(int16(i.A16))
}

// Target returns the absolute byte offset a jump instruction branches to.
func (i Instruction) Target() int {
	return i.Next + i.JumpOffset()
}
