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
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"

	"github.com/probechain/slate/lang/value"
)

// Disassemble writes a human-readable instruction listing for fn to w, one
// row per instruction: byte offset, mnemonic, decoded operands, and (when
// fn carries a debug table) the source line. This is the diagnostic
// consumer of the same Fetch routine the VM's dispatch loop uses
//.
func Disassemble(w io.Writer, fn *value.Function, verbose bool) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"OFFSET", "LINE", "OPCODE", "OPERANDS"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	ip := 0
	for ip < len(fn.Code) {
		inst, err := Fetch(fn.Code, ip)
		if err != nil {
			return err
		}
		line := "-"
		if entry, ok := fn.Debug.Lookup(inst.Offset); ok {
			line = fmt.Sprintf("%d:%d", entry.Line, entry.Column)
		}
		table.Append([]string{
			fmt.Sprintf("%04d", inst.Offset),
			line,
			inst.Op.String(),
			operandString(inst, fn),
		})
		ip = inst.Next
	}
	table.Render()

	if verbose && len(fn.Constants) > 0 {
		fmt.Fprintln(w, "constants:")
		for i, c := range fn.Constants {
			fmt.Fprintf(w, " [%d] %s\n", i, spew.Sdump(summarize(c)))
		}
	}
	return nil
}

// summarize strips a Value down to a plain Go value for spew so verbose
// dumps don't recurse through unexported refcount headers.
func summarize(v value.Value) interface{} {
	switch v.Tag {
	case value.TagArray:
		arr := v.AsArray().Elems
		out := make([]interface{}, len(arr))
		for i, e := range arr {
			out[i] = summarize(e)
		}
		return out
	case value.TagObject:
		obj := v.AsObject()
		out := make(map[string]interface{}, obj.Len())
		for _, k := range obj.Keys() {
			val, _ := obj.Get(k)
			out[k] = summarize(val)
		}
		return out
	default:
		return value.Stringify(v)
	}
}

func operandString(inst Instruction, fn *value.Function) string {
	switch inst.Op.Shape() {
	case ShapeNone:
		return ""
	case ShapeU8:
		return fmt.Sprintf("%d", inst.A8)
	case ShapeU16:
		switch inst.Op {
		case PUSH_CONSTANT, CLOSURE:
			if int(inst.A16) < len(fn.Constants) {
				return fmt.Sprintf("%d ; %s", inst.A16, value.Stringify(fn.Constants[inst.A16]))
			}
		case JUMP, JUMP_IF_FALSE, JUMP_IF_TRUE, LOOP:
			return fmt.Sprintf("%d ; -> %04d", int16(inst.A16), inst.Target())
		}
		return fmt.Sprintf("%d", inst.A16)
	case ShapeU16U8:
		return fmt.Sprintf("%d %d", inst.A16, inst.A8)
	case ShapeU16U8U8:
		return fmt.Sprintf("%d %d %d", inst.A16, inst.A8, inst.B8)
	}
	return ""
}
