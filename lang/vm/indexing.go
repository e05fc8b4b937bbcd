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
	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
)

// getIndex implements GET_INDEX over Array, Buffer, and String
//.
func (vm *VM) getIndex(recv, idx value.Value) (value.Value, *diag.Error) {
	if idx.Tag != value.TagInt32 {
		return value.Value{}, vm.withValues(diag.Type, recv, idx, "index must be an Int32")
	}
	i := int(idx.AsInt32())
	switch recv.Tag {
	case value.TagArray:
		elems := recv.AsArray().Elems
		if i < 0 || i >= len(elems) {
			return value.Value{}, vm.withValues(diag.Range, recv, idx, "array index %d out of range", i)
		}
		value.Retain(elems[i])
		return elems[i], nil
	case value.TagBuffer:
		b := recv.AsBuffer().Bytes
		if i < 0 || i >= len(b) {
			return value.Value{}, vm.withValues(diag.Range, recv, idx, "buffer index %d out of range", i)
		}
		return value.Int32(int32(b[i])), nil
	case value.TagString:
		s := recv.AsString()
		if i < 0 || i >= len(s) {
			return value.Null, nil
		}
		return value.String(string(s[i])), nil
	}
	return value.Value{}, vm.withValues(diag.Type, recv, idx, "value is not indexable")
}

// setIndex implements SET_INDEX over Array and Buffer.
func (vm *VM) setIndex(recv, idx, v value.Value) *diag.Error {
	if idx.Tag != value.TagInt32 {
		return vm.withValues(diag.Type, recv, idx, "index must be an Int32")
	}
	i := int(idx.AsInt32())
	switch recv.Tag {
	case value.TagArray:
		elems := recv.AsArray().Elems
		if i < 0 || i >= len(elems) {
			return vm.withValues(diag.Range, recv, idx, "array index %d out of range", i)
		}
		if v.Tag == value.TagUndefined {
			return vm.err(diag.Type, "cannot store undefined in an array")
		}
		value.Retain(v)
		value.Release(elems[i])
		elems[i] = v
		return nil
	case value.TagBuffer:
		b := recv.AsBuffer().Bytes
		if i < 0 || i >= len(b) {
			return vm.withValues(diag.Range, recv, idx, "buffer index %d out of range", i)
		}
		if v.Tag != value.TagInt32 {
			return vm.err(diag.Type, "buffer element must be an Int32 byte value")
		}
		b[i] = byte(v.AsInt32())
		return nil
	}
	return vm.withValues(diag.Type, recv, idx, "value does not support index assignment")
}

// buildRange implements BUILD_RANGE: a compiler-default
// step of 1 with start > end auto-reverses to -1; any explicit step whose
// direction disagrees with start/end is a RangeError.
func (vm *VM) buildRange(start, end, step value.Value, exclusive bool) (value.Value, *diag.Error) {
	if !value.IsNumber(start) || !value.IsNumber(end) || !value.IsNumber(step) {
		return value.Value{}, vm.err(diag.Type, "range bounds and step must be numeric")
	}
	if isZero(step) {
		return value.Value{}, vm.err(diag.Range, "range step must not be zero")
	}
	startF, endF, stepF := value.ToFloat64(start), value.ToFloat64(end), value.ToFloat64(step)
	isDefaultStep := step.Tag == value.TagInt32 && step.AsInt32() == 1

	if isDefaultStep && startF > endF {
		step = value.Int32(-1)
	} else if (stepF > 0 && startF > endF) || (stepF < 0 && startF < endF) {
		return value.Value{}, vm.err(diag.Range, "range step direction does not match start/end")
	}
	return value.Range(start, end, step, exclusive), nil
}
