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
	"github.com/probechain/slate/lang/class"
	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
)

func (vm *VM) curFrame() *frame { return vm.frames[len(vm.frames)-1] }

// frameCapacity returns the configured bound on nested CALLs
// (config.Settings.FrameCapacity), falling back to defaultFrameCapacity
// when unset.
func (vm *VM) frameCapacity() int {
	if vm.cfg.FrameCapacity > 0 {
		return vm.cfg.FrameCapacity
	}
	return defaultFrameCapacity
}

// closureOp implements CLOSURE <k16>: the constant at k must
// be an Int32 function index; each upvalue descriptor of that function is
// resolved against the *currently executing* frame/closure and retained.
func (vm *VM) closureOp(k uint16) *diag.Error {
	f := vm.curFrame()
	fn := f.closure.Fn
	if int(k) >= len(fn.Constants) {
		return vm.err(diag.InternalError, "constant index %d out of range", k)
	}
	idxVal := fn.Constants[k]
	if idxVal.Tag != value.TagInt32 {
		return vm.err(diag.InternalError, "CLOSURE constant is not a function index")
	}
	target := vm.functions[idxVal.AsInt32()]

	upvalues := make([]value.Value, len(target.Upvalues))
	for i, desc := range target.Upvalues {
		var captured value.Value
		if desc.IsLocal {
			captured = vm.stack.at(f.slots + int(desc.Index))
		} else {
			captured = f.closure.Upvalues[desc.Index]
		}
		value.Retain(captured)
		upvalues[i] = captured
	}
	closure := value.NewClosure(target, upvalues)
	vm.stack.push(value.ClosureValue(closure))
	return nil
}

// call implements CALL <argc16> dispatch over every callable tag
//. Closures/Functions push a new frame and return
// (pushedFrame=true) so the dispatch loop re-enters without recursing;
// every other callable tag runs to completion immediately and leaves its
// result on the stack.
func (vm *VM) call(argc int) (pushedFrame bool, rerr *diag.Error) {
	if vm.stack.depth() < argc+1 {
		return false, vm.err(diag.InternalError, "stack underflow in CALL")
	}
	calleeIdx := vm.stack.depth() - argc - 1
	callee := vm.stack.at(calleeIdx)

	switch callee.Tag {
	case value.TagBoundMethod:
		bm := callee.AsBoundMethod()
		args := make([]value.Value, argc+1)
		args[0] = bm.Receiver
		for i := 0; i < argc; i++ {
			args[i+1] = vm.stack.at(calleeIdx + 1 + i)
		}
		result, err := bm.Fn(vm, args)
		return false, vm.finishImmediateCall(calleeIdx, result, vm.wrapNativeErr(err))

	case value.TagNative:
		fn, _, _ := value.AsNative(callee)
		args := make([]value.Value, argc)
		for i := 0; i < argc; i++ {
			args[i] = vm.stack.at(calleeIdx + 1 + i)
		}
		result, err := fn(vm, args)
		return false, vm.finishImmediateCall(calleeIdx, result, vm.wrapNativeErr(err))

	case value.TagClosure:
		return vm.enterClosure(callee.AsClosure(), calleeIdx, argc)

	case value.TagFunction:
		oneShot := value.NewClosure(callee.AsFunction(), nil)
		return vm.enterClosure(oneShot, calleeIdx, argc)

	case value.TagArray:
		result, err := vm.indexCall(callee.AsArray().Elems, calleeIdx, argc)
		return false, vm.finishImmediateCall(calleeIdx, result, err)

	case value.TagString:
		result, err := vm.stringIndexCall(callee.AsString(), calleeIdx, argc)
		return false, vm.finishImmediateCall(calleeIdx, result, err)

	case value.TagClass:
		c := callee.AsClass()
		args := make([]value.Value, argc)
		for i := 0; i < argc; i++ {
			args[i] = vm.stack.at(calleeIdx + 1 + i)
		}
		if c.Factory == nil {
			return false, vm.finishImmediateCall(calleeIdx, value.Value{}, vm.err(diag.Type, "class %q is not callable", c.Name))
		}
		result, callErr := class.Factory(vm, c, args)
		var derr *diag.Error
		if callErr != nil {
			derr = vm.err(diag.Type, "%s", callErr.Error())
		}
		return false, vm.finishImmediateCall(calleeIdx, result, derr)

	default:
		return false, vm.finishImmediateCall(calleeIdx, value.Value{}, vm.err(diag.Type, "value is not callable"))
	}
}

// finishImmediateCall releases the callee and its arguments (truncating
// the stack back to calleeIdx). On success it pushes result; on error it
// releases result too (if any partial value was produced) and leaves
// nothing extra on the stack, satisfying the "never leaks stack values on
// the error path" rule of
func (vm *VM) finishImmediateCall(calleeIdx int, result value.Value, err *diag.Error) *diag.Error {
	vm.stack.truncate(calleeIdx)
	if err != nil {
		value.Release(result)
		return err
	}
	vm.stack.push(result)
	value.Release(result)
	return nil
}

func (vm *VM) wrapNativeErr(err error) *diag.Error {
	if err == nil {
		return nil
	}
	if de, ok := err.(*diag.Error); ok {
		return de
	}
	return vm.err(diag.InternalError, "%s", err.Error())
}

// enterClosure validates arity and pushes a new frame whose slot window
// starts at the first argument, so arguments become locals 0..n-1
//. The callee closure value itself stays on the
// stack below the frame's locals; RETURN truncates back to it.
func (vm *VM) enterClosure(c *value.Closure, calleeIdx, argc int) (bool, *diag.Error) {
	if argc != c.Fn.Arity {
		return false, vm.err(diag.Type, "expected %d arguments but got %d", c.Fn.Arity, argc)
	}
	if len(vm.frames) >= vm.frameCapacity() {
		return false, vm.err(diag.InternalError, "stack overflow")
	}
	value.Retain(value.ClosureValue(c))
	vm.frames = append(vm.frames, &frame{
		closure: c,
		slots: calleeIdx + 1,
		baseIdx: calleeIdx,
	})
	return true, nil
}

// indexCall implements the Array branch of CALL: a single Int32 argument
// is a bounds-checked element read.
func (vm *VM) indexCall(elems []value.Value, calleeIdx, argc int) (value.Value, *diag.Error) {
	if argc != 1 {
		return value.Null, vm.err(diag.Type, "expected 1 argument but got %d", argc)
	}
	idx := vm.stack.at(calleeIdx + 1)
	if idx.Tag != value.TagInt32 {
		return value.Null, vm.err(diag.Type, "array index must be an Int32")
	}
	i := int(idx.AsInt32())
	if i < 0 || i >= len(elems) {
		return value.Null, nil
	}
	v := elems[i]
	value.Retain(v)
	return v, nil
}

// stringIndexCall implements the String branch of CALL: returns a
// 1-character String, or Null if out of bounds.
func (vm *VM) stringIndexCall(s string, calleeIdx, argc int) (value.Value, *diag.Error) {
	if argc != 1 {
		return value.Null, vm.err(diag.Type, "expected 1 argument but got %d", argc)
	}
	idx := vm.stack.at(calleeIdx + 1)
	if idx.Tag != value.TagInt32 {
		return value.Null, vm.err(diag.Type, "string index must be an Int32")
	}
	i := int(idx.AsInt32())
	if i < 0 || i >= len(s) {
		return value.Null, nil
	}
	return value.String(string(s[i])), nil
}

// returnOp implements RETURN: restores the caller's
// instruction pointer, releases locals belonging to the returning frame
// (including the callee value itself), and places the return value on the
// caller's stack. Returning from the entry frame signals the dispatch loop
// to HALT with the return value as the program result.
func (vm *VM) returnOp(retval value.Value) (halted bool) {
	f := vm.curFrame()
	vm.frames = vm.frames[:len(vm.frames)-1]
	value.Release(value.ClosureValue(f.closure))

	vm.stack.truncate(f.baseIdx)
	vm.stack.push(retval)
	value.Release(retval)
	return len(vm.frames) == 0
}
