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
	"github.com/probechain/slate/lang/bytecode"
	"github.com/probechain/slate/lang/class"
	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
	"github.com/probechain/slate/log"
)

// run is the fetch-decode-execute loop: a single thread
// advances the current frame's instruction pointer, re-entering logically
// via a new frame on CALL and unwinding via RETURN/HALT.
func (vm *VM) run() (value.Value, *diag.Error) {
	for {
		f := vm.curFrame()
		inst, decodeErr := bytecode.Fetch(f.code(), f.ip)
		if decodeErr != nil {
			return value.Value{}, vm.err(diag.InternalError, "%s", decodeErr.Error())
		}
		f.ip = inst.Next

		halted, retval, rerr := vm.dispatch(f, inst)
		if rerr != nil {
			return value.Value{}, rerr
		}
		if halted {
			if vm.hasResult {
				return vm.resultReg, nil
			}
			return retval, nil
		}
	}
}

// dispatch executes one decoded instruction. halted is true once the
// program should stop (HALT, or RETURN from the entry frame).
func (vm *VM) dispatch(f *frame, inst bytecode.Instruction) (halted bool, retval value.Value, rerr *diag.Error) {
	switch inst.Op {
	case bytecode.PUSH_CONSTANT:
		c := f.closure.Fn.Constants
		if int(inst.A16) >= len(c) {
			return false, value.Value{}, vm.err(diag.InternalError, "constant index %d out of range", inst.A16)
		}
		v := c[inst.A16]
		vm.stack.push(v)

	case bytecode.PUSH_NULL:
		vm.stack.push(value.Null)
	case bytecode.PUSH_UNDEFINED:
		vm.stack.push(value.Undefined)
	case bytecode.PUSH_TRUE:
		vm.stack.push(value.Bool(true))
	case bytecode.PUSH_FALSE:
		vm.stack.push(value.Bool(false))

	case bytecode.POP:
		v, _ := vm.stack.pop()
		value.Release(v)

	case bytecode.DUP:
		top, _ := vm.stack.peek(0)
		vm.stack.push(top)

	case bytecode.SWAP:
		if vm.stack.depth() < 2 {
			return false, value.Value{}, vm.err(diag.InternalError, "stack underflow in SWAP")
		}
		n := vm.stack.depth()
		a, b := vm.stack.at(n-2), vm.stack.at(n-1)
		vm.stack.values[n-2], vm.stack.values[n-1] = b, a

	case bytecode.OVER:
		if vm.stack.depth() < 2 {
			return false, value.Value{}, vm.err(diag.InternalError, "stack underflow in OVER")
		}
		a, _ := vm.stack.peek(1)
		vm.stack.push(a)

	case bytecode.ROT:
		if vm.stack.depth() < 3 {
			return false, value.Value{}, vm.err(diag.InternalError, "stack underflow in ROT")
		}
		n := vm.stack.depth()
		a, b, c := vm.stack.at(n-3), vm.stack.at(n-2), vm.stack.at(n-1)
		vm.stack.values[n-3], vm.stack.values[n-2], vm.stack.values[n-1] = b, c, a

	case bytecode.NIP:
		if vm.stack.depth() < 2 {
			return false, value.Value{}, vm.err(diag.InternalError, "stack underflow in NIP")
		}
		b, _ := vm.stack.pop()
		a, _ := vm.stack.pop()
		value.Release(a)
		vm.stack.push(b)
		value.Release(b)

	case bytecode.POP_N:
		for i := 0; i < int(inst.A8); i++ {
			v, _ := vm.stack.pop()
			value.Release(v)
		}

	case bytecode.POP_N_PRESERVE_TOP:
		top, _ := vm.stack.pop()
		for i := 0; i < int(inst.A8); i++ {
			v, _ := vm.stack.pop()
			value.Release(v)
		}
		vm.stack.push(top)
		value.Release(top)

	case bytecode.GET_LOCAL:
		v := vm.stack.at(f.slots + int(inst.A8))
		vm.stack.push(v)

	case bytecode.SET_LOCAL:
		top, _ := vm.stack.peek(0)
		vm.stack.setAt(f.slots+int(inst.A8), top)

	case bytecode.DEFINE_GLOBAL:
		name := f.closure.Fn.Constants[inst.A16].AsString()
		v, _ := vm.stack.pop()
		immutable := inst.A8 != 0
		if err := vm.currentNamespace().define(vm.context, name, v, immutable); err != nil {
			value.Release(v)
			return false, value.Value{}, err
		}
		value.Release(v)

	case bytecode.SET_GLOBAL:
		name := f.closure.Fn.Constants[inst.A16].AsString()
		v, _ := vm.stack.pop()
		if err := vm.currentNamespace().set(name, v); err != nil {
			value.Release(v)
			return false, value.Value{}, err
		}
		value.Release(v)

	case bytecode.GET_GLOBAL:
		name := f.closure.Fn.Constants[inst.A16].AsString()
		v, err := vm.currentNamespace().get(name)
		if err != nil {
			return false, value.Value{}, err
		}
		vm.stack.push(v)
		value.Release(v)

	case bytecode.ADD:
		return false, value.Value{}, vm.binaryAdd()
	case bytecode.SUBTRACT:
		return false, value.Value{}, vm.binaryNumeric('-')
	case bytecode.MULTIPLY:
		return false, value.Value{}, vm.binaryNumeric('*')
	case bytecode.DIVIDE:
		return false, value.Value{}, vm.binaryDivMod(vm.divide)
	case bytecode.MOD:
		return false, value.Value{}, vm.binaryDivMod(vm.mod)
	case bytecode.POWER:
		a, b := vm.popPair()
		vm.stack.push(power(a, b))
		value.Release(a)
		value.Release(b)
	case bytecode.FLOOR_DIV:
		return false, value.Value{}, vm.binaryDivMod(vm.floorDiv)

	case bytecode.NEGATE:
		a, _ := vm.stack.pop()
		vm.stack.push(negate(a))
		value.Release(a)
	case bytecode.INCREMENT:
		a, _ := vm.stack.pop()
		vm.stack.push(incDec(a, 1))
		value.Release(a)
	case bytecode.DECREMENT:
		a, _ := vm.stack.pop()
		vm.stack.push(incDec(a, -1))
		value.Release(a)

	case bytecode.BITWISE_AND:
		a, b := vm.popPair()
		vm.stack.push(value.Int32(toInt32Bits(a) & toInt32Bits(b)))
		value.Release(a)
		value.Release(b)
	case bytecode.BITWISE_OR:
		a, b := vm.popPair()
		vm.stack.push(value.Int32(toInt32Bits(a) | toInt32Bits(b)))
		value.Release(a)
		value.Release(b)
	case bytecode.BITWISE_XOR:
		a, b := vm.popPair()
		vm.stack.push(value.Int32(toInt32Bits(a) ^ toInt32Bits(b)))
		value.Release(a)
		value.Release(b)
	case bytecode.BITWISE_NOT:
		a, _ := vm.stack.pop()
		vm.stack.push(value.Int32(^toInt32Bits(a)))
		value.Release(a)

	case bytecode.LEFT_SHIFT:
		return false, value.Value{}, vm.shiftOp(func(a int32, n uint) int32 { return a << n })
	case bytecode.RIGHT_SHIFT:
		return false, value.Value{}, vm.shiftOp(func(a int32, n uint) int32 { return a >> n })
	case bytecode.LOGICAL_RIGHT_SHIFT:
		return false, value.Value{}, vm.shiftOp(func(a int32, n uint) int32 { return int32(uint32(a) >> n) })

	case bytecode.EQUAL, bytecode.NOT_EQUAL:
		a, b := vm.popPair()
		eq := vm.valuesEqual(a, b)
		if inst.Op == bytecode.NOT_EQUAL {
			eq = !eq
		}
		vm.stack.push(value.Bool(eq))
		value.Release(a)
		value.Release(b)

	case bytecode.LESS, bytecode.LESS_EQUAL, bytecode.GREATER, bytecode.GREATER_EQUAL:
		a, b := vm.popPair()
		cmp, cerr := vm.compare(a, b)
		if cerr != nil {
			value.Release(a)
			value.Release(b)
			return false, value.Value{}, cerr
		}
		var result bool
		switch inst.Op {
		case bytecode.LESS:
			result = cmp < 0
		case bytecode.LESS_EQUAL:
			result = cmp <= 0
		case bytecode.GREATER:
			result = cmp > 0
		case bytecode.GREATER_EQUAL:
			result = cmp >= 0
		}
		vm.stack.push(value.Bool(result))
		value.Release(a)
		value.Release(b)

	case bytecode.NOT:
		a, _ := vm.stack.pop()
		vm.stack.push(value.Bool(value.IsFalsy(a)))
		value.Release(a)

	case bytecode.AND:
		a, b := vm.popPair()
		if value.IsFalsy(a) {
			vm.stack.push(a)
			value.Release(b)
		} else {
			vm.stack.push(b)
			value.Release(a)
		}

	case bytecode.OR:
		a, b := vm.popPair()
		if value.IsTruthy(a) {
			vm.stack.push(a)
			value.Release(b)
		} else {
			vm.stack.push(b)
			value.Release(a)
		}

	case bytecode.NULL_COALESCE:
		a, b := vm.popPair()
		if a.Tag == value.TagNull || a.Tag == value.TagUndefined {
			vm.stack.push(b)
			value.Release(a)
		} else {
			vm.stack.push(a)
			value.Release(b)
		}

	case bytecode.BUILD_ARRAY:
		n := int(inst.A16)
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			v, _ := vm.stack.pop()
			if v.Tag == value.TagUndefined {
				for _, e := range elems[i+1:] {
					value.Release(e)
				}
				return false, value.Value{}, vm.err(diag.Type, "array element must not be undefined")
			}
			elems[i] = v
		}
		vm.stack.push(value.Array(elems))

	case bytecode.BUILD_OBJECT:
		n := int(inst.A16)
		pairs := make([]struct {
			k string
			v value.Value
		}, n)
		for i := n - 1; i >= 0; i-- {
			v, _ := vm.stack.pop()
			k, _ := vm.stack.pop()
			pairs[i] = struct {
				k string
				v value.Value
			}{k: k.AsString(), v: v}
		}
		ov := value.NewObjectValue()
		for i := 0; i < n; i++ {
			if pairs[i].v.Tag == value.TagUndefined {
				for j := i; j < n; j++ {
					value.Release(pairs[j].v)
				}
				return false, value.Value{}, vm.err(diag.Type, "object value must not be undefined")
			}
			ov.Set(pairs[i].k, pairs[i].v)
		}
		vm.stack.push(value.Object(ov))

	case bytecode.BUILD_RANGE:
		exclusive := inst.A16 != 0
		stepV, _ := vm.stack.pop()
		endV, _ := vm.stack.pop()
		startV, _ := vm.stack.pop()
		r, rangeErr := vm.buildRange(startV, endV, stepV, exclusive)
		value.Release(startV)
		value.Release(endV)
		value.Release(stepV)
		if rangeErr != nil {
			return false, value.Value{}, rangeErr
		}
		vm.stack.push(r)

	case bytecode.GET_INDEX:
		idx, _ := vm.stack.pop()
		recv, _ := vm.stack.pop()
		v, gerr := vm.getIndex(recv, idx)
		value.Release(idx)
		value.Release(recv)
		if gerr != nil {
			return false, value.Value{}, gerr
		}
		vm.stack.push(v)
		value.Release(v)

	case bytecode.SET_INDEX:
		v, _ := vm.stack.pop()
		idx, _ := vm.stack.pop()
		recv, _ := vm.stack.pop()
		serr := vm.setIndex(recv, idx, v)
		value.Release(idx)
		value.Release(recv)
		if serr != nil {
			value.Release(v)
			return false, value.Value{}, serr
		}
		vm.stack.push(v)
		value.Release(v)

	case bytecode.GET_PROPERTY:
		name, _ := vm.stack.pop()
		obj, _ := vm.stack.pop()
		if name.Tag != value.TagString {
			value.Release(name)
			value.Release(obj)
			return false, value.Value{}, vm.err(diag.Type, "property name must be a string")
		}
		v := class.Get(obj, name.AsString())
		value.Retain(v)
		vm.stack.push(v)
		value.Release(v)
		value.Release(name)
		value.Release(obj)

	case bytecode.SET_PROPERTY:
		v, _ := vm.stack.pop()
		name, _ := vm.stack.pop()
		obj, _ := vm.stack.pop()
		if name.Tag != value.TagString {
			value.Release(v)
			value.Release(name)
			value.Release(obj)
			return false, value.Value{}, vm.err(diag.Type, "property name must be a string")
		}
		if serr := class.Set(obj, name.AsString(), v); serr != nil {
			value.Release(v)
			value.Release(name)
			value.Release(obj)
			return false, value.Value{}, vm.err(diag.Type, "%s", serr.Error())
		}
		vm.stack.push(v)
		value.Release(v)
		value.Release(name)
		value.Release(obj)

	case bytecode.CALL:
		log.Debug("call", "argc", inst.A16, "depth", len(vm.frames))
		pushedFrame, cerr := vm.call(int(inst.A16))
		if cerr != nil {
			return false, value.Value{}, cerr
		}
		if pushedFrame {
			return false, value.Value{}, nil
		}

	case bytecode.CLOSURE:
		if cerr := vm.closureOp(inst.A16); cerr != nil {
			return false, value.Value{}, cerr
		}

	case bytecode.GET_UPVALUE:
		v := f.closure.Upvalues[inst.A8]
		vm.stack.push(v)

	case bytecode.SET_UPVALUE:
		top, _ := vm.stack.peek(0)
		value.Retain(top)
		value.Release(f.closure.Upvalues[inst.A8])
		f.closure.Upvalues[inst.A8] = top

	case bytecode.RETURN:
		v, _ := vm.stack.pop()
		log.Debug("return", "depth", len(vm.frames))
		if vm.returnOp(v) {
			return true, v, nil
		}

	case bytecode.JUMP:
		f.ip = inst.Target()
	case bytecode.JUMP_IF_FALSE:
		cond, _ := vm.stack.pop()
		if value.IsFalsy(cond) {
			f.ip = inst.Target()
		}
		value.Release(cond)
	case bytecode.JUMP_IF_TRUE:
		cond, _ := vm.stack.pop()
		if value.IsTruthy(cond) {
			f.ip = inst.Target()
		}
		value.Release(cond)
	case bytecode.LOOP:
		f.ip = inst.Target()

	case bytecode.SET_DEBUG_LOCATION:
		src := f.closure.Fn.Constants[inst.A16].AsString()
		vm.currentDebugSource = src
		vm.currentDebug = &value.DebugLocation{Line: int(inst.A8), Column: int(inst.B8), Source: src}

	case bytecode.CLEAR_DEBUG_LOCATION:
		vm.currentDebug = nil
		vm.currentDebugSource = ""

	case bytecode.SET_RESULT:
		v, _ := vm.stack.pop()
		value.Release(vm.resultReg)
		vm.resultReg = v
		vm.hasResult = true

	case bytecode.HALT:
		return true, value.Null, nil

	default:
		return false, value.Value{}, vm.err(diag.InternalError, "unimplemented opcode %s", inst.Op)
	}
	return false, value.Value{}, nil
}

// popPair pops (a, b) where a is the deeper operand and b the shallower,
// matching the opcode table's "a,b -> r" convention.
func (vm *VM) popPair() (value.Value, value.Value) {
	b, _ := vm.stack.pop()
	a, _ := vm.stack.pop()
	return a, b
}

func (vm *VM) binaryAdd() *diag.Error {
	a, b := vm.popPair()
	if a.Tag == value.TagString || b.Tag == value.TagString {
		s := value.Stringify(a) + value.Stringify(b)
		vm.stack.push(value.String(s))
		value.Release(a)
		value.Release(b)
		return nil
	}
	if a.Tag == value.TagArray && b.Tag == value.TagArray {
		ae, be := a.AsArray().Elems, b.AsArray().Elems
		out := make([]value.Value, 0, len(ae)+len(be))
		for _, e := range ae {
			value.Retain(e)
			out = append(out, e)
		}
		for _, e := range be {
			value.Retain(e)
			out = append(out, e)
		}
		vm.stack.push(value.Array(out))
		value.Release(a)
		value.Release(b)
		return nil
	}
	if !value.IsNumber(a) || !value.IsNumber(b) {
		err := vm.withValues(diag.Type, a, b, "operands to + must both be numbers, strings, or arrays")
		value.Release(a)
		value.Release(b)
		return err
	}
	vm.stack.push(numericBinOp(a, b, '+'))
	value.Release(a)
	value.Release(b)
	return nil
}

func (vm *VM) binaryNumeric(op byte) *diag.Error {
	a, b := vm.popPair()
	if !value.IsNumber(a) || !value.IsNumber(b) {
		err := vm.withValues(diag.Type, a, b, "operands must be numbers")
		value.Release(a)
		value.Release(b)
		return err
	}
	vm.stack.push(numericBinOp(a, b, op))
	value.Release(a)
	value.Release(b)
	return nil
}

func (vm *VM) binaryDivMod(f func(a, b value.Value) (value.Value, *diag.Error)) *diag.Error {
	a, b := vm.popPair()
	if !value.IsNumber(a) || !value.IsNumber(b) {
		err := vm.withValues(diag.Type, a, b, "operands must be numbers")
		value.Release(a)
		value.Release(b)
		return err
	}
	r, err := f(a, b)
	value.Release(a)
	value.Release(b)
	if err != nil {
		return err
	}
	vm.stack.push(r)
	return nil
}

func (vm *VM) shiftOp(f func(a int32, n uint) int32) *diag.Error {
	a, b := vm.popPair()
	if !value.IsNumber(a) || !value.IsNumber(b) {
		err := vm.withValues(diag.Type, a, b, "operands must be numbers")
		value.Release(a)
		value.Release(b)
		return err
	}
	shiftAmount := toInt32Bits(b)
	if shiftAmount < 0 {
		err := vm.withValues(diag.Range, a, b, "shift amount must not be negative")
		value.Release(a)
		value.Release(b)
		return err
	}
	n := uint(shiftAmount) % 32
	vm.stack.push(value.Int32(f(toInt32Bits(a), n)))
	value.Release(a)
	value.Release(b)
	return nil
}

// valuesEqual implements EQUAL/NOT_EQUAL's dispatch to `.equals` on a's
// class chain before falling back to structural equality.
func (vm *VM) valuesEqual(a, b value.Value) bool {
	if method := class.Get(a, "equals"); method.Tag == value.TagBoundMethod {
		result, err := method.AsBoundMethod().Fn(vm, []value.Value{a, b})
		if err == nil {
			return value.IsTruthy(result)
		}
	}
	return value.StructuralEqual(a, b)
}

// compare implements LESS/LESS_EQUAL/GREATER/GREATER_EQUAL: numeric
// ordering with cross-type promotion, bytewise String ordering, TypeError
// otherwise.
func (vm *VM) compare(a, b value.Value) (int, *diag.Error) {
	if value.IsNumber(a) && value.IsNumber(b) {
		af, bf := value.ToFloat64(a), value.ToFloat64(b)
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.Tag == value.TagString && b.Tag == value.TagString {
		as, bs := a.AsString(), b.AsString()
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, vm.withValues(diag.Type, a, b, "operands are not comparable")
}
