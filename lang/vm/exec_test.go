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
	"math"
	"testing"

	"github.com/probechain/slate/lang/bytecode"
	"github.com/probechain/slate/lang/class"
	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
)

func NewBuilder(name string, arity int) *bytecode.Builder { return bytecode.NewBuilder(name, arity) }

// S1: integer overflow promotes Int32 + Int32 to BigInt, end to end.
func TestExecuteOverflowPromotesToBigInt(t *testing.T) {
	b := NewBuilder("main", 0)
	a := b.Constant(value.Int32(math.MaxInt32))
	c := b.Constant(value.Int32(1))
	b.Emit16(bytecode.PUSH_CONSTANT, a)
	b.Emit16(bytecode.PUSH_CONSTANT, c)
	b.Emit0(bytecode.ADD)
	b.Emit0(bytecode.SET_RESULT)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if m.ResultRegister().Tag != value.TagBigInt {
		t.Fatalf("overflowing ADD must promote to BigInt, got %v", m.ResultRegister().Tag)
	}
}

// S2: division by zero aborts a Script-context program with Outcome.Exit.
func TestExecuteDivisionByZeroInScriptContext(t *testing.T) {
	b := NewBuilder("main", 0)
	one := b.Constant(value.Int32(1))
	zero := b.Constant(value.Int32(0))
	b.Emit16(bytecode.PUSH_CONSTANT, one)
	b.Emit16(bytecode.PUSH_CONSTANT, zero)
	b.Emit0(bytecode.DIVIDE)
	b.Emit0(bytecode.SET_RESULT)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	m.SetContext(diag.Script)
	res := m.Execute(fn)
	if res.Err == nil {
		t.Fatal("expected a division-by-zero error")
	}
	if res.Err.Kind != diag.Arithmetic {
		t.Fatalf("Kind = %v, want Arithmetic", res.Err.Kind)
	}
	if !res.Outcome.Exit || res.Outcome.ExitCode != 1 {
		t.Fatalf("Script context must request exit(1), got %+v", res.Outcome)
	}
}

// Division by zero in Test context must not print or request exit, only
// report the error to the caller (P10).
func TestExecuteDivisionByZeroInTestContext(t *testing.T) {
	b := NewBuilder("main", 0)
	one := b.Constant(value.Int32(1))
	zero := b.Constant(value.Int32(0))
	b.Emit16(bytecode.PUSH_CONSTANT, one)
	b.Emit16(bytecode.PUSH_CONSTANT, zero)
	b.Emit0(bytecode.DIVIDE)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New() // defaults to Test context
	res := m.Execute(fn)
	if res.Err == nil {
		t.Fatal("expected a division-by-zero error")
	}
	if res.Outcome.Exit || res.Outcome.Printed {
		t.Fatalf("Test context must neither exit nor print, got %+v", res.Outcome)
	}
}

// S3/P9: a closure captures an enclosing local by value; SET_UPVALUE writes
// through without popping, and the written value flows out via RETURN.
func TestExecuteClosureCaptureAndUpvalueWriteThrough(t *testing.T) {
	inner := NewBuilder("increment", 0)
	inner.Upvalue(true, 0)
	inner.Emit8(bytecode.GET_UPVALUE, 0)
	inner.Emit0(bytecode.INCREMENT)
	inner.Emit8(bytecode.SET_UPVALUE, 0)
	inner.Emit0(bytecode.RETURN)
	innerFn := inner.Finish()

	outer := NewBuilder("main", 0)
	m := New()
	innerIdx := m.AddFunction(innerFn)

	initial := outer.Constant(value.Int32(10))
	fnIdx := outer.Constant(value.Int32(int32(innerIdx)))
	outer.Emit16(bytecode.PUSH_CONSTANT, initial) // local slot 0
	outer.Emit16(bytecode.CLOSURE, fnIdx)
	outer.Emit16(bytecode.CALL, 0)
	outer.Emit0(bytecode.SET_RESULT)
	outer.Emit0(bytecode.POP) // drop the local
	outer.Emit0(bytecode.PUSH_NULL)
	outer.Emit0(bytecode.RETURN)
	mainFn := outer.Finish()

	res := m.Execute(mainFn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	got := m.ResultRegister()
	if got.Tag != value.TagInt32 || got.AsInt32() != 11 {
		t.Fatalf("closure result = %v, want Int32(11)", got)
	}
}

// Calling a Closure with the wrong argument count is a TypeError, not a
// panic, and leaves the stack clean.
func TestExecuteCallArityMismatchIsTypeError(t *testing.T) {
	inner := NewBuilder("needsOne", 1)
	inner.Emit8(bytecode.GET_LOCAL, 0)
	inner.Emit0(bytecode.RETURN)
	innerFn := inner.Finish()

	outer := NewBuilder("main", 0)
	m := New()
	innerIdx := m.AddFunction(innerFn)
	fnIdx := outer.Constant(value.Int32(int32(innerIdx)))
	outer.Emit16(bytecode.CLOSURE, fnIdx)
	outer.Emit16(bytecode.CALL, 0) // calling with 0 args, needs 1
	outer.Emit0(bytecode.RETURN)
	mainFn := outer.Finish()

	res := m.Execute(mainFn)
	if res.Err == nil || res.Err.Kind != diag.Type {
		t.Fatalf("expected a Type error for arity mismatch, got %+v", res)
	}
}

// CALL over a Native value runs the built-in to completion and pushes its
// result.
func TestExecuteCallOverNative(t *testing.T) {
	b := NewBuilder("main", 0)
	m := New()
	m.DefineBuiltin("double", value.Native("double", func(_ interface{}, args []value.Value) (value.Value, error) {
		return value.Int32(args[0].AsInt32() * 2), nil
	}), true)

	nameIdx := b.Constant(value.String("double"))
	argIdx := b.Constant(value.Int32(21))
	b.Emit16(bytecode.GET_GLOBAL, nameIdx)
	b.Emit16(bytecode.PUSH_CONSTANT, argIdx)
	b.Emit16(bytecode.CALL, 1)
	b.Emit0(bytecode.SET_RESULT)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if got := m.ResultRegister(); got.AsInt32() != 42 {
		t.Fatalf("native call result = %v, want 42", got)
	}
}

// S6: BUILD_RANGE auto-reverses the default step when start > end.
func TestExecuteBuildRangeAutoReverse(t *testing.T) {
	b := NewBuilder("main", 0)
	start := b.Constant(value.Int32(5))
	end := b.Constant(value.Int32(1))
	step := b.Constant(value.Int32(1))
	b.Emit16(bytecode.PUSH_CONSTANT, start)
	b.Emit16(bytecode.PUSH_CONSTANT, end)
	b.Emit16(bytecode.PUSH_CONSTANT, step)
	b.Emit16(bytecode.BUILD_RANGE, 0) // 0 = inclusive
	b.Emit0(bytecode.SET_RESULT)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	r := m.ResultRegister().AsRange()
	if r.Step.AsInt32() != -1 {
		t.Fatalf("range with start > end and default step must auto-reverse, got step %v", r.Step)
	}
}

// An explicit step whose direction disagrees with start/end is a RangeError.
func TestExecuteBuildRangeExplicitStepWrongDirectionErrors(t *testing.T) {
	b := NewBuilder("main", 0)
	start := b.Constant(value.Int32(1))
	end := b.Constant(value.Int32(5))
	step := b.Constant(value.Int32(-1))
	b.Emit16(bytecode.PUSH_CONSTANT, start)
	b.Emit16(bytecode.PUSH_CONSTANT, end)
	b.Emit16(bytecode.PUSH_CONSTANT, step)
	b.Emit16(bytecode.BUILD_RANGE, 0)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err == nil || res.Err.Kind != diag.Range {
		t.Fatalf("expected a Range error, got %+v", res)
	}
}

// S5: OR returns the right operand when the left is falsy.
func TestExecuteOrShortCircuitsOnFalsyLeft(t *testing.T) {
	b := NewBuilder("main", 0)
	b.Emit0(bytecode.PUSH_NULL)
	right := b.Constant(value.String("fallback"))
	b.Emit16(bytecode.PUSH_CONSTANT, right)
	b.Emit0(bytecode.OR)
	b.Emit0(bytecode.SET_RESULT)
	b.Emit0(bytecode.PUSH_NULL)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if got := m.ResultRegister(); got.Tag != value.TagString || got.AsString() != "fallback" {
		t.Fatalf("OR over a falsy left operand = %v, want \"fallback\"", got)
	}
}

func TestExecuteNullCoalesceSkipsNonNullLeft(t *testing.T) {
	b := NewBuilder("main", 0)
	left := b.Constant(value.Int32(7))
	right := b.Constant(value.Int32(99))
	b.Emit16(bytecode.PUSH_CONSTANT, left)
	b.Emit16(bytecode.PUSH_CONSTANT, right)
	b.Emit0(bytecode.NULL_COALESCE)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if res.Value.AsInt32() != 7 {
		t.Fatalf("?? over a non-null left operand = %v, want 7", res.Value)
	}
}

// JUMP_IF_FALSE/JUMP drive a conditional, exercising absolute-target math.
func TestExecuteConditionalJump(t *testing.T) {
	b := NewBuilder("main", 0)
	b.Emit0(bytecode.PUSH_FALSE)
	b.EmitJump(bytecode.JUMP_IF_FALSE, "else")
	trueConst := b.Constant(value.Int32(1))
	b.Emit16(bytecode.PUSH_CONSTANT, trueConst)
	b.EmitJump(bytecode.JUMP, "end")
	b.Label("else")
	falseConst := b.Constant(value.Int32(0))
	b.Emit16(bytecode.PUSH_CONSTANT, falseConst)
	b.Label("end")
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if res.Value.AsInt32() != 0 {
		t.Fatalf("conditional jump took the wrong branch, got %v", res.Value)
	}
}

// P6/S4: GET_PROPERTY dispatches through the class chain and never errors
// on a miss; SET_PROPERTY stores directly on the instance.
func TestExecutePropertyGetSetThroughClassChain(t *testing.T) {
	c := value.NewClass("Point")
	c.InstanceProps["describe"] = value.Native("describe", func(_ interface{}, args []value.Value) (value.Value, error) {
		return value.String("a point"), nil
	})
	ov := value.NewObjectValue()
	obj := value.Object(ov).WithClass(c)

	b := NewBuilder("main", 0)
	objIdx := b.Constant(obj)
	nameIdx := b.Constant(value.String("describe"))
	missIdx := b.Constant(value.String("nope"))
	xIdx := b.Constant(value.String("x"))
	xVal := b.Constant(value.Int32(3))

	b.Emit16(bytecode.PUSH_CONSTANT, objIdx)
	b.Emit16(bytecode.PUSH_CONSTANT, xIdx)
	b.Emit16(bytecode.PUSH_CONSTANT, xVal)
	b.Emit0(bytecode.SET_PROPERTY)
	b.Emit0(bytecode.POP)

	b.Emit16(bytecode.PUSH_CONSTANT, objIdx)
	b.Emit16(bytecode.PUSH_CONSTANT, missIdx)
	b.Emit0(bytecode.GET_PROPERTY)
	b.Emit0(bytecode.POP)

	b.Emit16(bytecode.PUSH_CONSTANT, objIdx)
	b.Emit16(bytecode.PUSH_CONSTANT, nameIdx)
	b.Emit0(bytecode.GET_PROPERTY)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if res.Value.Tag != value.TagBoundMethod {
		t.Fatalf("GET_PROPERTY on a Native method must yield a BoundMethod, got %v", res.Value.Tag)
	}
	if got := class.Get(obj, "x"); got.AsInt32() != 3 {
		t.Fatalf("SET_PROPERTY did not store the instance property, got %v", got)
	}
}

// DEFINE_GLOBAL's redeclaration policy differs between Script (error) and
// Interactive (silently replaces) contexts.
func TestExecuteGlobalRedeclarationPolicy(t *testing.T) {
	redeclare := func(ctx diag.Context) *diag.Error {
		b := NewBuilder("main", 0)
		name := b.Constant(value.String("x"))
		v1 := b.Constant(value.Int32(1))
		v2 := b.Constant(value.Int32(2))
		b.Emit16(bytecode.PUSH_CONSTANT, v1)
		b.Emit16_8(bytecode.DEFINE_GLOBAL, name, 0)
		b.Emit16(bytecode.PUSH_CONSTANT, v2)
		b.Emit16_8(bytecode.DEFINE_GLOBAL, name, 0)
		b.Emit0(bytecode.RETURN)
		fn := b.Finish()

		m := New()
		m.SetContext(ctx)
		res := m.Execute(fn)
		return res.Err
	}

	if err := redeclare(diag.Script); err == nil || err.Kind != diag.Reference {
		t.Fatalf("Script context must reject global redeclaration, got %v", err)
	}
	if err := redeclare(diag.Interactive); err != nil {
		t.Fatalf("Interactive context must allow global redeclaration, got %v", err)
	}
}

func TestExecuteGetGlobalUndefinedIsReferenceError(t *testing.T) {
	b := NewBuilder("main", 0)
	name := b.Constant(value.String("missing"))
	b.Emit16(bytecode.GET_GLOBAL, name)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err == nil || res.Err.Kind != diag.Reference {
		t.Fatalf("expected a Reference error for an undefined global, got %+v", res)
	}
}

// SET_LOCAL writes through without popping (P8); the stack still has one
// value afterward, ready for POP/use by the next instruction.
func TestExecuteSetLocalDoesNotPop(t *testing.T) {
	b := NewBuilder("main", 0)
	initial := b.Constant(value.Int32(1))
	updated := b.Constant(value.Int32(2))
	b.Emit16(bytecode.PUSH_CONSTANT, initial) // local slot 0
	b.Emit16(bytecode.PUSH_CONSTANT, updated)
	b.Emit8(bytecode.SET_LOCAL, 0)
	b.Emit0(bytecode.POP) // pop the value SET_LOCAL left on top
	b.Emit8(bytecode.GET_LOCAL, 0)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil {
		t.Fatalf("Execute: %v", res.Err)
	}
	if res.Value.AsInt32() != 2 {
		t.Fatalf("SET_LOCAL must write through to the local slot, got %v", res.Value)
	}
}

func TestExecuteBuildArrayRejectsUndefinedElement(t *testing.T) {
	b := NewBuilder("main", 0)
	b.Emit0(bytecode.PUSH_UNDEFINED)
	b.Emit16(bytecode.BUILD_ARRAY, 1)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err == nil || res.Err.Kind != diag.Type {
		t.Fatalf("expected a Type error building an array with an undefined element, got %+v", res)
	}
}

func TestExecuteGetIndexOutOfRangeIsRangeError(t *testing.T) {
	b := NewBuilder("main", 0)
	one := b.Constant(value.Int32(1))
	b.Emit16(bytecode.PUSH_CONSTANT, one)
	b.Emit16(bytecode.BUILD_ARRAY, 1)
	idx := b.Constant(value.Int32(5))
	b.Emit16(bytecode.PUSH_CONSTANT, idx)
	b.Emit0(bytecode.GET_INDEX)
	b.Emit0(bytecode.RETURN)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err == nil || res.Err.Kind != diag.Range {
		t.Fatalf("expected a Range error for an out-of-bounds index, got %+v", res)
	}
}

func TestExecuteHaltProducesNull(t *testing.T) {
	b := NewBuilder("main", 0)
	b.Emit0(bytecode.HALT)
	fn := b.Finish()

	m := New()
	res := m.Execute(fn)
	if res.Err != nil || res.Value.Tag != value.TagNull {
		t.Fatalf("HALT must produce Null with no error, got %+v", res)
	}
}
