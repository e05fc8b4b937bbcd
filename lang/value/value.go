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

// Package value implements the tagged value representation shared by every
// Slate execution context: the dynamic type tags, the reference-counted
// heap payloads (String, Array, Object, Class, Closure, Function, Buffer,
// Range, BoundMethod), and the primitive operations the interpreter core
// needs on them (retain/release, equality, hashing, stringification).
package value

import (
	"fmt"
	"math/big"
)

// Tag identifies which variant a Value holds.
type Tag uint8

const (
	TagNull Tag = iota
	TagUndefined
	TagBoolean
	TagInt32
	TagBigInt
	TagFloat32
	TagFloat64
	TagString
	TagArray
	TagObject
	TagClass
	TagClosure
	TagFunction
	TagNative
	TagBoundMethod
	TagRange
	TagBuffer
)

var tagNames = [...]string{
	TagNull: "Null",
	TagUndefined: "Undefined",
	TagBoolean: "Boolean",
	TagInt32: "Int32",
	TagBigInt: "BigInt",
	TagFloat32: "Float32",
	TagFloat64: "Float64",
	TagString: "String",
	TagArray: "Array",
	TagObject: "Object",
	TagClass: "Class",
	TagClosure: "Closure",
	TagFunction: "Function",
	TagNative: "Native",
	TagBoundMethod: "BoundMethod",
	TagRange: "Range",
	TagBuffer: "Buffer",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "Unknown"
}

// DebugLocation attaches source position information to a Value, per
//: "an optional debug-location record (source line, column,
// and a borrowed pointer to the source line text)".
type DebugLocation struct {
	File string
	Line int
	Column int
	Source string // the source line text, borrowed from the owning chunk's debug table
}

// NativeFn is a built-in function: (vm, args) -> Value. The vm parameter is
// an opaque interface{} because lang/value cannot import lang/vm (which
// depends on lang/value for its value representation); callers type-assert
// to their own VM-facing interface. See lang/class for the calling
// convention used by CALL dispatch.
type NativeFn func(vm interface{}, args []Value) (Value, error)

// heapObject is implemented by every reference-counted payload.
type heapObject interface {
	refs() *int32
	// release is invoked once the reference count reaches zero; it must
	// release every owned child value.
	release()
}

// header embeds the strong reference count shared by all heap payloads.
type header struct {
	count int32
}

func (h *header) refs() *int32 { return &h.count }

// Value is a tagged union over every dynamic-typing variant Slate supports.
// Non-heap tags (Null, Undefined, Boolean, Int32, Float32, Float64) carry
// their payload inline; heap tags carry a pointer in obj and contribute a
// strong reference count.
type Value struct {
	Tag Tag
	b bool
	i32 int32
	f32 float32
	f64 float64
	obj heapObject
	class *Class // optional weak back-reference for method dispatch
	Debug *DebugLocation // optional debug-location record
}

// ---- Constructors ----------------------------------------------------------

var Null = Value{Tag: TagNull}
var Undefined = Value{Tag: TagUndefined}

func Bool(b bool) Value { return Value{Tag: TagBoolean, b: b} }
func Int32(i int32) Value { return Value{Tag: TagInt32, i32: i} }
func Float32(f float32) Value { return Value{Tag: TagFloat32, f32: f} }
func Float64(f float64) Value { return Value{Tag: TagFloat64, f64: f} }

// BigIntValue is the heap payload for arbitrary-precision integers.
type BigIntValue struct {
	header
	V *big.Int
}

func (v *BigIntValue) release() {}

func BigInt(v *big.Int) Value {
	return Value{Tag: TagBigInt, obj: &BigIntValue{V: v}}
}

// StringValue is the heap payload for immutable byte-sequence strings.
type StringValue struct {
	header
	S string
}

func (v *StringValue) release() {}

func String(s string) Value {
	return Value{Tag: TagString, obj: &StringValue{S: s}}
}

// ArrayValue is the heap payload for an ordered, owned sequence of Values.
type ArrayValue struct {
	header
	Elems []Value
}

func (v *ArrayValue) release() {
	for _, e := range v.Elems {
		Release(e)
	}
}

func Array(elems []Value) Value {
	return Value{Tag: TagArray, obj: &ArrayValue{Elems: elems}}
}

// ObjectValue is the heap payload for a string-keyed map with owned values.
// order preserves insertion order (first-write position), per the round
// trip property in: "BUILD_OBJECT followed by reading every key
// yields the values in insertion order of the pairs pushed."
type ObjectValue struct {
	header
	props map[string]Value
	order []string
}

func (v *ObjectValue) release() {
	for _, val := range v.props {
		Release(val)
	}
}

func NewObjectValue() *ObjectValue {
	return &ObjectValue{props: make(map[string]Value)}
}

func Object(ov *ObjectValue) Value {
	return Value{Tag: TagObject, obj: ov}
}

// Get returns the value stored at key and whether it was present.
func (v *ObjectValue) Get(key string) (Value, bool) {
	val, ok := v.props[key]
	return val, ok
}

// Set stores val at key, taking over one reference the caller already
// holds (Set does not retain val), and releases any prior occupant.
// New keys are appended to the insertion order; existing keys keep their
// original position.
func (v *ObjectValue) Set(key string, val Value) {
	if prior, ok := v.props[key]; ok {
		Release(prior)
	} else {
		v.order = append(v.order, key)
	}
	v.props[key] = val
}

// Keys returns the keys in insertion order.
func (v *ObjectValue) Keys() []string {
	return v.order
}

func (v *ObjectValue) Len() int { return len(v.order) }

// BufferValue is the heap payload for a raw mutable byte sequence.
type BufferValue struct {
	header
	Bytes []byte
}

func (v *BufferValue) release() {}

func Buffer(b []byte) Value {
	return Value{Tag: TagBuffer, obj: &BufferValue{Bytes: b}}
}

// RangeValue is the heap payload for (start, end, step, exclusive).
type RangeValue struct {
	header
	Start, End, Step Value
	Exclusive bool
}

func (v *RangeValue) release() {
	Release(v.Start)
	Release(v.End)
	Release(v.Step)
}

func Range(start, end, step Value, exclusive bool) Value {
	Retain(start)
	Retain(end)
	Retain(step)
	return Value{Tag: TagRange, obj: &RangeValue{Start: start, End: end, Step: step, Exclusive: exclusive}}
}

// Native wraps a built-in function pointer. Native values are not
// reference-counted.
type nativeHolder struct {
	Fn NativeFn
	Name string
}

func Native(name string, fn NativeFn) Value {
	return Value{Tag: TagNative, obj: &nativeHolder{Fn: fn, Name: name}}
}

func (n *nativeHolder) refs() *int32 { return nil }
func (n *nativeHolder) release() {}

// AsNative returns the underlying function pointer and name.
func AsNative(v Value) (NativeFn, string, bool) {
	if v.Tag != TagNative {
		return nil, "", false
	}
	n := v.obj.(*nativeHolder)
	return n.Fn, n.Name, true
}

// BoundMethodValue pairs a receiver with a native function.
type BoundMethodValue struct {
	header
	Receiver Value
	Fn NativeFn
	Name string
}

func (v *BoundMethodValue) release() {
	Release(v.Receiver)
}

func BoundMethod(receiver Value, fn NativeFn, name string) Value {
	Retain(receiver)
	return Value{Tag: TagBoundMethod, obj: &BoundMethodValue{Receiver: receiver, Fn: fn, Name: name}}
}

// ---- Accessors --------------------------------------------------------------

func (v Value) AsBool() bool { return v.b }
func (v Value) AsInt32() int32 { return v.i32 }
func (v Value) AsFloat32() float32 { return v.f32 }
func (v Value) AsFloat64() float64 { return v.f64 }

func (v Value) AsBigInt() *big.Int {
	return v.obj.(*BigIntValue).V
}

func (v Value) AsString() string {
	return v.obj.(*StringValue).S
}

func (v Value) AsArray() *ArrayValue {
	return v.obj.(*ArrayValue)
}

func (v Value) AsObject() *ObjectValue {
	return v.obj.(*ObjectValue)
}

func (v Value) AsBuffer() *BufferValue {
	return v.obj.(*BufferValue)
}

func (v Value) AsRange() *RangeValue {
	return v.obj.(*RangeValue)
}

func (v Value) AsBoundMethod() *BoundMethodValue {
	return v.obj.(*BoundMethodValue)
}

func (v Value) AsClosure() *Closure {
	return v.obj.(*Closure)
}

func (v Value) AsFunction() *Function {
	return v.obj.(*Function)
}

func (v Value) AsClass() *Class {
	return v.obj.(*Class)
}

// Class returns the value's weak back-reference to a class, if any, used
// for instance-method dispatch by lang/class.
func (v Value) Class() *Class { return v.class }

// WithClass returns a copy of v carrying the given class back-reference.
func (v Value) WithClass(c *Class) Value {
	v.class = c
	return v
}

// WithDebug returns a copy of v carrying the given debug location.
func (v Value) WithDebug(d *DebugLocation) Value {
	v.Debug = d
	return v
}

// ---- Retain / release --------------------------------------------------------

// Retain bumps v's strong reference count, if v is heap allocated.
func Retain(v Value) {
	if v.obj == nil {
		return
	}
	if c := v.obj.refs(); c != nil {
		*c++
	}
}

// Release decrements v's strong reference count and, on reaching zero,
// recursively releases every owned child before the payload becomes
// unreachable.
func Release(v Value) {
	if v.obj == nil {
		return
	}
	c := v.obj.refs()
	if c == nil {
		return
	}
	*c--
	if *c <= 0 {
		v.obj.release()
	}
}

// RefCount reports the current strong reference count of a heap value, or
// -1 for non-heap tags. Exposed for debug/test tooling (P1 leak checks).
func RefCount(v Value) int32 {
	if v.obj == nil {
		return -1
	}
	c := v.obj.refs()
	if c == nil {
		return -1
	}
	return *c
}

// HeapIdentity returns a stable identity pointer for v's payload, for debug
// leak-tracking (P1). Non-heap and Native values report ok=false.
func HeapIdentity(v Value) (uintptr, bool) {
	if v.obj == nil {
		return 0, false
	}
	if v.obj.refs() == nil {
		return 0, false
	}
	return ptrOf(v.obj), true
}

// ---- Classification -----------------------------------------------------

func IsNumber(v Value) bool {
	switch v.Tag {
	case TagInt32, TagBigInt, TagFloat32, TagFloat64:
		return true
	}
	return false
}

// IsFalsy reports whether v belongs to the falsy set defined in
func IsFalsy(v Value) bool {
	switch v.Tag {
	case TagNull, TagUndefined:
		return true
	case TagBoolean:
		return !v.b
	case TagInt32:
		return v.i32 == 0
	case TagBigInt:
		return v.AsBigInt().Sign() == 0
	case TagFloat32:
		return v.f32 == 0
	case TagFloat64:
		return v.f64 == 0
	case TagString:
		return v.AsString() == ""
	}
	return false
}

func IsTruthy(v Value) bool { return !IsFalsy(v) }

// TypeName returns the dynamic type name used in diagnostics and by the
// language's reflection-style built-ins.
func TypeName(v Value) string { return v.Tag.String() }

// Stringify renders v for ADD's string-concatenation coercion and for
// diagnostics. It never errors: every tag has a canonical text form.
func Stringify(v Value) string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagUndefined:
		return "undefined"
	case TagBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case TagInt32:
		return fmt.Sprintf("%d", v.i32)
	case TagBigInt:
		return v.AsBigInt().String()
	case TagFloat32:
		return fmt.Sprintf("%g", v.f32)
	case TagFloat64:
		return fmt.Sprintf("%g", v.f64)
	case TagString:
		return v.AsString()
	case TagArray:
		arr := v.AsArray()
		s := "["
		for i, e := range arr.Elems {
			if i > 0 {
				s += ", "
			}
			s += Stringify(e)
		}
		return s + "]"
	case TagObject:
		obj := v.AsObject()
		s := "{"
		for i, k := range obj.Keys() {
			if i > 0 {
				s += ", "
			}
			val, _ := obj.Get(k)
			s += k + ": " + Stringify(val)
		}
		return s + "}"
	case TagClass:
		return "<class " + v.AsClass().Name + ">"
	case TagClosure:
		return "<closure " + closureName(v.AsClosure()) + ">"
	case TagFunction:
		return "<function " + functionName(v.AsFunction()) + ">"
	case TagNative:
		_, name, _ := AsNative(v)
		return "<native " + name + ">"
	case TagBoundMethod:
		return "<bound method " + v.AsBoundMethod().Name + ">"
	case TagRange:
		return "<range>"
	case TagBuffer:
		return fmt.Sprintf("<buffer %d bytes>", len(v.AsBuffer().Bytes))
	}
	return "<unknown>"
}

func closureName(c *Closure) string {
	if c.Fn != nil && c.Fn.Name != "" {
		return c.Fn.Name
	}
	return "anonymous"
}

func functionName(f *Function) string {
	if f.Name != "" {
		return f.Name
	}
	return "anonymous"
}
