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

package value

// UpvalueDesc describes how a closure captures one of its upvalues at the
// CLOSURE opcode: either from a slot of the enclosing frame (IsLocal) or
// from an upvalue of the enclosing closure.
type UpvalueDesc struct {
	IsLocal bool
	Index uint8
}

// DebugEntry maps a byte offset in a Function's bytecode to a source line
// and column,
type DebugEntry struct {
	ByteOffset int
	Line int
	Column int
}

// DebugTable is a Function's optional byte-offset -> (line, column) table,
// sorted by ByteOffset.
type DebugTable struct {
	Entries []DebugEntry
}

// Lookup returns the most specific debug entry at or before offset.
func (t *DebugTable) Lookup(offset int) (DebugEntry, bool) {
	if t == nil || len(t.Entries) == 0 {
		return DebugEntry{}, false
	}
	lo, hi := 0, len(t.Entries)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if t.Entries[mid].ByteOffset <= offset {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == -1 {
		return DebugEntry{}, false
	}
	return t.Entries[best], true
}

// Function is a compiled function record: bytecode, its constant pool, and
// enough metadata to call and disassemble it. It carries no captured
// upvalues of its own.
type Function struct {
	header
	Name string
	Arity int
	ParamNames []string
	LocalCount int
	Code []byte
	Constants []Value
	Upvalues []UpvalueDesc
	Debug *DebugTable
}

func (f *Function) release() {
	for _, c := range f.Constants {
		Release(c)
	}
}

func NewFunction() *Function {
	return &Function{}
}

func FunctionValue(f *Function) Value {
	return Value{Tag: TagFunction, obj: f}
}

// Closure is a Function plus its bound upvalues.
type Closure struct {
	header
	Fn *Function
	Upvalues []Value
}

func (c *Closure) release() {
	for _, u := range c.Upvalues {
		Release(u)
	}
}

func NewClosure(fn *Function, upvalues []Value) *Closure {
	return &Closure{Fn: fn, Upvalues: upvalues}
}

func ClosureValue(c *Closure) Value {
	return Value{Tag: TagClosure, obj: c}
}

// CaseKind distinguishes an ADT constructor that takes no parameters
// (Singleton) from one that wraps a fixed tuple of fields (Tuple).
type CaseKind uint8

const (
	CaseKindNone CaseKind = iota
	CaseKindSingleton
	CaseKindTuple
)

// Factory constructs an instance Value given the class performing the
// construction and the call arguments. The vm parameter is an opaque
// interface{} for the same reason as NativeFn (see value.go).
type Factory func(vm interface{}, class *Class, args []Value) (Value, error)

// Class describes instance and static properties, an optional factory,
// and an optional parent for inheritance and ADT constructor/base
// relationships.
type Class struct {
	header
	Name string
	Factory Factory
	InstanceProps map[string]Value
	StaticProps map[string]Value
	Parent *Class // weak: not ref-counted, classes outlive instances

	// ADT support. CaseKind/Params/Constructors are non-zero only on,
	// respectively, a constructor class and its owning ADT class.
	CaseKind CaseKind
	Params []string
	Constructors []*Class
}

func (c *Class) release() {
	for _, v := range c.InstanceProps {
		Release(v)
	}
	for _, v := range c.StaticProps {
		Release(v)
	}
}

func NewClass(name string) *Class {
	return &Class{
		Name: name,
		InstanceProps: make(map[string]Value),
		StaticProps: make(map[string]Value),
	}
}

func ClassValue(c *Class) Value {
	return Value{Tag: TagClass, obj: c}
}

// NewADT creates the parent class shared by a set of constructor classes,
// wiring each constructor's Parent back to it so instance methods defined
// on the ADT are visible from every case.
func NewADT(name string, constructors ...*Class) *Class {
	adt := NewClass(name)
	adt.Constructors = constructors
	for _, ctor := range constructors {
		ctor.Parent = adt
	}
	return adt
}
