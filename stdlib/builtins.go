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

// Package stdlib demonstrates the Native calling convention of
// §4.5/§4.8: a handful of representative built-ins, not a complete
// standard library (only the calling convention is in scope).
package stdlib

import (
	"fmt"
	"io"

	"github.com/probechain/slate/lang/value"
)

// Print writes each argument's Stringify form space-separated to w,
// returning Undefined, modeling a built-in with observable I/O
//.
func Print(w io.Writer) value.NativeFn {
	return func(_ interface{}, args []value.Value) (value.Value, error) {
		for i, a := range args {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, value.Stringify(a))
		}
		fmt.Fprintln(w)
		return value.Undefined, nil
	}
}

// TypeOf returns the dynamic type name of its single argument.
func TypeOf(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, fmt.Errorf("TypeError: typeOf expects 1 argument")
	}
	return value.String(value.TypeName(args[0])), nil
}

// Len returns the element/byte count of an Array, Object, String, or
// Buffer argument.
func Len(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, fmt.Errorf("TypeError: len expects 1 argument")
	}
	switch v := args[0]; v.Tag {
	case value.TagArray:
		return value.Int32(int32(len(v.AsArray().Elems))), nil
	case value.TagObject:
		return value.Int32(int32(v.AsObject().Len())), nil
	case value.TagString:
		return value.Int32(int32(len(v.AsString()))), nil
	case value.TagBuffer:
		return value.Int32(int32(len(v.AsBuffer().Bytes))), nil
	}
	return value.Value{}, fmt.Errorf("TypeError: len is not defined for %s", value.TypeName(args[0]))
}

// Push is the instance-method calling convention of // BoundMethod branch: the receiver arrives as args[0] once bound. Here it
// appends to an Array and returns the new length, mirroring how a method
// registered in a Class's InstanceProps as a Native is invoked after
// GET_PROPERTY wraps it in a BoundMethod.
func Push(_ interface{}, args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.Value{}, fmt.Errorf("TypeError: push expects a receiver and at least one value")
	}
	recv := args[0]
	if recv.Tag != value.TagArray {
		return value.Value{}, fmt.Errorf("TypeError: push receiver must be an Array")
	}
	arr := recv.AsArray()
	for _, v := range args[1:] {
		if v.Tag == value.TagUndefined {
			return value.Value{}, fmt.Errorf("TypeError: cannot push undefined")
		}
		value.Retain(v)
		arr.Elems = append(arr.Elems, v)
	}
	return value.Int32(int32(len(arr.Elems))), nil
}

// Register installs every built-in in this package as an immutable global
// through define (e.g. vm.DefineBuiltin), for an embedder to call before
// Execute.
func Register(define func(name string, v value.Value, immutable bool), stdout io.Writer) {
	define("print", value.Native("print", Print(stdout)), true)
	define("typeOf", value.Native("typeOf", TypeOf), true)
	define("len", value.Native("len", Len), true)
	define("push", value.Native("push", Push), true)
}
