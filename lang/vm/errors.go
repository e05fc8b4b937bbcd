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

// diagContext and the *Context constants below are package-local aliases
// of diag.Context and its values, used by Namespace.define in globals.go.
type diagContext = diag.Context

const (
	scriptContext = diag.Script
	interactiveContext = diag.Interactive
	testContext = diag.Test
)

func (vm *VM) err(kind diag.Kind, format string, args...interface{}) *diag.Error {
	return diag.New(kind, vm.currentDebug, format, args...)
}

func errReference(format string, args...interface{}) *diag.Error {
	return diag.New(diag.Reference, nil, format, args...)
}

func errType(format string, args...interface{}) *diag.Error {
	return diag.New(diag.Type, nil, format, args...)
}

func errRange(format string, args...interface{}) *diag.Error {
	return diag.New(diag.Range, nil, format, args...)
}

func errArithmetic(format string, args...interface{}) *diag.Error {
	return diag.New(diag.Arithmetic, nil, format, args...)
}

func errInternal(format string, args...interface{}) *diag.Error {
	return diag.New(diag.InternalError, nil, format, args...)
}

// withValues implements runtime_error_with_values: debug
// location precedence is b's, else a's, else the VM's current_debug.
func (vm *VM) withValues(kind diag.Kind, a, b value.Value, format string, args...interface{}) *diag.Error {
	return diag.WithValues(kind, a, b, vm.currentDebug, format, args...)
}
