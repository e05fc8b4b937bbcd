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
	"github.com/probechain/slate/log"
)

// Namespace is a global/module string-keyed value store with a parallel
// per-name immutability flag.
type Namespace struct {
	values map[string]value.Value
	immutable map[string]bool
}

func newNamespace() *Namespace {
	return &Namespace{
		values: make(map[string]value.Value),
		immutable: make(map[string]bool),
	}
}

// currentNamespace returns the module namespace on top of the module
// stack, or the VM's root namespace if none is pushed.
func (vm *VM) currentNamespace() *Namespace {
	if n := len(vm.moduleStack); n > 0 {
		return vm.moduleStack[n-1]
	}
	return vm.root
}

// PushModule makes ns the target of subsequent DEFINE_GLOBAL/SET_GLOBAL/
// GET_GLOBAL until it is popped. The module loader that would call this at
// a module's top-level entry/return is out of scope; the hook
// itself is implemented and tested directly.
func (vm *VM) PushModule(ns *Namespace) {
	vm.moduleStack = append(vm.moduleStack, ns)
	log.Debug("module pushed", "depth", len(vm.moduleStack))
}

// PopModule pops the current module namespace, per the module loader
// contract in the §9 design note.
func (vm *VM) PopModule() {
	if n := len(vm.moduleStack); n > 0 {
		vm.moduleStack = vm.moduleStack[:n-1]
		log.Debug("module popped", "depth", len(vm.moduleStack))
	}
}

// NewNamespace constructs an empty module namespace for use with
// PushModule.
func NewNamespace() *Namespace { return newNamespace() }

// define implements DEFINE_GLOBAL. In script context a
// redeclaration is a ReferenceError; in interactive context it replaces the
// prior value (releasing it) and updates the immutability flag.
func (ns *Namespace) define(ctx diagContext, name string, v value.Value, immutable bool) *diag.Error {
	if prev, ok := ns.values[name]; ok {
		if ctx != interactiveContext {
			return errReference("'%s' is already declared", name)
		}
		value.Release(prev)
	}
	value.Retain(v)
	ns.values[name] = v
	ns.immutable[name] = immutable
	return nil
}

// set implements SET_GLOBAL.
func (ns *Namespace) set(name string, v value.Value) *diag.Error {
	_, ok := ns.values[name]
	if !ok {
		return errReference("'%s' is not defined", name)
	}
	if ns.immutable[name] {
		return errType("cannot assign to immutable binding '%s'", name)
	}
	if v.Tag == value.TagUndefined {
		return errType("cannot store undefined in '%s'", name)
	}
	value.Retain(v)
	value.Release(ns.values[name])
	ns.values[name] = v
	return nil
}

// DefineBuiltin seeds name directly into the VM's root namespace, for an
// embedder wiring stdlib.Register before Execute runs. Unlike DEFINE_GLOBAL
// it is not subject to the script/interactive redeclaration policy.
func (vm *VM) DefineBuiltin(name string, v value.Value, immutable bool) {
	value.Retain(v)
	vm.root.values[name] = v
	vm.root.immutable[name] = immutable
}

// get implements GET_GLOBAL: returns a retained copy of the binding.
func (ns *Namespace) get(name string) (value.Value, *diag.Error) {
	v, ok := ns.values[name]
	if !ok {
		return value.Value{}, errReference("'%s' is not defined", name)
	}
	value.Retain(v)
	return v, nil
}
