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

// Package vm implements the bytecode interpreter: the operand stack, call
// frames, global/lexical scope, and the fetch-decode-execute loop driving
// every opcode's semantics.
package vm

import (
	"io"
	"os"

	"github.com/probechain/slate/config"
	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
	"github.com/probechain/slate/log"
)

// Result is what Execute returns: the program's final value (from the
// entry frame's RETURN, or SET_RESULT if the program used it) and an
// Outcome describing what the active Context decided to do with any
// terminating error.
type Result struct {
	Value value.Value
	Err *diag.Error
	Outcome diag.Outcome
}

// VM is a single, non-shared interpreter instance: the operand stack,
// frame stack, global namespace, module stack, function table, and
// diagnostic context.
type VM struct {
	stack *operandStack
	frames []*frame

	root *Namespace
	moduleStack []*Namespace

	functions []*value.Function

	cfg config.Settings

	context diag.Context
	Stderr io.Writer

	currentDebug *value.DebugLocation
	// currentDebugSource is the constant's string payload captured by the
	// most recent SET_DEBUG_LOCATION, rendered under the caret line.
	currentDebugSource string

	resultReg value.Value
	hasResult bool
	leaks *leakTracker
}

// New constructs a VM ready to Execute, tuned by config.Default(). Context
// defaults to Test (silent, caller-inspected errors) until SetContext is
// called.
func New() *VM {
	return NewWithConfig(config.Default())
}

// NewWithConfig constructs a VM tuned by cfg — stack/frame capacity and
// DIVIDE's default float width (spec.md §4.5/§9 "Configuration") — e.g.
// loaded from a TOML file by an embedder (see cmd/slate).
func NewWithConfig(cfg config.Settings) *VM {
	leaks := newLeakTracker()
	vm := &VM{
		stack: newOperandStack(leaks, cfg.StackCapacity),
		frames: make([]*frame, 0, 64),
		root: newNamespace(),
		cfg: cfg,
		context: diag.Test,
		Stderr: os.Stderr,
		leaks: leaks,
	}
	log.Debug("vm constructed", "context", vm.context.String())
	return vm
}

// ArmLeakDetection starts recording every heap payload pushed onto the
// operand stack, for a test harness to later confirm with SweepLeaks that
// none of them outlived the run (P1).
func (vm *VM) ArmLeakDetection() { vm.leaks.Arm() }

// SweepLeaks stops recording and reports every payload pointer observed
// since ArmLeakDetection whose reference count, per live, is still
// nonzero.
func (vm *VM) SweepLeaks(live func(uintptr) bool) []uintptr {
	return vm.leaks.Sweep(live)
}

// SetContext selects the error propagation policy.
func (vm *VM) SetContext(ctx diag.Context) {
	log.Debug("context switch", "from", vm.context.String(), "to", ctx.String())
	vm.context = ctx
}

// AddFunction registers a compiled function and returns its stable index,
// for use as the target of a CLOSURE constant.
func (vm *VM) AddFunction(fn *value.Function) int {
	vm.functions = append(vm.functions, fn)
	return len(vm.functions) - 1
}

// Globals exposes the VM's root namespace, e.g. for pre-seeding built-ins
// before Execute runs.
func (vm *VM) Globals() *Namespace { return vm.root }

// ResultRegister returns the value most recently written by SET_RESULT,
// e.g. for an interactive caller to print the last expression's value.
func (vm *VM) ResultRegister() value.Value { return vm.resultReg }

// Execute runs entry to HALT or to an unhandled error,
// applying the active Context's policy to any terminating error.
func (vm *VM) Execute(entry *value.Function) Result {
	closure := value.NewClosure(entry, nil)
	closureVal := value.ClosureValue(closure)
	value.Retain(closureVal)
	defer value.Release(closureVal)

	base := vm.stack.depth()
	vm.frames = append(vm.frames, &frame{closure: closure, slots: base, baseIdx: base})

	retVal, rerr := vm.run()
	if rerr != nil {
		outcome := diag.Handle(vm.context, vm.Stderr, rerr)
		return Result{Err: rerr, Outcome: outcome}
	}
	return Result{Value: retVal}
}
