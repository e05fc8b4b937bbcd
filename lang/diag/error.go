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

// Package diag implements the error taxonomy, source-line caret
// formatting, and Script/Interactive/Test context policies of
package diag

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/probechain/slate/lang/value"
)

// Kind enumerates the error taxonomy of
type Kind uint8

const (
	OutOfMemory Kind = iota
	Syntax
	Type
	Reference
	Range
	IO
	InternalError
	Arithmetic
)

var kindNames = [...]string{
	OutOfMemory: "OutOfMemory",
	Syntax: "Syntax",
	Type: "Type",
	Reference: "Reference",
	Range: "Range",
	IO: "IO",
	InternalError: "InternalError",
	Arithmetic: "Arithmetic",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// maxMessageLen enforces the "message ≤ 256 chars" bound.
const maxMessageLen = 256

// Error is the runtime error record of:
// { kind, file, line, column, message }.
type Error struct {
	Kind Kind
	File string
	Line int
	Column int
	Message string
	// Source is the offending source line's text, borrowed from the
	// chunk's debug table via the triggering Value's DebugLocation, for
	// the caret line of the user-visible diagnostic format.
	Source string

	// cause optionally carries an internal wrapped error (stack-traced via
	// github.com/pkg/errors) for InternalError kinds; never shown to the
	// end user, only surfaced through Unwrap for embedding diagnostics.
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func truncate(msg string) string {
	if len(msg) <= maxMessageLen {
		return msg
	}
	return msg[:maxMessageLen]
}

// New builds an Error at the given kind/message/location.
func New(kind Kind, loc *value.DebugLocation, format string, args ...interface{}) *Error {
	e := &Error{Kind: kind, Message: truncate(fmt.Sprintf(format, args...))}
	if loc != nil {
		e.File = loc.File
		e.Line = loc.Line
		e.Column = loc.Column
		e.Source = loc.Source
	}
	return e
}

// Internal builds an InternalError wrapping cause with a captured stack
// trace (github.com/pkg/errors), for VM-fault conditions (stack
// overflow/underflow, corrupt bytecode) that are bugs rather than
// user-program errors.
func Internal(cause error, loc *value.DebugLocation) *Error {
	wrapped := pkgerrors.WithStack(cause)
	e := New(InternalError, loc, "%s", cause.Error())
	e.cause = wrapped
	return e
}

// WithValues is the standard helper named in:
// runtime_error_with_values(kind, a, b, fmt,...). It resolves the
// reported debug location using the precedence rule: the right operand's
// location, else the left's, else the caller-supplied fallback, else none.
func WithValues(kind Kind, a, b value.Value, fallback *value.DebugLocation, format string, args ...interface{}) *Error {
	loc := fallback
	if b.Debug != nil {
		loc = b.Debug
	} else if a.Debug != nil {
		loc = a.Debug
	}
	return New(kind, loc, format, args...)
}
