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

package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	gostack "github.com/go-stack/stack"
)

// Context selects the error propagation policy of
type Context uint8

const (
	Script Context = iota
	Interactive
	Test
)

func (c Context) String() string {
	switch c {
	case Script:
		return "script"
	case Interactive:
		return "interactive"
	case Test:
		return "test"
	}
	return "unknown"
}

// Outcome reports what a Context decided to do with a terminating error.
type Outcome struct {
	// Exit is true when the host process should terminate (Script context
	// only). The VM itself never calls os.Exit; the caller (cmd/slate)
	// does, keeping the library side-effect free.
	Exit bool
	ExitCode int
	// Printed is true if the diagnostic was already written to the
	// Context's stream (Script, Interactive); Test callers must print it
	// themselves if they want it visible.
	Printed bool
}

// errColor/locColor colorize the Script/Interactive diagnostic; disabled
// automatically by fatih/color when the output stream is not a terminal.
var errColor = color.New(color.FgRed, color.Bold)
var locColor = color.New(color.FgCyan)

// Handle implements the three-way policy branch of:
// - Script: print the caret diagnostic, report Exit with code 1.
// - Interactive: print the same diagnostic; VM state (globals,
// constants, function table) survives, so the caller should resume
// at the REPL boundary without reconstructing the VM.
// - Test: do not print; the caller inspects err directly.
func Handle(ctx Context, w io.Writer, err *Error) Outcome {
	switch ctx {
	case Script:
		Format(w, err, true)
		return Outcome{Exit: true, ExitCode: 1, Printed: true}
	case Interactive:
		Format(w, err, true)
		return Outcome{Printed: true}
	case Test:
		return Outcome{}
	}
	return Outcome{}
}

// Format renders the user-visible diagnostic of:
//
//	Kind: message
//	 at line L, column C:
//	 <source-line>
//	 <spaces>^
//
// colorized is only honored for the Kind/message line; fatih/color no-ops
// automatically on non-terminal writers.
func Format(w io.Writer, err *Error, colorized bool) {
	header := fmt.Sprintf("%s: %s", err.Kind, err.Message)
	if colorized {
		errColor.Fprintln(w, header)
	} else {
		fmt.Fprintln(w, header)
	}
	if err.Line == 0 {
		return
	}
	loc := fmt.Sprintf(" at line %d, column %d:", err.Line, err.Column)
	if colorized {
		locColor.Fprintln(w, loc)
	} else {
		fmt.Fprintln(w, loc)
	}
	if err.Source != "" {
		FormatSource(w, err.Source, err.Column)
	}
}

// FormatSource writes the offending source line and a caret under the
// reported column, when the caller has the line text available.
func FormatSource(w io.Writer, sourceLine string, column int) {
	fmt.Fprintf(w, " %s\n", sourceLine)
	fmt.Fprintf(w, " %s^\n", strings.Repeat(" ", column))
}

// CallerStack captures the current goroutine's call stack, trimmed of
// runtime frames, for attachment to InternalError diagnostics (debug
// builds / test harnesses only — never shown to end users).
func CallerStack() string {
	return fmt.Sprintf("%+v", gostack.Trace().TrimRuntime())
}
