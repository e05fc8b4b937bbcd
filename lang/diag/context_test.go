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
	"bytes"
	"testing"
)

// P10: in Script context, an error aborts with exit code 1 and a
// formatted diagnostic; in Interactive/Test, the caller regains control.
func TestHandleScriptExits(t *testing.T) {
	var buf bytes.Buffer
	e := New(Type, nil, "boom")
	out := Handle(Script, &buf, e)
	if !out.Exit || out.ExitCode != 1 {
		t.Fatalf("Script context must report Exit with code 1, got %+v", out)
	}
	if !out.Printed || buf.Len() == 0 {
		t.Fatal("Script context must print the diagnostic")
	}
}

func TestHandleInteractivePrintsButDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	e := New(Type, nil, "boom")
	out := Handle(Interactive, &buf, e)
	if out.Exit {
		t.Fatal("Interactive context must not request process exit")
	}
	if !out.Printed || buf.Len() == 0 {
		t.Fatal("Interactive context must print the diagnostic")
	}
}

func TestHandleTestIsSilent(t *testing.T) {
	var buf bytes.Buffer
	e := New(Type, nil, "boom")
	out := Handle(Test, &buf, e)
	if out.Exit || out.Printed {
		t.Fatalf("Test context must neither exit nor print, got %+v", out)
	}
	if buf.Len() != 0 {
		t.Fatalf("Test context must not write to the stream, got %q", buf.String())
	}
}

func TestContextString(t *testing.T) {
	cases := map[Context]string{Script: "script", Interactive: "interactive", Test: "test"}
	for ctx, want := range cases {
		if got := ctx.String(); got != want {
			t.Errorf("%v.String = %q, want %q", ctx, got, want)
		}
	}
}

func TestCallerStackNonEmpty(t *testing.T) {
	if CallerStack() == "" {
		t.Fatal("CallerStack must return a non-empty trace")
	}
}
