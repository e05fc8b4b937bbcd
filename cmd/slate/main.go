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

// Command slate loads a compiled bytecode chunk and runs it
// under a selected execution context. It does not contain a lexer,
// parser, or REPL line editor: those are out of scope
// "interactive" mode substitutes for a front end by reading a sequence of
// pre-compiled, hex-encoded chunks from stdin, one per line, and keeping
// the VM alive across errors — enough to exercise §4.6's Interactive
// policy without a real REPL.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/probechain/slate/config"
	"github.com/probechain/slate/lang/bytecode"
	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
	"github.com/probechain/slate/lang/vm"
	"github.com/probechain/slate/log"
	"github.com/probechain/slate/stdlib"
)

func main() {
	var (
		contextFlag = flag.String("context", "script", "execution context: script|interactive|test")
		configFlag = flag.String("config", "", "path to a TOML VM configuration file")
		disasmFlag = flag.Bool("disasm", false, "disassemble the entry function instead of running it")
		verboseFlag = flag.Bool("v", false, "verbose output: dump the constant pool when disassembling and enable debug logging")
	)
	flag.Parse()
	log.SetVerbose(*verboseFlag)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: slate [flags] <chunk.sbc>")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "slate: %s\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	ctx, err := parseContext(*contextFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slate: %s\n", err)
		os.Exit(2)
	}

	chunk, err := bytecode.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "slate: %s\n", err)
		os.Exit(1)
	}
	if chunk.Entry < 0 || chunk.Entry >= len(chunk.Functions) {
		fmt.Fprintf(os.Stderr, "slate: entry index %d out of range\n", chunk.Entry)
		os.Exit(1)
	}
	entry := chunk.Functions[chunk.Entry]

	if *disasmFlag {
		if err := bytecode.Disassemble(os.Stdout, entry, *verboseFlag); err != nil {
			fmt.Fprintf(os.Stderr, "slate: %s\n", err)
			os.Exit(1)
		}
		return
	}

	if ctx == diag.Interactive {
		runInteractive(chunk, cfg)
		return
	}

	runOnce(chunk, entry, ctx, cfg)
}

func parseContext(s string) (diag.Context, error) {
	switch s {
	case "script":
		return diag.Script, nil
	case "interactive":
		return diag.Interactive, nil
	case "test":
		return diag.Test, nil
	}
	return 0, fmt.Errorf("unknown context %q", s)
}

// runOnce executes chunk's entry function once under ctx and maps the
// resulting Outcome to the process exit code.
func runOnce(chunk *bytecode.Chunk, entry *value.Function, ctx diag.Context, cfg config.Settings) {
	machine := newMachine(chunk, ctx, cfg)
	result := machine.Execute(entry)
	if result.Outcome.Exit {
		os.Exit(result.Outcome.ExitCode)
	}
	if result.Err != nil && ctx == diag.Test {
		diag.Format(os.Stderr, result.Err, false)
		os.Exit(1)
	}
}

// runInteractive keeps one VM alive across a sequence of chunks read from
// stdin, one hex-encoded chunk per line, modeling §4.6's "VM state...
// survives" guarantee: globals defined by an earlier line remain visible
// to a later one even after an intervening error.
func runInteractive(firstChunk *bytecode.Chunk, cfg config.Settings) {
	machine := newMachine(firstChunk, diag.Interactive, cfg)
	if firstChunk.Entry >= 0 && firstChunk.Entry < len(firstChunk.Functions) {
		machine.Execute(firstChunk.Functions[firstChunk.Entry])
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		data, err := hex.DecodeString(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "slate: invalid hex input: %s\n", err)
			continue
		}
		chunk, err := bytecode.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "slate: %s\n", err)
			continue
		}
		if chunk.Entry < 0 || chunk.Entry >= len(chunk.Functions) {
			fmt.Fprintf(os.Stderr, "slate: entry index %d out of range\n", chunk.Entry)
			continue
		}
		machine.Execute(chunk.Functions[chunk.Entry])
	}
}

func newMachine(chunk *bytecode.Chunk, ctx diag.Context, cfg config.Settings) *vm.VM {
	machine := vm.NewWithConfig(cfg)
	machine.SetContext(ctx)
	for _, fn := range chunk.Functions {
		machine.AddFunction(fn)
	}
	stdlib.Register(machine.DefineBuiltin, os.Stdout)
	return machine
}
