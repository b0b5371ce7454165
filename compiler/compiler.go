// Copyright 2024 The Orus Authors
// This file is part of Orus.
//
// Orus is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Orus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Orus. If not, see <http://www.gnu.org/licenses/>.

// Package compiler stands in for the lexer/parser/AST-to-bytecode compiler,
// which is treated as an external collaborator here: the lexer/parser
// producing the AST, and the compiler translating that AST to stack
// bytecode, are represented only by the interface the VM packages need to
// compile against. A real frontend lives in its own module and implements
// Compiler; this package ships no parser of its own.
package compiler

import (
	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/vm"
)

// Program is everything a compiled unit hands to the interpreters: the
// top-level chunk, the function table referenced by CALL's global-index
// indirection, and the subset of top-level globals the source marked as
// publicly exported as an exports[] table on a Module record, keyed by
// name and mapping to the numeric global slot DEFINE_GLOBAL populated —
// bytecode only ever addresses globals by index, so the compiler is the
// only place that still knows which index a given export name binds to.
type Program struct {
	Main      *bytecode.Chunk
	Functions []vm.FunctionInfo
	Exports   map[string]int
}

// Compiler takes Orus source text and produces a Program ready for either
// interpreter, or a CompileError describing why it couldn't. Compile errors
// never reach the interpreters — callers (package module, the CLI) report
// a CompileError status without constructing a VM.
type Compiler interface {
	Compile(source string) (*Program, error)
}

// CompileError wraps a frontend failure with the source position it was
// detected at, the shape a real compiler's diagnostics would carry.
type CompileError struct {
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string { return e.Message }
