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

// Package engine wires the out-of-scope compiler (package compiler, plugged
// in by the embedder) together with the stack interpreter, the module
// loader, and the native function registry to implement the two external
// entry points: Interpret and InterpretModule. Nothing here executes
// bytecode itself — it is purely composition, the same role an
// integration-style bridging package plays in connecting a VM to its
// caller.
package engine

import (
	"errors"
	"io"
	"os"

	"github.com/orus-lang/orus-vm/compiler"
	"github.com/orus-lang/orus-vm/lower"
	"github.com/orus-lang/orus-vm/module"
	"github.com/orus-lang/orus-vm/natives"
	"github.com/orus-lang/orus-vm/vm"
)

// ErrNoCompiler is returned by Interpret when no compiler.Compiler frontend
// has been configured — expected in this repository, since the lexer,
// parser, and AST-to-bytecode compiler are external collaborators out of
// scope here.
var ErrNoCompiler = errors.New("engine: no compiler frontend configured")

// Status mirrors vm.Status: the three outcomes either external entry
// point can report.
type Status = vm.Status

const (
	StatusOK           = vm.StatusOK
	StatusCompileError = vm.StatusCompileError
	StatusRuntimeError = vm.StatusRuntimeError
)

// Engine bundles everything Interpret/InterpretModule need: a compiler
// frontend, a configured module loader, and the native function table both
// interpreters share.
type Engine struct {
	Compiler  compiler.Compiler
	Loader    *module.Loader
	Natives   *natives.Registry
	Lower     lower.Options
	LoopLimit int
	Trace     bool
	Stdout    io.Writer
}

// New builds an Engine. loader may be nil if the program never imports
// modules; natives may be nil for no native functions registered.
func New(comp compiler.Compiler, loader *module.Loader, reg *natives.Registry) *Engine {
	if reg == nil {
		reg = natives.NewRegistry()
	}
	return &Engine{
		Compiler: comp,
		Loader:   loader,
		Natives:  reg,
		Stdout:   os.Stdout,
	}
}

// Interpret compiles and runs a top-level script, the first external
// entry point. A compile failure never constructs a VM.
func (e *Engine) Interpret(source string) (Status, error) {
	if e.Compiler == nil {
		return StatusCompileError, ErrNoCompiler
	}
	prog, err := e.Compiler.Compile(source)
	if err != nil {
		return StatusCompileError, err
	}
	return e.run(prog)
}

// InterpretModule loads and runs path as a top-level module through the
// same cache/cycle/mtime pipeline IMPORT uses, the second external entry
// point, requiring a Loader to have been configured.
func (e *Engine) InterpretModule(path string) (Status, error) {
	if e.Loader == nil {
		return StatusRuntimeError, module.ErrModuleNotFound
	}
	if _, err := e.Loader.Import(path); err != nil {
		return StatusRuntimeError, err
	}
	return StatusOK, nil
}

func (e *Engine) run(prog *compiler.Program) (Status, error) {
	stackVM := vm.New(prog.Main)
	stackVM.Functions = prog.Functions
	stackVM.Natives = e.Natives.StackTable()
	if e.Loader != nil {
		stackVM.Importer = module.StackBinding{Loader: e.Loader}
	}
	stackVM.Stdout = e.stdout()
	stackVM.Trace = e.Trace
	stackVM.SetLoopLimit(e.LoopLimit)

	status, err := stackVM.Run()
	if err != nil {
		return StatusRuntimeError, err
	}
	return status, nil
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}
