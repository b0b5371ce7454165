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

// Package module implements the module loader and cache. It resolves an
// import path to source (or a precompiled cache hit), compiles it at most
// once, executes its body on the register interpreter, and freezes its
// declared-public globals as the module's exports — with cycle detection
// and, in dev mode, mtime-based cache invalidation.
//
// Modeled on a contract-execution package's shape: a Module here plays the
// role a deployed contract record plays, and Loader.Import plays the role
// an execute-entrypoint function plays — decode/prepare an immutable
// input, run it through the interpreter, collect the output — just
// swapping "blockchain contract" for "imported language module".
package module

import (
	"fmt"
	"io"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/orus-lang/orus-vm/compiler"
	"github.com/orus-lang/orus-vm/lower"
	"github.com/orus-lang/orus-vm/objcache"
	"github.com/orus-lang/orus-vm/rvm"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// defaultCacheSize bounds how many compiled Module records the in-memory
// LRU index holds live at once.
const defaultCacheSize = 256

// Module is the cached record for one resolved import path: its compiled
// unit, its position in the embedded/disk world, and — once it has run —
// its frozen, read-only exports — exports are read-only once the module
// has executed.
type Module struct {
	Name         string
	Path         string
	DiskPath     string
	FromEmbedded bool
	Mtime        time.Time

	Program *compiler.Program

	Executed bool
	Exports  map[string]value.Value
}

// Loader owns the module cache and every collaborator needed to go from an
// import path to executed exports: path resolution, compilation (or a
// precompiled on-disk hit), lowering to register IR, and execution.
type Loader struct {
	Resolver Resolver
	Compiler compiler.Compiler
	Cache    *objcache.Store // nil disables the on-disk compiled-unit cache
	DevMode  bool

	// RegisterNatives are installed on every module's register VM so
	// natives resolve consistently whether the importer was the stack
	// interpreter or the register interpreter.
	RegisterNatives []rvm.NativeInfo
	LowerOptions    lower.Options
	LoopLimit       int
	Trace           bool
	Stdout          io.Writer

	cache   *lru.Cache
	loading []string
}

// NewLoader builds a Loader around resolver and comp with an LRU module
// cache of the default size.
func NewLoader(resolver Resolver, comp compiler.Compiler) *Loader {
	c, _ := lru.New(defaultCacheSize)
	return &Loader{
		Resolver: resolver,
		Compiler: comp,
		Stdout:   os.Stdout,
		cache:    c,
	}
}

// StackBinding adapts Loader to vm.Importer, used when the stack
// interpreter's IMPORT opcode triggers a module load.
type StackBinding struct{ *Loader }

func (b StackBinding) Import(caller *vm.VM, path string) error {
	exports, err := b.Loader.Import(path)
	if err != nil {
		return err
	}
	for name, v := range exports {
		caller.DefineGlobal(name, v)
	}
	return nil
}

// RegisterBinding adapts Loader to rvm.Importer, used when the register
// interpreter's IMPORT instruction (reached via a module importing another
// module) triggers a load.
type RegisterBinding struct{ *Loader }

func (b RegisterBinding) Import(caller *rvm.VM, path string) error {
	exports, err := b.Loader.Import(path)
	if err != nil {
		return err
	}
	for name, v := range exports {
		caller.DefineGlobal(name, v)
	}
	return nil
}

// Import implements the IMPORT(path) algorithm end to end: cycle
// detection, cache lookup with dev-mode mtime invalidation, load and
// execute on first use, and "already executed" enforcement on reuse. Both
// interpreters' Importer bindings call this, and so does package engine's
// InterpretModule for the CLI's top-level module entry point — module
// bodies always run on the register interpreter regardless of who asked.
func (l *Loader) Import(path string) (map[string]value.Value, error) {
	for _, p := range l.loading {
		if p == path {
			return nil, fmt.Errorf("%w for module %q", ErrImportCycle, path)
		}
	}
	l.loading = append(l.loading, path)
	defer func() { l.loading = l.loading[:len(l.loading)-1] }()

	mod, err := l.lookupOrLoad(path)
	if err != nil {
		return nil, err
	}
	if mod.Executed {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExecuted, path)
	}
	if err := l.execute(mod); err != nil {
		return nil, err
	}
	return mod.Exports, nil
}

// lookupOrLoad returns the cached Module for path, re-resolving it first if
// DevMode is set and the disk file's mtime has moved on, or loading it
// fresh if this is the first time path has been seen.
func (l *Loader) lookupOrLoad(path string) (*Module, error) {
	if cached, ok := l.cache.Get(path); ok {
		mod := cached.(*Module)
		if l.DevMode && !mod.FromEmbedded && mod.DiskPath != "" {
			current, err := Stat(mod.DiskPath)
			if err != nil {
				return nil, err
			}
			if current.UnixNano() != mod.Mtime.UnixNano() {
				fresh, err := l.load(path)
				if err != nil {
					return nil, err
				}
				l.cache.Add(path, fresh)
				return fresh, nil
			}
		}
		return mod, nil
	}
	mod, err := l.load(path)
	if err != nil {
		return nil, err
	}
	l.cache.Add(path, mod)
	return mod, nil
}

// load resolves and, if needed, compiles path into a fresh, not-yet-run
// Module, consulting the on-disk objcache.Store first when one is
// configured: load a precompiled chunk keyed by source mtime if present,
// otherwise parse and compile, optionally persisting the result back to
// the cache.
func (l *Loader) load(path string) (*Module, error) {
	src, err := l.Resolver.Resolve(path)
	if err != nil {
		return nil, err
	}

	var prog *compiler.Program
	if l.Cache != nil && !src.FromEmbedded {
		if cached, err := l.Cache.Load(path, src.Mtime); err == nil {
			prog = cached
		}
	}
	if prog == nil {
		if l.Compiler == nil {
			return nil, ErrNoCompiler
		}
		compiled, err := l.Compiler.Compile(src.Text)
		if err != nil {
			return nil, err
		}
		prog = compiled
		if l.Cache != nil && !src.FromEmbedded {
			_ = l.Cache.Save(path, src.Mtime, prog)
		}
	}

	return &Module{
		Name:         path,
		Path:         path,
		DiskPath:     src.DiskPath,
		FromEmbedded: src.FromEmbedded,
		Mtime:        src.Mtime,
		Program:      prog,
	}, nil
}

// execute lowers mod's stack chunk to register IR and runs it to
// completion, then freezes its declared exports: build an isolated run,
// execute, collect the result.
func (l *Loader) execute(mod *Module) error {
	rc, err := lower.Lower(mod.Program.Main, mod.Program.Functions, l.LowerOptions)
	if err != nil {
		return fmt.Errorf("module %q: %w", mod.Path, err)
	}

	rvmInstance := rvm.New(rc)
	rvmInstance.Natives = l.RegisterNatives
	rvmInstance.Importer = RegisterBinding{l}
	rvmInstance.Stdout = l.Stdout
	rvmInstance.Trace = l.Trace
	rvmInstance.SetLoopLimit(l.LoopLimit)

	if status, runErr := rvmInstance.Run(); runErr != nil {
		return fmt.Errorf("module %q: %s: %w", mod.Path, status, runErr)
	}

	globals := rvmInstance.Globals()
	exports := make(map[string]value.Value, len(mod.Program.Exports))
	for name, idx := range mod.Program.Exports {
		if idx >= 0 && idx < len(globals) {
			exports[name] = globals[idx]
		} else {
			exports[name] = value.Nil()
		}
	}

	mod.Exports = exports
	mod.Executed = true
	return nil
}
