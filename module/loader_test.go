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

package module

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/compiler"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// programFor builds a tiny script that defines global 0 to constant v and
// exports it as name, mirroring the DEFINE_GLOBAL-then-export shape a real
// compiler would emit for "pub let <name> = <v>".
func programFor(v value.Value, exportName string) *compiler.Program {
	c := bytecode.NewChunk()
	idx := c.AddConstant(v)
	c.WriteByte(byte(vm.OpConstant), 1, 1)
	c.WriteByte(byte(idx), 1, 1)
	c.WriteByte(byte(vm.OpDefineGlobal), 1, 1)
	c.WriteByte(0, 1, 1)
	c.WriteByte(0, 1, 1)
	return &compiler.Program{Main: c, Exports: map[string]int{exportName: 0}}
}

// stubResolver resolves each path to its canned Source, DiskPath and Mtime
// included. Dev-mode staleness checks still stat a Source's DiskPath on the
// real filesystem, so tests that exercise them point DiskPath at a real file.
type stubResolver struct {
	sources map[string]Source
}

func (r *stubResolver) Resolve(path string) (Source, error) {
	src, ok := r.sources[path]
	if !ok {
		return Source{}, ErrModuleNotFound
	}
	return src, nil
}

// stubCompiler returns a fixed Program regardless of source text, letting
// tests control exactly what a "compile" produces.
type stubCompiler struct {
	program *compiler.Program
	calls   int
}

func (c *stubCompiler) Compile(source string) (*compiler.Program, error) {
	c.calls++
	return c.program, nil
}

// selfImportCompiler's Program recursively imports its own path, used to
// exercise cycle detection without a second module.
type selfImportCompiler struct{ path string }

func (c *selfImportCompiler) Compile(source string) (*compiler.Program, error) {
	ch := bytecode.NewChunk()
	pathIdx := ch.AddConstant(value.FromObject(value.KindString, value.NewStringObject(c.path)))
	ch.WriteByte(byte(vm.OpImport), 1, 1)
	ch.WriteByte(byte(pathIdx>>8), 1, 1)
	ch.WriteByte(byte(pathIdx), 1, 1)
	return &compiler.Program{Main: ch}, nil
}

func TestImportBindsExportedGlobal(t *testing.T) {
	comp := &stubCompiler{program: programFor(value.I32(42), "answer")}
	loader := NewLoader(&stubResolver{sources: map[string]Source{"m": {Text: "irrelevant"}}}, comp)

	exports, err := loader.Import("m")
	require.NoError(t, err)
	require.Equal(t, int32(42), exports["answer"].AsI32())
}

func TestImportCycleDetected(t *testing.T) {
	comp := &selfImportCompiler{path: "self"}
	loader := NewLoader(&stubResolver{sources: map[string]Source{"self": {Text: "x"}}}, comp)

	_, err := loader.Import("self")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrImportCycle), "got %v", err)
}

func TestSecondImportAlreadyExecuted(t *testing.T) {
	comp := &stubCompiler{program: programFor(value.I32(1), "x")}
	loader := NewLoader(&stubResolver{sources: map[string]Source{"m": {Text: "x"}}}, comp)

	_, err := loader.Import("m")
	require.NoError(t, err)

	_, err = loader.Import("m")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAlreadyExecuted), "got %v", err)
}

func TestDevModeRecompilesOnMtimeChange(t *testing.T) {
	diskPath := filepath.Join(t.TempDir(), "m.orus")
	require.NoError(t, os.WriteFile(diskPath, []byte("v1"), 0o644))
	require.NoError(t, os.Chtimes(diskPath, time.Unix(100, 0), time.Unix(100, 0)))

	comp := &stubCompiler{program: programFor(value.I32(1), "x")}
	resolver := &stubResolver{sources: map[string]Source{
		"m": {Text: "v1", DiskPath: diskPath, Mtime: time.Unix(100, 0)},
	}}
	loader := NewLoader(resolver, comp)
	loader.DevMode = true

	_, err := loader.Import("m")
	require.NoError(t, err)
	require.Equal(t, 1, comp.calls)

	// First import executed the cached module, so without a source change a
	// second import would hit ErrAlreadyExecuted on the *same* cached
	// record. Simulate an edited source by bumping the disk file's mtime,
	// which should force a fresh Module (Executed reset) instead of reusing
	// the stale one's "already executed" state.
	require.NoError(t, os.Chtimes(diskPath, time.Unix(200, 0), time.Unix(200, 0)))
	resolver.sources["m"] = Source{Text: "v2", DiskPath: diskPath, Mtime: time.Unix(200, 0)}

	_, err = loader.Import("m")
	require.NoError(t, err)
	require.Equal(t, 2, comp.calls)
}

func TestDevModeOffKeepsAlreadyExecuted(t *testing.T) {
	comp := &stubCompiler{program: programFor(value.I32(1), "x")}
	resolver := &stubResolver{sources: map[string]Source{
		"m": {Text: "v1", DiskPath: "m.orus", Mtime: time.Unix(100, 0)},
	}}
	loader := NewLoader(resolver, comp)

	_, err := loader.Import("m")
	require.NoError(t, err)

	resolver.sources["m"] = Source{Text: "v2", DiskPath: "m.orus", Mtime: time.Unix(200, 0)}

	_, err = loader.Import("m")
	require.True(t, errors.Is(err, ErrAlreadyExecuted), "got %v", err)
}

func TestMissingModuleNotFound(t *testing.T) {
	loader := NewLoader(&stubResolver{sources: map[string]Source{}}, &stubCompiler{})
	_, err := loader.Import("nope")
	require.True(t, errors.Is(err, ErrModuleNotFound), "got %v", err)
}
