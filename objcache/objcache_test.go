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

package objcache

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/compiler"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// valueComparer lets cmp.Diff look inside value.Value, which keeps its tag
// and payload unexported: two values are equal if their kind matches and,
// for string values, their text matches, otherwise their raw bit pattern
// matches (sufficient for the scalar constants this cache round-trips).
var valueComparer = cmp.Comparer(func(a, b value.Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if a.Kind() == value.KindString {
		return a.AsString() == b.AsString()
	}
	return a.Bits() == b.Bits()
})

func sampleProgram() *compiler.Program {
	main := bytecode.NewChunk()
	idx := main.AddConstant(value.I32(7))
	main.WriteByte(byte(vm.OpConstant), 1, 1)
	main.WriteByte(byte(idx), 1, 1)
	main.WriteByte(byte(vm.OpDefineGlobal), 1, 1)
	main.WriteByte(0, 1, 1)
	main.WriteByte(0, 1, 1)

	fn := bytecode.NewChunk()
	fn.WriteByte(byte(vm.OpNil), 2, 1)
	fn.WriteByte(byte(vm.OpReturn), 2, 1)

	return &compiler.Program{
		Main:      main,
		Functions: []vm.FunctionInfo{{Name: "helper", Chunk: fn, Arity: 2}},
		Exports:   map[string]int{"answer": 0},
	}
}

// chunksEqual compares two Chunks field by field; bytecode.Chunk carries
// unexported run-length bookkeeping that cmp can't see, so the test checks
// the two observable surfaces directly instead of a blanket cmp.Diff.
func chunksEqual(t *testing.T, got, want *bytecode.Chunk) {
	t.Helper()
	if diff := cmp.Diff(want.Code, got.Code); diff != "" {
		t.Errorf("chunk code mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Constants, got.Constants, valueComparer); diff != "" {
		t.Errorf("chunk constants mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	prog := sampleProgram()
	mtime := time.Unix(1700000000, 0)

	if err := store.Save("pkg/mod", mtime, prog); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load("pkg/mod", mtime)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	chunksEqual(t, got.Main, prog.Main)
	if len(got.Functions) != 1 || got.Functions[0].Name != "helper" || got.Functions[0].Arity != 2 {
		t.Fatalf("functions mismatch: %+v", got.Functions)
	}
	chunksEqual(t, got.Functions[0].Chunk, prog.Functions[0].Chunk)
	if diff := cmp.Diff(prog.Exports, got.Exports); diff != "" {
		t.Errorf("exports mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissesOnMtimeMismatch(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	prog := sampleProgram()

	if err := store.Save("pkg/mod", time.Unix(100, 0), prog); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := store.Load("pkg/mod", time.Unix(200, 0)); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestLoadMissesOnMissingFile(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Load("never/saved", time.Unix(1, 0)); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestLoadMissesOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	prog := sampleProgram()
	mtime := time.Unix(1, 0)
	if err := store.Save("pkg/mod", mtime, prog); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Truncate the cache file to simulate a partial write.
	path := store.fileFor("pkg/mod")
	if err := os.Truncate(path, 4); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	if _, err := store.Load("pkg/mod", mtime); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}
