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

// Package objcache implements an on-disk compiled-unit cache: an opaque
// serialization of a compiler.Program (the top-level chunk, its function
// table, and its declared export names), prefixed with the source file's
// mtime, stored under ORUS_CACHE_PATH as "<digest>.obc". A corrupt file or
// one whose stored mtime disagrees with the caller's current source mtime
// is discarded rather than trusted, the same "reject, don't guess" stance
// a contract-decoding routine takes on malformed payloads.
package objcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/compiler"
	"github.com/orus-lang/orus-vm/vm"
)

// ErrCacheMiss is returned by Load when no usable cache entry exists for the
// given path/mtime pair (missing file, corrupt payload, or mtime mismatch).
// It is an ordinary miss, not a failure: callers fall back to recompiling.
var ErrCacheMiss = errors.New("objcache: cache miss")

// Store is a directory of serialized compiled-unit caches keyed by a digest
// of the resolved module path: each file is named "<digest>.obc", not after
// the module's basename, which avoids filesystem-hostile characters a raw
// import path might contain (e.g. "a/b::c").
type Store struct {
	Dir string
}

// New returns a Store rooted at dir. The directory is created lazily on the
// first Save.
func New(dir string) *Store { return &Store{Dir: dir} }

// fileFor derives the cache filename for path by hashing rather than using
// the raw string as a lookup key: sha3-256 of the resolved path, hex-encoded
// (truncated to 8 bytes), suffixed ".obc".
func (s *Store) fileFor(path string) string {
	sum := sha3.Sum256([]byte(path))
	return filepath.Join(s.Dir, fmt.Sprintf("%x.obc", sum[:8]))
}

// Load reads back a cached Program for path if one exists and its stored
// mtime exactly matches wantMtime. Any structural problem (short read, bad
// magic, version mismatch, mtime mismatch) is reported as ErrCacheMiss; the
// caller is expected to recompile rather than treat this as fatal.
func (s *Store) Load(path string, wantMtime time.Time) (*compiler.Program, error) {
	data, err := os.ReadFile(s.fileFor(path))
	if err != nil {
		return nil, ErrCacheMiss
	}
	r := &reader{buf: data}
	storedNano, ok := r.u64()
	if !ok || int64(storedNano) != wantMtime.UnixNano() {
		return nil, ErrCacheMiss
	}

	numFuncs, ok := r.u32()
	if !ok {
		return nil, ErrCacheMiss
	}
	functions := make([]vm.FunctionInfo, 0, numFuncs)
	for i := uint32(0); i < numFuncs; i++ {
		name, ok := r.str()
		if !ok {
			return nil, ErrCacheMiss
		}
		arity, ok := r.u32()
		if !ok {
			return nil, ErrCacheMiss
		}
		chunkBytes, ok := r.bytes()
		if !ok {
			return nil, ErrCacheMiss
		}
		c := bytecode.NewChunk()
		if err := c.UnmarshalBinary(chunkBytes); err != nil {
			return nil, ErrCacheMiss
		}
		functions = append(functions, vm.FunctionInfo{Name: name, Chunk: c, Arity: int(arity)})
	}

	mainBytes, ok := r.bytes()
	if !ok {
		return nil, ErrCacheMiss
	}
	main := bytecode.NewChunk()
	if err := main.UnmarshalBinary(mainBytes); err != nil {
		return nil, ErrCacheMiss
	}

	numExports, ok := r.u32()
	if !ok {
		return nil, ErrCacheMiss
	}
	exports := make(map[string]int, numExports)
	for i := uint32(0); i < numExports; i++ {
		name, ok := r.str()
		if !ok {
			return nil, ErrCacheMiss
		}
		idx, ok := r.u32()
		if !ok {
			return nil, ErrCacheMiss
		}
		exports[name] = int(idx)
	}
	if !r.done() {
		return nil, ErrCacheMiss
	}

	return &compiler.Program{Main: main, Functions: functions, Exports: exports}, nil
}

// Save persists prog under path's cache file, prefixed with mtime so a
// future Load can detect a stale entry without re-parsing anything.
func (s *Store) Save(path string, mtime time.Time, prog *compiler.Program) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("objcache: creating cache dir: %w", err)
	}
	w := &writer{}
	w.u64(uint64(mtime.UnixNano()))

	w.u32(uint32(len(prog.Functions)))
	for _, fn := range prog.Functions {
		encoded, err := fn.Chunk.MarshalBinary()
		if err != nil {
			return fmt.Errorf("objcache: encoding function %q: %w", fn.Name, err)
		}
		w.str(fn.Name)
		w.u32(uint32(fn.Arity))
		w.bytes(encoded)
	}

	mainEncoded, err := prog.Main.MarshalBinary()
	if err != nil {
		return fmt.Errorf("objcache: encoding main chunk: %w", err)
	}
	w.bytes(mainEncoded)

	w.u32(uint32(len(prog.Exports)))
	for name, idx := range prog.Exports {
		w.str(name)
		w.u32(uint32(idx))
	}

	tmp := s.fileFor(path) + ".tmp"
	if err := os.WriteFile(tmp, w.buf, 0o644); err != nil {
		return fmt.Errorf("objcache: writing cache file: %w", err)
	}
	return os.Rename(tmp, s.fileFor(path))
}

// ---- little binary helpers, mirroring bytecode.MarshalBinary's style ----

type writer struct{ buf []byte }

func (w *writer) u64(n uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], n)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) u32(n uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], n)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) { w.bytes([]byte(s)) }

type reader struct {
	buf []byte
	pos int
}

func (r *reader) u64() (uint64, bool) {
	if len(r.buf)-r.pos < 8 {
		return 0, false
	}
	n := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return n, true
}

func (r *reader) u32() (uint32, bool) {
	if len(r.buf)-r.pos < 4 {
		return 0, false
	}
	n := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return n, true
}

func (r *reader) bytes() ([]byte, bool) {
	n, ok := r.u32()
	if !ok || uint32(len(r.buf)-r.pos) < n {
		return nil, false
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, true
}

func (r *reader) str() (string, bool) {
	b, ok := r.bytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

func (r *reader) done() bool { return r.pos == len(r.buf) }
