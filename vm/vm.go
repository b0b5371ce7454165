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

// Package vm implements the Orus stack interpreter: a dispatch loop over a
// value stack, call frames and try frames, running a bytecode.Chunk.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/gc"
	"github.com/orus-lang/orus-vm/value"
)

const (
	// StackMax is the maximum depth of the value stack.
	StackMax = 4096
	// FramesMax is the maximum depth of nested call frames.
	FramesMax = 256
	// TryMax is the maximum depth of nested try frames.
	TryMax = 64
	// gcInterval is how many dispatched instructions elapse between
	// automatic collections, a periodic-bookkeeping cadence rather than
	// collecting on every allocation.
	gcInterval = 10000
)

// VM is one stack-interpreter instance. The zero value is not usable; use
// New.
type VM struct {
	chunk *bytecode.Chunk
	ip    int

	stack    []value.Value
	i64Stack []int64

	frames    []CallFrame
	tryFrames []TryFrame

	globals     []value.Value
	globalNames []string

	Functions []FunctionInfo
	Natives   []NativeInfo
	Importer  Importer

	Heap *gc.Heap

	lastError value.Value
	hasError  bool

	gcPaused     bool
	instrCount   int
	loopLimit    int // 0 disables the loop-safety check
	loopIters    int

	Stdout io.Writer

	Trace bool

	// id identifies this VM instance in ORUS_TRACE output, so interleaved
	// module executions (one VM per IMPORT) can be told apart in the log.
	id string
}

// New creates a VM ready to run chunk from instruction 0.
func New(chunk *bytecode.Chunk) *VM {
	return &VM{
		chunk:  chunk,
		Heap:   gc.NewHeap(0),
		Stdout: os.Stdout,
		id:     uuid.New().String()[:8],
	}
}

// ID returns the short instance identifier this VM tags its trace lines
// with.
func (vm *VM) ID() string { return vm.id }

// GCRoots implements gc.Roots: every Value directly reachable from the
// interpreter's live state.
func (vm *VM) GCRoots() []value.Value {
	roots := make([]value.Value, 0, len(vm.stack)+len(vm.globals)+2)
	roots = append(roots, vm.stack...)
	roots = append(roots, vm.globals...)
	if vm.hasError {
		roots = append(roots, vm.lastError)
	}
	return roots
}

// SetLoopLimit sets the optional backward-jump iteration budget for
// runtime loop safety. Zero disables the check.
func (vm *VM) SetLoopLimit(n int) { vm.loopLimit = n }

// ---- Stack primitives -------------------------------------------------

func (vm *VM) push(v value.Value) error {
	if len(vm.stack) >= StackMax {
		return ErrStackOverflow
	}
	vm.stack = append(vm.stack, v)
	if v.Kind() == value.KindI64 {
		vm.i64Stack = append(vm.i64Stack, v.AsI64())
	}
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return value.Value{}, ErrStackUnderflow
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	if v.Kind() == value.KindI64 {
		vm.i64Stack = vm.i64Stack[:len(vm.i64Stack)-1]
	}
	return v, nil
}

func (vm *VM) peek(distance int) (value.Value, error) {
	idx := len(vm.stack) - 1 - distance
	if idx < 0 {
		return value.Value{}, ErrStackUnderflow
	}
	return vm.stack[idx], nil
}

// rebuildI64Stack restores the auxiliary i64 shadow stack by rescanning the
// main stack, used after RETURN truncates the stack back to the caller's
// base.
func (vm *VM) rebuildI64Stack() {
	vm.i64Stack = vm.i64Stack[:0]
	for _, v := range vm.stack {
		if v.Kind() == value.KindI64 {
			vm.i64Stack = append(vm.i64Stack, v.AsI64())
		}
	}
}

// ---- Byte stream reading -----------------------------------------------

func (vm *VM) readByte() (byte, error) {
	b, err := vm.chunk.ReadByte(vm.ip)
	if err != nil {
		return 0, err
	}
	vm.ip++
	return b, nil
}

func (vm *VM) readUint16() (uint16, error) {
	hi, err := vm.readByte()
	if err != nil {
		return 0, err
	}
	lo, err := vm.readByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func (vm *VM) globalSlot(idx int) (*value.Value, error) {
	if idx < 0 || idx >= len(vm.globals) {
		return nil, fmt.Errorf("%w: global index %d", ErrIndexOutOfRange, idx)
	}
	return &vm.globals[idx], nil
}

// ensureGlobalCapacity grows globals/globalNames so idx is a valid slot,
// used by DEFINE_GLOBAL and by a catching try frame before indexing into
// them; GET_GLOBAL/SET_GLOBAL reject an out-of-range idx instead.
func (vm *VM) ensureGlobalCapacity(idx int) {
	for len(vm.globals) <= idx {
		vm.globals = append(vm.globals, value.Nil())
		vm.globalNames = append(vm.globalNames, "")
	}
}

// Globals returns the live global slots, used by the module loader to copy
// a module's public exports after it finishes executing.
func (vm *VM) Globals() []value.Value { return vm.globals }

// GlobalNames returns the name recorded for each global slot.
func (vm *VM) GlobalNames() []string { return vm.globalNames }

// DefineGlobal appends a new global slot bound to name and returns its
// index, used by the module loader (package module) to bind an imported
// module's exports into the importing VM's global table.
func (vm *VM) DefineGlobal(name string, v value.Value) int {
	idx := len(vm.globals)
	vm.globals = append(vm.globals, v)
	vm.globalNames = append(vm.globalNames, name)
	return idx
}

func (vm *VM) maybeCollect() {
	vm.instrCount++
	if vm.gcPaused || vm.instrCount < gcInterval {
		return
	}
	vm.instrCount = 0
	vm.Heap.Collect(vm)
}
