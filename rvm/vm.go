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

// Package rvm implements the register-machine counterpart to package vm:
// the same dispatch-loop architecture and value model, but executing the
// fixed-width register instructions package lower produces instead of a
// stack bytecode.Chunk. Every call frame owns a fixed RegisterCount window
// carved out of one flat, growable register file, mirroring how package
// vm's CallFrame.Base slices into one growable value stack.
package rvm

import (
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/orus-lang/orus-vm/gc"
	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/value"
)

// NativeFn is the register VM's native-function ABI, mirroring
// vm.NativeFn: args are materialized into a slice, failure is reported via
// SignalNativeError rather than a Go error return.
type NativeFn func(vm *VM, args []value.Value) value.Value

// NativeInfo describes one registered native function.
type NativeInfo struct {
	Name  string
	Arity int // -1 means variadic
	Fn    NativeFn
}

// Importer is implemented by the module loader and installed on a VM so
// IMPORT can resolve, compile and execute a module by path. Kept as its
// own interface (rather than reusing vm.Importer) since it is parameterized
// over *rvm.VM, not *vm.VM.
type Importer interface {
	Import(vm *VM, path string) error
}

// CallFrame records how to resume the caller once RETURN pops this frame:
// its register window's base offset, the return instruction index, and the
// function-table index it's executing (for trace/debug output).
type CallFrame struct {
	ReturnIP   int
	Base       int // this frame's absolute register-file offset
	CallerBase int // the caller's base to restore on RETURN
	FuncIdx    int
}

// TryFrame mirrors vm.TryFrame: the handler to resume at and which global
// the caught error value is bound into, captured when SETUP_EXCEPT runs.
type TryFrame struct {
	HandlerIP int
	CatchVar  int
	RegTop    int // register-file base of the frame active at SETUP_EXCEPT, restored on catch
}

const (
	// FramesMax is the maximum depth of nested call frames.
	FramesMax = 256
	// TryMax is the maximum depth of nested try frames.
	TryMax = 64
	gcInterval = 10000
)

// VM is one register-interpreter instance. The zero value is not usable;
// use New.
type VM struct {
	rc *rbytecode.Chunk
	ip int

	regs []value.Value // flat register file; frame N's window is regs[frame.Base : frame.Base+RegisterCount]
	base int            // current frame's register-file base offset

	frames    []CallFrame
	tryFrames []TryFrame

	// spills holds the current frame's SPILL_REG/UNSPILL_REG slots
	// (lower's allocator resets spill-slot numbering at every function
	// boundary, so each frame gets its own); spillStack saves the
	// caller's slots across a CALL the way frames saves everything else.
	spills     []value.Value
	spillStack [][]value.Value

	globals     []value.Value
	globalNames []string

	Natives  []NativeInfo
	Importer Importer

	Heap *gc.Heap

	lastError value.Value
	hasError  bool

	gcPaused   bool
	instrCount int
	loopLimit  int
	loopIters  int

	Stdout io.Writer
	Trace  bool

	// id identifies this VM instance in ORUS_TRACE output, so interleaved
	// module executions (one register VM per IMPORT) can be told apart.
	id string
}

// New creates a register VM ready to run rc from instruction 0.
func New(rc *rbytecode.Chunk) *VM {
	vm := &VM{
		rc:     rc,
		Heap:   gc.NewHeap(0),
		Stdout: os.Stdout,
		id:     uuid.New().String()[:8],
	}
	vm.regs = make([]value.Value, rbytecode.RegisterCount)
	return vm
}

// ID returns the short instance identifier this VM tags its trace lines
// with.
func (vm *VM) ID() string { return vm.id }

// SetLoopLimit sets the optional backward-jump iteration budget, mirroring
// vm.VM.SetLoopLimit.
func (vm *VM) SetLoopLimit(n int) { vm.loopLimit = n }

// GCRoots implements gc.Roots. The whole register file is reported live
// rather than just the current frame's window, together with the spill
// slots of the current frame and of every suspended caller: tracking
// exactly which windows are still "live" versus stale leftovers from a
// returned frame would need more bookkeeping than this demonstration
// interpreter carries. Reporting the whole file is conservative, not
// unsound — it just keeps a few extra objects alive a little longer.
func (vm *VM) GCRoots() []value.Value {
	roots := make([]value.Value, 0, len(vm.regs)+len(vm.globals)+1)
	roots = append(roots, vm.regs...)
	roots = append(roots, vm.spills...)
	for _, saved := range vm.spillStack {
		roots = append(roots, saved...)
	}
	roots = append(roots, vm.globals...)
	if vm.hasError {
		roots = append(roots, vm.lastError)
	}
	return roots
}

func (vm *VM) maybeCollect() {
	vm.instrCount++
	if vm.gcPaused || vm.instrCount < gcInterval {
		return
	}
	vm.instrCount = 0
	vm.Heap.Collect(vm)
}

// ---- register file ------------------------------------------------------

func (vm *VM) ensureWindow(base int) {
	need := base + rbytecode.RegisterCount
	for len(vm.regs) < need {
		vm.regs = append(vm.regs, make([]value.Value, rbytecode.RegisterCount)...)
	}
}

func (vm *VM) get(r byte) value.Value  { return vm.regs[vm.base+int(r)] }
func (vm *VM) set(r byte, v value.Value) { vm.regs[vm.base+int(r)] = v }

// ---- globals --------------------------------------------------------------

func (vm *VM) globalSlot(idx int) (*value.Value, error) {
	if idx < 0 || idx >= len(vm.globals) {
		return nil, ErrIndexOutOfRange
	}
	return &vm.globals[idx], nil
}

func (vm *VM) ensureGlobalCapacity(idx int) {
	for len(vm.globals) <= idx {
		vm.globals = append(vm.globals, value.Nil())
		vm.globalNames = append(vm.globalNames, "")
	}
}

// Globals returns the live global slots, used by the module loader to seed
// and read back a module's exported globals.
func (vm *VM) Globals() []value.Value { return vm.globals }

// GlobalNames returns the name recorded for each global slot.
func (vm *VM) GlobalNames() []string { return vm.globalNames }

// DefineGlobal appends a new global slot bound to name and returns its
// index, mirroring vm.VM.DefineGlobal so the module loader can bind an
// imported module's exports the same way regardless of which interpreter
// triggered the import.
func (vm *VM) DefineGlobal(name string, v value.Value) int {
	idx := len(vm.globals)
	vm.globals = append(vm.globals, v)
	vm.globalNames = append(vm.globalNames, name)
	return idx
}

// SignalNativeError is called by a NativeFn to report failure through the
// lastError side-channel, mirroring vm.VM.SignalNativeError.
func (vm *VM) SignalNativeError(class value.ErrorClass, message string) {
	vm.lastError = value.FromObject(value.KindError, value.NewErrorObject(class, message, 0, 0))
	vm.hasError = true
}

func (vm *VM) classify(class value.ErrorClass, err error) error {
	if rt, ok := err.(*RuntimeError); ok {
		return rt
	}
	v, allocErr := vm.Heap.NewError(vm, class, err.Error(), 0, 0)
	if allocErr != nil {
		v = value.FromObject(value.KindError, value.NewErrorObject(class, err.Error(), 0, 0))
	}
	rt := newRuntimeError(class, err)
	rt.Value = v
	return rt
}
