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

package rvm

import (
	"fmt"

	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/value"
)

// execCall implements CALL: the global-index indirection to a
// function-table entry is kept exactly as the stack VM resolves it
// (vm.execCall) — the callee is only known at run time through the global
// slot's value. i.Dst names the register window lower.emitArgWindow built
// for the arguments; the callee's own register window begins at that same
// absolute register-file offset, so no argument copying is needed at the
// call boundary (unlike the stack VM, which only needs a Base index for
// the same reason). The instruction carries no argument count, and the
// callee's Arity in the function table is not checked here.
func (vm2 *VM) execCall(i rbytecode.Instr) (bool, Status, error) {
	globalIdx := int(i.Imm16())
	slot, err := vm2.globalSlot(globalIdx)
	if err != nil {
		return false, 0, err
	}
	fnIdx := int(slot.AsU32())
	if fnIdx < 0 || fnIdx >= len(vm2.rc.Functions) {
		return false, 0, fmt.Errorf("%w: function index %d", ErrIndexOutOfRange, fnIdx)
	}
	fn := vm2.rc.Functions[fnIdx]
	if len(vm2.frames) >= FramesMax {
		return false, 0, ErrFrameOverflow
	}

	newBase := vm2.base + int(i.Dst)
	vm2.ensureWindow(newBase)

	vm2.frames = append(vm2.frames, CallFrame{
		ReturnIP:   vm2.ip,
		Base:       newBase,
		CallerBase: vm2.base,
		FuncIdx:    fnIdx,
	})
	vm2.spillStack = append(vm2.spillStack, vm2.spills)
	vm2.spills = nil
	vm2.base = newBase
	vm2.ip = fn.Offset
	return false, 0, nil
}

// execCallNative invokes a registered native function. Args are read
// straight out of the argument window (no stack pop needed); a failure is
// signaled by the native setting vm.lastError via SignalNativeError, same
// ABI as package vm.
func (vm2 *VM) execCallNative(i rbytecode.Instr) error {
	nativeIdx := int(i.Src2)
	argc := int(i.Src1)
	if nativeIdx < 0 || nativeIdx >= len(vm2.Natives) {
		return fmt.Errorf("%w: native index %d", ErrIndexOutOfRange, nativeIdx)
	}
	native := vm2.Natives[nativeIdx]
	if native.Arity >= 0 && native.Arity != argc {
		return fmt.Errorf("%w: native %s expects %d args, got %d", ErrTypeMismatch, native.Name, native.Arity, argc)
	}

	args := make([]value.Value, argc)
	for k := 0; k < argc; k++ {
		args[k] = vm2.get(i.Dst + byte(k))
	}

	vm2.hasError = false
	result := native.Fn(vm2, args)
	if vm2.hasError {
		vm2.hasError = false
		return newRuntimeErrorWithValue(vm2.lastError)
	}
	vm2.set(i.Dst, result)
	return nil
}

func newRuntimeErrorWithValue(v value.Value) *RuntimeError {
	class := value.ErrClassRuntime
	msg := value.Print(v)
	if v.Kind() == value.KindError {
		class = v.AsError().Class
		msg = v.AsError().Message
	}
	rt := newRuntimeError(class, fmt.Errorf("%s", msg))
	rt.Value = v
	return rt
}

// execReturn implements RETURN: the result register is read from the
// callee's own window before the frame is popped and the caller's window
// restored, then written into the register the caller's CALL used as its
// window base — the exact register lower.stepCall pushed as the call
// expression's result, mirroring how the stack VM reuses frame.Base for
// both purposes.
func (vm2 *VM) execReturn(i rbytecode.Instr) (bool, Status, error) {
	result := vm2.get(i.Src1)
	if len(vm2.frames) == 0 {
		return true, StatusOK, nil
	}
	frame := vm2.frames[len(vm2.frames)-1]
	vm2.frames = vm2.frames[:len(vm2.frames)-1]

	vm2.base = frame.CallerBase
	vm2.regs[frame.Base] = result
	vm2.ip = frame.ReturnIP

	n := len(vm2.spillStack)
	vm2.spills = vm2.spillStack[n-1]
	vm2.spillStack = vm2.spillStack[:n-1]
	return false, 0, nil
}
