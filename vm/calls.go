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

package vm

import (
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

// execCall implements the CALL opcode: the operand names a global slot
// whose value holds a function-table index. Arguments are assumed already
// pushed by the caller.
func (vm *VM) execCall() (bool, Status, error) {
	globalIdx, err := vm.readUint16()
	if err != nil {
		return false, 0, err
	}
	argc, err := vm.readByte()
	if err != nil {
		return false, 0, err
	}
	slot, err := vm.globalSlot(int(globalIdx))
	if err != nil {
		return false, 0, err
	}
	fnIdx := int(slot.AsU32())
	if fnIdx < 0 || fnIdx >= len(vm.Functions) {
		return false, 0, fmt.Errorf("%w: function index %d", ErrIndexOutOfRange, fnIdx)
	}
	fn := vm.Functions[fnIdx]
	if fn.Arity != int(argc) {
		return false, 0, fmt.Errorf("%w: %s expects %d args, got %d", ErrTypeMismatch, fn.Name, fn.Arity, argc)
	}
	if len(vm.frames) >= FramesMax {
		return false, 0, ErrFrameOverflow
	}

	vm.frames = append(vm.frames, CallFrame{
		Chunk:    vm.chunk,
		ReturnIP: vm.ip,
		Base:     len(vm.stack) - int(argc),
		FuncIdx:  fnIdx,
	})
	vm.chunk = fn.Chunk
	vm.ip = 0
	return false, 0, nil
}

// execCallNative invokes a registered native function: args are popped
// off the stack, the result is pushed, and a failure is signaled by the
// native setting vm.lastError via SignalNativeError rather than by a Go
// error return.
func (vm *VM) execCallNative() error {
	nativeIdx, err := vm.readUint16()
	if err != nil {
		return err
	}
	argc, err := vm.readByte()
	if err != nil {
		return err
	}
	if int(nativeIdx) < 0 || int(nativeIdx) >= len(vm.Natives) {
		return fmt.Errorf("%w: native index %d", ErrIndexOutOfRange, nativeIdx)
	}
	native := vm.Natives[nativeIdx]
	if native.Arity >= 0 && native.Arity != int(argc) {
		return fmt.Errorf("%w: native %s expects %d args, got %d", ErrTypeMismatch, native.Name, native.Arity, argc)
	}

	args := make([]value.Value, argc)
	for i := int(argc) - 1; i >= 0; i-- {
		v, e := vm.pop()
		if e != nil {
			return e
		}
		args[i] = v
	}

	vm.hasError = false
	result := native.Fn(vm, args)
	if vm.hasError {
		vm.hasError = false
		return newRuntimeErrorWithValue(vm.lastError)
	}
	return vm.push(result)
}

// SignalNativeError is called by a NativeFn to report failure through the
// lastError side-channel that is the native ABI's error path.
func (vm *VM) SignalNativeError(class value.ErrorClass, message string) {
	vm.lastError = value.FromObject(value.KindError, value.NewErrorObject(class, message, 0, 0))
	vm.hasError = true
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

// execReturn implements RETURN: pop the return value, restore the caller's
// chunk/ip/stack base, rebuild the auxiliary i64 stack, and push the
// return value into the caller's frame. Returning from the outermost frame
// halts the run with StatusOK, also when the stack is already empty there.
func (vm *VM) execReturn() (bool, Status, error) {
	if len(vm.frames) == 0 && len(vm.stack) == 0 {
		return true, StatusOK, nil
	}
	result, err := vm.pop()
	if err != nil {
		return false, 0, err
	}
	if len(vm.frames) == 0 {
		return true, StatusOK, nil
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]

	if len(vm.stack) > frame.Base {
		vm.stack = vm.stack[:frame.Base]
	}
	vm.rebuildI64Stack()

	vm.chunk = frame.Chunk
	vm.ip = frame.ReturnIP
	if err := vm.push(result); err != nil {
		return false, 0, err
	}
	return false, 0, nil
}
