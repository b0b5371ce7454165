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

// Run executes the VM's chunk from its current instruction pointer until a
// RETURN at the top frame, an uncaught error, or the code runs out.
// It returns the Orus-level status together with any Go error describing a
// RUNTIME_ERROR outcome.
func (vm *VM) Run() (Status, error) {
	for {
		if vm.ip >= vm.chunk.Len() {
			return StatusOK, nil
		}
		op, err := vm.readByte()
		if err != nil {
			return vm.fail(value.ErrClassRuntime, err)
		}
		vm.maybeCollect()

		if vm.Trace {
			fmt.Fprintf(vm.Stdout, "# vm=%s ip=%d op=%s\n", vm.id, vm.ip-1, Opcode(op))
		}

		halt, status, runErr := vm.dispatch(Opcode(op))
		if runErr != nil {
			if handled := vm.tryHandle(runErr); handled {
				continue
			}
			return StatusRuntimeError, runErr
		}
		if halt {
			return status, nil
		}
	}
}

// dispatch executes a single decoded instruction. halt is true once a
// top-level RETURN has popped the last call frame.
func (vm *VM) dispatch(op Opcode) (halt bool, status Status, err error) {
	switch op {
	case OpConstant:
		idx, e := vm.readByte()
		if e != nil {
			return false, 0, e
		}
		c, e := vm.chunk.GetConstant(int(idx))
		if e != nil {
			return false, 0, e
		}
		return false, 0, vm.push(c)

	case OpConstantLong:
		idx, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		c, e := vm.chunk.GetConstant(int(idx))
		if e != nil {
			return false, 0, e
		}
		return false, 0, vm.push(c)

	case OpI64Const:
		idx, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		c, e := vm.chunk.GetConstant(int(idx))
		if e != nil {
			return false, 0, e
		}
		return false, 0, vm.push(c)

	case OpNil:
		return false, 0, vm.push(value.Nil())

	case OpPop:
		_, e := vm.pop()
		return false, 0, e

	case OpDefineGlobal:
		idx, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		v, e := vm.pop()
		if e != nil {
			return false, 0, e
		}
		vm.ensureGlobalCapacity(int(idx))
		vm.globals[idx] = v
		return false, 0, nil

	case OpGetGlobal:
		idx, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		slot, e := vm.globalSlot(int(idx))
		if e != nil {
			return false, 0, e
		}
		return false, 0, vm.push(*slot)

	case OpSetGlobal:
		idx, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		v, e := vm.pop()
		if e != nil {
			return false, 0, e
		}
		slot, e := vm.globalSlot(int(idx))
		if e != nil {
			return false, 0, e
		}
		*slot = v
		return false, 0, vm.push(v)

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg,
		OpAddGeneric, OpSubGeneric, OpMulGeneric, OpDivGeneric, OpModGeneric, OpNegGeneric:
		e := vm.execArith(op)
		return false, 0, e

	case OpBitAnd, OpBitOr, OpBitXor, OpBitNot, OpShl, OpShr:
		e := vm.execBitwise(op)
		return false, 0, e

	case OpEqual, OpNotEqual,
		OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpLessGeneric, OpLessEqualGeneric, OpGreaterGeneric, OpGreaterEqualGeneric:
		e := vm.execCompare(op)
		return false, 0, e

	case OpCast:
		e := vm.execCast()
		return false, 0, e

	case OpToString:
		e := vm.execToString()
		return false, 0, e

	case OpJump:
		off, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		vm.ip = int(off)
		return false, 0, nil

	case OpJumpIfFalse:
		off, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		v, e := vm.peek(0)
		if e != nil {
			return false, 0, e
		}
		if !v.IsTruthy() {
			vm.ip = int(off)
		}
		return false, 0, nil

	case OpJumpIfTrue:
		off, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		v, e := vm.peek(0)
		if e != nil {
			return false, 0, e
		}
		if v.IsTruthy() {
			vm.ip = int(off)
		}
		return false, 0, nil

	case OpJumpIfLtI64:
		off, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		b, e := vm.pop()
		if e != nil {
			return false, 0, e
		}
		a, e := vm.pop()
		if e != nil {
			return false, 0, e
		}
		if a.Kind() != value.KindI64 || b.Kind() != value.KindI64 {
			return false, 0, fmt.Errorf("%w: JUMP_IF_LT_I64 requires i64 operands", ErrTypeMismatch)
		}
		if a.AsI64() < b.AsI64() {
			vm.ip = int(off)
		}
		return false, 0, nil

	case OpLoop:
		off, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		if vm.loopLimit > 0 {
			vm.loopIters++
			if vm.loopIters > vm.loopLimit {
				return false, 0, ErrLoopLimit
			}
		}
		vm.ip = int(off)
		return false, 0, nil

	case OpBreak, OpContinue:
		return false, 0, ErrUnreachable

	case OpSetupExcept:
		off, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		catchVar, e := vm.readByte()
		if e != nil {
			return false, 0, e
		}
		if len(vm.tryFrames) >= TryMax {
			return false, 0, ErrTryOverflow
		}
		vm.tryFrames = append(vm.tryFrames, TryFrame{
			HandlerIP:  int(off),
			CatchVar:   int(catchVar),
			StackDepth: len(vm.stack),
		})
		return false, 0, nil

	case OpPopExcept:
		if len(vm.tryFrames) == 0 {
			return false, 0, fmt.Errorf("%w: POP_EXCEPT with no active try frame", ErrTypeMismatch)
		}
		vm.tryFrames = vm.tryFrames[:len(vm.tryFrames)-1]
		return false, 0, nil

	case OpCall:
		return vm.execCall()

	case OpCallNative:
		e := vm.execCallNative()
		return false, 0, e

	case OpReturn:
		return vm.execReturn()

	case OpMakeArray, OpArrayGet, OpArraySet, OpArrayPush, OpArrayPop, OpArrayReserve,
		OpLenArray, OpLenString, OpSubstring, OpSlice, OpConcat, OpTypeOf:
		e := vm.execAggregate(op)
		return false, 0, e

	case OpGCPause:
		vm.gcPaused = true
		return false, 0, nil

	case OpGCResume:
		vm.gcPaused = false
		return false, 0, nil

	case OpPrint, OpPrintNoNL, OpPrintTyped, OpFormatPrint, OpFormatPrintNoNL:
		e := vm.execPrint(op)
		return false, 0, e

	case OpImport:
		idx, e := vm.readUint16()
		if e != nil {
			return false, 0, e
		}
		e = vm.execImport(int(idx))
		return false, 0, e

	default:
		return false, 0, fmt.Errorf("%w: %d", ErrInvalidOpcode, op)
	}
}

// fail converts a Go error into a RuntimeError carrying a VAL_ERROR value.
func (vm *VM) fail(class value.ErrorClass, err error) (Status, error) {
	return StatusRuntimeError, vm.classify(class, err)
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

// tryHandle unwinds to the innermost try frame if one exists, binding the
// error value into its catch global and resuming at its handler address.
// It returns false (propagate) when no try frame is active.
func (vm *VM) tryHandle(err error) bool {
	if len(vm.tryFrames) == 0 {
		vm.hasError = true
		vm.lastError = vm.errorValueFor(err)
		return false
	}
	frame := vm.tryFrames[len(vm.tryFrames)-1]
	vm.tryFrames = vm.tryFrames[:len(vm.tryFrames)-1]

	errVal := vm.errorValueFor(err)
	vm.lastError = errVal
	vm.hasError = true

	if len(vm.stack) > frame.StackDepth {
		vm.stack = vm.stack[:frame.StackDepth]
	}
	vm.rebuildI64Stack()

	vm.ensureGlobalCapacity(frame.CatchVar)
	vm.globals[frame.CatchVar] = errVal
	vm.ip = frame.HandlerIP
	vm.hasError = false
	return true
}

func (vm *VM) errorValueFor(err error) value.Value {
	if rt, ok := err.(*RuntimeError); ok && rt.Value.Kind() == value.KindError {
		return rt.Value
	}
	class := value.ErrClassRuntime
	if rt, ok := err.(*RuntimeError); ok {
		class = rt.Class
	}
	return value.FromObject(value.KindError, value.NewErrorObject(class, err.Error(), 0, 0))
}
