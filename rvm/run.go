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

// Run executes the register chunk from its current instruction index until
// a RETURN at the top frame, an uncaught error, or the code runs out,
// mirroring vm.VM.Run's loop one for one over rbytecode.Instr instead of a
// decoded byte stream.
func (vm *VM) Run() (Status, error) {
	for {
		if vm.ip >= vm.rc.Len() {
			return StatusOK, nil
		}
		instr, err := vm.rc.At(vm.ip)
		if err != nil {
			return vm.fail(value.ErrClassRuntime, err)
		}
		vm.ip++
		vm.maybeCollect()

		if vm.Trace {
			fmt.Fprintf(vm.Stdout, "# vm=%s ip=%d op=%s\n", vm.id, vm.ip-1, instr.Op)
		}

		halt, status, runErr := vm.dispatch(instr)
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

func (vm *VM) fail(class value.ErrorClass, err error) (Status, error) {
	return StatusRuntimeError, vm.classify(class, err)
}

func (vm *VM) dispatch(i rbytecode.Instr) (halt bool, status Status, err error) {
	switch i.Op {
	case rbytecode.RMov:
		vm.set(i.Dst, vm.get(i.Src1))
		return false, 0, nil

	case rbytecode.RLoadConst:
		c, e := vm.rc.GetConstant(int(i.Imm16()))
		if e != nil {
			return false, 0, e
		}
		vm.set(i.Dst, c)
		return false, 0, nil

	case rbytecode.RNil:
		vm.set(i.Dst, value.Nil())
		return false, 0, nil

	case rbytecode.RLoadGlobal:
		slot, e := vm.globalSlot(int(i.Imm16()))
		if e != nil {
			return false, 0, e
		}
		vm.set(i.Dst, *slot)
		return false, 0, nil

	case rbytecode.RStoreGlobal:
		idx := int(i.Imm16())
		vm.ensureGlobalCapacity(idx)
		vm.globals[idx] = vm.get(i.Dst)
		return false, 0, nil

	case rbytecode.RAdd, rbytecode.RSub, rbytecode.RMul, rbytecode.RDiv, rbytecode.RMod, rbytecode.RNeg,
		rbytecode.RAddGeneric, rbytecode.RSubGeneric, rbytecode.RMulGeneric, rbytecode.RDivGeneric,
		rbytecode.RModGeneric, rbytecode.RNegGeneric:
		return false, 0, vm.execArith(i)

	case rbytecode.RBitAnd, rbytecode.RBitOr, rbytecode.RBitXor, rbytecode.RBitNot, rbytecode.RShl, rbytecode.RShr:
		return false, 0, vm.execBitwise(i)

	case rbytecode.REqual, rbytecode.RNotEqual,
		rbytecode.RLess, rbytecode.RLessEqual, rbytecode.RGreater, rbytecode.RGreaterEqual,
		rbytecode.RLessGeneric, rbytecode.RLessEqualGeneric, rbytecode.RGreaterGeneric, rbytecode.RGreaterEqualGeneric:
		return false, 0, vm.execCompare(i)

	case rbytecode.RCast:
		return false, 0, vm.execCast(i)

	case rbytecode.RToString:
		return false, 0, vm.execToString(i)

	case rbytecode.RJump, rbytecode.RLoop:
		if i.Op == rbytecode.RLoop && vm.loopLimit > 0 {
			vm.loopIters++
			if vm.loopIters > vm.loopLimit {
				return false, 0, ErrLoopLimit
			}
		}
		vm.ip = int(i.Dst)
		return false, 0, nil

	case rbytecode.RJumpIfFalse:
		if !vm.get(i.Src1).IsTruthy() {
			vm.ip = int(i.Dst)
		}
		return false, 0, nil

	case rbytecode.RJumpIfTrue:
		if vm.get(i.Src1).IsTruthy() {
			vm.ip = int(i.Dst)
		}
		return false, 0, nil

	case rbytecode.RJumpIfLtI64:
		a, b := vm.get(i.Src1), vm.get(i.Src2)
		if a.Kind() != value.KindI64 || b.Kind() != value.KindI64 {
			return false, 0, fmt.Errorf("%w: JUMP_IF_LT_I64 requires i64 operands", ErrTypeMismatch)
		}
		if a.AsI64() < b.AsI64() {
			vm.ip = int(i.Dst)
		}
		return false, 0, nil

	case rbytecode.RSetupExcept:
		if len(vm.tryFrames) >= TryMax {
			return false, 0, ErrTryOverflow
		}
		vm.tryFrames = append(vm.tryFrames, TryFrame{
			HandlerIP: int(i.Dst),
			CatchVar:  int(i.Src1),
			RegTop:    vm.base,
		})
		return false, 0, nil

	case rbytecode.RPopExcept:
		if len(vm.tryFrames) == 0 {
			return false, 0, fmt.Errorf("%w: POP_EXCEPT with no active try frame", ErrTypeMismatch)
		}
		vm.tryFrames = vm.tryFrames[:len(vm.tryFrames)-1]
		return false, 0, nil

	case rbytecode.RCall:
		return vm.execCall(i)

	case rbytecode.RCallNative:
		return false, 0, vm.execCallNative(i)

	case rbytecode.RReturn:
		return vm.execReturn(i)

	case rbytecode.RMakeArray, rbytecode.RArrayGet, rbytecode.RArraySet, rbytecode.RArrayPush,
		rbytecode.RArrayPop, rbytecode.RArrayReserve, rbytecode.RLenArray, rbytecode.RLenString,
		rbytecode.RSubstring, rbytecode.RSlice, rbytecode.RConcat, rbytecode.RTypeOf:
		return false, 0, vm.execAggregate(i)

	case rbytecode.RGCPause:
		vm.gcPaused = true
		return false, 0, nil

	case rbytecode.RGCResume:
		vm.gcPaused = false
		return false, 0, nil

	case rbytecode.RPrint, rbytecode.RPrintNoNL, rbytecode.RPrintTyped,
		rbytecode.RFormatPrint, rbytecode.RFormatPrintNoNL:
		return false, 0, vm.execPrint(i)

	case rbytecode.RImport:
		return false, 0, vm.execImport(int(i.Imm16()))

	case rbytecode.RSpillReg:
		return false, 0, vm.execSpill(i)

	case rbytecode.RUnspillReg:
		return false, 0, vm.execUnspill(i)

	case rbytecode.RNop:
		return false, 0, nil

	default:
		return false, 0, fmt.Errorf("%w: %d", ErrInvalidOpcode, i.Op)
	}
}

// tryHandle unwinds to the innermost try frame if one exists, binding the
// error value into its catch global and resuming at its handler address,
// mirroring vm.VM.tryHandle.
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

	vm.base = frame.RegTop
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
