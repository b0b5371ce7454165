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
	"github.com/orus-lang/orus-vm/vm"
)

// execAggregate implements array/string operations, mirroring
// vm.execAggregate's semantics over registers instead of the value stack.
// MAKE_ARRAY's operands are Src1=window base, Src2=count (set by
// lower.stepAggregate); SUBSTRING/SLICE read their third argument from the
// reserved rbytecode.SliceEndReg register per the lowering convention.
func (vm2 *VM) execAggregate(i rbytecode.Instr) error {
	switch i.Op {
	case rbytecode.RMakeArray:
		n := int(i.Src2)
		items := make([]value.Value, n)
		for k := 0; k < n; k++ {
			items[k] = vm2.get(i.Src1 + byte(k))
		}
		arr, err := vm2.Heap.NewArray(vm2, items)
		if err != nil {
			return vm2.classify(value.ErrClassMemory, err)
		}
		vm2.set(i.Dst, arr)
		return nil

	case rbytecode.RArrayGet:
		arrV, idxV := vm2.get(i.Src1), vm2.get(i.Src2)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_GET target is not an array", ErrTypeMismatch)
		}
		v, ok := arrV.AsArray().Get(int(vm.NumericAsI64(idxV)))
		if !ok {
			return ErrIndexOutOfRange
		}
		vm2.set(i.Dst, v)
		return nil

	case rbytecode.RArraySet:
		val := vm2.get(i.Dst)
		arrV, idxV := vm2.get(i.Src1), vm2.get(i.Src2)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_SET target is not an array", ErrTypeMismatch)
		}
		if !arrV.AsArray().Set(int(vm.NumericAsI64(idxV)), val) {
			return ErrIndexOutOfRange
		}
		return nil

	case rbytecode.RArrayPush:
		arrV, val := vm2.get(i.Src1), vm2.get(i.Src2)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_PUSH target is not an array", ErrTypeMismatch)
		}
		arrV.AsArray().Push(val)
		vm2.set(i.Dst, value.Nil())
		return nil

	case rbytecode.RArrayPop:
		arrV := vm2.get(i.Src1)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_POP target is not an array", ErrTypeMismatch)
		}
		v, ok := arrV.AsArray().Pop()
		if !ok {
			return ErrIndexOutOfRange
		}
		vm2.set(i.Dst, v)
		return nil

	case rbytecode.RArrayReserve:
		arrV, nV := vm2.get(i.Src1), vm2.get(i.Src2)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_RESERVE target is not an array", ErrTypeMismatch)
		}
		arrV.AsArray().Reserve(int(vm.NumericAsI64(nV)))
		vm2.set(i.Dst, value.Nil())
		return nil

	case rbytecode.RLenArray:
		arrV := vm2.get(i.Src1)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: LEN_ARRAY target is not an array", ErrTypeMismatch)
		}
		vm2.set(i.Dst, value.I32(int32(arrV.AsArray().Len())))
		return nil

	case rbytecode.RLenString:
		sV := vm2.get(i.Src1)
		if sV.Kind() != value.KindString {
			return fmt.Errorf("%w: LEN_STRING target is not a string", ErrTypeMismatch)
		}
		vm2.set(i.Dst, value.I32(int32(len(sV.AsString()))))
		return nil

	case rbytecode.RSubstring:
		sV, startV := vm2.get(i.Src1), vm2.get(i.Src2)
		endV := vm2.get(rbytecode.SliceEndReg)
		if sV.Kind() != value.KindString {
			return fmt.Errorf("%w: SUBSTRING target is not a string", ErrTypeMismatch)
		}
		s := sV.AsString()
		start, end := int(vm.NumericAsI64(startV)), int(vm.NumericAsI64(endV))
		if start < 0 || end > len(s) || start > end {
			return ErrIndexOutOfRange
		}
		out, err := vm2.Heap.NewString(vm2, s[start:end])
		if err != nil {
			return vm2.classify(value.ErrClassMemory, err)
		}
		vm2.set(i.Dst, out)
		return nil

	case rbytecode.RSlice:
		arrV, startV := vm2.get(i.Src1), vm2.get(i.Src2)
		endV := vm2.get(rbytecode.SliceEndReg)
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: SLICE target is not an array", ErrTypeMismatch)
		}
		items := arrV.AsArray().Items
		start, end := int(vm.NumericAsI64(startV)), int(vm.NumericAsI64(endV))
		if start < 0 || end > len(items) || start > end {
			return ErrIndexOutOfRange
		}
		sliced := append([]value.Value(nil), items[start:end]...)
		out, err := vm2.Heap.NewArray(vm2, sliced)
		if err != nil {
			return vm2.classify(value.ErrClassMemory, err)
		}
		vm2.set(i.Dst, out)
		return nil

	case rbytecode.RConcat:
		a, b := vm2.get(i.Src1), vm2.get(i.Src2)
		switch {
		case a.Kind() == value.KindString && b.Kind() == value.KindString:
			out, err := vm2.Heap.NewString(vm2, a.AsString()+b.AsString())
			if err != nil {
				return vm2.classify(value.ErrClassMemory, err)
			}
			vm2.set(i.Dst, out)
			return nil
		case a.Kind() == value.KindArray && b.Kind() == value.KindArray:
			combined := append(append([]value.Value(nil), a.AsArray().Items...), b.AsArray().Items...)
			out, err := vm2.Heap.NewArray(vm2, combined)
			if err != nil {
				return vm2.classify(value.ErrClassMemory, err)
			}
			vm2.set(i.Dst, out)
			return nil
		default:
			return fmt.Errorf("%w: CONCAT requires two strings or two arrays, got %s and %s", ErrTypeMismatch, a.Kind(), b.Kind())
		}

	case rbytecode.RTypeOf:
		v := vm2.get(i.Src1)
		out, err := vm2.Heap.NewString(vm2, v.Kind().String())
		if err != nil {
			return vm2.classify(value.ErrClassMemory, err)
		}
		vm2.set(i.Dst, out)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidOpcode, i.Op)
}
