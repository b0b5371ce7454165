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

// execAggregate implements group 9: array and string operations.
func (vm *VM) execAggregate(op Opcode) error {
	switch op {
	case OpMakeArray:
		n, err := vm.readUint16()
		if err != nil {
			return err
		}
		items := make([]value.Value, n)
		for i := int(n) - 1; i >= 0; i-- {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			items[i] = v
		}
		arr, err := vm.Heap.NewArray(vm, items)
		if err != nil {
			return vm.classify(value.ErrClassMemory, err)
		}
		return vm.push(arr)

	case OpArrayGet:
		idxV, err := vm.pop()
		if err != nil {
			return err
		}
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_GET target is not an array", ErrTypeMismatch)
		}
		v, ok := arrV.AsArray().Get(int(NumericAsI64(idxV)))
		if !ok {
			return ErrIndexOutOfRange
		}
		return vm.push(v)

	case OpArraySet:
		val, err := vm.pop()
		if err != nil {
			return err
		}
		idxV, err := vm.pop()
		if err != nil {
			return err
		}
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_SET target is not an array", ErrTypeMismatch)
		}
		if !arrV.AsArray().Set(int(NumericAsI64(idxV)), val) {
			return ErrIndexOutOfRange
		}
		return vm.push(val)

	case OpArrayPush:
		val, err := vm.pop()
		if err != nil {
			return err
		}
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_PUSH target is not an array", ErrTypeMismatch)
		}
		arrV.AsArray().Push(val)
		return vm.push(value.Nil())

	case OpArrayPop:
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_POP target is not an array", ErrTypeMismatch)
		}
		v, ok := arrV.AsArray().Pop()
		if !ok {
			return ErrIndexOutOfRange
		}
		return vm.push(v)

	case OpArrayReserve:
		nV, err := vm.pop()
		if err != nil {
			return err
		}
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: ARRAY_RESERVE target is not an array", ErrTypeMismatch)
		}
		arrV.AsArray().Reserve(int(NumericAsI64(nV)))
		return vm.push(value.Nil())

	case OpLenArray:
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: LEN_ARRAY target is not an array", ErrTypeMismatch)
		}
		return vm.push(value.I32(int32(arrV.AsArray().Len())))

	case OpLenString:
		sV, err := vm.pop()
		if err != nil {
			return err
		}
		if sV.Kind() != value.KindString {
			return fmt.Errorf("%w: LEN_STRING target is not a string", ErrTypeMismatch)
		}
		return vm.push(value.I32(int32(len(sV.AsString()))))

	case OpSubstring:
		endV, err := vm.pop()
		if err != nil {
			return err
		}
		startV, err := vm.pop()
		if err != nil {
			return err
		}
		sV, err := vm.pop()
		if err != nil {
			return err
		}
		if sV.Kind() != value.KindString {
			return fmt.Errorf("%w: SUBSTRING target is not a string", ErrTypeMismatch)
		}
		s := sV.AsString()
		start, end := int(NumericAsI64(startV)), int(NumericAsI64(endV))
		if start < 0 || end > len(s) || start > end {
			return ErrIndexOutOfRange
		}
		out, err := vm.Heap.NewString(vm, s[start:end])
		if err != nil {
			return vm.classify(value.ErrClassMemory, err)
		}
		return vm.push(out)

	case OpSlice:
		endV, err := vm.pop()
		if err != nil {
			return err
		}
		startV, err := vm.pop()
		if err != nil {
			return err
		}
		arrV, err := vm.pop()
		if err != nil {
			return err
		}
		if arrV.Kind() != value.KindArray {
			return fmt.Errorf("%w: SLICE target is not an array", ErrTypeMismatch)
		}
		items := arrV.AsArray().Items
		start, end := int(NumericAsI64(startV)), int(NumericAsI64(endV))
		if start < 0 || end > len(items) || start > end {
			return ErrIndexOutOfRange
		}
		sliced := append([]value.Value(nil), items[start:end]...)
		out, err := vm.Heap.NewArray(vm, sliced)
		if err != nil {
			return vm.classify(value.ErrClassMemory, err)
		}
		return vm.push(out)

	case OpConcat:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		switch {
		case a.Kind() == value.KindString && b.Kind() == value.KindString:
			out, err := vm.Heap.NewString(vm, a.AsString()+b.AsString())
			if err != nil {
				return vm.classify(value.ErrClassMemory, err)
			}
			return vm.push(out)
		case a.Kind() == value.KindArray && b.Kind() == value.KindArray:
			combined := append(append([]value.Value(nil), a.AsArray().Items...), b.AsArray().Items...)
			out, err := vm.Heap.NewArray(vm, combined)
			if err != nil {
				return vm.classify(value.ErrClassMemory, err)
			}
			return vm.push(out)
		default:
			return fmt.Errorf("%w: CONCAT requires two strings or two arrays, got %s and %s", ErrTypeMismatch, a.Kind(), b.Kind())
		}

	case OpTypeOf:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		out, err := vm.Heap.NewString(vm, v.Kind().String())
		if err != nil {
			return vm.classify(value.ErrClassMemory, err)
		}
		return vm.push(out)
	}
	return fmt.Errorf("%w: %s", ErrInvalidOpcode, op)
}
