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

// execCompare implements group 4: EQUAL/NOT_EQUAL (structural, any
// matching-kind pair including strings and arrays) plus the typed and
// _GENERIC ordered comparisons.
func (vm *VM) execCompare(op Opcode) error {
	if op == OpEqual || op == OpNotEqual {
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		eq := value.Equal(a, b)
		if op == OpNotEqual {
			eq = !eq
		}
		return vm.push(value.Bool(eq))
	}

	generic := op == OpLessGeneric || op == OpLessEqualGeneric || op == OpGreaterGeneric || op == OpGreaterEqualGeneric
	var kind value.Kind
	if !generic {
		nt, err := vm.readByte()
		if err != nil {
			return err
		}
		kind = NumType(nt).Kind()
	}

	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if generic {
		kind = widestNumeric(a.Kind(), b.Kind())
		if a.Kind().IsNumeric() && b.Kind().IsNumeric() {
			a, _ = CastValue(a, kind)
			b, _ = CastValue(b, kind)
		}
	}
	if a.Kind() != kind || b.Kind() != kind {
		return fmt.Errorf("%w: comparison requires matching %s operands, got %s and %s", ErrTypeMismatch, kind, a.Kind(), b.Kind())
	}

	cmp, err := CompareNumeric(kind, a, b)
	if err != nil {
		return err
	}

	var result bool
	switch op {
	case OpLess, OpLessGeneric:
		result = cmp < 0
	case OpLessEqual, OpLessEqualGeneric:
		result = cmp <= 0
	case OpGreater, OpGreaterGeneric:
		result = cmp > 0
	case OpGreaterEqual, OpGreaterEqualGeneric:
		result = cmp >= 0
	}
	return vm.push(value.Bool(result))
}

// CompareNumeric returns -1, 0, or 1 comparing a to b under kind.
func CompareNumeric(kind value.Kind, a, b value.Value) (int, error) {
	switch kind {
	case value.KindI32:
		return cmpOrdered(a.AsI32(), b.AsI32()), nil
	case value.KindI64:
		return cmpOrdered(a.AsI64(), b.AsI64()), nil
	case value.KindU32:
		return cmpOrdered(a.AsU32(), b.AsU32()), nil
	case value.KindU64:
		return cmpOrdered(a.AsU64(), b.AsU64()), nil
	case value.KindF64:
		return cmpOrdered(a.AsF64(), b.AsF64()), nil
	default:
		return 0, fmt.Errorf("%w: comparison not defined for %s", ErrTypeMismatch, kind)
	}
}

func cmpOrdered[T int32 | int64 | uint32 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
