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
	"math"

	"github.com/orus-lang/orus-vm/value"
)

// execArith implements group 2 (add/sub/mul/div/mod/neg), both the typed
// family (operand selects a NumType) and the _GENERIC family (kind is
// picked at runtime from the operands via widestNumeric, and numeric
// operands are converted to it).
func (vm *VM) execArith(op Opcode) error {
	generic := op >= OpAddGeneric
	var kind value.Kind

	unary := op == OpNeg || op == OpNegGeneric
	var a, b value.Value
	var err error

	if !generic {
		nt, e := vm.readByte()
		if e != nil {
			return e
		}
		kind = NumType(nt).Kind()
	}

	if unary {
		a, err = vm.pop()
		if err != nil {
			return err
		}
		if generic {
			kind = a.Kind()
		}
	} else {
		b, err = vm.pop()
		if err != nil {
			return err
		}
		a, err = vm.pop()
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
			return fmt.Errorf("%w: arithmetic requires matching %s operands, got %s and %s", ErrTypeMismatch, kind, a.Kind(), b.Kind())
		}
	}
	if unary && a.Kind() != kind {
		return fmt.Errorf("%w: NEG requires %s operand, got %s", ErrTypeMismatch, kind, a.Kind())
	}

	result, err := ArithOp(op, generic, kind, a, b)
	if err != nil {
		return err
	}
	return vm.push(result)
}

func ArithOp(op Opcode, generic bool, kind value.Kind, a, b value.Value) (value.Value, error) {
	isAdd := op == OpAdd || op == OpAddGeneric
	isSub := op == OpSub || op == OpSubGeneric
	isMul := op == OpMul || op == OpMulGeneric
	isDiv := op == OpDiv || op == OpDivGeneric
	isMod := op == OpMod || op == OpModGeneric
	isNeg := op == OpNeg || op == OpNegGeneric

	switch kind {
	case value.KindI32:
		x, y := a.AsI32(), int32(0)
		if !isNeg {
			y = b.AsI32()
		}
		switch {
		case isAdd:
			return value.I32(x + y), nil
		case isSub:
			return value.I32(x - y), nil
		case isMul:
			return value.I32(x * y), nil
		case isDiv:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.I32(x / y), nil
		case isMod:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.I32(x % y), nil
		case isNeg:
			return value.I32(-x), nil
		}
	case value.KindI64:
		x, y := a.AsI64(), int64(0)
		if !isNeg {
			y = b.AsI64()
		}
		switch {
		case isAdd:
			sum := x + y
			if (y > 0 && sum < x) || (y < 0 && sum > x) {
				return value.Value{}, ErrIntegerOverflow
			}
			return value.I64(sum), nil
		case isSub:
			diff := x - y
			if (y < 0 && diff < x) || (y > 0 && diff > x) {
				return value.Value{}, ErrIntegerOverflow
			}
			return value.I64(diff), nil
		case isMul:
			prod := x * y
			if x != 0 && prod/x != y {
				return value.Value{}, ErrIntegerOverflow
			}
			return value.I64(prod), nil
		case isDiv:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.I64(x / y), nil
		case isMod:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.I64(x % y), nil
		case isNeg:
			if x == math.MinInt64 {
				return value.Value{}, ErrIntegerOverflow
			}
			return value.I64(-x), nil
		}
	case value.KindU32:
		x, y := a.AsU32(), uint32(0)
		if !isNeg {
			y = b.AsU32()
		}
		switch {
		case isAdd:
			return value.U32(x + y), nil
		case isSub:
			return value.U32(x - y), nil
		case isMul:
			return value.U32(x * y), nil
		case isDiv:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.U32(x / y), nil
		case isMod:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.U32(x % y), nil
		case isNeg:
			return value.U32(-x), nil
		}
	case value.KindU64:
		x, y := a.AsU64(), uint64(0)
		if !isNeg {
			y = b.AsU64()
		}
		switch {
		case isAdd:
			return value.U64(x + y), nil
		case isSub:
			return value.U64(x - y), nil
		case isMul:
			return value.U64(x * y), nil
		case isDiv:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.U64(x / y), nil
		case isMod:
			if y == 0 {
				return value.Value{}, ErrDivisionByZero
			}
			return value.U64(x % y), nil
		case isNeg:
			return value.U64(-x), nil
		}
	case value.KindF64:
		x, y := a.AsF64(), 0.0
		if !isNeg {
			y = b.AsF64()
		}
		switch {
		case isAdd:
			return value.F64(x + y), nil
		case isSub:
			return value.F64(x - y), nil
		case isMul:
			return value.F64(x * y), nil
		case isDiv:
			return value.F64(x / y), nil
		case isMod:
			return value.F64(math.Mod(x, y)), nil
		case isNeg:
			return value.F64(-x), nil
		}
	}
	return value.Value{}, fmt.Errorf("%w: arithmetic not defined for %s", ErrTypeMismatch, kind)
}

// execBitwise implements group 3, restricted to I32/I64/U32.
func (vm *VM) execBitwise(op Opcode) error {
	nt, err := vm.readByte()
	if err != nil {
		return err
	}
	kind := NumType(nt).Kind()
	if kind != value.KindI32 && kind != value.KindI64 && kind != value.KindU32 {
		return fmt.Errorf("%w: bitwise ops support only I32/I64/U32, got %s", ErrTypeMismatch, kind)
	}

	unary := op == OpBitNot
	var a, b value.Value
	if unary {
		a, err = vm.pop()
	} else {
		b, err = vm.pop()
		if err == nil {
			a, err = vm.pop()
		}
	}
	if err != nil {
		return err
	}
	if a.Kind() != kind || (!unary && b.Kind() != kind) {
		return fmt.Errorf("%w: bitwise op operand kind mismatch", ErrTypeMismatch)
	}

	var result value.Value
	switch kind {
	case value.KindI32:
		x := a.AsI32()
		switch op {
		case OpBitAnd:
			result = value.I32(x & b.AsI32())
		case OpBitOr:
			result = value.I32(x | b.AsI32())
		case OpBitXor:
			result = value.I32(x ^ b.AsI32())
		case OpBitNot:
			result = value.I32(^x)
		case OpShl:
			result = value.I32(x << uint32(b.AsI32()))
		case OpShr:
			result = value.I32(x >> uint32(b.AsI32()))
		}
	case value.KindI64:
		x := a.AsI64()
		switch op {
		case OpBitAnd:
			result = value.I64(x & b.AsI64())
		case OpBitOr:
			result = value.I64(x | b.AsI64())
		case OpBitXor:
			result = value.I64(x ^ b.AsI64())
		case OpBitNot:
			result = value.I64(^x)
		case OpShl:
			result = value.I64(x << uint64(b.AsI64()))
		case OpShr:
			result = value.I64(x >> uint64(b.AsI64()))
		}
	case value.KindU32:
		x := a.AsU32()
		switch op {
		case OpBitAnd:
			result = value.U32(x & b.AsU32())
		case OpBitOr:
			result = value.U32(x | b.AsU32())
		case OpBitXor:
			result = value.U32(x ^ b.AsU32())
		case OpBitNot:
			result = value.U32(^x)
		case OpShl:
			result = value.U32(x << b.AsU32())
		case OpShr:
			result = value.U32(x >> b.AsU32())
		}
	}
	return vm.push(result)
}
