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

// registerToStackOp maps a register arithmetic opcode back to its stack
// counterpart purely so vm.ArithOp's internal isAdd/isSub/... dispatch
// (shared verbatim with the stack interpreter) can recognize it; the
// register form never carries vm.NumType or generic-ness as separate
// encoding, but vm.ArithOp only uses the mapped opcode to pick which
// arithmetic operation runs, not to decide typed-vs-generic strictness.
var registerToStackOp = map[rbytecode.Opcode]vm.Opcode{
	rbytecode.RAdd: vm.OpAdd, rbytecode.RSub: vm.OpSub, rbytecode.RMul: vm.OpMul,
	rbytecode.RDiv: vm.OpDiv, rbytecode.RMod: vm.OpMod, rbytecode.RNeg: vm.OpNeg,
	rbytecode.RAddGeneric: vm.OpAddGeneric, rbytecode.RSubGeneric: vm.OpSubGeneric,
	rbytecode.RMulGeneric: vm.OpMulGeneric, rbytecode.RDivGeneric: vm.OpDivGeneric,
	rbytecode.RModGeneric: vm.OpModGeneric, rbytecode.RNegGeneric: vm.OpNegGeneric,
}

func isGenericArith(op rbytecode.Opcode) bool {
	switch op {
	case rbytecode.RAddGeneric, rbytecode.RSubGeneric, rbytecode.RMulGeneric,
		rbytecode.RDivGeneric, rbytecode.RModGeneric, rbytecode.RNegGeneric:
		return true
	}
	return false
}

func isGenericCompare(op rbytecode.Opcode) bool {
	switch op {
	case rbytecode.RLessGeneric, rbytecode.RLessEqualGeneric, rbytecode.RGreaterGeneric, rbytecode.RGreaterEqualGeneric:
		return true
	}
	return false
}

// widestNumeric mirrors vm's unexported helper of the same name: F64 wins,
// then the 64-bit integer kinds, then the 32-bit ones.
func widestNumeric(a, b value.Kind) value.Kind {
	rank := func(k value.Kind) int {
		switch k {
		case value.KindF64:
			return 4
		case value.KindI64, value.KindU64:
			return 3
		case value.KindI32, value.KindU32:
			return 2
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// execArith implements ADD/SUB/MUL/DIV/MOD/NEG and their _GENERIC
// counterparts. Unlike the stack form, no NumType travels with the
// instruction: the typed family requires both operands to already share
// the kind of the first operand (the strictness lowering dropped the
// explicit declaration of, not the check itself), while the _GENERIC
// family promotes via widestNumeric exactly as vm.execArith does.
func (vm2 *VM) execArith(i rbytecode.Instr) error {
	generic := isGenericArith(i.Op)
	unary := i.Op == rbytecode.RNeg || i.Op == rbytecode.RNegGeneric

	var a, b value.Value
	var kind value.Kind
	if unary {
		a = vm2.get(i.Src1)
		kind = a.Kind()
	} else {
		a, b = vm2.get(i.Src1), vm2.get(i.Src2)
		if generic {
			kind = widestNumeric(a.Kind(), b.Kind())
			if a.Kind().IsNumeric() && b.Kind().IsNumeric() {
				a, _ = vm.CastValue(a, kind)
				b, _ = vm.CastValue(b, kind)
			}
		} else {
			kind = a.Kind()
		}
		if a.Kind() != kind || b.Kind() != kind {
			return fmt.Errorf("%w: arithmetic requires matching %s operands, got %s and %s", ErrTypeMismatch, kind, a.Kind(), b.Kind())
		}
	}

	result, err := vm.ArithOp(registerToStackOp[i.Op], generic, kind, a, b)
	if err != nil {
		return err
	}
	vm2.set(i.Dst, result)
	return nil
}

// execBitwise implements AND/OR/XOR/NOT/SHL/SHR, restricted to I32/I64/U32.
func (vm2 *VM) execBitwise(i rbytecode.Instr) error {
	unary := i.Op == rbytecode.RBitNot
	a := vm2.get(i.Src1)
	var b value.Value
	if !unary {
		b = vm2.get(i.Src2)
	}
	kind := a.Kind()
	if kind != value.KindI32 && kind != value.KindI64 && kind != value.KindU32 {
		return fmt.Errorf("%w: bitwise ops support only I32/I64/U32, got %s", ErrTypeMismatch, kind)
	}
	if !unary && b.Kind() != kind {
		return fmt.Errorf("%w: bitwise op operand kind mismatch", ErrTypeMismatch)
	}

	var result value.Value
	switch kind {
	case value.KindI32:
		x := a.AsI32()
		switch i.Op {
		case rbytecode.RBitAnd:
			result = value.I32(x & b.AsI32())
		case rbytecode.RBitOr:
			result = value.I32(x | b.AsI32())
		case rbytecode.RBitXor:
			result = value.I32(x ^ b.AsI32())
		case rbytecode.RBitNot:
			result = value.I32(^x)
		case rbytecode.RShl:
			result = value.I32(x << uint32(b.AsI32()))
		case rbytecode.RShr:
			result = value.I32(x >> uint32(b.AsI32()))
		}
	case value.KindI64:
		x := a.AsI64()
		switch i.Op {
		case rbytecode.RBitAnd:
			result = value.I64(x & b.AsI64())
		case rbytecode.RBitOr:
			result = value.I64(x | b.AsI64())
		case rbytecode.RBitXor:
			result = value.I64(x ^ b.AsI64())
		case rbytecode.RBitNot:
			result = value.I64(^x)
		case rbytecode.RShl:
			result = value.I64(x << uint64(b.AsI64()))
		case rbytecode.RShr:
			result = value.I64(x >> uint64(b.AsI64()))
		}
	case value.KindU32:
		x := a.AsU32()
		switch i.Op {
		case rbytecode.RBitAnd:
			result = value.U32(x & b.AsU32())
		case rbytecode.RBitOr:
			result = value.U32(x | b.AsU32())
		case rbytecode.RBitXor:
			result = value.U32(x ^ b.AsU32())
		case rbytecode.RBitNot:
			result = value.U32(^x)
		case rbytecode.RShl:
			result = value.U32(x << b.AsU32())
		case rbytecode.RShr:
			result = value.U32(x >> b.AsU32())
		}
	}
	vm2.set(i.Dst, result)
	return nil
}

// execCompare implements EQUAL/NOT_EQUAL (structural) and the ordered
// comparisons, reusing vm.CompareNumeric for the numeric ordering itself.
func (vm2 *VM) execCompare(i rbytecode.Instr) error {
	if i.Op == rbytecode.REqual || i.Op == rbytecode.RNotEqual {
		a, b := vm2.get(i.Src1), vm2.get(i.Src2)
		eq := value.Equal(a, b)
		if i.Op == rbytecode.RNotEqual {
			eq = !eq
		}
		vm2.set(i.Dst, value.Bool(eq))
		return nil
	}

	a, b := vm2.get(i.Src1), vm2.get(i.Src2)
	var kind value.Kind
	if isGenericCompare(i.Op) {
		kind = widestNumeric(a.Kind(), b.Kind())
		if a.Kind().IsNumeric() && b.Kind().IsNumeric() {
			a, _ = vm.CastValue(a, kind)
			b, _ = vm.CastValue(b, kind)
		}
	} else {
		kind = a.Kind()
	}
	if a.Kind() != kind || b.Kind() != kind {
		return fmt.Errorf("%w: comparison requires matching %s operands, got %s and %s", ErrTypeMismatch, kind, a.Kind(), b.Kind())
	}

	cmp, err := vm.CompareNumeric(kind, a, b)
	if err != nil {
		return err
	}

	var result bool
	switch i.Op {
	case rbytecode.RLess, rbytecode.RLessGeneric:
		result = cmp < 0
	case rbytecode.RLessEqual, rbytecode.RLessEqualGeneric:
		result = cmp <= 0
	case rbytecode.RGreater, rbytecode.RGreaterGeneric:
		result = cmp > 0
	case rbytecode.RGreaterEqual, rbytecode.RGreaterEqualGeneric:
		result = cmp >= 0
	}
	vm2.set(i.Dst, value.Bool(result))
	return nil
}

// execCast and execToString reuse vm.CastValue/value.Print directly: the
// register form has already dropped CAST's redundant "from" operand at
// lowering time (lower.stepCast), so there is nothing left to validate
// here beyond what CastValue itself checks.
func (vm2 *VM) execCast(i rbytecode.Instr) error {
	to := vm.ScalarKind(i.Src2).Kind()
	result, err := vm.CastValue(vm2.get(i.Src1), to)
	if err != nil {
		return err
	}
	vm2.set(i.Dst, result)
	return nil
}

func (vm2 *VM) execToString(i rbytecode.Instr) error {
	v := vm2.get(i.Src1)
	// Matches vm.execCast's KindString branch and vm.execToString: these
	// conversions build the string object directly rather than through
	// Heap.NewString, same as the stack interpreter does.
	vm2.set(i.Dst, value.FromObject(value.KindString, value.NewStringObject(value.Print(v))))
	return nil
}
