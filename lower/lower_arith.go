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

package lower

import (
	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/vm"
)

// arithOpcodes/bitwiseOpcodes/compareOpcodes map a stack opcode to its
// register counterpart. The register forms drop the NumType/operand byte
// the stack forms carry: a register always holds a fully-tagged
// value.Value, so the operation's numeric kind is read back off the
// operand at run time instead of being declared ahead of it, collapsing the
// typed/generic opcode pairs' *encoding* while the interpreter (package rvm)
// still honors the same typed-vs-generic semantics by checking whether the
// source opcode was a typed or generic one when it decides how strict to be
// about matching operand kinds.
var (
	arithOpcodes = map[vm.Opcode]rbytecode.Opcode{
		vm.OpAdd: rbytecode.RAdd, vm.OpSub: rbytecode.RSub, vm.OpMul: rbytecode.RMul,
		vm.OpDiv: rbytecode.RDiv, vm.OpMod: rbytecode.RMod,
		vm.OpAddGeneric: rbytecode.RAddGeneric, vm.OpSubGeneric: rbytecode.RSubGeneric,
		vm.OpMulGeneric: rbytecode.RMulGeneric, vm.OpDivGeneric: rbytecode.RDivGeneric,
		vm.OpModGeneric: rbytecode.RModGeneric,
	}
	bitwiseOpcodes = map[vm.Opcode]rbytecode.Opcode{
		vm.OpBitAnd: rbytecode.RBitAnd, vm.OpBitOr: rbytecode.RBitOr, vm.OpBitXor: rbytecode.RBitXor,
		vm.OpShl: rbytecode.RShl, vm.OpShr: rbytecode.RShr,
	}
	compareOpcodes = map[vm.Opcode]rbytecode.Opcode{
		vm.OpEqual: rbytecode.REqual, vm.OpNotEqual: rbytecode.RNotEqual,
		vm.OpLess: rbytecode.RLess, vm.OpLessEqual: rbytecode.RLessEqual,
		vm.OpGreater: rbytecode.RGreater, vm.OpGreaterEqual: rbytecode.RGreaterEqual,
		vm.OpLessGeneric: rbytecode.RLessGeneric, vm.OpLessEqualGeneric: rbytecode.RLessEqualGeneric,
		vm.OpGreaterGeneric: rbytecode.RGreaterGeneric, vm.OpGreaterEqualGeneric: rbytecode.RGreaterEqualGeneric,
	}
)

func hasNumTypeOperand(op vm.Opcode) bool {
	switch op {
	case vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpMod, vm.OpNeg,
		vm.OpBitAnd, vm.OpBitOr, vm.OpBitXor, vm.OpBitNot, vm.OpShl, vm.OpShr,
		vm.OpLess, vm.OpLessEqual, vm.OpGreater, vm.OpGreaterEqual:
		return true
	}
	return false
}

func (l *lowerer) stepArith(op vm.Opcode) error {
	if hasNumTypeOperand(op) {
		if _, err := l.readByte(); err != nil { // NumType, not needed by the register form
			return err
		}
	}
	rop := arithOpcodes[op]
	if op == vm.OpNeg || op == vm.OpNegGeneric {
		if op == vm.OpNeg {
			rop = rbytecode.RNeg
		} else {
			rop = rbytecode.RNegGeneric
		}
		a, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rop, Dst: dst, Src1: a})
		l.release(a)
		l.push(dst)
		return nil
	}
	b, err := l.pop()
	if err != nil {
		return err
	}
	a, err := l.pop()
	if err != nil {
		return err
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rop, Dst: dst, Src1: a, Src2: b})
	l.release(a)
	l.release(b)
	l.push(dst)
	return nil
}

func (l *lowerer) stepBitwise(op vm.Opcode) error {
	if hasNumTypeOperand(op) {
		if _, err := l.readByte(); err != nil {
			return err
		}
	}
	if op == vm.OpBitNot {
		a, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RBitNot, Dst: dst, Src1: a})
		l.release(a)
		l.push(dst)
		return nil
	}
	rop := bitwiseOpcodes[op]
	b, err := l.pop()
	if err != nil {
		return err
	}
	a, err := l.pop()
	if err != nil {
		return err
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rop, Dst: dst, Src1: a, Src2: b})
	l.release(a)
	l.release(b)
	l.push(dst)
	return nil
}

func (l *lowerer) stepCompare(op vm.Opcode) error {
	if hasNumTypeOperand(op) {
		if _, err := l.readByte(); err != nil {
			return err
		}
	}
	rop := compareOpcodes[op]
	b, err := l.pop()
	if err != nil {
		return err
	}
	a, err := l.pop()
	if err != nil {
		return err
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rop, Dst: dst, Src1: a, Src2: b})
	l.release(a)
	l.release(b)
	l.push(dst)
	return nil
}

func (l *lowerer) stepCast() error {
	_, err := l.readByte() // from ScalarKind: redundant, the operand already carries its real Kind
	if err != nil {
		return err
	}
	toByte, err := l.readByte()
	if err != nil {
		return err
	}
	src, err := l.pop()
	if err != nil {
		return err
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rbytecode.RCast, Dst: dst, Src1: src, Src2: toByte})
	l.release(src)
	l.push(dst)
	return nil
}

func (l *lowerer) stepToString() error {
	if _, err := l.readByte(); err != nil { // from ScalarKind, same redundancy as CAST
		return err
	}
	src, err := l.pop()
	if err != nil {
		return err
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rbytecode.RToString, Dst: dst, Src1: src})
	l.release(src)
	l.push(dst)
	return nil
}
