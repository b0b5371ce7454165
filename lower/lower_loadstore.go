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

func (l *lowerer) stepLoadConst(op vm.Opcode) error {
	var idx int
	switch op {
	case vm.OpConstant:
		b, err := l.readByte()
		if err != nil {
			return err
		}
		idx = int(b)
	case vm.OpConstantLong, vm.OpI64Const:
		w, err := l.readUint16()
		if err != nil {
			return err
		}
		idx = int(w)
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	if err := l.emitLoadConst(dst, idx); err != nil {
		return err
	}
	l.push(dst)
	return nil
}

func (l *lowerer) stepStoreGlobal(op vm.Opcode) error {
	globalIdx, err := l.readUint16()
	if err != nil {
		return err
	}
	var src byte
	if op == vm.OpDefineGlobal {
		// DEFINE_GLOBAL consumes the initializer; SET_GLOBAL leaves its
		// value live on the stack for the expression it's nested in.
		src, err = l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.WithImm16(rbytecode.RStoreGlobal, src, uint16(globalIdx)))
		l.release(src)
		return nil
	}
	src, err = l.pop()
	if err != nil {
		return err
	}
	l.emit(rbytecode.WithImm16(rbytecode.RStoreGlobal, src, uint16(globalIdx)))
	l.push(src)
	return nil
}

func (l *lowerer) stepLoadGlobal() error {
	globalIdx, err := l.readUint16()
	if err != nil {
		return err
	}
	dst, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.WithImm16(rbytecode.RLoadGlobal, dst, uint16(globalIdx)))
	l.push(dst)
	return nil
}
