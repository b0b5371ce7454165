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
	"fmt"

	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/vm"
)

func (l *lowerer) stepAggregate(op vm.Opcode) error {
	switch op {
	case vm.OpMakeArray:
		n, err := l.readUint16()
		if err != nil {
			return err
		}
		if err := l.emitArgWindow(int(n)); err != nil {
			return err
		}
		base := l.lastWindowBase
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RMakeArray, Dst: dst, Src1: base, Src2: byte(n)})
		l.push(dst)
		return nil

	case vm.OpArrayGet:
		idx, err := l.pop()
		if err != nil {
			return err
		}
		arr, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RArrayGet, Dst: dst, Src1: arr, Src2: idx})
		l.release(arr)
		l.release(idx)
		l.push(dst)
		return nil

	case vm.OpArraySet:
		val, err := l.pop()
		if err != nil {
			return err
		}
		idx, err := l.pop()
		if err != nil {
			return err
		}
		arr, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RArraySet, Dst: val, Src1: arr, Src2: idx})
		l.release(arr)
		l.release(idx)
		l.push(val)
		return nil

	case vm.OpArrayPush:
		val, err := l.pop()
		if err != nil {
			return err
		}
		arr, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RArrayPush, Dst: dst, Src1: arr, Src2: val})
		l.release(arr)
		l.release(val)
		l.push(dst)
		return nil

	case vm.OpArrayPop:
		arr, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RArrayPop, Dst: dst, Src1: arr})
		l.release(arr)
		l.push(dst)
		return nil

	case vm.OpArrayReserve:
		n, err := l.pop()
		if err != nil {
			return err
		}
		arr, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RArrayReserve, Dst: dst, Src1: arr, Src2: n})
		l.release(arr)
		l.release(n)
		l.push(dst)
		return nil

	case vm.OpLenArray:
		arr, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RLenArray, Dst: dst, Src1: arr})
		l.release(arr)
		l.push(dst)
		return nil

	case vm.OpLenString:
		s, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RLenString, Dst: dst, Src1: s})
		l.release(s)
		l.push(dst)
		return nil

	case vm.OpSubstring:
		end, err := l.pop()
		if err != nil {
			return err
		}
		start, err := l.pop()
		if err != nil {
			return err
		}
		s, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RMov, Dst: rbytecode.SliceEndReg, Src1: end})
		l.release(end)
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RSubstring, Dst: dst, Src1: s, Src2: start})
		l.release(s)
		l.release(start)
		l.push(dst)
		return nil

	case vm.OpSlice:
		end, err := l.pop()
		if err != nil {
			return err
		}
		start, err := l.pop()
		if err != nil {
			return err
		}
		arr, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RMov, Dst: rbytecode.SliceEndReg, Src1: end})
		l.release(end)
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RSlice, Dst: dst, Src1: arr, Src2: start})
		l.release(arr)
		l.release(start)
		l.push(dst)
		return nil

	case vm.OpConcat:
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
		l.emit(rbytecode.Instr{Op: rbytecode.RConcat, Dst: dst, Src1: a, Src2: b})
		l.release(a)
		l.release(b)
		l.push(dst)
		return nil

	case vm.OpTypeOf:
		v, err := l.pop()
		if err != nil {
			return err
		}
		dst, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RTypeOf, Dst: dst, Src1: v})
		l.release(v)
		l.push(dst)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op)
}

func (l *lowerer) stepPrint(op vm.Opcode) error {
	switch op {
	case vm.OpPrint:
		v, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RPrint, Src1: v})
		l.release(v)
		return nil
	case vm.OpPrintNoNL:
		v, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RPrintNoNL, Src1: v})
		l.release(v)
		return nil
	case vm.OpPrintTyped:
		kind, err := l.readByte()
		if err != nil {
			return err
		}
		v, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RPrintTyped, Src1: v, Src2: kind})
		l.release(v)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op)
}

// stepFormatPrint lowers FORMAT_PRINT[_NO_NL]. The calling convention pushes
// argc as an ordinary (runtime) stack value, but the register form needs a
// fixed-size contiguous argument window at lowering time, so argc must
// trace back to a LOAD_CONST the constant-propagation side table recorded;
// see ErrDynamicFormatArgc.
func (l *lowerer) stepFormatPrint(op vm.Opcode) error {
	argcReg, err := l.pop()
	if err != nil {
		return err
	}
	argc, ok := l.alc.constOf(argcReg)
	l.release(argcReg)
	if !ok {
		return ErrDynamicFormatArgc
	}

	fmtReg, err := l.pop()
	if err != nil {
		return err
	}

	if err := l.emitArgWindow(int(argc)); err != nil {
		return err
	}
	base := l.lastWindowBase

	rop := rbytecode.RFormatPrint
	if op == vm.OpFormatPrintNoNL {
		rop = rbytecode.RFormatPrintNoNL
	}
	l.emit(rbytecode.Instr{Op: rop, Dst: byte(argc), Src1: fmtReg, Src2: base})
	l.release(fmtReg)
	return nil
}

func (l *lowerer) stepImport() error {
	constIdx, err := l.readUint16()
	if err != nil {
		return err
	}
	idx, err := l.remapConst(int(constIdx))
	if err != nil {
		return err
	}
	l.emit(rbytecode.WithImm16(rbytecode.RImport, 0, uint16(idx)))
	return nil
}
