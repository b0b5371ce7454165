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
)

// allocWindow reserves n contiguous fresh registers starting at the bump
// pointer, bypassing the free list: CALL/CALL_NATIVE/MAKE_ARRAY/FORMAT_PRINT
// need their arguments laid out back-to-back so the register interpreter
// can address them as a single base+count window rather than one operand
// byte per argument, which the 3-operand instruction word has no room for.
func (l *lowerer) allocWindow(n int) (byte, error) {
	if n == 0 {
		return 0, nil
	}
	if n > 255 {
		return 0, fmt.Errorf("%w: argument window of %d registers", ErrFuncIndexTooWide, n)
	}
	a := l.alc
	base := int(a.nextReg)
	if base+n > int(rbytecode.FirstReservedReg) {
		return 0, fmt.Errorf("%w: %d-register window starting at r%d", ErrRegisterExhausted, n, base)
	}
	a.nextReg += byte(n)
	if int(a.nextReg) > a.funcMax {
		a.funcMax = int(a.nextReg)
	}
	for r := base; r < base+n; r++ {
		a.clearConst(byte(r))
		a.touch(byte(r))
	}
	return byte(base), nil
}

// stepCall lowers CALL: the global-index indirection to a function-table
// entry is kept exactly as the stack VM resolves it (vm/calls.go), since the
// callee is only known at run time through the global slot's value. The
// arguments are popped off the shadow stack and copied into a contiguous
// register window; CALL's Dst register serves double duty as the window's
// base register going in and the call's result register coming back,
// mirroring how the stack VM reuses the same stack slot (frame.Base) for
// both.
func (l *lowerer) stepCall() error {
	globalIdx, err := l.readUint16()
	if err != nil {
		return err
	}
	argc, err := l.readByte()
	if err != nil {
		return err
	}
	if err := l.emitArgWindow(int(argc)); err != nil {
		return err
	}
	base := l.lastWindowBase
	l.emit(rbytecode.WithImm16(rbytecode.RCall, base, uint16(globalIdx)))
	l.push(base)
	return nil
}

// stepCallNative lowers CALL_NATIVE. Unlike CALL, the callee has no
// function-table Arity to fall back on for a variadic native (NativeInfo.Arity
// == -1), so argc travels in the instruction itself: CALL_NATIVE spends its
// Src2 byte on a narrowed native-table index (native registries are a small,
// curated builtin list, never near 256 entries) to make room for Src1=argc.
func (l *lowerer) stepCallNative() error {
	nativeIdx, err := l.readUint16()
	if err != nil {
		return err
	}
	if nativeIdx > 0xFF {
		return fmt.Errorf("%w: native index %d", ErrFuncIndexTooWide, nativeIdx)
	}
	argc, err := l.readByte()
	if err != nil {
		return err
	}
	if err := l.emitArgWindow(int(argc)); err != nil {
		return err
	}
	base := l.lastWindowBase
	l.emit(rbytecode.Instr{Op: rbytecode.RCallNative, Dst: base, Src1: argc, Src2: byte(nativeIdx)})
	l.push(base)
	return nil
}

// emitArgWindow pops n shadow-stack values (in call order) and MOVs each
// into a freshly allocated contiguous register window, recording the
// window's base register in l.lastWindowBase.
func (l *lowerer) emitArgWindow(n int) error {
	regs := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		r, err := l.pop()
		if err != nil {
			return err
		}
		regs[i] = r
	}
	base, err := l.allocWindow(n)
	if err != nil {
		return err
	}
	for i, r := range regs {
		l.emit(rbytecode.Instr{Op: rbytecode.RMov, Dst: base + byte(i), Src1: r})
		l.release(r)
	}
	l.lastWindowBase = base
	return nil
}

func (l *lowerer) stepReturn() error {
	// A RETURN with nothing on the shadow stack (the end of a script whose
	// last statement consumed its value) returns r0.
	if len(l.stack) == 0 {
		l.emit(rbytecode.Instr{Op: rbytecode.RReturn, Src1: 0})
		l.pendingReset = true
		return nil
	}
	v, err := l.pop()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rbytecode.RReturn, Src1: v})
	l.release(v)
	// RETURN severs the shadow stack from anything physically following it
	// in the chunk, same as an unconditional jump.
	l.pendingReset = true
	return nil
}
