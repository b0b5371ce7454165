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

// jump operands in the stack bytecode are already absolute byte offsets
// into the chunk (vm/run.go sets vm.ip directly from the operand), so
// lowering carries them through to the patch table unchanged.
func (l *lowerer) resolveJumpTarget(off uint16) int {
	return int(off)
}

func (l *lowerer) emitJumpPatch(rop rbytecode.Opcode, dst byte, field patchField, target int) {
	idx := l.emit(rbytecode.Instr{Op: rop, Dst: dst})
	l.patches = append(l.patches, patch{instrIdx: idx, srcOffset: target, field: field})
}

func cloneStack(s []slot) []slot {
	c := make([]slot, len(s))
	copy(c, s)
	return c
}

// recordSnapshot remembers the shadow stack a jump hands off to its target,
// so the linear walk can restore it once it physically reaches that offset
// instead of carrying forward whatever state straight-line scanning left
// behind.
func (l *lowerer) recordSnapshot(target int) {
	l.snapshots[target] = cloneStack(l.stack)
}

func (l *lowerer) stepUncondJump(op vm.Opcode) error {
	off, err := l.readUint16()
	if err != nil {
		return err
	}
	target := l.resolveJumpTarget(off)
	rop := rbytecode.RJump
	if op == vm.OpLoop {
		rop = rbytecode.RLoop
	}
	l.recordSnapshot(target)
	l.emitJumpPatch(rop, 0, fieldDst, target)
	// An unconditional transfer severs the shadow stack from whatever
	// bytecode physically follows; the next offset reached restores
	// whichever snapshot (if any) was recorded for it instead.
	l.pendingReset = true
	return nil
}

// stepCondJump lowers JUMP_IF_FALSE/JUMP_IF_TRUE. The stack VM only peeks
// the condition (vm/run.go), leaving it on the stack either way so a
// subsequent POP in the compiled bytecode discards it; lowering mirrors
// that by reading the shadow stack's top register without popping it.
func (l *lowerer) stepCondJump(op vm.Opcode) error {
	off, err := l.readUint16()
	if err != nil {
		return err
	}
	target := l.resolveJumpTarget(off)
	cond, err := l.peek()
	if err != nil {
		return err
	}
	rop := rbytecode.RJumpIfFalse
	if op == vm.OpJumpIfTrue {
		rop = rbytecode.RJumpIfTrue
	}
	l.recordSnapshot(target)
	idx := l.emit(rbytecode.Instr{Op: rop, Dst: 0, Src1: cond})
	l.patches = append(l.patches, patch{instrIdx: idx, srcOffset: target, field: fieldDst})
	return nil
}

func (l *lowerer) stepJumpIfLtI64() error {
	off, err := l.readUint16()
	if err != nil {
		return err
	}
	target := l.resolveJumpTarget(off)
	b, err := l.pop()
	if err != nil {
		return err
	}
	a, err := l.pop()
	if err != nil {
		return err
	}
	l.recordSnapshot(target)
	idx := l.emit(rbytecode.Instr{Op: rbytecode.RJumpIfLtI64, Dst: 0, Src1: a, Src2: b})
	l.patches = append(l.patches, patch{instrIdx: idx, srcOffset: target, field: fieldDst})
	l.release(a)
	l.release(b)
	return nil
}

func (l *lowerer) stepSetupExcept() error {
	off, err := l.readUint16()
	if err != nil {
		return err
	}
	catchVar, err := l.readByte()
	if err != nil {
		return err
	}
	target := l.resolveJumpTarget(off)
	l.recordSnapshot(target)
	idx := l.emit(rbytecode.Instr{Op: rbytecode.RSetupExcept, Dst: 0, Src1: catchVar})
	l.patches = append(l.patches, patch{instrIdx: idx, srcOffset: target, field: fieldDst})
	return nil
}
