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

// Package lower implements the stack-to-register translation: it walks a
// stack bytecode.Chunk linearly, tracks a compile-time shadow stack of
// which register holds each logical stack slot, and emits an equivalent
// rbytecode.Chunk for the register interpreter (package rvm) to execute.
// Modeled on a codegen.Generator's two-pass emit-then-patch structure,
// reworked from an SSA-to-bytecode pass into a stack-bytecode-to-
// register-bytecode pass with its own free-list/spill register allocation
// policy instead of a simple bump allocator.
package lower

import (
	"fmt"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/vm"
)

// Options tunes the lowering pass's handling of its open questions.
type Options struct {
	// AllowUnsupportedAsNOP selects the originally-documented behavior
	// (silently emit NOP for an opcode lowering has no translation for)
	// instead of the resolved default of failing fast with
	// ErrUnsupportedOpcode. Kept so that documented behavior stays
	// testable; defaults to false (fail-fast).
	AllowUnsupportedAsNOP bool
}

// patch is a deferred jump-target fixup, recorded while walking a stack
// chunk and resolved once the whole chunk (and therefore its offsetMap) is
// known, the same patches []patchEntry / labels map two-pass structure a
// bytecode-emitting code generator uses for forward jumps.
type patch struct {
	instrIdx  int
	srcOffset int
	field     patchField
}

type patchField byte

const (
	fieldDst patchField = iota
	fieldSrc1
	fieldSrc2
)

// lowerer holds all per-function-unit state for one call to lowerUnit: the
// shadow stack, the register allocator, and the jump-patch bookkeeping.
// A fresh lowerer is built per stack chunk (the main script chunk, or one
// per vm.FunctionInfo), since in this codebase each function already owns
// its own bytecode.Chunk rather than sharing one chunk's byte-offset space.
type lowerer struct {
	rc  *rbytecode.Chunk
	src *bytecode.Chunk
	ip  int

	stack []slot
	alc   *allocator

	offsetMap map[int]int
	patches   []patch

	// snapshots and pendingReset resolve the shadow stack across control
	// flow joins: a conditional jump's target sees the exact same stack it
	// left behind (JUMP_IF_FALSE/JUMP_IF_TRUE only peek, so the fallthrough
	// and taken-branch states already agree), but an unconditional
	// transfer (JUMP/LOOP/RETURN) severs the shadow stack from whatever
	// follows it physically in the chunk; the walk restores the snapshot
	// recorded for that offset (by whichever earlier jump targets it)
	// instead of carrying forward stale state from straight-line scanning.
	snapshots    map[int][]slot
	pendingReset bool

	constCache map[int]int

	// lastWindowBase communicates the base register of the most recently
	// built contiguous argument window (see emitArgWindow) from the
	// window-building helper back to its caller.
	lastWindowBase byte

	opts Options
}

// Lower translates a top-level stack chunk plus its function table into a
// single register Chunk. functions is the same table the stack VM (package
// vm) was constructed with; CALL's global-index indirection is preserved
// unchanged (CALL lowering keeps the global lookup, it does not resolve
// function addresses directly), so the register program reads
// the same globals table as the stack program to discover which function
// index to invoke.
func Lower(main *bytecode.Chunk, functions []vm.FunctionInfo, opts Options) (*rbytecode.Chunk, error) {
	rc := rbytecode.NewChunk()

	if _, _, err := lowerUnit(rc, main, 0, opts); err != nil {
		return nil, fmt.Errorf("lowering main chunk: %w", err)
	}

	rc.Functions = make([]rbytecode.FuncEntry, len(functions))
	for i, fn := range functions {
		offset, regCount, err := lowerUnit(rc, fn.Chunk, fn.Arity, opts)
		if err != nil {
			return nil, fmt.Errorf("lowering function %q (index %d): %w", fn.Name, i, err)
		}
		rc.Functions[i] = rbytecode.FuncEntry{
			Name:     fn.Name,
			Offset:   offset,
			RegCount: regCount,
			Arity:    fn.Arity,
		}
	}
	return rc, nil
}

// lowerUnit lowers a single stack chunk (the top-level script, or one
// function body) into rc, appending to its shared Code stream, and returns
// the instruction index the unit started at plus the peak register count
// it used.
func lowerUnit(rc *rbytecode.Chunk, src *bytecode.Chunk, arity int, opts Options) (startOffset int, regCount int, err error) {
	l := &lowerer{
		rc:         rc,
		src:        src,
		alc:        newAllocator(arity),
		offsetMap:  make(map[int]int),
		snapshots:  make(map[int][]slot),
		constCache: make(map[int]int),
		opts:       opts,
	}
	startOffset = len(rc.Code)

	for l.ip < src.Len() {
		if l.pendingReset {
			if snap, ok := l.snapshots[l.ip]; ok {
				l.stack = snap
			}
			l.pendingReset = false
		}
		l.offsetMap[l.ip] = len(rc.Code)
		opByte, e := l.readByte()
		if e != nil {
			return 0, 0, e
		}
		if e := l.step(vm.Opcode(opByte)); e != nil {
			return 0, 0, fmt.Errorf("offset %d: %w", l.ip-1, e)
		}
	}
	// A jump may target the synthetic end-of-chunk offset (e.g. an exit
	// branch past the last instruction); record it too.
	l.offsetMap[src.Len()] = len(rc.Code)

	for _, p := range l.patches {
		target, ok := l.offsetMap[p.srcOffset]
		if !ok {
			return 0, 0, fmt.Errorf("%w: unresolved jump to stack offset %d", ErrShadowStackUnderflow, p.srcOffset)
		}
		if target > 0xFF {
			return 0, 0, fmt.Errorf("%w: target instruction %d", ErrJumpTargetTooFar, target)
		}
		instr := l.rc.Code[p.instrIdx]
		switch p.field {
		case fieldDst:
			instr.Dst = byte(target)
		case fieldSrc1:
			instr.Src1 = byte(target)
		case fieldSrc2:
			instr.Src2 = byte(target)
		}
		l.rc.Code[p.instrIdx] = instr
	}

	return startOffset, l.alc.funcMax, nil
}

// ---- byte stream reading over the stack chunk ---------------------------

func (l *lowerer) readByte() (byte, error) {
	b, err := l.src.ReadByte(l.ip)
	if err != nil {
		return 0, err
	}
	l.ip++
	return b, nil
}

func (l *lowerer) readUint16() (uint16, error) {
	hi, err := l.readByte()
	if err != nil {
		return 0, err
	}
	lo, err := l.readByte()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// ---- shadow stack ---------------------------------------------------------

func (l *lowerer) push(reg byte) {
	l.stack = append(l.stack, slot{reg: reg})
}

func (l *lowerer) pop() (byte, error) {
	n := len(l.stack)
	if n == 0 {
		return 0, ErrShadowStackUnderflow
	}
	idx := n - 1
	if err := l.reload(&l.stack[idx]); err != nil {
		return 0, err
	}
	reg := l.stack[idx].reg
	l.stack = l.stack[:idx]
	return reg, nil
}

// peek materializes the top shadow-stack entry's register without removing
// it, for the stack VM's JUMP_IF_FALSE/JUMP_IF_TRUE which test the
// condition but leave it on the stack for a later POP to discard.
func (l *lowerer) peek() (byte, error) {
	n := len(l.stack)
	if n == 0 {
		return 0, ErrShadowStackUnderflow
	}
	if err := l.reload(&l.stack[n-1]); err != nil {
		return 0, err
	}
	return l.stack[n-1].reg, nil
}

// ---- emission -------------------------------------------------------------

func (l *lowerer) emit(i rbytecode.Instr) int {
	line, col := 0, 0
	if n, err := l.src.Line(l.ip - 1); err == nil {
		line = n
	}
	if n, err := l.src.Column(l.ip - 1); err == nil {
		col = n
	}
	return l.rc.Emit(i, int32(line), int32(col))
}

// remapConst copies the constant at srcIdx (in l.src's pool) into the
// shared register chunk's pool the first time it's referenced by this
// unit, caching the mapping for subsequent references.
func (l *lowerer) remapConst(srcIdx int) (int, error) {
	if idx, ok := l.constCache[srcIdx]; ok {
		return idx, nil
	}
	v, err := l.src.GetConstant(srcIdx)
	if err != nil {
		return 0, err
	}
	idx := l.rc.AddConstant(v)
	l.constCache[srcIdx] = idx
	return idx, nil
}

func (l *lowerer) emitLoadConst(dst byte, srcConstIdx int) error {
	idx, err := l.remapConst(srcConstIdx)
	if err != nil {
		return err
	}
	l.emit(rbytecode.WithImm16(rbytecode.RLoadConst, dst, uint16(idx)))
	if v, err := l.src.GetConstant(srcConstIdx); err == nil && v.Kind().IsNumeric() {
		l.alc.setConst(dst, vm.NumericAsI64(v))
	}
	return nil
}

// step decodes and lowers a single stack opcode starting at l.ip (the
// opcode byte itself has already been consumed by the caller).
func (l *lowerer) step(op vm.Opcode) error {
	switch {
	case op == vm.OpConstant || op == vm.OpConstantLong || op == vm.OpI64Const:
		return l.stepLoadConst(op)
	case op == vm.OpNil:
		r, err := l.alloc()
		if err != nil {
			return err
		}
		l.emit(rbytecode.Instr{Op: rbytecode.RNil, Dst: r})
		l.push(r)
		return nil
	case op == vm.OpPop:
		r, err := l.pop()
		if err != nil {
			return err
		}
		l.release(r)
		return nil
	case op == vm.OpDefineGlobal || op == vm.OpSetGlobal:
		return l.stepStoreGlobal(op)
	case op == vm.OpGetGlobal:
		return l.stepLoadGlobal()

	case isArith(op):
		return l.stepArith(op)
	case isBitwise(op):
		return l.stepBitwise(op)
	case isCompare(op):
		return l.stepCompare(op)
	case op == vm.OpCast:
		return l.stepCast()
	case op == vm.OpToString:
		return l.stepToString()

	case op == vm.OpJump || op == vm.OpLoop:
		return l.stepUncondJump(op)
	case op == vm.OpJumpIfFalse || op == vm.OpJumpIfTrue:
		return l.stepCondJump(op)
	case op == vm.OpJumpIfLtI64:
		return l.stepJumpIfLtI64()
	case op == vm.OpBreak || op == vm.OpContinue:
		return l.unsupported(op)

	case op == vm.OpSetupExcept:
		return l.stepSetupExcept()
	case op == vm.OpPopExcept:
		l.emit(rbytecode.Instr{Op: rbytecode.RPopExcept})
		return nil

	case op == vm.OpCall:
		return l.stepCall()
	case op == vm.OpCallNative:
		return l.stepCallNative()
	case op == vm.OpReturn:
		return l.stepReturn()

	case isAggregate(op):
		return l.stepAggregate(op)

	case op == vm.OpGCPause:
		l.emit(rbytecode.Instr{Op: rbytecode.RGCPause})
		return nil
	case op == vm.OpGCResume:
		l.emit(rbytecode.Instr{Op: rbytecode.RGCResume})
		return nil

	case op == vm.OpPrint || op == vm.OpPrintNoNL || op == vm.OpPrintTyped:
		return l.stepPrint(op)
	case op == vm.OpFormatPrint || op == vm.OpFormatPrintNoNL:
		return l.stepFormatPrint(op)

	case op == vm.OpImport:
		return l.stepImport()
	}
	return l.unsupported(op)
}

func (l *lowerer) unsupported(op vm.Opcode) error {
	// Consume any declared operand bytes so a NOP substitution keeps the
	// byte cursor correctly positioned for subsequent offsetMap entries.
	for i := 0; i < op.Operands(); i++ {
		if _, err := l.readByte(); err != nil {
			return err
		}
	}
	if !l.opts.AllowUnsupportedAsNOP {
		return fmt.Errorf("%w: %s", ErrUnsupportedOpcode, op)
	}
	l.emit(rbytecode.Instr{Op: rbytecode.RNop})
	return nil
}

func isArith(op vm.Opcode) bool {
	switch op {
	case vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpMod, vm.OpNeg,
		vm.OpAddGeneric, vm.OpSubGeneric, vm.OpMulGeneric, vm.OpDivGeneric, vm.OpModGeneric, vm.OpNegGeneric:
		return true
	}
	return false
}

func isBitwise(op vm.Opcode) bool {
	switch op {
	case vm.OpBitAnd, vm.OpBitOr, vm.OpBitXor, vm.OpBitNot, vm.OpShl, vm.OpShr:
		return true
	}
	return false
}

func isCompare(op vm.Opcode) bool {
	switch op {
	case vm.OpEqual, vm.OpNotEqual, vm.OpLess, vm.OpLessEqual, vm.OpGreater, vm.OpGreaterEqual,
		vm.OpLessGeneric, vm.OpLessEqualGeneric, vm.OpGreaterGeneric, vm.OpGreaterEqualGeneric:
		return true
	}
	return false
}

func isAggregate(op vm.Opcode) bool {
	switch op {
	case vm.OpMakeArray, vm.OpArrayGet, vm.OpArraySet, vm.OpArrayPush, vm.OpArrayPop, vm.OpArrayReserve,
		vm.OpLenArray, vm.OpLenString, vm.OpSubstring, vm.OpSlice, vm.OpConcat, vm.OpTypeOf:
		return true
	}
	return false
}
