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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// chunkBuilder assembles a stack bytecode.Chunk one instruction at a time,
// mirroring package vm's test helper of the same name.
type chunkBuilder struct {
	c    *bytecode.Chunk
	line int
}

func newBuilder() *chunkBuilder {
	return &chunkBuilder{c: bytecode.NewChunk(), line: 1}
}

func (b *chunkBuilder) op(op vm.Opcode, operands ...byte) *chunkBuilder {
	b.c.WriteByte(byte(op), b.line, 1)
	for _, o := range operands {
		b.c.WriteByte(o, b.line, 1)
	}
	return b
}

func (b *chunkBuilder) u16(op vm.Opcode, n uint16) *chunkBuilder {
	return b.op(op, byte(n>>8), byte(n))
}

func (b *chunkBuilder) constOf(v value.Value) byte {
	return byte(b.c.AddConstant(v))
}

func TestLowerConstantArithmetic(t *testing.T) {
	// 2 + 3 * 4, matching package vm's integer-arithmetic scenario.
	b := newBuilder()
	c2 := b.constOf(value.I32(2))
	c3 := b.constOf(value.I32(3))
	c4 := b.constOf(value.I32(4))
	b.op(vm.OpConstant, c2)
	b.op(vm.OpConstant, c3)
	b.op(vm.OpConstant, c4)
	b.op(vm.OpMul, byte(vm.NumI32))
	b.op(vm.OpAdd, byte(vm.NumI32))
	b.op(vm.OpReturn)

	rc, err := Lower(b.c, nil, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, rc.Code)

	var ops []rbytecode.Opcode
	for _, instr := range rc.Code {
		ops = append(ops, instr.Op)
	}
	require.Equal(t, []rbytecode.Opcode{
		rbytecode.RLoadConst, rbytecode.RLoadConst, rbytecode.RLoadConst,
		rbytecode.RMul, rbytecode.RAdd, rbytecode.RReturn,
	}, ops)
}

func TestLowerUnsupportedOpcodeFailsFast(t *testing.T) {
	b := newBuilder()
	b.op(vm.OpBreak)
	_, err := Lower(b.c, nil, Options{})
	require.ErrorIs(t, err, ErrUnsupportedOpcode)
}

func TestLowerUnsupportedOpcodeAsNOP(t *testing.T) {
	b := newBuilder()
	b.op(vm.OpBreak)
	rc, err := Lower(b.c, nil, Options{AllowUnsupportedAsNOP: true})
	require.NoError(t, err)
	require.Len(t, rc.Code, 1)
	require.Equal(t, rbytecode.RNop, rc.Code[0].Op)
}

func TestLowerJumpPatchesAbsoluteTarget(t *testing.T) {
	// if (false) { 1 } else { 2 }; jump targets are absolute byte offsets,
	// mirroring vm/run.go's `vm.ip = int(off)`. Offsets below are computed
	// by hand from each instruction's fixed width (opcode byte + operands)
	// since bytecode.Chunk, like the stack compiler it mirrors, only
	// supports appending, not patching already-written bytes.
	b := newBuilder()
	falseConst := b.constOf(value.Bool(false))
	oneConst := b.constOf(value.I32(1))
	twoConst := b.constOf(value.I32(2))

	b.op(vm.OpConstant, falseConst) // 0: len 2
	b.u16(vm.OpJumpIfFalse, 11)     // 2: len 3, target = elseTarget (11)
	b.op(vm.OpPop)                  // 5: len 1
	b.op(vm.OpConstant, oneConst)   // 6: len 2
	b.u16(vm.OpJump, 14)            // 8: len 3, target = endTarget (14)
	b.op(vm.OpPop)                  // 11: elseTarget, len 1
	b.op(vm.OpConstant, twoConst)   // 12: len 2
	b.op(vm.OpReturn)               // 14: endTarget

	rc, err := Lower(b.c, nil, Options{})
	require.NoError(t, err)

	jmpIfFalse := findOp(t, rc, rbytecode.RJumpIfFalse)
	jmp := findOp(t, rc, rbytecode.RJump)
	require.Less(t, int(jmpIfFalse.Dst), len(rc.Code))
	require.Less(t, int(jmp.Dst), len(rc.Code))
	// POP lowers to zero register instructions (it just frees a register),
	// so the else-branch's target resolves to the next real instruction:
	// loading the constant 2.
	require.Equal(t, rbytecode.RLoadConst, rc.Code[jmpIfFalse.Dst].Op)
	require.Equal(t, rbytecode.RReturn, rc.Code[jmp.Dst].Op)
}

func TestLowerCallUsesContiguousWindow(t *testing.T) {
	b := newBuilder()
	a1 := b.constOf(value.I32(1))
	a2 := b.constOf(value.I32(2))
	b.op(vm.OpConstant, a1)
	b.op(vm.OpConstant, a2)
	b.op(vm.OpCall, 0, 0, 2) // globalIdx=0, argc=2
	b.op(vm.OpReturn)

	rc, err := Lower(b.c, nil, Options{})
	require.NoError(t, err)

	var movs []rbytecode.Instr
	var call *rbytecode.Instr
	for i := range rc.Code {
		switch rc.Code[i].Op {
		case rbytecode.RMov:
			movs = append(movs, rc.Code[i])
		case rbytecode.RCall:
			call = &rc.Code[i]
		}
	}
	require.Len(t, movs, 2)
	require.NotNil(t, call)
	require.Equal(t, movs[0].Dst, call.Dst)
	require.Equal(t, movs[1].Dst, movs[0].Dst+1)
}

func TestLowerFormatPrintRequiresConstantArgc(t *testing.T) {
	// calling convention: push arg values, then the format string, then argc.
	b := newBuilder()
	argConst := b.constOf(value.I32(7))
	fmtConst := b.constOf(mustString("x={}"))
	argcConst := b.constOf(value.I32(1))
	b.op(vm.OpConstant, argConst)
	b.op(vm.OpConstant, fmtConst)
	b.op(vm.OpConstant, argcConst) // argc = 1, traceable
	b.op(vm.OpFormatPrint)

	rc, err := Lower(b.c, nil, Options{})
	require.NoError(t, err)
	require.NotNil(t, findOp(t, rc, rbytecode.RFormatPrint))
}

func mustString(s string) value.Value {
	return value.FromObject(value.KindString, value.NewStringObject(s))
}

func findOp(t *testing.T, rc *rbytecode.Chunk, op rbytecode.Opcode) *rbytecode.Instr {
	t.Helper()
	for i := range rc.Code {
		if rc.Code[i].Op == op {
			return &rc.Code[i]
		}
	}
	t.Fatalf("no %s instruction found in lowered chunk", op)
	return nil
}
