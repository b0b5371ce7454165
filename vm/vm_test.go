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
	"bytes"
	"errors"
	"testing"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/value"
)

// chunkBuilder assembles a Chunk one instruction at a time for tests, in
// the style of instr/instrWide bytecode-builder test helpers, adapted to
// Orus's variable-width, RLE-lined Chunk instead of a fixed 4-byte word.
type chunkBuilder struct {
	c    *bytecode.Chunk
	line int
}

func newBuilder() *chunkBuilder {
	return &chunkBuilder{c: bytecode.NewChunk(), line: 1}
}

func (b *chunkBuilder) op(op Opcode, operands ...byte) *chunkBuilder {
	b.c.WriteByte(byte(op), b.line, 1)
	for _, o := range operands {
		b.c.WriteByte(o, b.line, 1)
	}
	return b
}

func (b *chunkBuilder) u16(op Opcode, n uint16) *chunkBuilder {
	return b.op(op, byte(n>>8), byte(n))
}

func (b *chunkBuilder) constOf(v value.Value) byte {
	return byte(b.c.AddConstant(v))
}

func newTestVM(c *bytecode.Chunk) *VM {
	v := New(c)
	var buf bytes.Buffer
	v.Stdout = &buf
	return v
}

func runAndCapture(t *testing.T, c *bytecode.Chunk) (string, Status, error) {
	t.Helper()
	v := New(c)
	var buf bytes.Buffer
	v.Stdout = &buf
	status, err := v.Run()
	return buf.String(), status, err
}

func TestScenarioIntegerArithmetic(t *testing.T) {
	// print(2 + 3 * 4) => 14
	b := newBuilder()
	c2 := b.constOf(value.I32(2))
	c3 := b.constOf(value.I32(3))
	c4 := b.constOf(value.I32(4))
	b.op(OpConstant, c3)
	b.op(OpConstant, c4)
	b.op(OpMul, byte(NumI32))
	b.op(OpConstant, c2)
	b.op(OpAdd, byte(NumI32))
	b.op(OpPrint)
	b.op(OpReturn)

	out, status, err := runAndCapture(t, b.c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if out != "14\n" {
		t.Fatalf("got %q, want %q", out, "14\n")
	}
}

func TestScenarioLoopAndMutation(t *testing.T) {
	// let s = 0; for i in 0..10 { s = s + i } print(s)
	// Implemented directly against globals: global 0 = s, global 1 = i.
	b := newBuilder()
	zero := b.constOf(value.I32(0))
	ten := b.constOf(value.I32(10))
	one := b.constOf(value.I32(1))

	b.op(OpConstant, zero)
	b.u16(OpDefineGlobal, 0) // s = 0
	b.op(OpConstant, zero)
	b.u16(OpDefineGlobal, 1) // i = 0

	loopStart := b.c.Len()
	b.u16(OpGetGlobal, 1)
	b.op(OpConstant, ten)
	b.op(OpLess, byte(NumI32))
	exitPatch := b.c.Len() + 1
	b.u16(OpJumpIfFalse, 0) // patched below

	b.u16(OpGetGlobal, 0)
	b.u16(OpGetGlobal, 1)
	b.op(OpAdd, byte(NumI32))
	b.u16(OpSetGlobal, 0)
	b.op(OpPop)

	b.u16(OpGetGlobal, 1)
	b.op(OpConstant, one)
	b.op(OpAdd, byte(NumI32))
	b.u16(OpSetGlobal, 1)
	b.op(OpPop)

	b.u16(OpLoop, uint16(loopStart))
	loopEnd := b.c.Len()

	b.u16(OpGetGlobal, 0)
	b.op(OpPrint)
	b.op(OpReturn)

	patchU16(b.c, exitPatch, uint16(loopEnd))

	out, status, err := runAndCapture(t, b.c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if out != "45\n" {
		t.Fatalf("got %q, want %q", out, "45\n")
	}
}

func patchU16(c *bytecode.Chunk, offset int, val uint16) {
	hi := byte(val >> 8)
	lo := byte(val)
	setByte(c, offset, hi)
	setByte(c, offset+1, lo)
}

// setByte patches an already-written code byte directly, something the
// compiler would do via a saved index; exposed here only for jump-patching
// in tests since Chunk has no public in-place writer.
func setByte(c *bytecode.Chunk, offset int, b byte) {
	c.Code[offset] = b
}

func TestScenarioTryCatch(t *testing.T) {
	// try { print(10/0) } catch e { print("caught") }
	b := newBuilder()
	ten := b.constOf(value.I32(10))
	zero := b.constOf(value.I32(0))
	caught := b.constOf(value.FromObject(value.KindString, value.NewStringObject("caught")))

	setupIdx := b.c.Len()
	b.op(OpSetupExcept, 0, 0, 0) // placeholder off16 + catchVar, patched below
	b.op(OpConstant, ten)
	b.op(OpConstant, zero)
	b.op(OpDiv, byte(NumI32))
	b.op(OpPrint)
	b.op(OpPopExcept)
	afterTryJumpIdx := b.c.Len() + 1
	b.u16(OpJump, 0) // skip handler, patched below

	handlerIdx := b.c.Len()
	b.op(OpConstant, caught)
	b.op(OpPrint)

	endIdx := b.c.Len()
	b.op(OpReturn)

	// patch SETUP_EXCEPT's off16 operand (bytes setupIdx+1, setupIdx+2) to handlerIdx
	patchU16(b.c, setupIdx+1, uint16(handlerIdx))
	patchU16(b.c, afterTryJumpIdx, uint16(endIdx))

	out, status, err := runAndCapture(t, b.c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if out != "caught\n" {
		t.Fatalf("got %q, want %q", out, "caught\n")
	}
}

func TestScenarioFormatPrint(t *testing.T) {
	b := newBuilder()
	fmtStr := b.constOf(value.FromObject(value.KindString, value.NewStringObject("x={} y={}")))
	one := b.constOf(value.I32(1))
	twoFive := b.constOf(value.F64(2.5))

	b.op(OpConstant, one)
	b.op(OpConstant, twoFive)
	b.op(OpConstant, fmtStr)
	b.op(OpConstant, b.constOf(value.I32(2)))
	b.op(OpFormatPrint)
	b.op(OpReturn)

	out, status, err := runAndCapture(t, b.c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if out != "x=1 y=2.5\n" {
		t.Fatalf("got %q, want %q", out, "x=1 y=2.5\n")
	}
}

func TestScenarioFormatPrintMismatch(t *testing.T) {
	b := newBuilder()
	fmtStr := b.constOf(value.FromObject(value.KindString, value.NewStringObject("{} {}")))
	one := b.constOf(value.I32(1))

	b.op(OpConstant, one)
	b.op(OpConstant, fmtStr)
	b.op(OpConstant, b.constOf(value.I32(1)))
	b.op(OpFormatPrint)
	b.op(OpReturn)

	_, status, err := runAndCapture(t, b.c)
	if status != StatusRuntimeError {
		t.Fatalf("expected StatusRuntimeError, got %v", status)
	}
	if !errors.Is(err, ErrBadFormatPrint) {
		t.Fatalf("expected ErrBadFormatPrint, got %v", err)
	}
}

func TestScenarioArrayOperations(t *testing.T) {
	// let a = [1,2,3]; a.push(4); print(a.len()); print(a[3])
	b := newBuilder()
	one := b.constOf(value.I32(1))
	two := b.constOf(value.I32(2))
	three := b.constOf(value.I32(3))
	four := b.constOf(value.I32(4))

	b.op(OpConstant, one)
	b.op(OpConstant, two)
	b.op(OpConstant, three)
	b.u16(OpMakeArray, 3)
	b.u16(OpDefineGlobal, 0)

	b.u16(OpGetGlobal, 0)
	b.op(OpConstant, four)
	b.op(OpArrayPush)
	b.op(OpPop)

	b.u16(OpGetGlobal, 0)
	b.op(OpLenArray)
	b.op(OpPrint)

	b.u16(OpGetGlobal, 0)
	b.op(OpConstant, three) // index 3
	b.op(OpArrayGet)
	b.op(OpPrint)
	b.op(OpReturn)

	out, status, err := runAndCapture(t, b.c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if out != "4\n4\n" {
		t.Fatalf("got %q, want %q", out, "4\n4\n")
	}
}

func TestDivisionByZeroUncaught(t *testing.T) {
	b := newBuilder()
	ten := b.constOf(value.I32(10))
	zero := b.constOf(value.I32(0))
	b.op(OpConstant, ten)
	b.op(OpConstant, zero)
	b.op(OpDiv, byte(NumI32))
	b.op(OpReturn)

	_, status, err := runAndCapture(t, b.c)
	if status != StatusRuntimeError {
		t.Fatalf("expected StatusRuntimeError, got %v", status)
	}
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestArrayIndexOutOfRange(t *testing.T) {
	b := newBuilder()
	one := b.constOf(value.I32(1))
	idx := b.constOf(value.I32(5))
	b.op(OpConstant, one)
	b.u16(OpMakeArray, 1)
	b.op(OpConstant, idx)
	b.op(OpArrayGet)
	b.op(OpReturn)

	_, status, err := runAndCapture(t, b.c)
	if status != StatusRuntimeError {
		t.Fatalf("expected StatusRuntimeError, got %v", status)
	}
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestSignedOverflowI64(t *testing.T) {
	b := newBuilder()
	maxV := b.constOf(value.I64(9223372036854775807))
	one := b.constOf(value.I64(1))
	b.u16(OpI64Const, uint16(maxV))
	b.u16(OpI64Const, uint16(one))
	b.op(OpAdd, byte(NumI64))
	b.op(OpReturn)

	_, status, err := runAndCapture(t, b.c)
	if status != StatusRuntimeError {
		t.Fatalf("expected StatusRuntimeError, got %v", status)
	}
	if !errors.Is(err, ErrIntegerOverflow) {
		t.Fatalf("expected ErrIntegerOverflow, got %v", err)
	}
}

func TestStackUnderflow(t *testing.T) {
	b := newBuilder()
	b.op(OpPop)
	b.op(OpReturn)

	_, status, err := runAndCapture(t, b.c)
	if status != StatusRuntimeError {
		t.Fatalf("expected StatusRuntimeError, got %v", status)
	}
	if !errors.Is(err, ErrStackUnderflow) {
		t.Fatalf("expected ErrStackUnderflow, got %v", err)
	}
}

func TestInstanceIDsAreUnique(t *testing.T) {
	a := New(bytecode.NewChunk())
	b := New(bytecode.NewChunk())
	if a.ID() == "" || b.ID() == "" {
		t.Fatal("expected non-empty instance ids")
	}
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct instance ids, got %q twice", a.ID())
	}
}
