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
	"bytes"
	"testing"

	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/lower"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// stackChunkBuilder assembles a stack bytecode.Chunk, the same helper
// package vm and package lower's own tests use, so register-VM tests can
// build programs the way a real compiler would (stack bytecode) and lower
// them, instead of hand-assembling rbytecode.Instr values.
type stackChunkBuilder struct {
	c    *bytecode.Chunk
	line int
}

func newStackChunkBuilder() *stackChunkBuilder {
	return &stackChunkBuilder{c: bytecode.NewChunk(), line: 1}
}

func (b *stackChunkBuilder) op(op vm.Opcode, operands ...byte) *stackChunkBuilder {
	b.c.WriteByte(byte(op), b.line, 1)
	for _, o := range operands {
		b.c.WriteByte(o, b.line, 1)
	}
	return b
}

func (b *stackChunkBuilder) u16(op vm.Opcode, n uint16) *stackChunkBuilder {
	return b.op(op, byte(n>>8), byte(n))
}

func (b *stackChunkBuilder) constOf(v value.Value) byte {
	return byte(b.c.AddConstant(v))
}

func newTestVM(t *testing.T, c *bytecode.Chunk) (*VM, *bytes.Buffer) {
	t.Helper()
	rc, err := lower.Lower(c, nil, lower.Options{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	v := New(rc)
	buf := &bytes.Buffer{}
	v.Stdout = buf
	return v, buf
}

func TestRegisterVMArithmetic(t *testing.T) {
	b := newStackChunkBuilder()
	c2 := b.constOf(value.I32(2))
	c3 := b.constOf(value.I32(3))
	c4 := b.constOf(value.I32(4))
	b.op(vm.OpConstant, c3)
	b.op(vm.OpConstant, c4)
	b.op(vm.OpMul, byte(vm.NumI32))
	b.op(vm.OpConstant, c2)
	b.op(vm.OpAdd, byte(vm.NumI32))
	b.op(vm.OpPrint)
	b.op(vm.OpReturn)

	rv, buf := newTestVM(t, b.c)
	status, err := rv.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected StatusOK, got %v", status)
	}
	if got := buf.String(); got != "14\n" {
		t.Fatalf("got %q, want %q", got, "14\n")
	}
}

func TestRegisterVMGlobalsRoundTrip(t *testing.T) {
	b := newStackChunkBuilder()
	v := b.constOf(value.I32(99))
	b.op(vm.OpConstant, v)
	b.u16(vm.OpDefineGlobal, 0)
	b.u16(vm.OpGetGlobal, 0)
	b.op(vm.OpPrint)
	b.op(vm.OpReturn)

	rv, buf := newTestVM(t, b.c)
	if _, err := rv.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "99\n" {
		t.Fatalf("got %q, want %q", got, "99\n")
	}
	globals := rv.Globals()
	if len(globals) == 0 || globals[0].AsI32() != 99 {
		t.Fatalf("expected global 0 to be 99, got %+v", globals)
	}
}

func TestRegisterVMDivideByZeroRaisesRuntimeError(t *testing.T) {
	b := newStackChunkBuilder()
	ten := b.constOf(value.I32(10))
	zero := b.constOf(value.I32(0))
	b.op(vm.OpConstant, ten)
	b.op(vm.OpConstant, zero)
	b.op(vm.OpDiv, byte(vm.NumI32))
	b.op(vm.OpReturn)

	rv, _ := newTestVM(t, b.c)
	status, err := rv.Run()
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
	if status != StatusRuntimeError {
		t.Fatalf("expected StatusRuntimeError, got %v", status)
	}
}

func TestRegisterVMCallNative(t *testing.T) {
	b := newStackChunkBuilder()
	arg := b.constOf(value.I32(5))
	b.op(vm.OpConstant, arg)
	b.op(vm.OpCallNative, 0, 0, 1) // native index 0, argc 1
	b.op(vm.OpPrint)
	b.op(vm.OpReturn)

	rv, buf := newTestVM(t, b.c)
	rv.Natives = []NativeInfo{{
		Name:  "double",
		Arity: 1,
		Fn: func(vm2 *VM, args []value.Value) value.Value {
			return value.I32(args[0].AsI32() * 2)
		},
	}}

	if _, err := rv.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "10\n" {
		t.Fatalf("got %q, want %q", got, "10\n")
	}
}

func TestRegisterVMInstanceIDsAreUnique(t *testing.T) {
	a := New(nil)
	b := New(nil)
	if a.ID() == "" || b.ID() == "" {
		t.Fatal("expected non-empty instance ids")
	}
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct instance ids, got %q twice", a.ID())
	}
}
