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

package bytecode

import (
	"errors"
	"testing"

	"github.com/orus-lang/orus-vm/value"
)

func TestWriteByteAndReadByte(t *testing.T) {
	c := NewChunk()
	c.WriteByte(0x01, 10, 1)
	c.WriteByte(0x02, 10, 2)
	c.WriteByte(0x03, 11, 1)

	if c.Len() != 3 {
		t.Fatalf("expected length 3, got %d", c.Len())
	}
	for i, want := range []byte{0x01, 0x02, 0x03} {
		got, err := c.ReadByte(i)
		if err != nil {
			t.Fatalf("ReadByte(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("ReadByte(%d) = %#x, want %#x", i, got, want)
		}
	}
	if _, err := c.ReadByte(3); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestLineColumnRunLength(t *testing.T) {
	c := NewChunk()
	c.WriteByte(0x01, 10, 1)
	c.WriteByte(0x02, 10, 1)
	c.WriteByte(0x03, 10, 1)
	c.WriteByte(0x04, 12, 5)

	if len(c.runs) != 2 {
		t.Fatalf("expected 2 run-length entries, got %d", len(c.runs))
	}
	for i, wantLine := range []int{10, 10, 10, 12} {
		line, err := c.Line(i)
		if err != nil {
			t.Fatalf("Line(%d): %v", i, err)
		}
		if line != wantLine {
			t.Errorf("Line(%d) = %d, want %d", i, line, wantLine)
		}
	}
	col, err := c.Column(3)
	if err != nil {
		t.Fatalf("Column(3): %v", err)
	}
	if col != 5 {
		t.Errorf("Column(3) = %d, want 5", col)
	}
}

func TestAddConstantAndGetConstant(t *testing.T) {
	c := NewChunk()
	idx := c.AddConstant(value.I32(7))
	if idx != 0 {
		t.Fatalf("expected index 0, got %d", idx)
	}
	got, err := c.GetConstant(idx)
	if err != nil {
		t.Fatalf("GetConstant: %v", err)
	}
	if got.AsI32() != 7 {
		t.Errorf("got %d, want 7", got.AsI32())
	}
	if _, err := c.GetConstant(1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	c := NewChunk()
	c.AddConstant(value.I32(42))
	c.AddConstant(value.F64(3.25))
	c.AddConstant(value.Bool(true))
	c.AddConstant(value.Nil())
	c.AddConstant(value.FromObject(value.KindString, value.NewStringObject("hi")))
	c.WriteByte(0x10, 1, 1)
	c.WriteByte(0x11, 1, 2)
	c.WriteByte(0x12, 2, 1)

	data, err := c.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var restored Chunk
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	if restored.Len() != c.Len() {
		t.Fatalf("code length mismatch: got %d, want %d", restored.Len(), c.Len())
	}
	for i := 0; i < c.Len(); i++ {
		wantB, _ := c.ReadByte(i)
		gotB, _ := restored.ReadByte(i)
		if gotB != wantB {
			t.Errorf("byte %d: got %#x, want %#x", i, gotB, wantB)
		}
		wantLine, _ := c.Line(i)
		gotLine, _ := restored.Line(i)
		if gotLine != wantLine {
			t.Errorf("line %d: got %d, want %d", i, gotLine, wantLine)
		}
	}
	if len(restored.Constants) != len(c.Constants) {
		t.Fatalf("constant pool length mismatch: got %d, want %d", len(restored.Constants), len(c.Constants))
	}
	if restored.Constants[0].AsI32() != 42 {
		t.Errorf("constant 0: got %d, want 42", restored.Constants[0].AsI32())
	}
	if restored.Constants[1].AsF64() != 3.25 {
		t.Errorf("constant 1: got %v, want 3.25", restored.Constants[1].AsF64())
	}
	if !restored.Constants[2].AsBool() {
		t.Error("constant 2: expected true")
	}
	if restored.Constants[3].Kind() != value.KindNil {
		t.Error("constant 3: expected nil")
	}
	if restored.Constants[4].AsString() != "hi" {
		t.Errorf("constant 4: got %q, want %q", restored.Constants[4].AsString(), "hi")
	}
}

func TestUnmarshalBadMagic(t *testing.T) {
	var c Chunk
	if err := c.UnmarshalBinary([]byte{0, 0, 0, 0, 1}); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestMarshalRejectsArrayConstant(t *testing.T) {
	c := NewChunk()
	c.AddConstant(value.FromObject(value.KindArray, value.NewArrayObject(nil)))
	if _, err := c.MarshalBinary(); !errors.Is(err, ErrUnsupportedConstantKind) {
		t.Fatalf("expected ErrUnsupportedConstantKind, got %v", err)
	}
}
