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

// Package bytecode implements the stack interpreter's Chunk: an
// immutable-after-build container of code bytes, a run-length-encoded
// line/column table, and a constant pool.
package bytecode

import (
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

// posRun is one run-length entry in the line/column table: count
// consecutive instruction bytes share the same source position.
type posRun struct {
	line   int32
	column int32
	count  int32
}

// Chunk is the compiler's output for a single function or top-level script
// body. It grows monotonically while being built (Write*/AddConstant) and
// is read-only once execution begins.
type Chunk struct {
	Code      []byte
	Constants []value.Value

	runs       []posRun // run-length encoded line/column, keyed by code offset
	lastLine   int32
	lastColumn int32
}

// NewChunk returns an empty Chunk ready for WriteByte/AddConstant calls.
func NewChunk() *Chunk {
	return &Chunk{lastLine: -1, lastColumn: -1}
}

// WriteByte appends b to the code stream, recording line/column for it.
// Consecutive bytes sharing the same line and column are folded into the
// same run-length entry rather than allocating a new one.
func (c *Chunk) WriteByte(b byte, line, column int) {
	c.Code = append(c.Code, b)
	l, col := int32(line), int32(column)
	if n := len(c.runs); n > 0 && c.runs[n-1].line == l && c.runs[n-1].column == col {
		c.runs[n-1].count++
		return
	}
	c.runs = append(c.runs, posRun{line: l, column: col, count: 1})
}

// AddConstant appends v to the constant pool and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of code bytes written so far.
func (c *Chunk) Len() int { return len(c.Code) }

// ReadByte returns the byte at offset.
func (c *Chunk) ReadByte(offset int) (byte, error) {
	if offset < 0 || offset >= len(c.Code) {
		return 0, fmt.Errorf("%w: offset %d", ErrOutOfRange, offset)
	}
	return c.Code[offset], nil
}

// GetConstant returns the constant at index idx.
func (c *Chunk) GetConstant(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(c.Constants) {
		return value.Value{}, fmt.Errorf("%w: constant index %d", ErrOutOfRange, idx)
	}
	return c.Constants[idx], nil
}

// Line returns the source line recorded for the instruction byte at offset.
func (c *Chunk) Line(offset int) (int, error) {
	l, _, err := c.position(offset)
	return int(l), err
}

// Column returns the source column recorded for the instruction byte at
// offset.
func (c *Chunk) Column(offset int) (int, error) {
	_, col, err := c.position(offset)
	return int(col), err
}

func (c *Chunk) position(offset int) (int32, int32, error) {
	if offset < 0 || offset >= len(c.Code) {
		return 0, 0, fmt.Errorf("%w: offset %d", ErrOutOfRange, offset)
	}
	pos := 0
	for _, r := range c.runs {
		if offset < pos+int(r.count) {
			return r.line, r.column, nil
		}
		pos += int(r.count)
	}
	return 0, 0, fmt.Errorf("%w: offset %d not covered by line table", ErrOutOfRange, offset)
}
