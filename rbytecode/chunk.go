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

package rbytecode

import (
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

// FuncEntry is one entry in the register chunk's function table: where a
// function's code begins in the shared instruction stream and how many
// registers its window must reserve. Extends a codegen.FuncEntry{Name,
// Offset, Locals}-style table with the max-touched-register count the
// allocator in package lower needs.
type FuncEntry struct {
	Name     string
	Offset   int // index into Chunk.Code, not a byte offset
	RegCount int // highest register index + 1 this function ever writes
	Arity    int
}

// DebugEntry records the source position a single register instruction was
// lowered from, used for trace output and uncaught-error reporting; this is
// optional and may be left empty by lowering passes that don't need it.
type DebugEntry struct {
	Line   int32
	Column int32
}

// Chunk is the register VM's executable unit: a flat stream of decoded
// instructions (one per logical register-machine word — the 32-bit wire
// format of Encode/Decode is not used in the hot path, and Chunk itself
// has no serialization), a constant pool into which lowering copies the
// originating stack chunks' constants, and a function table.
type Chunk struct {
	Code      []Instr
	Constants []value.Value
	Functions []FuncEntry
	Debug     []DebugEntry // parallel to Code; empty when debug info is off
}

// NewChunk returns an empty register Chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Emit appends an instruction (and its optional debug position) and
// returns the index it was written at, used by the lowering pass to learn
// the register-code index a patch should target.
func (c *Chunk) Emit(i Instr, line, column int32) int {
	idx := len(c.Code)
	c.Code = append(c.Code, i)
	if len(c.Debug) > 0 || line != 0 || column != 0 {
		for len(c.Debug) < idx {
			c.Debug = append(c.Debug, DebugEntry{})
		}
		c.Debug = append(c.Debug, DebugEntry{Line: line, Column: column})
	}
	return idx
}

// AddConstant appends v to the constant pool and returns its index. The
// lowering pass reuses the source chunk's pool contents but rebuilds the
// pool through this method so indices stay consistent if constants are
// deduplicated in the future.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// At returns the instruction at idx.
func (c *Chunk) At(idx int) (Instr, error) {
	if idx < 0 || idx >= len(c.Code) {
		return Instr{}, fmt.Errorf("%w: register code index %d", ErrOutOfRange, idx)
	}
	return c.Code[idx], nil
}

// GetConstant returns the constant at idx.
func (c *Chunk) GetConstant(idx int) (value.Value, error) {
	if idx < 0 || idx >= len(c.Constants) {
		return value.Value{}, fmt.Errorf("%w: constant index %d", ErrOutOfRange, idx)
	}
	return c.Constants[idx], nil
}

// Len returns the number of instructions in the chunk.
func (c *Chunk) Len() int { return len(c.Code) }

// Position returns the source line/column recorded for instruction idx, or
// (0, 0) if no debug info was captured.
func (c *Chunk) Position(idx int) (int, int) {
	if idx < 0 || idx >= len(c.Debug) {
		return 0, 0
	}
	return int(c.Debug[idx].Line), int(c.Debug[idx].Column)
}
