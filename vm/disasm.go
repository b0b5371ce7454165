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
	"fmt"
	"strings"

	"github.com/orus-lang/orus-vm/bytecode"
)

// Disassemble renders chunk as a human-readable instruction listing, one
// line per instruction, offset-prefixed.
func Disassemble(chunk *bytecode.Chunk) string {
	var b strings.Builder
	offset := 0
	for offset < chunk.Len() {
		opByte, err := chunk.ReadByte(offset)
		if err != nil {
			break
		}
		op := Opcode(opByte)
		operands := op.Operands()
		fmt.Fprintf(&b, "%04d %-20s", offset, op)
		for i := 0; i < operands; i++ {
			v, err := chunk.ReadByte(offset + 1 + i)
			if err != nil {
				break
			}
			fmt.Fprintf(&b, " %02x", v)
		}
		b.WriteByte('\n')
		offset += 1 + operands
	}
	return b.String()
}
