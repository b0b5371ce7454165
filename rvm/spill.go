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
	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/value"
)

func (vm2 *VM) ensureSpillCapacity(n int) {
	for len(vm2.spills) < n {
		vm2.spills = append(vm2.spills, value.Value{})
	}
}

// execSpill implements SPILL_REG: Dst names the spill slot, Src1 the
// register being evicted (lower.spill). The register file itself is left
// untouched — the allocator has already handed that register out to
// something else by the time this runs — only the value is preserved.
func (vm2 *VM) execSpill(i rbytecode.Instr) error {
	slot := int(i.Dst)
	vm2.ensureSpillCapacity(slot + 1)
	vm2.spills[slot] = vm2.get(i.Src1)
	return nil
}

// execUnspill implements UNSPILL_REG: Dst is the freshly allocated
// register to recover the value into, Src1 the spill slot (lower.reload).
func (vm2 *VM) execUnspill(i rbytecode.Instr) error {
	slot := int(i.Src1)
	if slot >= len(vm2.spills) {
		return ErrIndexOutOfRange
	}
	vm2.set(i.Dst, vm2.spills[slot])
	return nil
}
