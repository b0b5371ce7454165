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

import "github.com/orus-lang/orus-vm/rbytecode"

// slot is one entry of the lowerer's shadow stack: normally it names the
// physical register holding this logical stack value, but once that
// register has been reclaimed by the spiller the value instead lives at
// spillSlot and must be reloaded via UNSPILL_REG before anything reads it
// again.
type slot struct {
	reg       byte
	spilled   bool
	spillSlot int
}

// allocator is the per-function register allocator: a bump pointer with a
// free list, lastUse bookkeeping per register (no reference count is kept;
// spilled state is tracked per shadow-stack slot, not per register), and
// spill-on-exhaustion into a per-function spill-slot space. Modeled on a
// codegen.Generator's nextReg/regMap/allocReg bump allocator, reworked from
// a flat SSA-value-to-register map into a stack-shadowing allocator with
// eviction.
type allocator struct {
	freeList []byte
	nextReg  byte
	funcMax  int // high-water mark of nextReg, becomes the FuncEntry.RegCount

	nextSpillSlot int // resets every function boundary, per the resolved Open Question

	lastUse [rbytecode.RegisterCount]int
	clock   int

	// regConstVal tracks the literal integer value most recently loaded by
	// LOAD_CONST into a register, so FORMAT_PRINT's argc (pushed as an
	// ordinary stack value by the calling convention) can be recovered
	// statically when building its register window. Entries are
	// invalidated whenever the register is reallocated for something
	// else.
	regConstVal map[byte]int64
}

func newAllocator(paramCount int) *allocator {
	a := &allocator{
		nextReg:     byte(paramCount),
		funcMax:     paramCount,
		regConstVal: make(map[byte]int64),
	}
	return a
}

func (a *allocator) tick() int {
	a.clock++
	return a.clock
}

func (a *allocator) touch(r byte) {
	a.lastUse[r] = a.tick()
}

func (a *allocator) setConst(r byte, v int64) {
	a.regConstVal[r] = v
}

func (a *allocator) constOf(r byte) (int64, bool) {
	v, ok := a.regConstVal[r]
	return v, ok
}

func (a *allocator) clearConst(r byte) {
	delete(a.regConstVal, r)
}

// alloc hands out a fresh general-purpose register: free list first, then
// the bump pointer, then a spill of the least-recently-used live register
// if the function has exhausted its non-reserved register space. l carries
// the shadow stack the spiller must consult and patch.
func (l *lowerer) alloc() (byte, error) {
	a := l.alc
	if n := len(a.freeList); n > 0 {
		r := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.clearConst(r)
		a.touch(r)
		return r, nil
	}
	if a.nextReg < rbytecode.FirstReservedReg {
		r := a.nextReg
		a.nextReg++
		if int(a.nextReg) > a.funcMax {
			a.funcMax = int(a.nextReg)
		}
		a.clearConst(r)
		a.touch(r)
		return r, nil
	}
	victim, err := l.pickSpillVictim()
	if err != nil {
		return 0, err
	}
	if err := l.spill(victim); err != nil {
		return 0, err
	}
	r := victim.reg
	a.clearConst(r)
	a.touch(r)
	return r, nil
}

// release returns a register to the free list once its shadow-stack entry
// has been consumed and nothing else references it.
func (l *lowerer) release(r byte) {
	l.alc.freeList = append(l.alc.freeList, r)
}

// pickSpillVictim scans the live shadow stack for the not-yet-spilled slot
// whose register was least recently used, skipping the privileged
// parameter register 0, which is never spilled.
func (l *lowerer) pickSpillVictim() (*slot, error) {
	var best *slot
	bestUse := int(^uint(0) >> 1)
	for i := range l.stack {
		s := &l.stack[i]
		if s.spilled || s.reg == 0 {
			continue
		}
		if u := l.alc.lastUse[s.reg]; u < bestUse {
			bestUse = u
			best = s
		}
	}
	if best == nil {
		return nil, ErrRegisterExhausted
	}
	return best, nil
}

// spill emits SPILL_REG for s's register into a fresh per-function spill
// slot, marks s spilled, and frees the physical register for reuse by the
// allocation currently in progress.
func (l *lowerer) spill(s *slot) error {
	slotNum := l.alc.nextSpillSlot
	l.alc.nextSpillSlot++
	l.emit(rbytecode.Instr{Op: rbytecode.RSpillReg, Dst: byte(slotNum), Src1: s.reg})
	s.spilled = true
	s.spillSlot = slotNum
	return nil
}

// reload ensures s names a live register, emitting UNSPILL_REG to recover
// its value into a freshly allocated register if it was previously
// spilled.
func (l *lowerer) reload(s *slot) error {
	if !s.spilled {
		l.alc.touch(s.reg)
		return nil
	}
	r, err := l.alloc()
	if err != nil {
		return err
	}
	l.emit(rbytecode.Instr{Op: rbytecode.RUnspillReg, Dst: r, Src1: byte(s.spillSlot)})
	s.reg = r
	s.spilled = false
	return nil
}
