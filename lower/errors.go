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

import "errors"

var (
	// ErrUnsupportedOpcode is returned (fail-fast mode) or would otherwise
	// be papered over with a NOP (NOP mode) when the walk encounters a
	// stack opcode the lowerer has no register translation for. The NOP
	// path is a shadow-stack desync risk, so fail-fast is the default
	// (see DESIGN.md for the resolved tradeoff).
	ErrUnsupportedOpcode = errors.New("lower: unsupported opcode for register lowering")

	// ErrDynamicFormatArgc is returned when FORMAT_PRINT's argument count
	// was not produced by a constant load the lowerer could track back to
	// a literal value. The calling convention pushes argc as a runtime
	// stack value, but the register lowering must know it statically to
	// build the contiguous argument window; compiler-emitted FORMAT_PRINT
	// sequences always push a literal count, so this only fires on
	// hand-built or adversarial bytecode.
	ErrDynamicFormatArgc = errors.New("lower: FORMAT_PRINT argument count is not a traceable constant")

	// ErrRegisterExhausted is returned when the allocator cannot find any
	// spill candidate (every live register is pinned, e.g. the privileged
	// parameter register 0 with nothing else live).
	ErrRegisterExhausted = errors.New("lower: register allocator exhausted with no spillable register")

	// ErrJumpTargetTooFar is returned when a patched jump target does not
	// fit in the register VM's 8-bit absolute instruction index.
	ErrJumpTargetTooFar = errors.New("lower: register jump target exceeds the 8-bit instruction index limit")

	// ErrFuncIndexTooWide is returned when CALL_NATIVE's native index
	// cannot be carried in the register instruction's single byte Src2
	// field (Dst and Src1 already hold the window base and argc), and when
	// an argument window would span more than 255 registers.
	ErrFuncIndexTooWide = errors.New("lower: CALL/CALL_NATIVE index exceeds the register instruction's 8-bit field")

	// ErrShadowStackUnderflow signals a malformed stack chunk: an opcode
	// popped more shadow-stack entries than were available, meaning the
	// input was never valid stack bytecode to begin with.
	ErrShadowStackUnderflow = errors.New("lower: shadow stack underflow while lowering")
)
