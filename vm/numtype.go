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

import "github.com/orus-lang/orus-vm/value"

var numTypeToKind = [5]value.Kind{
	NumI32: value.KindI32,
	NumI64: value.KindI64,
	NumU32: value.KindU32,
	NumU64: value.KindU64,
	NumF64: value.KindF64,
}

func (n NumType) Kind() value.Kind { return numTypeToKind[n] }

var scalarKindToKind = [8]value.Kind{
	ScalarI32:    value.KindI32,
	ScalarI64:    value.KindI64,
	ScalarU32:    value.KindU32,
	ScalarU64:    value.KindU64,
	ScalarF64:    value.KindF64,
	ScalarBool:   value.KindBool,
	ScalarNil:    value.KindNil,
	ScalarString: value.KindString,
}

func (s ScalarKind) Kind() value.Kind { return scalarKindToKind[s] }

// widestNumeric picks the widest numeric type between two value kinds for
// the *_GENERIC instruction family: F64 dominates, then the 64-bit integer
// kinds, then the 32-bit integer kinds. Mirrors the arithmetic promotion a
// typical dynamically-typed numeric tower performs.
func widestNumeric(a, b value.Kind) value.Kind {
	rank := func(k value.Kind) int {
		switch k {
		case value.KindF64:
			return 4
		case value.KindI64, value.KindU64:
			return 3
		case value.KindI32, value.KindU32:
			return 2
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}
