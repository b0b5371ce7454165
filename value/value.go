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

// Package value implements the Orus VM's tagged value model: the unboxed
// numeric kinds and the heap-object kinds (string, array, error, range
// iterator) shared by the stack interpreter and the register interpreter.
package value

import (
	"fmt"
	"math"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind uint8

const (
	KindI32 Kind = iota
	KindI64
	KindU32
	KindU64
	KindF64
	KindBool
	KindNil
	KindString
	KindArray
	KindError
	KindRangeIterator

	kindCount
)

var kindNames = [kindCount]string{
	KindI32:           "i32",
	KindI64:           "i64",
	KindU32:           "u32",
	KindU64:           "u64",
	KindF64:           "f64",
	KindBool:          "bool",
	KindNil:           "nil",
	KindString:        "string",
	KindArray:         "array",
	KindError:         "error",
	KindRangeIterator: "range_iterator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// IsNumeric reports whether the kind is one of the five numeric kinds
// (I32, I64, U32, U64, F64) eligible for CAST's numeric conversion group.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindI32, KindI64, KindU32, KindU64, KindF64:
		return true
	}
	return false
}

// IsHeap reports whether values of this kind carry a heap object reference.
func (k Kind) IsHeap() bool {
	switch k {
	case KindString, KindArray, KindError, KindRangeIterator:
		return true
	}
	return false
}

// Value is the VM's tagged union. Numeric and boolean variants are unboxed
// into bits; composite variants carry a reference to a heap Object. The
// zero Value is {Kind: KindI32, bits: 0} — callers that need a true "no
// value" should use Nil().
type Value struct {
	kind Kind
	bits uint64 // unboxed payload for numeric/bool kinds
	obj  *Object
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Object returns the heap object backing a composite value, or nil for
// unboxed kinds.
func (v Value) Object() *Object { return v.obj }

// ---- Constructors -----------------------------------------------------

func I32(n int32) Value  { return Value{kind: KindI32, bits: uint64(uint32(n))} }
func I64(n int64) Value  { return Value{kind: KindI64, bits: uint64(n)} }
func U32(n uint32) Value { return Value{kind: KindU32, bits: uint64(n)} }
func U64(n uint64) Value { return Value{kind: KindU64, bits: n} }
func F64(f float64) Value {
	return Value{kind: KindF64, bits: math.Float64bits(f)}
}

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool, bits: 0}
}

// Nil returns the canonical nil value.
func Nil() Value { return Value{kind: KindNil} }

// FromObject wraps a heap object in a Value of the matching kind.
func FromObject(k Kind, obj *Object) Value {
	return Value{kind: k, obj: obj}
}

// ---- Accessors ----------------------------------------------------------

func (v Value) AsI32() int32   { return int32(uint32(v.bits)) }
func (v Value) AsI64() int64   { return int64(v.bits) }
func (v Value) AsU32() uint32  { return uint32(v.bits) }
func (v Value) AsU64() uint64  { return v.bits }
func (v Value) AsF64() float64 { return math.Float64frombits(v.bits) }
func (v Value) AsBool() bool   { return v.bits != 0 }

// Bits returns the raw 64-bit payload, used by bytecode serialization to
// write F64 constants bit-exactly.
func (v Value) Bits() uint64 { return v.bits }

// WithBits reconstructs a numeric/bool Value of the given kind from a raw
// 64-bit payload, the inverse of Bits — used by bytecode deserialization to
// rebuild F64 constants.
func WithBits(k Kind, bits uint64) Value {
	return Value{kind: k, bits: bits}
}

// IsTruthy implements the interpreter's notion of truthiness for
// JUMP_IF_FALSE / JUMP_IF_TRUE: booleans use their value, nil is false,
// everything else is true.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindBool:
		return v.bits != 0
	case KindNil:
		return false
	default:
		return true
	}
}

// AsString returns the backing Go string for a VAL_STRING value. The
// caller must have already checked Kind() == KindString.
func (v Value) AsString() string {
	return v.obj.str.data
}

// AsArray returns the backing *ArrayObject for a VAL_ARRAY value.
func (v Value) AsArray() *ArrayObject {
	return v.obj.array
}

// AsError returns the backing *ErrorObject for a VAL_ERROR value.
func (v Value) AsError() *ErrorObject {
	return v.obj.err
}

// AsRangeIterator returns the backing *RangeIteratorObject for a
// VAL_RANGE_ITERATOR value.
func (v Value) AsRangeIterator() *RangeIteratorObject {
	return v.obj.rangeIter
}
