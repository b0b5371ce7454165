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

package value

import "testing"

func TestNumericRoundTrip(t *testing.T) {
	if got := I32(-7).AsI32(); got != -7 {
		t.Fatalf("I32 round trip: got %d, want -7", got)
	}
	if got := I64(-123456789012).AsI64(); got != -123456789012 {
		t.Fatalf("I64 round trip: got %d", got)
	}
	if got := U32(42).AsU32(); got != 42 {
		t.Fatalf("U32 round trip: got %d", got)
	}
	if got := U64(1 << 40).AsU64(); got != 1<<40 {
		t.Fatalf("U64 round trip: got %d", got)
	}
	if got := F64(3.5).AsF64(); got != 3.5 {
		t.Fatalf("F64 round trip: got %v", got)
	}
	if !Bool(true).AsBool() {
		t.Fatal("Bool(true) round trip failed")
	}
	if Bool(false).AsBool() {
		t.Fatal("Bool(false) round trip failed")
	}
}

func TestBitsRoundTrip(t *testing.T) {
	v := I64(-99)
	rebuilt := WithBits(KindI64, v.Bits())
	if rebuilt.AsI64() != -99 {
		t.Fatalf("WithBits round trip: got %d, want -99", rebuilt.AsI64())
	}
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Bool(true), true},
		{Bool(false), false},
		{Nil(), false},
		{I32(0), true},
		{I32(1), true},
		{FromObject(KindString, NewStringObject("")), true},
	}
	for _, c := range cases {
		if got := c.v.IsTruthy(); got != c.want {
			t.Errorf("IsTruthy(%s) = %v, want %v", c.v.Kind(), got, c.want)
		}
	}
}

func TestKindPredicates(t *testing.T) {
	for _, k := range []Kind{KindI32, KindI64, KindU32, KindU64, KindF64} {
		if !k.IsNumeric() {
			t.Errorf("%s should be numeric", k)
		}
		if k.IsHeap() {
			t.Errorf("%s should not be a heap kind", k)
		}
	}
	for _, k := range []Kind{KindString, KindArray, KindError, KindRangeIterator} {
		if k.IsNumeric() {
			t.Errorf("%s should not be numeric", k)
		}
		if !k.IsHeap() {
			t.Errorf("%s should be a heap kind", k)
		}
	}
	if KindBool.IsNumeric() || KindBool.IsHeap() {
		t.Error("bool is neither numeric nor heap")
	}
	if KindNil.IsNumeric() || KindNil.IsHeap() {
		t.Error("nil is neither numeric nor heap")
	}
}

func TestEqualScalars(t *testing.T) {
	if !Equal(I32(5), I32(5)) {
		t.Error("I32(5) should equal I32(5)")
	}
	if Equal(I32(5), I64(5)) {
		t.Error("values of different kinds must never compare equal")
	}
	if !Equal(Nil(), Nil()) {
		t.Error("nil should equal nil")
	}
	if !Equal(F64(1.5), F64(1.5)) {
		t.Error("F64(1.5) should equal F64(1.5)")
	}
}

func TestEqualStrings(t *testing.T) {
	a := FromObject(KindString, NewStringObject("hello"))
	b := FromObject(KindString, NewStringObject("hello"))
	c := FromObject(KindString, NewStringObject("world"))
	if !Equal(a, b) {
		t.Error("equal string contents should compare equal across distinct objects")
	}
	if Equal(a, c) {
		t.Error("different string contents should not compare equal")
	}
}

func TestEqualArrays(t *testing.T) {
	a := FromObject(KindArray, NewArrayObject([]Value{I32(1), I32(2)}))
	b := FromObject(KindArray, NewArrayObject([]Value{I32(1), I32(2)}))
	c := FromObject(KindArray, NewArrayObject([]Value{I32(1), I32(3)}))
	if !Equal(a, b) {
		t.Error("arrays with equal elements should compare equal")
	}
	if Equal(a, c) {
		t.Error("arrays with differing elements should not compare equal")
	}
	short := FromObject(KindArray, NewArrayObject([]Value{I32(1)}))
	if Equal(a, short) {
		t.Error("arrays of differing length should not compare equal")
	}
}

func TestPrint(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{I32(42), "42"},
		{I64(-1), "-1"},
		{Bool(true), "true"},
		{Nil(), "nil"},
		{FromObject(KindString, NewStringObject("hi")), "hi"},
		{FromObject(KindArray, NewArrayObject([]Value{I32(1), I32(2)})), "[1, 2]"},
	}
	for _, c := range cases {
		if got := Print(c.v); got != c.want {
			t.Errorf("Print(%s) = %q, want %q", c.v.Kind(), got, c.want)
		}
	}
}

func TestArrayMutation(t *testing.T) {
	obj := NewArrayObject([]Value{I32(1)})
	ao := obj.array
	ao.Push(I32(2))
	if ao.Len() != 2 {
		t.Fatalf("expected length 2 after push, got %d", ao.Len())
	}
	v, ok := ao.Get(1)
	if !ok || v.AsI32() != 2 {
		t.Fatalf("expected element 2 at index 1, got %v ok=%v", v, ok)
	}
	if !ao.Set(0, I32(9)) {
		t.Fatal("Set(0) should succeed in bounds")
	}
	if ao.Set(5, I32(9)) {
		t.Fatal("Set(5) should fail out of bounds")
	}
	popped, ok := ao.Pop()
	if !ok || popped.AsI32() != 2 {
		t.Fatalf("expected pop to return 2, got %v ok=%v", popped, ok)
	}
	if ao.Len() != 1 {
		t.Fatalf("expected length 1 after pop, got %d", ao.Len())
	}
}

func TestRangeIterator(t *testing.T) {
	obj := NewRangeIteratorObject(0, 3, 1)
	r := obj.rangeIter
	var seen []int64
	for !r.Done() {
		seen = append(seen, r.Next())
	}
	want := []int64{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("got %v, want %v", seen, want)
		}
	}
}
