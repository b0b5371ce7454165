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

import "fmt"

// ObjectKind tags the payload carried by a heap Object.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota
	ObjArray
	ObjError
	ObjRangeIterator
)

// Object is the shared header of every heap-allocated value: it points to
// its payload (StringObject, ArrayObject, ...), each payload points back to
// it, and it uses an intrusive-list technique for allocation bookkeeping:
// every live object is threaded onto a single linked list via Next so the
// collector can walk the whole heap without a side table.
type Object struct {
	Kind   ObjectKind
	Marked bool
	Next   *Object

	str       *StringObject
	array     *ArrayObject
	err       *ErrorObject
	rangeIter *RangeIteratorObject
}

// StringObject is the heap payload for VAL_STRING values. Strings are
// immutable once constructed; concatenation and slicing always allocate a
// new StringObject.
type StringObject struct {
	header *Object
	data   string
}

// NewStringObject wires a StringObject to a fresh Object header without
// registering it on any heap's object list. Use gc.Heap.NewString in normal
// code; this constructor exists so value-level tests can build objects
// without depending on the gc package.
func NewStringObject(s string) *Object {
	so := &StringObject{data: s}
	obj := &Object{Kind: ObjString, str: so}
	so.header = obj
	return obj
}

// Data returns the Go string backing a StringObject.
func (s *StringObject) Data() string { return s.data }

// Len returns the number of bytes in the string.
func (s *StringObject) Len() int { return len(s.data) }

// ArrayObject is the heap payload for VAL_ARRAY values: a growable slice of
// Values, zero-indexed, with Go-slice append-growth semantics.
type ArrayObject struct {
	header *Object
	Items  []Value
}

// NewArrayObject wires an ArrayObject to a fresh Object header.
func NewArrayObject(items []Value) *Object {
	ao := &ArrayObject{Items: items}
	obj := &Object{Kind: ObjArray, array: ao}
	ao.header = obj
	return obj
}

// Len returns the number of elements in the array.
func (a *ArrayObject) Len() int { return len(a.Items) }

// Get returns the element at index i and whether the index was in range.
func (a *ArrayObject) Get(i int) (Value, bool) {
	if i < 0 || i >= len(a.Items) {
		return Value{}, false
	}
	return a.Items[i], true
}

// Set overwrites the element at index i, reporting whether i was in range.
func (a *ArrayObject) Set(i int, v Value) bool {
	if i < 0 || i >= len(a.Items) {
		return false
	}
	a.Items[i] = v
	return true
}

// Push appends v, growing the backing slice as Go's append would.
func (a *ArrayObject) Push(v Value) {
	a.Items = append(a.Items, v)
}

// Reserve ensures the backing slice has capacity for at least n elements
// without reallocating on the next n-len(Items) pushes.
func (a *ArrayObject) Reserve(n int) {
	if cap(a.Items) >= n {
		return
	}
	grown := make([]Value, len(a.Items), n)
	copy(grown, a.Items)
	a.Items = grown
}

// Pop removes and returns the last element.
func (a *ArrayObject) Pop() (Value, bool) {
	if len(a.Items) == 0 {
		return Value{}, false
	}
	last := a.Items[len(a.Items)-1]
	a.Items = a.Items[:len(a.Items)-1]
	return last, true
}

// ErrorClass enumerates the taxonomy raised by runtime faults. Values of
// this type end up in the Class field of ErrorObject so a running program
// can inspect what kind of failure it caught in an except block.
type ErrorClass uint8

const (
	ErrClassRuntime ErrorClass = iota
	ErrClassType
	ErrClassImport
	ErrClassMemory
	ErrClassOverflow
)

func (c ErrorClass) String() string {
	switch c {
	case ErrClassRuntime:
		return "RUNTIME"
	case ErrClassType:
		return "TYPE"
	case ErrClassImport:
		return "IMPORT"
	case ErrClassMemory:
		return "MEMORY"
	case ErrClassOverflow:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

// ErrorObject is the heap payload for VAL_ERROR values, produced by the
// interpreter itself when a trapped fault is converted into a catchable
// value for a SETUP_EXCEPT handler, and by natives that report failure.
type ErrorObject struct {
	header  *Object
	Class   ErrorClass
	Message string
	Line    int
	Column  int
}

// NewErrorObject wires an ErrorObject to a fresh Object header.
func NewErrorObject(class ErrorClass, message string, line, column int) *Object {
	eo := &ErrorObject{Class: class, Message: message, Line: line, Column: column}
	obj := &Object{Kind: ObjError, err: eo}
	eo.header = obj
	return obj
}

func (e *ErrorObject) Error() string {
	return fmt.Sprintf("%s: %s (line %d, col %d)", e.Class, e.Message, e.Line, e.Column)
}

// RangeIteratorObject is the heap payload for VAL_RANGE_ITERATOR values,
// allocated through gc.Heap.NewRangeIterator; no opcode creates or
// advances one.
type RangeIteratorObject struct {
	header  *Object
	Current int64
	Stop    int64
	Step    int64
}

// NewRangeIteratorObject wires a RangeIteratorObject to a fresh Object header.
func NewRangeIteratorObject(start, stop, step int64) *Object {
	ro := &RangeIteratorObject{Current: start, Stop: stop, Step: step}
	obj := &Object{Kind: ObjRangeIterator, rangeIter: ro}
	ro.header = obj
	return obj
}

// Done reports whether the iterator has exhausted its range.
func (r *RangeIteratorObject) Done() bool {
	if r.Step > 0 {
		return r.Current >= r.Stop
	}
	if r.Step < 0 {
		return r.Current <= r.Stop
	}
	return true
}

// Next returns the current value and advances the iterator by Step. The
// caller must check Done first.
func (r *RangeIteratorObject) Next() int64 {
	v := r.Current
	r.Current += r.Step
	return v
}
