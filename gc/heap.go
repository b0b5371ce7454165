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

// Package gc implements the Orus VM's heap: allocation of string, array,
// error and range-iterator objects, and a non-moving mark-sweep collector
// driven by a caller-supplied root set.
package gc

import (
	"errors"
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

const (
	// DefaultObjectLimit bounds the number of live heap objects a single
	// Heap may hold before Collect is forced on the next allocation
	// (4 Mi objects, a count rather than a byte size).
	DefaultObjectLimit uint64 = 4 * 1024 * 1024
)

// ErrOutOfMemory is returned when an allocation cannot proceed even after a
// collection because the object limit has been reached.
var ErrOutOfMemory = errors.New("gc: out of memory")

// Roots is implemented by whatever owns the live value stacks/registers at
// collection time (the stack VM or the register VM). Collect walks every
// root exactly once per call; it never retains the slice across calls.
type Roots interface {
	// GCRoots returns every Value directly reachable from the interpreter's
	// live state: operand stack slots, register files, call frame locals,
	// globals, and pending exception values. Constant pools are not roots.
	GCRoots() []value.Value
}

// Heap owns every live heap object for one VM instance, threaded onto a
// single intrusive linked list so the collector can walk it without a
// separate object table.
//
// Design:
//   - Every allocator (NewString, NewArray, NewError, NewRangeIterator)
//     prepends the freshly built *value.Object onto head.
//   - Collect marks everything reachable from Roots, then walks the list
//     once, unlinking and dropping anything left unmarked.
//   - objLimit caps the live object count; Collect runs automatically when
//     an allocation would exceed it, and ErrOutOfMemory is returned only if
//     the limit is still exceeded afterward.
//
// The zero Heap is not usable; use NewHeap.
type Heap struct {
	head     *value.Object
	count    uint64
	objLimit uint64
	paused   bool
}

// NewHeap creates a Heap with the given object limit. If limit is 0,
// DefaultObjectLimit is used.
func NewHeap(limit uint64) *Heap {
	if limit == 0 {
		limit = DefaultObjectLimit
	}
	return &Heap{objLimit: limit}
}

// SetPaused enables or disables automatic collection on allocation. Tests
// use this to avoid collecting mid-construction before roots are wired up.
func (h *Heap) SetPaused(paused bool) { h.paused = paused }

// Count returns the number of live objects currently tracked by the heap.
func (h *Heap) Count() uint64 { return h.count }

func (h *Heap) link(obj *value.Object) {
	obj.Next = h.head
	h.head = obj
	h.count++
}

func (h *Heap) ensureRoom(roots Roots) error {
	if h.paused || h.count < h.objLimit {
		return nil
	}
	h.Collect(roots)
	if h.count >= h.objLimit {
		return fmt.Errorf("%w: live object count %d exceeds limit %d", ErrOutOfMemory, h.count, h.objLimit)
	}
	return nil
}

// NewString allocates a string object and links it onto the heap.
func (h *Heap) NewString(roots Roots, s string) (value.Value, error) {
	if err := h.ensureRoom(roots); err != nil {
		return value.Value{}, err
	}
	obj := value.NewStringObject(s)
	h.link(obj)
	return value.FromObject(value.KindString, obj), nil
}

// NewArray allocates an array object and links it onto the heap.
func (h *Heap) NewArray(roots Roots, items []value.Value) (value.Value, error) {
	if err := h.ensureRoom(roots); err != nil {
		return value.Value{}, err
	}
	obj := value.NewArrayObject(items)
	h.link(obj)
	return value.FromObject(value.KindArray, obj), nil
}

// NewError allocates an error object and links it onto the heap.
func (h *Heap) NewError(roots Roots, class value.ErrorClass, message string, line, column int) (value.Value, error) {
	if err := h.ensureRoom(roots); err != nil {
		return value.Value{}, err
	}
	obj := value.NewErrorObject(class, message, line, column)
	h.link(obj)
	return value.FromObject(value.KindError, obj), nil
}

// NewRangeIterator allocates a range iterator object and links it onto the
// heap.
func (h *Heap) NewRangeIterator(roots Roots, start, stop, step int64) (value.Value, error) {
	if err := h.ensureRoom(roots); err != nil {
		return value.Value{}, err
	}
	obj := value.NewRangeIteratorObject(start, stop, step)
	h.link(obj)
	return value.FromObject(value.KindRangeIterator, obj), nil
}

// Collect runs a full mark-sweep pass: mark every object reachable from
// roots (transitively through arrays), then sweep the object list, dropping
// anything left unmarked. It is safe to call at any point between VM
// instructions; it must never be called while a root slice still holds
// stale references to objects the caller is mid-mutation on.
func (h *Heap) Collect(roots Roots) {
	for o := h.head; o != nil; o = o.Next {
		o.Marked = false
	}
	for _, v := range roots.GCRoots() {
		mark(v)
	}

	var kept *value.Object
	var tail *value.Object
	var live uint64
	for o := h.head; o != nil; {
		next := o.Next
		if o.Marked {
			o.Next = nil
			if kept == nil {
				kept = o
			} else {
				tail.Next = o
			}
			tail = o
			live++
		}
		o = next
	}
	h.head = kept
	h.count = live
}

func mark(v value.Value) {
	obj := v.Object()
	if obj == nil || obj.Marked {
		return
	}
	obj.Marked = true
	if v.Kind() == value.KindArray {
		for _, item := range v.AsArray().Items {
			mark(item)
		}
	}
}
