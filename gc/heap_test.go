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

package gc

import (
	"testing"

	"github.com/orus-lang/orus-vm/value"
)

// fakeRoots implements Roots over a plain slice for test control.
type fakeRoots struct {
	values []value.Value
}

func (f *fakeRoots) GCRoots() []value.Value { return f.values }

func TestNewStringLinksObject(t *testing.T) {
	h := NewHeap(0)
	roots := &fakeRoots{}
	v, err := h.NewString(roots, "hello")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if v.Kind() != value.KindString {
		t.Fatalf("expected KindString, got %s", v.Kind())
	}
	if v.AsString() != "hello" {
		t.Fatalf("expected %q, got %q", "hello", v.AsString())
	}
	if h.Count() != 1 {
		t.Fatalf("expected 1 live object, got %d", h.Count())
	}
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := NewHeap(0)
	roots := &fakeRoots{}

	kept, err := h.NewString(roots, "kept")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	_, err = h.NewString(roots, "garbage")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if h.Count() != 2 {
		t.Fatalf("expected 2 live objects before collect, got %d", h.Count())
	}

	roots.values = []value.Value{kept}
	h.Collect(roots)

	if h.Count() != 1 {
		t.Fatalf("expected 1 live object after collect, got %d", h.Count())
	}
	if h.head != kept.Object() {
		t.Fatal("expected the kept object to survive collection")
	}
}

func TestCollectTracesArrayElements(t *testing.T) {
	h := NewHeap(0)
	roots := &fakeRoots{}

	inner, err := h.NewString(roots, "inner")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	outer, err := h.NewArray(roots, []value.Value{inner})
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	if h.Count() != 2 {
		t.Fatalf("expected 2 live objects, got %d", h.Count())
	}

	roots.values = []value.Value{outer}
	h.Collect(roots)

	if h.Count() != 2 {
		t.Fatalf("expected array element to be traced and kept, got %d live objects", h.Count())
	}
}

func TestCollectDropsEverythingWhenRootsEmpty(t *testing.T) {
	h := NewHeap(0)
	roots := &fakeRoots{}
	if _, err := h.NewString(roots, "a"); err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if _, err := h.NewString(roots, "b"); err != nil {
		t.Fatalf("NewString: %v", err)
	}

	h.Collect(roots)

	if h.Count() != 0 {
		t.Fatalf("expected 0 live objects, got %d", h.Count())
	}
}

func TestEnsureRoomForcesCollectionAtLimit(t *testing.T) {
	h := NewHeap(1)
	roots := &fakeRoots{}

	first, err := h.NewString(roots, "first")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	roots.values = []value.Value{first}

	// The heap is now at its limit of 1 object; a second allocation must
	// trigger an automatic collection. Since first is still rooted it
	// survives, so the new allocation would push the heap back over the
	// limit and must fail.
	if _, err := h.NewString(roots, "second"); err == nil {
		t.Fatal("expected allocation to fail once the object limit is exceeded even after a collection")
	}
}

func TestPausedHeapSkipsAutoCollect(t *testing.T) {
	h := NewHeap(1)
	h.SetPaused(true)
	roots := &fakeRoots{}

	if _, err := h.NewString(roots, "a"); err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if _, err := h.NewString(roots, "b"); err != nil {
		t.Fatalf("NewString while paused should not fail despite exceeding limit: %v", err)
	}
	if h.Count() != 2 {
		t.Fatalf("expected 2 live objects while paused, got %d", h.Count())
	}
}
