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

// Package natives is the calling-convention home for CALL_NATIVE: register
// a function by {name, arity (or -1 for variadic), fn}; no return type is
// recorded in the registration. The
// builtin bodies themselves (range, sum, sqrt, ...) are out of scope here
// — only their calling convention — so this package defines the
// registration table and the ABI plumbing shared by both interpreters, not
// the builtins themselves. A Func's core logic is written once, independent
// of which interpreter calls it, and ForStack/ForRegister adapt it to each
// interpreter's NativeFn signature — the two differ only in which concrete
// *VM type they close over.
package natives

import (
	"github.com/orus-lang/orus-vm/rvm"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// Func is a native implementation's interpreter-independent core: given its
// arguments, produce a result or an error. Errors are translated into the
// lastError side-channel ABI by the ForStack/ForRegister adapters below.
type Func func(args []value.Value) (value.Value, error)

// Spec describes one native function's calling convention: a {name,
// arity, fn} registration tuple (return type is implicit in what Fn
// actually returns; nothing in the VM enforces it since
// that belongs to the compiler's static checking, out of scope per §1).
type Spec struct {
	Name  string
	Arity int // -1 means variadic
	Fn    Func
}

// ForStack adapts s to the stack interpreter's vm.NativeFn ABI.
func (s Spec) ForStack() vm.NativeInfo {
	return vm.NativeInfo{
		Name:  s.Name,
		Arity: s.Arity,
		Fn: func(vmi *vm.VM, args []value.Value) value.Value {
			result, err := s.Fn(args)
			if err != nil {
				vmi.SignalNativeError(value.ErrClassRuntime, err.Error())
				return value.Nil()
			}
			return result
		},
	}
}

// ForRegister adapts s to the register interpreter's rvm.NativeFn ABI.
func (s Spec) ForRegister() rvm.NativeInfo {
	return rvm.NativeInfo{
		Name:  s.Name,
		Arity: s.Arity,
		Fn: func(vmi *rvm.VM, args []value.Value) value.Value {
			result, err := s.Fn(args)
			if err != nil {
				vmi.SignalNativeError(value.ErrClassRuntime, err.Error())
				return value.Nil()
			}
			return result
		},
	}
}

// Registry is an ordered table of Specs; the index a Spec is Register-ed at
// is the nativeIdx operand CALL_NATIVE expects.
type Registry struct {
	specs []Spec
	index map[string]int
}

// NewRegistry returns an empty native function table.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends s and returns its CALL_NATIVE index.
func (r *Registry) Register(s Spec) int {
	idx := len(r.specs)
	r.specs = append(r.specs, s)
	r.index[s.Name] = idx
	return idx
}

// Lookup returns the CALL_NATIVE index registered under name.
func (r *Registry) Lookup(name string) (int, bool) {
	idx, ok := r.index[name]
	return idx, ok
}

// StackTable materializes the registry as the []vm.NativeInfo a stack
// interpreter is constructed with.
func (r *Registry) StackTable() []vm.NativeInfo {
	out := make([]vm.NativeInfo, len(r.specs))
	for i, s := range r.specs {
		out[i] = s.ForStack()
	}
	return out
}

// RegisterTable materializes the registry as the []rvm.NativeInfo a
// register interpreter is constructed with.
func (r *Registry) RegisterTable() []rvm.NativeInfo {
	out := make([]rvm.NativeInfo, len(r.specs))
	for i, s := range r.specs {
		out[i] = s.ForRegister()
	}
	return out
}
