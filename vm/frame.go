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

import (
	"github.com/orus-lang/orus-vm/bytecode"
	"github.com/orus-lang/orus-vm/value"
)

// CallFrame captures everything needed to resume the caller once the
// callee returns: the chunk and instruction pointer it was executing, and
// the stack base the callee's locals were laid out from.
type CallFrame struct {
	Chunk    *bytecode.Chunk
	ReturnIP int
	Base     int
	FuncIdx  int
}

// TryFrame is pushed by SETUP_EXCEPT and records everything needed to
// unwind to a handler: its address, the global slot the caught error binds
// to, and the stack depth to truncate back to.
type TryFrame struct {
	HandlerIP  int
	CatchVar   int
	StackDepth int
}

// FunctionInfo is one entry in the stack VM's function table: the chunk
// implementing a function body plus its declared arity and name, referenced
// by CALL's globalIdx operand indirectly through a global slot holding the
// function's table index.
type FunctionInfo struct {
	Name  string
	Chunk *bytecode.Chunk
	Arity int
}

// NativeFn is the calling convention for CALL_NATIVE: a function taking
// the VM and a slice of argc Values, returning a Value. Failure is
// signaled out-of-band via lastError, not via a Go error return.
type NativeFn func(vm *VM, args []value.Value) value.Value

// NativeInfo registers one native function under CALL_NATIVE's nativeIdx
// operand.
type NativeInfo struct {
	Name     string
	Arity    int // -1 means variadic
	Fn       NativeFn
}
