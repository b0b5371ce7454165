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

package rvm

import (
	"errors"

	"github.com/orus-lang/orus-vm/value"
)

// Sentinel errors for the register interpreter, mirroring package vm's set
// one for one so callers that switch on errors.Is get the same behavior
// regardless of which interpreter ran the program.
var (
	ErrFrameOverflow    = errors.New("rvm: call frame overflow")
	ErrTryOverflow      = errors.New("rvm: try frame overflow")
	ErrInvalidOpcode    = errors.New("rvm: invalid register opcode")
	ErrTypeMismatch     = errors.New("rvm: type mismatch")
	ErrIndexOutOfRange  = errors.New("rvm: index out of range")
	ErrLoopLimit        = errors.New("rvm: backward-jump loop limit exceeded")
	ErrUnreachable      = errors.New("rvm: BREAK/CONTINUE executed at runtime")
	ErrRegisterOverflow = errors.New("rvm: register file exhausted")
)

// RuntimeError wraps a Go error together with the Orus error classification
// and the VAL_ERROR value constructed for a catching try frame. Mirrors
// vm.RuntimeError so the two interpreters report failures identically.
type RuntimeError struct {
	Class value.ErrorClass
	Err   error
	Value value.Value
}

func (e *RuntimeError) Error() string { return e.Err.Error() }

func (e *RuntimeError) Unwrap() error { return e.Err }

func newRuntimeError(class value.ErrorClass, err error) *RuntimeError {
	return &RuntimeError{Class: class, Err: err}
}

// Status is the outcome reported to the external caller, identical to
// vm.Status so embedders can treat either interpreter's result uniformly.
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCompileError:
		return "COMPILE_ERROR"
	case StatusRuntimeError:
		return "RUNTIME_ERROR"
	default:
		return "UNKNOWN"
	}
}
