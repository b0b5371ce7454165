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
	"fmt"
	"strings"

	"github.com/orus-lang/orus-vm/value"
)

// execPrint implements group 11: PRINT/PRINT_NO_NL, the type-specialized
// PRINT_TYPED, and the FORMAT_PRINT[_NO_NL] placeholder-substitution.
func (vm *VM) execPrint(op Opcode) error {
	switch op {
	case OpPrint:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fmt.Fprintln(vm.Stdout, value.Print(v))
		return nil

	case OpPrintNoNL:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fmt.Fprint(vm.Stdout, value.Print(v))
		return nil

	case OpPrintTyped:
		kindOperand, err := vm.readByte()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		wantKind := ScalarKind(kindOperand).Kind()
		if v.Kind() != wantKind {
			return fmt.Errorf("%w: PRINT_TYPED declared %s but value is %s", ErrTypeMismatch, wantKind, v.Kind())
		}
		fmt.Fprintln(vm.Stdout, value.Print(v))
		return nil

	case OpFormatPrint, OpFormatPrintNoNL:
		return vm.execFormatPrint(op == OpFormatPrintNoNL)
	}
	return fmt.Errorf("%w: %s", ErrInvalidOpcode, op)
}

func (vm *VM) execFormatPrint(noNewline bool) error {
	argcV, err := vm.pop()
	if err != nil {
		return err
	}
	argc := int(NumericAsI64(argcV))

	fmtV, err := vm.pop()
	if err != nil {
		return err
	}
	if fmtV.Kind() != value.KindString {
		return fmt.Errorf("%w: FORMAT_PRINT requires a format string", ErrTypeMismatch)
	}
	format := fmtV.AsString()

	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	rendered, err := FormatArgs(format, args)
	if err != nil {
		return err
	}

	if noNewline {
		fmt.Fprint(vm.Stdout, rendered)
	} else {
		fmt.Fprintln(vm.Stdout, rendered)
	}
	return nil
}

// FormatArgs implements the FORMAT_PRINT placeholder-substitution: each
// "{}" consumes the next argument in order. It is shared by the stack
// interpreter and the register interpreter (package rvm) so the two VMs
// render format strings identically.
func FormatArgs(format string, args []value.Value) (string, error) {
	placeholders := strings.Count(format, "{}")
	if placeholders != len(args) {
		return "", fmt.Errorf("%w: format string has %d placeholder(s) but %d argument(s) were given", ErrBadFormatPrint, placeholders, len(args))
	}
	var out strings.Builder
	rest := format
	for _, a := range args {
		idx := strings.Index(rest, "{}")
		out.WriteString(rest[:idx])
		out.WriteString(value.Print(a))
		rest = rest[idx+2:]
	}
	out.WriteString(rest)
	return out.String(), nil
}
