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
	"fmt"

	"github.com/orus-lang/orus-vm/rbytecode"
	"github.com/orus-lang/orus-vm/value"
	"github.com/orus-lang/orus-vm/vm"
)

// execPrint implements PRINT/PRINT_NO_NL/PRINT_TYPED and the FORMAT_PRINT
// family, reusing vm.FormatArgs so both interpreters render format strings
// identically.
func (vm2 *VM) execPrint(i rbytecode.Instr) error {
	switch i.Op {
	case rbytecode.RPrint:
		fmt.Fprintln(vm2.Stdout, value.Print(vm2.get(i.Src1)))
		return nil

	case rbytecode.RPrintNoNL:
		fmt.Fprint(vm2.Stdout, value.Print(vm2.get(i.Src1)))
		return nil

	case rbytecode.RPrintTyped:
		v := vm2.get(i.Src1)
		wantKind := vm.ScalarKind(i.Src2).Kind()
		if v.Kind() != wantKind {
			return fmt.Errorf("%w: PRINT_TYPED declared %s but value is %s", ErrTypeMismatch, wantKind, v.Kind())
		}
		fmt.Fprintln(vm2.Stdout, value.Print(v))
		return nil

	case rbytecode.RFormatPrint, rbytecode.RFormatPrintNoNL:
		return vm2.execFormatPrint(i, i.Op == rbytecode.RFormatPrintNoNL)
	}
	return fmt.Errorf("%w: %s", ErrInvalidOpcode, i.Op)
}

// execFormatPrint lowers to Dst=argc, Src1=format register, Src2=argument
// window base (lower.stepFormatPrint), since argc was already resolved to
// a compile-time constant during lowering.
func (vm2 *VM) execFormatPrint(i rbytecode.Instr, noNewline bool) error {
	argc := int(i.Dst)
	fmtV := vm2.get(i.Src1)
	if fmtV.Kind() != value.KindString {
		return fmt.Errorf("%w: FORMAT_PRINT requires a format string", ErrTypeMismatch)
	}

	args := make([]value.Value, argc)
	for k := 0; k < argc; k++ {
		args[k] = vm2.get(i.Src2 + byte(k))
	}

	rendered, err := vm.FormatArgs(fmtV.AsString(), args)
	if err != nil {
		return err
	}
	if noNewline {
		fmt.Fprint(vm2.Stdout, rendered)
	} else {
		fmt.Fprintln(vm2.Stdout, rendered)
	}
	return nil
}
