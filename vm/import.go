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
	"errors"
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

// ErrImportNotConfigured is returned by IMPORT when no Importer has been
// installed on the VM; the stack interpreter has no module-loading logic
// of its own (component D lives in package module and is wired in by the
// embedder, avoiding an import cycle).
var ErrImportNotConfigured = errors.New("vm: IMPORT executed but no module importer is configured")

// Importer is implemented by the module loader (package module) and
// installed on a VM so IMPORT can resolve, compile and execute a module by
// path, then return its exported globals.
type Importer interface {
	Import(vm *VM, path string) error
}

// SetImporter installs the module loader hook consulted by IMPORT.
func (vm *VM) SetImporter(importer Importer) { vm.Importer = importer }

func (vm *VM) execImport(constIdx int) error {
	pathV, err := vm.chunk.GetConstant(constIdx)
	if err != nil {
		return err
	}
	if pathV.Kind() != value.KindString {
		return fmt.Errorf("%w: IMPORT constant must be a string path", ErrTypeMismatch)
	}
	if vm.Importer == nil {
		return ErrImportNotConfigured
	}
	if err := vm.Importer.Import(vm, pathV.AsString()); err != nil {
		return vm.classify(value.ErrClassImport, err)
	}
	return nil
}
