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
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

// ErrImportNotConfigured mirrors vm.ErrImportNotConfigured: IMPORT ran but
// no Importer was installed on this VM.
var ErrImportNotConfigured = errors.New("rvm: IMPORT executed but no module importer is configured")

// SetImporter installs the module loader hook consulted by IMPORT.
func (vm2 *VM) SetImporter(importer Importer) { vm2.Importer = importer }

func (vm2 *VM) execImport(constIdx int) error {
	pathV, err := vm2.rc.GetConstant(constIdx)
	if err != nil {
		return err
	}
	if pathV.Kind() != value.KindString {
		return fmt.Errorf("%w: IMPORT constant must be a string path", ErrTypeMismatch)
	}
	if vm2.Importer == nil {
		return ErrImportNotConfigured
	}
	if err := vm2.Importer.Import(vm2, pathV.AsString()); err != nil {
		return vm2.classify(value.ErrClassImport, err)
	}
	return nil
}
