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

package module

import "errors"

// Sentinel errors for the IMPORT error class, checked with errors.Is by
// callers (tests, the interpreters' try-frame handling) that need to
// distinguish failure modes.
var (
	// ErrImportCycle is raised when a module, directly or transitively,
	// imports a path that is still on the loading stack.
	ErrImportCycle = errors.New("module: import cycle detected")

	// ErrAlreadyExecuted is raised on a second IMPORT of a module whose body
	// has already run to completion — resolved in favor of keeping this
	// strict rather than silently returning the cached exports again.
	ErrAlreadyExecuted = errors.New("module: module already executed")

	// ErrModuleNotFound is raised when neither the disk resolver nor the
	// embedded fallback can locate a path.
	ErrModuleNotFound = errors.New("module: module not found")

	// ErrNoCompiler is raised when a module must be parsed and compiled from
	// source but no compiler.Compiler was installed on the Loader.
	ErrNoCompiler = errors.New("module: no compiler configured for source resolution")
)
