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

package bytecode

import "errors"

// ErrOutOfRange is returned when a Chunk accessor is given an offset or
// index outside the bounds of the underlying code or constant pool.
var ErrOutOfRange = errors.New("bytecode: index out of range")

// ErrBadMagic is returned by UnmarshalBinary when the input does not begin
// with the chunk cache magic header.
var ErrBadMagic = errors.New("bytecode: not an orus chunk cache file")

// ErrTruncated is returned by UnmarshalBinary when the input ends before
// the header's declared lengths are satisfied.
var ErrTruncated = errors.New("bytecode: truncated chunk cache data")

// ErrUnsupportedConstantKind is returned by MarshalBinary when the constant
// pool holds a heap-object kind the on-disk cache format cannot represent.
var ErrUnsupportedConstantKind = errors.New("bytecode: constant kind not supported by chunk cache")
