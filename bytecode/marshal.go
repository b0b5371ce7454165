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

import (
	"encoding/binary"
	"fmt"

	"github.com/orus-lang/orus-vm/value"
)

// chunkMagic tags the on-disk compiled-chunk cache format consumed by
// orus/objcache, the same way a contract-encoding package tags its
// encoded payloads with a fixed magic prefix before the body.
var chunkMagic = [4]byte{'O', 'R', 'U', 'S'}

const chunkFormatVersion byte = 1

const (
	tagI32 byte = iota
	tagI64
	tagU32
	tagU64
	tagF64
	tagBool
	tagNil
	tagString
)

// MarshalBinary encodes the chunk into the fixed on-disk layout used by the
// compiled-chunk cache: a magic header, a format version byte, the constant
// pool, the code bytes, and the run-length line/column table, each
// length-prefixed with a little-endian uint32. Heap-object constants other
// than strings (arrays, errors, range iterators) cannot appear in a
// compile-time constant pool and return ErrUnsupportedConstantKind.
func (c *Chunk) MarshalBinary() ([]byte, error) {
	var buf []byte
	buf = append(buf, chunkMagic[:]...)
	buf = append(buf, chunkFormatVersion)

	buf = appendUint32(buf, uint32(len(c.Constants)))
	for _, v := range c.Constants {
		encoded, err := encodeConstant(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, encoded...)
	}

	buf = appendUint32(buf, uint32(len(c.Code)))
	buf = append(buf, c.Code...)

	buf = appendUint32(buf, uint32(len(c.runs)))
	for _, r := range c.runs {
		buf = appendUint32(buf, uint32(r.line))
		buf = appendUint32(buf, uint32(r.column))
		buf = appendUint32(buf, uint32(r.count))
	}
	return buf, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary, replacing the
// receiver's contents.
func (c *Chunk) UnmarshalBinary(data []byte) error {
	if len(data) < 5 || [4]byte{data[0], data[1], data[2], data[3]} != chunkMagic {
		return ErrBadMagic
	}
	if data[4] != chunkFormatVersion {
		return fmt.Errorf("bytecode: unsupported chunk cache version %d", data[4])
	}
	rest := data[5:]

	numConsts, rest, err := readUint32(rest)
	if err != nil {
		return err
	}
	consts := make([]value.Value, 0, numConsts)
	for i := uint32(0); i < numConsts; i++ {
		var v value.Value
		v, rest, err = decodeConstant(rest)
		if err != nil {
			return err
		}
		consts = append(consts, v)
	}

	codeLen, rest, err := readUint32(rest)
	if err != nil {
		return err
	}
	if uint32(len(rest)) < codeLen {
		return ErrTruncated
	}
	code := append([]byte(nil), rest[:codeLen]...)
	rest = rest[codeLen:]

	numRuns, rest, err := readUint32(rest)
	if err != nil {
		return err
	}
	runs := make([]posRun, 0, numRuns)
	for i := uint32(0); i < numRuns; i++ {
		var line, column, count uint32
		if line, rest, err = readUint32(rest); err != nil {
			return err
		}
		if column, rest, err = readUint32(rest); err != nil {
			return err
		}
		if count, rest, err = readUint32(rest); err != nil {
			return err
		}
		runs = append(runs, posRun{line: int32(line), column: int32(column), count: int32(count)})
	}

	c.Constants = consts
	c.Code = code
	c.runs = runs
	c.lastLine = -1
	c.lastColumn = -1
	return nil
}

func encodeConstant(v value.Value) ([]byte, error) {
	switch v.Kind() {
	case value.KindI32:
		return append([]byte{tagI32}, le64(uint64(uint32(v.AsI32())))...), nil
	case value.KindI64:
		return append([]byte{tagI64}, le64(uint64(v.AsI64()))...), nil
	case value.KindU32:
		return append([]byte{tagU32}, le64(uint64(v.AsU32()))...), nil
	case value.KindU64:
		return append([]byte{tagU64}, le64(v.AsU64())...), nil
	case value.KindF64:
		return append([]byte{tagF64}, le64(v.Bits())...), nil
	case value.KindBool:
		b := byte(0)
		if v.AsBool() {
			b = 1
		}
		return []byte{tagBool, b}, nil
	case value.KindNil:
		return []byte{tagNil}, nil
	case value.KindString:
		s := []byte(v.AsString())
		out := append([]byte{tagString}, appendUint32(nil, uint32(len(s)))...)
		return append(out, s...), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConstantKind, v.Kind())
	}
}

func decodeConstant(data []byte) (value.Value, []byte, error) {
	if len(data) < 1 {
		return value.Value{}, nil, ErrTruncated
	}
	tag := data[0]
	rest := data[1:]
	switch tag {
	case tagI32:
		bits, rest, err := take64(rest)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.I32(int32(uint32(bits))), rest, nil
	case tagI64:
		bits, rest, err := take64(rest)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.I64(int64(bits)), rest, nil
	case tagU32:
		bits, rest, err := take64(rest)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.U32(uint32(bits)), rest, nil
	case tagU64:
		bits, rest, err := take64(rest)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.U64(bits), rest, nil
	case tagF64:
		bits, rest, err := take64(rest)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.WithBits(value.KindF64, bits), rest, nil
	case tagBool:
		if len(rest) < 1 {
			return value.Value{}, nil, ErrTruncated
		}
		return value.Bool(rest[0] != 0), rest[1:], nil
	case tagNil:
		return value.Nil(), rest, nil
	case tagString:
		n, rest, err := readUint32(rest)
		if err != nil {
			return value.Value{}, nil, err
		}
		if uint32(len(rest)) < n {
			return value.Value{}, nil, ErrTruncated
		}
		s := string(rest[:n])
		return value.FromObject(value.KindString, value.NewStringObject(s)), rest[n:], nil
	default:
		return value.Value{}, nil, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}

func appendUint32(buf []byte, n uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], n)
	return append(buf, tmp[:]...)
}

func readUint32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, ErrTruncated
	}
	return binary.LittleEndian.Uint32(data), data[4:], nil
}

func le64(n uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], n)
	return tmp[:]
}

func take64(data []byte) (uint64, []byte, error) {
	if len(data) < 8 {
		return 0, nil, ErrTruncated
	}
	return binary.LittleEndian.Uint64(data), data[8:], nil
}
