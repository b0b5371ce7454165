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

package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Equal implements the structural equality used by EQUAL/NOT_EQUAL:
// numeric kinds compare by converting both sides to a common representation
// only when the kinds already match (Orus has no implicit numeric coercion
// across kinds, matching the cast opcodes being the only conversion path),
// strings compare by content, arrays compare element-wise and recursively,
// and errors compare by class and message.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindI32, KindI64, KindU32, KindU64, KindBool:
		return a.bits == b.bits
	case KindF64:
		return a.AsF64() == b.AsF64()
	case KindNil:
		return true
	case KindString:
		return a.AsString() == b.AsString()
	case KindArray:
		aa, ba := a.AsArray(), b.AsArray()
		if aa.Len() != ba.Len() {
			return false
		}
		for i := range aa.Items {
			if !Equal(aa.Items[i], ba.Items[i]) {
				return false
			}
		}
		return true
	case KindError:
		ae, be := a.AsError(), b.AsError()
		return ae.Class == be.Class && ae.Message == be.Message
	case KindRangeIterator:
		ar, br := a.AsRangeIterator(), b.AsRangeIterator()
		return *ar == *br
	default:
		return false
	}
}

// Print renders a Value the way FORMAT_PRINT and the interpreter's own
// uncaught-error reporting do: plain numerics print bare, strings print
// without surrounding quotes (print is a display operation, not a literal
// re-encoding), arrays print bracketed and comma-separated, errors print as
// "CLASS: message (line L, col C)".
func Print(v Value) string {
	switch v.kind {
	case KindI32:
		return strconv.FormatInt(int64(v.AsI32()), 10)
	case KindI64:
		return strconv.FormatInt(v.AsI64(), 10)
	case KindU32:
		return strconv.FormatUint(uint64(v.AsU32()), 10)
	case KindU64:
		return strconv.FormatUint(v.AsU64(), 10)
	case KindF64:
		return strconv.FormatFloat(v.AsF64(), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindNil:
		return "nil"
	case KindString:
		return v.AsString()
	case KindArray:
		items := v.AsArray().Items
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Print(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindError:
		return v.AsError().Error()
	case KindRangeIterator:
		r := v.AsRangeIterator()
		return fmt.Sprintf("range(%d, %d, %d)", r.Current, r.Stop, r.Step)
	default:
		return fmt.Sprintf("<unprintable %s>", v.kind)
	}
}
