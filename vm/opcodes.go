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

import "fmt"

// Opcode identifies a single stack-machine instruction.
type Opcode byte

// Numeric type tag used by the typed arithmetic/bitwise/comparison
// instructions, encoded as the instruction's first operand byte.
type NumType byte

const (
	NumI32 NumType = iota
	NumI64
	NumU32
	NumU64
	NumF64
)

func (n NumType) String() string {
	switch n {
	case NumI32:
		return "I32"
	case NumI64:
		return "I64"
	case NumU32:
		return "U32"
	case NumU64:
		return "U64"
	case NumF64:
		return "F64"
	default:
		return fmt.Sprintf("NumType(%d)", n)
	}
}

// ScalarKind identifies one of the eight scalar (non-array/error/iterator)
// value kinds that CAST can convert between, encoded as a cast operand.
type ScalarKind byte

const (
	ScalarI32 ScalarKind = iota
	ScalarI64
	ScalarU32
	ScalarU64
	ScalarF64
	ScalarBool
	ScalarNil
	ScalarString
)

const (
	// ---- Group 1: load/store ----
	OpConstant Opcode = iota
	OpConstantLong
	OpI64Const
	OpNil
	OpPop
	OpDefineGlobal
	OpGetGlobal
	OpSetGlobal

	// ---- Group 2: arithmetic ----
	OpAdd // operand: NumType
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpAddGeneric
	OpSubGeneric
	OpMulGeneric
	OpDivGeneric
	OpModGeneric
	OpNegGeneric

	// ---- Group 3: bitwise ----
	OpBitAnd // operand: NumType, restricted to I32/I64/U32
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr

	// ---- Group 4: comparisons ----
	OpEqual
	OpNotEqual
	OpLess // operand: NumType
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpLessGeneric
	OpLessEqualGeneric
	OpGreaterGeneric
	OpGreaterEqualGeneric

	// ---- Group 5: casts ----
	OpCast // operands: from ScalarKind, to ScalarKind
	OpToString

	// ---- Group 6: control flow ----
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpJumpIfLtI64
	OpLoop
	OpBreak
	OpContinue

	// ---- Group 7: exceptions ----
	OpSetupExcept
	OpPopExcept

	// ---- Group 8: functions ----
	OpCall
	OpCallNative
	OpReturn

	// ---- Group 9: aggregates ----
	OpMakeArray
	OpArrayGet
	OpArraySet
	OpArrayPush
	OpArrayPop
	OpArrayReserve
	OpLenArray
	OpLenString
	OpSubstring
	OpSlice
	OpConcat
	OpTypeOf

	// ---- Group 10: GC hints ----
	OpGCPause
	OpGCResume

	// ---- Group 11: printing ----
	OpPrint
	OpPrintNoNL
	OpPrintTyped // operand: ScalarKind
	OpFormatPrint
	OpFormatPrintNoNL

	// ---- Group 12: modules ----
	OpImport

	opcodeCount
)

type opcodeInfo struct {
	name     string
	operands int
}

var opcodeTable = [opcodeCount]opcodeInfo{
	OpConstant:     {"CONSTANT", 1},
	OpConstantLong: {"CONSTANT_LONG", 2},
	OpI64Const:     {"I64_CONST", 2},
	OpNil:          {"NIL", 0},
	OpPop:          {"POP", 0},
	OpDefineGlobal: {"DEFINE_GLOBAL", 2},
	OpGetGlobal:    {"GET_GLOBAL", 2},
	OpSetGlobal:    {"SET_GLOBAL", 2},

	OpAdd:    {"ADD", 1},
	OpSub:    {"SUB", 1},
	OpMul:    {"MUL", 1},
	OpDiv:    {"DIV", 1},
	OpMod:    {"MOD", 1},
	OpNeg:    {"NEG", 1},
	OpAddGeneric: {"ADD_GENERIC", 0},
	OpSubGeneric: {"SUB_GENERIC", 0},
	OpMulGeneric: {"MUL_GENERIC", 0},
	OpDivGeneric: {"DIV_GENERIC", 0},
	OpModGeneric: {"MOD_GENERIC", 0},
	OpNegGeneric: {"NEG_GENERIC", 0},

	OpBitAnd: {"BIT_AND", 1},
	OpBitOr:  {"BIT_OR", 1},
	OpBitXor: {"BIT_XOR", 1},
	OpBitNot: {"BIT_NOT", 1},
	OpShl:    {"SHL", 1},
	OpShr:    {"SHR", 1},

	OpEqual:               {"EQUAL", 0},
	OpNotEqual:            {"NOT_EQUAL", 0},
	OpLess:                {"LESS", 1},
	OpLessEqual:           {"LESS_EQUAL", 1},
	OpGreater:             {"GREATER", 1},
	OpGreaterEqual:        {"GREATER_EQUAL", 1},
	OpLessGeneric:         {"LESS_GENERIC", 0},
	OpLessEqualGeneric:    {"LESS_EQUAL_GENERIC", 0},
	OpGreaterGeneric:      {"GREATER_GENERIC", 0},
	OpGreaterEqualGeneric: {"GREATER_EQUAL_GENERIC", 0},

	OpCast:     {"CAST", 2},
	OpToString: {"TO_STRING", 1},

	OpJump:        {"JUMP", 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2},
	OpJumpIfTrue:  {"JUMP_IF_TRUE", 2},
	OpJumpIfLtI64: {"JUMP_IF_LT_I64", 2},
	OpLoop:        {"LOOP", 2},
	OpBreak:       {"BREAK", 0},
	OpContinue:    {"CONTINUE", 0},

	OpSetupExcept: {"SETUP_EXCEPT", 3},
	OpPopExcept:   {"POP_EXCEPT", 0},

	OpCall:       {"CALL", 3},
	OpCallNative: {"CALL_NATIVE", 3},
	OpReturn:     {"RETURN", 0},

	OpMakeArray:    {"MAKE_ARRAY", 2},
	OpArrayGet:     {"ARRAY_GET", 0},
	OpArraySet:     {"ARRAY_SET", 0},
	OpArrayPush:    {"ARRAY_PUSH", 0},
	OpArrayPop:     {"ARRAY_POP", 0},
	OpArrayReserve: {"ARRAY_RESERVE", 0},
	OpLenArray:     {"LEN_ARRAY", 0},
	OpLenString:    {"LEN_STRING", 0},
	OpSubstring:    {"SUBSTRING", 0},
	OpSlice:        {"SLICE", 0},
	OpConcat:       {"CONCAT", 0},
	OpTypeOf:       {"TYPE_OF", 0},

	OpGCPause:  {"GC_PAUSE", 0},
	OpGCResume: {"GC_RESUME", 0},

	OpPrint:           {"PRINT", 0},
	OpPrintNoNL:       {"PRINT_NO_NL", 0},
	OpPrintTyped:      {"PRINT_TYPED", 1},
	OpFormatPrint:     {"FORMAT_PRINT", 0},
	OpFormatPrintNoNL: {"FORMAT_PRINT_NO_NL", 0},

	OpImport: {"IMPORT", 2},
}

func (op Opcode) String() string {
	if int(op) < len(opcodeTable) && opcodeTable[op].name != "" {
		return opcodeTable[op].name
	}
	return fmt.Sprintf("OP(%d)", op)
}

// Operands returns the number of operand bytes following the opcode byte
// in the instruction stream.
func (op Opcode) Operands() int {
	if int(op) < len(opcodeTable) {
		return opcodeTable[op].operands
	}
	return 0
}
