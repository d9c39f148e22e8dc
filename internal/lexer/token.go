// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lexer implements the Tokenizer (spec.md §4.5): it classifies
// the next lexical unit out of a post-macro-expansion logical line into
// one of the TADS token kinds, grounded on the teacher's
// language/internal/cc/lexer package (the regex-dispatch-by-first-byte
// NextToken shape) but generalized from C tokens to the TADS token set,
// including string embedding and the internal sentinel pseudo-tokens.
package lexer

import (
	"fmt"

	"github.com/tads3toolchain/tppc/internal/source"
)

// Kind identifies a lexical unit. The full TADS token set is much larger
// than the teacher's C subset (tctok.h's tc_toktyp_t lists close to 120
// entries); this enumerates the operators, literal forms, and the
// internal sentinel pseudo-tokens spec.md calls out explicitly, plus the
// keyword set.
type Kind int

const (
	EOF Kind = iota
	Invalid

	Ident

	// Literals.
	Int
	BigInt
	Float
	SStr     // fully self-contained 'single quoted' string
	DStr     // fully self-contained "double quoted" string
	SStrStart
	SStrMid
	SStrEnd
	DStrStart
	DStrMid
	DStrEnd
	Regex // R'...' or R"..."
	FmtSpec

	// Punctuation.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Colon
	ColonColon
	Dot
	DotDot
	DotDotDot
	Arrow // ->
	QQ    // ??
	Pound // #
	PoundAt // #@
	PoundPound // ##

	// Assignment operators.
	Assign
	PlusEq
	MinusEq
	StarEq
	SlashEq
	PercentEq
	AmpEq
	PipeEq
	CaretEq
	ShlEq
	ShrEq
	UShrEq
	ColonEq

	// Arithmetic / bitwise / comparison / logical operators.
	Plus
	Minus
	Star
	Slash
	Percent
	Amp
	Pipe
	Caret
	Tilde
	Bang
	Lt
	Gt
	Le
	Ge
	EqEq
	Ne
	AndAnd
	OrOr
	Shl
	Shr
	UShr
	Inc
	Dec
	Question

	// Keywords (promoted from Ident by the keyword table).
	KwAnd
	KwBreak
	KwCase
	KwCatch
	KwClass
	KwContinue
	KwDefault
	KwDelegated
	KwDelete
	KwDo
	KwElse
	KwEnum
	KwExport
	KwExtern
	KwExtra
	KwFalse
	KwFinally
	KwFor
	KwForEach
	KwFormat
	KwFunction
	KwGoto
	KwIf
	KwInherited
	KwIntrinsic
	KwLocal
	KwMethod
	KwModify
	KwMultiMethod
	KwNew
	KwNil
	KwObject
	KwOperator
	KwOr
	KwPrivate
	KwProperty
	KwPropertySet
	KwProtected
	KwPublic
	KwReplace
	KwReturn
	KwSelf
	KwStatic
	KwSwitch
	KwTargetobject
	KwTargetprop
	KwTemplate
	KwThis
	KwThrow
	KwTransient
	KwTrue
	KwTry
	KwWhile

	// Internal sentinel pseudo-tokens (spec.md §3, reserved bytes
	// 0x01-0x08, reinstated by the macro expander during substitution;
	// never present in source text reaching the tokenizer otherwise).
	FormalFlag
	FullyExpandedFlag
	MacroExpEnd
	EndPPLine
	ForeachFlag
	ArgcountFlag
	IfEmptyFlag
	IfNEmptyFlag
)

// Sentinel byte values reserved by the line assembler (spec.md §3, §204).
const (
	SentinelFormalFlag        byte = 0x01
	SentinelFullyExpandedFlag byte = 0x02
	SentinelMacroExpEnd       byte = 0x03
	SentinelEndPPLine         byte = 0x04
	SentinelForeachFlag       byte = 0x05
	SentinelArgcountFlag      byte = 0x06
	SentinelIfEmptyFlag       byte = 0x07
	SentinelIfNEmptyFlag      byte = 0x08
)

// Token is one lexical unit. Text is the token's source text ("safe" or
// "unsafe" per spec.md §3 — this package never copies into the arena
// itself; callers that must retain a token past the next Next() call
// promote it via internal/arena).
type Token struct {
	Kind Kind
	Text string

	// IntValue holds the parsed value for Int tokens. It is zero for
	// BigInt tokens, whose value is carried only in Text.
	IntValue int64
	// FloatText is the un-parsed literal text for Float tokens (TADS
	// floats are arbitrary precision; parsing to float64 is a parser
	// concern, not a tokenizer one).
	FloatText string

	Pos source.Position

	// FullyExpanded is set on tokens produced by macro expansion whose
	// originating formal/actual has already been fully macro-expanded
	// (spec.md §3), so the rescan step does not re-expand them.
	FullyExpanded bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Pos)
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var kindNames = map[Kind]string{
	EOF: "EOF", Invalid: "INVALID", Ident: "IDENT",
	Int: "INT", BigInt: "BIGINT", Float: "FLOAT",
	SStr: "SSTR", DStr: "DSTR",
	SStrStart: "SSTR_START", SStrMid: "SSTR_MID", SStrEnd: "SSTR_END",
	DStrStart: "DSTR_START", DStrMid: "DSTR_MID", DStrEnd: "DSTR_END",
	Regex: "REGEX", FmtSpec: "FMTSPEC",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Comma: ",", Semi: ";",
	Colon: ":", ColonColon: "::", Dot: ".", DotDot: "..", DotDotDot: "...",
	Arrow: "->", QQ: "??", Pound: "#", PoundAt: "#@", PoundPound: "##",
	Assign: "=", PlusEq: "+=", MinusEq: "-=", StarEq: "*=", SlashEq: "/=",
	PercentEq: "%=", AmpEq: "&=", PipeEq: "|=", CaretEq: "^=",
	ShlEq: "<<=", ShrEq: ">>=", UShrEq: ">>>=", ColonEq: ":=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~", Bang: "!",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", EqEq: "==", Ne: "!=",
	AndAnd: "&&", OrOr: "||", Shl: "<<", Shr: ">>", UShr: ">>>",
	Inc: "++", Dec: "--", Question: "?",
	FormalFlag: "<FORMAL>", FullyExpandedFlag: "<FULLYEXP>",
	MacroExpEnd: "<MACEND>", EndPPLine: "<EOL>",
	ForeachFlag: "<FOREACH>", ArgcountFlag: "<ARGCOUNT>",
	IfEmptyFlag: "<IFEMPTY>", IfNEmptyFlag: "<IFNEMPTY>",
}
