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

package lexer

import (
	"strconv"
	"strings"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/source"
)

// maxEmbedDepth bounds the embedded-expression nesting stack (spec.md
// §3 "Embedding context").
const maxEmbedDepth = 10

// maxIdentLen truncates over-long identifiers (spec.md §4.5).
const maxIdentLen = 80

type embedLevel struct {
	quote  byte
	triple bool
	parens int
	inExpr bool
}

// Lexer classifies tokens out of a single logical line's text. A fresh
// Lexer is created per logical line by the tokenizer driver; embedding
// context does not survive past the end of the line that opened it
// (TADS strings with embedded expressions close on the same logical
// line per the grammar this tokenizer serves).
type Lexer struct {
	Sink *diag.Sink
	file string
	pos  source.Position

	buf []byte
	i   int

	embed []embedLevel

	justOpenedEmbed bool
}

// New returns a Lexer over logical line text, attributed to pos for
// diagnostics.
func New(sink *diag.Sink, file string, pos source.Position, text string) *Lexer {
	return &Lexer{Sink: sink, file: file, pos: pos, buf: []byte(text)}
}

func (l *Lexer) eof() bool { return l.i >= len(l.buf) }

func (l *Lexer) peekByte() byte {
	if l.eof() {
		return 0
	}
	return l.buf[l.i]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.i+off >= len(l.buf) {
		return 0
	}
	return l.buf[l.i+off]
}

func (l *Lexer) skipWhitespace() {
	for !l.eof() {
		c := l.peekByte()
		if c == ' ' || c == '\t' {
			l.i++
			continue
		}
		break
	}
}

// Next returns the next token. Once the line is exhausted it returns an
// EndPPLine token forever (spec.md's end-of-preprocessor-line sentinel).
func (l *Lexer) Next() Token {
	if len(l.embed) > 0 && !l.embed[len(l.embed)-1].inExpr {
		return l.lexStringContinuation()
	}

	l.skipWhitespace()

	if l.eof() {
		return l.tok(EndPPLine, "")
	}

	c := l.peekByte()

	if len(l.embed) > 0 && l.embed[len(l.embed)-1].inExpr {
		top := &l.embed[len(l.embed)-1]
		switch c {
		case '(':
			top.parens++
		case ')':
			if top.parens > 0 {
				top.parens--
			}
		case '>':
			if top.parens == 0 && l.peekByteAt(1) == '>' {
				l.i += 2
				top.inExpr = false
				return l.lexStringContinuation()
			}
		}
	}

	if l.justOpenedEmbed && c == '%' {
		l.justOpenedEmbed = false
		return l.lexFormatSpec()
	}
	l.justOpenedEmbed = false

	switch {
	case isSentinel(c):
		return l.lexSentinel()
	case c == '\'' || c == '"':
		return l.lexQuotedStart(c)
	case (c == 'R' || c == 'r') && (l.peekByteAt(1) == '\'' || l.peekByteAt(1) == '"'):
		return l.lexRegex()
	case isIdentStart(c):
		return l.lexIdent()
	case isDigit(c):
		return l.lexNumber()
	default:
		return l.lexOperator()
	}
}

func (l *Lexer) tok(k Kind, text string) Token {
	return Token{Kind: k, Text: text, Pos: l.pos}
}

func isSentinel(c byte) bool { return c >= 1 && c <= 8 }

func (l *Lexer) lexSentinel() Token {
	c := l.buf[l.i]
	l.i++
	switch c {
	case SentinelFormalFlag:
		return l.tok(FormalFlag, "")
	case SentinelFullyExpandedFlag:
		return l.tok(FullyExpandedFlag, "")
	case SentinelMacroExpEnd:
		return l.tok(MacroExpEnd, "")
	case SentinelEndPPLine:
		return l.tok(EndPPLine, "")
	case SentinelForeachFlag:
		return l.tok(ForeachFlag, "")
	case SentinelArgcountFlag:
		return l.tok(ArgcountFlag, "")
	case SentinelIfEmptyFlag:
		return l.tok(IfEmptyFlag, "")
	case SentinelIfNEmptyFlag:
		return l.tok(IfNEmptyFlag, "")
	default:
		l.Sink.Reportf(diag.Internal, diag.Position{File: l.file, Line: l.pos.Line},
			"TCERR_BAD_SENTINEL", "unrecognized sentinel byte 0x%02x reached tokenizer", c)
		return l.tok(Invalid, "")
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) lexIdent() Token {
	start := l.i
	sawHighByte := false
	for !l.eof() && isIdentCont(l.peekByte()) {
		if l.peekByte() >= 0x80 {
			sawHighByte = true
		}
		l.i++
	}
	text := string(l.buf[start:l.i])

	if sawHighByte {
		l.Sink.Reportf(diag.Error, diag.Position{File: l.file, Line: l.pos.Line},
			"TCERR_NON_ASCII_IDENT", "non-ASCII byte in identifier %q", text)
	}

	if len(text) > maxIdentLen {
		l.Sink.Reportf(diag.Warning, diag.Position{File: l.file, Line: l.pos.Line},
			"TCERR_IDENT_TOO_LONG", "identifier %q truncated to %d characters", text, maxIdentLen)
		text = text[:maxIdentLen]
	}

	if kw, ok := LookupKeyword(text); ok {
		return l.tok(kw, text)
	}
	return l.tok(Ident, text)
}

func (l *Lexer) lexNumber() Token {
	start := l.i

	if l.peekByte() == '0' && (l.peekByteAt(1) == 'x' || l.peekByteAt(1) == 'X') {
		l.i += 2
		for !l.eof() && isHexDigit(l.peekByte()) {
			l.i++
		}
		text := string(l.buf[start:l.i])
		v, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil || v > 0x7fffffff {
			return l.tok(BigInt, text)
		}
		return l.intTok(text, int64(v))
	}

	if l.peekByte() == '0' && isDigit(l.peekByteAt(1)) {
		j := l.i + 1
		badOctal := false
		for j < len(l.buf) && isDigit(l.buf[j]) {
			if l.buf[j] > '7' {
				badOctal = true
			}
			j++
		}
		// A following '.' or 'e'/'E' means this is actually a float,
		// not an octal integer (e.g. 08.5).
		if j >= len(l.buf) || (l.buf[j] != '.' && l.buf[j] != 'e' && l.buf[j] != 'E') {
			l.i = j
			text := string(l.buf[start:l.i])
			base := 8
			if badOctal {
				l.Sink.Reportf(diag.Error, diag.Position{File: l.file, Line: l.pos.Line},
					"TCERR_BAD_OCTAL", "invalid digit in octal constant %q; did you mean decimal?", text)
				base = 10
			}
			v, err := strconv.ParseUint(text[1:], base, 64)
			if err != nil || v > 0x7fffffff {
				return l.tok(BigInt, text)
			}
			return l.intTok(text, int64(v))
		}
	}

	for !l.eof() && isDigit(l.peekByte()) {
		l.i++
	}

	isFloat := false
	if l.peekByte() == '.' && l.peekByteAt(1) != '.' {
		isFloat = true
		l.i++
		for !l.eof() && isDigit(l.peekByte()) {
			l.i++
		}
	}
	if l.peekByte() == 'e' || l.peekByte() == 'E' {
		save := l.i
		j := l.i + 1
		if j < len(l.buf) && (l.buf[j] == '+' || l.buf[j] == '-') {
			j++
		}
		if j < len(l.buf) && isDigit(l.buf[j]) {
			isFloat = true
			l.i = j
			for !l.eof() && isDigit(l.peekByte()) {
				l.i++
			}
		} else {
			l.i = save
		}
	}

	text := string(l.buf[start:l.i])
	if isFloat {
		ft := l.tok(Float, text)
		ft.FloatText = text
		return ft
	}

	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil || v > 0x7fffffff {
		return l.tok(BigInt, text)
	}
	return l.intTok(text, int64(v))
}

func (l *Lexer) intTok(text string, v int64) Token {
	t := l.tok(Int, text)
	t.IntValue = v
	return t
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// lexOperator matches the longest operator starting at the current
// position (spec.md §4.5's "full C-like set plus TADS additions").
func (l *Lexer) lexOperator() Token {
	rest := l.buf[l.i:]
	for _, op := range operatorTable {
		if strings.HasPrefix(string(rest), op.text) {
			l.i += len(op.text)
			return l.tok(op.kind, op.text)
		}
	}
	c := l.buf[l.i]
	l.i++
	l.Sink.Reportf(diag.Error, diag.Position{File: l.file, Line: l.pos.Line},
		"TCERR_BAD_CHAR", "unexpected character %q", c)
	return l.tok(Invalid, string(c))
}

type operator struct {
	text string
	kind Kind
}

// operatorTable is ordered longest-match-first within each shared
// prefix so the scan above never needs backtracking.
var operatorTable = []operator{
	{">>>=", UShrEq},
	{">>>", UShr},
	{">>=", ShrEq},
	{"<<=", ShlEq},
	{"...", DotDotDot},
	{"::", ColonColon},
	{"->", Arrow},
	{"??", QQ},
	{"#@", PoundAt},
	{"##", PoundPound},
	{"<<", Shl},
	{">>", Shr},
	{":=", ColonEq},
	{"+=", PlusEq},
	{"-=", MinusEq},
	{"*=", StarEq},
	{"/=", SlashEq},
	{"%=", PercentEq},
	{"&=", AmpEq},
	{"|=", PipeEq},
	{"^=", CaretEq},
	{"==", EqEq},
	{"!=", Ne},
	{"<=", Le},
	{">=", Ge},
	{"&&", AndAnd},
	{"||", OrOr},
	{"++", Inc},
	{"--", Dec},
	{"..", DotDot},
	{"(", LParen},
	{")", RParen},
	{"{", LBrace},
	{"}", RBrace},
	{"[", LBracket},
	{"]", RBracket},
	{",", Comma},
	{";", Semi},
	{":", Colon},
	{".", Dot},
	{"#", Pound},
	{"=", Assign},
	{"+", Plus},
	{"-", Minus},
	{"*", Star},
	{"/", Slash},
	{"%", Percent},
	{"&", Amp},
	{"|", Pipe},
	{"^", Caret},
	{"~", Tilde},
	{"!", Bang},
	{"<", Lt},
	{">", Gt},
	{"?", Question},
}
