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

import "github.com/tads3toolchain/tppc/internal/diag"

// quoteRunLen counts the run of consecutive bytes equal to quote
// starting at l.buf[l.i].
func (l *Lexer) quoteRunLen(quote byte) int {
	n := 0
	for l.i+n < len(l.buf) && l.buf[l.i+n] == quote {
		n++
	}
	return n
}

// lexQuotedStart handles the opening of a '...' or "..." string,
// including the triple-quote and empty-string special cases (spec.md
// §4.5).
func (l *Lexer) lexQuotedStart(quote byte) Token {
	startKind, midKind, endKind, plainKind := stringKinds(quote)

	run := l.quoteRunLen(quote)
	switch {
	case run == 2:
		l.i += 2
		return l.tok(plainKind, "")
	case run >= 3:
		l.i += run
		return l.finishStringFragment(quote, true, plainKind, startKind, midKind, endKind)
	default:
		l.i++
		return l.finishStringFragment(quote, false, plainKind, startKind, midKind, endKind)
	}
}

func stringKinds(quote byte) (start, mid, end, plain Kind) {
	if quote == '"' {
		return DStrStart, DStrMid, DStrEnd, DStr
	}
	return SStrStart, SStrMid, SStrEnd, SStr
}

// lexStringContinuation resumes scanning a string fragment after an
// embedded expression's closing ">>" (or is the sole call for a
// non-embedding string opened by lexQuotedStart).
func (l *Lexer) lexStringContinuation() Token {
	top := l.embed[len(l.embed)-1]
	_, mid, end, _ := stringKinds(top.quote)
	return l.finishStringFragment(top.quote, top.triple, end, 0, mid, end)
}

// finishStringFragment scans string body text from the current position
// until the string closes (emitting plainKind if this is the first
// fragment and no embedding ever opened, otherwise endKind), an
// embedding opens via "<<" (emitting startKind for the first fragment or
// midKind for a continuation and pushing/reusing an embed level), or EOF
// is hit (a tokenizer-level recovery: the line assembler guarantees
// properly-spliced strings, so this only fires on an internal
// inconsistency).
func (l *Lexer) finishStringFragment(quote byte, triple bool, plainOrEndKind, startKind, midKind, endKind Kind) Token {
	isFirstFragment := startKind != 0
	var out []byte

	for {
		if l.eof() {
			l.Sink.Reportf(diag.Internal, diag.Position{File: l.file, Line: l.pos.Line},
				"TCERR_EOF_IN_STRING_TOKEN", "tokenizer reached end of line inside an unterminated string")
			if isFirstFragment {
				return l.strTok(plainOrEndKind, out)
			}
			l.popEmbed()
			return l.strTok(endKind, out)
		}

		c := l.peekByte()

		if c == '\\' {
			if triple && l.peekByteAt(1) == quote {
				n := 0
				for l.i+1+n < len(l.buf) && l.buf[l.i+1+n] == quote {
					n++
				}
				for k := 0; k < n; k++ {
					out = append(out, quote)
				}
				l.i += 1 + n
				continue
			}
			out = append(out, c)
			if !l.eofAt(l.i + 1) {
				out = append(out, l.buf[l.i+1])
				l.i += 2
			} else {
				l.i++
			}
			continue
		}

		if c == quote {
			n := l.quoteRunLen(quote)
			if !triple {
				l.i += n // n==1 in well-formed input
				return l.closeFragment(isFirstFragment, plainOrEndKind, endKind, out)
			}
			if n < 3 {
				for k := 0; k < n; k++ {
					out = append(out, quote)
				}
				l.i += n
				continue
			}
			// Greedy: the last 3 quotes close the string; any extra
			// leading quotes in the run belong to the body.
			for k := 0; k < n-3; k++ {
				out = append(out, quote)
			}
			l.i += n
			return l.closeFragment(isFirstFragment, plainOrEndKind, endKind, out)
		}

		if c == '<' && l.peekByteAt(1) == '<' {
			l.i += 2
			l.justOpenedEmbed = true
			if isFirstFragment {
				l.pushEmbed(quote, triple)
				return l.strTok(startKind, out)
			}
			top := &l.embed[len(l.embed)-1]
			top.inExpr = true
			return l.strTok(midKind, out)
		}

		out = append(out, c)
		l.i++
	}
}

func (l *Lexer) closeFragment(isFirstFragment bool, plainKind, endKind Kind, out []byte) Token {
	if isFirstFragment {
		return l.strTok(plainKind, out)
	}
	l.popEmbed()
	return l.strTok(endKind, out)
}

func (l *Lexer) eofAt(i int) bool { return i >= len(l.buf) }

func (l *Lexer) pushEmbed(quote byte, triple bool) {
	if len(l.embed) >= maxEmbedDepth {
		l.Sink.Reportf(diag.Error, diag.Position{File: l.file, Line: l.pos.Line},
			"TCERR_EMBED_TOO_DEEP", "embedded expressions nested more than %d deep", maxEmbedDepth)
	}
	l.embed = append(l.embed, embedLevel{quote: quote, triple: triple, inExpr: true})
}

func (l *Lexer) popEmbed() {
	if len(l.embed) == 0 {
		return
	}
	l.embed = l.embed[:len(l.embed)-1]
}

// AssumeMissingStrCont implements TokenStream's assume_missing_str_cont
// (spec.md §4.6): the parser tells the tokenizer to treat the current
// position as though ">>" had just closed an embedded expression,
// resolving the ambiguity where a missing ">>" looks like an unterminated
// string.
func (l *Lexer) AssumeMissingStrCont() {
	if len(l.embed) == 0 {
		return
	}
	l.embed[len(l.embed)-1].inExpr = false
}

func (l *Lexer) strTok(k Kind, text []byte) Token {
	return l.tok(k, string(text))
}

// lexRegex handles R'...'/R"..." tokens (spec.md §4.5); regex bodies
// never open embedded expressions.
func (l *Lexer) lexRegex() Token {
	l.i++ // consume 'R'/'r'
	quote := l.peekByte()
	l.i++

	var out []byte
	for {
		if l.eof() {
			l.Sink.Reportf(diag.Error, diag.Position{File: l.file, Line: l.pos.Line},
				"TCERR_UNTERM_REGEX", "unterminated regex-string literal")
			return l.strTok(Regex, out)
		}
		c := l.peekByte()
		if c == '\\' && !l.eofAt(l.i+1) {
			out = append(out, c, l.buf[l.i+1])
			l.i += 2
			continue
		}
		if c == quote {
			l.i++
			return l.strTok(Regex, out)
		}
		out = append(out, c)
		l.i++
	}
}

// lexFormatSpec handles the %-prefixed sprintf format token that may
// immediately follow an embedding's opening "<<" (spec.md §4.5).
func (l *Lexer) lexFormatSpec() Token {
	start := l.i
	l.i++ // consume '%'
	for !l.eof() {
		c := l.peekByte()
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == ' ' || c == '#' {
			l.i++
			continue
		}
		// Conversion character ends the spec.
		l.i++
		break
	}
	return l.tok(FmtSpec, string(l.buf[start:l.i]))
}
