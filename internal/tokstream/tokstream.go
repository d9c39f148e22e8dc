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

// Package tokstream implements the TokenStream facade (spec.md §4.6): the
// parser's sole view of the input, sitting on top of internal/lexer and
// whatever feeds it logical lines (normally internal/directive.Processor).
// Grounded on the teacher's parser/token_reader.go tokenReader (one-token
// lookahead buffer plus next/peek/consume), generalized to TADS's
// arbitrary-depth unget stack, external token source stack, and the
// arena-copy/look-ahead operations the teacher's reader doesn't need.
package tokstream

import (
	"github.com/tads3toolchain/tppc/internal/arena"
	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/lexer"
	"github.com/tads3toolchain/tppc/internal/source"
)

// LineSource supplies the next logical, macro-expanded line of input.
// internal/directive.Processor satisfies this by its method set alone.
type LineSource interface {
	NextLine() (text string, pos source.Position, ok bool, err error)
}

// TokenSource is an external token producer installable with PushSource.
// It is read until exhausted (Next returns ok=false), at which point the
// Stream reverts to whatever was providing tokens before it.
type TokenSource interface {
	Next() (lexer.Token, bool)
}

// Stream is the parser's token cursor. Zero value is not usable; build one
// with New.
type Stream struct {
	Sink  *diag.Sink
	Arena *arena.Arena

	files *source.FileDescTable
	lines LineSource

	curLexer *lexer.Lexer
	curFile  string

	cur      lexer.Token
	haveCur  bool
	prev     lexer.Token
	havePrev bool

	// pending is the un-get / push LIFO: spec.md §4.6 describes unget as
	// "a growing linked list of slots" and push as injecting a
	// synthesized next token; both are satisfied by the same stack, since
	// both mean "return this token before consulting anything else".
	pending []lexer.Token

	// ext is the external-token-source stack (spec.md §5: "external token
	// sources form a second LIFO stack that sits between un-get and the
	// file stream").
	ext []TokenSource

	atEOF bool
}

// New returns a Stream reading logical lines from lines. Call Next once to
// load the first token before calling Current.
func New(sink *diag.Sink, ar *arena.Arena, files *source.FileDescTable, lines LineSource) *Stream {
	return &Stream{Sink: sink, Arena: ar, files: files, lines: lines}
}

// Current returns the token last returned by Next, and whether Next has
// ever been called.
func (s *Stream) Current() (lexer.Token, bool) { return s.cur, s.haveCur }

// Previous returns the token before Current, and whether one exists.
func (s *Stream) Previous() (lexer.Token, bool) { return s.prev, s.havePrev }

// AtEOF reports whether the underlying line source is exhausted and no
// pending/external tokens remain, i.e. the next Next() would return an EOF
// token.
func (s *Stream) AtEOF() bool {
	return s.atEOF && len(s.pending) == 0 && len(s.ext) == 0
}

// Next consults the un-get/push stack first, then the external-source
// stack (if any), then the preprocessed line stream, and makes the result
// Current (spec.md §4.6).
func (s *Stream) Next() lexer.Token {
	s.prev, s.havePrev = s.cur, s.haveCur
	s.cur = s.fetch()
	s.haveCur = true
	return s.cur
}

func (s *Stream) fetch() lexer.Token {
	if n := len(s.pending); n > 0 {
		tok := s.pending[n-1]
		s.pending = s.pending[:n-1]
		return tok
	}
	for len(s.ext) > 0 {
		top := s.ext[len(s.ext)-1]
		if tok, ok := top.Next(); ok {
			return tok
		}
		s.ext = s.ext[:len(s.ext)-1]
	}
	return s.fetchFromLines()
}

func (s *Stream) fetchFromLines() lexer.Token {
	for {
		if s.curLexer == nil {
			if !s.loadNextLine() {
				return lexer.Token{Kind: lexer.EOF}
			}
		}
		tok := s.curLexer.Next()
		if tok.Kind == lexer.EndPPLine {
			s.curLexer = nil
			continue
		}
		return tok
	}
}

func (s *Stream) loadNextLine() bool {
	if s.atEOF {
		return false
	}
	text, pos, ok, err := s.lines.NextLine()
	if err != nil {
		s.Sink.Reportf(diag.Internal, diag.Position{File: s.curFile}, "TCERR_LINE_SOURCE_FAILED",
			"error reading preprocessed input: %s", err)
		s.atEOF = true
		return false
	}
	if !ok {
		s.atEOF = true
		return false
	}
	if fd, ferr := s.files.ByID(pos.File); ferr == nil {
		s.curFile = fd.DisplayPath
	}
	s.curLexer = lexer.New(s.Sink, s.curFile, pos, text)
	return true
}

// Unget backs up to the internally tracked previous token, which becomes
// Current again; the token Unget is called on is saved to be re-fetched by
// the following Next() (spec.md §4.6, tctok.h's no-argument unget()).
func (s *Stream) Unget() {
	if !s.havePrev {
		return
	}
	s.pending = append(s.pending, s.cur)
	s.cur = s.prev
	s.havePrev = false
}

// UngetTo backs up to an arbitrary caller-supplied prior token, which
// becomes Current again. Tokens must be ungotten in the reverse order they
// were read (tctok.h's unget(const CTcToken*)).
func (s *Stream) UngetTo(prevTok lexer.Token) {
	s.pending = append(s.pending, s.cur)
	s.cur = prevTok
	s.havePrev = false
}

// Push injects tok as the next token Next() will return. Current is
// unaffected until the following Next() call.
func (s *Stream) Push(tok lexer.Token) {
	s.pending = append(s.pending, tok)
}

// PushSource installs src as the token producer consulted ahead of the
// normal line stream. Once src is exhausted it is discarded and Next()
// reverts to whatever was providing tokens before PushSource was called,
// which is why PushSource itself leaves Current untouched — call Next()
// to actually begin drawing from src.
func (s *Stream) PushSource(src TokenSource) {
	s.ext = append(s.ext, src)
}

// CopyCurrent promotes Current's text into arena-backed storage, so it
// remains valid after the logical line it was scanned from is discarded.
func (s *Stream) CopyCurrent() error {
	if !s.haveCur {
		return nil
	}
	text, err := s.Arena.CopyString(s.cur.Text)
	if err != nil {
		return err
	}
	s.cur.Text = text
	return nil
}

// CopyToken stores an arena-backed copy of src into *dst.
func (s *Stream) CopyToken(dst *lexer.Token, src lexer.Token) error {
	text, err := s.Arena.CopyString(src.Text)
	if err != nil {
		return err
	}
	*dst = src
	dst.Text = text
	return nil
}

// LookAhead matches a symbol pair: if Current's text is sym1, it reads one
// more token and, if that token's text is sym2, consumes both and returns
// true. Otherwise the second token is pushed back so Current (sym1) is
// unchanged and false is returned.
func (s *Stream) LookAhead(sym1, sym2 string) bool {
	if !s.haveCur || s.cur.Text != sym1 {
		return false
	}
	first := s.cur
	second := s.Next()
	if second.Text == sym2 {
		return true
	}
	s.pending = append(s.pending, second)
	s.cur = first
	return false
}

// PeekAhead is LookAhead without ever consuming: both tokens are restored
// regardless of whether the pair matched.
func (s *Stream) PeekAhead(sym1, sym2 string) bool {
	if !s.haveCur || s.cur.Text != sym1 {
		return false
	}
	first := s.cur
	second := s.Next()
	s.pending = append(s.pending, second)
	s.cur = first
	return second.Text == sym2
}

// AssumeMissingStrCont tells the active line's lexer to treat the current
// position as though ">>" had just closed an embedded expression (spec.md
// §4.6), resolving the ambiguity between a missed ">>" and an unterminated
// string. A no-op if no logical line is currently loaded.
func (s *Stream) AssumeMissingStrCont() {
	if s.curLexer != nil {
		s.curLexer.AssumeMissingStrCont()
	}
}
