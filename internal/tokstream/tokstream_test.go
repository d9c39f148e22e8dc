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

package tokstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tads3toolchain/tppc/internal/arena"
	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/lexer"
	"github.com/tads3toolchain/tppc/internal/source"
)

// fakeLines is a canned LineSource: one logical line per entry, all
// attributed to the same file.
type fakeLines struct {
	file  source.FileID
	lines []string
	i     int
}

func (f *fakeLines) NextLine() (string, source.Position, bool, error) {
	if f.i >= len(f.lines) {
		return "", source.Position{}, false, nil
	}
	line := f.lines[f.i]
	f.i++
	return line, source.Position{File: f.file, Line: f.i}, true, nil
}

func newTestStream(t *testing.T, lines ...string) (*Stream, *diag.Sink) {
	t.Helper()
	files := source.NewFileDescTable()
	desc := files.Resolve("t.t", "t.t", false)
	sink := diag.NewSink()
	fl := &fakeLines{file: desc.ID, lines: lines}
	return New(sink, arena.New(), files, fl), sink
}

func TestNextReadsTokensAcrossLinesSkippingEndOfLineSentinel(t *testing.T) {
	s, sink := newTestStream(t, "a ;", "b ;")

	var kinds []lexer.Kind
	for {
		tok := s.Next()
		if tok.Kind == lexer.EOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	require.Empty(t, sink.Records())
	assert.Equal(t, []lexer.Kind{lexer.Ident, lexer.Semi, lexer.Ident, lexer.Semi}, kinds)
	assert.True(t, s.AtEOF())
}

func TestUngetRestoresPreviousTokenAndReplaysCurrent(t *testing.T) {
	s, _ := newTestStream(t, "a b c")

	a := s.Next()
	b := s.Next()
	require.Equal(t, "a", a.Text)
	require.Equal(t, "b", b.Text)

	s.Unget()
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.Text)

	replayed := s.Next()
	assert.Equal(t, "b", replayed.Text)
	third := s.Next()
	assert.Equal(t, "c", third.Text)
}

func TestUngetToRestoresCallerSuppliedToken(t *testing.T) {
	s, _ := newTestStream(t, "a b c")

	a := s.Next()
	_ = s.Next() // b
	c := s.Next()
	require.Equal(t, "c", c.Text)

	s.UngetTo(a)
	cur, _ := s.Current()
	assert.Equal(t, "a", cur.Text)

	replayed := s.Next()
	assert.Equal(t, "c", replayed.Text)
}

func TestPushInjectsSyntheticTokenBeforeStream(t *testing.T) {
	s, _ := newTestStream(t, "a")
	s.Push(lexer.Token{Kind: lexer.Ident, Text: "synthetic"})

	first := s.Next()
	assert.Equal(t, "synthetic", first.Text)
	second := s.Next()
	assert.Equal(t, "a", second.Text)
}

type sliceSource struct {
	toks []lexer.Token
	i    int
}

func (s *sliceSource) Next() (lexer.Token, bool) {
	if s.i >= len(s.toks) {
		return lexer.Token{}, false
	}
	t := s.toks[s.i]
	s.i++
	return t, true
}

func TestPushSourceDrawsFromExternalSourceThenReverts(t *testing.T) {
	s, _ := newTestStream(t, "tail")
	s.PushSource(&sliceSource{toks: []lexer.Token{
		{Kind: lexer.Ident, Text: "x"},
		{Kind: lexer.Ident, Text: "y"},
	}})

	assert.Equal(t, "x", s.Next().Text)
	assert.Equal(t, "y", s.Next().Text)
	assert.Equal(t, "tail", s.Next().Text)
}

func TestLookAheadConsumesBothOnMatch(t *testing.T) {
	// ":" ":" (kept as two distinct symbols, unlike "::" which the lexer
	// would merge into a single ColonColon token) exercises the pair match.
	s, _ := newTestStream(t, ": : rest")
	first := s.Next()
	require.Equal(t, ":", first.Text)

	assert.True(t, s.LookAhead(":", ":"))
	next := s.Next()
	assert.Equal(t, "rest", next.Text)
}

func TestLookAheadRestoresOnMismatch(t *testing.T) {
	s, _ := newTestStream(t, ": rest")
	first := s.Next()
	require.Equal(t, ":", first.Text)

	assert.False(t, s.LookAhead(":", ";"))
	cur, _ := s.Current()
	assert.Equal(t, ":", cur.Text)

	next := s.Next()
	assert.Equal(t, "rest", next.Text)
}

func TestPeekAheadNeverConsumesEvenOnMatch(t *testing.T) {
	s, _ := newTestStream(t, ": : rest")
	first := s.Next()
	require.Equal(t, ":", first.Text)

	assert.True(t, s.PeekAhead(":", ":"))
	cur, _ := s.Current()
	assert.Equal(t, ":", cur.Text)

	assert.Equal(t, ":", s.Next().Text)
	assert.Equal(t, "rest", s.Next().Text)
}

func TestCopyCurrentSurvivesUnderlyingLineReuse(t *testing.T) {
	s, _ := newTestStream(t, "hello")
	tok := s.Next()
	require.Equal(t, "hello", tok.Text)

	require.NoError(t, s.CopyCurrent())
	cur, _ := s.Current()
	assert.Equal(t, "hello", cur.Text)

	blocks, used := s.Arena.Stats()
	assert.Equal(t, 1, blocks)
	assert.Equal(t, len("hello"), used)
}

func TestAssumeMissingStrContIsNoopWithoutActiveLine(t *testing.T) {
	s, _ := newTestStream(t)
	s.AssumeMissingStrCont() // must not panic with no logical line loaded
}
