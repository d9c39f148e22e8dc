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

package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/tads3toolchain/tppc/internal/charset"
)

// NewlineSpacingMode controls how the line assembler treats the newline
// that used to separate two physical lines joined by a spliced string
// (spec.md §4.2, "#pragma newline_spacing"). It travels with the Stream
// (not the line assembler) because it is restored when a nested include
// pops back to its enclosing file.
type NewlineSpacingMode int

const (
	// SpacingPreserve keeps the newline as a literal character (the
	// default).
	SpacingPreserve NewlineSpacingMode = iota
	// SpacingCollapse replaces the newline with a single space.
	SpacingCollapse
	// SpacingDelete removes the newline entirely.
	SpacingDelete
)

// Stream reads one physical line at a time out of a single source file
// (or an in-memory buffer standing in for one), decoding to UTF-8 via
// internal/charset and tracking the next line number to assign. It is
// the per-include-frame reader state described in spec.md §4.1; the
// directive processor keeps a stack of Streams, one per currently open
// #include.
type Stream struct {
	File FileID

	r       *bufio.Reader
	lineNum int
	eof     bool

	// NewlineSpacing is this frame's current #pragma newline_spacing
	// mode; it is saved/restored by the caller across include push/pop.
	NewlineSpacing NewlineSpacingMode
}

// NewStream wraps r (assumed to already be producing UTF-8 bytes, e.g.
// via charset.NewDecodeReader) as a Stream attributed to file, with
// lines numbered starting at startLine (normally 1).
func NewStream(file FileID, r io.Reader, startLine int) *Stream {
	return &Stream{File: file, r: bufio.NewReaderSize(r, 4096), lineNum: startLine}
}

// NewStreamCharset is a convenience constructor that applies the named
// character-set decoder before wrapping the result as a Stream.
func NewStreamCharset(file FileID, r io.Reader, charsetName string, startLine int) (*Stream, error) {
	dr, err := charset.NewDecodeReader(charsetName, r)
	if err != nil {
		return nil, err
	}
	return NewStream(file, dr, startLine), nil
}

// NewMemoryStream wraps an in-memory UTF-8 string (e.g. a macro's
// #foreach-expanded body fed back through the tokenizer) as a Stream.
func NewMemoryStream(file FileID, text string, startLine int) *Stream {
	return NewStream(file, strings.NewReader(text), startLine)
}

// NextLine reads the next physical line, stripping any trailing line
// terminator (LF, or CRLF collapsed to nothing — CR is never passed
// downstream, matching spec.md §4.1's "line terminators are normalized
// upstream of the line assembler"). ok is false once the stream is
// exhausted; err is non-nil only on a genuine read error.
func (s *Stream) NextLine() (text string, lineNum int, ok bool, err error) {
	if s.eof {
		return "", 0, false, nil
	}

	raw, rerr := s.r.ReadString('\n')
	if rerr != nil && rerr != io.EOF {
		return "", 0, false, rerr
	}
	if rerr == io.EOF {
		s.eof = true
		if raw == "" {
			return "", 0, false, nil
		}
	}

	raw = strings.TrimSuffix(raw, "\n")
	raw = strings.TrimSuffix(raw, "\r")

	lineNum = s.lineNum
	s.lineNum++
	return raw, lineNum, true, nil
}

// LineNum returns the line number that will be assigned to the next
// line read.
func (s *Stream) LineNum() int { return s.lineNum }

// SetLineNum overrides the next line number to assign, implementing
// #line.
func (s *Stream) SetLineNum(n int) { s.lineNum = n }
