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

// Package lineasm implements the LineAssembler (spec.md §4.2): it reads
// physical lines from a source.Stream and produces logical lines with
// continuation splicing, comment erasure, sentinel scrubbing, and string
// splicing already applied, ready for the directive processor and
// tokenizer.
package lineasm

import (
	"strings"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/source"
)

// Assembler holds the carryover state (in_comment/in_string flags, the
// unsplice queue) that must persist across physical-line boundaries,
// generalized from the byte-at-a-time carryover state the teacher's
// scanner.go chunked tokenizer keeps between Read calls.
type Assembler struct {
	Sink    *diag.Sink
	Spacing source.NewlineSpacingMode

	inComment bool
	inString  bool
	quote     byte

	pendingText string
	pendingLine int
	havePending bool
}

// New returns an Assembler reporting diagnostics to sink.
func New(sink *diag.Sink) *Assembler {
	return &Assembler{Sink: sink}
}

// Unsplice prepends text to the next physical line read, tagging it with
// the logical line number it belongs to (spec.md §4.2 item 5), used by
// the assembler's own string-error recovery. The directive processor's
// frameMoreLines.Unsplice forwards to it, but the macro expander never
// calls that method.
func (a *Assembler) Unsplice(text string, lineNum int) {
	a.pendingText = text + a.pendingText
	a.pendingLine = lineNum
	a.havePending = true
}

func (a *Assembler) nextPhysical(stream *source.Stream) (text string, lineNum int, ok bool, err error) {
	if a.havePending {
		text, lineNum = a.pendingText, a.pendingLine
		a.pendingText, a.havePending = "", false
		return text, lineNum, true, nil
	}
	return stream.NextLine()
}

// AssembleLine produces the next logical line. ok is false once the
// stream (and any pending unsplice text) is exhausted.
func (a *Assembler) AssembleLine(stream *source.Stream, fileName string) (logical string, lineNum int, ok bool, err error) {
	line, firstLine, ok, err := a.nextPhysical(stream)
	if err != nil || !ok {
		return "", 0, false, err
	}

	line, err = a.spliceContinuations(stream, fileName, line, firstLine)
	if err != nil {
		return "", 0, false, err
	}

	var out strings.Builder
	for {
		out.WriteString(a.scanChunk(fileName, firstLine, line))
		if !a.inString {
			break
		}

		explicitNL := strings.HasSuffix(line, `\n`)

		next, nextLine, ok2, err2 := a.nextPhysical(stream)
		if err2 != nil {
			return "", 0, false, err2
		}
		if !ok2 {
			a.Sink.Reportf(diag.Error, diag.Position{File: fileName, Line: firstLine},
				"TCERR_EOF_IN_STRING", "end of file reached inside string literal")
			a.inString = false
			break
		}

		trimmed := strings.TrimSpace(next)
		if trimmed == "}" || trimmed == ";" {
			a.Sink.Reportf(diag.Error, diag.Position{File: fileName, Line: nextLine},
				"TCERR_UNTERM_STRING", "unterminated string literal; assuming it ends at end of previous line")
			a.inString = false
			a.Unsplice(next, nextLine)
			break
		}

		switch a.Spacing {
		case source.SpacingCollapse:
			out.WriteByte(' ')
		case source.SpacingDelete:
			if !explicitNL {
				next = strings.TrimLeft(next, " \t")
			}
		case source.SpacingPreserve:
			out.WriteString(`\n`)
		}

		line = next
	}

	return out.String(), firstLine, true, nil
}

// spliceContinuations implements spec.md §4.2 item 1.
func (a *Assembler) spliceContinuations(stream *source.Stream, fileName, line string, lineNum int) (string, error) {
	for {
		trimmed := strings.TrimRight(line, " \t")
		if !strings.HasSuffix(trimmed, "\\") {
			return line, nil
		}
		if len(trimmed) != len(line) {
			a.Sink.Reportf(diag.Pedantic, diag.Position{File: fileName, Line: lineNum},
				"TCERR_WS_AFTER_CONT", "whitespace follows line-continuation backslash")
		}
		base := trimmed[:len(trimmed)-1]

		next, _, ok, err := a.nextPhysical(stream)
		if err != nil {
			return "", err
		}
		if !ok {
			return base, nil
		}
		line = base + next
	}
}

// scanChunk applies comment erasure and sentinel scrubbing (spec.md §4.2
// items 2-3) to one physical-line segment, carrying in_comment/in_string
// state in the Assembler across calls. String-splice decisions (whether
// a.inString is still true when this returns) are handled by the caller.
func (a *Assembler) scanChunk(fileName string, lineNum int, line string) string {
	var out strings.Builder
	n := len(line)
	i := 0
	for i < n {
		c := line[i]
		switch {
		case a.inComment:
			if c == '*' && i+1 < n && line[i+1] == '/' {
				a.inComment = false
				i += 2
				continue
			}
			if c == '/' && i+1 < n && line[i+1] == '*' {
				a.Sink.Reportf(diag.Warning, diag.Position{File: fileName, Line: lineNum},
					"TCERR_NESTED_COMMENT", "'/*' found within a comment")
				i += 2
				continue
			}
			i++
		case a.inString:
			if c == '\\' && i+1 < n {
				out.WriteByte(c)
				out.WriteByte(line[i+1])
				i += 2
				continue
			}
			if c == a.quote {
				a.inString = false
				out.WriteByte(c)
				i++
				continue
			}
			out.WriteByte(scrub(c))
			i++
		default:
			if c == '/' && i+1 < n && line[i+1] == '/' {
				i = n
				continue
			}
			if c == '/' && i+1 < n && line[i+1] == '*' {
				a.inComment = true
				out.WriteByte(' ')
				i += 2
				continue
			}
			if c == '"' || c == '\'' {
				a.inString = true
				a.quote = c
				out.WriteByte(c)
				i++
				continue
			}
			out.WriteByte(scrub(c))
			i++
		}
	}
	return out.String()
}

// scrub replaces a reserved tokenizer-sentinel byte (spec.md §3, §4.2
// item 3) with an ordinary space.
func scrub(c byte) byte {
	if c >= 1 && c <= 8 {
		return ' '
	}
	return c
}
