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

// Package source implements SourceStream and FileDescTable (spec.md
// §4.1): reading logical physical lines out of a file or memory buffer,
// and issuing/caching the stable numeric file descriptor IDs used for
// diagnostics and __FILE__.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileID is a dense, small, first-seen-order integer identifying a
// source file, per spec.md §3 "Source position".
type FileID int

// NoFile is the zero value for "no file" (e.g. for in-memory text with no
// backing path).
const NoFile FileID = -1

// FileDesc caches the four string forms spec.md §4.1 requires for
// __FILE__ and diagnostics, computed once at resolve() time (grounded on
// tctok.h's CTcTokFileDesc, which precomputes these rather than
// recomputing them on every expansion).
type FileDesc struct {
	ID          FileID
	RawPath     string // as written in the #include or driver argument
	DisplayPath string // path to show to the user (may differ, e.g. relative form)

	// OrigOf points to the first-seen descriptor for the same raw path,
	// or to itself if this *is* the first-seen descriptor. Following it
	// transitively yields the canonical descriptor (spec.md §3
	// invariant).
	OrigOf FileID

	quotedDouble     string
	quotedSingle     string
	baseQuotedDouble string
	baseQuotedSingle string
}

// quoteEscape backslash-escapes occurrences of qu and of backslash
// itself, then wraps the result in qu on both ends. Unlike the stringize
// operator's quoting (macro.stringizeText), it escapes backslashes too.
func quoteEscape(qu byte, s string) string {
	var b strings.Builder
	b.WriteByte(qu)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == qu || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(qu)
	return b.String()
}

func newFileDesc(id FileID, rawPath, displayPath string) *FileDesc {
	fd := &FileDesc{ID: id, RawPath: rawPath, DisplayPath: displayPath, OrigOf: id}
	fd.quotedDouble = quoteEscape('"', rawPath)
	fd.quotedSingle = quoteEscape('\'', rawPath)
	base := filepath.Base(rawPath)
	fd.baseQuotedDouble = quoteEscape('"', base)
	fd.baseQuotedSingle = quoteEscape('\'', base)
	return fd
}

// QuotedForFile returns the __FILE__ text: double-quoted full path, or
// (in test-report mode) the double-quoted basename only.
func (fd *FileDesc) QuotedForFile(testReportMode bool) string {
	if testReportMode {
		return fd.baseQuotedDouble
	}
	return fd.quotedDouble
}

// Quoted returns the raw path wrapped in the requested quote character,
// for diagnostic formatting (spec.md §7 "Filename appears quoted when
// the caller requests quoted filenames").
func (fd *FileDesc) Quoted(singleQuote bool) string {
	if singleQuote {
		return fd.quotedSingle
	}
	return fd.quotedDouble
}

// FileDescTable issues stable IDs for source files in first-seen order
// and provides O(1) ID->descriptor lookup.
type FileDescTable struct {
	entries   []*FileDesc
	byRawPath map[string]FileID
}

// NewFileDescTable returns an empty table.
func NewFileDescTable() *FileDescTable {
	return &FileDescTable{byRawPath: make(map[string]FileID)}
}

// Resolve returns the FileDesc for rawPath. When alwaysNew is false and
// rawPath matches an existing entry, that entry is returned; otherwise a
// fresh ID is issued and linked (via OrigOf) to the first-seen entry for
// the same raw path (spec.md §4.1).
func (t *FileDescTable) Resolve(rawPath, displayedPath string, alwaysNew bool) *FileDesc {
	if !alwaysNew {
		if id, ok := t.byRawPath[rawPath]; ok {
			return t.entries[id]
		}
	}

	id := FileID(len(t.entries))
	fd := newFileDesc(id, rawPath, displayedPath)
	if first, ok := t.byRawPath[rawPath]; ok {
		fd.OrigOf = first
	} else {
		t.byRawPath[rawPath] = id
	}
	t.entries = append(t.entries, fd)
	return fd
}

// ByID is O(1) array access, per spec.md §4.1.
func (t *FileDescTable) ByID(id FileID) (*FileDesc, error) {
	if id < 0 || int(id) >= len(t.entries) {
		return nil, fmt.Errorf("source: file ID %d out of range", id)
	}
	return t.entries[id], nil
}

// Canonical follows OrigOf transitively to the first-seen descriptor for
// a filename (spec.md §3 invariant).
func (t *FileDescTable) Canonical(id FileID) (*FileDesc, error) {
	fd, err := t.ByID(id)
	if err != nil {
		return nil, err
	}
	for fd.OrigOf != fd.ID {
		fd, err = t.ByID(fd.OrigOf)
		if err != nil {
			return nil, err
		}
	}
	return fd, nil
}

// Position is a source location: a (file-desc ID, line number) pair, per
// spec.md §3.
type Position struct {
	File FileID
	Line int
}

func (p Position) String() string {
	return fmt.Sprintf("file#%d:%d", p.File, p.Line)
}
