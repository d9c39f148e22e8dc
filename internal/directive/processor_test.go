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

package directive

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/macro"
	"github.com/tads3toolchain/tppc/internal/source"
)

type fakeOpener struct {
	files map[string]string
}

func (f *fakeOpener) Open(p string) (io.ReadCloser, error) {
	text, ok := f.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

func newTestProcessor(t *testing.T, files map[string]string, includeDirs ...string) *Processor {
	t.Helper()
	p := NewProcessor(Config{
		IncludeDirs: includeDirs,
		Opener:      &fakeOpener{files: files},
		Files:       source.NewFileDescTable(),
		Macros:      macro.NewTable(),
		Sink:        diag.NewSink(),
	})
	require.NoError(t, p.OpenMain("main.t"))
	return p
}

func allLines(t *testing.T, p *Processor) []string {
	t.Helper()
	var out []string
	for {
		line, _, ok, err := p.NextLine()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, squashLine(line))
	}
	return out
}

func squashLine(s string) string { return strings.Join(strings.Fields(s), " ") }

func TestObjectLikeMacroExpandsThroughPipeline(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#define MAX 100\nx = MAX ;\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"x = 100 ;"}, got)
}

func TestUndefRemovesMacro(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#define FOO 1\n#undef FOO\nFOO\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"FOO"}, got)
}

func TestIfTakenBranchEmitsOnlyThatBranch(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#define FLAG 1\n#if FLAG\nyes ;\n#else\nno ;\n#endif\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"yes ;"}, got)
}

func TestIfdefNotDefinedTakesElseBranch(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#ifdef MISSING\nyes ;\n#else\nno ;\n#endif\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"no ;"}, got)
}

func TestNestedIfUnderFalseBranchStaysSuppressed(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#define INNER 1\n#if 0\n#if INNER\nnever ;\n#endif\n#endif\nafter ;\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"after ;"}, got)
}

func TestElifSelectsFirstMatchingBranch(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#if 0\na ;\n#elif 1\nb ;\n#elif 1\nc ;\n#else\nd ;\n#endif\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"b ;"}, got)
}

func TestUnterminatedIfReportsOneErrorPerUnclosedFrame(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#if 1\nx ;\n",
	})
	_ = allLines(t, p)
	sink := p.cfg.Sink
	require.Len(t, sink.Records(), 1)
	assert.Equal(t, "TCERR_UNTERM_IF", sink.Records()[0].Code)
}

func TestQuoteIncludeSearchesIncludingFileDirectoryFirst(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t":          "#include \"dir/inner.t\"\nafter ;\n",
		"dir/inner.t":     "#include \"sibling.t\"\ninner ;\n",
		"dir/sibling.t":   "sibling ;\n",
		"sibling.t":       "wrong ;\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"sibling ;", "inner ;", "after ;"}, got)
}

func TestAngleIncludeSearchesIncludeDirsOnly(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t":        "#include <lib.t>\nafter ;\n",
		"libdir/lib.t":  "lib ;\n",
	}, "libdir")
	got := allLines(t, p)
	assert.Equal(t, []string{"lib ;", "after ;"}, got)
}

func TestPragmaOnceSkipsSecondInclude(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#include \"hdr.t\"\n#include \"hdr.t\"\nafter ;\n",
		"hdr.t":  "#pragma once\nhdr ;\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"hdr ;", "after ;"}, got)
}

func TestLineDirectiveRewritesLineNumberAndFile(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#line 42 \"elsewhere.t\"\nx ;\n",
	})
	_, pos, ok, err := p.NextLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, pos.Line)
	fd, err := p.cfg.Files.ByID(pos.File)
	require.NoError(t, err)
	assert.Equal(t, "elsewhere.t", fd.DisplayPath)
}

func TestErrorDirectiveReportsExpandedMessage(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#define WHO world\n#error hello WHO\n",
	})
	_ = allLines(t, p)
	sink := p.cfg.Sink
	require.Len(t, sink.Records(), 1)
	assert.Contains(t, sink.Records()[0].Message, "hello world")
}

func TestPredefinedLineMacroTracksCurrentLine(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "a ;\n__LINE__ ;\n",
	})
	got := allLines(t, p)
	assert.Equal(t, []string{"a ;", "2 ;"}, got)
}

func TestIncludeNotFoundIsFatal(t *testing.T) {
	p := newTestProcessor(t, map[string]string{
		"main.t": "#include \"missing.t\"\n",
	})
	_ = allLines(t, p)
	sink := p.cfg.Sink
	require.NotEmpty(t, sink.Records())
	assert.Equal(t, diag.Fatal, sink.Records()[0].Severity)
}
