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

package lineasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/source"
)

func TestContinuationSpliceJoinsLines(t *testing.T) {
	s := source.NewMemoryStream(0, "a = 1 + \\\n2;\n", 1)
	a := New(diag.NewSink())

	logical, lineNum, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a = 1 + 2;", logical)
	assert.Equal(t, 1, lineNum)
}

func TestContinuationWithTrailingWhitespaceWarns(t *testing.T) {
	s := source.NewMemoryStream(0, "a = 1 + \\   \n2;\n", 1)
	sink := diag.NewSink()
	sink.Pedantic = true
	a := New(sink)

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a = 1 + 2;", logical)
	require.Len(t, sink.Records(), 1)
	assert.Equal(t, "TCERR_WS_AFTER_CONT", sink.Records()[0].Code)
}

func TestBlockCommentCollapsesToSingleSpace(t *testing.T) {
	s := source.NewMemoryStream(0, "a /* comment */ = 1;\n", 1)
	a := New(diag.NewSink())

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a  = 1;", logical)
}

func TestBlockCommentSpansPhysicalLines(t *testing.T) {
	s := source.NewMemoryStream(0, "a /* one\ntwo */ b;\n", 1)
	a := New(diag.NewSink())

	// The comment state carries across the line break, but a comment does
	// not splice the two physical lines into one logical line.
	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a  ", logical)

	logical, _, ok, err = a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, " b;", logical)
}

func TestLineCommentErasedToEndOfLine(t *testing.T) {
	s := source.NewMemoryStream(0, "a = 1; // trailing\nb;\n", 1)
	a := New(diag.NewSink())

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a = 1; ", logical)
}

func TestNestedBlockCommentWarns(t *testing.T) {
	s := source.NewMemoryStream(0, "/* outer /* inner */ x;\n", 1)
	sink := diag.NewSink()
	a := New(sink)

	_, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, sink.Records(), 1)
	assert.Equal(t, "TCERR_NESTED_COMMENT", sink.Records()[0].Code)
}

func TestSentinelBytesScrubbedToSpace(t *testing.T) {
	s := source.NewMemoryStream(0, "a"+string([]byte{0x01, 0x05})+"b;\n", 1)
	a := New(diag.NewSink())

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a  b;", logical)
}

func TestStringSplicePreserveMode(t *testing.T) {
	s := source.NewMemoryStream(0, "x = 'one\ntwo';\n", 1)
	a := New(diag.NewSink())
	a.Spacing = source.SpacingPreserve

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `x = 'one\ntwo';`, logical)
}

func TestStringSpliceCollapseMode(t *testing.T) {
	s := source.NewMemoryStream(0, "x = 'one\ntwo';\n", 1)
	a := New(diag.NewSink())
	a.Spacing = source.SpacingCollapse

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x = 'one two';", logical)
}

func TestStringSpliceDeleteModeStripsLeadingWhitespace(t *testing.T) {
	s := source.NewMemoryStream(0, "x = 'one\n   two';\n", 1)
	a := New(diag.NewSink())
	a.Spacing = source.SpacingDelete

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x = 'onetwo';", logical)
}

func TestUnterminatedStringRecoversAtBraceLine(t *testing.T) {
	s := source.NewMemoryStream(0, "x = 'one\n}\n", 1)
	sink := diag.NewSink()
	a := New(sink)

	logical, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x = 'one", logical)
	require.Len(t, sink.Records(), 1)
	assert.Equal(t, "TCERR_UNTERM_STRING", sink.Records()[0].Code)

	logical, _, ok, err = a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "}", logical)
}

func TestEOFInsideStringReportsError(t *testing.T) {
	s := source.NewMemoryStream(0, "x = 'unterminated\n", 1)
	sink := diag.NewSink()
	a := New(sink)

	_, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, sink.Records(), 1)
	assert.Equal(t, "TCERR_EOF_IN_STRING", sink.Records()[0].Code)
}

func TestExhaustedStreamReturnsNotOK(t *testing.T) {
	s := source.NewMemoryStream(0, "", 1)
	a := New(diag.NewSink())

	_, _, ok, err := a.AssembleLine(s, "f.t")
	require.NoError(t, err)
	assert.False(t, ok)
}
