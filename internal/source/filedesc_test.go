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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveReturnsSameEntryForSameRawPath(t *testing.T) {
	tab := NewFileDescTable()
	a := tab.Resolve("foo.t", "foo.t", false)
	b := tab.Resolve("foo.t", "foo.t", false)
	assert.Same(t, a, b)
	assert.Equal(t, a.ID, b.OrigOf)
}

func TestResolveAlwaysNewIssuesFreshIDButLinksOrigOf(t *testing.T) {
	tab := NewFileDescTable()
	a := tab.Resolve("foo.t", "foo.t", false)
	b := tab.Resolve("foo.t", "foo.t", true)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.ID, b.OrigOf)

	canon, err := tab.Canonical(b.ID)
	require.NoError(t, err)
	assert.Same(t, a, canon)
}

func TestByIDOutOfRange(t *testing.T) {
	tab := NewFileDescTable()
	_, err := tab.ByID(0)
	assert.Error(t, err)
}

func TestQuotedForms(t *testing.T) {
	tab := NewFileDescTable()
	fd := tab.Resolve(`say "hi"`, `say "hi"`, false)
	assert.Equal(t, `"say \"hi\""`, fd.Quoted(false))
	assert.Equal(t, `'say "hi"'`, fd.Quoted(true))
}

func TestQuotedForFileTestReportModeUsesBasename(t *testing.T) {
	tab := NewFileDescTable()
	fd := tab.Resolve("/a/b/c/game.t", "/a/b/c/game.t", false)
	assert.Equal(t, `"game.t"`, fd.QuotedForFile(true))
	assert.Equal(t, `"/a/b/c/game.t"`, fd.QuotedForFile(false))
}

func TestPositionString(t *testing.T) {
	p := Position{File: 3, Line: 10}
	assert.Equal(t, "file#3:10", p.String())
}
