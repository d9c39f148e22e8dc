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

package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineInstallsNewMacro(t *testing.T) {
	table := NewTable()
	def, err := ParseDefine("FOO 1")
	require.NoError(t, err)
	warn := table.Define(def)
	assert.False(t, warn)
	assert.True(t, table.Defined("FOO"))
}

func TestIdenticalRedefinitionIsNotAWarning(t *testing.T) {
	table := NewTable()
	d1, _ := ParseDefine("FOO 1 + 2")
	d2, _ := ParseDefine("FOO 1  +  2")
	table.Define(d1)
	assert.False(t, table.Define(d2))
}

func TestDifferingRedefinitionWarns(t *testing.T) {
	table := NewTable()
	d1, _ := ParseDefine("FOO 1")
	d2, _ := ParseDefine("FOO 2")
	table.Define(d1)
	assert.True(t, table.Define(d2))
	assert.True(t, table.WasEverUndefined("FOO"))
}

func TestUndefMovesIntoHistory(t *testing.T) {
	table := NewTable()
	def, _ := ParseDefine("FOO 1")
	table.Define(def)
	table.Undef("FOO")
	assert.False(t, table.Defined("FOO"))
	assert.True(t, table.WasEverUndefined("FOO"))
}

func TestLookupMissing(t *testing.T) {
	table := NewTable()
	_, ok := table.Lookup("NOPE")
	assert.False(t, ok)
}
