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

package artifact

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tads3toolchain/tppc/internal/macro"
)

func tableWith(t *testing.T, defines ...string) *macro.Table {
	t.Helper()
	table := macro.NewTable()
	require.NoError(t, macro.ParseDefinitions(table, defines))
	return table
}

func TestMacroTableIncludesMacrosDefinedInASingleUnit(t *testing.T) {
	table := tableWith(t, "FOO 1", "BAR(x) x+1")

	b := NewMacroTable()
	b.AddUnit(table)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))
	assert4ByteCount(t, buf.Bytes(), 2)
}

func TestMacroTableExcludesEverUndefinedNames(t *testing.T) {
	table := macro.NewTable()
	require.NoError(t, macro.ParseDefinitions(table, []string{"FOO 1"}))
	table.Undef("FOO")

	b := NewMacroTable()
	b.AddUnit(table)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))
	assert4ByteCount(t, buf.Bytes(), 0)
}

func TestMacroTableCollapsesIdenticalDefinitionsAcrossUnits(t *testing.T) {
	unit1 := tableWith(t, "FOO 1")
	unit2 := tableWith(t, "FOO 1")

	b := NewMacroTable()
	b.AddUnit(unit1)
	b.AddUnit(unit2)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))
	assert4ByteCount(t, buf.Bytes(), 1)
}

func TestMacroTableDropsInconsistentDefinitionsAcrossUnits(t *testing.T) {
	unit1 := tableWith(t, "FOO 1")
	unit2 := tableWith(t, "FOO 2")

	b := NewMacroTable()
	b.AddUnit(unit1)
	b.AddUnit(unit2)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))
	assert4ByteCount(t, buf.Bytes(), 0)
}

func TestMacroTableNeverDropsPseudoMacrosEvenIfTheyDiffer(t *testing.T) {
	unit1 := macro.NewTable()
	unit1.Define(&macro.Definition{Name: "__LINE__", Pseudo: true})
	unit2 := macro.NewTable()
	unit2.Define(&macro.Definition{Name: "__LINE__", Pseudo: true})

	b := NewMacroTable()
	b.AddUnit(unit1)
	b.AddUnit(unit2)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))
	assert4ByteCount(t, buf.Bytes(), 1)
}

func TestMacroTableRecordLayoutRoundTripsNameFlagsAndFormals(t *testing.T) {
	table := tableWith(t, "ADD(x, y) x+y")

	b := NewMacroTable()
	b.AddUnit(table)

	var buf bytes.Buffer
	require.NoError(t, b.Write(&buf))
	out := buf.Bytes()

	// Skip the 4-byte count; decode the single record by hand.
	i := 4
	nameLen := int(out[i]) | int(out[i+1])<<8
	i += 2
	name := string(out[i : i+nameLen])
	i += nameLen
	require.Equal(t, "ADD", name)

	flags := out[i]
	i++
	require.Equal(t, byte(1), flags&1) // FunctionLike
	require.Equal(t, byte(0), flags&2) // not Variadic

	argc := int(out[i])
	i++
	require.Equal(t, 2, argc)

	for _, want := range []string{"x", "y"} {
		fLen := int(out[i]) | int(out[i+1])<<8
		i += 2
		require.Equal(t, want, string(out[i:i+fLen]))
		i += fLen
	}

	expLen := int(out[i]) | int(out[i+1])<<8 | int(out[i+2])<<16 | int(out[i+3])<<24
	i += 4
	require.Equal(t, len(out)-i, expLen)
}

func assert4ByteCount(t *testing.T, out []byte, want uint32) {
	t.Helper()
	require.GreaterOrEqual(t, len(out), 4)
	got := uint32(out[0]) | uint32(out[1])<<8 | uint32(out[2])<<16 | uint32(out[3])<<24
	require.Equal(t, want, got)
}
