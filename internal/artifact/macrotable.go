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

// Package artifact implements the two persisted outputs spec.md §6 names:
// the debug macro table (a binary dump of every surviving #define, for
// downstream tools like DynamicFunc compilation) and the string-capture
// file (every tokenized string body, re-encoded to the source charset).
// Neither has a teacher analogue; both are built directly from spec.md's
// own byte-layout description, using internal/macro.Definition.EncodeExpansion
// for the "parsed expansion" bytes and internal/charset for re-encoding.
package artifact

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/tads3toolchain/tppc/internal/macro"
)

// macroRecord tracks one macro name's definition across compilation units
// as they're added, plus whether every unit that defined it agreed.
type macroRecord struct {
	def        *macro.Definition
	consistent bool
}

// MacroTable accumulates macro definitions across one or more compilation
// units and writes spec.md §6's debug macro table format: macros with
// identical definitions everywhere collapse to one entry; any
// inconsistency drops the symbol entirely, except pseudo macros, which
// are never dropped.
type MacroTable struct {
	recs map[string]*macroRecord
}

// NewMacroTable returns an empty builder.
func NewMacroTable() *MacroTable {
	return &MacroTable{recs: map[string]*macroRecord{}}
}

// AddUnit merges one compilation unit's macro table into the builder.
// Names in table's ever-undefined set are excluded from this unit's
// contribution entirely, per spec.md §6 ("for each macro whose name is
// not in the ever-undefined set").
func (b *MacroTable) AddUnit(table *macro.Table) {
	for _, def := range table.Entries() {
		if table.WasEverUndefined(def.Name) {
			continue
		}
		b.add(def)
	}
}

func (b *MacroTable) add(def *macro.Definition) {
	rec, ok := b.recs[def.Name]
	if !ok {
		b.recs[def.Name] = &macroRecord{def: def, consistent: true}
		return
	}
	if def.Pseudo {
		return
	}
	if !rec.consistent {
		return
	}
	if !sameDefinition(rec.def, def) {
		rec.consistent = false
	}
}

func sameDefinition(a, b *macro.Definition) bool {
	if a.FunctionLike != b.FunctionLike || a.Variadic != b.Variadic {
		return false
	}
	if len(a.Formals) != len(b.Formals) {
		return false
	}
	for i := range a.Formals {
		if a.Formals[i] != b.Formals[i] {
			return false
		}
	}
	return string(a.EncodeExpansion()) == string(b.EncodeExpansion())
}

// Write emits the debug macro table: a 4-byte little-endian entry count,
// followed by, for each surviving macro in name order: a length-prefixed
// name, a flag byte (bit0 has_args, bit1 has_varargs), an argument count,
// each formal's length-prefixed name, and a length-prefixed expansion
// (internal/macro.Definition.EncodeExpansion's sentinel-byte form, the
// "parsed" expansion, not the original #define text). Name and formal
// lengths are 16-bit; the expansion length is 32-bit, since expansions
// (unlike identifiers) can be arbitrarily large — spec.md doesn't pin
// these widths, so this is a documented choice, not a transcription.
func (b *MacroTable) Write(w io.Writer) error {
	var names []string
	for name, rec := range b.recs {
		if rec.consistent || rec.def.Pseudo {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	if err := binary.Write(w, binary.LittleEndian, uint32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeMacroRecord(w, b.recs[name].def); err != nil {
			return err
		}
	}
	return nil
}

func writeMacroRecord(w io.Writer, def *macro.Definition) error {
	if err := writeString16(w, def.Name); err != nil {
		return err
	}

	var flags byte
	if def.FunctionLike {
		flags |= 1 << 0
	}
	if def.Variadic {
		flags |= 1 << 1
	}
	if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint8(len(def.Formals))); err != nil {
		return err
	}
	for _, formal := range def.Formals {
		if err := writeString16(w, formal); err != nil {
			return err
		}
	}

	expansion := def.EncodeExpansion()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(expansion))); err != nil {
		return err
	}
	_, err := w.Write(expansion)
	return err
}

func writeString16(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}
