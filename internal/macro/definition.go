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

// Package macro implements the macro table and expander (spec.md §3, §4.4):
// object-like and function-like #define, stringize/paste, the foreach/
// argcount/ifempty pseudo-macro constructs, and rescan with self-reference
// suppression. Grounded on the teacher's language/internal/cc/macros.go
// (Macros/ParseMacro, kept and adapted as ParseDefinitions below) and on
// tctok.h's sentinel-byte vocabulary for FORMAL_FLAG/FOREACH_FLAG/etc,
// which this package represents as a small typed AST (part) rather than a
// raw byte stream; internal/artifact encodes that AST back into the
// sentinel-byte wire format tctok.h describes when persisting a debug
// macro table.
package macro

import (
	"sort"
	"strings"
)

// part is one element of a macro body, after #define parsing.
type part interface{ isPart() }

type litPart struct{ text string }

func (litPart) isPart() {}

// formalPart references one of the macro's formal parameters.
type formalPart struct {
	index      int
	stringize  bool // preceded by # (double-quote form)
	altQuote   bool // preceded by #@ (single-quote stringize form)
	pasteLeft  bool // ## appears before this occurrence in the body
	pasteRight bool // ## appears after this occurrence in the body
}

func (formalPart) isPart() {}

// foreachPart expands body once per extra (variadic) actual, joining
// successive iterations with between.
type foreachPart struct {
	body    []part
	between []part
}

func (foreachPart) isPart() {}

// argcountPart substitutes the count of extra (variadic) actuals.
type argcountPart struct{}

func (argcountPart) isPart() {}

// ifEmptyPart substitutes body only if the variadic actual list is empty
// (negate == false) or non-empty (negate == true, i.e. #ifnempty).
type ifEmptyPart struct {
	negate bool
	body   []part
}

func (ifEmptyPart) isPart() {}

// Definition is one #define'd macro.
type Definition struct {
	Name         string
	FunctionLike bool
	Formals      []string // formal parameter names, in order
	Variadic     bool     // last formal captures any extra actuals
	// AnonymousVariadic marks a variadic formal declared as a bare "..."
	// with no preceding name, internally bound to "args" (tctok.h has no
	// such internal name since it never materializes a formal-name string
	// for this case, but this Go port's formalIndex needs one to look up
	// by). Per C99, such a formal is also referenceable in the body as
	// __VA_ARGS__; a named variadic formal ("args..." etc) is not.
	AnonymousVariadic bool
	Body              []part

	// OriginalText is the un-parsed replacement text as written, used for
	// the "identical redefinition is not an error" comparison
	// (internal/artifact's debug records use EncodeExpansion instead).
	OriginalText string

	// Pseudo marks a built-in macro such as __LINE__ whose value is
	// computed at expansion time rather than substituted from Body.
	Pseudo bool
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sameAs reports whether other is an identical redefinition of d (same
// formals, same variadic flag, whitespace-equivalent body), per the C
// rule that re-#defining a macro identically is not an error.
func (d *Definition) sameAs(other *Definition) bool {
	if d.FunctionLike != other.FunctionLike || d.Variadic != other.Variadic || d.AnonymousVariadic != other.AnonymousVariadic {
		return false
	}
	if len(d.Formals) != len(other.Formals) {
		return false
	}
	for i := range d.Formals {
		if d.Formals[i] != other.Formals[i] {
			return false
		}
	}
	return normalizeWhitespace(d.OriginalText) == normalizeWhitespace(other.OriginalText)
}

// variadicIndex returns the index of the variadic formal, or -1.
func (d *Definition) variadicIndex() int {
	if !d.Variadic || len(d.Formals) == 0 {
		return -1
	}
	return len(d.Formals) - 1
}

// Table is the live macro table: current definitions plus a history of
// names that have ever been #undef'd or redefined (spec.md §3's
// "ever-undefined" tracking, consulted by internal/artifact when building
// the debug macro table).
type Table struct {
	defs      map[string]*Definition
	undefined map[string]*Definition
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{defs: map[string]*Definition{}, undefined: map[string]*Definition{}}
}

// Defined implements ppexpr.Environment.
func (t *Table) Defined(name string) bool {
	_, ok := t.defs[name]
	return ok
}

// Lookup returns the current definition for name, if any.
func (t *Table) Lookup(name string) (*Definition, bool) {
	d, ok := t.defs[name]
	return d, ok
}

// WasEverUndefined reports whether name was previously defined and later
// #undef'd or replaced by an incompatible redefinition.
func (t *Table) WasEverUndefined(name string) bool {
	_, ok := t.undefined[name]
	return ok
}

// Define installs def, replacing any prior definition of the same name.
// It returns true if this is a redefinition that differs from the prior
// one (the caller should report a "macro redefined" warning); identical
// redefinitions are silently accepted, matching C's rule.
func (t *Table) Define(def *Definition) bool {
	prev, had := t.defs[def.Name]
	t.defs[def.Name] = def
	if !had {
		return false
	}
	if prev.sameAs(def) {
		return false
	}
	t.undefined[def.Name] = prev
	return true
}

// Entries returns every currently-defined macro, sorted by name for
// deterministic output (used by internal/artifact's debug macro table).
func (t *Table) Entries() []*Definition {
	out := make([]*Definition, 0, len(t.defs))
	for _, d := range t.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Undef removes name's definition, if any.
func (t *Table) Undef(name string) {
	if prev, ok := t.defs[name]; ok {
		t.undefined[name] = prev
		delete(t.defs, name)
	}
}
