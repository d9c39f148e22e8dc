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
	"fmt"
	"strings"
)

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// ParseDefine parses the text following "#define" (e.g. "NAME(a, b) a+b"
// or "NAME value") into a Definition. Grounded on the formal-parameter
// and replacement-text split the teacher's ParseMacro performs for -D
// flags, generalized here to function-like macros and the full body
// substitution grammar tctok.h's sentinel vocabulary describes.
func ParseDefine(text string) (*Definition, error) {
	s := strings.TrimLeft(text, " \t")
	if s == "" || !isIdentStart(s[0]) {
		return nil, fmt.Errorf("macro: #define requires a macro name")
	}
	i := 0
	for i < len(s) && isIdentCont(s[i]) {
		i++
	}
	name := s[:i]
	rest := s[i:]

	def := &Definition{Name: name}

	if strings.HasPrefix(rest, "(") {
		def.FunctionLike = true
		close := strings.IndexByte(rest, ')')
		if close < 0 {
			return nil, fmt.Errorf("macro: unterminated formal parameter list for %q", name)
		}
		formalsText := rest[1:close]
		rest = rest[close+1:]
		for _, f := range splitTopLevel(formalsText, ',') {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if strings.HasSuffix(f, "...") {
				def.Variadic = true
				f = strings.TrimSuffix(f, "...")
				f = strings.TrimSpace(f)
				if f == "" {
					f = "args"
					def.AnonymousVariadic = true
				}
			}
			def.Formals = append(def.Formals, f)
		}
	}

	// A single leading space separates the name/formal-list from the
	// replacement text and is not itself part of it.
	rest = strings.TrimPrefix(rest, " ")
	def.OriginalText = rest

	body, err := parseBodyParts(rest, def)
	if err != nil {
		return nil, err
	}
	def.Body = body
	return def, nil
}

// formalIndex resolves a body identifier to a formal's index. An anonymous
// variadic formal ("..." with no preceding name, bound internally to
// "args") is additionally reachable as __VA_ARGS__, per C99; a named
// variadic formal is reachable only by its own name.
func (d *Definition) formalIndex(name string) (int, bool) {
	for i, f := range d.Formals {
		if f == name {
			return i, true
		}
	}
	if name == "__VA_ARGS__" && d.AnonymousVariadic {
		return d.variadicIndex(), true
	}
	return 0, false
}

// parseBodyParts compiles text (a macro replacement-text fragment) into a
// part sequence, resolving formal references, #/## stringize-and-paste
// adjacency, and the #foreach/#argcount/#ifempty/#ifnempty pseudo-macro
// forms.
func parseBodyParts(text string, def *Definition) ([]part, error) {
	var parts []part
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, litPart{lit.String()})
			lit.Reset()
		}
	}
	markPasteRight := func() {
		if n := len(parts); n > 0 {
			if fp, ok := parts[n-1].(formalPart); ok {
				fp.pasteRight = true
				parts[n-1] = fp
			}
		}
	}

	i := 0
	for i < len(text) {
		c := text[i]

		switch {
		case c == '#' && i+1 < len(text) && text[i+1] == '#':
			// "##" swallows whitespace on both sides of it, so it can
			// paste directly onto the preceding/following formal.
			trimmed := strings.TrimRight(lit.String(), " \t")
			lit.Reset()
			lit.WriteString(trimmed)
			flush()
			markPasteRight()
			i += 2
			// Skip whitespace the paste operator swallows, and flag the
			// next formal occurrence (if any) as paste-left.
			for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
				i++
			}
			if j := i; j < len(text) && isIdentStart(text[j]) {
				k := j
				for k < len(text) && isIdentCont(text[k]) {
					k++
				}
				if idx, ok := def.formalIndex(text[j:k]); ok {
					parts = append(parts, formalPart{index: idx, pasteLeft: true})
					i = k
					continue
				}
			}
			continue

		case c == '#' && i+1 < len(text) && text[i+1] == '@':
			j := i + 2
			for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
				j++
			}
			if k := j; k < len(text) && isIdentStart(text[k]) {
				e := k
				for e < len(text) && isIdentCont(text[e]) {
					e++
				}
				if idx, ok := def.formalIndex(text[k:e]); ok {
					flush()
					parts = append(parts, formalPart{index: idx, stringize: true, altQuote: true})
					i = e
					continue
				}
			}
			lit.WriteByte(c)
			i++

		case c == '#' && def.FunctionLike:
			if word, next, ok := peekWord(text, i+1); ok {
				switch word {
				case "argcount":
					flush()
					parts = append(parts, argcountPart{})
					i = next
					continue
				case "ifempty", "ifnempty":
					inner, next2, err := parseBalanced(text, next)
					if err != nil {
						return nil, err
					}
					body, err := parseBodyParts(inner, def)
					if err != nil {
						return nil, err
					}
					flush()
					parts = append(parts, ifEmptyPart{negate: word == "ifnempty", body: body})
					i = next2
					continue
				case "foreach":
					inner, next2, err := parseBalanced(text, next)
					if err != nil {
						return nil, err
					}
					segs := splitTopLevel(inner, ';')
					if len(segs) == 0 || len(segs) > 2 {
						return nil, fmt.Errorf("macro: #foreach(body; between) expects 1 or 2 sections")
					}
					body, err := parseBodyParts(segs[0], def)
					if err != nil {
						return nil, err
					}
					var between []part
					if len(segs) == 2 {
						between, err = parseBodyParts(segs[1], def)
						if err != nil {
							return nil, err
						}
					}
					flush()
					parts = append(parts, foreachPart{body: body, between: between})
					i = next2
					continue
				default:
					if idx, ok := def.formalIndex(word); ok {
						flush()
						parts = append(parts, formalPart{index: idx, stringize: true})
						i = next
						continue
					}
				}
			}
			lit.WriteByte(c)
			i++

		case isIdentStart(c):
			j := i
			for j < len(text) && isIdentCont(text[j]) {
				j++
			}
			word := text[i:j]
			if idx, ok := def.formalIndex(word); ok {
				flush()
				parts = append(parts, formalPart{index: idx})
			} else {
				lit.WriteString(word)
			}
			i = j

		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return parts, nil
}

// peekWord skips leading whitespace from text[i:] and, if what follows is
// an identifier, returns it along with the index just past it.
func peekWord(text string, i int) (word string, next int, ok bool) {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || !isIdentStart(text[i]) {
		return "", 0, false
	}
	j := i
	for j < len(text) && isIdentCont(text[j]) {
		j++
	}
	return text[i:j], j, true
}

// parseBalanced requires text[i] == '(' (after optional whitespace) and
// returns the balanced-paren interior plus the index just past the
// matching ')'.
func parseBalanced(text string, i int) (inner string, next int, err error) {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || text[i] != '(' {
		return "", 0, fmt.Errorf("macro: expected '(' at %q", text[i:])
	}
	depth := 0
	start := i + 1
	for j := i; j < len(text); j++ {
		switch text[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return text[start:j], j + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("macro: unterminated parenthesized form")
}

// splitTopLevel splits s on sep at paren/brace/bracket nesting depth 0.
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// ParseDefinitions converts a slice of -D style macro definitions (gcc/
// clang convention: "NAME", "NAME=value", "-DNAME=value") into Definitions
// installed in table. Grounded directly on the teacher's
// language/internal/cc/macros.go ParseMacro/ParseMacros, adapted from
// Macros (a bare name->int map, since gazelle_cc's C preprocessor model
// has no function-like macros) to installing full Definitions here.
func ParseDefinitions(table *Table, definitions []string) error {
	var errs []string
	for _, d := range definitions {
		d = strings.TrimPrefix(d, "-D")
		name, value := d, ""
		if eq := strings.IndexByte(d, '='); eq >= 0 {
			name, value = d[:eq], d[eq+1:]
		}
		if name == "" || !isIdentStart(name[0]) {
			errs = append(errs, fmt.Sprintf("invalid macro name %q", name))
			continue
		}
		for i := 1; i < len(name); i++ {
			if !isIdentCont(name[i]) {
				errs = append(errs, fmt.Sprintf("invalid macro name %q", name))
				continue
			}
		}
		if value == "" {
			value = "1"
		}
		def, err := ParseDefine(name + " " + value)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		table.Define(def)
	}
	if len(errs) > 0 {
		return fmt.Errorf("macro: %s", strings.Join(errs, "; "))
	}
	return nil
}
