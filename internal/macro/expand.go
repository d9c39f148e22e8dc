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
	"strconv"
	"strings"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/lexer"
	"github.com/tads3toolchain/tppc/internal/source"
)

// MaxMacroArgs is tctok.h's TOK_MAX_MACRO_ARGS.
const MaxMacroArgs = 128

// MaxForeachDepth is the nested-#foreach depth limit (spec.md §4.4: "at
// least 10").
const MaxForeachDepth = 10

// MoreLines lets the Expander pull additional logical lines when a
// function-like macro invocation's actual arguments are not closed by the
// end of the current line (spec.md §4.4's splice-on-incomplete-actuals
// rule). The Expander never calls Unsplice: text that follows the closing
// ')' on a pulled line is expanded as part of the current logical line.
type MoreLines interface {
	NextLine() (text string, lineNum int, ok bool)
	Unsplice(text string, lineNum int)
}

// Pseudo is called to compute the expansion of a Pseudo Definition
// (__LINE__, __FILE__, __DATE__, __TIME__, ...). file/line identify the
// macro-invocation site.
type PseudoFunc func(name, file string, line int) string

// Expander expands macro invocations found in a logical line's tokens.
type Expander struct {
	Table  *Table
	Sink   *diag.Sink
	Pseudo PseudoFunc

	active       []string // self-reference suppression stack, scoped per top-level call
	foreachDepth int      // current #foreach nesting depth
}

// NewExpander returns an Expander bound to table.
func NewExpander(table *Table, sink *diag.Sink) *Expander {
	return &Expander{Table: table, Sink: sink}
}

func (e *Expander) isActive(name string) bool {
	for _, n := range e.active {
		if n == name {
			return true
		}
	}
	return false
}

// ExpandLine macro-expands line (already assembled by internal/lineasm),
// pulling additional lines from more if a function-like invocation's
// actual-argument list is not closed before end of line. It returns the
// fully macro-expanded text, ready for internal/lexer's Tokenizer pass.
func (e *Expander) ExpandLine(more MoreLines, file string, lineNum int, line string) (string, error) {
	return e.expandText(more, file, lineNum, line)
}

func (e *Expander) expandText(more MoreLines, file string, lineNum int, text string) (string, error) {
	toks, err := e.tokenize(file, lineNum, text)
	if err != nil {
		return "", err
	}
	cur := &cursor{toks: toks, more: more, file: file, lineNum: lineNum, exp: e}

	var out []string
	for {
		tok := cur.cur()
		if tok.Kind == lexer.EndPPLine {
			break
		}
		if tok.Kind == lexer.Ident {
			if def, ok := e.Table.Lookup(tok.Text); ok && !e.isActive(tok.Text) {
				expanded, ok, err := e.expandInvocation(cur, def, file, lineNum)
				if err != nil {
					return "", err
				}
				if ok {
					out = append(out, expanded)
					continue
				}
				// Function-like macro with no following '(': expandInvocation
				// already left cur positioned just past the name; passthrough the
				// name itself without an extra advance.
				out = append(out, tok.Text)
				continue
			}
			out = append(out, tok.Text)
			cur.advance()
			continue
		}
		out = append(out, reconstructToken(tok))
		cur.advance()
	}
	return strings.Join(out, " "), nil
}

func (e *Expander) tokenize(file string, lineNum int, text string) ([]lexer.Token, error) {
	lx := lexer.New(e.Sink, file, source.Position{Line: lineNum}, text)
	var toks []lexer.Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == lexer.EndPPLine {
			break
		}
	}
	return toks, nil
}

// cursor walks a mutable token slice, pulling more lines on demand.
type cursor struct {
	toks    []lexer.Token
	pos     int
	more    MoreLines
	file    string
	lineNum int
	exp     *Expander
}

func (c *cursor) cur() lexer.Token { return c.toks[c.pos] }

func (c *cursor) advance() { c.pos++ }

// extend appends another logical line's tokens when the cursor has run
// out of input mid-invocation. Returns false if no more input is
// available.
func (c *cursor) extend() bool {
	if c.more == nil {
		return false
	}
	text, lineNum, ok := c.more.NextLine()
	if !ok {
		return false
	}
	more, err := c.exp.tokenize(c.file, lineNum, text)
	if err != nil {
		return false
	}
	// Drop our own trailing EndPPLine so the joined stream reads through.
	c.toks = append(c.toks[:len(c.toks)-1], more...)
	return true
}

// expandInvocation expands a macro reference starting at cur's current
// Ident token (already identified as def.Name). Returns ok=false (cursor
// left just past the name) if def is function-like but not followed by '(', in
// which case the caller should passthrough the identifier unexpanded.
func (e *Expander) expandInvocation(cur *cursor, def *Definition, file string, lineNum int) (string, bool, error) {
	if def.Pseudo {
		cur.advance()
		if e.Pseudo != nil {
			return e.Pseudo(def.Name, file, lineNum), true, nil
		}
		return "", true, nil
	}

	startPos := cur.pos
	cur.advance() // consume the macro name

	var args []string
	var extra []string
	if def.FunctionLike {
		for cur.pos >= len(cur.toks) || cur.cur().Kind == lexer.EndPPLine {
			if !cur.extend() {
				break
			}
		}
		if cur.pos >= len(cur.toks) || cur.cur().Kind != lexer.LParen {
			cur.pos = startPos + 1
			return "", false, nil
		}
		var err error
		args, extra, err = e.scanActuals(cur, def)
		if err != nil {
			return "", false, err
		}
	}

	e.active = append(e.active, def.Name)
	result, err := e.substitute(def, args, extra, file, lineNum)
	if err != nil {
		e.active = e.active[:len(e.active)-1]
		return "", false, err
	}
	// Rescan: the substituted text may itself contain macro invocations
	// (but not a fresh invocation of def.Name, per e.active above).
	rescanned, err := e.expandText(cur.more, file, lineNum, result)
	e.active = e.active[:len(e.active)-1]
	if err != nil {
		return "", false, err
	}
	return rescanned, true, nil
}

// scanActuals consumes a '(' ... ')' actual-argument list from cur
// (already positioned at the '('), splitting top-level commas. The
// trailing extra actuals (beyond def's named, non-variadic formals) are
// returned separately for #foreach/#argcount/#ifempty use; args[i] for
// the variadic formal's own slot is the comma-joined text of all of them,
// matching plain substitution semantics (like C99's __VA_ARGS__).
func (e *Expander) scanActuals(cur *cursor, def *Definition) (args []string, extra []string, err error) {
	cur.advance() // consume '('
	depth := 1
	var rawArgs []string
	var buf []string
	flush := func() { rawArgs = append(rawArgs, strings.TrimSpace(strings.Join(buf, " "))); buf = nil }

	for {
		for cur.pos >= len(cur.toks) {
			if !cur.extend() {
				return nil, nil, fmt.Errorf("macro: unterminated invocation of %q, expected ')'", def.Name)
			}
		}
		t := cur.cur()
		if t.Kind == lexer.EndPPLine {
			if !cur.extend() {
				return nil, nil, fmt.Errorf("macro: unterminated invocation of %q, expected ')'", def.Name)
			}
			continue
		}
		switch t.Kind {
		case lexer.LParen, lexer.LBrace, lexer.LBracket:
			depth++
		case lexer.RParen, lexer.RBrace, lexer.RBracket:
			depth--
			if depth == 0 && t.Kind == lexer.RParen {
				flush()
				cur.advance()
				goto done
			}
		case lexer.Comma:
			if depth == 1 {
				flush()
				cur.advance()
				continue
			}
		}
		if t.Kind == lexer.Ident {
			buf = append(buf, t.Text)
		} else {
			buf = append(buf, reconstructToken(t))
		}
		cur.advance()
	}
done:
	named := len(def.Formals)
	if def.Variadic {
		named--
	}
	if len(rawArgs) == 1 && rawArgs[0] == "" && named == 0 {
		// An empty actual-argument list, e.g. "F()" for a macro with no
		// non-variadic formals, carries zero actuals rather than one
		// empty one.
		rawArgs = nil
	}
	if len(rawArgs) > MaxMacroArgs {
		return nil, nil, fmt.Errorf("macro: too many actual arguments to %q (max %d)", def.Name, MaxMacroArgs)
	}
	if len(rawArgs) < named {
		return nil, nil, fmt.Errorf("macro: too few actual arguments to %q", def.Name)
	}

	args = make([]string, len(def.Formals))
	copy(args, rawArgs[:min(named, len(rawArgs))])
	if def.Variadic {
		extra = append([]string{}, rawArgs[named:]...)
		args[named] = strings.Join(extra, ", ")
	} else if len(rawArgs) > named {
		return nil, nil, fmt.Errorf("macro: too many actual arguments to %q", def.Name)
	}
	return args, extra, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// substitute builds the replacement text for one invocation of def given
// its actual arguments.
func (e *Expander) substitute(def *Definition, args, extra []string, file string, lineNum int) (string, error) {
	var out strings.Builder
	if err := e.substituteParts(def.Body, args, extra, file, lineNum, &out); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (e *Expander) substituteParts(parts []part, args, extra []string, file string, lineNum int, out *strings.Builder) error {
	for _, p := range parts {
		switch v := p.(type) {
		case litPart:
			out.WriteString(v.text)

		case formalPart:
			actual := ""
			if v.index < len(args) {
				actual = args[v.index]
			}
			switch {
			case v.stringize:
				out.WriteString(stringizeText(actual, v.altQuote))
			case v.pasteLeft || v.pasteRight:
				if actual == "" && v.pasteLeft {
					trimTrailingComma(out)
				}
				out.WriteString(actual)
			default:
				// Argument pre-expansion is its own expansion context: an
				// occurrence of the macro currently being substituted,
				// buried inside one of its own actuals (e.g. INC(INC(1))),
				// is not subject to that invocation's self-reference
				// suppression, so the active stack is not inherited here.
				saved := e.active
				e.active = nil
				expanded, err := e.expandText(nil, file, lineNum, actual)
				e.active = saved
				if err != nil {
					return err
				}
				out.WriteString(expanded)
			}

		case argcountPart:
			out.WriteString(strconv.Itoa(len(extra)))

		case ifEmptyPart:
			empty := len(extra) == 0
			if empty != v.negate {
				if err := e.substituteParts(v.body, args, extra, file, lineNum, out); err != nil {
					return err
				}
			}

		case foreachPart:
			if e.foreachDepth >= MaxForeachDepth {
				e.Sink.Reportf(diag.Error, diag.Position{File: file, Line: lineNum}, "TCERR_FOREACH_TOO_DEEP",
					"#foreach nesting exceeds the maximum of %d", MaxForeachDepth)
				continue
			}
			e.foreachDepth++
			for i, a := range extra {
				if i > 0 {
					if err := e.substituteParts(v.between, args, extra, file, lineNum, out); err != nil {
						e.foreachDepth--
						return err
					}
				}
				iterArgs := append([]string{}, args...)
				if vi := len(iterArgs) - 1; vi >= 0 {
					iterArgs[vi] = a
				}
				if err := e.substituteParts(v.body, iterArgs, []string{a}, file, lineNum, out); err != nil {
					e.foreachDepth--
					return err
				}
			}
			e.foreachDepth--
		}
	}
	return nil
}

func trimTrailingComma(out *strings.Builder) {
	s := out.String()
	s = strings.TrimRight(s, " \t")
	s = strings.TrimSuffix(s, ",")
	out.Reset()
	out.WriteString(s)
}

// stringizeText implements the "#" (or "#@") stringize operator: surround
// with a quote character, escape embedded occurrences of that same quote
// character, and collapse internal whitespace runs to a single space
// (tctok.h's append_qu algorithm, which scans for and escapes only the
// enclosing quote character — it does not touch backslashes).
func stringizeText(actual string, altQuote bool) string {
	quote := byte('"')
	if altQuote {
		quote = '\''
	}
	collapsed := strings.Join(strings.Fields(actual), " ")
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(collapsed); i++ {
		c := collapsed[i]
		if c == quote {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(quote)
	return b.String()
}

// reconstructToken renders a non-macro token back into source text so it
// can be rejoined into the expanded line. Adjacent tokens are always
// joined by a single space by the caller, which is lossy with respect to
// original spacing but safe: no two reconstructed tokens can merge into a
// different token across an inserted space.
func reconstructToken(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.Ident, lexer.Int, lexer.Float, lexer.BigInt:
		return tok.Text
	case lexer.SStr:
		return "'" + tok.Text + "'"
	case lexer.DStr:
		return `"` + tok.Text + `"`
	case lexer.SStrStart:
		return "'" + tok.Text + "<<"
	case lexer.SStrMid:
		return ">>" + tok.Text + "<<"
	case lexer.SStrEnd:
		return ">>" + tok.Text + "'"
	case lexer.DStrStart:
		return `"` + tok.Text + "<<"
	case lexer.DStrMid:
		return ">>" + tok.Text + "<<"
	case lexer.DStrEnd:
		return ">>" + tok.Text + `"`
	case lexer.Regex:
		return "R'" + tok.Text + "'"
	case lexer.FmtSpec:
		return tok.Text
	default:
		return tok.Kind.String()
	}
}
