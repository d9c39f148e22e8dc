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
	"regexp"
	"strconv"
	"strings"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/macro"
	"github.com/tads3toolchain/tppc/internal/ppexpr"
	"github.com/tads3toolchain/tppc/internal/source"
)

var directiveName = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(.*)$`)

// handleDirective dispatches a line whose first non-space character was
// '#' (the '#' itself already stripped from rest). handled is false if
// rest did not look like a directive name at all (so the caller should
// treat the line as ordinary text, matching source files that use '#' in
// other contexts is not a TADS thing, but keeps the dispatcher total).
func (p *Processor) handleDirective(fr *frame, lineNum int, rest string) (out string, handled bool) {
	m := directiveName.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	name, tail := m[1], m[2]

	switch name {
	case "if":
		p.handleIf(fr, lineNum, tail)
		return "", true
	case "ifdef":
		p.handleIfdefndef(fr, lineNum, tail, false)
		return "", true
	case "ifndef":
		p.handleIfdefndef(fr, lineNum, tail, true)
		return "", true
	case "elif":
		p.handleElif(fr, lineNum, tail)
		return "", true
	case "else":
		p.handleElse(fr, lineNum)
		return "", true
	case "endif":
		p.handleEndif(fr, lineNum)
		return "", true
	}

	if p.skipping() {
		return "", true
	}

	switch name {
	case "define":
		p.handleDefine(fr, lineNum, tail)
	case "undef":
		p.handleUndef(fr, lineNum, tail)
	case "include":
		p.handleInclude(fr, lineNum, tail)
	case "line":
		p.handleLine(fr, lineNum, tail)
	case "error":
		return p.handleError(fr, lineNum, tail), true
	case "pragma":
		return p.handlePragma(fr, lineNum, tail), true
	case "charset":
		p.report(fr, lineNum, diag.Error, "TCERR_CHARSET_NOT_FIRST",
			"#charset must be the very first thing in the file")
	default:
		p.report(fr, lineNum, diag.Error, "TCERR_UNKNOWN_DIRECTIVE", "unknown directive #%s", name)
	}
	return "", true
}

// --- #if / #ifdef / #ifndef / #elif / #else / #endif ---

func (p *Processor) pushIf(taken bool, fr *frame, lineNum int) {
	if len(p.ifStack) >= p.cfg.MaxIfDepth {
		p.report(fr, lineNum, diag.Fatal, "TCERR_IF_TOO_DEEP", "#if nesting exceeds %d", p.cfg.MaxIfDepth)
		return
	}
	skipped := p.skipping()
	state := ifNo
	if taken && !skipped {
		state = ifYes
	}
	p.ifStack = append(p.ifStack, ifFrame{state: state, skippedEntirely: skipped, file: fr.desc.DisplayPath, line: lineNum})
}

func (p *Processor) handleIf(fr *frame, lineNum int, rest string) {
	taken := true
	if !p.skipping() {
		taken = p.evalCondition(fr, lineNum, rest)
	}
	p.pushIf(taken, fr, lineNum)
}

func (p *Processor) handleIfdefndef(fr *frame, lineNum int, rest string, negate bool) {
	name := strings.TrimSpace(rest)
	defined := p.cfg.Macros.Defined(name)
	if negate {
		defined = !defined
	}
	p.pushIf(defined, fr, lineNum)
}

func (p *Processor) handleElif(fr *frame, lineNum int, rest string) {
	if len(p.ifStack) <= fr.ifDepthAtEntry {
		p.report(fr, lineNum, diag.Error, "TCERR_ELIF_NO_IF", "#elif without matching #if")
		return
	}
	top := &p.ifStack[len(p.ifStack)-1]
	switch top.state {
	case ifYes:
		top.state = ifDone
	case ifDone:
		// A prior branch already matched; nothing else can become active.
	case ifNo:
		if top.skippedEntirely {
			return
		}
		if p.evalCondition(fr, lineNum, rest) {
			top.state = ifYes
		}
	default:
		p.report(fr, lineNum, diag.Error, "TCERR_ELIF_AFTER_ELSE", "#elif after #else")
	}
}

func (p *Processor) handleElse(fr *frame, lineNum int) {
	if len(p.ifStack) <= fr.ifDepthAtEntry {
		p.report(fr, lineNum, diag.Error, "TCERR_ELSE_NO_IF", "#else without matching #if")
		return
	}
	top := &p.ifStack[len(p.ifStack)-1]
	switch top.state {
	case ifYes, ifDone:
		top.state = elseNo
	case ifNo:
		top.state = elseYes
	default:
		p.report(fr, lineNum, diag.Error, "TCERR_ELSE_AFTER_ELSE", "#else after #else")
	}
}

func (p *Processor) handleEndif(fr *frame, lineNum int) {
	if len(p.ifStack) <= fr.ifDepthAtEntry {
		p.report(fr, lineNum, diag.Error, "TCERR_ENDIF_NO_IF", "#endif without matching #if")
		return
	}
	p.ifStack = p.ifStack[:len(p.ifStack)-1]
}

// definedGuardPrefix protects the operand of defined(X)/defined X from
// macro expansion while the rest of a #if/#elif condition is expanded
// normally, matching ppexpr's expectation (internal/ppexpr's package doc)
// that every non-defined() identifier has already been macro-expanded by
// the time the expression reaches Parse, while defined()'s own operand
// must stay a literal name.
const definedGuardPrefix = "ppdefined"

var definedOperand = regexp.MustCompile(`\bdefined\b\s*(\(?)\s*([A-Za-z_][A-Za-z0-9_]*)\s*(\)?)`)

func protectDefinedOperands(text string) string {
	return definedOperand.ReplaceAllString(text, `defined $1`+definedGuardPrefix+`$2$3`)
}

func unprotectDefinedOperands(text string) string {
	return strings.ReplaceAll(text, definedGuardPrefix, "")
}

func (p *Processor) evalCondition(fr *frame, lineNum int, rest string) bool {
	protected := protectDefinedOperands(rest)
	expanded, err := p.expander.ExpandLine(p.moreLines(), fr.desc.DisplayPath, lineNum, protected)
	if err != nil {
		p.report(fr, lineNum, diag.Error, "TCERR_BAD_PP_EXPR", "macro expansion failed in preprocessor expression: %s", err)
		return true
	}
	expanded = unprotectDefinedOperands(expanded)
	return ppexpr.Evaluate(p.cfg.Macros, p.cfg.Sink, fr.desc.DisplayPath, lineNum, expanded)
}

// --- #define / #undef ---

func (p *Processor) handleDefine(fr *frame, lineNum int, rest string) {
	def, err := macro.ParseDefine(rest)
	if err != nil {
		p.report(fr, lineNum, diag.Error, "TCERR_BAD_DEFINE", "%s", err)
		return
	}
	if p.cfg.Macros.Define(def) {
		p.report(fr, lineNum, diag.Warning, "TCERR_MACRO_REDEF", "macro %q redefined", def.Name)
	}
}

func (p *Processor) handleUndef(fr *frame, lineNum int, rest string) {
	name := strings.TrimSpace(rest)
	p.cfg.Macros.Undef(name)
}

// --- #include ---

func (p *Processor) handleInclude(fr *frame, lineNum int, rest string) {
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 {
		p.report(fr, lineNum, diag.Error, "TCERR_BAD_INCLUDE", "malformed #include directive")
		return
	}

	var raw string
	var system bool
	switch {
	case rest[0] == '"':
		end := strings.IndexByte(rest[1:], '"')
		if end < 0 {
			p.report(fr, lineNum, diag.Error, "TCERR_BAD_INCLUDE", "unterminated #include path")
			return
		}
		raw = rest[1 : 1+end]
	case rest[0] == '<':
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			p.report(fr, lineNum, diag.Error, "TCERR_BAD_INCLUDE", "unterminated #include path")
			return
		}
		raw = rest[1:end]
		system = true
	default:
		p.report(fr, lineNum, diag.Error, "TCERR_BAD_INCLUDE", "#include expects \"file\" or <file>")
		return
	}

	resolved, ok := p.searchInclude(fr, raw, system)
	if !ok {
		p.report(fr, lineNum, diag.Fatal, "TCERR_INCLUDE_NOT_FOUND", "cannot open include file %q", raw)
		return
	}

	if p.onceFiles[resolved] {
		return
	}

	if err := p.pushFile(resolved); err != nil {
		p.report(fr, lineNum, diag.Error, "TCERR_INCLUDE_OPEN_FAILED", "error opening %q: %s", resolved, err)
		return
	}
	if p.allOnce {
		p.onceFiles[resolved] = true
	}
}

// searchInclude implements spec.md §4.3's two search orders: angle
// includes search only the configured include directories; quote
// includes search the including file's own directory first. Candidate
// paths are joined with path.Join (forward-slash, "URL-style" joining),
// a deliberate simplification of the original's additional
// local-filesystem-convention retry, since this module only ever targets
// a Unix-style path namespace.
func (p *Processor) searchInclude(fr *frame, raw string, system bool) (string, bool) {
	var dirs []string
	if !system {
		dirs = append(dirs, fr.dir)
	}
	dirs = append(dirs, p.cfg.IncludeDirs...)

	for _, d := range dirs {
		candidate := joinDir(d, raw)
		if rc, err := p.cfg.Opener.Open(candidate); err == nil {
			rc.Close()
			return candidate, true
		}
	}
	return "", false
}

// --- #line ---

func (p *Processor) handleLine(fr *frame, lineNum int, rest string) {
	fields := splitLineDirective(rest)
	if len(fields) < 1 {
		p.report(fr, lineNum, diag.Error, "TCERR_BAD_LINE", "#line requires a line number")
		return
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		p.report(fr, lineNum, diag.Error, "TCERR_BAD_LINE", "#line expects an integer, got %q", fields[0])
		return
	}

	if len(fields) >= 2 {
		name := strings.Trim(fields[1], `"'`)
		fr.desc = p.cfg.Files.Resolve(name, name, true)
	}
	fr.stm.SetLineNum(n)
}

func splitLineDirective(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	sp := strings.IndexAny(rest, " \t")
	if sp < 0 {
		return []string{rest}
	}
	return []string{rest[:sp], strings.TrimSpace(rest[sp:])}
}

// --- #error ---

func (p *Processor) handleError(fr *frame, lineNum int, rest string) string {
	expanded, err := p.expander.ExpandLine(p.moreLines(), fr.desc.DisplayPath, lineNum, rest)
	if err != nil {
		expanded = rest
	}
	p.report(fr, lineNum, diag.Error, "TCERR_USER_ERROR", "#error: %s", strings.TrimSpace(expanded))
	if p.cfg.PreprocessOnly {
		return "#error " + rest
	}
	return ""
}

// --- #pragma ---

func (p *Processor) handlePragma(fr *frame, lineNum int, rest string) string {
	rest = strings.TrimSpace(rest)
	name, tail := rest, ""
	if sp := strings.IndexAny(rest, " \t("); sp >= 0 {
		name, tail = rest[:sp], strings.TrimSpace(rest[sp:])
	}

	switch name {
	case "once":
		p.onceFiles[fr.desc.RawPath] = true
	case "all_once":
		p.allOnce = !strings.HasPrefix(tail, "-")
		if p.allOnce {
			p.onceFiles[fr.desc.RawPath] = true
		}
	case "message":
		text := stripParens(tail)
		expanded, err := p.expander.ExpandLine(p.moreLines(), fr.desc.DisplayPath, lineNum, text)
		if err != nil {
			expanded = text
		}
		p.cfg.Sink.Reportf(diag.Info, p.pos(fr, lineNum), "TCMSG_PRAGMA", "%s", strings.TrimSpace(expanded))
		if p.cfg.PreprocessOnly {
			return "#pragma message(" + text + ")"
		}
	case "newline_spacing":
		mode := stripParens(tail)
		switch mode {
		case "on", "collapse":
			fr.asmSpacing(sourceSpacingCollapse)
		case "off", "delete":
			fr.asmSpacing(sourceSpacingDelete)
		case "preserve":
			fr.asmSpacing(sourceSpacingPreserve)
		default:
			p.report(fr, lineNum, diag.Error, "TCERR_BAD_PRAGMA", "unrecognized #pragma newline_spacing value %q", mode)
		}
		if p.cfg.PreprocessOnly {
			return "#pragma newline_spacing(" + mode + ")"
		}
	case "sourceTextGroup":
		on := stripParens(tail) == "on"
		if p.cfg.OnSourceTextGroup != nil {
			p.cfg.OnSourceTextGroup(on)
		}
	case "C":
		if p.cfg.OnPragmaC != nil {
			p.cfg.OnPragmaC()
		}
	default:
		p.report(fr, lineNum, diag.Warning, "TCERR_UNKNOWN_PRAGMA", "unrecognized #pragma %q", name)
	}
	return ""
}

func stripParens(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	return strings.TrimSpace(s)
}

// Re-exported spacing constants so dispatch.go does not need to import
// internal/source under a second name purely for three constants.
const (
	sourceSpacingPreserve = source.SpacingPreserve
	sourceSpacingCollapse = source.SpacingCollapse
	sourceSpacingDelete   = source.SpacingDelete
)

func (fr *frame) asmSpacing(mode source.NewlineSpacingMode) {
	fr.asm.Spacing = mode
}
