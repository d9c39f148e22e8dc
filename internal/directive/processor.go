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

// Package directive implements the DirectiveProcessor (spec.md §4.3): it
// sits between internal/lineasm and internal/lexer, dispatching
// #-directives, owning the #if stack, and driving the include-file stack.
// Grounded on the teacher's language/internal/cc/parser/directive.go
// (Directive/IfBlock/ConditionalBranch/BranchKind), generalized from an
// AST extracted for dependency analysis into a processor that actually
// drives conditional compilation and file inclusion.
package directive

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/lineasm"
	"github.com/tads3toolchain/tppc/internal/macro"
	"github.com/tads3toolchain/tppc/internal/ppexpr"
	"github.com/tads3toolchain/tppc/internal/source"
)

// FileOpener resolves and opens an #include target. It is a collaborator
// so the processor can be tested without real filesystem access, matching
// spec.md §1's treatment of file I/O transport as outside this module's
// core concern.
type FileOpener interface {
	// Open returns a reader for candidatePath if it exists, or an error
	// (commonly one satisfying os.IsNotExist) otherwise.
	Open(candidatePath string) (io.ReadCloser, error)
}

// Config bundles the Processor's collaborators and tunables.
type Config struct {
	IncludeDirs []string
	Opener      FileOpener
	Files       *source.FileDescTable
	Macros      *macro.Table
	Sink        *diag.Sink

	// Charset names the default input charset new frames decode from; a
	// frame-local #charset is applied by the file opener, not here, per
	// spec.md §4.3's "#charset ... is consumed by the file opener".
	Charset string

	PreprocessOnly bool // retain #line/#pragma message/#error verbatim
	TestReportMode bool

	// OnSourceTextGroup is the parser's set_source_text_group_mode hook
	// (spec.md §4.7's Parser collaborator).
	OnSourceTextGroup func(bool)
	// OnPragmaC is preserved as a no-op collaborator call per spec.md's
	// open question on #pragma C (DESIGN.md).
	OnPragmaC func()

	// MaxIfDepth bounds #if nesting (spec.md §3: "never exceeds 100").
	// Zero means the default of 100.
	MaxIfDepth int

	// Now overrides time.Now for __DATE__/__TIME__; nil means time.Now.
	Now func() time.Time
}

type ifState int

const (
	ifYes ifState = iota
	ifNo
	ifDone
	elseYes
	elseNo
)

// ifFrame is one entry in the #if stack (spec.md §4.3).
type ifFrame struct {
	state ifState
	// skippedEntirely is set at push time when the enclosing context was
	// already not-taken; once set it forces this whole #if/#elif/#else
	// chain inactive regardless of its own conditions, so only the
	// top-of-stack frame ever needs checking to know if output is
	// currently suppressed.
	skippedEntirely bool
	file            string
	line            int
}

// frame is one entry in the include stack (spec.md's IncludeFrame).
type frame struct {
	desc *source.FileDesc
	dir  string
	rc   io.ReadCloser
	stm  *source.Stream
	asm  *lineasm.Assembler

	ifDepthAtEntry int
}

// Processor drives SourceStream+LineAssembler through directive dispatch
// and macro expansion, producing logical lines ready for internal/lexer.
type Processor struct {
	cfg      Config
	expander *macro.Expander

	frames  []*frame
	ifStack []ifFrame

	onceFiles map[string]bool
	// allOnce, once set by a bare "#pragma all_once", causes every
	// subsequently-#include'd file to be implicitly treated as #pragma
	// once, per spec.md §4.3.
	allOnce bool
}

// NewProcessor returns a Processor; call OpenMain to push the root file
// before the first call to NextLine.
func NewProcessor(cfg Config) *Processor {
	if cfg.MaxIfDepth <= 0 {
		cfg.MaxIfDepth = 100
	}
	p := &Processor{cfg: cfg, onceFiles: make(map[string]bool)}
	p.expander = macro.NewExpander(cfg.Macros, cfg.Sink)
	p.expander.Pseudo = p.expandPseudoMacro
	p.definePseudoMacros()
	return p
}

// definePseudoMacros installs the predefined macros spec.md §6 calls for
// (__LINE__, __FILE__, __DATE__, __TIME__, __TADS_MACRO_FORMAT_VERSION),
// whose actual text is computed per invocation site by expandPseudoMacro.
func (p *Processor) definePseudoMacros() {
	for _, name := range []string{"__LINE__", "__FILE__", "__DATE__", "__TIME__", "__TADS_MACRO_FORMAT_VERSION"} {
		p.cfg.Macros.Define(&macro.Definition{Name: name, Pseudo: true})
	}
}

func dirOf(p string) string {
	d := path.Dir(p)
	if d == "." {
		return ""
	}
	return d
}

func joinDir(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}

// OpenMain pushes the top-level translation unit onto the include stack.
func (p *Processor) OpenMain(rawPath string) error {
	return p.pushFile(rawPath)
}

func (p *Processor) pushFile(rawPath string) error {
	rc, err := p.cfg.Opener.Open(rawPath)
	if err != nil {
		return err
	}
	desc := p.cfg.Files.Resolve(rawPath, rawPath, false)

	var stm *source.Stream
	if p.cfg.Charset != "" {
		stm, err = source.NewStreamCharset(desc.ID, rc, p.cfg.Charset, 1)
		if err != nil {
			p.cfg.Sink.Reportf(diag.Error, diag.Position{File: rawPath}, "TCERR_BAD_CHARSET",
				"error applying charset %q to %q: %s", p.cfg.Charset, rawPath, err)
			stm = source.NewStream(desc.ID, rc, 1)
		}
	} else {
		stm = source.NewStream(desc.ID, rc, 1)
	}

	fr := &frame{
		desc:           desc,
		dir:            dirOf(rawPath),
		rc:             rc,
		stm:            stm,
		asm:            lineasm.New(p.cfg.Sink),
		ifDepthAtEntry: len(p.ifStack),
	}
	p.frames = append(p.frames, fr)
	return nil
}

func (p *Processor) top() *frame {
	if len(p.frames) == 0 {
		return nil
	}
	return p.frames[len(p.frames)-1]
}

// popFrame discards the top include frame. The parent frame's own
// newline-spacing mode and character-set mapper are untouched by the
// child's lifetime, per spec.md §4.3's IncludeFrame lifecycle: each
// frame carries its own state, so popping restores the parent's
// automatically.
func (p *Processor) popFrame() {
	fr := p.frames[len(p.frames)-1]
	p.frames = p.frames[:len(p.frames)-1]
	if fr.rc != nil {
		fr.rc.Close()
	}
}

// skipping reports whether the current position is inside a not-taken #if
// branch (spec.md §4.3: "only the branching directives themselves are
// interpreted; all other input lines are blanked").
func (p *Processor) skipping() bool {
	if len(p.ifStack) == 0 {
		return false
	}
	top := p.ifStack[len(p.ifStack)-1]
	if top.skippedEntirely {
		return true
	}
	return !(top.state == ifYes || top.state == elseYes)
}

func (p *Processor) pos(fr *frame, lineNum int) diag.Position {
	return diag.Position{File: fr.desc.DisplayPath, Line: lineNum}
}

func (p *Processor) report(fr *frame, lineNum int, sev diag.Severity, code, format string, args ...any) {
	p.cfg.Sink.Reportf(sev, p.pos(fr, lineNum), code, format, args...)
}

// frameMoreLines adapts the current frame's LineAssembler to
// macro.MoreLines, letting the Expander splice further physical lines
// when a macro invocation's actuals are not closed by end of line.
type frameMoreLines struct {
	p *Processor
}

func (f *frameMoreLines) NextLine() (string, int, bool) {
	fr := f.p.top()
	if fr == nil {
		return "", 0, false
	}
	line, lineNum, ok, err := fr.asm.AssembleLine(fr.stm, fr.desc.DisplayPath)
	if err != nil || !ok {
		return "", 0, false
	}
	return line, lineNum, true
}

func (f *frameMoreLines) Unsplice(text string, lineNum int) {
	if fr := f.p.top(); fr != nil {
		fr.asm.Unsplice(text, lineNum)
	}
}

func (p *Processor) moreLines() macro.MoreLines { return &frameMoreLines{p: p} }

// NextLine returns the next macro-expanded logical line ready for
// internal/lexer, transparently processing directives and include/exit
// transitions. ok is false once the root file (and its include stack) is
// exhausted.
func (p *Processor) NextLine() (text string, pos source.Position, ok bool, err error) {
	for {
		fr := p.top()
		if fr == nil {
			return "", source.Position{}, false, nil
		}

		line, lineNum, got, rerr := fr.asm.AssembleLine(fr.stm, fr.desc.DisplayPath)
		if rerr != nil {
			return "", source.Position{}, false, rerr
		}
		if !got {
			p.closeFrame(fr)
			continue
		}

		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "#") {
			out, handled := p.handleDirective(fr, lineNum, trimmed[1:])
			if handled {
				if out != "" {
					return out, source.Position{File: fr.desc.ID, Line: lineNum}, true, nil
				}
				continue
			}
		}

		if p.skipping() {
			continue
		}

		expanded, eerr := p.expander.ExpandLine(p.moreLines(), fr.desc.DisplayPath, lineNum, line)
		if eerr != nil {
			p.report(fr, lineNum, diag.Error, "TCERR_MACRO_EXPANSION", "%s", eerr)
			continue
		}
		return expanded, source.Position{File: fr.desc.ID, Line: lineNum}, true, nil
	}
}

// closeFrame pops fr, reporting one diagnostic per #if opened in it but
// never closed (spec.md §4.3's per-file #if-stack bookkeeping).
func (p *Processor) closeFrame(fr *frame) {
	for len(p.ifStack) > fr.ifDepthAtEntry {
		unmatched := p.ifStack[len(p.ifStack)-1]
		p.cfg.Sink.Reportf(diag.Error, diag.Position{File: unmatched.file, Line: unmatched.line},
			"TCERR_UNTERM_IF", "#if at line %d has no matching #endif", unmatched.line)
		p.ifStack = p.ifStack[:len(p.ifStack)-1]
	}
	p.popFrame()
}

func (p *Processor) expandPseudoMacro(name, file string, line int) string {
	switch name {
	case "__LINE__":
		return fmt.Sprintf("%d", line)
	case "__FILE__":
		if fr := p.frameForFile(file); fr != nil {
			return fr.desc.QuotedForFile(p.cfg.TestReportMode)
		}
		return fmt.Sprintf("%q", file)
	case "__TADS_MACRO_FORMAT_VERSION":
		return "1"
	case "__DATE__":
		return p.now().Format(`'Jan 02 2006'`)
	case "__TIME__":
		return p.now().Format(`'15:04:05'`)
	default:
		return ""
	}
}

func (p *Processor) now() time.Time {
	if p.cfg.Now != nil {
		return p.cfg.Now()
	}
	return time.Now()
}

func (p *Processor) frameForFile(displayPath string) *frame {
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i].desc.DisplayPath == displayPath {
			return p.frames[i]
		}
	}
	return p.top()
}
