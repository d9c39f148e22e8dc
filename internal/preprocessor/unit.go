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

// Package preprocessor assembles internal/source, internal/lineasm,
// internal/directive, internal/macro, internal/lexer, internal/tokstream,
// and internal/artifact into the single-threaded, per-compilation-unit
// pipeline spec.md §2 and §5 describe: one Unit owns everything live for
// one translation unit, from opening the root file through to the token
// stream the (out of scope) TADS parser consumes.
package preprocessor

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tads3toolchain/tppc/internal/arena"
	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/directive"
	"github.com/tads3toolchain/tppc/internal/macro"
	"github.com/tads3toolchain/tppc/internal/source"
	"github.com/tads3toolchain/tppc/internal/tokstream"
)

// Config bundles every tunable a Unit needs, mirroring
// internal/directive.Config but adding the driver-level concerns
// (initial -D defines, pedantic mode) that sit above the directive
// processor itself.
type Config struct {
	IncludeDirs []string
	Opener      directive.FileOpener // nil means OSFileOpener{}
	Defines     []string             // e.g. "FOO", "FOO=1", parsed with macro.ParseDefinitions

	Charset        string
	PreprocessOnly bool
	TestReportMode bool
	Pedantic       bool
	MaxErrors      int
	MaxIfDepth     int

	OnSourceTextGroup func(bool)
	OnPragmaC         func()

	// Now overrides time.Now for __DATE__/__TIME__; nil means time.Now.
	Now func() time.Time
}

// OSFileOpener resolves #include candidates against the local filesystem,
// grounded on the teacher's ParseSourceFile's os.Open-and-defer-Close
// idiom (language/internal/cc/parser/parser.go).
type OSFileOpener struct{}

func (OSFileOpener) Open(candidatePath string) (io.ReadCloser, error) {
	return os.Open(candidatePath)
}

// Unit is one compilation unit: a source arena, file descriptor table,
// diagnostic sink, macro table, and the directive processor/token stream
// pair that read through them. Not safe for concurrent use, matching
// spec.md §5; a driver processing several units concurrently gives each
// its own Unit.
type Unit struct {
	Files  *source.FileDescTable
	Sink   *diag.Sink
	Macros *macro.Table
	Arena  *arena.Arena

	proc *directive.Processor
	toks *tokstream.Stream
}

// New builds a Unit and opens mainPath as its root translation unit.
func New(cfg Config, mainPath string) (*Unit, error) {
	files := source.NewFileDescTable()
	sink := diag.NewSink()
	sink.Pedantic = cfg.Pedantic
	if cfg.MaxErrors > 0 {
		sink.MaxErrors = cfg.MaxErrors
	}

	macros := macro.NewTable()
	if err := macro.ParseDefinitions(macros, cfg.Defines); err != nil {
		return nil, fmt.Errorf("preprocessor: bad -D define: %w", err)
	}

	opener := cfg.Opener
	if opener == nil {
		opener = OSFileOpener{}
	}

	proc := directive.NewProcessor(directive.Config{
		IncludeDirs:       cfg.IncludeDirs,
		Opener:            opener,
		Files:             files,
		Macros:            macros,
		Sink:              sink,
		Charset:           cfg.Charset,
		PreprocessOnly:    cfg.PreprocessOnly,
		TestReportMode:    cfg.TestReportMode,
		OnSourceTextGroup: cfg.OnSourceTextGroup,
		OnPragmaC:         cfg.OnPragmaC,
		MaxIfDepth:        cfg.MaxIfDepth,
		Now:               cfg.Now,
	})
	if err := proc.OpenMain(mainPath); err != nil {
		return nil, fmt.Errorf("preprocessor: opening %q: %w", mainPath, err)
	}

	ar := arena.New()
	u := &Unit{Files: files, Sink: sink, Macros: macros, Arena: ar, proc: proc}
	u.toks = tokstream.New(sink, ar, files, proc)
	return u, nil
}

// Tokens returns the unit's TokenStream, ready for Next()/Unget()/Push()
// calls from a (out-of-scope) parser.
func (u *Unit) Tokens() *tokstream.Stream { return u.toks }

// PreprocessLines drains the directive processor directly, collecting
// every macro-expanded logical line without tokenizing — the
// "preprocess only" output mode spec.md §6 calls out, used by a driver's
// -E-style flag.
func (u *Unit) PreprocessLines() ([]string, error) {
	var lines []string
	for {
		text, _, ok, err := u.proc.NextLine()
		if err != nil {
			return lines, err
		}
		if !ok {
			return lines, nil
		}
		lines = append(lines, text)
	}
}
