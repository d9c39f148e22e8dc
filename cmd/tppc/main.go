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

// Command tppc runs the TADS 3 preprocessor/tokenizer pipeline over one or
// more translation units, optionally emitting the preprocess-only text, the
// debug macro table, and/or the string-capture file spec.md §6 describes.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tads3toolchain/tppc/internal/artifact"
	"github.com/tads3toolchain/tppc/internal/lexer"
	"github.com/tads3toolchain/tppc/internal/preprocessor"
)

func main() {
	var includeDirs stringList
	var defines stringList
	flag.Var(&includeDirs, "I", "Additional include directory to search for #include; may be repeated")
	flag.Var(&defines, "D", "Preset macro definition NAME or NAME=value; may be repeated")
	charset := flag.String("charset", "", "Source charset (default utf-8, or the project config's charset)")
	projectConfigPath := flag.String("project", "tppc.yaml", "Path to the optional project config file")
	preprocessOnly := flag.Bool("E", false, "Emit macro-expanded source text instead of tokenizing")
	pedantic := flag.Bool("pedantic", false, "Treat pedantic diagnostics as warnings instead of suppressing them")
	testReportMode := flag.Bool("test-report-mode", false, "Enable the deterministic diagnostics mode used by golden-output tests")
	maxErrors := flag.Int("max-errors", 0, "Stop after this many errors (0 means the sink's default)")
	debugMacroTablePath := flag.String("debug-macro-table", "", "Write the merged debug macro table to this file")
	stringCapturePath := flag.String("string-capture", "", "Write every tokenized string body to this file")
	flag.Parse()

	proj, err := loadProjectConfig(*projectConfigPath)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *projectConfigPath, err)
	}

	mergedIncludeDirs, mergedDefines, mergedCharset := mergeConfig(proj, includeDirs.values, defines.values, *charset)

	sources, err := expandSources(resolveSources(flag.Args(), proj))
	if err != nil {
		log.Fatalf("Failed to expand source patterns: %v", err)
	}
	if len(sources) == 0 {
		flag.Usage()
		log.Fatalf("tppc requires at least one source file, either as a positional argument or in %s's sources list", *projectConfigPath)
	}

	wantCapture := *stringCapturePath != ""

	results := make([]*unitResult, len(sources))
	g := new(errgroup.Group)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			r, err := processUnit(src, preprocessor.Config{
				IncludeDirs:    mergedIncludeDirs,
				Defines:        mergedDefines,
				Charset:        mergedCharset,
				PreprocessOnly: *preprocessOnly,
				TestReportMode: *testReportMode,
				Pedantic:       *pedantic,
				MaxErrors:      *maxErrors,
			}, wantCapture && !*preprocessOnly, mergedCharset)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("%v", err)
	}

	hadErrors := false
	for _, r := range results {
		for _, rec := range r.unit.Sink.Records() {
			fmt.Fprintln(os.Stderr, rec.String())
		}
		if r.unit.Sink.ErrorCount() > 0 {
			hadErrors = true
		}
		if *preprocessOnly {
			for _, line := range r.lines {
				fmt.Println(line)
			}
		}
	}

	if wantCapture {
		if err := writeStringCapture(*stringCapturePath, results); err != nil {
			log.Fatalf("Failed to write string capture: %v", err)
		}
	}
	if *debugMacroTablePath != "" {
		if err := writeDebugMacroTable(*debugMacroTablePath, results); err != nil {
			log.Fatalf("Failed to write debug macro table: %v", err)
		}
	}

	if hadErrors {
		os.Exit(1)
	}
}

// unitResult bundles one translation unit's preprocessor.Unit with
// whatever output its single pass over the token stream produced, so the
// main goroutine can report diagnostics and write artifacts after every
// unit has finished running concurrently. A Unit's token stream can only
// be drained once, so processUnit picks a single traversal strategy
// up front instead of letting later stages re-read it.
type unitResult struct {
	unit     *preprocessor.Unit
	lines    []string
	captured bytes.Buffer
}

func processUnit(path string, cfg preprocessor.Config, captureStrings bool, captureCharset string) (*unitResult, error) {
	u, err := preprocessor.New(cfg, path)
	if err != nil {
		return nil, err
	}
	r := &unitResult{unit: u}
	switch {
	case cfg.PreprocessOnly:
		lines, err := u.PreprocessLines()
		if err != nil {
			return nil, err
		}
		r.lines = lines
	case captureStrings:
		if err := u.CaptureStrings(&r.captured, captureCharset); err != nil {
			return nil, err
		}
	default:
		u.TokenizeAll(func(lexer.Token) {})
	}
	return r, nil
}

// expandSources turns CLI/config source entries, each either a plain path
// or a doublestar glob, into a sorted, deduplicated list of files.
func expandSources(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid source pattern %q", pattern)
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func writeStringCapture(path string, results []*unitResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, r := range results {
		if _, err := r.captured.WriteTo(f); err != nil {
			return err
		}
	}
	return nil
}

func writeDebugMacroTable(path string, results []*unitResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	b := artifact.NewMacroTable()
	for _, r := range results {
		b.AddUnit(r.unit.Macros)
	}
	return b.Write(f)
}
