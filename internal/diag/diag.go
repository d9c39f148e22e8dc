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

// Package diag implements the structured error sink shared by every
// preprocessor/tokenizer component: a severity-tiered diagnostic record
// with position information and a configurable too-many-errors ceiling.
package diag

import (
	"fmt"
)

// Severity classifies a diagnostic per spec.md §7.
type Severity int

const (
	Info Severity = iota
	Pedantic
	Warning
	Error
	Fatal
	Internal
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Pedantic:
		return "pedantic"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	case Internal:
		return "internal error"
	default:
		return "unknown"
	}
}

// Position locates a diagnostic in the source. File is a display name,
// not a FileDesc ID, so the sink has no dependency on internal/source.
type Position struct {
	File string
	Line int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d", p.Line)
	}
	return fmt.Sprintf("%s(%d)", p.File, p.Line)
}

// Record is one reported diagnostic.
type Record struct {
	Severity Severity
	Code     string // e.g. "TCERR_UNTERM_STRING"
	Message  string
	Pos      Position
}

func (r Record) String() string {
	return fmt.Sprintf("%s: %s [%s]: %s", r.Pos, r.Severity, r.Code, r.Message)
}

// ErrTooManyErrorsCode is the Code of the Fatal record raised once the
// error count exceeds the configured ceiling.
const ErrTooManyErrorsCode = "TOO_MANY_ERRORS"

// Sink collects diagnostics and enforces the too-many-errors ceiling. It
// is not safe for concurrent use by multiple goroutines sharing one
// compilation unit, matching the tokenizer's own single-threaded
// contract (spec.md §5); a CLI driver processing multiple units
// concurrently gives each unit its own Sink.
type Sink struct {
	// Pedantic enables emission of Pedantic-severity diagnostics.
	Pedantic bool
	// MaxErrors is the ceiling before a TOO_MANY_ERRORS fatal is raised.
	// Zero means "use the default of 100".
	MaxErrors int

	records    []Record
	errorCount int
	tooMany    bool
	// Emit, if set, is called for every accepted record as it is
	// reported (streaming to a host interface); Records() still
	// accumulates everything regardless.
	Emit func(Record)
}

// NewSink returns a Sink with the default 100-error ceiling.
func NewSink() *Sink {
	return &Sink{MaxErrors: 100}
}

func (s *Sink) ceiling() int {
	if s.MaxErrors <= 0 {
		return 100
	}
	return s.MaxErrors
}

// Report records a diagnostic. Info records never count against the
// ceiling; Pedantic records are dropped unless s.Pedantic is set, and
// count as warnings when kept. Returns true if this report pushed the sink past
// TOO_MANY_ERRORS (the caller should treat this as fatal and stop).
func (s *Sink) Report(rec Record) bool {
	if rec.Severity == Pedantic && !s.Pedantic {
		return false
	}
	s.append(rec)

	switch rec.Severity {
	case Pedantic, Warning, Error, Fatal, Internal:
		s.errorCount++
	}

	if s.tooMany {
		return true
	}
	if s.errorCount > s.ceiling() {
		s.tooMany = true
		s.append(Record{
			Severity: Fatal,
			Code:     ErrTooManyErrorsCode,
			Message:  fmt.Sprintf("more than %d errors reported, stopping", s.ceiling()),
		})
		return true
	}
	return false
}

func (s *Sink) append(rec Record) {
	s.records = append(s.records, rec)
	if s.Emit != nil {
		s.Emit(rec)
	}
}

// Reportf is a convenience wrapper building a Record from a format
// string, mirroring the teacher's fmt.Errorf-everywhere style.
func (s *Sink) Reportf(sev Severity, pos Position, code, format string, args ...any) bool {
	return s.Report(Record{Severity: sev, Code: code, Message: fmt.Sprintf(format, args...), Pos: pos})
}

// Records returns every accepted diagnostic in report order.
func (s *Sink) Records() []Record { return s.records }

// ErrorCount returns the number of kept Pedantic and Warning+ severity
// diagnostics reported so far (matches spec.md §7's "counted" diagnostics).
func (s *Sink) ErrorCount() int { return s.errorCount }

// TooMany reports whether the ceiling has already been exceeded.
func (s *Sink) TooMany() bool { return s.tooMany }
