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

package preprocessor

import (
	"io"

	"github.com/tads3toolchain/tppc/internal/artifact"
	"github.com/tads3toolchain/tppc/internal/lexer"
)

// TokenizeAll drains the unit's token stream to EOF, invoking visit for
// every token (including the terminal EOF token). It is the driver's
// normal consumption path when there is no out-of-scope parser attached
// yet — e.g. for -E-style "tokenize only" output or for building the
// string-capture artifact below.
func (u *Unit) TokenizeAll(visit func(lexer.Token)) {
	for {
		tok := u.toks.Next()
		visit(tok)
		if tok.Kind == lexer.EOF {
			return
		}
	}
}

// CaptureStrings drains the unit's token stream, writing every tokenized
// string body to w (re-encoded to charsetName), the string-capture file
// spec.md §6 describes. A string split across SStrStart/SStrMid/SStrEnd
// (or DStr's equivalents) by an embedded expression is captured as the
// concatenation of its segments' text, since the capture is of the
// string's body as written, not of the individual tokenizer segments an
// embedded expression happens to split it into.
func (u *Unit) CaptureStrings(w io.Writer, charsetName string) error {
	sc := artifact.NewStringCapture(w, charsetName)

	var pending string
	inSplice := false

	flush := func() error {
		if !inSplice {
			return nil
		}
		inSplice = false
		s := pending
		pending = ""
		return sc.WriteString(s)
	}

	var writeErr error
	u.TokenizeAll(func(tok lexer.Token) {
		if writeErr != nil {
			return
		}
		switch tok.Kind {
		case lexer.SStr, lexer.DStr:
			writeErr = sc.WriteString(tok.Text)
		case lexer.SStrStart, lexer.DStrStart:
			inSplice = true
			pending = tok.Text
		case lexer.SStrMid, lexer.DStrMid:
			if inSplice {
				pending += tok.Text
			}
		case lexer.SStrEnd, lexer.DStrEnd:
			if inSplice {
				pending += tok.Text
				writeErr = flush()
			}
		}
	})
	if writeErr != nil {
		return writeErr
	}
	return sc.Flush()
}

// WriteDebugMacroTable writes the unit's surviving macro definitions in
// spec.md §6's debug macro table binary format. Callers accumulating
// several units into one table should use artifact.NewMacroTable and its
// AddUnit directly instead; this is the single-unit convenience path.
func (u *Unit) WriteDebugMacroTable(w io.Writer) error {
	b := artifact.NewMacroTable()
	b.AddUnit(u.Macros)
	return b.Write(w)
}
