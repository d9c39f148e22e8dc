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

package artifact

import (
	"bufio"
	"io"

	"github.com/tads3toolchain/tppc/internal/charset"
)

// StringCapture writes one re-encoded line per tokenized string body to
// an underlying writer, the string-capture file spec.md §6 describes:
// each string literal's UTF-8 body, re-encoded to the given source
// character set, one per line. A body containing the host line
// terminator after re-encoding would corrupt the file's line framing;
// TADS 3 string literals can't themselves contain a raw newline, so this
// isn't a concern in practice, but WriteString still refuses embedded
// newlines defensively rather than silently truncating a line.
type StringCapture struct {
	w       *bufio.Writer
	charset string
}

// NewStringCapture returns a StringCapture that re-encodes each string
// body to charsetName (as accepted by internal/charset.Lookup) before
// writing it to w.
func NewStringCapture(w io.Writer, charsetName string) *StringCapture {
	return &StringCapture{w: bufio.NewWriter(w), charset: charsetName}
}

// WriteString re-encodes body from UTF-8 to the configured charset and
// appends it to the file as its own line.
func (c *StringCapture) WriteString(body string) error {
	for _, r := range body {
		if r == '\n' || r == '\r' {
			return errEmbeddedNewline
		}
	}
	encoded, err := charset.EncodeAll(c.charset, []byte(body))
	if err != nil {
		return err
	}
	if _, err := c.w.Write(encoded); err != nil {
		return err
	}
	return c.w.WriteByte('\n')
}

// Flush flushes any buffered output to the underlying writer.
func (c *StringCapture) Flush() error {
	return c.w.Flush()
}

var errEmbeddedNewline = stringCaptureError("artifact: string body contains an embedded newline")

type stringCaptureError string

func (e stringCaptureError) Error() string { return string(e) }
