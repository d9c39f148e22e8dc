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

// Package charset implements the CharmapToUni/CharmapToLocal collaborator
// interfaces from spec.md §6: given a named source character set, produce
// a decoder to UTF-8 and an encoder back to the original charset (used by
// the optional string-capture artifact). Character-set transcoding
// internals are explicitly out of scope for the preprocessor proper (§1
// non-goals); this package is the thin collaborator boundary the rest of
// the tree talks to.
package charset

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// named maps the driver-facing charset name (spec.md §6, e.g. "cp1252")
// to its golang.org/x/text encoding.
var named = map[string]encoding.Encoding{
	"cp1252":      charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"latin1":      charmap.ISO8859_1,
	"iso-8859-1":  charmap.ISO8859_1,
	"ascii":       encoding.Nop,
	"utf-8":       encoding.Nop,
	"utf8":        encoding.Nop,
	"utf-16le":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// Lookup resolves a charset name (case-insensitive) to its encoding. A
// nil/empty name means "ask the OS host" per spec.md §6; callers resolve
// that themselves and pass the host's answer in here.
func Lookup(name string) (encoding.Encoding, error) {
	enc, ok := named[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("charset: unknown character set %q", name)
	}
	return enc, nil
}

// CharmapToUni returns a decoder producing UTF-8 from text encoded in the
// named input character set.
func CharmapToUni(name string) (*encoding.Decoder, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder(), nil
}

// CharmapToLocal returns an encoder converting UTF-8 back to the named
// character set, used by the string-capture artifact (spec.md §6).
func CharmapToLocal(name string) (*encoding.Encoder, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return enc.NewEncoder(), nil
}

// DecodeAll decodes an entire byte slice using the named charset, used by
// SourceStream when a whole file is buffered at once.
func DecodeAll(name string, data []byte) ([]byte, error) {
	dec, err := CharmapToUni(name)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(dec, data)
	return out, err
}

// EncodeAll re-encodes UTF-8 text into the named local charset, used by
// the string-capture artifact writer.
func EncodeAll(name string, data []byte) ([]byte, error) {
	enc, err := CharmapToLocal(name)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc, data)
	return out, err
}

// NewDecodeReader wraps r so reads come out as UTF-8, decoded from the
// named input charset. Used when streaming a file line by line instead
// of buffering it whole.
func NewDecodeReader(name string, r io.Reader) (io.Reader, error) {
	dec, err := CharmapToUni(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, dec), nil
}
