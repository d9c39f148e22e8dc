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

import "github.com/tads3toolchain/tppc/internal/lexer"

// formalModifier bits packed into the byte following a formal-parameter
// reference's index, flagging how that occurrence must be substituted
// (spec.md's stringize/paste operators). This repo's own wire detail:
// tctok.h documents the flag byte's existence but not a bit layout for
// these per-occurrence modifiers, which #, #@, and ## did not exist on in
// the original macro model this package's header comment generalizes
// from.
const (
	formalModStringize byte = 1 << iota
	formalModAltQuote
	formalModPasteLeft
	formalModPasteRight
)

// EncodeExpansion serializes d.Body into the sentinel-byte "parsed
// expansion" form persisted by the debug macro table (spec.md §6),
// rather than d.OriginalText's un-parsed source form. Pseudo macros have
// no Body and encode as empty.
func (d *Definition) EncodeExpansion() []byte {
	var out []byte
	appendParts(&out, d.Body)
	return out
}

func appendParts(out *[]byte, parts []part) {
	for _, p := range parts {
		switch v := p.(type) {
		case litPart:
			*out = append(*out, v.text...)

		case formalPart:
			var mod byte
			if v.stringize {
				mod |= formalModStringize
			}
			if v.altQuote {
				mod |= formalModAltQuote
			}
			if v.pasteLeft {
				mod |= formalModPasteLeft
			}
			if v.pasteRight {
				mod |= formalModPasteRight
			}
			*out = append(*out, lexer.SentinelFormalFlag, byte(v.index), mod)

		case argcountPart:
			*out = append(*out, lexer.SentinelArgcountFlag)

		case ifEmptyPart:
			flag := lexer.SentinelIfEmptyFlag
			if v.negate {
				flag = lexer.SentinelIfNEmptyFlag
			}
			*out = append(*out, flag)
			appendParts(out, v.body)
			*out = append(*out, lexer.SentinelMacroExpEnd)

		case foreachPart:
			*out = append(*out, lexer.SentinelForeachFlag)
			appendParts(out, v.body)
			*out = append(*out, lexer.SentinelMacroExpEnd)
			appendParts(out, v.between)
			*out = append(*out, lexer.SentinelMacroExpEnd)
		}
	}
}
