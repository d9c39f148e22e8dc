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

package lexer

// keywords is consulted once a SYM token has been formed, to promote it
// to the specific keyword kind (spec.md §4.5 "Keyword classification").
var keywords = map[string]Kind{
	"and": KwAnd, "break": KwBreak, "case": KwCase, "catch": KwCatch,
	"class": KwClass, "continue": KwContinue, "default": KwDefault,
	"delegated": KwDelegated, "delete": KwDelete, "do": KwDo, "else": KwElse,
	"enum": KwEnum, "export": KwExport, "extern": KwExtern, "extra": KwExtra,
	"false": KwFalse, "finally": KwFinally, "for": KwFor, "foreach": KwForEach,
	"format": KwFormat, "function": KwFunction, "goto": KwGoto, "if": KwIf,
	"inherited": KwInherited, "intrinsic": KwIntrinsic, "local": KwLocal,
	"method": KwMethod, "modify": KwModify, "multimethod": KwMultiMethod,
	"new": KwNew, "nil": KwNil, "object": KwObject, "operator": KwOperator,
	"or": KwOr, "private": KwPrivate, "property": KwProperty,
	"propertyset": KwPropertySet, "protected": KwProtected, "public": KwPublic,
	"replace": KwReplace, "return": KwReturn, "self": KwSelf, "static": KwStatic,
	"switch": KwSwitch, "targetobject": KwTargetobject, "targetprop": KwTargetprop,
	"template": KwTemplate, "this": KwThis, "throw": KwThrow,
	"transient": KwTransient, "true": KwTrue, "try": KwTry, "while": KwWhile,
}

// LookupKeyword returns the keyword Kind for ident, or (Ident, false) if
// ident is not a reserved word.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	if !ok {
		return Ident, false
	}
	return k, ok
}

func init() {
	for text, k := range keywords {
		kindNames[k] = text
	}
}
