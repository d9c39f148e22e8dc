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

package ppexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/source"
)

type fakeEnv map[string]bool

func (f fakeEnv) Defined(name string) bool { return f[name] }

func evalText(t *testing.T, env Environment, text string) int64 {
	t.Helper()
	sink := diag.NewSink()
	expr, err := Parse(sink, "f.t", source.Position{}, text)
	require.NoError(t, err)
	require.Empty(t, sink.Records())
	v, err := expr.Eval(env)
	require.NoError(t, err)
	return v
}

func TestArithmeticPrecedence(t *testing.T) {
	assert.EqualValues(t, 14, evalText(t, nil, "2 + 3 * 4"))
	assert.EqualValues(t, 20, evalText(t, nil, "(2 + 3) * 4"))
}

func TestBitwisePrecedence(t *testing.T) {
	// & binds tighter than ^ binds tighter than |.
	assert.EqualValues(t, 1, evalText(t, nil, "1 | 0 & 0"))
	assert.EqualValues(t, 7, evalText(t, nil, "5 ^ 3 | 1"))
}

func TestComparisonAndLogical(t *testing.T) {
	assert.EqualValues(t, 1, evalText(t, nil, "1 < 2 && 3 > 2"))
	assert.EqualValues(t, 0, evalText(t, nil, "1 == 2 || 3 == 4"))
}

func TestTernary(t *testing.T) {
	assert.EqualValues(t, 5, evalText(t, nil, "1 ? 5 : 10"))
	assert.EqualValues(t, 10, evalText(t, nil, "0 ? 5 : 10"))
}

func TestShiftOperators(t *testing.T) {
	assert.EqualValues(t, 8, evalText(t, nil, "1 << 3"))
	assert.EqualValues(t, 2, evalText(t, nil, "16 >> 3"))
}

func TestUnaryOperators(t *testing.T) {
	assert.EqualValues(t, 0, evalText(t, nil, "!5"))
	assert.EqualValues(t, 1, evalText(t, nil, "!0"))
	assert.EqualValues(t, -5, evalText(t, nil, "-5"))
	assert.EqualValues(t, -6, evalText(t, nil, "~5"))
}

func TestDefinedWithParens(t *testing.T) {
	env := fakeEnv{"FOO": true}
	assert.EqualValues(t, 1, evalText(t, env, "defined(FOO)"))
	assert.EqualValues(t, 0, evalText(t, env, "defined(BAR)"))
}

func TestDefinedWithoutParens(t *testing.T) {
	env := fakeEnv{"FOO": true}
	assert.EqualValues(t, 1, evalText(t, env, "defined FOO"))
}

func TestUndefinedPlainIdentIsZero(t *testing.T) {
	assert.EqualValues(t, 0, evalText(t, nil, "SOME_UNEXPANDED_MACRO"))
}

func TestDivisionByZeroIsError(t *testing.T) {
	sink := diag.NewSink()
	expr, err := Parse(sink, "f.t", source.Position{}, "1 / 0")
	require.NoError(t, err)
	_, err = expr.Eval(nil)
	assert.Error(t, err)
}

func TestMalformedExpressionEvaluatesToTrue(t *testing.T) {
	sink := diag.NewSink()
	result := Evaluate(nil, sink, "f.t", 1, "1 +")
	assert.True(t, result)
	assert.NotEmpty(t, sink.Records())
}

func TestDefinedCombinesWithArithmeticComparison(t *testing.T) {
	env := fakeEnv{"X": true}
	assert.EqualValues(t, 1, evalText(t, env, "defined(X) && (1 + 1 == 2)"))
}
