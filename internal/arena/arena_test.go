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

package arena

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyStringRoundTrip(t *testing.T) {
	a := New()
	s1, err := a.CopyString("hello")
	require.NoError(t, err)
	s2, err := a.CopyString("world")
	require.NoError(t, err)
	assert.Equal(t, "hello", s1)
	assert.Equal(t, "world", s2)
}

func TestCopySurvivesFurtherAllocations(t *testing.T) {
	a := New()
	first, err := a.CopyString("first")
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		_, err := a.CopyString(strings.Repeat("x", 100))
		require.NoError(t, err)
	}

	assert.Equal(t, "first", first, "arena pointers must stay valid across further allocations")
}

func TestAllocTooLarge(t *testing.T) {
	a := New()
	_, err := a.Copy(make([]byte, BlockSize+1))
	assert.ErrorIs(t, err, ErrAllocTooLarge)
}

func TestResetInvalidatesAccounting(t *testing.T) {
	a := New()
	_, err := a.CopyString("abc")
	require.NoError(t, err)
	blocks, used := a.Stats()
	assert.Equal(t, 1, blocks)
	assert.Equal(t, 3, used)

	a.Reset()
	blocks, used = a.Stats()
	assert.Equal(t, 1, blocks)
	assert.Equal(t, 0, used)
}

func TestBlockRollover(t *testing.T) {
	a := New()
	big := strings.Repeat("a", BlockSize-1)
	_, err := a.CopyString(big)
	require.NoError(t, err)

	// This allocation doesn't fit in the remaining byte of the first
	// block, so it must roll over into a second block.
	s, err := a.CopyString("bc")
	require.NoError(t, err)
	assert.Equal(t, "bc", s)

	blocks, _ := a.Stats()
	assert.Equal(t, 2, blocks)
}
