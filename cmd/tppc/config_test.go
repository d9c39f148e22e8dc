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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tppc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
include_dirs:
  - vendor/include
defines:
  - DEBUG
charset: cp1252
sources:
  - "**/*.t"
`), 0o644))

	cfg, err := loadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor/include"}, cfg.IncludeDirs)
	assert.Equal(t, []string{"DEBUG"}, cfg.Defines)
	assert.Equal(t, "cp1252", cfg.Charset)
	assert.Equal(t, []string{"**/*.t"}, cfg.Sources)
}

func TestLoadProjectConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := loadProjectConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &projectConfig{}, cfg)
}

func TestMergeConfigAppendsListsAndOverridesScalars(t *testing.T) {
	proj := &projectConfig{
		IncludeDirs: []string{"proj/include"},
		Defines:     []string{"PROJECT_DEFINE"},
		Charset:     "cp1252",
	}
	includeDirs, defines, charset := mergeConfig(proj, []string{"cli/include"}, []string{"CLI_DEFINE"}, "")
	assert.Equal(t, []string{"proj/include", "cli/include"}, includeDirs)
	assert.Equal(t, []string{"PROJECT_DEFINE", "CLI_DEFINE"}, defines)
	assert.Equal(t, "cp1252", charset)
}

func TestMergeConfigCLICharsetOverridesProject(t *testing.T) {
	proj := &projectConfig{Charset: "cp1252"}
	_, _, charset := mergeConfig(proj, nil, nil, "utf-8")
	assert.Equal(t, "utf-8", charset)
}

func TestMergeConfigDefaultsCharsetToUTF8(t *testing.T) {
	_, _, charset := mergeConfig(&projectConfig{}, nil, nil, "")
	assert.Equal(t, "utf-8", charset)
}

func TestResolveSourcesPrefersCLIArgs(t *testing.T) {
	proj := &projectConfig{Sources: []string{"proj/*.t"}}
	assert.Equal(t, []string{"cli.t"}, resolveSources([]string{"cli.t"}, proj))
}

func TestResolveSourcesFallsBackToProjectConfig(t *testing.T) {
	proj := &projectConfig{Sources: []string{"proj/*.t"}}
	assert.Equal(t, []string{"proj/*.t"}, resolveSources(nil, proj))
}
