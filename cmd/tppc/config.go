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

	"gopkg.in/yaml.v3"
)

// projectConfig is the optional tppc.yaml a source tree can carry next to
// its sources, giving a project-wide default for flags a caller would
// otherwise have to repeat on every invocation. CLI flags always win over
// values loaded here; see mergeConfig.
type projectConfig struct {
	IncludeDirs []string `json:"include_dirs" yaml:"include_dirs"`
	Defines     []string `json:"defines" yaml:"defines"`
	Charset     string   `json:"charset" yaml:"charset"`
	Sources     []string `json:"sources" yaml:"sources"`
}

// loadProjectConfig reads and parses path. A missing file is not an error;
// callers pass the default "tppc.yaml" and should tolerate its absence.
func loadProjectConfig(path string) (*projectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &projectConfig{}, nil
		}
		return nil, err
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfig layers CLI-supplied values over a project config's defaults:
// list-valued fields are appended (project config first, so -I/-D given on
// the command line are searched/applied after the project's own), and
// scalar fields are overridden only when the CLI left them at their zero
// value.
func mergeConfig(proj *projectConfig, cliIncludeDirs, cliDefines []string, cliCharset string) (includeDirs, defines []string, charset string) {
	includeDirs = append(append([]string{}, proj.IncludeDirs...), cliIncludeDirs...)
	defines = append(append([]string{}, proj.Defines...), cliDefines...)
	charset = cliCharset
	if charset == "" {
		charset = proj.Charset
	}
	if charset == "" {
		charset = "utf-8"
	}
	return includeDirs, defines, charset
}

// resolveSources returns the sources to process: explicit positional
// arguments win outright, otherwise the project config's own source list.
func resolveSources(cliArgs []string, proj *projectConfig) []string {
	if len(cliArgs) > 0 {
		return cliArgs
	}
	return proj.Sources
}
