// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir  = ".kotadb"
	defaultConfigFile = "project.yaml"
	configVersion     = "1"

	// symbolTableFileName and dependencyGraphFileName must match the file
	// names pkg/relate.Engine looks for under its dbPath.
	symbolTableFileName     = "symbols.kota"
	dependencyGraphFileName = "dependency_graph.bin"
)

// Config represents the .kotadb/project.yaml configuration file: the
// project identity plus the indexing settings the index command reads.
type Config struct {
	Version   string         `yaml:"version"`
	ProjectID string         `yaml:"project_id"`
	Indexing  IndexingConfig `yaml:"indexing"`
}

// IndexingConfig controls what the index command walks and how much it
// will tolerate in one file.
type IndexingConfig struct {
	Extensions  []string `yaml:"extensions"`   // source extensions to parse, e.g. [".go"]
	Exclude     []string `yaml:"exclude"`      // glob patterns, matched against relative path
	MaxFileSize int64    `yaml:"max_file_size"`
}

// DefaultConfig returns sensible defaults for a freshly initialized project.
func DefaultConfig(projectID string) *Config {
	return &Config{
		Version:   configVersion,
		ProjectID: projectID,
		Indexing: IndexingConfig{
			Extensions:  []string{".go"},
			MaxFileSize: 1 << 20,
			Exclude: []string{
				".git/**",
				".kotadb/**",
				"vendor/**",
				"node_modules/**",
			},
		},
	}
}

// LoadConfig loads the project config from configPath, or discovers it by
// walking up from the current directory when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		var err error
		configPath, err = findConfigFile()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // path comes from user config or discovery
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}
	if cfg.Version != configVersion {
		return nil, fmt.Errorf("config %s has unsupported version %q (expected %q); run 'kotadb init --force'",
			configPath, cfg.Version, configVersion)
	}
	return &cfg, nil
}

// SaveConfig marshals cfg as YAML and writes it to configPath, creating the
// parent directory if needed.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", configPath, err)
	}
	return nil
}

// ConfigPath returns <dir>/.kotadb/project.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// DataDir returns <dir>/.kotadb/data, the root all durable stores and
// indexes are rooted under.
func DataDir(dir string) string {
	return filepath.Join(dir, defaultConfigDir, "data")
}

func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		path := ConfigPath(dir)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no .kotadb/project.yaml found in this directory or any parent; run 'kotadb init'")
}
