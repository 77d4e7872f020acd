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

	flag "github.com/spf13/pflag"

	"github.com/kotadb/kotadb/internal/ui"
)

// runInit executes the 'init' CLI command, creating a .kotadb/project.yaml
// configuration file rooted at the current directory.
//
// Flags:
//   - --force: overwrite an existing configuration
//   - --project-id: project identifier (default: directory name)
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration")
	projectID := fs.String("project-id", "", "Project identifier (default: directory name)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		ui.Error(fmt.Sprintf("cannot determine working directory: %v", err))
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !*force {
		ui.Error(fmt.Sprintf("%s already exists (use --force to overwrite)", configPath))
		os.Exit(1)
	}

	id := *projectID
	if id == "" {
		id = filepath.Base(cwd)
	}

	cfg := DefaultConfig(id)
	if err := SaveConfig(cfg, configPath); err != nil {
		ui.Error(err.Error())
		os.Exit(1)
	}

	if !globals.Quiet {
		ui.Header("Initialized KotaDB Project")
		fmt.Printf("%s %s\n", ui.Label("Project ID:"), cfg.ProjectID)
		fmt.Printf("%s  %s\n", ui.Label("Config:"), ui.DimText(configPath))
		fmt.Println()
		fmt.Println("Next: run 'kotadb index' to build the document store and dependency graph.")
	}
}
