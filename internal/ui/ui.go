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

// Package ui holds the small set of terminal formatting helpers the kotadb
// CLI uses for section headers, labels, and colored status text. Color is
// disabled automatically when stdout isn't a terminal or NO_COLOR is set.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Exported color handles, reused across commands so every command colors
// the same kind of information the same way.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors disables color output when requested explicitly, stdout isn't
// a terminal, or NO_COLOR is set — the three conditions spec's CLI ambient
// stack calls out for a library-quality terminal UI.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold section title.
func Header(title string) {
	_, _ = Bold.Println(title)
}

// SubHeader prints a dimmer, indented section title under a Header.
func SubHeader(title string) {
	_, _ = Dim.Println("  " + title)
}

// Label renders a field label in bold, e.g. "Project ID:".
func Label(s string) string {
	return Bold.Sprint(s)
}

// DimText renders s faint, for secondary detail like paths and durations.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText renders an integer count in bold, right-sized for table-style
// summaries.
func CountText(n int) string {
	return Bold.Sprint(n)
}

// Warning prints msg in yellow, prefixed "Warning:".
func Warning(msg string) {
	_, _ = Yellow.Printf("Warning: %s\n", msg)
}

// Warningf formats and prints a warning.
func Warningf(format string, args ...interface{}) {
	Warning(fmt.Sprintf(format, args...))
}

// Info prints an informational line, uncolored.
func Info(msg string) {
	fmt.Println(msg)
}

// Error prints msg in red, prefixed "Error:", to stderr.
func Error(msg string) {
	_, _ = Red.Fprintf(os.Stderr, "Error: %s\n", msg)
}
