// Package ui renders terminal output for the CLI with lipgloss styles.
//
// A [Palette] holds the named styles. [Report] collects [Check] results and renders
// them as a titled list, one line per check, marked ✓ or ✗.
//
// Styles degrade to plain text when the output is not a terminal, so rendered
// reports are safe to pipe or capture in tests.
package ui
