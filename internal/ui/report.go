package ui

import (
	"fmt"
	"strings"
)

// Check is one line of a [Report].
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	// Advisory checks are shown as warnings and do not fail the report.
	Advisory bool `json:"advisory,omitempty"`
}

// Report is a titled list of checks.
type Report struct {
	Title   string
	Checks  []Check
	Hint    string
	palette *Palette
}

// NewReport creates an empty [Report] rendered with the default palette.
func NewReport(title string) *Report {
	return &Report{Title: title, palette: styles}
}

// Add appends a check and returns the report for chaining.
func (r *Report) Add(name string, ok bool, detail string) *Report {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
	return r
}

// Advise appends a check that only warns when it fails.
func (r *Report) Advise(name string, ok bool, detail string) *Report {
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail, Advisory: true})
	return r
}

// Passed reports whether every non-advisory check is OK.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.OK && !c.Advisory {
			return false
		}
	}
	return true
}

// Render returns the report as styled text ending in a newline.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString(r.palette.Title(r.Title))
	b.WriteString("\n")

	width := 0
	for _, c := range r.Checks {
		width = max(width, len(c.Name))
	}

	for _, c := range r.Checks {
		mark := r.palette.OK("✓")
		switch {
		case c.OK:
		case c.Advisory:
			mark = r.palette.Warn("!")
		default:
			mark = r.palette.Err("✗")
		}

		line := fmt.Sprintf("%s %-*s", mark, width, c.Name)
		if c.Detail != "" {
			line += "  " + c.Detail
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}

	if r.Hint != "" {
		b.WriteString("\n")
		b.WriteString(r.palette.Help(r.Hint))
		b.WriteString("\n")
	}
	return b.String()
}
