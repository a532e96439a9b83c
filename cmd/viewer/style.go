package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"splatviewer/internal/batch"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// maxListedFailures caps the failure list in the summary.
const maxListedFailures = 20

type summary struct {
	Session  string
	Output   string
	Rendered int
	Total    int
	Elapsed  time.Duration
	Results  []batch.Result // only failures are listed
}

func printSummary(w io.Writer, s summary) {
	fmt.Fprintln(w, titleStyle.Render("Turntable"))
	fmt.Fprintf(w, "  Session: %s\n", dimStyle.Render(s.Session))
	fmt.Fprintf(w, "  Output:  %s\n", s.Output)
	fmt.Fprintf(w, "  Time:    %.1fs\n", s.Elapsed.Seconds())

	line := fmt.Sprintf("Rendered %d/%d frames", s.Rendered, s.Total)
	if s.Rendered == s.Total {
		fmt.Fprintln(w, successStyle.Render("✓ "+line))
		return
	}
	fmt.Fprintln(w, errorStyle.Render("✗ "+line))
	listed := 0
	for _, r := range s.Results {
		if r.Success {
			continue
		}
		if listed == maxListedFailures {
			fmt.Fprintln(w, dimStyle.Render("  ..."))
			break
		}
		fmt.Fprintf(w, "  frame %03d: %s\n", r.Frame, r.Error)
		listed++
	}
}
