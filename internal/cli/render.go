package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Styles mirror atikulmunna-loom's internal/output severity palette,
// repurposed here for otell's table headers and status coloring
// instead of log-level tags.
var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// renderJSON prints v as indented JSON, used whenever --json is set.
func renderJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable prints a simple header + rows table in human mode.
func renderTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = padTo(h, widths[i])
	}
	fmt.Println(styleHeader.Render(strings.Join(headerCells, "  ")))

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = padTo(cell, widths[i])
		}
		fmt.Println(strings.Join(cells, "  "))
	}
	if len(rows) == 0 {
		fmt.Println(styleDim.Render("(no results)"))
	}
}

func padTo(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func formatTs(ns int64) string {
	if ns == 0 {
		return "-"
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
}

func formatStatus(ok bool) string {
	if ok {
		return styleOK.Render("ok")
	}
	return styleError.Render("error")
}
