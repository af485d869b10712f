package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/paperdeck/paperdeck/internal/filter"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// currentTextQuery extracts the full-text criterion from a rule set, for
// prefilling the filter bar.
func currentTextQuery(rules []filter.Rule) string {
	for _, r := range rules {
		if r.Type == filter.RuleFullText {
			return r.Value
		}
	}
	return ""
}

// formatDate renders a document date for list columns.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// truncateCell fits a string into maxWidth terminal cells, accounting for
// full-width characters, and strips layout-breaking control characters.
func truncateCell(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")

	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// padCell pads or truncates a possibly-styled string to exactly width
// terminal cells. lipgloss.Width and ansi.Truncate keep escape sequences
// out of the width math.
func padCell(s string, width int) string {
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// wrapText wraps text to width terminal cells, breaking at spaces where
// possible.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}
		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1
			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}
			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				breakAt = 1
			}
			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]
			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return result
}
