package utils

import "github.com/charmbracelet/x/ansi"

// Truncate shortens s to maxLen terminal cells and appends "...". Wide
// characters and escape sequences are measured by their display width.
func Truncate(s string, maxLen int) string {
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "") + "..."
}
