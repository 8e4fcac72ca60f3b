package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// truncate trims s to maxWidth display cells, appending an ellipsis when it
// had to cut. Width is measured in cells, not bytes, so wide runes count
// double.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}

// padRight pads s with spaces to exactly width display cells, truncating if
// it is too long.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w > width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}

// clampRuneBoundary clamps a byte offset into s to len(s) and backs it off
// to the nearest rune start, so slicing at the result never splits a rune.
func clampRuneBoundary(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
