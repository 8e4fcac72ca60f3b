package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/treeline/internal/datasource"
	"github.com/vanderheijden86/treeline/pkg/engine"
)

// View paints the visible window of the tree, an optional detail pane, and
// the status bar.
func (m *Model) View() string {
	if !m.ready {
		return "loading…"
	}
	if m.confirmReset {
		return m.renderConfirm()
	}

	listWidth := m.width
	if m.showDetail {
		listWidth = m.width * 3 / 5
	}

	list := m.renderList(listWidth)
	if m.showDetail {
		detail := m.renderDetail(m.width - listWidth)
		list = lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
	}

	var b strings.Builder
	b.WriteString(list)
	b.WriteString("\n")
	b.WriteString(m.renderFilterLine())
	if m.cfg.UI.ShowStatusBar {
		b.WriteString("\n")
		b.WriteString(m.renderStatusBar())
	}
	return b.String()
}

func (m *Model) renderList(width int) string {
	h := m.listHeight()
	lines := make([]string, 0, h)

	// Pinned rows stay above the tree regardless of expansion or filter.
	if pinned := m.pinnedRows(); len(pinned) > 0 && h > len(pinned)+1 {
		for _, row := range pinned {
			lines = append(lines, m.renderRow(row, false, width))
		}
		lines = append(lines, mutedStyle.Render(strings.Repeat("─", width)))
		h -= len(pinned) + 1
	}

	rows := m.eng.VisibleRows()
	end := m.offset + h
	if end > len(rows) {
		end = len(rows)
	}
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(rows[i], i == m.cursor, width))
	}
	for pad := h - (end - m.offset); pad > 0; pad-- {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) pinnedRows() []engine.RowViewModel {
	if len(m.cfg.Pins) == 0 {
		return nil
	}
	ids := make([]engine.NodeID, 0, len(m.cfg.Pins))
	for _, pin := range m.cfg.Pins {
		ids = append(ids, engine.NodeID(pin))
	}
	return m.eng.RowsByID(ids)
}

func (m *Model) renderRow(row engine.RowViewModel, isCursor bool, width int) string {
	indent := m.cfg.UI.IndentWidth
	if indent <= 0 {
		indent = 2
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", row.Level*indent))
	b.WriteString(markerFor(row))
	b.WriteString(" ")
	if box := m.checkboxFor(row); box != "" {
		b.WriteString(box)
		b.WriteString(" ")
	}
	if m.cfg.UI.ShowIcons && row.Icon != "" {
		b.WriteString(row.Icon)
		b.WriteString(" ")
	}
	prefix := b.String()

	labelWidth := width - lipgloss.Width(prefix)
	label := m.renderLabel(row, labelWidth)

	line := prefix + label
	if row.Err != nil {
		line += errorStyle.Render("  ⚠ retry with enter")
	}
	if isCursor {
		return cursorRowStyle.Render(padRight(line, width))
	}
	if row.Placeholder {
		return mutedStyle.Render(line)
	}
	return line
}

func markerFor(row engine.RowViewModel) string {
	switch {
	case row.Loading:
		return loadingStyle.Render("…")
	case row.Placeholder, !row.Expandable:
		return " "
	case row.Expanded:
		return "▾"
	default:
		return "▸"
	}
}

func (m *Model) checkboxFor(row engine.RowViewModel) string {
	if selectionMode(m.cfg.NormalizedSelectionMode()) == engine.SelectionNone || row.Placeholder {
		return ""
	}
	switch {
	case row.Selected:
		return selectedStyle.Render("[x]")
	case row.Indeterminate:
		return selectedStyle.Render("[~]")
	default:
		return mutedStyle.Render("[ ]")
	}
}

// renderLabel draws the row label, underlining filter match ranges.
func (m *Model) renderLabel(row engine.RowViewModel, width int) string {
	if row.Placeholder {
		return fmt.Sprintf("(loading item %d)", row.PlaceholderIndex)
	}
	label := truncate(row.Label, width)
	if len(row.Highlights) == 0 {
		return rowStyle.Render(label)
	}
	var b strings.Builder
	last := 0
	for _, r := range row.Highlights {
		// Highlight offsets were computed on the full label; after
		// truncation they may point past the cut or into the middle of a
		// multi-byte rune, so clamp them to rune boundaries first.
		start, end := clampRuneBoundary(label, r[0]), clampRuneBoundary(label, r[1])
		if start >= len(label) {
			break
		}
		if end <= start {
			continue
		}
		if start > last {
			b.WriteString(rowStyle.Render(label[last:start]))
		}
		b.WriteString(matchStyle.Render(label[start:end]))
		last = end
	}
	if last < len(label) {
		b.WriteString(rowStyle.Render(label[last:]))
	}
	return b.String()
}

func (m *Model) renderDetail(width int) string {
	row := m.currentRow()
	inner := width - 4
	if inner < 8 {
		inner = 8
	}
	var b strings.Builder
	if row == nil {
		b.WriteString(mutedStyle.Render("no selection"))
	} else {
		b.WriteString(filterPromptStyle.Render(truncate(row.Label, inner)))
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("id: "))
		b.WriteString(truncate(string(row.ID), inner))
		if rec, ok := row.Payload.(*datasource.Record); ok && rec.Detail != "" {
			b.WriteString("\n\n")
			b.WriteString(wordWrap(rec.Detail, inner))
		}
		if row.Err != nil {
			b.WriteString("\n\n")
			b.WriteString(errorStyle.Render(row.Err.Error()))
		}
	}
	return detailStyle.Width(width - 2).Height(m.listHeight() - 2).Render(b.String())
}

func (m *Model) renderFilterLine() string {
	if m.filtering {
		return m.filterInput.View()
	}
	if m.eng.FilterActive() {
		return filterPromptStyle.Render("/"+m.eng.FilterQuery().Text) +
			mutedStyle.Render("  (esc to clear)")
	}
	return mutedStyle.Render("/ filter  ·  enter expand  ·  space select  ·  y yank  ·  q quit")
}

func (m *Model) renderStatusBar() string {
	parts := []string{
		fmt.Sprintf("%d/%d rows", m.cursor+1, m.eng.VisibleCount()),
		fmt.Sprintf("%d nodes", m.eng.NodeCount()),
	}
	if n := len(m.eng.SelectedIDs()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return statusBarStyle.Width(m.width).Render(truncate(strings.Join(parts, "  ·  "), m.width-2))
}

func (m *Model) renderConfirm() string {
	label := string(m.resetTarget)
	if n := m.eng.Node(m.resetTarget); n != nil {
		if row := m.currentRow(); row != nil && row.ID == m.resetTarget {
			label = row.Label
		}
	}
	body := fmt.Sprintf("Discard the loaded subtree under %q?\n\nCached children, pages and selections below it are dropped.\n\n[y] discard   [any other key] keep", label)
	box := confirmStyle.Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// wordWrap breaks text at spaces to fit width cells per line.
func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		wl := lipgloss.Width(word)
		if lineLen > 0 && lineLen+1+wl > width {
			b.WriteString("\n")
			lineLen = 0
		} else if i > 0 {
			b.WriteString(" ")
			lineLen++
		}
		b.WriteString(word)
		lineLen += wl
	}
	return b.String()
}
