package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Monochrome adaptive theme, readable on light and dark terminals.
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	flashStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#996600", Dark: "#ffcc00"}).
			Background(bgBase)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Bold(true)

	errorTextStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#aa0000", Dark: "#ff6666"})

	dimStyle = lipgloss.NewStyle().
			Faint(true)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	switch m.modal {
	case modalHelp:
		return m.overlay(m.renderHelp())
	case modalViewPicker:
		return m.overlay(m.renderViewPicker())
	case modalSaveAs:
		return m.overlay(m.renderSaveDialog())
	}

	if m.level == levelDetail {
		return m.renderDetail()
	}
	return m.renderList()
}

// overlay centers a modal over an empty background.
func (m Model) overlay(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// renderTitleBar shows the app name and the filter context: the saved view
// name with a dirty marker, or the ad-hoc filter's description.
func (m Model) renderTitleBar() string {
	title := "paperdeck"
	if m.version != "" {
		title += " " + m.version
	}

	context := ""
	if id := m.list.ActiveSavedViewID(); id != nil {
		context = m.list.ActiveSavedViewTitle()
		if m.ctrl.IsDirty() {
			context += " *"
		}
	} else if name := m.editor.GenerateFilterName(); name != "" {
		context = name
	} else {
		context = "All documents"
	}

	left := titleBarStyle.Render(title)
	right := titleBarStyle.Render(truncateCell(context, m.width/2))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return padCell(left, m.width)
	}
	filler := titleBarStyle.Render(strings.Repeat(" ", gap))
	return left + filler + right
}

// columnWidths splits the table width among Title, Correspondent, Type,
// and Created.
func (m Model) columnWidths() (sel, title, corr, typ, created int) {
	sel = 2
	created = 10
	rest := m.width - sel - created - 3 // column gaps
	if rest < 12 {
		rest = 12
	}
	title = rest * 5 / 10
	corr = rest * 3 / 10
	typ = rest - title - corr
	return sel, title, corr, typ, created
}

func (m Model) renderList() string {
	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteString("\n")

	selW, titleW, corrW, typW, createdW := m.columnWidths()

	header := fmt.Sprintf("%s %s %s %s %s",
		padCell("", selW),
		padCell("Title", titleW),
		padCell("Correspondent", corrW),
		padCell("Type", typW),
		padCell("Created", createdW))
	b.WriteString(tableHeaderStyle.Render(padCell(header, m.width)))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	docs := m.list.Documents()
	if len(docs) == 0 {
		b.WriteString(dimStyle.Render("  No documents match the current filter"))
		b.WriteString("\n")
	}

	end := m.scrollOffset + m.pageSize
	if end > len(docs) {
		end = len(docs)
	}
	sel := m.list.Selection()
	for i := m.scrollOffset; i < end; i++ {
		doc := docs[i]
		mark := " "
		if sel.IsSelected(doc.ID) {
			mark = "✓"
		}
		row := fmt.Sprintf("%s %s %s %s %s",
			padCell(mark, selW),
			padCell(truncateCell(doc.Title, titleW), titleW),
			padCell(truncateCell(doc.Correspondent, corrW), corrW),
			padCell(truncateCell(doc.DocumentType, typW), typW),
			padCell(formatDate(doc.Created), createdW))
		row = padCell(row, m.width)

		switch {
		case i == m.cursor:
			b.WriteString(cursorRowStyle.Render(row))
		case sel.IsSelected(doc.ID):
			b.WriteString(selectedRowStyle.Render(row))
		default:
			b.WriteString(normalRowStyle.Render(row))
		}
		b.WriteString("\n")
	}

	if m.filterActive {
		b.WriteString("/" + m.filterInput.View())
		b.WriteString("\n")
	}

	b.WriteString(m.renderFooter(len(docs)))
	return b.String()
}

func (m Model) renderFooter(total int) string {
	if m.flashMessage != "" {
		return flashStyle.Render(" " + m.flashMessage)
	}

	var parts []string
	if total > 0 {
		parts = append(parts, fmt.Sprintf("%d-%d of %d",
			m.scrollOffset+1, min(m.scrollOffset+m.pageSize, total), total))
	} else {
		parts = append(parts, "0 documents")
	}
	if n := m.list.Selection().Count(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	parts = append(parts, "/ filter", "v views", "s save", "? help", "q quit")
	return footerStyle.Render(truncateCell(strings.Join(parts, "  ·  "), m.width-2))
}

func (m Model) renderDetail() string {
	if m.detail == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.renderTitleBar())
	b.WriteString("\n")
	b.WriteString(tableHeaderStyle.Render(padCell(" "+m.detail.Title, m.width)))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	meta := fmt.Sprintf("Created %s  ·  Added %s",
		formatDate(m.detail.Created), formatDate(m.detail.Added))
	if m.detail.ArchiveSerialNumber != nil {
		meta += fmt.Sprintf("  ·  ASN %d", *m.detail.ArchiveSerialNumber)
	}
	b.WriteString(dimStyle.Render(" " + meta))
	b.WriteString("\n\n")

	lines := wrapText(m.detail.Content, m.width-2)
	start := m.detailScroll
	if start > len(lines) {
		start = len(lines)
	}
	end := start + m.pageSize
	if end > len(lines) {
		end = len(lines)
	}
	for _, line := range lines[start:end] {
		b.WriteString(" " + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("esc back  ·  j/k scroll"))
	return b.String()
}

func (m Model) renderViewPicker() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Saved views"))
	b.WriteString("\n\n")

	render := func(i int, label string) {
		prefix := "  "
		if i == m.pickerCursor {
			prefix = "> "
		}
		b.WriteString(prefix + label + "\n")
	}
	render(0, "All documents")
	for i, v := range m.pickerViews {
		label := v.Name
		if active := m.list.ActiveSavedViewID(); active != nil && *active == v.ID {
			label += "  (active)"
		}
		render(i+1, label)
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter open  ·  x delete  ·  esc close"))
	return modalStyle.Render(b.String())
}

func (m Model) renderSaveDialog() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Save view"))
	b.WriteString("\n\n")
	if m.saveErr != "" {
		b.WriteString(errorTextStyle.Render(m.saveErr))
		b.WriteString("\n\n")
	}
	if m.saveForm != nil {
		b.WriteString(m.saveForm.View())
	}
	return modalStyle.Render(b.String())
}

func (m Model) renderHelp() string {
	rows := []struct{ key, action string }{
		{"j/k, up/down", "move cursor"},
		{"g/G", "first / last document"},
		{"space", "toggle selection"},
		{"V", "select range to cursor"},
		{"esc", "clear selection / clear filter"},
		{"enter", "open document"},
		{"/", "full-text filter"},
		{"t / c / d", "filter by document's tags / correspondent / type"},
		{"m", "more like this"},
		{"o", "cycle sort order"},
		{"v", "saved views"},
		{"s / S", "save view / save as new view"},
		{"r", "refresh"},
		{"q", "quit"},
	}

	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s %s\n", padCell(r.key, 16), r.action))
	}
	return modalStyle.Render(b.String())
}
