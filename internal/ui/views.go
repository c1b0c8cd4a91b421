package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func (m Model) View() string {
	var body string
	switch m.state {
	case stateBrowse:
		body = m.viewBrowse()
	case stateProcessing:
		body = m.viewProcessing()
	case stateResult:
		body = m.viewResult()
	}
	if t := m.viewToasts(); t != "" {
		body += "\n" + t
	}
	return body
}

func (m Model) viewBrowse() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ tablegrab — image to table extraction"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("server: " + m.client.BaseURL()))
	s.WriteString("\n\n")

	pickerLabel := "Browse"
	listLabel := "Staged"
	if m.focusList {
		listLabel = SelectedStyle.Render("Staged ◂")
	} else {
		pickerLabel = SelectedStyle.Render("Browse ◂")
	}

	s.WriteString(pickerLabel)
	s.WriteString("\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n")

	staged := PaneStyle.Render(m.viewStagedList(listLabel))
	preview := PaneStyle.Render(m.viewPreview())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, staged, " ", preview))
	s.WriteString("\n")

	help := "enter: stage file • tab: switch pane • q: quit"
	if m.focusList {
		help = "↑/↓: navigate • x: remove • c: clear • tab: switch pane • q: quit"
	}
	if m.sess.CanProcess() {
		help = fmt.Sprintf("p: process %d file(s) • %s", m.sess.Len(), help)
	}
	s.WriteString(HelpStyle.Render(help))

	return s.String()
}

func (m Model) viewStagedList(label string) string {
	var s strings.Builder
	files := m.sess.Files()

	s.WriteString(fmt.Sprintf("%s (%d)\n", label, len(files)))
	if len(files) == 0 {
		s.WriteString(SubtitleStyle.Render("no files staged"))
		return s.String()
	}

	for i, f := range files {
		cursor := " "
		if m.focusList && m.cursor == i {
			cursor = ">"
		}
		line := fmt.Sprintf("%s %d. %s (%s)", cursor, i+1, f.Name, humanSize(f.Size))
		if m.focusList && m.cursor == i {
			line = SelectedStyle.Render(line)
		} else {
			line = UnselectedStyle.Render(line)
		}
		s.WriteString(line)
		if i < len(files)-1 {
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m Model) viewPreview() string {
	var s strings.Builder
	s.WriteString("Preview\n")

	first, ok := m.sess.First()
	if !ok {
		s.WriteString(SubtitleStyle.Render("no image staged"))
		return s.String()
	}

	s.WriteString(fmt.Sprintf("%s\n", first.Name))
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s • %s", first.MIME, humanSize(first.Size))))
	return s.String()
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Processing batch..."))
	s.WriteString("\n\n")
	s.WriteString(m.progMsg)
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())
	s.WriteString("\n\n")
	s.WriteString(SubtitleStyle.Render("requests run one at a time, in staged order"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Extraction complete"))
	s.WriteString("\n\n")

	if m.batch != nil {
		s.WriteString(SubtitleStyle.Render(fmt.Sprintf("%d file(s) processed — showing the first result", m.batch.FilesProcessed)))
		s.WriteString("\n\n")
	}

	if m.resultTable != "" {
		s.WriteString(m.resultTable)
		s.WriteString("\n")
	} else {
		s.WriteString(SubtitleStyle.Render("no table preview returned"))
		s.WriteString("\n")
	}

	s.WriteString(fmt.Sprintf("\nRows: %d   Columns: %d   Cells: %d\n", m.rowCount, m.colCount, m.rowCount*m.colCount))

	if m.artifactRef != "" {
		s.WriteString("\nSpreadsheet: ")
		s.WriteString(LinkStyle.Render(m.client.ResolveURL(m.artifactRef)))
		s.WriteString("\n")
	}

	s.WriteString(HelpStyle.Render("s: save spreadsheet • n: process another batch • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	var lines []string
	for _, t := range m.toasts {
		switch t.level {
		case toastError:
			lines = append(lines, ErrorStyle.Render("✗ "+t.text))
		case toastWarn:
			lines = append(lines, WarnStyle.Render("! "+t.text))
		case toastSuccess:
			lines = append(lines, SuccessStyle.Render("✓ "+t.text))
		default:
			lines = append(lines, SubtitleStyle.Render(t.text))
		}
	}
	return strings.Join(lines, "\n")
}

// renderGrid builds the result table from the preview grid. With more than
// one row the first row becomes the header; a single row renders as plain
// cells.
func renderGrid(grid [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(TableBorderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})

	if len(grid) > 1 {
		t.Headers(grid[0]...)
		t.Rows(grid[1:]...)
	} else {
		t.Rows(grid...)
	}
	return t.Render()
}

func humanSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
