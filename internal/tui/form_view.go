package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/roadmap-survey/internal/roadmap"
)

const (
	logPanelLines     = 6
	checklistMinRows  = 6
	checklistChrome   = 34
	submissionMaxRows = 10
)

var (
	borderColor = lipgloss.Color("#444444")
	accentColor = lipgloss.Color("#5B8DEF")
	mutedColor  = lipgloss.Color("#AAAAAA")

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	labelStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderColor).Padding(0, 1)

	statusStyles = map[statusKind]lipgloss.Style{
		statusInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD")),
		statusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
		statusError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	inner := max(20, width-4)

	intro := lipgloss.NewStyle().Width(inner).Foreground(mutedColor).Render(a.variant.Intro())
	form := lipgloss.JoinVertical(lipgloss.Left,
		a.renderField(fieldName, "Name and Agency", a.nameInput.View()),
		"",
		sectionStyle.Render("Add or Select a Barrier"),
		a.renderField(fieldExisting, "Existing barrier", a.renderExisting()),
		a.renderField(fieldNewBarrier, "New barrier", a.newBarrier.View()),
		a.renderField(fieldAction, a.variant.ItemLabel(), a.actionInput.View()),
		a.renderButton(fieldAdd, fmt.Sprintf("Add Barrier/%s", a.variant.ItemLabel())),
	)
	sections := []string{
		headerStyle.Render("⬡ " + a.title),
		intro,
		boxStyle.Width(inner).Render(form),
		boxStyle.Width(inner).Render(a.renderChecklist(inner - 4)),
		boxStyle.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left,
			a.renderField(fieldComments, "Comments", ""),
			a.comments.View(),
			a.renderButton(fieldSubmit, "Submit Response"),
		)),
	}
	if a.submitted != nil {
		sections = append(sections, boxStyle.Width(inner).Render(a.renderSubmission()))
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.statusMsg != "" {
		sections = append(sections, statusStyles[a.statusKind].Render(a.statusMsg))
	}
	sections = append(sections, hintStyle.Render(a.keys.helpLine(
		a.keys.Next, a.keys.Prev, a.keys.Toggle, a.keys.Submit, a.keys.Quit,
	)))
	return strings.Join(sections, "\n")
}

func (a *App) renderField(f field, label, body string) string {
	marker := "  "
	style := labelStyle
	if a.focus == f {
		marker = "› "
		style = focusStyle
	}
	line := marker + style.Render(label)
	if body == "" {
		return line
	}
	return fmt.Sprintf("%s: %s", line, body)
}

func (a *App) renderButton(f field, label string) string {
	if a.focus == f {
		return focusStyle.Render(fmt.Sprintf("› [ %s ]", label))
	}
	return labelStyle.Render(fmt.Sprintf("  [ %s ]", label))
}

func (a *App) renderExisting() string {
	choice := a.selectedExisting()
	if choice == "" {
		choice = "(none)"
	}
	if a.focus == fieldExisting {
		return fmt.Sprintf("◀ %s ▶", choice)
	}
	return choice
}

// renderChecklist lists every barrier with its actions. In the action
// variant each action carries a checkbox; only a window around the cursor
// is drawn when the roadmap is taller than the screen.
func (a *App) renderChecklist(width int) string {
	rm := a.Roadmap()
	heading := "Current Barrier-" + a.variant.ItemLabel() + " List"
	if a.variant.SubmitsSelection() {
		heading = "Select Actions Your Agency Can Take"
	}
	title := a.sectionTitle(fieldChecklist, heading)

	var lines []string
	cursorLine := 0
	idx := 0
	for _, barrier := range rm.Barriers() {
		lines = append(lines, lipgloss.NewStyle().Bold(true).Render(barrier))
		actions, _ := rm.ActionsFor(barrier)
		for _, action := range actions {
			pair := roadmap.Pair{Barrier: barrier, Action: action}
			prefix := "  • "
			if a.variant.SubmitsSelection() {
				box := "[ ]"
				if a.isChecked(pair) {
					box = "[x]"
				}
				prefix = "  " + box + " "
			}
			line := prefix + action
			if a.focus == fieldChecklist && idx == a.cursor {
				line = focusStyle.Render(line)
				cursorLine = len(lines)
			}
			lines = append(lines, line)
			idx++
		}
	}
	if len(lines) == 0 {
		lines = []string{labelStyle.Render("No barriers yet. Add one above.")}
	}
	rows := checklistMinRows
	if a.height > 0 {
		rows = max(checklistMinRows, a.height-checklistChrome)
	}
	start, end := visibleRange(cursorLine, len(lines), rows)
	body := strings.Join(lines[start:end], "\n")
	if hidden := len(lines) - (end - start); hidden > 0 {
		body += "\n" + labelStyle.Render(fmt.Sprintf("… %d more line(s)", hidden))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.NewStyle().Width(max(20, width)).Render(body))
}

func (a *App) sectionTitle(f field, text string) string {
	if a.focus == f {
		return focusStyle.Render("› " + text)
	}
	return sectionStyle.Render(text)
}

func (a *App) renderSubmission() string {
	rec := a.submitted
	lines := []string{sectionStyle.Render("Your Submission"), strings.Join(rec.Columns, " | ")}
	for i, row := range rec.Rows {
		if i == submissionMaxRows {
			lines = append(lines, labelStyle.Render(fmt.Sprintf("… %d more row(s)", len(rec.Rows)-i)))
			break
		}
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

// visibleRange returns the [start, end) window of size rows that keeps focus
// in view.
func visibleRange(focus, total, rows int) (int, int) {
	if total <= rows {
		return 0, total
	}
	start := focus - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > total {
		start = total - rows
	}
	return start, start + rows
}
