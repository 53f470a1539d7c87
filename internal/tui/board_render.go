package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
)

// truncateLabel shortens s to width display cells, keeping ANSI sequences
// intact.
func truncateLabel(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, config.TruncationSuffix)
}

func padRight(s string, width int) string {
	if w := ansi.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func (m BoardModel) titleWidth() int {
	if m.width <= 0 {
		return config.TargetTitleWidth
	}
	w := m.width - config.ProgressBarWidth - 16
	if w > config.TargetTitleWidth {
		w = config.TargetTitleWidth
	}
	if w < config.MinTitleWidth {
		w = config.MinTitleWidth
	}
	return w
}

func (m BoardModel) compact() bool {
	return m.width > 0 && m.width < config.CompactModeThreshold
}

func (m BoardModel) periodLabel() string {
	if m.goalType == models.GoalAnnual {
		return "Annual goals " + m.period
	}
	return "Monthly goals " + m.period
}

// summary reports the goal count, completed count and mean progress of
// goals.
func summary(goals []models.Goal) (total, done, avg int) {
	if len(goals) == 0 {
		return 0, 0, 0
	}
	sum := 0
	for _, g := range goals {
		sum += g.ProgressPercent
		if g.IsComplete == 1 {
			done++
		}
	}
	return len(goals), done, sum / len(goals)
}

// boardLines renders the goal rows and returns the index of the line the
// cursor sits on.
func (m BoardModel) boardLines() ([]string, int) {
	theme := CurrentTheme
	goals := m.visibleGoals()
	titleW := m.titleWidth()

	var (
		lines      []string
		cursorLine int
		category   = "\x00"
	)
	for i, g := range goals {
		if g.Category != category {
			category = g.Category
			name := category
			if name == "" {
				name = "Uncategorized"
			}
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, theme.Category.Render(name))
		}

		marker := "  "
		if i == m.cursor {
			marker = theme.Focused.Render("> ")
			cursorLine = len(lines)
		}
		check := "[ ]"
		style := theme.Goal
		if g.IsComplete == 1 {
			check = "[x]"
			style = theme.CompletedGoal
		}
		title := style.Render(padRight(truncateLabel(g.Title, titleW), titleW))

		row := fmt.Sprintf("%s%s %s", marker, check, title)
		if !m.compact() {
			row += " " + m.progress.ViewAs(float64(g.ProgressPercent)/100)
		}
		row += fmt.Sprintf(" %3d%%", g.ProgressPercent)
		if g.OwnerName != nil && m.ownerID == 0 && !m.compact() {
			row += " " + theme.Dim.Render(*g.OwnerName)
		}
		lines = append(lines, row)

		if m.expanded[g.ID] {
			lines = append(lines, m.subtaskLines(g.ID, titleW)...)
		}
	}
	return lines, cursorLine
}

func (m BoardModel) subtaskLines(goalID int64, width int) []string {
	theme := CurrentTheme
	subs, ok := m.subtasks[goalID]
	if !ok {
		return []string{theme.Dim.Render("      loading…")}
	}
	if len(subs) == 0 {
		return []string{theme.Dim.Render("      no subtasks")}
	}
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		check, style := "[ ]", theme.Subtask
		switch s.Status {
		case models.StatusDone:
			check, style = "[x]", theme.DoneSubtask
		case models.StatusInProgress:
			check = "[~]"
		case models.StatusCouldNotComplete:
			check, style = "[-]", theme.DoneSubtask
		}
		label := truncateLabel(s.Title, width-2)
		out = append(out, fmt.Sprintf("      %s %s %s", check, style.Render(label), theme.Dim.Render(fmt.Sprintf("w%d", s.Weight))))
	}
	return out
}

func (m BoardModel) View() string {
	theme := CurrentTheme
	var b strings.Builder

	total, done, avg := summary(m.goals)
	header := theme.Header.Render(m.periodLabel())
	if m.ownerID != 0 {
		header += theme.Dim.Render(fmt.Sprintf("  owner #%d", m.ownerID))
	}
	b.WriteString(header + "\n")
	b.WriteString(theme.Dim.Render(fmt.Sprintf("%d goals  %d complete  %d%% average", total, done, avg)) + "\n\n")

	switch {
	case m.err != nil:
		b.WriteString(theme.Error.Render("Error: "+m.err.Error()) + "\n")
	case m.loading:
		b.WriteString(theme.Dim.Render("Loading goals…") + "\n")
	case len(m.visibleGoals()) == 0 && m.query != "":
		b.WriteString(theme.Dim.Render(fmt.Sprintf("No goals match %q.", m.query)) + "\n")
	case len(m.goals) == 0:
		b.WriteString(theme.Dim.Render("No goals for this period.") + "\n")
	default:
		lines, cursorLine := m.boardLines()
		b.WriteString(strings.Join(m.window(lines, cursorLine), "\n") + "\n")
	}

	if m.mode == modeFilter {
		b.WriteString("\n" + theme.Input.Render(m.filter.View()) + "\n")
	} else if m.query != "" {
		b.WriteString("\n" + theme.Dim.Render("filter: "+m.query) + "\n")
	}
	b.WriteString("\n" + theme.Dim.Render(m.registry.HelpFor(m.mode)))

	out := theme.Base.Render(b.String())
	if m.width > 0 {
		out = lipgloss.NewStyle().MaxWidth(m.width).Render(out)
	}
	return out
}

// window keeps the cursor line on screen when the board is taller than the
// terminal.
func (m BoardModel) window(lines []string, cursorLine int) []string {
	avail := m.height - config.BoardChromeLines
	if m.height <= 0 || avail <= 0 || len(lines) <= avail {
		return lines
	}
	start := 0
	if cursorLine >= avail {
		start = cursorLine - avail + 1
	}
	end := start + avail
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start:end]
}
