// Package tui is the read-only terminal goal board: a month's (or year's)
// goals grouped by category with weighted progress bars and expandable
// subtasks.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/models"
)

// GoalStore is the read side of the goal repository the board needs.
type GoalStore interface {
	ListGoals(ctx context.Context, t models.GoalType, period string, ownerID int64) ([]models.Goal, error)
	ListGoalSubtasks(ctx context.Context, t models.GoalType, goalID int64) ([]models.GoalSubtask, error)
}

type viewMode int

const (
	modeBoard viewMode = iota
	modeFilter
)

type goalsLoadedMsg struct {
	goals []models.Goal
	err   error
}

type subtasksLoadedMsg struct {
	goalID   int64
	subtasks []models.GoalSubtask
	err      error
}

// BoardModel is the bubbletea model of the goal board.
type BoardModel struct {
	ctx      context.Context
	store    GoalStore
	goalType models.GoalType
	period   string
	ownerID  int64

	goals    []models.Goal
	subtasks map[int64][]models.GoalSubtask
	expanded map[int64]bool
	cursor   int

	mode     viewMode
	filter   textinput.Model
	query    string
	progress progress.Model
	registry *HandlerRegistry

	loading bool
	err     error
	width   int
	height  int
}

// NewBoardModel builds a board for one goal period. ownerID 0 shows every
// owner.
func NewBoardModel(ctx context.Context, store GoalStore, t models.GoalType, period string, ownerID int64) BoardModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter by title or category"
	ti.CharLimit = config.MaxFilterLength
	ti.Width = 40

	m := BoardModel{
		ctx:      ctx,
		store:    store,
		goalType: t,
		period:   period,
		ownerID:  ownerID,
		subtasks: map[int64][]models.GoalSubtask{},
		expanded: map[int64]bool{},
		filter:   ti,
		progress: progress.New(
			progress.WithGradient(CurrentTheme.ProgressFrom, CurrentTheme.ProgressTo),
			progress.WithoutPercentage(),
			progress.WithWidth(config.ProgressBarWidth),
		),
		registry: boardBindings(),
		loading:  true,
	}
	return m
}

func (m BoardModel) Init() tea.Cmd {
	return m.loadGoals()
}

func (m BoardModel) loadGoals() tea.Cmd {
	store, ctx := m.store, m.ctx
	t, period, owner := m.goalType, m.period, m.ownerID
	return func() tea.Msg {
		goals, err := store.ListGoals(ctx, t, period, owner)
		return goalsLoadedMsg{goals: goals, err: err}
	}
}

func (m BoardModel) loadSubtasks(goalID int64) tea.Cmd {
	store, ctx, t := m.store, m.ctx, m.goalType
	return func() tea.Msg {
		subs, err := store.ListGoalSubtasks(ctx, t, goalID)
		return subtasksLoadedMsg{goalID: goalID, subtasks: subs, err: err}
	}
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case goalsLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.goals = msg.goals
			m.subtasks = map[int64][]models.GoalSubtask{}
			var reload []tea.Cmd
			for id := range m.expanded {
				reload = append(reload, m.loadSubtasks(id))
			}
			m.clampCursor()
			return m, tea.Batch(reload...)
		}
		return m, nil

	case subtasksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.subtasks[msg.goalID] = msg.subtasks
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if next, cmd, ok := m.registry.Handle(m, key); ok {
			return next, cmd
		}
		if m.mode == modeFilter {
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.query = strings.TrimSpace(m.filter.Value())
			m.clampCursor()
			return m, cmd
		}
	}
	return m, nil
}

// visibleGoals returns the goals matching the current filter, in store order.
func (m BoardModel) visibleGoals() []models.Goal {
	if m.query == "" {
		return m.goals
	}
	q := strings.ToLower(m.query)
	var out []models.Goal
	for _, g := range m.goals {
		if strings.Contains(strings.ToLower(g.Title), q) || strings.Contains(strings.ToLower(g.Category), q) {
			out = append(out, g)
		}
	}
	return out
}

func (m *BoardModel) clampCursor() {
	n := len(m.visibleGoals())
	switch {
	case n == 0:
		m.cursor = 0
	case m.cursor >= n:
		m.cursor = n - 1
	case m.cursor < 0:
		m.cursor = 0
	}
}

// selected returns the goal under the cursor.
func (m BoardModel) selected() (models.Goal, bool) {
	goals := m.visibleGoals()
	if m.cursor < 0 || m.cursor >= len(goals) {
		return models.Goal{}, false
	}
	return goals[m.cursor], true
}

func boardBindings() *HandlerRegistry {
	r := NewHandlerRegistry()
	board := []viewMode{modeBoard}

	r.Register(KeyBinding{Keys: []string{"ctrl+c"}, Priority: 100, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		return m, tea.Quit, true
	}})
	r.Register(KeyBinding{Keys: []string{"q"}, Description: "quit", Modes: board, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		return m, tea.Quit, true
	}})
	r.Register(KeyBinding{Keys: []string{"j", "down"}, Description: "down", Modes: board, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		m.cursor++
		m.clampCursor()
		return m, nil, true
	}})
	r.Register(KeyBinding{Keys: []string{"k", "up"}, Description: "up", Modes: board, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		m.cursor--
		m.clampCursor()
		return m, nil, true
	}})
	r.Register(KeyBinding{Keys: []string{"enter", " "}, Description: "subtasks", Modes: board, Handler: toggleExpand})
	r.Register(KeyBinding{Keys: []string{"r"}, Description: "reload", Modes: board, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		m.loading = true
		m.err = nil
		return m, m.loadGoals(), true
	}})
	r.Register(KeyBinding{Keys: []string{"/"}, Description: "filter", Modes: board, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		m.mode = modeFilter
		m.filter.SetValue(m.query)
		m.filter.Focus()
		return m, textinput.Blink, true
	}})
	r.Register(KeyBinding{Keys: []string{"esc"}, Description: "clear filter", Modes: board, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		if m.query == "" {
			return m, nil, false
		}
		m.query = ""
		m.filter.SetValue("")
		m.clampCursor()
		return m, nil, true
	}})

	filter := []viewMode{modeFilter}
	r.Register(KeyBinding{Keys: []string{"enter"}, Description: "apply", Modes: filter, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		m.mode = modeBoard
		m.filter.Blur()
		return m, nil, true
	}})
	r.Register(KeyBinding{Keys: []string{"esc"}, Description: "cancel", Modes: filter, Handler: func(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
		m.mode = modeBoard
		m.query = ""
		m.filter.SetValue("")
		m.filter.Blur()
		m.clampCursor()
		return m, nil, true
	}})
	return r
}

func toggleExpand(m BoardModel, _ string) (BoardModel, tea.Cmd, bool) {
	g, ok := m.selected()
	if !ok {
		return m, nil, true
	}
	if m.expanded[g.ID] {
		delete(m.expanded, g.ID)
		return m, nil, true
	}
	m.expanded[g.ID] = true
	if _, loaded := m.subtasks[g.ID]; loaded {
		return m, nil, true
	}
	return m, m.loadSubtasks(g.ID), true
}
