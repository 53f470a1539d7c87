package tui

import (
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyHandler reacts to one key press. handled is false to let a lower
// priority binding for the same key run instead.
type KeyHandler func(m BoardModel, key string) (next BoardModel, cmd tea.Cmd, handled bool)

type KeyBinding struct {
	Keys        []string
	Handler     KeyHandler
	Description string
	Modes       []viewMode
	Priority    int
}

func (b KeyBinding) appliesTo(mode viewMode) bool {
	if len(b.Modes) == 0 {
		return true
	}
	for _, v := range b.Modes {
		if v == mode {
			return true
		}
	}
	return false
}

func (b KeyBinding) matches(key string) bool {
	for _, k := range b.Keys {
		if k == key {
			return true
		}
	}
	return false
}

type HandlerRegistry struct {
	bindings []KeyBinding
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

func (r *HandlerRegistry) Register(b KeyBinding) {
	r.bindings = append(r.bindings, b)
	sort.SliceStable(r.bindings, func(i, j int) bool {
		return r.bindings[i].Priority > r.bindings[j].Priority
	})
}

func (r *HandlerRegistry) Handle(m BoardModel, key string) (BoardModel, tea.Cmd, bool) {
	for _, b := range r.bindings {
		if b.matches(key) && b.appliesTo(m.mode) {
			next, cmd, handled := b.Handler(m, key)
			if handled {
				return next, cmd, true
			}
		}
	}
	return m, nil, false
}

// HelpFor renders the described bindings of mode as "[key]desc" pairs.
func (r *HandlerRegistry) HelpFor(mode viewMode) string {
	seen := make(map[string]bool)
	var parts []string
	for _, b := range r.bindings {
		if b.Description == "" || !b.appliesTo(mode) || len(b.Keys) == 0 {
			continue
		}
		label := strings.Join(b.Keys, "/")
		if seen[label] {
			continue
		}
		seen[label] = true
		parts = append(parts, "["+label+"] "+b.Description)
	}
	return strings.Join(parts, "  ")
}
