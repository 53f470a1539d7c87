package models

import (
	"encoding/json"
	"strconv"
)

// GoalType selects the monthly or annual goal table.
type GoalType string

const (
	GoalMonthly GoalType = "monthly"
	GoalAnnual  GoalType = "annual"
)

func (t GoalType) Valid() bool {
	return t == GoalMonthly || t == GoalAnnual
}

// Goal is a monthly or annual goal. Period holds the month key (YYYY-MM) for
// monthly goals and the year for annual goals.
type Goal struct {
	ID              int64    `json:"id"`
	Type            GoalType `json:"-"`
	OwnerID         int64    `json:"owner_id"`
	Period          string   `json:"-"`
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ProgressPercent int      `json:"progress_percent"`
	ProgressNote    string   `json:"progress_note"`
	IsComplete      int      `json:"is_complete"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`

	OwnerName  *string `json:"owner_name,omitempty"`
	OwnerEmail *string `json:"owner_email,omitempty"`
}

// MarshalJSON emits the period as month_key for monthly goals and as year
// for annual goals.
func (g Goal) MarshalJSON() ([]byte, error) {
	type plain Goal
	out := struct {
		plain
		MonthKey string `json:"month_key,omitempty"`
		Year     any    `json:"year,omitempty"`
	}{plain: plain(g)}
	switch g.Type {
	case GoalAnnual:
		if n, err := strconv.Atoi(g.Period); err == nil {
			out.Year = n
		} else {
			out.Year = g.Period
		}
	default:
		out.MonthKey = g.Period
	}
	return json.Marshal(out)
}

// GoalCategory lets an owner rename and reorder the category buckets of a
// goal period.
type GoalCategory struct {
	ID           int64   `json:"id"`
	Type         string  `json:"type"`
	PeriodKey    string  `json:"period_key"`
	OriginalName string  `json:"original_name"`
	CustomName   *string `json:"custom_name"`
	OwnerID      int64   `json:"owner_id"`
	DisplayOrder int     `json:"display_order"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// GoalSubtask is a weighted unit of work that drives its goal's progress.
type GoalSubtask struct {
	ID           int64      `json:"id"`
	GoalType     GoalType   `json:"goal_type"`
	GoalID       int64      `json:"goal_id"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes"`
	Status       TaskStatus `json:"status"`
	Weight       int        `json:"weight"`
	LinkedTaskID *int64     `json:"linked_task_id"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
	CompletedAt  *string    `json:"completed_at"`

	LinkedTaskTitle  *string `json:"linked_task_title,omitempty"`
	LinkedTaskStatus *string `json:"linked_task_status,omitempty"`
}

// ProgressPercent is the weighted completion of a goal's subtasks.
func ProgressPercent(doneWeight, totalWeight int64) int {
	if totalWeight <= 0 {
		return 0
	}
	// round half up
	return int((200*doneWeight + totalWeight) / (2 * totalWeight))
}
