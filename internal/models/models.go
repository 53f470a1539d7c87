package models

import "encoding/json"

// TaskStatus enumerates the lifecycle of daily tasks, subtasks and steps.
type TaskStatus string

const (
	StatusPending          TaskStatus = "pending"
	StatusInProgress       TaskStatus = "in_progress"
	StatusDone             TaskStatus = "done"
	StatusCouldNotComplete TaskStatus = "could_not_complete"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusCouldNotComplete:
		return true
	}
	return false
}

// User is a staff member of the association.
type User struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	IsActive  int     `json:"is_active"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
}

// Assignee is the user summary attached to tasks and steps.
type Assignee struct {
	ID    int64   `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// DailyTask is a calendar task. AssignedToID is the primary assignee and is
// always present in Assignees.
type DailyTask struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"title"`
	Notes              string     `json:"notes"`
	TaskDate           string     `json:"task_date"`
	TaskTime           *string    `json:"task_time"`
	CreatedByID        int64      `json:"created_by_id"`
	AssignedToID       int64      `json:"assigned_to_id"`
	AssignedByID       int64      `json:"assigned_by_id"`
	AssignedAt         *string    `json:"assigned_at"`
	Status             TaskStatus `json:"status"`
	CompletedAt        *string    `json:"completed_at"`
	CompletionNotified int        `json:"completion_notified"`
	CreatedAt          string     `json:"created_at"`
	UpdatedAt          string     `json:"updated_at"`

	CreatedByName   *string `json:"created_by_name,omitempty"`
	AssignedToName  *string `json:"assigned_to_name,omitempty"`
	AssignedToEmail *string `json:"assigned_to_email,omitempty"`
	AssignedByName  *string `json:"assigned_by_name,omitempty"`
	AssignedByEmail *string `json:"assigned_by_email,omitempty"`

	Assignees []Assignee     `json:"assignees"`
	Subtasks  []DailySubtask `json:"subtasks"`
}

// DailySubtask is a checklist item under a daily task.
type DailySubtask struct {
	ID           int64      `json:"id"`
	TaskID       int64      `json:"task_id"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes"`
	DueDate      *string    `json:"due_date"`
	Status       TaskStatus `json:"status"`
	AssignedToID *int64     `json:"assigned_to_id"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`
	CompletedAt  *string    `json:"completed_at"`

	AssignedToName  *string `json:"assigned_to_name,omitempty"`
	AssignedToEmail *string `json:"assigned_to_email,omitempty"`
}

// WeeklyTask is a lightweight task keyed by ISO week ("2025-W07").
type WeeklyTask struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes"`
	WeekKey      string     `json:"week_key"`
	AssignedToID int64      `json:"assigned_to_id"`
	AssignedByID *int64     `json:"assigned_by_id"`
	Status       TaskStatus `json:"status"`
	Priority     int        `json:"priority"`
	CompletedAt  *string    `json:"completed_at"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`

	AssignedToName *string `json:"assigned_to_name,omitempty"`
	AssignedByName *string `json:"assigned_by_name,omitempty"`
}

// Preferences holds per-user UI settings. SectionOrder is opaque JSON.
type Preferences struct {
	UserID            int64           `json:"user_id"`
	Theme             string          `json:"theme"`
	CalendarView      string          `json:"calendar_view"`
	SectionOrder      json.RawMessage `json:"section_order"`
	EnableWeeklyTasks int             `json:"enable_weekly_tasks"`
	UpdatedAt         *string         `json:"updated_at,omitempty"`
}
