package models

// Project is an ordered checklist of steps. Progress fields are derived from
// Steps and never stored.
type Project struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CreatedByID  int64  `json:"created_by_id"`
	Status       string `json:"status"`
	WaitingOn    string `json:"waiting_on"`
	BlockingTask string `json:"blocking_task"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`

	CreatedByName *string `json:"created_by_name,omitempty"`

	Steps           []ProjectStep `json:"steps"`
	TotalSteps      int           `json:"total_steps"`
	CompletedSteps  int           `json:"completed_steps"`
	ProgressPercent int           `json:"progress_percent"`
}

// ApplyStepStats fills the derived step counters.
func (p *Project) ApplyStepStats() {
	if p.Steps == nil {
		p.Steps = []ProjectStep{}
	}
	p.TotalSteps = len(p.Steps)
	p.CompletedSteps = 0
	for _, s := range p.Steps {
		if s.Status == StatusDone {
			p.CompletedSteps++
		}
	}
	p.ProgressPercent = ProgressPercent(int64(p.CompletedSteps), int64(p.TotalSteps))
}

// ProjectStep is one ordered step of a project.
type ProjectStep struct {
	ID           int64      `json:"id"`
	ProjectID    int64      `json:"project_id"`
	StepOrder    int        `json:"step_order"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	AssignedToID *int64     `json:"assigned_to_id"`
	Status       TaskStatus `json:"status"`
	CompletedAt  *string    `json:"completed_at"`
	CreatedAt    string     `json:"created_at"`
	UpdatedAt    string     `json:"updated_at"`

	AssignedToName  *string `json:"assigned_to_name,omitempty"`
	AssignedToEmail *string `json:"assigned_to_email,omitempty"`

	Assignees []Assignee `json:"assignees"`
}
