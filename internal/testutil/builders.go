package testutil

import (
	"time"

	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

// DailyTaskBuilder provides fluent API for creating test daily tasks.
type DailyTaskBuilder struct {
	task models.DailyTask
}

func NewDailyTask() *DailyTaskBuilder {
	now := util.NowISO(time.Now())
	return &DailyTaskBuilder{
		task: models.DailyTask{
			ID:           1,
			Title:        "Test Task",
			TaskDate:     now[:10],
			CreatedByID:  1,
			AssignedToID: 1,
			AssignedByID: 1,
			Status:       models.StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
			Assignees:    []models.Assignee{},
			Subtasks:     []models.DailySubtask{},
		},
	}
}

func (b *DailyTaskBuilder) WithTitle(title string) *DailyTaskBuilder {
	b.task.Title = title
	return b
}

// AssignedTo sets the assignee with a display name and email.
func (b *DailyTaskBuilder) AssignedTo(id int64, name, email string) *DailyTaskBuilder {
	b.task.AssignedToID = id
	b.task.AssignedToName = &name
	b.task.AssignedToEmail = &email
	return b
}

// AssignedBy sets the assigner with a display name and email.
func (b *DailyTaskBuilder) AssignedBy(id int64, name, email string) *DailyTaskBuilder {
	b.task.AssignedByID = id
	b.task.AssignedByName = &name
	b.task.AssignedByEmail = &email
	return b
}

func (b *DailyTaskBuilder) Build() models.DailyTask {
	return b.task
}

// GoalBuilder provides fluent API for creating test goals.
type GoalBuilder struct {
	goal models.Goal
}

func NewGoal() *GoalBuilder {
	now := util.NowISO(time.Now())
	return &GoalBuilder{
		goal: models.Goal{
			ID:        1,
			Type:      models.GoalMonthly,
			OwnerID:   1,
			Period:    util.MonthKey(time.Now()),
			Category:  "Operations",
			Title:     "Test Goal",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func (b *GoalBuilder) WithID(id int64) *GoalBuilder {
	b.goal.ID = id
	return b
}

func (b *GoalBuilder) WithTitle(title string) *GoalBuilder {
	b.goal.Title = title
	return b
}

func (b *GoalBuilder) WithCategory(c string) *GoalBuilder {
	b.goal.Category = c
	return b
}

func (b *GoalBuilder) WithProgress(p int) *GoalBuilder {
	b.goal.ProgressPercent = p
	return b
}

func (b *GoalBuilder) Annual(year string) *GoalBuilder {
	b.goal.Type = models.GoalAnnual
	b.goal.Period = year
	return b
}

func (b *GoalBuilder) Complete() *GoalBuilder {
	b.goal.IsComplete = 1
	b.goal.ProgressPercent = 100
	return b
}

func (b *GoalBuilder) Build() models.Goal {
	return b.goal
}

// LogsFormBuilder provides fluent API for creating LOGS form submissions.
type LogsFormBuilder struct {
	form models.LogsForm
}

// NewLogsForm returns a form that passes validation.
func NewLogsForm() *LogsFormBuilder {
	return &LogsFormBuilder{
		form: models.LogsForm{
			FirstName:           "Jane",
			LastName:            "Doe",
			Organization:        "Gulf Coast Realty",
			DropMemberships:     []string{"REALTOR"},
			DropWhen:            "Immediately",
			ChangeReasons:       []string{"Retiring"},
			NewBrokerInterested: "No",
			NeedsLetter:         "Yes",
			CancelSupra:         "No",
			HasListings:         "No",
		},
	}
}

func (b *LogsFormBuilder) WithName(first, last string) *LogsFormBuilder {
	b.form.FirstName = first
	b.form.LastName = last
	return b
}

func (b *LogsFormBuilder) WithNRDS(id string) *LogsFormBuilder {
	b.form.NRDSID = id
	return b
}

func (b *LogsFormBuilder) WithReasons(reasons ...string) *LogsFormBuilder {
	b.form.ChangeReasons = reasons
	return b
}

func (b *LogsFormBuilder) WithAnswers(broker, letter, supra, listings string) *LogsFormBuilder {
	b.form.NewBrokerInterested = broker
	b.form.NeedsLetter = letter
	b.form.CancelSupra = supra
	b.form.HasListings = listings
	return b
}

func (b *LogsFormBuilder) Build() models.LogsForm {
	return b.form
}

// MemberRowBuilder provides fluent API for roster upload rows.
type MemberRowBuilder struct {
	row models.MemberRow
}

func NewMemberRow(fullName string) *MemberRowBuilder {
	status := "Active"
	return &MemberRowBuilder{
		row: models.MemberRow{
			FullName:         &fullName,
			MembershipStatus: &status,
		},
	}
}

func (b *MemberRowBuilder) WithNRDS(id string) *MemberRowBuilder {
	v := models.FlexString(id)
	b.row.NRDSID = &v
	return b
}

func (b *MemberRowBuilder) WithOffice(name string) *MemberRowBuilder {
	b.row.OfficeName = &name
	return b
}

func (b *MemberRowBuilder) Build() models.MemberRow {
	return b.row
}

// OfficeBuilder provides fluent API for office sync inputs.
type OfficeBuilder struct {
	office models.OfficeInput
}

func NewOffice(contactID int64, name string) *OfficeBuilder {
	return &OfficeBuilder{
		office: models.OfficeInput{
			ContactID:    models.FlexInt64(contactID),
			Name:         name,
			MemberStatus: "Active",
		},
	}
}

func (b *OfficeBuilder) WithNRDS(id string) *OfficeBuilder {
	b.office.NRDSID = id
	return b
}

func (b *OfficeBuilder) WithMLS(id string) *OfficeBuilder {
	b.office.MLSID = id
	return b
}

func (b *OfficeBuilder) WithStatus(s string) *OfficeBuilder {
	b.office.MemberStatus = s
	return b
}

func (b *OfficeBuilder) WithCity(city string) *OfficeBuilder {
	b.office.AddressCity = city
	return b
}

func (b *OfficeBuilder) Build() models.OfficeInput {
	return b.office
}
