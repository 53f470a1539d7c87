package database

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/berealtors/wrapsheet/internal/models"
)

func TestProjects_StepsProgressAndDuplicate(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	owner := seedUser(t, ctx, db, "Owner", "owner@example.com")
	helper := seedUser(t, ctx, db, "Helper", "helper@example.com")

	p, err := db.CreateProject(ctx, ProjectInput{Title: "Gala", CreatedByID: models.FlexInt64(owner.ID)})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.Status != "active" || p.TotalSteps != 0 || p.ProgressPercent != 0 {
		t.Fatalf("unexpected new project: %+v", p)
	}

	primary := models.FlexInt64(owner.ID)
	first, err := db.CreateProjectStep(ctx, p.ID, ProjectStepInput{
		Title: "Book venue", AssignedToID: &primary, AssigneeIDs: models.IDList{helper.ID},
	})
	if err != nil {
		t.Fatalf("CreateProjectStep failed: %v", err)
	}
	if first.StepOrder != 999 {
		t.Fatalf("expected default step order 999, got %d", first.StepOrder)
	}
	if len(first.Assignees) != 2 {
		t.Fatalf("expected primary plus helper, got %+v", first.Assignees)
	}
	order := 1
	second, err := db.CreateProjectStep(ctx, p.ID, ProjectStepInput{Title: "Send invites", StepOrder: &order})
	if err != nil {
		t.Fatalf("CreateProjectStep second failed: %v", err)
	}

	if _, err := db.UpdateProjectStep(ctx, first.ID, ProjectStepPatch{Status: models.Some(models.StatusDone)}); err != nil {
		t.Fatalf("UpdateProjectStep failed: %v", err)
	}
	got, err := db.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if got.TotalSteps != 2 || got.CompletedSteps != 1 || got.ProgressPercent != 50 {
		t.Fatalf("unexpected progress: total %d done %d pct %d", got.TotalSteps, got.CompletedSteps, got.ProgressPercent)
	}
	if got.Steps[0].ID != second.ID {
		t.Fatalf("expected steps ordered by step_order, got %+v", got.Steps)
	}

	ids, err := db.StepAssigneeIDs(ctx, first.ID)
	if err != nil {
		t.Fatalf("StepAssigneeIDs failed: %v", err)
	}
	if want := []int64{owner.ID, helper.ID}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("status-only patch must keep assignees: %v, want %v", ids, want)
	}

	dup, err := db.DuplicateProject(ctx, p.ID, "")
	if err != nil {
		t.Fatalf("DuplicateProject failed: %v", err)
	}
	if dup.Title != "Gala (Copy)" {
		t.Fatalf("unexpected duplicate title %q", dup.Title)
	}
	if dup.TotalSteps != 2 || dup.CompletedSteps != 0 {
		t.Fatalf("expected copied steps reset to pending, got %+v", dup)
	}
	for _, s := range dup.Steps {
		if s.Title == "Book venue" && len(s.Assignees) != 2 {
			t.Fatalf("expected assignees copied, got %+v", s.Assignees)
		}
	}

	projects, err := db.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 2 || projects[0].ID != dup.ID {
		t.Fatalf("expected newest first, got %d projects", len(projects))
	}

	if _, err := db.UpdateProject(ctx, p.ID, ProjectPatch{Status: models.Some("archived")}); err != nil {
		t.Fatalf("UpdateProject failed: %v", err)
	}
	projects, err = db.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("archived project should be hidden, got %d", len(projects))
	}

	if err := db.DeleteProject(ctx, dup.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := db.GetProject(ctx, dup.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted project gone, got %v", err)
	}
}

func TestProjectStep_AssigneeReplaceOnlyWhenSent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	p, err := db.CreateProject(ctx, ProjectInput{Title: "Audit", CreatedByID: 1})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	primary := models.FlexInt64(2)
	step, err := db.CreateProjectStep(ctx, p.ID, ProjectStepInput{Title: "Collect", AssignedToID: &primary, AssigneeIDs: models.IDList{3}})
	if err != nil {
		t.Fatalf("CreateProjectStep failed: %v", err)
	}

	var patch ProjectStepPatch
	if err := json.Unmarshal([]byte(`{"assignee_ids": [4, "4", 0]}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	if _, err := db.UpdateProjectStep(ctx, step.ID, patch); err != nil {
		t.Fatalf("UpdateProjectStep failed: %v", err)
	}
	ids, err := db.StepAssigneeIDs(ctx, step.ID)
	if err != nil {
		t.Fatalf("StepAssigneeIDs failed: %v", err)
	}
	if want := []int64{2, 4}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("assignees = %v, want %v", ids, want)
	}

	if _, err := db.CreateProjectStep(ctx, 9999, ProjectStepInput{Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing project, got %v", err)
	}
	if err := db.DeleteProjectStep(ctx, step.ID); err != nil {
		t.Fatalf("DeleteProjectStep failed: %v", err)
	}
	ids, err = db.StepAssigneeIDs(ctx, step.ID)
	if err != nil {
		t.Fatalf("StepAssigneeIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected assignee rows removed with step, got %v", ids)
	}
}

func TestPreferences_DefaultsAndOverlay(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)

	p, err := db.GetPreferences(ctx, 7)
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if p.Theme != "light" || p.CalendarView != "month" || p.SectionOrder != nil || p.EnableWeeklyTasks != 0 {
		t.Fatalf("unexpected defaults: %+v", p)
	}

	var in PreferencesInput
	if err := json.Unmarshal([]byte(`{"theme":"dark","section_order":["goals","tasks"],"enable_weekly_tasks":true}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p, err = db.SavePreferences(ctx, 7, in)
	if err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	if p.Theme != "dark" || p.CalendarView != "month" || p.EnableWeeklyTasks != 1 {
		t.Fatalf("unexpected saved prefs: %+v", p)
	}
	if string(p.SectionOrder) != `["goals","tasks"]` {
		t.Fatalf("unexpected section order %s", p.SectionOrder)
	}

	var overlay PreferencesInput
	if err := json.Unmarshal([]byte(`{"calendar_view":"week","section_order":null}`), &overlay); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	p, err = db.SavePreferences(ctx, 7, overlay)
	if err != nil {
		t.Fatalf("SavePreferences overlay failed: %v", err)
	}
	if p.Theme != "dark" || p.CalendarView != "week" || string(p.SectionOrder) != `["goals","tasks"]` || p.EnableWeeklyTasks != 1 {
		t.Fatalf("overlay lost fields: %+v", p)
	}
}

func TestWeeklyTasks_PriorityOrderAndCompletion(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	if _, err := db.CreateWeeklyTask(ctx, WeeklyTaskInput{Title: "low", WeekKey: "2025-W10", AssignedToID: 1}); err != nil {
		t.Fatalf("CreateWeeklyTask failed: %v", err)
	}
	high, err := db.CreateWeeklyTask(ctx, WeeklyTaskInput{Title: "high", WeekKey: "2025-W10", AssignedToID: 1, Priority: 3})
	if err != nil {
		t.Fatalf("CreateWeeklyTask failed: %v", err)
	}
	if _, err := db.CreateWeeklyTask(ctx, WeeklyTaskInput{Title: "other", WeekKey: "2025-W10", AssignedToID: 2}); err != nil {
		t.Fatalf("CreateWeeklyTask failed: %v", err)
	}
	if _, err := db.CreateWeeklyTask(ctx, WeeklyTaskInput{Title: "missing week"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	list, err := db.ListWeeklyTasks(ctx, "2025-W10", 1)
	if err != nil {
		t.Fatalf("ListWeeklyTasks failed: %v", err)
	}
	if list.Week != "2025-W10" || len(list.Tasks) != 2 || list.Tasks[0].Title != "high" {
		t.Fatalf("unexpected list: %+v", list)
	}

	done, err := db.UpdateWeeklyTask(ctx, high.ID, WeeklyTaskPatch{Status: models.Some(models.StatusDone)})
	if err != nil {
		t.Fatalf("UpdateWeeklyTask failed: %v", err)
	}
	if done.CompletedAt == nil || done.Priority != 3 {
		t.Fatalf("unexpected completed weekly task: %+v", done)
	}
	if err := db.DeleteWeeklyTask(ctx, high.ID); err != nil {
		t.Fatalf("DeleteWeeklyTask failed: %v", err)
	}
}
