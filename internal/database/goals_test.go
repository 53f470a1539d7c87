package database

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/berealtors/wrapsheet/internal/models"
)

func createMonthlyGoal(t *testing.T, ctx context.Context, db *Database, ownerID int64) models.Goal {
	t.Helper()
	g, err := db.CreateGoal(ctx, models.GoalMonthly, GoalInput{
		OwnerID:  models.FlexInt64(ownerID),
		MonthKey: "2025-03",
		Category: "Membership",
		Title:    "Grow membership",
	})
	if err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	return g
}

func addSubtask(t *testing.T, ctx context.Context, db *Database, goalID int64, title string, weight int64) models.GoalSubtask {
	t.Helper()
	w := models.FlexInt64(weight)
	s, err := db.CreateGoalSubtask(ctx, models.GoalMonthly, goalID, GoalSubtaskInput{Title: title, Weight: &w})
	if err != nil {
		t.Fatalf("CreateGoalSubtask %s failed: %v", title, err)
	}
	return s
}

func TestCreateGoal_RequiresFields(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	_, err := db.CreateGoal(ctx, models.GoalMonthly, GoalInput{OwnerID: 1, Title: "no period"})
	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Msg != "Missing required fields" {
		t.Fatalf("expected missing fields error, got %v", err)
	}
	if _, err := db.CreateGoal(ctx, models.GoalType("weekly"), GoalInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown goal type rejected, got %v", err)
	}
}

func TestGoalProgress_WeightedScenario(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	goal := createMonthlyGoal(t, ctx, db, 1)
	heavy := addSubtask(t, ctx, db, goal.ID, "heavy", 2)
	light := addSubtask(t, ctx, db, goal.ID, "light", 1)

	res, err := db.UpdateGoalSubtask(ctx, heavy.ID, GoalSubtaskPatch{Status: models.Some(models.StatusDone)})
	if err != nil {
		t.Fatalf("UpdateGoalSubtask heavy failed: %v", err)
	}
	if res.GoalProgress == nil || *res.GoalProgress != 67 {
		t.Fatalf("expected progress 67, got %v", res.GoalProgress)
	}

	res, err = db.UpdateGoalSubtask(ctx, light.ID, GoalSubtaskPatch{Status: models.Some(models.StatusDone)})
	if err != nil {
		t.Fatalf("UpdateGoalSubtask light failed: %v", err)
	}
	if res.GoalProgress == nil || *res.GoalProgress != 100 {
		t.Fatalf("expected progress 100, got %v", res.GoalProgress)
	}

	stored, err := db.GetGoal(ctx, models.GoalMonthly, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal failed: %v", err)
	}
	if stored.ProgressPercent != 100 {
		t.Fatalf("expected stored progress 100, got %d", stored.ProgressPercent)
	}

	res, err = db.UpdateGoalSubtask(ctx, light.ID, GoalSubtaskPatch{Title: models.Some("renamed")})
	if err != nil {
		t.Fatalf("UpdateGoalSubtask rename failed: %v", err)
	}
	if res.GoalProgress != nil {
		t.Fatalf("rename alone should not recalculate")
	}

	percent, err := db.DeleteGoalSubtask(ctx, heavy.ID)
	if err != nil {
		t.Fatalf("DeleteGoalSubtask failed: %v", err)
	}
	if percent != 100 {
		t.Fatalf("expected 100 after deleting done subtask, got %d", percent)
	}
}

func TestRecalculateGoalProgress_RandomWeights(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	rng := rand.New(rand.NewSource(42))
	statuses := []models.TaskStatus{models.StatusPending, models.StatusInProgress, models.StatusDone, models.StatusCouldNotComplete}

	for round := 0; round < 20; round++ {
		goal := createMonthlyGoal(t, ctx, db, 1)
		n := 1 + rng.Intn(6)
		var total, done int64
		for i := 0; i < n; i++ {
			weight := int64(1 + rng.Intn(5))
			status := statuses[rng.Intn(len(statuses))]
			switch round {
			case 0:
				status = models.StatusPending
			case 1:
				status = models.StatusDone
			}
			sub := addSubtask(t, ctx, db, goal.ID, "s", weight)
			if _, err := db.UpdateGoalSubtask(ctx, sub.ID, GoalSubtaskPatch{Status: models.Some(status)}); err != nil {
				t.Fatalf("UpdateGoalSubtask failed: %v", err)
			}
			total += weight
			if status == models.StatusDone {
				done += weight
			}
		}

		got, err := db.RecalculateGoalProgress(ctx, models.GoalMonthly, goal.ID)
		if err != nil {
			t.Fatalf("RecalculateGoalProgress failed: %v", err)
		}
		want := int(math.Round(100 * float64(done) / float64(total)))
		if got != want {
			t.Fatalf("round %d: progress %d, want %d (done %d of %d)", round, got, want, done, total)
		}
		if round == 0 && got != 0 {
			t.Fatalf("all-pending goal should be 0, got %d", got)
		}
		if round == 1 && got != 100 {
			t.Fatalf("all-done goal should be 100, got %d", got)
		}
	}
}

func TestRecalculateGoalProgress_NoSubtasks(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	goal := createMonthlyGoal(t, ctx, db, 1)
	got, err := db.RecalculateGoalProgress(ctx, models.GoalMonthly, goal.ID)
	if err != nil {
		t.Fatalf("RecalculateGoalProgress failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 without subtasks, got %d", got)
	}
}

func TestAddSubtaskToCalendar_LinksAndCompletes(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	owner := seedUser(t, ctx, db, "Owner", "owner@example.com")
	goal := createMonthlyGoal(t, ctx, db, owner.ID)
	sub := addSubtask(t, ctx, db, goal.ID, "Call sponsors", 1)

	res, err := db.AddSubtaskToCalendar(ctx, sub.ID, CalendarInput{TaskDate: "2025-03-10", AssignedToID: models.FlexInt64(owner.ID)})
	if err != nil {
		t.Fatalf("AddSubtaskToCalendar failed: %v", err)
	}
	if want := "🎯 Grow membership: Call sponsors"; res.Task.Title != want {
		t.Fatalf("title = %q, want %q", res.Task.Title, want)
	}
	if res.Task.CreatedByID != owner.ID || res.Task.AssignedByID != owner.ID {
		t.Fatalf("expected creator and assigner to fall back to assignee, got %+v", res.Task)
	}

	subs, err := db.ListGoalSubtasks(ctx, models.GoalMonthly, goal.ID)
	if err != nil {
		t.Fatalf("ListGoalSubtasks failed: %v", err)
	}
	if len(subs) != 1 || subs[0].LinkedTaskID == nil || *subs[0].LinkedTaskID != res.Task.ID {
		t.Fatalf("expected subtask linked to task %d, got %+v", res.Task.ID, subs)
	}

	upd, err := db.UpdateDailyTask(ctx, res.Task.ID, DailyTaskPatch{Status: models.Some(models.StatusDone)})
	if err != nil {
		t.Fatalf("UpdateDailyTask failed: %v", err)
	}
	if upd.GoalProgress == nil || *upd.GoalProgress != 100 {
		t.Fatalf("expected linked goal at 100, got %v", upd.GoalProgress)
	}

	if _, err := db.AddSubtaskToCalendar(ctx, sub.ID, CalendarInput{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected missing date rejected, got %v", err)
	}
}

func TestUpdateGoal_ClampsAndNulls(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	goal := createMonthlyGoal(t, ctx, db, 1)

	g, err := db.UpdateGoal(ctx, models.GoalMonthly, goal.ID, GoalPatch{
		ProgressPercent: models.Some(140),
		IsComplete:      models.Some(models.Truthy(true)),
	})
	if err != nil {
		t.Fatalf("UpdateGoal failed: %v", err)
	}
	if g.ProgressPercent != 100 || g.IsComplete != 1 {
		t.Fatalf("expected clamp to 100 and complete, got %+v", g)
	}

	var patch GoalPatch
	if err := json.Unmarshal([]byte(`{"progress_percent": null, "is_complete": 0}`), &patch); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	g, err = db.UpdateGoal(ctx, models.GoalMonthly, goal.ID, patch)
	if err != nil {
		t.Fatalf("UpdateGoal null failed: %v", err)
	}
	if g.ProgressPercent != 0 || g.IsComplete != 0 || g.Title != goal.Title {
		t.Fatalf("unexpected goal after null overlay: %+v", g)
	}
}

func TestAnnualGoals_MarshalYear(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	var in GoalInput
	if err := json.Unmarshal([]byte(`{"owner_id":"3","year":2025,"category":"Advocacy","title":"Host forum"}`), &in); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}
	g, err := db.CreateGoal(ctx, models.GoalAnnual, in)
	if err != nil {
		t.Fatalf("CreateGoal annual failed: %v", err)
	}
	body, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal goal: %v", err)
	}
	if !strings.Contains(string(body), `"year":2025`) || strings.Contains(string(body), "month_key") {
		t.Fatalf("unexpected annual goal json: %s", body)
	}

	goals, err := db.ListGoals(ctx, models.GoalAnnual, "2025", 3)
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected 1 annual goal, got %d", len(goals))
	}

	if err := db.DeleteGoal(ctx, models.GoalAnnual, g.ID); err != nil {
		t.Fatalf("DeleteGoal failed: %v", err)
	}
	if _, err := db.GetGoal(ctx, models.GoalAnnual, g.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted goal to be gone, got %v", err)
	}
}

func TestGoalCategories_ListAndRename(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	for i, name := range []string{"Events", "Advocacy"} {
		if _, err := db.CreateGoalCategory(ctx, GoalCategoryInput{
			Type: "monthly", PeriodKey: "2025-03", OriginalName: name, OwnerID: 1, DisplayOrder: 2 - i,
		}); err != nil {
			t.Fatalf("CreateGoalCategory failed: %v", err)
		}
	}
	cats, err := db.ListGoalCategories(ctx, "monthly", "2025-03", 1)
	if err != nil {
		t.Fatalf("ListGoalCategories failed: %v", err)
	}
	if len(cats) != 2 || cats[0].OriginalName != "Advocacy" {
		t.Fatalf("expected display order, got %+v", cats)
	}

	renamed, err := db.UpdateGoalCategory(ctx, cats[0].ID, GoalCategoryPatch{CustomName: models.Some("Policy")})
	if err != nil {
		t.Fatalf("UpdateGoalCategory failed: %v", err)
	}
	if renamed.CustomName == nil || *renamed.CustomName != "Policy" {
		t.Fatalf("expected custom name, got %v", renamed.CustomName)
	}
	var clear GoalCategoryPatch
	if err := json.Unmarshal([]byte(`{"custom_name": null}`), &clear); err != nil {
		t.Fatalf("unmarshal patch: %v", err)
	}
	cleared, err := db.UpdateGoalCategory(ctx, cats[0].ID, clear)
	if err != nil {
		t.Fatalf("UpdateGoalCategory clear failed: %v", err)
	}
	if cleared.CustomName != nil {
		t.Fatalf("expected custom name cleared")
	}
}

func TestGoalSubtask_RejectsNegativeWeight(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	goal := createMonthlyGoal(t, ctx, db, 1)

	w := models.FlexInt64(-3)
	if _, err := db.CreateGoalSubtask(ctx, models.GoalMonthly, goal.ID, GoalSubtaskInput{Title: "neg", Weight: &w}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected negative weight rejected on create, got %v", err)
	}

	zero := addSubtask(t, ctx, db, goal.ID, "zero", 0)
	if zero.Weight != 0 {
		t.Fatalf("expected zero weight kept, got %d", zero.Weight)
	}
	_, err := db.UpdateGoalSubtask(ctx, zero.ID, GoalSubtaskPatch{Weight: models.Some(models.FlexInt64(-1))})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected negative weight rejected on update, got %v", err)
	}
	stored, err := db.ListGoalSubtasks(ctx, models.GoalMonthly, goal.ID)
	if err != nil {
		t.Fatalf("ListGoalSubtasks failed: %v", err)
	}
	if len(stored) != 1 || stored[0].Weight != 0 {
		t.Fatalf("expected the rejected update to leave weight 0, got %+v", stored)
	}
}

func TestGoalSubtask_WeightChangeRecalculates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	goal := createMonthlyGoal(t, ctx, db, 1)
	done := addSubtask(t, ctx, db, goal.ID, "done", 1)
	open := addSubtask(t, ctx, db, goal.ID, "open", 1)

	res, err := db.UpdateGoalSubtask(ctx, done.ID, GoalSubtaskPatch{Status: models.Some(models.StatusDone)})
	if err != nil {
		t.Fatalf("UpdateGoalSubtask status failed: %v", err)
	}
	if res.GoalProgress == nil || *res.GoalProgress != 50 {
		t.Fatalf("expected progress 50, got %v", res.GoalProgress)
	}

	res, err = db.UpdateGoalSubtask(ctx, open.ID, GoalSubtaskPatch{Weight: models.Some(models.FlexInt64(3))})
	if err != nil {
		t.Fatalf("UpdateGoalSubtask weight failed: %v", err)
	}
	if res.GoalProgress == nil || *res.GoalProgress != 25 {
		t.Fatalf("expected weight change to recalculate to 25, got %v", res.GoalProgress)
	}
	stored, err := db.GetGoal(ctx, models.GoalMonthly, goal.ID)
	if err != nil {
		t.Fatalf("GetGoal failed: %v", err)
	}
	if stored.ProgressPercent != 25 {
		t.Fatalf("expected stored progress 25, got %d", stored.ProgressPercent)
	}
}
