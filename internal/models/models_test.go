package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestTaskStatusConstants(t *testing.T) {
	if StatusPending != "pending" {
		t.Fatalf("StatusPending = %q", StatusPending)
	}
	if StatusInProgress != "in_progress" {
		t.Fatalf("StatusInProgress = %q", StatusInProgress)
	}
	if StatusDone != "done" {
		t.Fatalf("StatusDone = %q", StatusDone)
	}
	if StatusCouldNotComplete != "could_not_complete" {
		t.Fatalf("StatusCouldNotComplete = %q", StatusCouldNotComplete)
	}
	if TaskStatus("archived").Valid() {
		t.Fatalf("archived should not be a valid task status")
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		done, total int64
		want        int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 3, 0},
		{2, 3, 67},
		{1, 3, 33},
		{1, 2, 50},
		{1, 8, 13},
		{3, 3, 100},
	}
	for _, c := range cases {
		if got := ProgressPercent(c.done, c.total); got != c.want {
			t.Fatalf("ProgressPercent(%d, %d) = %d, want %d", c.done, c.total, got, c.want)
		}
	}
}

func TestGoalMarshalPeriodKey(t *testing.T) {
	monthly, err := json.Marshal(Goal{ID: 1, Type: GoalMonthly, Period: "2025-02"})
	if err != nil {
		t.Fatalf("marshal monthly: %v", err)
	}
	if !strings.Contains(string(monthly), `"month_key":"2025-02"`) || strings.Contains(string(monthly), `"year"`) {
		t.Fatalf("unexpected monthly json: %s", monthly)
	}
	annual, err := json.Marshal(Goal{ID: 2, Type: GoalAnnual, Period: "2025"})
	if err != nil {
		t.Fatalf("marshal annual: %v", err)
	}
	if !strings.Contains(string(annual), `"year":2025`) || strings.Contains(string(annual), `"month_key"`) {
		t.Fatalf("unexpected annual json: %s", annual)
	}
}

func TestProjectApplyStepStats(t *testing.T) {
	p := Project{Steps: []ProjectStep{{Status: StatusDone}, {Status: StatusPending}, {Status: StatusDone}}}
	p.ApplyStepStats()
	if p.TotalSteps != 3 || p.CompletedSteps != 2 || p.ProgressPercent != 67 {
		t.Fatalf("unexpected stats: %+v", p)
	}
	empty := Project{}
	empty.ApplyStepStats()
	if empty.Steps == nil || empty.ProgressPercent != 0 {
		t.Fatalf("expected empty non-nil steps and 0%%, got %+v", empty)
	}
}

func TestOptionalOverlay(t *testing.T) {
	var body struct {
		Title    Optional[string] `json:"title"`
		TaskTime Optional[string] `json:"task_time"`
		Notes    Optional[string] `json:"notes"`
	}
	if err := json.Unmarshal([]byte(`{"title":null,"task_time":null}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := body.Title.Or("keep"); got != "keep" {
		t.Fatalf("null title should keep existing, got %q", got)
	}
	cur := "09:00"
	if got := body.TaskTime.OrNullable(&cur); got != nil {
		t.Fatalf("null task_time should clear, got %v", *got)
	}
	if got := body.Notes.OrNullable(&cur); got != &cur {
		t.Fatalf("absent notes should keep existing pointer")
	}
	if body.Notes.Set {
		t.Fatalf("absent field marked as set")
	}
}

func TestIDListDropsInvalidEntries(t *testing.T) {
	var ids IDList
	if err := json.Unmarshal([]byte(`[5, "7", -1, 0, 2.5, "x", null, 7]`), &ids); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := IDList{5, 7, 7}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("IDList = %v, want %v", ids, want)
	}
	var notArray IDList
	if err := json.Unmarshal([]byte(`"5"`), &notArray); err != nil {
		t.Fatalf("unmarshal scalar: %v", err)
	}
	if len(notArray) != 0 {
		t.Fatalf("expected empty list for scalar, got %v", notArray)
	}
}

func TestFlexTypes(t *testing.T) {
	var n FlexInt64
	if err := json.Unmarshal([]byte(`"42"`), &n); err != nil || n != 42 {
		t.Fatalf("FlexInt64 from string = %d, %v", n, err)
	}
	if err := json.Unmarshal([]byte(`4.5`), &n); err == nil {
		t.Fatalf("expected error for fractional id")
	}
	var s FlexString
	if err := json.Unmarshal([]byte(`123456`), &s); err != nil || s != "123456" {
		t.Fatalf("FlexString from number = %q, %v", s, err)
	}
}

func TestLogsFormFullName(t *testing.T) {
	f := LogsForm{FirstName: " Ada ", LastName: "Lovelace "}
	if got := f.FullName(); got != "Ada Lovelace" {
		t.Fatalf("FullName = %q", got)
	}
}
