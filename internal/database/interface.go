package database

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/berealtors/wrapsheet/internal/models"
)

// UserRepository defines user directory operations.
type UserRepository interface {
	ListUsers(ctx context.Context, role string) ([]models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, in UserInput) (models.User, error)
}

// TaskRepository defines daily task, subtask and weekly task operations.
type TaskRepository interface {
	ListDailyTasks(ctx context.Context, month string, assignedToID int64) ([]models.DailyTask, error)
	GetDailyTask(ctx context.Context, id int64) (models.DailyTask, error)
	CreateDailyTask(ctx context.Context, in DailyTaskInput) (models.DailyTask, error)
	UpdateDailyTask(ctx context.Context, id int64, patch DailyTaskPatch) (DailyTaskUpdate, error)
	MarkCompletionNotified(ctx context.Context, id int64) error
	DeleteDailyTask(ctx context.Context, id int64) error

	ListDailySubtasks(ctx context.Context, taskID int64) ([]models.DailySubtask, error)
	CreateDailySubtask(ctx context.Context, taskID int64, in DailySubtaskInput) (models.DailySubtask, error)
	UpdateDailySubtask(ctx context.Context, id int64, patch DailySubtaskPatch) (models.DailySubtask, error)
	DeleteDailySubtask(ctx context.Context, id int64) error

	ListWeeklyTasks(ctx context.Context, weekKey string, userID int64) (WeeklyTaskList, error)
	CreateWeeklyTask(ctx context.Context, in WeeklyTaskInput) (models.WeeklyTask, error)
	UpdateWeeklyTask(ctx context.Context, id int64, patch WeeklyTaskPatch) (models.WeeklyTask, error)
	DeleteWeeklyTask(ctx context.Context, id int64) error
}

// GoalRepository defines goal, category and goal subtask operations.
type GoalRepository interface {
	ListGoals(ctx context.Context, t models.GoalType, period string, ownerID int64) ([]models.Goal, error)
	GetGoal(ctx context.Context, t models.GoalType, id int64) (models.Goal, error)
	CreateGoal(ctx context.Context, t models.GoalType, in GoalInput) (models.Goal, error)
	UpdateGoal(ctx context.Context, t models.GoalType, id int64, patch GoalPatch) (models.Goal, error)
	DeleteGoal(ctx context.Context, t models.GoalType, id int64) error
	RecalculateGoalProgress(ctx context.Context, t models.GoalType, goalID int64) (int, error)

	ListGoalCategories(ctx context.Context, goalType, period string, ownerID int64) ([]models.GoalCategory, error)
	CreateGoalCategory(ctx context.Context, in GoalCategoryInput) (models.GoalCategory, error)
	UpdateGoalCategory(ctx context.Context, id int64, patch GoalCategoryPatch) (models.GoalCategory, error)

	ListGoalSubtasks(ctx context.Context, t models.GoalType, goalID int64) ([]models.GoalSubtask, error)
	CreateGoalSubtask(ctx context.Context, t models.GoalType, goalID int64, in GoalSubtaskInput) (models.GoalSubtask, error)
	UpdateGoalSubtask(ctx context.Context, id int64, patch GoalSubtaskPatch) (GoalSubtaskUpdate, error)
	DeleteGoalSubtask(ctx context.Context, id int64) (int, error)
	AddSubtaskToCalendar(ctx context.Context, subtaskID int64, in CalendarInput) (CalendarResult, error)
}

// ProjectRepository defines project and step operations.
type ProjectRepository interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	CreateProject(ctx context.Context, in ProjectInput) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	DuplicateProject(ctx context.Context, id int64, title string) (models.Project, error)
	CreateProjectStep(ctx context.Context, projectID int64, in ProjectStepInput) (models.ProjectStep, error)
	UpdateProjectStep(ctx context.Context, id int64, patch ProjectStepPatch) (models.ProjectStep, error)
	DeleteProjectStep(ctx context.Context, id int64) error
}

// PreferenceRepository defines per-user UI preference operations.
type PreferenceRepository interface {
	GetPreferences(ctx context.Context, userID int64) (models.Preferences, error)
	SavePreferences(ctx context.Context, userID int64, in PreferencesInput) (models.Preferences, error)
}

// SuggestionRepository defines suggestion and vote operations.
type SuggestionRepository interface {
	ListSuggestions(ctx context.Context, f SuggestionFilter) ([]models.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (models.Suggestion, error)
	CreateSuggestion(ctx context.Context, in SuggestionInput) (int64, error)
	UpdateSuggestion(ctx context.Context, id int64, patch SuggestionPatch) error
	DeleteSuggestion(ctx context.Context, id int64) error
	ToggleVote(ctx context.Context, itemID, userID int64, now time.Time) (models.VoteResult, error)
	VoteUsage(ctx context.Context, userID int64, now time.Time) (models.VoteUsage, error)
}

// OfficeRepository defines the GrowthZone office mirror operations.
type OfficeRepository interface {
	ListOffices(ctx context.Context, status, search string) ([]models.Office, error)
	GetOffice(ctx context.Context, id int64) (models.Office, error)
	OfficeDetail(ctx context.Context, contactID int64) ([]models.OfficeAddress, []models.OfficePhone, error)
	DeleteOffice(ctx context.Context, id int64) error
	UpsertOffices(ctx context.Context, offices []models.OfficeInput) (models.UpsertResult, error)
	SyncOfficeContact(ctx context.Context, rec models.OfficeSyncRecord) (bool, error)
}

// PinRepository defines globe pin operations.
type PinRepository interface {
	ListPins(ctx context.Context) ([]models.Pin, error)
	CreatePin(ctx context.Context, name, city string, lat, lng float64) (models.Pin, error)
}

// LogsRepository defines member roster and LOGS intake operations.
type LogsRepository interface {
	ReplaceMembers(ctx context.Context, rows []models.MemberRow) (int, error)
	GetMemberByNRDS(ctx context.Context, nrdsID string) (models.Member, error)
	FindMemberByName(ctx context.Context, fullName string) (models.Member, error)
	MatchMember(ctx context.Context, form models.LogsForm) (*models.Member, string, error)
	SearchMembers(ctx context.Context, q string) ([]models.MemberSummary, error)
	SaveLogsRequest(ctx context.Context, r models.LogsRequest) (models.LogsRequest, error)
	ListLogsRequests(ctx context.Context, f LogsFilter) ([]models.LogsRequest, error)
	GetLogsRequest(ctx context.Context, id int64) (models.LogsRequest, error)
	LogsStats(ctx context.Context, f LogsFilter) (models.LogsStats, error)
	UpdateLogsRequest(ctx context.Context, id int64, fields map[string]json.RawMessage) error
	DeleteLogsRequest(ctx context.Context, id int64) error
}

// Repository combines all repository interfaces.
type Repository interface {
	UserRepository
	TaskRepository
	GoalRepository
	ProjectRepository
	PreferenceRepository
	SuggestionRepository
	OfficeRepository
	PinRepository
	LogsRepository
	ExportJSON(ctx context.Context, w io.Writer) error
}

var _ Repository = (*Database)(nil)
