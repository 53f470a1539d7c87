// Package api serves the wrap sheet JSON API together with the office,
// license, OCR, globe pin and LOGS endpoints on one ServeMux.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/berealtors/wrapsheet/internal/auth"
	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/growthzone"
	"github.com/berealtors/wrapsheet/internal/license"
	"github.com/berealtors/wrapsheet/internal/mailer"
	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/models"
)

// OfficeSyncer runs one GrowthZone office sync.
type OfficeSyncer interface {
	Run(ctx context.Context) (growthzone.SyncResult, error)
}

// LicenseVerifier looks up a DBPR license number.
type LicenseVerifier interface {
	Verify(ctx context.Context, number string) (license.Result, error)
}

// TextExtractor reads the text of a base64 image.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageBase64, mimeType string) (string, error)
}

// Deps are the collaborators of a Server. Nil optional handlers leave their
// routes unmounted.
type Deps struct {
	Store    database.Repository
	Mail     *mailer.Dispatcher
	Syncer   OfficeSyncer
	License  LicenseVerifier
	OCR      TextExtractor
	Auth     *auth.Authenticator
	Metrics  *metrics.Metrics
	GZProxy  http.Handler
	Listings http.Handler
	Logger   *slog.Logger
	Config   *config.Config
}

type Server struct {
	store    database.Repository
	mail     *mailer.Dispatcher
	syncer   OfficeSyncer
	license  LicenseVerifier
	ocr      TextExtractor
	auth     *auth.Authenticator
	metrics  *metrics.Metrics
	gz       http.Handler
	listings http.Handler
	logger   *slog.Logger
	cfg      *config.Config
	now      func() time.Time
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	mail := d.Mail
	if mail == nil {
		mail = mailer.NewDispatcher(nil, logger, d.Metrics, config.MailTimeout)
	}
	return &Server{
		store:    d.Store,
		mail:     mail,
		syncer:   d.Syncer,
		license:  d.License,
		ocr:      d.OCR,
		auth:     d.Auth,
		metrics:  d.Metrics,
		gz:       d.GZProxy,
		listings: d.Listings,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Handler returns the full middleware chain around the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return chain(mux, s.recoverer, requestID, cors, s.logRequests, s.instrument)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users", s.listUsers)
	mux.HandleFunc("POST /api/users", s.createUser)

	mux.HandleFunc("GET /api/daily-tasks", s.listDailyTasks)
	mux.HandleFunc("POST /api/daily-tasks", s.createDailyTask)
	mux.HandleFunc("PATCH /api/daily-tasks/{id}", s.updateDailyTask)
	mux.HandleFunc("DELETE /api/daily-tasks/{id}", s.deleteDailyTask)
	mux.HandleFunc("GET /api/daily-tasks/{id}/subtasks", s.listDailySubtasks)
	mux.HandleFunc("POST /api/daily-tasks/{id}/subtasks", s.createDailySubtask)
	mux.HandleFunc("PATCH /api/daily-subtasks/{id}", s.updateDailySubtask)
	mux.HandleFunc("DELETE /api/daily-subtasks/{id}", s.deleteDailySubtask)

	for _, t := range []struct {
		prefix string
		typ    models.GoalType
	}{{"/api/monthly-goals", models.GoalMonthly}, {"/api/annual-goals", models.GoalAnnual}} {
		mux.HandleFunc("GET "+t.prefix, s.listGoals(t.typ))
		mux.HandleFunc("POST "+t.prefix, s.createGoal(t.typ))
		mux.HandleFunc("PATCH "+t.prefix+"/{id}", s.updateGoal(t.typ))
		mux.HandleFunc("DELETE "+t.prefix+"/{id}", s.deleteGoal(t.typ))
	}
	mux.HandleFunc("GET /api/goal-categories", s.listGoalCategories)
	mux.HandleFunc("POST /api/goal-categories", s.createGoalCategory)
	mux.HandleFunc("PATCH /api/goal-categories/{id}", s.updateGoalCategory)
	mux.HandleFunc("GET /api/goals/{type}/{id}/subtasks", s.listGoalSubtasks)
	mux.HandleFunc("POST /api/goals/{type}/{id}/subtasks", s.createGoalSubtask)
	mux.HandleFunc("PATCH /api/goal-subtasks/{id}", s.updateGoalSubtask)
	mux.HandleFunc("DELETE /api/goal-subtasks/{id}", s.deleteGoalSubtask)
	mux.HandleFunc("POST /api/goal-subtasks/{id}/add-to-calendar", s.addSubtaskToCalendar)

	mux.HandleFunc("GET /api/projects", s.listProjects)
	mux.HandleFunc("POST /api/projects", s.createProject)
	mux.HandleFunc("GET /api/projects/{id}", s.getProject)
	mux.HandleFunc("PATCH /api/projects/{id}", s.updateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.deleteProject)
	mux.HandleFunc("POST /api/projects/{id}/duplicate", s.duplicateProject)
	mux.HandleFunc("POST /api/projects/{id}/steps", s.createProjectStep)
	mux.HandleFunc("PATCH /api/project-steps/{id}", s.updateProjectStep)
	mux.HandleFunc("DELETE /api/project-steps/{id}", s.deleteProjectStep)

	mux.HandleFunc("GET /api/user-preferences/{userId}", s.getPreferences)
	mux.HandleFunc("PUT /api/user-preferences/{userId}", s.savePreferences)

	mux.HandleFunc("GET /api/weekly-tasks", s.listWeeklyTasks)
	mux.HandleFunc("POST /api/weekly-tasks", s.createWeeklyTask)
	mux.HandleFunc("PATCH /api/weekly-tasks/{id}", s.updateWeeklyTask)
	mux.HandleFunc("DELETE /api/weekly-tasks/{id}", s.deleteWeeklyTask)

	mux.HandleFunc("GET /api/pillar-suggestions", s.listSuggestions)
	mux.HandleFunc("POST /api/pillar-suggestions", s.createSuggestion)
	mux.HandleFunc("PATCH /api/pillar-suggestions/{id}", s.updateSuggestion)
	mux.HandleFunc("DELETE /api/pillar-suggestions/{id}", s.deleteSuggestion)
	mux.HandleFunc("POST /api/pillar-suggestions/{id}/vote", s.toggleVote)
	mux.HandleFunc("GET /api/user-votes", s.voteUsage)

	mux.HandleFunc("GET /api/verify-license", s.verifyLicense)
	mux.HandleFunc("POST /api/ocr", s.extractText)

	mux.HandleFunc("GET /api/offices", s.listOffices)
	mux.HandleFunc("POST /api/offices/sync", s.syncOffices)
	mux.HandleFunc("POST /api/offices/run-sync", s.runOfficeSync)
	mux.HandleFunc("GET /api/offices/{id}", s.getOffice)
	mux.HandleFunc("DELETE /api/offices/{id}", s.deleteOffice)

	mux.HandleFunc("GET /pins", s.listPins)
	mux.HandleFunc("POST /pins", s.createPin)

	mux.HandleFunc("POST /api/upload-members", s.uploadMembers)
	mux.HandleFunc("GET /api/member", s.getMember)
	mux.HandleFunc("GET /api/search-members", s.searchMembers)
	mux.HandleFunc("POST /api/logs-request", s.submitLogsRequest)
	mux.HandleFunc("GET /api/logs-requests", s.listLogsRequests)
	mux.HandleFunc("GET /api/logs-requests/stats", s.logsStats)
	mux.HandleFunc("PATCH /api/logs-requests/{id}", s.auth.RequireAdmin(s.updateLogsRequest))
	mux.HandleFunc("DELETE /api/logs-requests/{id}", s.auth.RequireAdmin(s.deleteLogsRequest))
	mux.HandleFunc("GET /api/logs-requests/{id}/letter", s.auth.RequireAdmin(s.logsLetter))
	mux.HandleFunc("POST /api/admin/session", s.createAdminSession)

	mux.HandleFunc("GET /healthz", s.healthz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.gz != nil {
		mux.Handle("/gz/", http.StripPrefix("/gz", s.gz))
	}
	if s.listings != nil {
		mux.Handle("/api/v2/", s.listings)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": s.now().UTC().Format(time.RFC3339)})
}
