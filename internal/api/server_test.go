package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berealtors/wrapsheet/internal/auth"
	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/mailer"
	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

const (
	adminToken = "correct horse battery staple"
	uploadKey  = "roster-upload-key"
)

type testEnv struct {
	db      *database.Database
	srv     *Server
	h       http.Handler
	mail    *mailer.Dispatcher
	metrics *metrics.Metrics
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, mailers map[string]mailer.Mailer) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	hash, err := util.HashSecret(adminToken)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Mail.From = "wrap@example.org"
	cfg.Mail.FromName = "BER Wrap Sheet"
	cfg.Admin.UploadKey = uploadKey

	m := metrics.New()
	disp := mailer.NewDispatcher(mailers, quietLogger(), m, time.Second)
	srv := New(Deps{
		Store:   db,
		Mail:    disp,
		Auth:    auth.New(hash, "test-jwt-secret", config.AdminSessionTTL),
		Metrics: m,
		Logger:  quietLogger(),
		Config:  cfg,
	})
	return &testEnv{db: db, srv: srv, h: srv.Handler(), mail: disp, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (e *testEnv) seedUser(t *testing.T, name, email string) models.User {
	t.Helper()
	u, err := e.db.CreateUser(context.Background(), database.UserInput{Name: name, Email: email})
	if err != nil {
		t.Fatalf("CreateUser %s failed: %v", email, err)
	}
	return u
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, nil)
	rec := e.do(t, http.MethodOptions, "/api/daily-tasks", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "x-user-email")
	assert.Empty(t, rec.Body.String())
}

func TestRequestIDAndNotFound(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decodeMap(t, rec)["error"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = e.do(t, http.MethodGet, "/healthz", "", "X-Request-ID", "abc-123")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestPanicBecomes500(t *testing.T) {
	srv := New(Deps{Logger: quietLogger()})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestCreateUser(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/users", `{"name":"Ana","email":"ana@example.org"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeMap(t, rec)
	assert.Equal(t, "member", created["role"])

	rec = e.do(t, http.MethodPost, "/api/users", `{"name":"Ana Again","email":"ana@example.org"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "User already exists", body["error"])
	assert.Equal(t, created["id"], body["user"].(map[string]any)["id"])

	rec = e.do(t, http.MethodPost, "/api/users", `{"name":"No Email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name and email required", decodeMap(t, rec)["error"])
}

func TestCreateDailyTaskValidation(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/daily-tasks", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "Missing required fields", body["error"])
	assert.ElementsMatch(t,
		[]any{"title", "task_date", "created_by_id", "assigned_to_id", "assigned_by_id"},
		body["missing"])

	rec = e.do(t, http.MethodPost, "/api/daily-tasks", `{"title":"x"}`, "x-user-email", "ghost@example.org")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not found for provided email", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodGet, "/api/daily-tasks", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "month query param required (YYYY-MM)", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodGet, "/api/daily-tasks?month=2025-03&assignedToId=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "assignedToId must be a positive integer", decodeMap(t, rec)["error"])
}

func TestDailyTaskHeaderIdentityAndCompletionMail(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mailer.NewMockMailer(ctrl)
	e := newTestEnv(t, map[string]mailer.Mailer{mailer.KindCompletion: mock})

	boss := e.seedUser(t, "Boss", "boss@example.org")
	worker := e.seedUser(t, "Worker", "worker@example.org")

	body := fmt.Sprintf(`{"title":"Call vendor","task_date":"2025-03-04","assigned_to_id":%d}`, worker.ID)
	rec := e.do(t, http.MethodPost, "/api/daily-tasks", body, "x-user-email", "boss@example.org")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.DailyTask
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, boss.ID, task.CreatedByID)
	assert.Equal(t, boss.ID, task.AssignedByID)

	mock.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msg mailer.Message) error {
		assert.Equal(t, "boss@example.org", msg.To[0].Email)
		assert.Equal(t, "Task completed: Call vendor", msg.Subject)
		return nil
	}).Times(1)

	rec = e.do(t, http.MethodPatch, fmt.Sprintf("/api/daily-tasks/%d", task.ID), `{"status":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.mail.Wait()
	assert.EqualValues(t, 1, decodeMap(t, rec)["completion_notified"])

	stored, err := e.db.GetDailyTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CompletionNotified)
	assert.Equal(t, 1.0, prom.ToFloat64(e.metrics.Emails.WithLabelValues(mailer.KindCompletion, "ok")))
}

func TestCompletionWithoutAssignerEmailStaysUnnotified(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := mailer.NewMockMailer(ctrl)
	mock.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)
	e := newTestEnv(t, map[string]mailer.Mailer{mailer.KindCompletion: mock})

	worker := e.seedUser(t, "Worker", "worker@example.org")
	// the assigner's user row no longer exists, so there is no address to mail
	task, err := e.db.CreateDailyTask(context.Background(), database.DailyTaskInput{
		Title:        "File report",
		TaskDate:     "2025-03-05",
		CreatedByID:  4242,
		AssignedToID: models.FlexInt64(worker.ID),
		AssignedByID: 4242,
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPatch, fmt.Sprintf("/api/daily-tasks/%d", task.ID), `{"status":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e.mail.Wait()
	if got := decodeMap(t, rec)["completion_notified"]; got != 0.0 {
		t.Fatalf("completion_notified = %v, want 0", got)
	}

	stored, err := e.db.GetDailyTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CompletionNotified)
	assert.Equal(t, models.StatusDone, stored.Status)
}

func TestStatusTaxonomy(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPatch, "/api/daily-tasks/999", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPatch, "/api/daily-tasks/abc", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/daily-tasks/1", `{"title": 42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/monthly-goals", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "month query param required", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodGet, "/api/annual-goals?year=2025&ownerId=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ownerId must be a positive integer", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodGet, "/api/goals/weekly/1/subtasks", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/projects", `{"title":"Gala"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title and created_by_id are required", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/users", strings.Repeat("x", maxBodyBytes+10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGoalSubtaskProgressThroughAPI(t *testing.T) {
	e := newTestEnv(t, nil)
	owner := e.seedUser(t, "Owner", "owner@example.org")

	rec := e.do(t, http.MethodPost, "/api/monthly-goals",
		fmt.Sprintf(`{"owner_id":%d,"month_key":"2025-03","category":"Growth","title":"Recruit"}`, owner.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goalID := int64(decodeMap(t, rec)["id"].(float64))

	var subIDs []int64
	for _, w := range []int{2, 1} {
		rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/goals/monthly/%d/subtasks", goalID),
			fmt.Sprintf(`{"title":"step","weight":%d}`, w))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		subIDs = append(subIDs, int64(decodeMap(t, rec)["id"].(float64)))
	}

	rec = e.do(t, http.MethodPatch, fmt.Sprintf("/api/goal-subtasks/%d", subIDs[0]), `{"status":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g, err := e.db.GetGoal(context.Background(), models.GoalMonthly, goalID)
	require.NoError(t, err)
	assert.Equal(t, 67, g.ProgressPercent)

	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/api/goal-subtasks/%d", subIDs[1]), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	g, err = e.db.GetGoal(context.Background(), models.GoalMonthly, goalID)
	require.NoError(t, err)
	assert.Equal(t, 100, g.ProgressPercent)
}

func TestVoteQuota(t *testing.T) {
	e := newTestEnv(t, nil)
	voter := e.seedUser(t, "Voter", "voter@example.org")

	var ids []int64
	for i := range 6 {
		rec := e.do(t, http.MethodPost, "/api/pillar-suggestions", fmt.Sprintf(`{"title":"Idea %d"}`, i))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeMap(t, rec)
		assert.Equal(t, true, body["success"])
		ids = append(ids, int64(body["id"].(float64)))
	}

	vote := func(id int64) *httptest.ResponseRecorder {
		return e.do(t, http.MethodPost, fmt.Sprintf("/api/pillar-suggestions/%d/vote", id),
			fmt.Sprintf(`{"userId":%d}`, voter.ID))
	}
	for _, id := range ids[:5] {
		rec := vote(id)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decodeMap(t, rec)["voted"])
	}

	rec := vote(ids[5])
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "Monthly vote limit reached (5/5)", body["error"])
	assert.Equal(t, true, body["limitReached"])

	rec = vote(ids[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["voted"])

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/user-votes?userId=%d", voter.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decodeMap(t, rec)["used"])

	rec = e.do(t, http.MethodGet, "/api/user-votes", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "userId required", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, fmt.Sprintf("/api/pillar-suggestions/%d/vote", ids[1]), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 5.0, prom.ToFloat64(e.metrics.Votes.WithLabelValues(metrics.VoteCast)))
	assert.Equal(t, 1.0, prom.ToFloat64(e.metrics.Votes.WithLabelValues(metrics.VoteRejected)))
	assert.Equal(t, 1.0, prom.ToFloat64(e.metrics.Votes.WithLabelValues(metrics.VoteRetracted)))
}

func TestPins(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/pins", `{"name":"Dana","city":"Naples","lat":26.1,"lng":-81.8}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["pins"], 1)

	rec = e.do(t, http.MethodPost, "/pins", `{"name":"dana","city":"Estero","lat":26.4,"lng":-81.8}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body = decodeMap(t, rec)
	assert.Equal(t, "name_exists", body["error"])
	assert.Contains(t, body["message"], `"Dana"`)

	rec = e.do(t, http.MethodPost, "/pins", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/pins", `{"name":"Lee","city":"Naples","lat":"26.1","lng":-81.8}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_data", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodGet, "/pins", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
}

const logsForm = `{
	"firstName": "Jo", "lastName": "Rivera", "nrdsId": "%s",
	"dropMemberships": ["REALTOR"], "dropWhen": "Immediately",
	"changeReasons": ["Moving"], "newBrokerInterested": "No",
	"needsLetter": "Yes", "cancelSupra": "No", "hasListings": "No"
}`

func TestLogsRequestFlow(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/upload-members",
		`{"adminKey":"wrong","rows":[{"nrdsId":"123456","fullName":"Jo Rivera"}]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, decodeMap(t, rec)["success"])

	rec = e.do(t, http.MethodPost, "/api/upload-members",
		`{"adminKey":"`+uploadKey+`","rows":[{"nrdsId":123456,"fullName":"Jo Rivera","officeName":"Gulf Realty"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decodeMap(t, rec)["inserted"])

	rec = e.do(t, http.MethodPost, "/api/logs-request", `{"firstName":"Jo","lastName":"Rivera"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "At least one membership to drop is required.", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/logs-request", fmt.Sprintf(logsForm, "999999"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "MEMBER_NOT_FOUND", body["errorCode"])
	assert.Equal(t, true, body["submitted"])

	rec = e.do(t, http.MethodPost, "/api/logs-request", fmt.Sprintf(logsForm, "123456"))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeMap(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Gulf Realty", body["member"].(map[string]any)["office_name"])
	e.mail.Wait()

	rec = e.do(t, http.MethodGet, "/api/logs-requests", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var reqs []models.LogsRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqs))
	require.Len(t, reqs, 2)

	path := fmt.Sprintf("/api/logs-requests/%d", reqs[0].ID)
	rec = e.do(t, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/admin/session", `{"token":"guess"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/admin/session", `{"token":"`+adminToken+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bearer := "Bearer " + decodeMap(t, rec)["token"].(string)

	rec = e.do(t, http.MethodPatch, path, `{"bogus":"x"}`, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No valid fields to update", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodDelete, path, "", "Authorization", bearer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["success"])
}

func TestLogsLetterPDF(t *testing.T) {
	e := newTestEnv(t, nil)
	ctx := context.Background()

	nrds := models.FlexString("123456")
	name := "Jo Rivera"
	_, err := e.db.ReplaceMembers(ctx, []models.MemberRow{{NRDSID: &nrds, FullName: &name}})
	require.NoError(t, err)
	saved, err := e.db.SaveLogsRequest(ctx, models.LogsRequest{FirstName: "Jo", LastName: "Rivera", NRDSID: "123456"})
	require.NoError(t, err)

	token, _, err := e.srv.auth.IssueSession(adminToken)
	require.NoError(t, err)
	rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/logs-requests/%d/letter", saved.ID), "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestMetricsRecordRoutePattern(t *testing.T) {
	e := newTestEnv(t, nil)
	e.do(t, http.MethodGet, "/api/users", "")
	e.do(t, http.MethodGet, "/api/users?role=admin", "")

	assert.Equal(t, 2.0, prom.ToFloat64(e.metrics.HTTPRequests.WithLabelValues("GET /api/users", "GET", "200")))

	rec := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wrapsheet_http_requests_total")
}

func TestOfficesManualSync(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/offices/sync", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "contacts array required", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/offices/sync",
		`{"contacts":[{"contact_id":77,"name":"Gulf Realty","member_status":"Active"},{"name":"no id"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	assert.EqualValues(t, 1, body["inserted"])
	assert.EqualValues(t, 2, body["total"])

	rec = e.do(t, http.MethodGet, "/api/offices/77", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gulf Realty", decodeMap(t, rec)["name"])

	rec = e.do(t, http.MethodPost, "/api/offices/run-sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
