package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/berealtors/wrapsheet/internal/auth"
	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/mailer"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/report"
)

// logsFormChecks are reported in order; the first failing group wins.
var logsFormChecks = []struct {
	fields []string
	msg    string
}{
	{[]string{"firstName", "lastName"}, "First and last name are required."},
	{[]string{"dropMemberships"}, "At least one membership to drop is required."},
	{[]string{"dropWhen"}, "Drop timing is required."},
	{[]string{"changeReasons"}, "At least one change reason is required."},
	{[]string{"newBrokerInterested", "needsLetter", "cancelSupra", "hasListings"}, "Please complete all required questions."},
}

func logsFormError(form models.LogsForm) string {
	missing := missingFields(form)
	for _, c := range logsFormChecks {
		for _, f := range c.fields {
			if slices.Contains(missing, f) {
				return c.msg
			}
		}
	}
	return ""
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (s *Server) uploadMembers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AdminKey string             `json:"adminKey"`
		Rows     []models.MemberRow `json:"rows"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if !auth.CheckUploadKey(s.cfg.Admin.UploadKey, body.AdminKey) {
		writeFailure(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	n, err := s.store.ReplaceMembers(r.Context(), body.Rows)
	var inErr *database.InputError
	switch {
	case errors.As(err, &inErr):
		writeFailure(w, http.StatusBadRequest, inErr.Msg)
	case err != nil:
		s.logger.Error("replace members", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Info("member roster replaced", "rows", n)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "inserted": n})
	}
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	nrdsID := strings.TrimSpace(r.URL.Query().Get("nrdsId"))
	if nrdsID == "" {
		writeFailure(w, http.StatusBadRequest, "nrdsId is required")
		return
	}
	m, err := s.store.GetMemberByNRDS(r.Context(), nrdsID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Member not found")
	case err != nil:
		s.logger.Error("get member", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "member": m})
	}
}

func (s *Server) searchMembers(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.SearchMembers(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		s.logger.Error("search members", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []models.MemberSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

// submitLogsRequest stores the request, always emails staff, and returns the
// matched member so the front end can show the letter.
func (s *Server) submitLogsRequest(w http.ResponseWriter, r *http.Request) {
	var form models.LogsForm
	if err := decode(w, r, &form); err != nil {
		s.fail(w, r, err)
		return
	}
	if msg := logsFormError(form); msg != "" {
		writeFailure(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	member, status, err := s.store.MatchMember(ctx, form)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := s.store.SaveLogsRequest(ctx, models.LogsRequestFromForm(form, member != nil)); err != nil {
		s.logger.Error("save logs request", "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mail.Go(mailer.LogsRequestMessage(s.cfg.Mail.LogsFrom, form, member, status))

	if member == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   false,
			"submitted": true,
			"errorCode": "MEMBER_NOT_FOUND",
			"message": fmt.Sprintf("We submitted your request, but could not automatically locate a member record for \"%s\". "+
				"Please double-check that your name matches exactly as it appears in our MLS (just first and last name) "+
				"or provide your NRDS ID. If you still have trouble, please contact support@berealtors.org.", form.FullName()),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "submitted": true, "member": member})
}

func logsFilter(r *http.Request) database.LogsFilter {
	q := r.URL.Query()
	return database.LogsFilter{
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
		Limit:     queryInt(r, "limit", config.LogsDefaultLimit),
		Offset:    queryInt(r, "offset", 0),
	}
}

func (s *Server) listLogsRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.store.ListLogsRequests(r.Context(), logsFilter(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) logsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.LogsStats(r.Context(), logsFilter(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) updateLogsRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var fields map[string]json.RawMessage
	if err := decode(w, r, &fields); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.UpdateLogsRequest(r.Context(), id, fields); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) deleteLogsRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteLogsRequest(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// logsLetter renders the Letter of Good Standing for a stored request. The
// member is matched again so the letter reflects the current roster.
func (s *Server) logsLetter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := s.store.GetLogsRequest(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	member, _, err := s.store.MatchMember(r.Context(), models.LogsForm{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		NRDSID:    req.NRDSID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "Member not found")
		return
	}

	var buf bytes.Buffer
	if err := report.LettersOfGoodStanding(&buf, req, member, s.now()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="letter-of-good-standing-`+strconv.FormatInt(id, 10)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) createAdminSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	token, exp, err := s.auth.IssueSession(body.Token)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "Admin access is not configured")
	case err != nil:
		s.logger.Warn("admin session refused", "remote", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"token": token, "expiresAt": exp.UTC().Format("2006-01-02T15:04:05Z")})
	}
}
