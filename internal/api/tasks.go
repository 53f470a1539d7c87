package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/mailer"
	"github.com/berealtors/wrapsheet/internal/models"
	"github.com/berealtors/wrapsheet/internal/util"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in database.UserInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	in.Name, in.Email = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if len(missingFields(in)) > 0 {
		writeError(w, http.StatusBadRequest, "Name and email required")
		return
	}
	u, err := s.store.CreateUser(r.Context(), in)
	if errors.Is(err, database.ErrConflict) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": "User already exists", "user": u})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) listDailyTasks(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if !util.ValidMonthKey(month) {
		writeError(w, http.StatusBadRequest, "month query param required (YYYY-MM)")
		return
	}
	assignedTo, err := queryID(r, "assignedToId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tasks, err := s.store.ListDailyTasks(r.Context(), month, assignedTo)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// createDailyTask honours x-user-email: the caller becomes creator and
// assigner, overriding the body.
func (s *Server) createDailyTask(w http.ResponseWriter, r *http.Request) {
	var in database.DailyTaskInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if email := strings.TrimSpace(r.Header.Get("x-user-email")); email != "" {
		u, err := s.store.GetUserByEmail(r.Context(), email)
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("x-user-email has no user", "email", email)
			writeError(w, http.StatusUnauthorized, "User not found for provided email")
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
		in.CreatedByID = models.FlexInt64(u.ID)
		in.AssignedByID = models.FlexInt64(u.ID)
	}
	if missing := missingFields(in); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing required fields", "missing": missing})
		return
	}
	task, err := s.store.CreateDailyTask(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) updateDailyTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch database.DailyTaskPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	upd, err := s.store.UpdateDailyTask(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	task := upd.Task
	if upd.NotifyCompletion && s.notifyCompletion(r, task) {
		task.CompletionNotified = 1
	}
	writeJSON(w, http.StatusOK, task)
}

// notifyCompletion emails the assigner in the background and records that
// the notice went out. It reports whether the flag was stored; a failure to
// store it is logged, not returned.
func (s *Server) notifyCompletion(r *http.Request, task models.DailyTask) bool {
	if util.Deref(task.AssignedByEmail) == "" {
		s.logger.Warn("completion notice skipped, assigner has no email", "task_id", task.ID)
		return false
	}
	from := mailer.Address{Email: s.cfg.Mail.From, Name: s.cfg.Mail.FromName}
	s.mail.Go(mailer.CompletionMessage(from, task))
	if err := s.store.MarkCompletionNotified(r.Context(), task.ID); err != nil {
		s.logger.Error("mark completion notified", "task_id", task.ID, "error", err)
		return false
	}
	return true
}

func (s *Server) deleteDailyTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteDailyTask(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listDailySubtasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	subs, err := s.store.ListDailySubtasks(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) createDailySubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in database.DailySubtaskInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(missingFields(in)) > 0 {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	sub, err := s.store.CreateDailySubtask(r.Context(), id, in)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Parent task not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) updateDailySubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch database.DailySubtaskPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.store.UpdateDailySubtask(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) deleteDailySubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteDailySubtask(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listWeeklyTasks(w http.ResponseWriter, r *http.Request) {
	week := strings.TrimSpace(r.URL.Query().Get("week"))
	if week == "" {
		week = util.WeekKey(s.now())
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.store.ListWeeklyTasks(r.Context(), week, userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createWeeklyTask(w http.ResponseWriter, r *http.Request) {
	var in database.WeeklyTaskInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := s.store.CreateWeeklyTask(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) updateWeeklyTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch database.WeeklyTaskPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := s.store.UpdateWeeklyTask(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteWeeklyTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteWeeklyTask(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
