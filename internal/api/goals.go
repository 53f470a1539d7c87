package api

import (
	"net/http"
	"strings"

	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/models"
)

// periodParam is the query parameter naming a goal period.
func periodParam(t models.GoalType) string {
	if t == models.GoalAnnual {
		return "year"
	}
	return "month"
}

func (s *Server) listGoals(t models.GoalType) http.HandlerFunc {
	param := periodParam(t)
	return func(w http.ResponseWriter, r *http.Request) {
		period := strings.TrimSpace(r.URL.Query().Get(param))
		if period == "" {
			writeError(w, http.StatusBadRequest, param+" query param required")
			return
		}
		owner, err := queryID(r, "ownerId")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		goals, err := s.store.ListGoals(r.Context(), t, period, owner)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

func (s *Server) createGoal(t models.GoalType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in database.GoalInput
		if err := decode(w, r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
		g, err := s.store.CreateGoal(r.Context(), t, in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

func (s *Server) updateGoal(t models.GoalType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var patch database.GoalPatch
		if err := decode(w, r, &patch); err != nil {
			s.fail(w, r, err)
			return
		}
		g, err := s.store.UpdateGoal(r.Context(), t, id, patch)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func (s *Server) deleteGoal(t models.GoalType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.store.DeleteGoal(r.Context(), t, id); err != nil {
			s.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) listGoalCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, period := strings.TrimSpace(q.Get("type")), strings.TrimSpace(q.Get("period"))
	if typ == "" || period == "" {
		writeError(w, http.StatusBadRequest, "type and period query params required")
		return
	}
	owner, err := queryID(r, "ownerId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cats, err := s.store.ListGoalCategories(r.Context(), typ, period, owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) createGoalCategory(w http.ResponseWriter, r *http.Request) {
	var in database.GoalCategoryInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.store.CreateGoalCategory(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateGoalCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch database.GoalCategoryPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.store.UpdateGoalCategory(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// goalRef reads the {type}/{id} pair of a goal subtask collection route.
func goalRef(r *http.Request) (models.GoalType, int64, error) {
	t := models.GoalType(r.PathValue("type"))
	if !t.Valid() {
		return "", 0, &requestError{status: http.StatusNotFound, msg: "Not found"}
	}
	id, err := pathID(r, "id")
	return t, id, err
}

func (s *Server) listGoalSubtasks(w http.ResponseWriter, r *http.Request) {
	t, goalID, err := goalRef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	subs, err := s.store.ListGoalSubtasks(r.Context(), t, goalID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) createGoalSubtask(w http.ResponseWriter, r *http.Request) {
	t, goalID, err := goalRef(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in database.GoalSubtaskInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sub, err := s.store.CreateGoalSubtask(r.Context(), t, goalID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) updateGoalSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch database.GoalSubtaskPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	upd, err := s.store.UpdateGoalSubtask(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upd.Subtask)
}

func (s *Server) deleteGoalSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.store.DeleteGoalSubtask(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addSubtaskToCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in database.CalendarInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.store.AddSubtaskToCalendar(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
