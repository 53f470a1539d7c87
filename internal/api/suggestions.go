package api

import (
	"errors"
	"net/http"

	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/metrics"
	"github.com/berealtors/wrapsheet/internal/models"
)

func (s *Server) listSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	assignedTo, err := queryID(r, "assignedTo")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	items, err := s.store.ListSuggestions(r.Context(), database.SuggestionFilter{
		AssignedTo: assignedTo,
		Source:     q.Get("source"),
		Status:     q.Get("status"),
		Top:        queryInt(r, "top", 0),
		Limit:      queryInt(r, "limit", 0),
		UserID:     userID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) createSuggestion(w http.ResponseWriter, r *http.Request) {
	var in database.SuggestionInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.store.CreateSuggestion(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "success": true})
}

func (s *Server) updateSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch database.SuggestionPatch
	if err := decode(w, r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.UpdateSuggestion(r.Context(), id, patch); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) deleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteSuggestion(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) toggleVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body struct {
		UserID models.FlexInt64 `json:"userId"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.store.ToggleVote(r.Context(), id, int64(body.UserID), s.now())
	switch {
	case errors.Is(err, database.ErrVoteLimit):
		s.countVote(metrics.VoteRejected)
	case err != nil:
	case res.Voted:
		s.countVote(metrics.VoteCast)
	default:
		s.countVote(metrics.VoteRetracted)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) countVote(outcome string) {
	if s.metrics != nil {
		s.metrics.Votes.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) voteUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "userId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if userID == 0 {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	usage, err := s.store.VoteUsage(r.Context(), userID, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
