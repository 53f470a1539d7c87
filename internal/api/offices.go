package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/berealtors/wrapsheet/internal/database"
	"github.com/berealtors/wrapsheet/internal/models"
)

func (s *Server) listOffices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offices, err := s.store.ListOffices(r.Context(), q.Get("status"), strings.TrimSpace(q.Get("search")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offices)
}

// officeDetail is an office with the address and phone rows of its last sync.
type officeDetail struct {
	models.Office
	Addresses []models.OfficeAddress `json:"addresses"`
	Phones    []models.OfficePhone   `json:"phones"`
}

func (s *Server) getOffice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.store.GetOffice(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	addrs, phones, err := s.store.OfficeDetail(r.Context(), o.ContactID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if addrs == nil {
		addrs = []models.OfficeAddress{}
	}
	if phones == nil {
		phones = []models.OfficePhone{}
	}
	writeJSON(w, http.StatusOK, officeDetail{Office: o, Addresses: addrs, Phones: phones})
}

func (s *Server) deleteOffice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.DeleteOffice(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// syncOffices upserts an office list pushed by the GrowthZone export tool.
func (s *Server) syncOffices(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Contacts []models.OfficeInput `json:"contacts"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Contacts == nil {
		writeError(w, http.StatusBadRequest, "contacts array required")
		return
	}
	res, err := s.store.UpsertOffices(r.Context(), body.Contacts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"inserted": res.Inserted,
		"updated":  res.Updated,
		"total":    res.Total,
	})
}

func (s *Server) runOfficeSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusInternalServerError, "GrowthZone API key is not configured")
		return
	}
	res, err := s.syncer.Run(r.Context())
	if err != nil {
		s.logger.Error("manual office sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"inserted":     res.Inserted,
		"updated":      res.Updated,
		"addressCount": res.AddressCount,
		"phoneCount":   res.PhoneCount,
	})
}

func (s *Server) listPins(w http.ResponseWriter, r *http.Request) {
	pins, err := s.store.ListPins(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, pins)
}

type pinError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func pinExists(name string) pinError {
	return pinError{
		Error:   "name_exists",
		Message: fmt.Sprintf("The name \"%s\" already has a pin. Each name can only place one pin.", name),
	}
}

// createPin keeps the globe's own error envelope: invalid_json, invalid_data
// and name_exists, each with a human message.
func (s *Server) createPin(w http.ResponseWriter, r *http.Request) {
	b, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		writeJSON(w, http.StatusBadRequest, pinError{Error: "invalid_json", Message: "Invalid JSON body"})
		return
	}
	var (
		name, city string
		lat, lng   *float64
	)
	invalidData := json.Unmarshal(raw["name"], &name) != nil ||
		json.Unmarshal(raw["city"], &city) != nil ||
		json.Unmarshal(raw["lat"], &lat) != nil ||
		json.Unmarshal(raw["lng"], &lng) != nil
	if invalidData || lat == nil || lng == nil || strings.TrimSpace(name) == "" || strings.TrimSpace(city) == "" {
		writeJSON(w, http.StatusBadRequest, pinError{Error: "invalid_data", Message: "name, city, lat, lng are required"})
		return
	}

	pin, err := s.store.CreatePin(r.Context(), name, city, *lat, *lng)
	var inErr *database.InputError
	switch {
	case errors.Is(err, database.ErrConflict):
		writeJSON(w, http.StatusConflict, pinExists(pin.Name))
		return
	case errors.As(err, &inErr):
		writeJSON(w, http.StatusBadRequest, pinError{Error: "invalid_data", Message: inErr.Msg})
		return
	case err != nil:
		s.logger.Error("create pin", "error", err, "request_id", requestIDFrom(r.Context()))
		writeJSON(w, http.StatusInternalServerError, pinError{Error: "internal_error", Message: "Unexpected error in pins handler."})
		return
	}

	pins, err := s.store.ListPins(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "pins": pins})
}
