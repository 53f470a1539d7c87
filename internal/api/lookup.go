package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/berealtors/wrapsheet/internal/ocr"
)

func (s *Server) verifyLicense(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.URL.Query().Get("number"))
	if number == "" {
		writeError(w, http.StatusBadRequest, "License number required")
		return
	}
	if s.license == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"valid": false, "error": "license lookup is not configured"})
		return
	}
	res, err := s.license.Verify(r.Context(), number)
	if err != nil {
		s.logger.Warn("license lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) extractText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Image    string `json:"image"`
		MimeType string `json:"mimeType"`
	}
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Image == "" {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}
	if s.ocr == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": ocr.ErrNoAPIKey.Error(), "success": false})
		return
	}
	text, err := s.ocr.ExtractText(r.Context(), body.Image, body.MimeType)
	var upErr *ocr.UpstreamError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"text": text, "success": true})
	case errors.As(err, &upErr):
		s.logger.Warn("gemini rejected ocr request", "status", upErr.Status)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Gemini API error", "details": upErr.Details})
	case errors.Is(err, ocr.ErrNoImage):
		writeError(w, http.StatusBadRequest, "No image provided")
	default:
		s.logger.Error("ocr failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error(), "success": false})
	}
}
