package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/berealtors/wrapsheet/internal/config"
	"github.com/berealtors/wrapsheet/internal/database"
)

const maxBodyBytes = config.MaxRequestBodyMB << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a client error raised while reading a request.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readBody returns the request body, capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: "Request body too large"}
		}
		return nil, badRequest("Could not read request body")
	}
	return b, nil
}

// decode reads a JSON body into dst. A missing or malformed body decodes as
// {} so required-field checks report what is missing; a field of the wrong
// type is a client error.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	b, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	err = json.Unmarshal(b, dst)
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return nil
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return badRequest("Invalid value for %s", typeErr.Field)
	default:
		return badRequest("Invalid request body: %v", err)
	}
}

// missingFields lists the json names of fields failing a validate tag.
func missingFields(v any) []string {
	err := validate.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Invalid %s", name)
	}
	return id, nil
}

// queryID parses an optional positive integer query parameter. Absent means 0.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("%s must be a positive integer", name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter, falling back to def
// when absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return def
	}
	return n
}

var notFoundMessages = map[string]string{
	database.EntityUser:         "User not found",
	database.EntityDailyTask:    "Task not found",
	database.EntityDailySubtask: "Subtask not found",
	database.EntityGoal:         "Goal not found",
	database.EntityCategory:     "Category not found",
	database.EntityGoalSubtask:  "Subtask not found",
	database.EntityProject:      "Project not found",
	database.EntityProjectStep:  "Step not found",
	database.EntityWeeklyTask:   "Weekly task not found",
	database.EntitySuggestion:   "Suggestion not found",
	database.EntityOffice:       "Office not found",
	database.EntityMember:       "Member not found",
	database.EntityLogsRequest:  "Request not found",
}

func notFoundMessage(err error) string {
	var opErr *database.OpError
	if errors.As(err, &opErr) {
		if msg, ok := notFoundMessages[opErr.Resource]; ok {
			return msg
		}
	}
	return "Not found"
}

// fail maps an error onto the response taxonomy: bad input 400, missing 404,
// duplicate 409, vote quota 403, anything else 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr *requestError
		inErr  *database.InputError
	)
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr.msg)
	case errors.As(err, &inErr):
		writeError(w, http.StatusBadRequest, inErr.Msg)
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, database.ErrVoteLimit):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":        fmt.Sprintf("Monthly vote limit reached (%d/%d)", config.MonthlyVoteLimit, config.MonthlyVoteLimit),
			"limitReached": true,
		})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}
