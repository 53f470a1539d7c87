package database

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrVoteLimit    = errors.New("monthly vote limit reached")
	ErrInvalidInput = errors.New("invalid input")
)

// Entity names used in OpError.Resource.
const (
	EntityUser         = "user"
	EntityDailyTask    = "daily task"
	EntityDailySubtask = "daily subtask"
	EntityGoal         = "goal"
	EntityCategory     = "goal category"
	EntityGoalSubtask  = "goal subtask"
	EntityProject      = "project"
	EntityProjectStep  = "project step"
	EntityPreferences  = "preferences"
	EntityWeeklyTask   = "weekly task"
	EntitySuggestion   = "suggestion"
	EntityVote         = "vote"
	EntityOffice       = "office"
	EntityPin          = "pin"
	EntityMember       = "member"
	EntityLogsRequest  = "logs request"
)

type OpError struct {
	Op       string
	Resource string
	ID       int64
	Err      error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	if e.ID > 0 {
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func wrapErr(resource, op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Resource: resource, ID: id, Err: err}
}

func notFound(resource, op string, id int64) error {
	return wrapErr(resource, op, id, ErrNotFound)
}

// InputError carries the client-facing message of a rejected input. It
// matches ErrInvalidInput under errors.Is.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(resource, op, msg string) error {
	return wrapErr(resource, op, 0, &InputError{Msg: msg})
}

// isUniqueViolation reports a UNIQUE constraint failure from SQLite.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
