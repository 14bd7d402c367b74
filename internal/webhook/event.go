// Package webhook authenticates and dispatches translation platform webhooks.
package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// TaskClosedEvent is the platform event name handled by the dispatcher.
const TaskClosedEvent = "project.task.closed"

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidJSON      = errors.New("invalid JSON")
	ErrUnhandledPayload = errors.New("unhandled payload")
)

// Event is one of Ping, TaskClosed or Unrecognized.
type Event interface {
	event()
}

// Ping is the health check the platform sends when a webhook is registered.
type Ping struct{}

// TaskClosed reports that translators finished a task.
type TaskClosed struct {
	TaskID      string
	ProjectID   string
	TaskTitle   string
	ProjectName string
}

// Unrecognized is any other well-formed payload.
type Unrecognized struct {
	Reason string
}

func (Ping) event()         {}
func (TaskClosed) event()   {}
func (Unrecognized) event() {}

// identifier accepts both JSON strings and numbers.
type identifier string

func (id *identifier) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = identifier(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*id = identifier(n.String())
	return nil
}

type taskClosedPayload struct {
	Event   string `json:"event"`
	Project *struct {
		ID   identifier `json:"id"`
		Name string     `json:"name"`
	} `json:"project"`
	Task *struct {
		ID    identifier `json:"id"`
		Title string     `json:"title"`
	} `json:"task"`
}

// Classify turns a raw body into an Event. Only malformed JSON is an error.
func Classify(raw []byte, projectID string) (Event, error) {
	if !json.Valid(raw) {
		return nil, ErrInvalidJSON
	}

	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.Join(ErrInvalidJSON, err)
		}
		var first string
		if len(items) > 0 && json.Unmarshal(items[0], &first) == nil && first == "ping" {
			return Ping{}, nil
		}
		return Unrecognized{Reason: "array payload is not a ping"}, nil

	case '{':
		var p taskClosedPayload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return Unrecognized{Reason: "object payload has unexpected field types"}, nil
		}
		if p.Event != TaskClosedEvent {
			return Unrecognized{Reason: "event " + strconv.Quote(p.Event) + " is not handled"}, nil
		}
		if p.Project == nil || string(p.Project.ID) != strings.TrimSpace(projectID) {
			return Unrecognized{Reason: "event is for another project"}, nil
		}
		if p.Task == nil || p.Task.ID == "" {
			return Unrecognized{Reason: "event carries no task id"}, nil
		}
		return TaskClosed{
			TaskID:      string(p.Task.ID),
			ProjectID:   string(p.Project.ID),
			TaskTitle:   p.Task.Title,
			ProjectName: p.Project.Name,
		}, nil

	default:
		return Unrecognized{Reason: "payload is neither an array nor an object"}, nil
	}
}
