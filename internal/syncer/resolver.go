// Package syncer moves translated resources from the translation platform into object storage.
package syncer

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/pitabwire/localesync/internal/lokalise"
)

// ErrTaskNotFound is wrapped in a PlatformError when the platform does not know the task.
var ErrTaskNotFound = errors.New("task not found")

// TaskSource fetches task details.
type TaskSource interface {
	Task(ctx context.Context, taskID string) (*lokalise.Task, error)
}

// Resolver finds the target languages of a task.
type Resolver struct {
	tasks TaskSource
}

func NewResolver(tasks TaskSource) *Resolver {
	return &Resolver{tasks: tasks}
}

// ResolveTargetLanguages returns the language codes of taskID in platform order, exactly as the
// platform spells them. Blank and repeated codes are dropped.
func (r *Resolver) ResolveTargetLanguages(ctx context.Context, taskID string) ([]string, error) {
	task, err := r.tasks.Task(ctx, taskID)
	if err != nil {
		var apiErr *lokalise.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			err = errors.Join(ErrTaskNotFound, err)
		}
		return nil, &PlatformError{Op: "resolve languages", TaskID: taskID, Err: err}
	}
	if task == nil {
		return nil, &PlatformError{Op: "resolve languages", TaskID: taskID, Err: ErrTaskNotFound}
	}

	languages := make([]string, 0, len(task.Languages))
	for _, l := range task.Languages {
		code := strings.TrimSpace(l.LanguageISO)
		if code == "" || slices.Contains(languages, code) {
			continue
		}
		languages = append(languages, code)
	}
	return languages, nil
}
