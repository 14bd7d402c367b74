package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync/internal/syncer"
)

const (
	// SecretHeader carries the shared webhook secret.
	SecretHeader = "X-Secret"
	// PublishFailedHeader counts files that could not be published in a successful run.
	PublishFailedHeader = "X-Publish-Failed"

	maxBodySize = 1 << 20
)

// Runner executes a sync for a closed task.
type Runner interface {
	Run(ctx context.Context, task syncer.Task) (syncer.Report, error)
}

// Handler serves the platform webhook.
type Handler struct {
	secret    string
	projectID string
	runner    Runner
}

func NewHandler(secret, projectID string, runner Runner) *Handler {
	return &Handler{secret: secret, projectID: projectID, runner: runner}
}

func (h *Handler) authorised(r *http.Request) bool {
	got := r.Header.Get(SecretHeader)
	if h.secret == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := util.Log(ctx).WithField("remote", r.RemoteAddr)

	if !h.authorised(r) {
		log.WithError(ErrForbidden).Warn("webhook rejected")
		writeJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		log.WithError(err).Warn("webhook body unreadable")
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	event, err := Classify(raw, h.projectID)
	if err != nil {
		log.WithError(err).Warn("webhook body is not JSON")
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	switch ev := event.(type) {
	case Ping:
		log.Info("webhook ping received")
		writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "success"})

	case TaskClosed:
		h.taskClosed(ctx, w, ev)

	case Unrecognized:
		log.WithError(ErrUnhandledPayload).WithField("reason", ev.Reason).Warn("webhook payload ignored")
		writeJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "Unhandled payload"})
	}
}

func (h *Handler) taskClosed(ctx context.Context, w http.ResponseWriter, ev TaskClosed) {
	log := util.Log(ctx).
		WithField("task", ev.TaskID).
		WithField("title", ev.TaskTitle).
		WithField("project", ev.ProjectName)
	log.Info("task closed, starting sync")

	report, err := h.runner.Run(ctx, syncer.Task{
		ID:          ev.TaskID,
		ProjectID:   ev.ProjectID,
		Title:       ev.TaskTitle,
		ProjectName: ev.ProjectName,
	})
	if err != nil {
		var platformErr *syncer.PlatformError
		var downloadErr *syncer.DownloadError
		switch {
		case errors.As(err, &platformErr):
			log = log.WithField("stage", "platform")
		case errors.As(err, &downloadErr):
			log = log.WithField("stage", downloadErr.Stage)
		}
		log.WithError(err).Error("sync failed")
		writeJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "Processing failed"})
		return
	}

	if failed := report.Failed(); failed > 0 {
		w.Header().Set(PublishFailedHeader, strconv.Itoa(failed))
	}
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "task processed"})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		util.Log(ctx).WithError(err).Debug("response write failed")
	}
}
