package upload

import (
	"encoding/json"
	"net/http"

	"github.com/pitabwire/util"
)

// NewHandler serves the upload endpoint.
func NewHandler(u *Uploader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("Content-Type", "application/json")

		result, err := u.Upload(ctx)
		if err != nil {
			util.Log(ctx).WithError(err).Error("upload failed")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Upload failed"})
			return
		}

		w.WriteHeader(http.StatusOK)
		if err = json.NewEncoder(w).Encode(result); err != nil {
			util.Log(ctx).WithError(err).Debug("response write failed")
		}
	})
}
