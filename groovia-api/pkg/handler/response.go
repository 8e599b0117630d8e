package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeSuccess writes {"success": true} merged with fields.
func writeSuccess(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError writes {"error": message} with the status for err. Failures
// that are not client errors are logged and reported to Sentry. Rejected
// requests carrying field details are logged at info level.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)
	status := appErr.HTTPStatus()

	switch {
	case status < http.StatusInternalServerError:
		if appErr.Details != nil {
			h.log.Info("Request rejected",
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("error", appErr.Message),
				zap.Any("details", appErr.Details))
		}
	default:
		h.log.Error("Request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())))

		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
	}

	writeJSON(w, status, map[string]any{"error": appErr.Message})
}

// decodeJSON reads a JSON body into v. Malformed input becomes a validation
// error carrying msg.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, msg string) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.Validation(msg)
		}
		return apperrors.Wrap(err, apperrors.CodeValidation, msg)
	}
	return nil
}
