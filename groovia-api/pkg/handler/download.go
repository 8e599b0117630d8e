package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"github.com/groovia/groovia/groovia-api/pkg/utils"
	"go.uber.org/zap"
)

// Download streams a remote file through the server with only its content
// type forwarded.
func (h *handler) Download(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		ip := utils.ClientIP(r)
		if !h.limiter.Allow(ip) {
			h.log.Warn("Rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			h.writeError(w, r, apperrors.RateLimited("Too many requests. Please try again later."))
			return
		}
	}

	dl, err := h.downloader.Open(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.ContentType)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Body); err != nil && !errors.Is(err, r.Context().Err()) {
		h.log.Warn("Download stream interrupted", zap.Error(err))
	}
}
