package handler

import (
	"net/http"

	"github.com/groovia/groovia/groovia-api/pkg/service"
)

func (h *handler) SyncUser(w http.ResponseWriter, r *http.Request) {
	var req service.SyncUserRequest
	if err := decodeJSON(w, r, &req, "Missing required fields"); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Sync(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"user": user})
}

func (h *handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := decodeJSON(w, r, &req, "Missing fields"); err != nil {
		h.writeError(w, r, err)
		return
	}

	settings, err := h.users.UpdateSettings(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"settings": settings})
}

func (h *handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var req service.ToggleLikeRequest
	if err := decodeJSON(w, r, &req, "Missing required fields"); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.users.ToggleLike(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"isLiked": result.IsLiked, "likedSongs": result.LikedSongs})
}
