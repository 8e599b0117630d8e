package handler

import (
	"net/http"

	"github.com/groovia/groovia/groovia-api/pkg/service"
)

func (h *handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePlaylistRequest
	if err := decodeJSON(w, r, &req, "Missing required fields"); err != nil {
		h.writeError(w, r, err)
		return
	}

	playlist, err := h.playlists.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"playlist": playlist})
}

func (h *handler) DeletePlaylists(w http.ResponseWriter, r *http.Request) {
	var req service.DeletePlaylistsRequest
	if err := decodeJSON(w, r, &req, "Invalid Request"); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.playlists.Delete(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, nil)
}

func (h *handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlist, err := h.playlists.Get(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"playlist": playlist})
}

func (h *handler) UserPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.ListForUser(r.Context(), r.URL.Query().Get("uid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"playlists": playlists})
}

func (h *handler) AddSong(w http.ResponseWriter, r *http.Request) {
	var req service.AddSongRequest
	if err := decodeJSON(w, r, &req, "Missing required fields"); err != nil {
		h.writeError(w, r, err)
		return
	}

	playlist, err := h.playlists.AddSong(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"playlist": playlist})
}

func (h *handler) RemoveSongs(w http.ResponseWriter, r *http.Request) {
	var req service.RemoveSongsRequest
	if err := decodeJSON(w, r, &req, "Invalid Request"); err != nil {
		h.writeError(w, r, err)
		return
	}

	playlist, err := h.playlists.RemoveSongs(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeSuccess(w, map[string]any{"playlist": playlist})
}
