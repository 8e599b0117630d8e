package service

import (
	"context"
	"errors"
	"sync"

	"github.com/groovia/groovia/groovia-api/pkg/db"
	"github.com/groovia/groovia/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDatabase keeps users and playlists in memory and applies the same
// filters as the Mongo implementation.
type fakeDatabase struct {
	mu        sync.Mutex
	users     []models.User
	playlists []models.Playlist

	attachErr  error
	detachErr  error
	detachCall [][]primitive.ObjectID
}

func newFakeDatabase() *fakeDatabase {
	return &fakeDatabase{}
}

func (f *fakeDatabase) userIndexByUID(uid string) int {
	for i, u := range f.users {
		if u.UID == uid {
			return i
		}
	}
	return -1
}

func (f *fakeDatabase) userIndexByID(id primitive.ObjectID) int {
	for i, u := range f.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeDatabase) playlistIndex(id primitive.ObjectID) int {
	for i, p := range f.playlists {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeDatabase) FindUserByUID(_ context.Context, uid string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.userIndexByUID(uid)
	if i < 0 {
		return models.User{}, db.ErrNotFound
	}
	return f.users[i], nil
}

func (f *fakeDatabase) CreateUser(_ context.Context, user models.User) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.UID == user.UID || u.Email == user.Email {
			return models.User{}, db.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeDatabase) UpdateSettings(_ context.Context, uid string, settings models.Settings) (models.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.userIndexByUID(uid)
	if i < 0 {
		return models.Settings{}, db.ErrNotFound
	}
	f.users[i].Settings = settings
	return f.users[i].Settings, nil
}

func (f *fakeDatabase) ToggleLike(_ context.Context, uid string, song models.Song) (bool, []models.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.userIndexByUID(uid)
	if i < 0 {
		return false, nil, db.ErrNotFound
	}

	liked := f.users[i].LikedSongs
	for j, s := range liked {
		if s.ID == song.ID {
			f.users[i].LikedSongs = append(append([]models.Song{}, liked[:j]...), liked[j+1:]...)
			return false, f.users[i].LikedSongs, nil
		}
	}

	f.users[i].LikedSongs = append([]models.Song{song}, liked...)
	return true, f.users[i].LikedSongs, nil
}

func (f *fakeDatabase) DetachPlaylists(_ context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.detachCall = append(f.detachCall, ids)
	if f.detachErr != nil {
		return f.detachErr
	}

	i := f.userIndexByID(userID)
	if i < 0 {
		return nil
	}
	f.users[i].Playlists = without(f.users[i].Playlists, ids)
	return nil
}

func (f *fakeDatabase) CreatePlaylist(_ context.Context, playlist models.Playlist) (models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if playlist.ID.IsZero() {
		playlist.ID = primitive.NewObjectID()
	}

	i := f.userIndexByID(playlist.Owner)
	if i < 0 {
		return models.Playlist{}, db.ErrNotFound
	}
	if f.attachErr != nil {
		// Mirrors the compensating delete: nothing is left behind.
		return models.Playlist{}, f.attachErr
	}

	f.playlists = append(f.playlists, playlist)
	f.users[i].Playlists = append(f.users[i].Playlists, playlist.ID)
	return playlist, nil
}

func (f *fakeDatabase) DeletePlaylists(_ context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	requested := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	var deleted int64
	kept := f.playlists[:0]
	for _, p := range f.playlists {
		if requested[p.ID] && p.Owner == ownerID {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	f.playlists = kept

	if i := f.userIndexByID(ownerID); i >= 0 {
		f.users[i].Playlists = without(f.users[i].Playlists, ids)
	}

	return deleted, nil
}

func (f *fakeDatabase) GetPlaylist(_ context.Context, id primitive.ObjectID) (models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.playlistIndex(id)
	if i < 0 {
		return models.Playlist{}, db.ErrNotFound
	}
	return f.playlists[i], nil
}

func (f *fakeDatabase) GetPlaylistsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Playlist{}
	for _, id := range ids {
		if i := f.playlistIndex(id); i >= 0 {
			out = append(out, f.playlists[i])
		}
	}
	return out, nil
}

func (f *fakeDatabase) FindOwnedPlaylist(_ context.Context, ownerID, id primitive.ObjectID) (models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.playlistIndex(id)
	if i < 0 || f.playlists[i].Owner != ownerID {
		return models.Playlist{}, db.ErrNotFound
	}
	return f.playlists[i], nil
}

func (f *fakeDatabase) AddSong(_ context.Context, ownerID, playlistID primitive.ObjectID, song models.Song, cover string) (models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.playlistIndex(playlistID)
	if i < 0 || f.playlists[i].Owner != ownerID {
		return models.Playlist{}, db.ErrNotFound
	}
	if f.playlists[i].HasSong(song.ID) {
		return models.Playlist{}, db.ErrSongInList
	}

	f.playlists[i].Songs = append(f.playlists[i].Songs, song)
	if cover != "" {
		f.playlists[i].Image = cover
	}
	return f.playlists[i], nil
}

func (f *fakeDatabase) RemoveSongs(_ context.Context, ownerID, playlistID primitive.ObjectID, songIDs []string) (models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.playlistIndex(playlistID)
	if i < 0 || f.playlists[i].Owner != ownerID {
		return models.Playlist{}, db.ErrNotFound
	}

	remove := make(map[string]bool, len(songIDs))
	for _, id := range songIDs {
		remove[id] = true
	}
	kept := []models.Song{}
	for _, s := range f.playlists[i].Songs {
		if !remove[s.ID] {
			kept = append(kept, s)
		}
	}
	f.playlists[i].Songs = kept
	return f.playlists[i], nil
}

func without(ids, drop []primitive.ObjectID) []primitive.ObjectID {
	skip := make(map[primitive.ObjectID]bool, len(drop))
	for _, id := range drop {
		skip[id] = true
	}
	out := []primitive.ObjectID{}
	for _, id := range ids {
		if !skip[id] {
			out = append(out, id)
		}
	}
	return out
}

var errBoom = errors.New("boom")
