package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"github.com/groovia/groovia/groovia-api/pkg/db"
	"github.com/groovia/groovia/groovia-api/pkg/events"
	"github.com/groovia/groovia/groovia-api/pkg/utils"
	"github.com/groovia/groovia/groovia-api/pkg/validation"
	"github.com/groovia/groovia/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type PlaylistDB interface {
	PlaylistResolver
	FindUserByUID(ctx context.Context, uid string) (models.User, error)
	CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	DeletePlaylists(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	GetPlaylist(ctx context.Context, id primitive.ObjectID) (models.Playlist, error)
	FindOwnedPlaylist(ctx context.Context, ownerID, id primitive.ObjectID) (models.Playlist, error)
	AddSong(ctx context.Context, ownerID, playlistID primitive.ObjectID, song models.Song, cover string) (models.Playlist, error)
	RemoveSongs(ctx context.Context, ownerID, playlistID primitive.ObjectID, songIDs []string) (models.Playlist, error)
}

type CreatePlaylistRequest struct {
	UID         string `json:"uid" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

type DeletePlaylistsRequest struct {
	UID         string   `json:"uid" validate:"required"`
	PlaylistIDs []string `json:"playlistIds" validate:"required"`
}

type AddSongRequest struct {
	UID        string            `json:"uid" validate:"required"`
	PlaylistID string            `json:"playlistId" validate:"required"`
	Song       *models.SongInput `json:"song" validate:"required"`
}

type RemoveSongsRequest struct {
	UID        string   `json:"uid" validate:"required"`
	PlaylistID string   `json:"playlistId" validate:"required"`
	SongIDs    []string `json:"songIds" validate:"required"`
}

type PlaylistService struct {
	db        PlaylistDB
	events    events.Publisher
	validator *validation.Validator
	log       *zap.Logger
	now       clock
}

func NewPlaylistService(db PlaylistDB, publisher events.Publisher, validator *validation.Validator, log *zap.Logger) *PlaylistService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &PlaylistService{
		db:        db,
		events:    publisher,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

// Create makes a playlist owned by the user and appends it to the user's list.
// An unknown uid fails before anything is written.
func (s *PlaylistService) Create(ctx context.Context, req CreatePlaylistRequest) (models.Playlist, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req, msgMissingFields); err != nil {
		return models.Playlist{}, err
	}

	user, err := findUser(ctx, s.db, req.UID)
	if err != nil {
		return models.Playlist{}, err
	}

	playlist := models.NewPlaylist(user.ID, req.Name, req.Description, req.Image, s.now())
	created, err := s.db.CreatePlaylist(ctx, playlist)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Playlist{}, apperrors.NotFound(msgUserNotFound)
		}
		s.log.Error("Failed to create playlist", zap.Error(err), zap.String("uid", req.UID))
		return models.Playlist{}, apperrors.Internal(err)
	}

	s.log.Info("Created playlist",
		zap.String("uid", req.UID),
		zap.String("playlist_id", created.ID.Hex()),
		zap.String("name", created.Name))
	s.events.Publish(ctx, events.PlaylistCreated, created)

	return created, nil
}

// Delete removes the given playlists that the user owns. Ids owned by other
// users are ignored and the call still succeeds.
func (s *PlaylistService) Delete(ctx context.Context, req DeletePlaylistsRequest) error {
	if err := s.validator.Validate(req, msgInvalidRequest); err != nil {
		return err
	}

	ids, err := utils.ParseObjectIDs(req.PlaylistIDs)
	if err != nil {
		return apperrors.Validation("Invalid playlist id")
	}

	user, err := findUser(ctx, s.db, req.UID)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		return nil
	}

	deleted, err := s.db.DeletePlaylists(ctx, user.ID, ids)
	if err != nil {
		s.log.Error("Failed to delete playlists", zap.Error(err), zap.String("uid", req.UID))
		return apperrors.Internal(err)
	}

	s.log.Info("Deleted playlists",
		zap.String("uid", req.UID),
		zap.Int("requested", len(ids)),
		zap.Int64("deleted", deleted))
	if deleted > 0 {
		s.events.Publish(ctx, events.PlaylistDeleted, map[string]any{
			"owner":       user.ID.Hex(),
			"playlistIds": req.PlaylistIDs,
		})
	}

	return nil
}

// Get returns a playlist by id. Songs are embedded so nothing is joined.
func (s *PlaylistService) Get(ctx context.Context, id string) (models.Playlist, error) {
	if strings.TrimSpace(id) == "" {
		return models.Playlist{}, apperrors.Validation("Playlist ID is required")
	}

	oid, err := utils.ParseObjectID(id)
	if err != nil {
		return models.Playlist{}, apperrors.Validation("Invalid playlist id")
	}

	playlist, err := s.db.GetPlaylist(ctx, oid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Playlist{}, apperrors.NotFound("Playlist not found")
		}
		return models.Playlist{}, apperrors.Internal(err)
	}

	return playlist, nil
}

func (s *PlaylistService) ListForUser(ctx context.Context, uid string) ([]models.Playlist, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, apperrors.Validation("UID is required")
	}

	user, err := findUser(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}

	return resolvePlaylists(ctx, s.db, s.log, user)
}

// AddSong appends a song to a playlist the user owns. A playlist without a
// cover takes the song's largest image.
func (s *PlaylistService) AddSong(ctx context.Context, req AddSongRequest) (models.Playlist, error) {
	if err := s.validator.Validate(req, msgMissingFields); err != nil {
		return models.Playlist{}, err
	}

	playlistID, err := utils.ParseObjectID(req.PlaylistID)
	if err != nil {
		return models.Playlist{}, apperrors.Validation("Invalid playlist id")
	}

	user, err := findUser(ctx, s.db, req.UID)
	if err != nil {
		return models.Playlist{}, err
	}

	playlist, err := s.db.FindOwnedPlaylist(ctx, user.ID, playlistID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Playlist{}, apperrors.NotFound("Playlist not found or access denied")
		}
		return models.Playlist{}, apperrors.Internal(err)
	}

	song := req.Song.Normalize()
	if playlist.HasSong(song.ID) {
		return models.Playlist{}, apperrors.Validation("Song already in playlist")
	}

	cover := ""
	if playlist.Image == "" {
		cover = models.ResolveImageURL(song.Image, models.QualityHigh)
	}

	updated, err := s.db.AddSong(ctx, user.ID, playlistID, song, cover)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrSongInList):
			return models.Playlist{}, apperrors.Validation("Song already in playlist")
		case errors.Is(err, db.ErrNotFound):
			return models.Playlist{}, apperrors.NotFound("Playlist not found or access denied")
		}
		s.log.Error("Failed to add song", zap.Error(err), zap.String("playlist_id", req.PlaylistID))
		return models.Playlist{}, apperrors.Internal(err)
	}

	s.log.Info("Added song to playlist",
		zap.String("playlist_id", req.PlaylistID),
		zap.String("song_id", song.ID),
		zap.String("playlist", updated.Name))
	s.events.Publish(ctx, events.PlaylistUpdated, map[string]any{
		"playlistId": req.PlaylistID,
		"added":      []string{song.ID},
	})

	return updated, nil
}

// RemoveSongs pulls songs by id from a playlist the user owns.
func (s *PlaylistService) RemoveSongs(ctx context.Context, req RemoveSongsRequest) (models.Playlist, error) {
	if err := s.validator.Validate(req, msgInvalidRequest); err != nil {
		return models.Playlist{}, err
	}

	playlistID, err := utils.ParseObjectID(req.PlaylistID)
	if err != nil {
		return models.Playlist{}, apperrors.Validation("Invalid playlist id")
	}

	user, err := findUser(ctx, s.db, req.UID)
	if err != nil {
		return models.Playlist{}, err
	}

	updated, err := s.db.RemoveSongs(ctx, user.ID, playlistID, req.SongIDs)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Playlist{}, apperrors.Forbidden("Playlist not found or access denied")
		}
		s.log.Error("Failed to remove songs", zap.Error(err), zap.String("playlist_id", req.PlaylistID))
		return models.Playlist{}, apperrors.Internal(err)
	}

	s.events.Publish(ctx, events.PlaylistUpdated, map[string]any{
		"playlistId": req.PlaylistID,
		"removed":    req.SongIDs,
	})

	return updated, nil
}
