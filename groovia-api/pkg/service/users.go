package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"github.com/groovia/groovia/groovia-api/pkg/db"
	"github.com/groovia/groovia/groovia-api/pkg/validation"
	"github.com/groovia/groovia/models"
	"go.uber.org/zap"
)

type UserDB interface {
	PlaylistResolver
	FindUserByUID(ctx context.Context, uid string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateSettings(ctx context.Context, uid string, settings models.Settings) (models.Settings, error)
	ToggleLike(ctx context.Context, uid string, song models.Song) (bool, []models.Song, error)
}

type SyncUserRequest struct {
	UID      string `json:"uid" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

type UpdateSettingsRequest struct {
	UID      string           `json:"uid"`
	Settings *models.Settings `json:"settings"`
}

type ToggleLikeRequest struct {
	UID  string            `json:"uid" validate:"required"`
	Song *models.SongInput `json:"song" validate:"required"`
}

type LikeResult struct {
	IsLiked    bool          `json:"isLiked"`
	LikedSongs []models.Song `json:"likedSongs"`
}

type UserService struct {
	db        UserDB
	validator *validation.Validator
	log       *zap.Logger
	now       clock
}

func NewUserService(db UserDB, validator *validation.Validator, log *zap.Logger) *UserService {
	return &UserService{
		db:        db,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

// Sync returns the user for uid with playlists resolved, creating it with
// default settings on first sign-in.
func (s *UserService) Sync(ctx context.Context, req SyncUserRequest) (models.UserWithPlaylists, error) {
	if err := s.validator.Validate(req, msgMissingFields); err != nil {
		return models.UserWithPlaylists{}, err
	}

	user, err := s.db.FindUserByUID(ctx, req.UID)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNotFound):
		user, err = s.create(ctx, req)
		if err != nil {
			return models.UserWithPlaylists{}, err
		}
	default:
		return models.UserWithPlaylists{}, apperrors.Internal(err)
	}

	playlists, err := resolvePlaylists(ctx, s.db, s.log, user)
	if err != nil {
		return models.UserWithPlaylists{}, err
	}

	return models.UserWithPlaylists{User: user, Playlists: playlists}, nil
}

func (s *UserService) create(ctx context.Context, req SyncUserRequest) (models.User, error) {
	user, err := s.db.CreateUser(ctx, models.NewUser(req.UID, req.Email, req.Name, req.PhotoURL, s.now()))
	if err == nil {
		s.log.Info("Created new user", zap.String("uid", req.UID), zap.String("email", req.Email))
		return user, nil
	}
	if !errors.Is(err, db.ErrDuplicate) {
		return models.User{}, apperrors.Internal(err)
	}

	// A concurrent sync may have created the same uid; otherwise the email
	// belongs to another account.
	existing, err := s.db.FindUserByUID(ctx, req.UID)
	if err == nil {
		return existing, nil
	}
	if errors.Is(err, db.ErrNotFound) {
		return models.User{}, apperrors.Conflict("Email already registered")
	}
	return models.User{}, apperrors.Internal(err)
}

// UpdateSettings replaces the user's settings sub-document. Fields left out
// of the request are cleared, not kept.
func (s *UserService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (models.Settings, error) {
	if strings.TrimSpace(req.UID) == "" || req.Settings == nil {
		return models.Settings{}, apperrors.Validation("Missing fields")
	}
	if err := s.validator.Validate(*req.Settings, "Invalid settings"); err != nil {
		return models.Settings{}, err
	}

	settings, err := s.db.UpdateSettings(ctx, req.UID, *req.Settings)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Settings{}, apperrors.NotFound(msgUserNotFound)
		}
		s.log.Error("Failed to update settings", zap.Error(err), zap.String("uid", req.UID))
		return models.Settings{}, apperrors.Internal(err)
	}

	return settings, nil
}

func (s *UserService) ToggleLike(ctx context.Context, req ToggleLikeRequest) (LikeResult, error) {
	if err := s.validator.Validate(req, msgMissingFields); err != nil {
		return LikeResult{}, err
	}

	song := req.Song.Normalize()
	liked, songs, err := s.db.ToggleLike(ctx, req.UID, song)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return LikeResult{}, apperrors.NotFound(msgUserNotFound)
		}
		s.log.Error("Failed to toggle like", zap.Error(err), zap.String("uid", req.UID), zap.String("song_id", song.ID))
		return LikeResult{}, apperrors.Internal(err)
	}

	return LikeResult{IsLiked: liked, LikedSongs: songs}, nil
}
