package service

import (
	"context"
	"errors"
	"time"

	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"github.com/groovia/groovia/groovia-api/pkg/db"
	"github.com/groovia/groovia/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	msgMissingFields  = "Missing required fields"
	msgInvalidRequest = "Invalid Request"
	msgUserNotFound   = "User not found"
)

// PlaylistResolver loads the playlists a user references.
type PlaylistResolver interface {
	GetPlaylistsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Playlist, error)
	DetachPlaylists(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) error
}

// resolvePlaylists returns the user's playlists in reference order. References
// to playlists that no longer exist are dropped from the result and detached
// from the user; a failed detach is only logged.
func resolvePlaylists(ctx context.Context, store PlaylistResolver, log *zap.Logger, user models.User) ([]models.Playlist, error) {
	playlists, err := store.GetPlaylistsByIDs(ctx, user.Playlists)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	if dangling := db.MissingIDs(user.Playlists, playlists); len(dangling) > 0 {
		if err := store.DetachPlaylists(ctx, user.ID, dangling); err != nil {
			log.Warn("failed to detach dangling playlist references",
				zap.Error(err),
				zap.String("uid", user.UID),
				zap.Int("count", len(dangling)))
		} else {
			log.Info("detached dangling playlist references",
				zap.String("uid", user.UID),
				zap.Int("count", len(dangling)))
		}
	}

	return playlists, nil
}

// findUser maps a lookup failure to the client-facing error.
func findUser(ctx context.Context, store interface {
	FindUserByUID(ctx context.Context, uid string) (models.User, error)
}, uid string) (models.User, error) {
	user, err := store.FindUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.User{}, apperrors.NotFound(msgUserNotFound)
		}
		return models.User{}, apperrors.Internal(err)
	}
	return user, nil
}

type clock func() time.Time
