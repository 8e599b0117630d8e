package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/groovia/groovia/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (d *db) FindUserByUID(ctx context.Context, uid string) (models.User, error) {
	var user models.User
	err := d.usersCollection.FindOne(ctx, bson.M{"uid": uid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (d *db) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := d.usersCollection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// UpdateSettings replaces the settings sub-document as a whole.
func (d *db) UpdateSettings(ctx context.Context, uid string, settings models.Settings) (models.Settings, error) {
	var user models.User
	err := d.usersCollection.FindOneAndUpdate(
		ctx,
		bson.M{"uid": uid},
		bson.M{"$set": bson.M{"settings": settings, "updatedAt": d.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Settings{}, ErrNotFound
		}
		return models.Settings{}, fmt.Errorf("failed to update settings: %w", err)
	}

	return user.Settings, nil
}

// ToggleLike removes the song from likedSongs when present and prepends it
// otherwise. Both branches are single guarded updates, so concurrent toggles
// never duplicate an entry.
func (d *db) ToggleLike(ctx context.Context, uid string, song models.Song) (bool, []models.Song, error) {
	after := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likedSongs": 1})

	var user models.User
	err := d.usersCollection.FindOneAndUpdate(
		ctx,
		bson.M{"uid": uid, "likedSongs.id": song.ID},
		bson.M{
			"$pull": bson.M{"likedSongs": bson.M{"id": song.ID}},
			"$set":  bson.M{"updatedAt": d.now()},
		},
		after,
	).Decode(&user)
	if err == nil {
		return false, nonNilSongs(user.LikedSongs), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil, fmt.Errorf("failed to unlike song: %w", err)
	}

	err = d.usersCollection.FindOneAndUpdate(
		ctx,
		bson.M{"uid": uid, "likedSongs.id": bson.M{"$ne": song.ID}},
		bson.M{
			"$push": bson.M{"likedSongs": bson.M{"$each": []models.Song{song}, "$position": 0}},
			"$set":  bson.M{"updatedAt": d.now()},
		},
		after,
	).Decode(&user)
	if err == nil {
		return true, nonNilSongs(user.LikedSongs), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil, fmt.Errorf("failed to like song: %w", err)
	}

	// Either the user is gone or a concurrent request liked the song first.
	existing, err := d.FindUserByUID(ctx, uid)
	if err != nil {
		return false, nil, err
	}

	return true, nonNilSongs(existing.LikedSongs), nil
}

// DetachPlaylists drops playlist references from a user's list.
func (d *db) DetachPlaylists(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := d.usersCollection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"playlists": bson.M{"$in": ids}}},
	)
	if err != nil {
		return fmt.Errorf("failed to detach playlists: %w", err)
	}

	return nil
}

func nonNilSongs(songs []models.Song) []models.Song {
	if songs == nil {
		return []models.Song{}
	}
	return songs
}
