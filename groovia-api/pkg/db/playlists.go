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
	"go.uber.org/zap"
)

// CreatePlaylist inserts the playlist and appends its id to the owner's
// playlists. Without transactions a failed second step deletes the inserted
// playlist again, so a clean failure never leaves an orphan.
func (d *db) CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	if playlist.ID.IsZero() {
		playlist.ID = primitive.NewObjectID()
	}

	inserted := false
	err := d.withTransaction(ctx, func(ctx context.Context) error {
		if _, err := d.playlistsCollection.InsertOne(ctx, playlist); err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}
		inserted = true

		result, err := d.usersCollection.UpdateOne(
			ctx,
			bson.M{"_id": playlist.Owner},
			bson.M{
				"$push": bson.M{"playlists": playlist.ID},
				"$set":  bson.M{"updatedAt": d.now()},
			},
		)
		if err != nil {
			return fmt.Errorf("failed to attach playlist to owner: %w", err)
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}

		return nil
	})
	if err != nil {
		if inserted && !d.opts.Transactions {
			d.compensateInsert(playlist.ID)
		}
		return models.Playlist{}, err
	}

	return playlist, nil
}

func (d *db) compensateInsert(id primitive.ObjectID) {
	// The request context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	if _, err := d.playlistsCollection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		d.log.Error("failed to remove orphaned playlist", zap.Error(err), zap.String("playlist_id", id.Hex()))
		return
	}
	d.log.Warn("removed orphaned playlist after failed owner update", zap.String("playlist_id", id.Hex()))
}

// DeletePlaylists removes the playlists in ids owned by ownerID and pulls all
// requested ids from the owner's list in one update.
func (d *db) DeletePlaylists(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	var deleted int64
	err := d.withTransaction(ctx, func(ctx context.Context) error {
		result, err := d.playlistsCollection.DeleteMany(ctx, bson.M{
			"_id":   bson.M{"$in": ids},
			"owner": ownerID,
		})
		if err != nil {
			return fmt.Errorf("failed to delete playlists: %w", err)
		}
		deleted = result.DeletedCount

		_, err = d.usersCollection.UpdateOne(
			ctx,
			bson.M{"_id": ownerID},
			bson.M{
				"$pull": bson.M{"playlists": bson.M{"$in": ids}},
				"$set":  bson.M{"updatedAt": d.now()},
			},
		)
		if err != nil {
			return fmt.Errorf("failed to detach deleted playlists: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func (d *db) GetPlaylist(ctx context.Context, id primitive.ObjectID) (models.Playlist, error) {
	var playlist models.Playlist
	err := d.playlistsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&playlist)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("failed to find playlist: %w", err)
	}

	return playlist, nil
}

// GetPlaylistsByIDs returns the playlists in the order of ids. Ids without a
// document are skipped.
func (d *db) GetPlaylistsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Playlist, error) {
	if len(ids) == 0 {
		return []models.Playlist{}, nil
	}

	cursor, err := d.playlistsCollection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find playlists: %w", err)
	}
	defer cursor.Close(ctx)

	found := make([]models.Playlist, 0, len(ids))
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode playlists: %w", err)
	}

	return orderPlaylists(ids, found), nil
}

func (d *db) FindOwnedPlaylist(ctx context.Context, ownerID, id primitive.ObjectID) (models.Playlist, error) {
	var playlist models.Playlist
	err := d.playlistsCollection.FindOne(ctx, bson.M{"_id": id, "owner": ownerID}).Decode(&playlist)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("failed to find playlist: %w", err)
	}

	return playlist, nil
}

// AddSong appends song unless a song with the same id is already present.
// A non-empty cover is set as the playlist image in the same update.
func (d *db) AddSong(ctx context.Context, ownerID, playlistID primitive.ObjectID, song models.Song, cover string) (models.Playlist, error) {
	set := bson.M{"updatedAt": d.now()}
	if cover != "" {
		set["image"] = cover
	}

	var playlist models.Playlist
	err := d.playlistsCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": playlistID, "owner": ownerID, "songs.id": bson.M{"$ne": song.ID}},
		bson.M{"$push": bson.M{"songs": song}, "$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&playlist)
	if err == nil {
		return playlist, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Playlist{}, fmt.Errorf("failed to add song: %w", err)
	}

	if _, err := d.FindOwnedPlaylist(ctx, ownerID, playlistID); err != nil {
		return models.Playlist{}, err
	}

	return models.Playlist{}, ErrSongInList
}

func (d *db) RemoveSongs(ctx context.Context, ownerID, playlistID primitive.ObjectID, songIDs []string) (models.Playlist, error) {
	var playlist models.Playlist
	err := d.playlistsCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": playlistID, "owner": ownerID},
		bson.M{
			"$pull": bson.M{"songs": bson.M{"id": bson.M{"$in": songIDs}}},
			"$set":  bson.M{"updatedAt": d.now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&playlist)
	if err != nil {
		return models.Playlist{}, wrapLookup(err, "failed to remove songs")
	}

	return playlist, nil
}

func wrapLookup(err error, msg string) error {
	if err = notFound(err); errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func orderPlaylists(ids []primitive.ObjectID, found []models.Playlist) []models.Playlist {
	byID := make(map[primitive.ObjectID]models.Playlist, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	ordered := make([]models.Playlist, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}

	return ordered
}

// MissingIDs returns the ids that have no playlist in found, in input order.
func MissingIDs(ids []primitive.ObjectID, found []models.Playlist) []primitive.ObjectID {
	present := make(map[primitive.ObjectID]struct{}, len(found))
	for _, p := range found {
		present[p.ID] = struct{}{}
	}

	var missing []primitive.ObjectID
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}

	return missing
}
