package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/groovia/groovia/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrDuplicate  = errors.New("duplicate key")
	ErrSongInList = errors.New("song already in playlist")
)

const compensationTimeout = 5 * time.Second

type Database interface {
	FindUserByUID(ctx context.Context, uid string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	UpdateSettings(ctx context.Context, uid string, settings models.Settings) (models.Settings, error)
	ToggleLike(ctx context.Context, uid string, song models.Song) (bool, []models.Song, error)
	DetachPlaylists(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) error

	CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	DeletePlaylists(ctx context.Context, ownerID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	GetPlaylist(ctx context.Context, id primitive.ObjectID) (models.Playlist, error)
	GetPlaylistsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Playlist, error)
	FindOwnedPlaylist(ctx context.Context, ownerID, id primitive.ObjectID) (models.Playlist, error)
	AddSong(ctx context.Context, ownerID, playlistID primitive.ObjectID, song models.Song, cover string) (models.Playlist, error)
	RemoveSongs(ctx context.Context, ownerID, playlistID primitive.ObjectID, songIDs []string) (models.Playlist, error)

	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
}

type Stats struct {
	TotalUsers      int64 `json:"total_users"`
	TotalPlaylists  int64 `json:"total_playlists"`
	PublicPlaylists int64 `json:"public_playlists"`
}

type Options struct {
	// Transactions runs cross-document writes in one MongoDB transaction.
	// Requires a replica set.
	Transactions bool
}

type db struct {
	conn *mongo.Client
	log  *zap.Logger
	opts Options
	now  func() time.Time

	usersCollection     *mongo.Collection
	playlistsCollection *mongo.Collection
	dbname              string
}

func NewDatabase(ctx context.Context, log *zap.Logger, url, dbname string, opts Options) (Database, error) {
	conn, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := conn.Ping(ctx, nil); err != nil {
		_ = conn.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	d := &db{
		conn:   conn,
		log:    log,
		opts:   opts,
		now:    time.Now,
		dbname: dbname,

		usersCollection:     conn.Database(dbname).Collection("users"),
		playlistsCollection: conn.Database(dbname).Collection("playlists"),
	}

	if err := d.EnsureIndexes(ctx); err != nil {
		_ = conn.Disconnect(ctx)
		return nil, err
	}

	return d, nil
}

func (d *db) EnsureIndexes(ctx context.Context) error {
	_, err := d.usersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uid", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = d.playlistsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist indexes: %w", err)
	}

	return nil
}

func (d *db) Close(ctx context.Context) error {
	return d.conn.Disconnect(ctx)
}

func (d *db) Ping(ctx context.Context) error {
	return d.conn.Ping(ctx, nil)
}

func (d *db) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	users, err := d.usersCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	stats.TotalUsers = users

	playlists, err := d.playlistsCollection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count playlists: %w", err)
	}
	stats.TotalPlaylists = playlists

	public, err := d.playlistsCollection.CountDocuments(ctx, bson.M{"isPublic": true})
	if err != nil {
		return nil, fmt.Errorf("failed to count public playlists: %w", err)
	}
	stats.PublicPlaylists = public

	return stats, nil
}

// withTransaction runs fn inside a transaction when enabled, otherwise runs
// it directly and the caller is responsible for compensating partial writes.
func (d *db) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !d.opts.Transactions {
		return fn(ctx)
	}

	session, err := d.conn.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
