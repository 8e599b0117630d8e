package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultStreamQuality   = "160kbps"
	DefaultDownloadQuality = "320kbps"
)

// Settings is replaced as a whole on update; an omitted tier is stored as absent.
type Settings struct {
	StreamQuality   string `json:"streamQuality,omitempty" bson:"streamQuality,omitempty" validate:"omitempty,oneof=12kbps 48kbps 96kbps 160kbps 320kbps"`
	DownloadQuality string `json:"downloadQuality,omitempty" bson:"downloadQuality,omitempty" validate:"omitempty,oneof=12kbps 48kbps 96kbps 160kbps 320kbps"`
}

func DefaultSettings() Settings {
	return Settings{
		StreamQuality:   DefaultStreamQuality,
		DownloadQuality: DefaultDownloadQuality,
	}
}

type User struct {
	ID         primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	UID        string               `json:"uid" bson:"uid"` // auth provider subject
	Email      string               `json:"email" bson:"email"`
	Name       string               `json:"name,omitempty" bson:"name,omitempty"`
	PhotoURL   string               `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	LikedSongs []Song               `json:"likedSongs" bson:"likedSongs"`
	Playlists  []primitive.ObjectID `json:"playlists" bson:"playlists"`
	Settings   Settings             `json:"settings" bson:"settings"`
	CreatedAt  time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// NewUser builds a user document with the defaults applied on first sign-in.
func NewUser(uid, email, name, photoURL string, now time.Time) User {
	return User{
		UID:        uid,
		Email:      email,
		Name:       name,
		PhotoURL:   photoURL,
		LikedSongs: []Song{},
		Playlists:  []primitive.ObjectID{},
		Settings:   DefaultSettings(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// UserWithPlaylists is a user whose playlist references have been resolved.
// It is only ever serialised to JSON.
type UserWithPlaylists struct {
	User
	Playlists []Playlist `json:"playlists"`
}
