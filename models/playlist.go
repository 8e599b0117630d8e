package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Playlist struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Owner       primitive.ObjectID `json:"owner" bson:"owner"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Image       string             `json:"image,omitempty" bson:"image,omitempty"` // cover URL
	Songs       []Song             `json:"songs" bson:"songs"`
	IsPublic    bool               `json:"isPublic" bson:"isPublic"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func NewPlaylist(owner primitive.ObjectID, name, description, image string, now time.Time) Playlist {
	return Playlist{
		Owner:       owner,
		Name:        name,
		Description: description,
		Image:       image,
		Songs:       []Song{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasSong reports whether a song with the given id is already in the playlist.
func (p Playlist) HasSong(id string) bool {
	for _, s := range p.Songs {
		if s.ID == id {
			return true
		}
	}
	return false
}
