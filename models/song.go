package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const DefaultSongType = "online"

// QualityURL is one tier of an image or audio asset.
type QualityURL struct {
	Quality string `json:"quality" bson:"quality"`
	URL     string `json:"url" bson:"url"`
}

type ArtistRef struct {
	Name string `json:"name" bson:"name"`
}

type Artists struct {
	Primary []ArtistRef `json:"primary" bson:"primary"`
}

// Song is embedded in playlists and liked songs; it has no collection of its own.
type Song struct {
	ID          string       `json:"id" bson:"id"`
	Name        string       `json:"name" bson:"name"`
	Image       []QualityURL `json:"image" bson:"image"`
	Artists     Artists      `json:"artists" bson:"artists"`
	Duration    string       `json:"duration" bson:"duration"`
	DownloadURL []QualityURL `json:"downloadUrl" bson:"downloadUrl"`
	URL         string       `json:"url" bson:"url"`
	Type        string       `json:"type" bson:"type"`
}

// SongInput is a song as clients send it. Catalogue payloads are loose: ids and
// durations arrive as numbers or strings, tier lists are sometimes not lists.
type SongInput struct {
	ID          FlexString      `json:"id" validate:"required"`
	Name        string          `json:"name"`
	Image       json.RawMessage `json:"image"`
	Artists     json.RawMessage `json:"artists"`
	Duration    FlexString      `json:"duration"`
	DownloadURL json.RawMessage `json:"downloadUrl"`
	URL         string          `json:"url"`
	Type        string          `json:"type"`
}

// Normalize converts the input into the stored Song shape.
func (in SongInput) Normalize() Song {
	song := Song{
		ID:          string(in.ID),
		Name:        in.Name,
		Image:       decodeTiers(in.Image),
		Artists:     decodeArtists(in.Artists),
		Duration:    string(in.Duration),
		DownloadURL: decodeTiers(in.DownloadURL),
		URL:         in.URL,
		Type:        in.Type,
	}
	if song.Type == "" {
		song.Type = DefaultSongType
	}

	return song
}

func decodeTiers(raw json.RawMessage) []QualityURL {
	tiers := []QualityURL{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return tiers
	}
	if err := json.Unmarshal(trimmed, &tiers); err != nil {
		return []QualityURL{}
	}

	return tiers
}

func decodeArtists(raw json.RawMessage) Artists {
	artists := Artists{Primary: []ArtistRef{}}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return artists
	}
	if err := json.Unmarshal(trimmed, &artists); err != nil || artists.Primary == nil {
		return Artists{Primary: []ArtistRef{}}
	}

	return artists
}

// FlexString accepts a JSON string or number and keeps its text form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = FlexString(formatNumber(n))
	return nil
}

func formatNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if fl, err := n.Float64(); err == nil {
		return strings.TrimSuffix(strconv.FormatFloat(fl, 'f', -1, 64), ".0")
	}

	return n.String()
}
