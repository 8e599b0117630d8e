package library

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mp4tag "github.com/Sorrow446/go-mp4tag"
	"github.com/bogem/id3v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

type trackTags struct {
	title    string
	artist   string
	album    string
	duration float64
	artwork  string
}

type Scanner struct {
	extensions map[string]struct{}
	log        *zap.Logger
}

func NewScanner(extensions []string, log *zap.Logger) *Scanner {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Scanner{extensions: exts, log: log}
}

// ScanFolder walks root and reads tags from every supported audio file.
// Files whose tags cannot be read are skipped. Every song's FolderPath is root.
func (s *Scanner) ScanFolder(ctx context.Context, root string) ([]LocalSong, error) {
	root = filepath.Clean(root)
	songs := []LocalSong{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.log.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := s.extensions[ext]; !ok {
			return nil
		}

		song, err := s.readSong(path, ext, root)
		if err != nil {
			s.log.Warn("Skipping file with unreadable tags", zap.String("path", path), zap.Error(err))
			return nil
		}
		songs = append(songs, song)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	s.log.Info("Scanned folder", zap.String("root", root), zap.Int("songs", len(songs)))
	return songs, nil
}

func (s *Scanner) readSong(path, ext, root string) (LocalSong, error) {
	var (
		tags trackTags
		err  error
	)
	switch ext {
	case ".mp3":
		tags, err = readMP3Tags(path)
	case ".flac":
		tags, err = readFLACTags(path)
	case ".m4a", ".mp4":
		tags, err = readM4ATags(path)
	default:
		err = fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return LocalSong{}, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return LocalSong{}, err
	}

	song := LocalSong{
		ID:         id.String(),
		Title:      strings.TrimSpace(tags.title),
		Artist:     strings.TrimSpace(tags.artist),
		Album:      strings.TrimSpace(tags.album),
		Duration:   tags.duration,
		File:       path,
		Artwork:    tags.artwork,
		FolderPath: root,
	}
	if song.Title == "" {
		song.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if song.Artist == "" {
		song.Artist = UnknownArtist
	}
	if song.Album == "" {
		song.Album = UnknownAlbum
	}

	return song, nil
}

func readMP3Tags(path string) (trackTags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return trackTags{}, fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tags := trackTags{
		title:  tag.Title(),
		artist: tag.Artist(),
		album:  tag.Album(),
	}

	// TLEN is in milliseconds.
	if tlen := strings.TrimSpace(tag.GetTextFrame("TLEN").Text); tlen != "" {
		if ms, err := strconv.ParseFloat(tlen, 64); err == nil && ms > 0 {
			tags.duration = ms / 1000
		}
	}

	for _, frame := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		tags.artwork = dataURI(pic.MimeType, pic.Picture)
		break
	}

	return tags, nil
}

// readFLACTags reads only the metadata blocks; audio frames are never loaded.
func readFLACTags(path string) (trackTags, error) {
	file, err := os.Open(path)
	if err != nil {
		return trackTags{}, fmt.Errorf("failed to open FLAC file: %w", err)
	}
	defer file.Close()

	f, err := flac.ParseMetadata(file)
	if err != nil {
		return trackTags{}, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var tags trackTags
	if info, err := f.GetStreamInfo(); err == nil && info.SampleRate > 0 {
		tags.duration = float64(info.SampleCount) / float64(info.SampleRate)
	}

	for _, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			continue
		}
		tags.title = firstComment(cmts, flacvorbis.FIELD_TITLE)
		tags.artist = firstComment(cmts, flacvorbis.FIELD_ARTIST)
		tags.album = firstComment(cmts, flacvorbis.FIELD_ALBUM)
		break
	}

	return tags, nil
}

func readM4ATags(path string) (trackTags, error) {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return trackTags{}, fmt.Errorf("failed to open M4A file: %w", err)
	}
	defer mp4.Close()

	t, err := mp4.Read()
	if err != nil {
		return trackTags{}, fmt.Errorf("failed to read M4A tags: %w", err)
	}

	return trackTags{title: t.Title, artist: t.Artist, album: t.Album}, nil
}

func firstComment(cmts *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmts.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return values[0]
}

func dataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ImportFolder scans root, appends its songs to the store and refreshes the
// folder list. It returns the number of songs added.
func ImportFolder(ctx context.Context, store *Store, scanner *Scanner, root string) (int, error) {
	songs, err := scanner.ScanFolder(ctx, root)
	if err != nil {
		return 0, err
	}

	store.AddSongs(songs)
	store.RefreshFolders()

	return len(songs), nil
}
