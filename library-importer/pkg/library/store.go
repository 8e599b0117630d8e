package library

import (
	"sort"
	"sync"
)

// LocalSong is an audio file imported from disk.
type LocalSong struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Duration float64 `json:"duration"` // seconds
	File     string  `json:"file"`
	// Artwork is a data URI of the embedded cover, if any.
	Artwork    string `json:"artwork,omitempty"`
	FolderPath string `json:"folderPath,omitempty"`
}

type FolderInfo struct {
	Path      string `json:"path"`
	SongCount int    `json:"songCount"`
}

// Store holds the imported library in memory. It is never persisted.
type Store struct {
	mu       sync.RWMutex
	songs    []LocalSong
	folders  []FolderInfo
	isLoaded bool
}

func NewStore() *Store {
	return &Store{
		songs:   []LocalSong{},
		folders: []FolderInfo{},
	}
}

// SetSongs replaces the whole collection and marks the library loaded.
func (s *Store) SetSongs(songs []LocalSong) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.songs = append([]LocalSong{}, songs...)
	s.isLoaded = true
}

// AddSongs appends without deduplicating and marks the library loaded.
func (s *Store) AddSongs(songs []LocalSong) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.songs = append(s.songs, songs...)
	s.isLoaded = true
}

func (s *Store) SetFolders(folders []FolderInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = append([]FolderInfo{}, folders...)
}

func (s *Store) SetIsLoaded(loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isLoaded = loaded
}

func (s *Store) ResetLibrary() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.songs = []LocalSong{}
	s.folders = []FolderInfo{}
	s.isLoaded = false
}

// RemoveFolder drops the folder entry and every song imported from it in a
// single transition. Readers never observe one without the other.
func (s *Store) RemoveFolder(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	folders := make([]FolderInfo, 0, len(s.folders))
	for _, f := range s.folders {
		if f.Path != path {
			folders = append(folders, f)
		}
	}

	songs := make([]LocalSong, 0, len(s.songs))
	for _, song := range s.songs {
		if song.FolderPath != path {
			songs = append(songs, song)
		}
	}

	s.folders = folders
	s.songs = songs
}

func (s *Store) Songs() []LocalSong {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]LocalSong{}, s.songs...)
}

func (s *Store) Folders() []FolderInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]FolderInfo{}, s.folders...)
}

func (s *Store) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.isLoaded
}

// RefreshFolders recomputes the folder list from the current songs.
func (s *Store) RefreshFolders() []FolderInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.folders = DeriveFolders(s.songs)
	return append([]FolderInfo{}, s.folders...)
}

// DeriveFolders counts songs per folder path, sorted by path. Songs without a
// folder are not counted.
func DeriveFolders(songs []LocalSong) []FolderInfo {
	counts := make(map[string]int)
	for _, song := range songs {
		if song.FolderPath == "" {
			continue
		}
		counts[song.FolderPath]++
	}

	folders := make([]FolderInfo, 0, len(counts))
	for path, n := range counts {
		folders = append(folders, FolderInfo{Path: path, SongCount: n})
	}
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Path < folders[j].Path
	})

	return folders
}
