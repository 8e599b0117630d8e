package library

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
)

// WriteM3U writes songs as an extended M3U playlist. When root is set, paths
// under it are written relative to it; everything else is written as is.
func WriteM3U(w io.Writer, songs []LocalSong, root string) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("#EXTM3U\n"); err != nil {
		return err
	}

	for _, song := range songs {
		seconds := -1
		if song.Duration > 0 {
			seconds = int(math.Round(song.Duration))
		}

		if _, err := fmt.Fprintf(bw, "#EXTINF:%d,%s - %s\n", seconds, song.Artist, song.Title); err != nil {
			return err
		}
		if _, err := bw.WriteString(m3uPath(song.File, root) + "\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func m3uPath(file, root string) string {
	if root == "" {
		return filepath.ToSlash(file)
	}

	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}
