package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/groovia/groovia/library-importer/pkg/config"
	"github.com/groovia/groovia/library-importer/pkg/library"
	"go.uber.org/zap"
)

type pathList []string

func (p *pathList) String() string {
	return strings.Join(*p, ",")
}

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var dirs, removals pathList
	flag.Var(&dirs, "dir", "Folder to import (repeatable)")
	flag.Var(&removals, "remove", "Imported folder to remove again (repeatable)")
	m3uOut := flag.String("m3u", "", "Write the resulting library as an M3U playlist to this path")
	flag.Parse()

	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "at least one -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := library.NewStore()
	scanner := library.NewScanner(cfg.Extensions, log)

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			log.Fatal("Failed to resolve folder", zap.String("dir", dir), zap.Error(err))
		}

		n, err := library.ImportFolder(ctx, store, scanner, abs)
		if err != nil {
			log.Fatal("Failed to import folder", zap.String("dir", abs), zap.Error(err))
		}
		log.Info("Imported folder", zap.String("dir", abs), zap.Int("songs", n))
	}

	for _, dir := range removals {
		abs, err := filepath.Abs(dir)
		if err != nil {
			log.Fatal("Failed to resolve folder", zap.String("dir", dir), zap.Error(err))
		}
		store.RemoveFolder(abs)
		log.Info("Removed folder", zap.String("dir", abs))
	}

	if *m3uOut != "" {
		if err := writePlaylist(*m3uOut, store.Songs(), cfg.MusicRoot); err != nil {
			log.Fatal("Failed to write M3U playlist", zap.String("path", *m3uOut), zap.Error(err))
		}
		log.Info("Wrote M3U playlist", zap.String("path", *m3uOut))
	}

	printSummary(store)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func writePlaylist(path string, songs []library.LocalSong, root string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := library.WriteM3U(f, songs, root); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(store *library.Store) {
	folders := store.Folders()

	fmt.Printf("=== Library ===\n\n")
	for _, f := range folders {
		fmt.Printf("%-60s %5d songs\n", f.Path, f.SongCount)
	}
	fmt.Printf("\nFolders: %d\n", len(folders))
	fmt.Printf("Songs: %d\n", len(store.Songs()))
}
