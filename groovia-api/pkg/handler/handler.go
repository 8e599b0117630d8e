package handler

import (
	"context"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/groovia/groovia/groovia-api/pkg/db"
	"github.com/groovia/groovia/groovia-api/pkg/proxy"
	"github.com/groovia/groovia/groovia-api/pkg/service"
	"github.com/groovia/groovia/models"
	"go.uber.org/zap"
)

type PlaylistService interface {
	Create(ctx context.Context, req service.CreatePlaylistRequest) (models.Playlist, error)
	Delete(ctx context.Context, req service.DeletePlaylistsRequest) error
	Get(ctx context.Context, id string) (models.Playlist, error)
	ListForUser(ctx context.Context, uid string) ([]models.Playlist, error)
	AddSong(ctx context.Context, req service.AddSongRequest) (models.Playlist, error)
	RemoveSongs(ctx context.Context, req service.RemoveSongsRequest) (models.Playlist, error)
}

type UserService interface {
	Sync(ctx context.Context, req service.SyncUserRequest) (models.UserWithPlaylists, error)
	UpdateSettings(ctx context.Context, req service.UpdateSettingsRequest) (models.Settings, error)
	ToggleLike(ctx context.Context, req service.ToggleLikeRequest) (service.LikeResult, error)
}

type Downloader interface {
	Open(ctx context.Context, rawURL string) (*proxy.Download, error)
}

type Limiter interface {
	Allow(key string) bool
}

type HealthChecker interface {
	Ping(ctx context.Context) error
	GetStats(ctx context.Context) (*db.Stats, error)
}

type Options struct {
	AllowedOrigins []string
	// Sentry enables the panic and error reporting middleware.
	Sentry bool
}

type Handler interface {
	Router(opts Options) http.Handler
}

type handler struct {
	playlists  PlaylistService
	users      UserService
	downloader Downloader
	limiter    Limiter
	health     HealthChecker
	log        *zap.Logger
}

func NewHandler(playlists PlaylistService, users UserService, downloader Downloader, limiter Limiter, health HealthChecker, log *zap.Logger) Handler {
	return &handler{
		playlists:  playlists,
		users:      users,
		downloader: downloader,
		limiter:    limiter,
		health:     health,
		log:        log,
	}
}

// Router wires middleware and routes.
func (h *handler) Router(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	if opts.Sentry {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true, Timeout: 2 * time.Second}).Handle)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Get("/stats", h.Stats)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/sync", h.SyncUser)

		r.Route("/playlists", func(r chi.Router) {
			r.Post("/create", h.CreatePlaylist)
			r.Post("/delete", h.DeletePlaylists)
			r.Get("/local", h.GetPlaylist)
			r.Post("/add-song", h.AddSong)
			r.Post("/remove-songs", h.RemoveSongs)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/playlists", h.UserPlaylists)
			r.Post("/settings", h.UpdateSettings)
			r.Post("/like", h.ToggleLike)
		})

		r.Get("/download", h.Download)
	})

	return r
}
