package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"github.com/groovia/groovia/groovia-api/pkg/validation"
	"github.com/groovia/groovia/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordedEvent struct {
	eventType string
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{eventType: eventType, payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.eventType
	}
	return out
}

func newTestServices(database *fakeDatabase) (*PlaylistService, *UserService, *recordingPublisher) {
	pub := &recordingPublisher{}
	v := validation.New()
	return NewPlaylistService(database, pub, v, zap.NewNop()), NewUserService(database, v, zap.NewNop()), pub
}

func mustSync(t *testing.T, users *UserService, uid, email string) models.UserWithPlaylists {
	t.Helper()
	user, err := users.Sync(context.Background(), SyncUserRequest{UID: uid, Email: email})
	if err != nil {
		t.Fatalf("sync %s: %v", uid, err)
	}
	return user
}

func expectCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperrors.Error with code %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}

func TestCreateAndDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, pub := newTestServices(database)

	u1 := mustSync(t, users, "u1", "a@b.com")

	created, err := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "Road Trip"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Owner != u1.ID {
		t.Fatalf("expected owner %s, got %s", u1.ID.Hex(), created.Owner.Hex())
	}
	if created.IsPublic {
		t.Fatal("expected new playlist to be private")
	}
	if created.Songs == nil || len(created.Songs) != 0 {
		t.Fatalf("expected empty songs, got %#v", created.Songs)
	}

	stored, _ := database.FindUserByUID(ctx, "u1")
	if len(stored.Playlists) != 1 || stored.Playlists[0] != created.ID {
		t.Fatalf("expected user playlists [%s], got %v", created.ID.Hex(), stored.Playlists)
	}

	err = playlists.Delete(ctx, DeletePlaylistsRequest{UID: "u1", PlaylistIDs: []string{created.ID.Hex()}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(database.playlists) != 0 {
		t.Fatalf("expected playlist collection to be empty, got %d", len(database.playlists))
	}
	stored, _ = database.FindUserByUID(ctx, "u1")
	if len(stored.Playlists) != 0 {
		t.Fatalf("expected no user playlists, got %v", stored.Playlists)
	}

	got := pub.types()
	if len(got) != 2 || got[0] != "playlist.created" || got[1] != "playlist.deleted" {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestCreateForUnknownUserWritesNothing(t *testing.T) {
	database := newFakeDatabase()
	playlists, _, pub := newTestServices(database)

	_, err := playlists.Create(context.Background(), CreatePlaylistRequest{UID: "ghost", Name: "Nope"})
	expectCode(t, err, apperrors.CodeNotFound)

	if len(database.playlists) != 0 {
		t.Fatalf("expected no playlist documents, got %d", len(database.playlists))
	}
	if len(pub.types()) != 0 {
		t.Fatalf("expected no events, got %v", pub.types())
	}
}

func TestCreateValidation(t *testing.T) {
	playlists, _, _ := newTestServices(newFakeDatabase())

	tests := []struct {
		name string
		req  CreatePlaylistRequest
	}{
		{name: "missing uid", req: CreatePlaylistRequest{Name: "x"}},
		{name: "missing name", req: CreatePlaylistRequest{UID: "u1"}},
		{name: "blank name", req: CreatePlaylistRequest{UID: "u1", Name: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := playlists.Create(context.Background(), tt.req)
			expectCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestCreateAttachFailureSurfacesInternal(t *testing.T) {
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")

	database.attachErr = errBoom
	_, err := playlists.Create(context.Background(), CreatePlaylistRequest{UID: "u1", Name: "x"})
	expectCode(t, err, apperrors.CodeInternal)

	if err.Error() != "boom" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	if len(database.playlists) != 0 {
		t.Fatal("expected no orphaned playlist")
	}
}

func TestDeleteIgnoresPlaylistsOwnedByOthers(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)

	mustSync(t, users, "a", "a@x.com")
	mustSync(t, users, "b", "b@x.com")

	p, err := playlists.Create(ctx, CreatePlaylistRequest{UID: "a", Name: "Mine"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := playlists.Delete(ctx, DeletePlaylistsRequest{UID: "b", PlaylistIDs: []string{p.ID.Hex()}}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if _, err := database.GetPlaylist(ctx, p.ID); err != nil {
		t.Fatalf("expected playlist to survive, got %v", err)
	}
	owner, _ := database.FindUserByUID(ctx, "a")
	if len(owner.Playlists) != 1 {
		t.Fatalf("expected owner to keep reference, got %v", owner.Playlists)
	}
}

func TestDeleteValidation(t *testing.T) {
	playlists, users, _ := newTestServices(newFakeDatabase())
	mustSync(t, users, "u1", "a@b.com")

	err := playlists.Delete(context.Background(), DeletePlaylistsRequest{UID: "u1"})
	expectCode(t, err, apperrors.CodeValidation)

	err = playlists.Delete(context.Background(), DeletePlaylistsRequest{UID: "u1", PlaylistIDs: []string{"not-an-id"}})
	expectCode(t, err, apperrors.CodeValidation)

	err = playlists.Delete(context.Background(), DeletePlaylistsRequest{UID: "ghost", PlaylistIDs: []string{}})
	expectCode(t, err, apperrors.CodeNotFound)

	if err := playlists.Delete(context.Background(), DeletePlaylistsRequest{UID: "u1", PlaylistIDs: []string{}}); err != nil {
		t.Fatalf("expected empty delete to succeed, got %v", err)
	}
}

func TestGetPlaylist(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")

	p, _ := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "Chill", Description: "evening"})

	got, err := playlists.Get(ctx, p.ID.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Chill" || got.Description != "evening" {
		t.Fatalf("unexpected playlist %+v", got)
	}

	_, err = playlists.Get(ctx, "")
	expectCode(t, err, apperrors.CodeValidation)

	_, err = playlists.Get(ctx, "zzz")
	expectCode(t, err, apperrors.CodeValidation)

	_, err = playlists.Get(ctx, primitive.NewObjectID().Hex())
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestListForUserDetachesDanglingReferences(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")

	first, _ := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "first"})
	second, _ := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "second"})

	// Simulate a crash between the two writes of an older delete.
	database.playlists = database.playlists[1:]

	list, err := playlists.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Fatalf("expected only the second playlist, got %v", list)
	}

	if len(database.detachCall) != 1 || database.detachCall[0][0] != first.ID {
		t.Fatalf("expected dangling reference to be detached, got %v", database.detachCall)
	}
	stored, _ := database.FindUserByUID(ctx, "u1")
	if len(stored.Playlists) != 1 {
		t.Fatalf("expected one remaining reference, got %v", stored.Playlists)
	}
}

func TestListForUserIgnoresDetachFailure(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")

	_, _ = playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "gone"})
	database.playlists = nil
	database.detachErr = errBoom

	list, err := playlists.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("expected detach failure to be ignored, got %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %v", list)
	}
}

func TestListForUserErrors(t *testing.T) {
	playlists, _, _ := newTestServices(newFakeDatabase())

	_, err := playlists.ListForUser(context.Background(), "")
	expectCode(t, err, apperrors.CodeValidation)

	_, err = playlists.ListForUser(context.Background(), "ghost")
	expectCode(t, err, apperrors.CodeNotFound)
}

func songInput(t *testing.T, raw string) *models.SongInput {
	t.Helper()
	var in models.SongInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("bad song fixture: %v", err)
	}
	return &in
}

func TestAddSong(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, pub := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")
	mustSync(t, users, "u2", "c@d.com")

	p, _ := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "Mix"})
	song := songInput(t, `{"id": 42, "name": "Tum Hi Ho", "image": [
		{"quality": "50x50", "url": "s.jpg"},
		{"quality": "150x150", "url": "m.jpg"},
		{"quality": "500x500", "url": "l.jpg"}
	]}`)

	updated, err := playlists.AddSong(ctx, AddSongRequest{UID: "u1", PlaylistID: p.ID.Hex(), Song: song})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Songs) != 1 || updated.Songs[0].ID != "42" {
		t.Fatalf("unexpected songs %+v", updated.Songs)
	}
	if updated.Image != "l.jpg" {
		t.Fatalf("expected cover from largest image, got %q", updated.Image)
	}

	_, err = playlists.AddSong(ctx, AddSongRequest{UID: "u1", PlaylistID: p.ID.Hex(), Song: song})
	expectCode(t, err, apperrors.CodeValidation)

	_, err = playlists.AddSong(ctx, AddSongRequest{UID: "u2", PlaylistID: p.ID.Hex(), Song: song})
	expectCode(t, err, apperrors.CodeNotFound)

	_, err = playlists.AddSong(ctx, AddSongRequest{UID: "u1", PlaylistID: p.ID.Hex()})
	expectCode(t, err, apperrors.CodeValidation)

	_, err = playlists.AddSong(ctx, AddSongRequest{UID: "ghost", PlaylistID: p.ID.Hex(), Song: song})
	expectCode(t, err, apperrors.CodeNotFound)

	got := pub.types()
	if got[len(got)-1] != "playlist.updated" {
		t.Fatalf("expected update event, got %v", got)
	}
}

func TestAddSongKeepsExistingCover(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")

	p, _ := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "Mix", Image: "cover.jpg"})
	song := songInput(t, `{"id": "x", "name": "y", "image": [{"quality": "500x500", "url": "l.jpg"}]}`)

	updated, err := playlists.AddSong(ctx, AddSongRequest{UID: "u1", PlaylistID: p.ID.Hex(), Song: song})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Image != "cover.jpg" {
		t.Fatalf("expected existing cover to be kept, got %q", updated.Image)
	}
}

func TestRemoveSongs(t *testing.T) {
	ctx := context.Background()
	database := newFakeDatabase()
	playlists, users, _ := newTestServices(database)
	mustSync(t, users, "u1", "a@b.com")
	mustSync(t, users, "u2", "c@d.com")

	p, _ := playlists.Create(ctx, CreatePlaylistRequest{UID: "u1", Name: "Mix"})
	for _, id := range []string{"a", "b", "c"} {
		in := &models.SongInput{ID: models.FlexString(id), Name: id}
		if _, err := playlists.AddSong(ctx, AddSongRequest{UID: "u1", PlaylistID: p.ID.Hex(), Song: in}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}

	updated, err := playlists.RemoveSongs(ctx, RemoveSongsRequest{UID: "u1", PlaylistID: p.ID.Hex(), SongIDs: []string{"a", "c", "zzz"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Songs) != 1 || updated.Songs[0].ID != "b" {
		t.Fatalf("unexpected songs %+v", updated.Songs)
	}

	_, err = playlists.RemoveSongs(ctx, RemoveSongsRequest{UID: "u2", PlaylistID: p.ID.Hex(), SongIDs: []string{"b"}})
	expectCode(t, err, apperrors.CodeForbidden)

	_, err = playlists.RemoveSongs(ctx, RemoveSongsRequest{UID: "u1", PlaylistID: p.ID.Hex()})
	expectCode(t, err, apperrors.CodeValidation)

	stored, _ := database.GetPlaylist(ctx, p.ID)
	if len(stored.Songs) != 1 {
		t.Fatalf("expected other user's request to leave songs, got %+v", stored.Songs)
	}
}
