package rooms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/configs"
)

type fakeRoomRepo struct {
	rooms map[string]*domain.Room
}

func (f *fakeRoomRepo) Create(ctx context.Context, room *domain.Room) error {
	f.rooms[room.RoomID] = room
	return nil
}

func (f *fakeRoomRepo) GetByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) Delete(ctx context.Context, roomID string) error {
	delete(f.rooms, roomID)
	return nil
}

func checkRoom(t *testing.T, repo domain.RoomRepository, roomID string) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewHandler(repo, nil, configs.RealtimeConfig{})
	router := chi.NewRouter()
	router.Get("/api/rooms/{roomId}", handler.CheckRoomHandler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/"+roomID, nil))
	return rec
}

func TestCheckRoomReportsPasswordlessRoom(t *testing.T) {
	room, err := domain.NewRoom("standup1", "", "creator-1")
	require.NoError(t, err)
	repo := &fakeRoomRepo{rooms: map[string]*domain.Room{"standup1": room}}

	rec := checkRoom(t, repo, "standup1")

	assert.Equal(t, http.StatusOK, rec.Code)
	// requiresPassword must be present even when false so clients can
	// skip the password prompt without guessing.
	assert.JSONEq(t, `{"exists":true,"requiresPassword":false}`, rec.Body.String())
}

func TestCheckRoomReportsProtectedRoom(t *testing.T) {
	room, err := domain.NewRoom("standup1", "hunter22", "creator-1")
	require.NoError(t, err)
	repo := &fakeRoomRepo{rooms: map[string]*domain.Room{"standup1": room}}

	rec := checkRoom(t, repo, "standup1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":true,"requiresPassword":true}`, rec.Body.String())
}

func TestCheckRoomUnknownRoom(t *testing.T) {
	repo := &fakeRoomRepo{rooms: map[string]*domain.Room{}}

	rec := checkRoom(t, repo, "notaroom1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"exists":false,"requiresPassword":false}`, rec.Body.String())
}

func TestCheckRoomRejectsInvalidID(t *testing.T) {
	repo := &fakeRoomRepo{rooms: map[string]*domain.Room{}}

	rec := checkRoom(t, repo, "no")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
