package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avvvet/bingo-rooms/internal/auth"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/models"
	"github.com/avvvet/bingo-rooms/internal/gamesvc/service"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	games []*models.Game
	err   error
}

func (f *fakeArchive) GamesByRoom(_ context.Context, room string, limit int) ([]*models.Game, error) {
	var out []*models.Game
	for _, g := range f.games {
		if g.RoomName == room && len(out) < limit {
			out = append(out, g)
		}
	}
	return out, f.err
}

func (f *fakeArchive) GetGameByID(_ context.Context, id int64) (*models.Game, error) {
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, f.err
}

type fakeEvents struct{ events []models.RoomEvent }

func (f *fakeEvents) EventsByRoom(_ context.Context, room string, limit int64) ([]models.RoomEvent, error) {
	var out []models.RoomEvent
	for _, e := range f.events {
		if e.RoomName == room && int64(len(out)) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeNotifier struct{ left []string }

func (f *fakeNotifier) NotifyLeave(res *service.LeaveResult, _ string) {
	if res != nil {
		f.left = append(f.left, res.Username)
	}
}

type testServer struct {
	h      *Handler
	router *chi.Mux
}

func newTestServer() *testServer {
	h := NewHandler(service.NewGameService(10, nil, nil, nil), auth.New("secret", time.Hour))
	r := chi.NewRouter()
	h.SetRoutes(r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	}))
	return &testServer{h: h, router: r}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "BEARER "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var rsp Response
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	}
	return rec.Code, rsp
}

// login returns a token for name.
func (s *testServer) login(t *testing.T, name string) string {
	t.Helper()
	code, rsp := s.do(t, http.MethodPost, "/v1/login", "", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, code)
	data := rsp.Data.(map[string]interface{})
	assert.Equal(t, name, data["name"])
	return data["token"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer()
	code, rsp := s.do(t, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "game service is running", rsp.Message)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "metrics", rec.Body.String())
}

func TestLogin(t *testing.T) {
	s := newTestServer()
	assert.NotEmpty(t, s.login(t, "alice"))

	code, rsp := s.do(t, http.MethodPost, "/v1/login", "", map[string]string{"name": "al"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, service.ErrInvalidName.Error(), rsp.Error)

	req := httptest.NewRequest(http.MethodPost, "/v1/login", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomsRequireToken(t *testing.T) {
	s := newTestServer()
	code, _ := s.do(t, http.MethodGet, "/v1/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateAndInspectRoom(t *testing.T) {
	s := newTestServer()
	alice := s.login(t, "alice")
	bob := s.login(t, "bob")

	code, rsp := s.do(t, http.MethodPost, "/v1/rooms", alice, map[string]any{"room": "lobby", "max_players": 4})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "lobby", rsp.Data.(map[string]interface{})["room_name"])

	code, rsp = s.do(t, http.MethodPost, "/v1/rooms", bob, map[string]any{"room": "lobby"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, service.ErrRoomExists.Error(), rsp.Error)

	code, rsp = s.do(t, http.MethodGet, "/v1/rooms", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, rsp.Data, 1)

	code, rsp = s.do(t, http.MethodGet, "/v1/rooms/lobby", bob, nil)
	require.Equal(t, http.StatusOK, code)
	info := rsp.Data.(map[string]interface{})
	assert.Equal(t, "alice", info["admin"])
	assert.Equal(t, float64(4), info["max_players"])

	code, _ = s.do(t, http.MethodGet, "/v1/rooms/nowhere", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/v1/rooms/lobby/cards", bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, rsp = s.do(t, http.MethodGet, "/v1/rooms/lobby/cards", alice, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, rsp.Data, "no cards before the game starts")
}

func TestLogout(t *testing.T) {
	s := newTestServer()
	n := &fakeNotifier{}
	s.h.Notifier = n
	alice := s.login(t, "alice")
	code, _ := s.do(t, http.MethodPost, "/v1/rooms", alice, map[string]any{"room": "lobby"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodPost, "/v1/logout", alice, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"alice"}, n.left)

	code, _ = s.do(t, http.MethodPost, "/v1/logout", alice, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"alice"}, n.left, "nothing to announce the second time")

	code, _ = s.do(t, http.MethodGet, "/v1/rooms/lobby", alice, nil)
	assert.Equal(t, http.StatusNotFound, code, "emptied room is gone")
}

func TestHistory(t *testing.T) {
	s := newTestServer()
	token := s.login(t, "alice")

	code, _ := s.do(t, http.MethodGet, "/v1/rooms/lobby/history", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s.h.Archive = &fakeArchive{games: []*models.Game{
		{ID: 1, RoomName: "lobby", Winner: "alice", WinningCards: []int32{0}},
		{ID: 2, RoomName: "lobby", Winner: "bob"},
		{ID: 3, RoomName: "other", Winner: "carol"},
	}}
	s.h.Events = &fakeEvents{events: []models.RoomEvent{
		{RoomName: "lobby", Type: "game-started", Username: "alice"},
	}}

	code, rsp := s.do(t, http.MethodGet, "/v1/rooms/lobby/history?limit=1", token, nil)
	require.Equal(t, http.StatusOK, code)
	games := rsp.Data.([]interface{})
	require.Len(t, games, 1)

	code, rsp = s.do(t, http.MethodGet, "/v1/rooms/lobby/history", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, rsp.Data, 2)

	code, rsp = s.do(t, http.MethodGet, "/v1/rooms/lobby/events", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, rsp.Data, 1)

	code, _ = s.do(t, http.MethodGet, "/v1/games/3", token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/v1/games/99", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodGet, "/v1/games/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	s.h.Archive = &fakeArchive{err: errors.New("connection refused")}
	code, rsp = s.do(t, http.MethodGet, "/v1/rooms/lobby/history", token, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", rsp.Error)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrAlreadyInRoom))
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrRoomNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
