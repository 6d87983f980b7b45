package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/bingo-rooms/internal/auth"
	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/avvvet/bingo-rooms/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []comm.WSMessage
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	var m comm.WSMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == comm.SocketSubject {
		f.msgs = append(f.msgs, m)
	}
	return nil
}

func (f *fakePublisher) all() []comm.WSMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]comm.WSMessage(nil), f.msgs...)
}

func newTestServer(t *testing.T) (*httptest.Server, *ws.Ws, *fakePublisher, *auth.Auth) {
	t.Helper()
	a := auth.New("secret", time.Hour)
	pub := &fakePublisher{}
	s := ws.NewWs()
	s.Broker = pub

	r := chi.NewRouter()
	SetRoutes(r, s, a, []string{"http://allowed.example"})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s, pub, a
}

func dial(t *testing.T, srv *httptest.Server, token string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	if token != "" {
		url += "?jwt=" + token
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rsp, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
}

func TestWebSocketRequiresToken(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	_, rsp, err := dial(t, srv, "", nil)
	require.Error(t, err)
	require.NotNil(t, rsp)
	assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv, _, _, a := newTestServer(t)
	token, err := a.IssueToken("alice", "id-1")
	require.NoError(t, err)

	_, rsp, err := dial(t, srv, token, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, rsp)
	assert.Equal(t, http.StatusForbidden, rsp.StatusCode)

	conn, _, err := dial(t, srv, token, http.Header{"Origin": {"http://allowed.example"}})
	require.NoError(t, err)
	conn.Close()
}

func TestWebSocketRoundTrip(t *testing.T) {
	srv, s, pub, a := newTestServer(t)
	token, err := a.IssueToken("alice", "id-1")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, token, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the client cannot choose who it speaks for
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     comm.JoinRoom,
		"data":     map[string]string{"room": "lobby"},
		"username": "mallory",
		"socketid": "forged",
	}))

	require.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, 10*time.Millisecond)
	in := pub.all()[0]
	assert.Equal(t, comm.JoinRoom, in.Type)
	assert.Equal(t, "alice", in.Username)
	assert.NotEqual(t, "forged", in.SocketId)
	assert.JSONEq(t, `{"room":"lobby"}`, string(in.Data))
	assert.Equal(t, 1, s.Connections())

	// game service replies are relayed by socket id
	reply, err := comm.NewMessage(comm.GameState, in.SocketId, comm.RoomUpdate{})
	require.NoError(t, err)
	require.True(t, s.Send(reply))

	var got comm.WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, comm.GameState, got.Type)

	// unknown events are answered locally
	require.NoError(t, conn.WriteJSON(map[string]any{"type": comm.Disconnect}))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, comm.Error, got.Type)

	conn.Close()
	require.Eventually(t, func() bool {
		msgs := pub.all()
		return len(msgs) == 2 && msgs[1].Type == comm.Disconnect && msgs[1].SocketId == in.SocketId
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, s.Connections())
	assert.False(t, s.Send(reply), "socket is gone")
}
