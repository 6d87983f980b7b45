package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Publisher forwards client events to the game service.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// client is one websocket connection. gorilla connections allow a single
// concurrent writer, so writes go through mu.
type client struct {
	conn     *websocket.Conn
	username string
	mu       sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	count   atomic.Int64
	Broker  Publisher
}

func NewWs() *Ws {
	return &Ws{}
}

var clientEvents = map[string]bool{
	comm.CreateRoom:       true,
	comm.JoinRoom:         true,
	comm.LeaveRoom:        true,
	comm.StartGame:        true,
	comm.DrawNumber:       true,
	comm.ResetGame:        true,
	comm.SetPlayerCards:   true,
	comm.GetPlayersConfig: true,
	comm.UpdateCheckIns:   true,
	comm.TransferAdmin:    true,
	comm.SetPrize:         true,
}

// SocketMessage stamps a client event with its socket and verified username
// and publishes it to the game service.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) bool {
	if !clientEvents[message.Type] {
		log.Warnf("unknown event received: %s", message.Type)
		return false
	}

	c, ok := s.client(socketId)
	if !ok {
		log.Warnf("event %s from unknown socket %s", message.Type, socketId)
		return false
	}

	message.SocketId = socketId
	message.Username = c.username
	return s.publish(message)
}

// HandleDisconnect forgets the socket and tells the game service.
func (s *Ws) HandleDisconnect(socketId string) {
	if _, loaded := s.connMap.LoadAndDelete(socketId); !loaded {
		return
	}
	s.count.Add(-1)
	s.publish(&comm.WSMessage{Type: comm.Disconnect, SocketId: socketId})
}

func (s *Ws) publish(message *comm.WSMessage) bool {
	bytes, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return false
	}

	if err := s.Broker.Publish(comm.SocketSubject, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", comm.SocketSubject, err)
		return false
	}
	return true
}

func (s *Ws) StoreConnection(socketId, username string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{conn: conn, username: username})
	s.count.Add(1)
}

func (s *Ws) client(socketId string) (*client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client), true
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	c, ok := s.client(socketId)
	if !ok {
		return nil, false
	}
	return c.conn, true
}

// Send writes m to the socket it is addressed to. It reports false when the
// socket is not connected to this instance.
func (s *Ws) Send(m *comm.WSMessage) bool {
	c, ok := s.client(m.SocketId)
	if !ok {
		return false
	}
	if err := c.writeJSON(m); err != nil {
		log.Errorf("Failed to write %s to socket %s: %v", m.Type, m.SocketId, err)
		return false
	}
	return true
}

func (s *Ws) Connections() int {
	return int(s.count.Load())
}
