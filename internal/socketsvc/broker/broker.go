package broker

import (
	"encoding/json"

	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn *nats.Conn
	Send func(*comm.WSMessage) bool // writes to the addressed socket
}

func NewBroker(conn *nats.Conn, send func(*comm.WSMessage) bool) *Broker {
	return &Broker{
		Conn: conn,
		Send: send,
	}
}

// consume message from game service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to game service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receive message from game service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.relay(msgNats.Data)
}

func (b *Broker) relay(data []byte) bool {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		log.Errorf("Error %s", err)
		return false
	}

	if message.Type == "" || message.SocketId == "" {
		log.Warnf("dropping unaddressed message %q", message.Type)
		return false
	}

	// sockets of other instances are not found here
	if !b.Send(message) {
		log.Debugf("socket %s not connected, %s dropped", message.SocketId, message.Type)
		return false
	}
	return true
}
