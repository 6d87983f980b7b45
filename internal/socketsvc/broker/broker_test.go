package broker

import (
	"testing"

	"github.com/avvvet/bingo-rooms/internal/comm"
	"github.com/stretchr/testify/assert"
)

func TestRelay(t *testing.T) {
	var sent []*comm.WSMessage
	b := NewBroker(nil, func(m *comm.WSMessage) bool {
		if m.SocketId != "s1" {
			return false
		}
		sent = append(sent, m)
		return true
	})

	assert.True(t, b.relay([]byte(`{"type":"number-drawn","data":{"number":7},"socketid":"s1"}`)))
	assert.False(t, b.relay([]byte(`{"type":"number-drawn","data":{},"socketid":"s2"}`)), "not on this instance")
	assert.False(t, b.relay([]byte(`{"type":"number-drawn","data":{}}`)), "unaddressed")
	assert.False(t, b.relay([]byte(`{`)))

	if assert.Len(t, sent, 1) {
		assert.Equal(t, comm.NumberDrawn, sent[0].Type)
		assert.JSONEq(t, `{"number":7}`, string(sent[0].Data))
	}
}
