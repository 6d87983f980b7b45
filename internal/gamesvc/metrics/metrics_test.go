package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.GameStarted()
	m.NumberDrawn()
	m.NumberDrawn()
	m.GameFinished()
	m.SetRooms(3)
	m.SetSessions(5)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GamesStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NumbersDrawn))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GamesFinished))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RoomsOpen))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Sessions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.GameStarted()
		m.GameFinished()
		m.NumberDrawn()
		m.SetRooms(1)
		m.SetSessions(1)
	})
}
