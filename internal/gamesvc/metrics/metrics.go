package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the game service collectors. A nil *Metrics is a no-op.
type Metrics struct {
	GamesStarted  prometheus.Counter
	GamesFinished prometheus.Counter
	NumbersDrawn  prometheus.Counter
	RoomsOpen     prometheus.Gauge
	Sessions      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bingo",
			Name:      "games_started_total",
			Help:      "Games started across all rooms.",
		}),
		GamesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bingo",
			Name:      "games_finished_total",
			Help:      "Games that ended with a winner.",
		}),
		NumbersDrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bingo",
			Name:      "numbers_drawn_total",
			Help:      "Numbers drawn across all rooms.",
		}),
		RoomsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bingo",
			Name:      "rooms_open",
			Help:      "Rooms with at least one member.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bingo",
			Name:      "sessions_bound",
			Help:      "Sockets bound to a room.",
		}),
	}
	reg.MustRegister(m.GamesStarted, m.GamesFinished, m.NumbersDrawn, m.RoomsOpen, m.Sessions)
	return m
}

func (m *Metrics) GameStarted() {
	if m != nil {
		m.GamesStarted.Inc()
	}
}

func (m *Metrics) GameFinished() {
	if m != nil {
		m.GamesFinished.Inc()
	}
}

func (m *Metrics) NumberDrawn() {
	if m != nil {
		m.NumbersDrawn.Inc()
	}
}

func (m *Metrics) SetRooms(n int) {
	if m != nil {
		m.RoomsOpen.Set(float64(n))
	}
}

func (m *Metrics) SetSessions(n int) {
	if m != nil {
		m.Sessions.Set(float64(n))
	}
}
