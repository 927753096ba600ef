package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videodesk_active_rooms",
		Help: "Main rooms with at least one occupied seat.",
	})

	metricOccupiedSeats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videodesk_occupied_seats",
		Help: "Occupied seats across all main rooms.",
	})

	metricActivePrivateSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videodesk_active_private_sessions",
		Help: "Private sessions currently open.",
	})

	metricJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videodesk_joins_total",
		Help: "Seat claims processed, including re-seats after a private session.",
	})

	metricRelayedSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videodesk_relayed_signals_total",
		Help: "Offer/answer/ICE messages relayed between peers.",
	}, []string{"type"})
)
