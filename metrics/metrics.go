package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// RegisterRelay publishes room and client gauges backed by the relay's stats.
func RegisterRelay(stats func() (rooms, clients int)) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "relay_active_rooms",
			Help: "Number of rooms with at least one member.",
		}, func() float64 {
			rooms, _ := stats()
			return float64(rooms)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "relay_connected_clients",
			Help: "Number of live client connections.",
		}, func() float64 {
			_, clients := stats()
			return float64(clients)
		}),
	)
}
