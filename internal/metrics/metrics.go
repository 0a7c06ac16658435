// Package metrics exposes Prometheus counters for the event flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersaga_events_published_total",
		Help: "Events published to the events exchange, by routing key.",
	}, []string{"routing_key"})

	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersaga_events_consumed_total",
		Help: "Event deliveries processed, by queue and outcome.",
	}, []string{"queue", "outcome"})

	EventsParked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersaga_events_parked_total",
		Help: "Deliveries parked after exhausting retries, by queue.",
	}, []string{"queue"})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
