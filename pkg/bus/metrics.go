package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	busRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_bus_requests_total",
		Help: "Total SEMP requests over the message bus by outcome",
	}, []string{"outcome"}) // "ok", "timeout", "no_responders", "error"

	busMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_bus_messages_received_total",
		Help: "Total messages delivered to consumers",
	}, []string{"kind"}) // "topic", "queue"

	busMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_bus_messages_published_total",
		Help: "Total messages published",
	}, []string{"kind"}) // "topic", "queue"

	busSessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "semp_bus_session_events_total",
		Help: "Total session lifecycle events",
	}, []string{"event"}) // "connected", "disconnected", "reconnected", "closed", "error"
)
