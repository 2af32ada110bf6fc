// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_sessions_created_total",
		Help: "Sessions created.",
	})
	SessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_sessions_ended_total",
		Help: "Sessions ended by their owner.",
	})
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_messages_posted_total",
		Help: "User messages posted.",
	})
	ResponderReplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_responder_replies_total",
		Help: "Assistant replies produced by the responder worker.",
	})
	ResponderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_responder_failures_total",
		Help: "Responder generations that failed or timed out.",
	})
	MembersReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_members_reaped_total",
		Help: "Members removed by the presence reaper.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
