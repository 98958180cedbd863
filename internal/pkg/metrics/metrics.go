// Package metrics holds the daemon's prometheus instruments. Everything is
// registered on the default registry and served from the HTTP /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "melcloudhome_polls_total",
		Help: "Poll attempts against the cloud API",
	})
	PollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "melcloudhome_poll_failures_total",
		Help: "Polls that failed after the built-in auth retry",
	})
	LastPollSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "melcloudhome_last_poll_success_timestamp_seconds",
		Help: "Unix time of the last successful poll",
	})
	Reauthentications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "melcloudhome_reauthentications_total",
		Help: "Automatic session renewals after an auth rejection",
	})
	ControlCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "melcloudhome_control_commands_total",
		Help: "Control commands by kind and outcome",
	}, []string{"kind", "outcome"})
	Devices = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "melcloudhome_devices",
		Help: "Devices seen in the last successful poll, by type",
	}, []string{"type"})
)
