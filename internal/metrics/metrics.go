// Package metrics holds the warden's Prometheus collectors. They are
// registered on the default registry and served from the admin mux.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventsReceived counts inbound platform events by kind
// ("join_request", "group_message", "dropped").
var EventsReceived = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_events_received_total",
		Help: "Inbound platform events by kind.",
	},
	[]string{"kind"},
)

// JoinDecisions counts join-request outcomes by decision name.
var JoinDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_join_decisions_total",
		Help: "Join request decisions by outcome.",
	},
	[]string{"decision"},
)

// BlacklistMutations counts identifiers added to or removed from the
// blacklist by the scanner.
var BlacklistMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_blacklist_mutations_total",
		Help: "Blacklist mutations made by the message scanner.",
	},
	[]string{"op"},
)

// RepliesSent counts outbound group replies by send outcome.
var RepliesSent = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_replies_total",
		Help: "Outbound group replies by outcome.",
	},
	[]string{"outcome"},
)
