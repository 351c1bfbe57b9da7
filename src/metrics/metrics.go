package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flashbook_monitor"

// Outcome labels for CommandsTotal.
const (
	OutcomeSent         = "sent"
	OutcomeInvalid      = "invalid"
	OutcomeDisconnected = "disconnected"
	OutcomeFailed       = "failed"
)

var (
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_total",
		Help:      "Inbound frames routed, by event type.",
	}, []string{"type"})

	ProtocolErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "protocol_errors_total",
		Help:      "Inbound frames dropped as malformed.",
	})

	UnknownEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unknown_events_total",
		Help:      "Well-formed frames with an unrecognized type.",
	})

	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Outbound commands by name and outcome.",
	}, []string{"command", "outcome"})

	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconnect_attempts_total",
		Help:      "Scheduled reconnect attempts.",
	})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_state",
		Help:      "0 idle, 1 connecting, 2 open, 3 closed.",
	})

	ConnectionTerminal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connection_terminal",
		Help:      "1 when the reconnect budget is exhausted.",
	})

	TickerSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "trade_ticker_size",
		Help:      "Entries in the trade ticker.",
	})

	HistorySize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "price_history_size",
		Help:      "Points in the price history, by symbol.",
	}, []string{"symbol"})

	JournalDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_dropped_total",
		Help:      "Journal records dropped because the write queue was full.",
	})

	HubClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_clients",
		Help:      "Connected render clients.",
	})
)
