package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsSubmitted counts custody transactions accepted by the node
	TransactionsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_transactions_submitted_total",
			Help: "Total number of custody transactions submitted",
		},
		[]string{"method"},
	)

	// TransactionRetries counts resends after an underpriced rejection
	TransactionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_transaction_retries_total",
			Help: "Total number of transaction submission retries",
		},
		[]string{"method"},
	)

	// TransactionsConfirmed counts transactions final at confirmation depth
	TransactionsConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_transactions_confirmed_total",
			Help: "Total number of transactions confirmed at depth",
		},
	)

	// TransactionsFailed counts on-chain failures by phase
	TransactionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_transactions_failed_total",
			Help: "Total number of failed transactions",
		},
		[]string{"phase"},
	)

	// ActiveOrders tracks the on-chain active limit order count seen by the
	// last poller tick
	ActiveOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_active_limit_orders",
			Help: "Number of active limit orders on-chain",
		},
	)

	// OrdersExecuted counts limit orders the poller filled
	OrdersExecuted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_limit_orders_executed_total",
			Help: "Total number of limit orders executed by the poller",
		},
	)

	// OrdersSkipped counts orders skipped in a tick by reason
	OrdersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_limit_orders_skipped_total",
			Help: "Total number of limit orders skipped by the poller",
		},
		[]string{"reason"},
	)

	// EventsProcessed counts custody logs handled by the listener
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_events_processed_total",
			Help: "Total number of custody contract events processed",
		},
		[]string{"event"},
	)

	// EventErrors counts per-log handler failures
	EventErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_event_errors_total",
			Help: "Total number of event handler errors",
		},
		[]string{"event"},
	)

	// ListenerRestarts counts full watcher restarts after subscription errors
	ListenerRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_listener_restarts_total",
			Help: "Total number of event listener restarts",
		},
	)

	// QuoteDuration tracks aggregator quote round-trip time
	QuoteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_aggregator_quote_duration_seconds",
			Help:    "Aggregator quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
