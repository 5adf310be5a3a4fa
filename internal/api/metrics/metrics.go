// Package metrics defines and registers all custom Prometheus metrics for the
// lending API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// via promauto, and exposed by the echoprometheus handler on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/univlib/lending-system/internal/core/domain"
)

// Namespace prefixes every lending metric and the HTTP middleware metrics.
const Namespace = "lending"

// ── Loan metrics ──────────────────────────────────────────────────────────────

// LoansOpenedTotal counts successful borrows.
// Label:
//   - role: borrower role ("adult", "child", "student", "librarian")
var LoansOpenedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "loans_opened_total",
		Help:      "Total number of loans opened, by borrower role.",
	},
	[]string{"role"},
)

// LoansClosedTotal counts successful returns.
var LoansClosedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "loans_closed_total",
		Help:      "Total number of loans closed, by borrower role.",
	},
	[]string{"role"},
)

var LoansRenewedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "loans_renewed_total",
		Help:      "Total number of successful loan renewals.",
	},
)

// OpenLoans tracks the size of the ledger as seen by the event stream.
var OpenLoans = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "open_loans",
		Help:      "Current number of open loans.",
	},
)

// RejectionsTotal counts lending operations refused by the engine.
// Labels:
//   - operation: "borrow", "return", "renew", ...
//   - reason: "not_found", "unavailable", "policy_violation" or "other"
var RejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rejections_total",
		Help:      "Total number of lending operations rejected, by operation and reason.",
	},
	[]string{"operation", "reason"},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var EventsQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "events_queue_depth",
		Help:      "Current number of loan events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// EventsDroppedTotal counts loan events the dispatcher refused.
// Label:
//   - reason: "closed" or "queue_full"
var EventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of loan events dropped before reaching a journal, by reason.",
	},
	[]string{"reason"},
)

// JournalErrorsTotal counts loan events a journal failed to record.
// Label:
//   - journal: "mongo", "sqlite", "kafka"
var JournalErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "event_journal_errors_total",
		Help:      "Total number of loan events that failed to be recorded, by journal.",
	},
	[]string{"journal"},
)

// JournalDuration measures how long a journal takes to record one event.
var JournalDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "event_journal_duration_seconds",
		Help:      "Duration of recording a single loan event, by journal.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"journal"},
)

// ObserveEvent updates the loan counters for one event from the engine.
func ObserveEvent(e domain.LoanEvent) {
	switch e.Type {
	case domain.LoanOpened:
		LoansOpenedTotal.WithLabelValues(string(e.PatronRole)).Inc()
		OpenLoans.Inc()
	case domain.LoanClosed:
		LoansClosedTotal.WithLabelValues(string(e.PatronRole)).Inc()
		OpenLoans.Dec()
	case domain.LoanRenewed:
		LoansRenewedTotal.Inc()
	}
}

// ObserveRejection counts a refused operation under its taxonomy root.
func ObserveRejection(operation string, err error) {
	RejectionsTotal.WithLabelValues(operation, RejectionReason(err)).Inc()
}

// RejectionReason maps an engine error to its metric label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrPolicyViolation):
		return "policy_violation"
	default:
		return "other"
	}
}
