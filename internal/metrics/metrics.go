// Package metrics exposes the Engine's operational counters via
// Prometheus, one of the "ambient stack" concerns SPEC_FULL.md adds beyond
// the distilled spec's Non-goals (which exclude report ingestion, not
// observability).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RowsEmitted counts hourly rows successfully written by the Output
	// Writer.
	RowsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "rows_emitted_total",
		Help:      "Hourly rows written to the output CSV.",
	})

	// RowsDiscarded counts flushes dropped because TotalTakings or
	// CustomerCount was zero (§3's discard rule).
	RowsDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "rows_discarded_total",
		Help:      "Flushed hourly rows discarded for zero takings or zero customers.",
	})

	// TransactionsCommitted counts commit points reached (420 TOTAL / 520
	// CHANGE).
	TransactionsCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "transactions_committed_total",
		Help:      "Transaction commit points reached.",
	})

	// TransactionsReverted counts Cancel/Reprint reverts.
	TransactionsReverted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "transactions_reverted_total",
		Help:      "Transactions reverted by a Cancel or Reprint chunk.",
	})

	// OverCapRejections counts single-item-price-cap rejections (§4.4).
	OverCapRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "over_cap_rejections_total",
		Help:      "PLU lines rejected for exceeding the single item price cap.",
	})

	// UnknownPLUDropped counts PLU lines dropped for not matching the
	// catalog.
	UnknownPLUDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "unknown_plu_dropped_total",
		Help:      "Transaction lines dropped for not matching any catalog PLU.",
	})

	// CheckpointWrites counts checkpoint saves requested by the Engine, one
	// per handled chunk outside the Other state. A save that fails or is
	// skipped (empty row) is counted too.
	CheckpointWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "checkpoint_writes_total",
		Help:      "Checkpoint-<HH>.dat saves requested, including failed or skipped ones.",
	})

	// NoSaleEvents counts observed NoSale (drawer-open) events.
	NoSaleEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecringest",
		Name:      "no_sale_events_total",
		Help:      "NoSale (drawer opened without a transaction) events observed.",
	})
)

// Registry bundles the collectors into a dedicated prometheus.Registry so
// cmd/ecringest can serve them without polluting the default global
// registry (helpful when embedding under a test harness that also scrapes
// go-ethereum's own default-registered runtime collectors).
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(
		RowsEmitted,
		RowsDiscarded,
		TransactionsCommitted,
		TransactionsReverted,
		OverCapRejections,
		UnknownPLUDropped,
		CheckpointWrites,
		NoSaleEvents,
	)
	return r
}
