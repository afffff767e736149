// Package engine bundles the Normalizer, Dispatcher, Event State Machine,
// Transaction Parser, Hourly Aggregator, Checkpointer and Output Writer
// into the single `Engine` value described by the "global state" design
// note (§9): every handler takes the Engine by pointer rather than
// threading file descriptors and parser state through package globals.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/dispatch"
	"github.com/sam4s/ecringest/internal/metrics"
	"github.com/sam4s/ecringest/internal/normalizer"
	"github.com/sam4s/ecringest/internal/serialio"
	"github.com/sam4s/ecringest/internal/txparser"
)

// Config bundles the operating knobs the Event State Machine itself
// consults; the rest of §6's OperatingConfig (paths, currency, etc.) is
// consumed by the components Engine wraps.
type Config struct {
	Dialect      normalizer.Dialect
	QuietSeconds int
	MonitorMode  bool
}

// RawRecorder is implemented by the Monitor Mode raw-chunk sink. Engine
// depends only on this narrow interface, the same way it depends on
// aggregator.OutputWriter/CheckpointStore rather than their concrete types.
type RawRecorder interface {
	WriteChunk(chunk string) error
}

// Engine is the single value that owns every piece of mutable state in the
// ingestion pipeline: the current hourly row (via Aggregator), the
// transaction parser's small amount of per-transaction memory, the
// Normalizer's one-slot pending-chunk buffer, and the two output resources.
type Engine struct {
	source serialio.ChunkSource
	norm   *normalizer.Normalizer
	agg    *aggregator.Aggregator
	parser *txparser.Parser
	ckpt   aggregator.CheckpointStore
	out    aggregator.OutputWriter
	raw    RawRecorder

	dialect      normalizer.Dialect
	quietSeconds int
	monitorMode  bool
	now          func() time.Time

	state            State
	currentEventTime string
	currentEventHour int
	ignoreHeaders520 bool
	lastActivity     time.Time
}

// New returns an Engine wired to its collaborators. cp may be nil if
// checkpointing is disabled (e.g. MonitorMode); raw may be nil unless
// cfg.MonitorMode is set, in which case it is where every raw chunk read
// from source is persisted instead of being parsed.
func New(source serialio.ChunkSource, norm *normalizer.Normalizer, agg *aggregator.Aggregator, parser *txparser.Parser, cp aggregator.CheckpointStore, out aggregator.OutputWriter, raw RawRecorder, cfg Config) *Engine {
	return &Engine{
		source:       source,
		norm:         norm,
		agg:          agg,
		parser:       parser,
		ckpt:         cp,
		out:          out,
		raw:          raw,
		dialect:      cfg.Dialect,
		quietSeconds: cfg.QuietSeconds,
		monitorMode:  cfg.MonitorMode,
		now:          time.Now,
		state:        StateOther,
	}
}

// SetClock overrides the time source, for deterministic tests and for the
// 520 dialect's system-clock-derived header timestamps.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// State returns the current Event State Machine state, exported for tests
// and diagnostics.
func (e *Engine) State() State { return e.state }

// Step drains any pending synthetic sub-chunk first (the 520 CASH/CHANGE
// split, per §5's ordering guarantee), then reads and processes exactly one
// new chunk from the serial producer. It returns ok=false when there was
// nothing to process this iteration, so the caller's cooperative loop can
// sleep and retry.
//
// In Monitor Mode (§6: "persist raw chunks and skip parsing"), it instead
// reads one chunk and hands it straight to the RawRecorder; the Normalizer,
// Dispatcher and Event State Machine are never invoked, so no row is ever
// accumulated and no output/checkpoint write can occur.
func (e *Engine) Step(ctx context.Context) (ok bool, err error) {
	if e.monitorMode {
		return e.stepMonitor(ctx)
	}

	if pending, has := e.norm.Pending(); has {
		e.processRaw(pending)
		return true, nil
	}

	raw, has, err := e.source.Next(ctx)
	if err != nil {
		return false, fmt.Errorf("engine: read chunk: %w", err)
	}
	if !has {
		return false, nil
	}
	e.processRaw(raw)
	return true, nil
}

func (e *Engine) stepMonitor(ctx context.Context) (ok bool, err error) {
	raw, has, err := e.source.Next(ctx)
	if err != nil {
		return false, fmt.Errorf("engine: read chunk: %w", err)
	}
	if !has {
		return false, nil
	}
	if e.raw != nil {
		if werr := e.raw.WriteChunk(raw); werr != nil {
			log.Warn("engine: failed to persist raw chunk", "err", werr)
		}
	}
	return true, nil
}

func (e *Engine) processRaw(raw string) {
	for _, chunk := range e.norm.Normalize(raw) {
		e.handle(dispatch.Classify(chunk), chunk)
	}
}

// handle applies one classified chunk's effect, per §4.3's transition
// table.
func (e *Engine) handle(kind dispatch.Kind, chunk string) {
	switch {
	case kind.IsHeader():
		e.handleHeader(kind, chunk)
	case kind == dispatch.KindFooter:
		e.state = StateFooter
	case kind == dispatch.KindCancel || kind == dispatch.KindReprint:
		e.handleRevert(kind)
	case kind == dispatch.KindReport || kind == dispatch.KindRefund || kind == dispatch.KindDiagnostic:
		e.state = StateOther
		e.ignoreHeaders520 = false
	case kind == dispatch.KindNoSale:
		if !e.agg.Row().Empty() {
			e.agg.Row().NoSale++
			metrics.NoSaleEvents.Inc()
		}
	default: // transaction line
		e.handleTransactionLine(chunk)
	}

	if e.state != StateOther && e.ckpt != nil {
		e.ckpt.Save(e.agg.Row())
		metrics.CheckpointWrites.Inc()
	}
}

func (e *Engine) handleHeader(kind dispatch.Kind, chunk string) {
	if e.dialect == normalizer.Dialect520 && e.ignoreHeaders520 {
		return // interleaved pseudo-header inside an active 520 transaction
	}

	var hhmm string
	var hour int
	if kind == dispatch.KindHeader420 {
		parsed, h, ok := parse420HeaderTime(chunk)
		if !ok {
			log.Warn("engine: 420 header without a recognizable timestamp", "chunk", chunk)
			now := e.now()
			hhmm, hour = now.Format("15:04"), now.Hour()
		} else {
			hhmm, hour = parsed, h
		}
	} else {
		now := e.now()
		hhmm, hour = now.Format("15:04"), now.Hour()
	}

	prevState := e.state

	row := e.agg.Row()
	if !row.Empty() && hour != row.Hour {
		e.flush("header-rollover")
	}

	wasEmpty := e.agg.Row().Empty()
	e.agg.TakeSnapshot()
	if wasEmpty {
		e.agg.Begin(hour, hhmm)
	}

	if prevState == StateTransaction && e.dialect == normalizer.Dialect520 {
		e.ignoreHeaders520 = true
	}

	e.currentEventTime = hhmm
	e.currentEventHour = hour
	e.state = StateHeader
	e.parser.ResetTransaction()
	e.lastActivity = e.now()
}

func (e *Engine) handleRevert(kind dispatch.Kind) {
	if e.state != StateHeader && e.state != StateTransaction {
		return
	}
	if e.agg.Revert() {
		e.parser.ResetTransaction()
		metrics.TransactionsReverted.Inc()
		log.Info("engine: transaction reverted", "reason", kind.String())
	}
}

func (e *Engine) handleTransactionLine(chunk string) {
	if e.state == StateOther {
		return // suppressed until the next Header
	}

	result := e.parser.Parse(chunk)
	e.lastActivity = e.now()

	if result.IsTransactionStart && e.state == StateHeader {
		e.state = StateTransaction
	}

	if result.Committed {
		row := e.agg.Row()
		row.LastTransaction = e.currentEventTime
		e.agg.DiscardSnapshot()
		metrics.TransactionsCommitted.Inc()
		if e.dialect == normalizer.Dialect520 {
			e.ignoreHeaders520 = false
		}
		// A commit finalizes the transaction's money regardless of whether
		// a Footer chunk follows (some streams omit CLERK, e.g. a 520
		// closing without a printed footer); leaving State == Transaction
		// here would wedge the flush guard shut until the next Header.
		e.state = StateFooter
	}
}

// flush implements §4.7: write the current row (if not empty) via the
// Output Writer, then clear. Guarded against the invariant "never flush
// while State == Transaction".
func (e *Engine) flush(reason string) {
	if e.state == StateTransaction {
		log.Warn("engine: flush suppressed mid-transaction", "reason", reason)
		return
	}
	row := e.agg.Row()
	if row.Empty() {
		return
	}
	discardable := row.TotalTakings == 0 || row.CustomerCount == 0
	if err := e.agg.Flush(e.out, e.ckpt); err != nil {
		log.Error("engine: flush failed", "reason", reason, "err", err)
		return
	}
	if discardable {
		metrics.RowsDiscarded.Inc()
	} else {
		metrics.RowsEmitted.Inc()
	}
	log.Info("engine: flushed hourly row", "reason", reason)
}

// Tick implements §4.7's clock-based flush trigger: hour rollover observed
// via the system clock, at least QuietSeconds of inactivity, and not
// mid-transaction. The main loop calls this once per iteration; the
// QuietSeconds comparison itself bounds how often it can actually fire.
func (e *Engine) Tick(now time.Time) {
	row := e.agg.Row()
	if row.Empty() || e.state == StateTransaction {
		return
	}
	// Integer hour comparison per §4.7(2); known not to hold across
	// midnight (§9's open question), left as-is since the business-hours
	// gate closes the day before midnight in practice.
	if now.Hour() <= row.Hour {
		return
	}
	if e.lastActivity.IsZero() || now.Sub(e.lastActivity) < time.Duration(e.quietSeconds)*time.Second {
		return
	}
	e.flush("clock-timeout")
}

// EnterIdle implements the Idle/Business-Hours Gate's closing behaviour
// (§2/§5): flush any in-progress row, close the output resource, and reset
// ephemeral state so the next opening starts clean.
func (e *Engine) EnterIdle() {
	e.flush("idle-entry")
	if c, ok := e.out.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn("engine: failed to close output on idle entry", "err", err)
		}
	}
	e.parser.ResetTransaction()
	e.state = StateOther
	e.ignoreHeaders520 = false
}

// Dump writes the current Hourly Row to w, safe to call between main-loop
// iterations (§6's "dump on demand" signal handler).
func (e *Engine) Dump(w io.Writer) {
	row := e.agg.Row()
	fmt.Fprintf(w, "hour=%s totalTakings=%s cash=%s creditCards=%s customers=%d noSale=%d first=%s last=%s state=%s\n",
		row.HourWindow(), row.TotalTakings.String(), row.Cash.String(), row.CreditCards.String(),
		row.CustomerCount, row.NoSale, row.FirstTransaction, row.LastTransaction, e.state)
}
