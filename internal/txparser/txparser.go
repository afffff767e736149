// Package txparser implements §4.4 of the spec: given a transaction line
// already classified as KindTransactionLine by the dispatcher, split it on
// the currency symbol and route the (key, value) pair into the aggregator's
// current hourly row.
package txparser

import (
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/catalog"
	"github.com/sam4s/ecringest/internal/metrics"
	"github.com/sam4s/ecringest/internal/money"
	"github.com/sam4s/ecringest/internal/normalizer"
)

// Result reports what effect, if any, a parsed line had that the event
// state machine needs to react to.
type Result struct {
	// Committed is true when the line was a 420 TOTAL or a 520 CHANGE,
	// the commit points defined in §4.3.
	Committed bool
	// IsTransactionStart is true for every line the parser acted on (a
	// tender, TOTAL, AMOUNT discount or catalog PLU line, including an
	// over-cap PLU line it rejected); the Engine uses the first such line
	// after a Header as the Header→Transaction trigger from §4.3.
	IsTransactionStart bool
}

// Parser holds the small amount of per-transaction state §4.4 needs beyond
// the hourly row itself: the most recently touched PLU column (for AMOUNT
// discounts), the last card/cheque amount (for the change-after-card
// correction) and the dialect/config knobs that change subdispatch
// behaviour.
type Parser struct {
	agg           *aggregator.Aggregator
	dialect       normalizer.Dialect
	currency      string
	singleItemCap money.Amount

	currentPLU    string
	cardFlagged   bool
	cardFlagValue money.Amount
}

// Config bundles the per-run knobs §4.4/§6 names.
type Config struct {
	Dialect       normalizer.Dialect
	Currency      string
	SingleItemCap money.Amount // default 200.00, i.e. money.MustParse("200.00")
}

// New returns a Parser bound to agg.
func New(agg *aggregator.Aggregator, cfg Config) *Parser {
	currency := cfg.Currency
	if currency == "" {
		currency = "£"
	}
	cap := cfg.SingleItemCap
	if cap == 0 {
		cap = money.MustParse("200.00")
	}
	return &Parser{agg: agg, dialect: cfg.Dialect, currency: currency, singleItemCap: cap}
}

// ResetTransaction clears per-transaction state; called when a fresh
// Snapshot is taken on Header, per the Snapshot lifecycle in §3.
func (p *Parser) ResetTransaction() {
	p.currentPLU = ""
	p.cardFlagged = false
	p.cardFlagValue = 0
}

// Parse applies one transaction line's effect to the aggregator's current
// row. Lines lacking the currency symbol and not starting with AMOUNT are
// discarded per §4.4.
func (p *Parser) Parse(line string) Result {
	key, value, ok := p.split(line)
	if !ok {
		return Result{}
	}

	upperKey := strings.ToUpper(strings.TrimSpace(key))
	row := p.agg.Row()

	switch {
	case strings.Contains(upperKey, "TOTAL"):
		amt, perr := money.Parse(value)
		if perr != nil {
			log.Warn("txparser: malformed TOTAL value", "value", value, "err", perr)
			return Result{}
		}
		row.TotalTakings = row.TotalTakings.Add(amt)
		committed := false
		if p.dialect == normalizer.Dialect420 {
			row.CustomerCount++
			committed = true
		}
		return Result{Committed: committed, IsTransactionStart: true}

	case strings.Contains(upperKey, "CASH"):
		amt, perr := money.Parse(value)
		if perr != nil {
			log.Warn("txparser: malformed CASH value", "value", value, "err", perr)
			return Result{}
		}
		row.Cash = row.Cash.Add(amt)
		return Result{IsTransactionStart: true}

	case strings.Contains(upperKey, "CHANGE"):
		amt, perr := money.Parse(value)
		if perr != nil {
			log.Warn("txparser: malformed CHANGE value", "value", value, "err", perr)
			return Result{}
		}
		row.Cash = row.Cash.Sub(amt)
		committed := false
		if p.dialect == normalizer.Dialect520 {
			row.CustomerCount++
			committed = true
		}
		if p.cardFlagged {
			// Cashier hit CARD by mistake; reverse that adjustment into cash.
			row.CreditCards = row.CreditCards.Sub(p.cardFlagValue)
			row.Cash = row.Cash.Add(p.cardFlagValue)
			p.cardFlagged = false
		}
		return Result{Committed: committed, IsTransactionStart: true}

	case strings.Contains(upperKey, "CHEQUE") || strings.Contains(upperKey, "CARD"):
		amt, perr := money.Parse(value)
		if perr != nil {
			log.Warn("txparser: malformed CARD/CHEQUE value", "value", value, "err", perr)
			return Result{}
		}
		row.CreditCards = row.CreditCards.Add(amt)
		p.cardFlagged = true
		p.cardFlagValue = amt
		return Result{IsTransactionStart: true}

	case strings.Contains(upperKey, "AMOUNT"):
		amt, perr := money.Parse(value)
		if perr != nil {
			log.Warn("txparser: malformed AMOUNT (discount) value", "value", value, "err", perr)
			return Result{}
		}
		if p.currentPLU != "" {
			p.agg.AddPLU(p.currentPLU, amt)
		}
		return Result{IsTransactionStart: true}

	default:
		return p.parsePLULine(key, value)
	}
}

// split separates a transaction line into (key, value) on the currency
// symbol, per §4.4. A line with no currency symbol is accepted only if it
// begins with AMOUNT (the discount line carries its own signed value after
// the word AMOUNT with no currency symbol in the source device's printout).
func (p *Parser) split(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(strings.ToUpper(trimmed), "AMOUNT") {
		rest := strings.TrimSpace(trimmed[len("AMOUNT"):])
		rest = strings.TrimPrefix(rest, p.currency)
		return "AMOUNT", rest, true
	}
	idx := strings.Index(line, p.currency)
	if idx < 0 {
		return "", "", false
	}
	key = line[:idx]
	value = line[idx+len(p.currency):]
	return key, strings.TrimSpace(value), true
}

// parsePLULine handles the catch-all PLU line-item case of §4.4's
// subdispatch table.
func (p *Parser) parsePLULine(rawKey, value string) Result {
	name := catalog.Normalize(rawKey)
	amt, err := money.Parse(value)
	if err != nil {
		log.Info("txparser: malformed PLU line dropped", "key", rawKey, "value", value, "err", err)
		return Result{}
	}

	if !p.agg.Catalog().Contains(name) {
		log.Info("txparser: unknown PLU key dropped", "key", name)
		metrics.UnknownPLUDropped.Inc()
		return Result{}
	}

	row := p.agg.Row()
	if amt.GreaterOrEqual(p.singleItemCap) {
		// A rejected line is dropped before any of its effects are applied:
		// the 520 dialect adds a PLU line's value into TotalTakings only
		// below, for an accepted line, neither dialect touches Cash from a
		// PLU line, and the 420 dialect never touches TotalTakings from one
		// (its TOTAL line is authoritative), so there is nothing to undo.
		log.Info("txparser: single item price over cap rejected", "key", name, "value", amt)
		metrics.OverCapRejections.Inc()
		return Result{IsTransactionStart: true}
	}

	p.agg.AddPLU(name, amt)
	p.currentPLU = name
	if p.dialect == normalizer.Dialect520 {
		row.TotalTakings = row.TotalTakings.Add(amt)
	}
	return Result{IsTransactionStart: true}
}
