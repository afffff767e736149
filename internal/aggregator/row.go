// Package aggregator owns the current hourly row: the tabular state
// accumulated from committed transactions within one clock hour, the
// snapshot/revert machinery used to undo cancelled or reprinted
// transactions, and the money-conservation fix-up applied at flush time
// (§3 and §4.5 of the spec).
package aggregator

import (
	"fmt"

	"github.com/sam4s/ecringest/internal/catalog"
	"github.com/sam4s/ecringest/internal/money"
)

// Row is the hourly aggregation record described in §3 ("Hourly Row").
type Row struct {
	Hour             int // 0-23, the H in [H, H+1)
	TotalTakings     money.Amount
	Cash             money.Amount
	CreditCards      money.Amount
	PLU              []money.Amount // same order as the catalog
	CustomerCount    int
	FirstTransaction string // "HH:MM"
	LastTransaction  string // "HH:MM"
	NoSale           int

	set bool // whether Hour has been assigned yet (row not yet begun)
}

// NewRow returns an empty row sized to the catalog, not yet bound to an
// hour.
func NewRow(cat *catalog.Catalog) *Row {
	return &Row{PLU: make([]money.Amount, cat.Len())}
}

// HourWindow renders the half-open clock interval as "HH.00-HH+1.00".
func (r *Row) HourWindow() string {
	next := (r.Hour + 1) % 24
	return fmt.Sprintf("%02d.00-%02d.00", r.Hour, next)
}

// Empty reports whether the row has never been touched (no hour assigned).
func (r *Row) Empty() bool {
	return !r.set
}

// Begin binds the row to hour h, the first time a transaction in a new hour
// is observed. It is a no-op if the row is already bound.
func (r *Row) Begin(h int, nPLU int) {
	if r.set {
		return
	}
	r.Hour = h
	r.set = true
	if len(r.PLU) != nPLU {
		r.PLU = make([]money.Amount, nPLU)
	}
}

// MarkBound marks the row as bound to its current Hour field without
// touching FirstTransaction, used by the Checkpointer when restoring a
// previously-serialized row verbatim.
func (r *Row) MarkBound() { r.set = true }

// Clone returns a structural deep copy, used as the pre-transaction
// Snapshot.
func (r *Row) Clone() *Row {
	cp := *r
	cp.PLU = append([]money.Amount(nil), r.PLU...)
	return &cp
}

// Clear zeroes all monetary fields and counts and unbinds the hour, per
// §4.5's Clear operation. The PLU slice length (catalog size) is preserved.
func (r *Row) Clear() {
	n := len(r.PLU)
	*r = Row{}
	r.PLU = make([]money.Amount, n)
}

// Discardable reports whether the row should be silently dropped at flush
// time per §3: zero takings or zero customers.
func (r *Row) Discardable() bool {
	return r.TotalTakings == 0 || r.CustomerCount == 0
}

// ReconcileMoney enforces the TotalTakings ≈ Cash + CreditCards invariant
// from §3, to be applied once at flush time (never mid-transaction, since
// Cash may be transiently negative while CASH/CHANGE chunks interleave).
func (r *Row) ReconcileMoney() {
	diff := r.TotalTakings - (r.Cash + r.CreditCards)
	if diff.Abs() <= money.Epsilon {
		return
	}
	if r.CreditCards == 0 {
		r.TotalTakings = r.Cash
		return
	}
	r.CreditCards = r.TotalTakings - r.Cash
}
