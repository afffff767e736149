package aggregator

import (
	"github.com/sam4s/ecringest/internal/catalog"
	"github.com/sam4s/ecringest/internal/money"
)

// Aggregator owns the current Hourly Row and the single in-flight
// Snapshot slot described in §3/§4.5. Only one transaction is ever
// in-flight at a time, so one shadow row suffices (Design Notes §9).
type Aggregator struct {
	cat      *catalog.Catalog
	row      *Row
	snapshot *Row
}

// New returns an Aggregator with an empty, unbound row.
func New(cat *catalog.Catalog) *Aggregator {
	return &Aggregator{cat: cat, row: NewRow(cat)}
}

// Row returns the current hourly row for direct mutation by the transaction
// parser and event state machine.
func (a *Aggregator) Row() *Row { return a.row }

// Adopt replaces the current row wholesale, used on startup to resume from
// a same-hour checkpoint (§4.6).
func (a *Aggregator) Adopt(row *Row) { a.row = row }

// Catalog returns the PLU catalog backing this aggregator's row.
func (a *Aggregator) Catalog() *catalog.Catalog { return a.cat }

// Begin binds the row to hour h if it is not already bound, initializing
// FirstTransaction if this is the row's very first event.
func (a *Aggregator) Begin(h int, eventTime string) {
	wasEmpty := a.row.Empty()
	a.row.Begin(h, a.cat.Len())
	if wasEmpty {
		a.row.FirstTransaction = eventTime
	}
}

// TakeSnapshot clones the current row into the shadow slot, discarding any
// previous snapshot. Called on Header, per §4.3.
func (a *Aggregator) TakeSnapshot() {
	a.snapshot = a.row.Clone()
}

// HasSnapshot reports whether a snapshot is available to revert to.
func (a *Aggregator) HasSnapshot() bool {
	return a.snapshot != nil
}

// Revert restores the row from the snapshot (Cancel/Reprint, §4.3) and
// reports whether a snapshot was present. Reverting to a snapshot taken
// before the transaction began also reverts CustomerCount, FirstTransaction
// and every PLU/money field the transaction touched, in one step.
func (a *Aggregator) Revert() bool {
	if a.snapshot == nil {
		return false
	}
	a.row = a.snapshot
	a.snapshot = nil
	return true
}

// DiscardSnapshot drops the shadow slot without reverting, called on commit
// (§3 lifecycle); on a Header, TakeSnapshot replaces the slot instead.
func (a *Aggregator) DiscardSnapshot() {
	a.snapshot = nil
}

// AddPLU adds amount to the named catalog column, returning false if name is
// not a catalog member (caller logs and drops the line per §4.4).
func (a *Aggregator) AddPLU(name string, amount money.Amount) bool {
	idx := a.cat.Index(name)
	if idx < 0 {
		return false
	}
	a.row.PLU[idx] = a.row.PLU[idx] + amount
	return true
}

// OutputWriter is implemented by §4.8's Output Writer; the aggregator
// depends only on this narrow interface so it never needs to know the
// on-disk row/column format.
type OutputWriter interface {
	WriteRow(row *Row, cat *catalog.Catalog) error
}

// CheckpointStore is implemented by §4.6's Checkpointer.
type CheckpointStore interface {
	Save(row *Row)
	Delete() error
}

// Flush implements §4.7: write the current row via w (unless discardable),
// then Clear. It is the caller's responsibility to never invoke Flush while
// State == Transaction (the guard from §4.7/§7).
func (a *Aggregator) Flush(w OutputWriter, cp CheckpointStore) error {
	if a.row.Empty() {
		return nil
	}
	a.row.ReconcileMoney()
	var err error
	if !a.row.Discardable() {
		err = w.WriteRow(a.row, a.cat)
	}
	a.row.Clear()
	if cp != nil {
		if cerr := cp.Delete(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
