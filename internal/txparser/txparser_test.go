package txparser

import (
	"testing"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/catalog"
	"github.com/sam4s/ecringest/internal/money"
	"github.com/sam4s/ecringest/internal/normalizer"
)

func newFixture(dialect normalizer.Dialect) (*Parser, *aggregator.Aggregator) {
	cat := catalog.FromNames([]string{"Bread", "Coffee"})
	agg := aggregator.New(cat)
	agg.Begin(9, "09:05")
	p := New(agg, Config{Dialect: dialect})
	return p, agg
}

func TestTotalLine420CommitsAndCountsCustomer(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect420)
	res := p.Parse("TOTAL         £2.50")
	if !res.Committed {
		t.Fatalf("expected 420 TOTAL to commit")
	}
	if agg.Row().TotalTakings != money.MustParse("2.50") {
		t.Errorf("TotalTakings = %v", agg.Row().TotalTakings)
	}
	if agg.Row().CustomerCount != 1 {
		t.Errorf("CustomerCount = %d, want 1", agg.Row().CustomerCount)
	}
}

func TestTotalLine520DoesNotCommit(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect520)
	res := p.Parse("TOTAL         £2.50")
	if res.Committed {
		t.Fatalf("520 TOTAL should never commit")
	}
	if agg.Row().CustomerCount != 0 {
		t.Errorf("CustomerCount = %d, want 0", agg.Row().CustomerCount)
	}
}

func TestChangeLine520CommitsAndCountsCustomer(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect520)
	p.Parse("Coffee £2.00")
	res := p.Parse("CHANGE £0.00")
	if !res.Committed {
		t.Fatalf("expected 520 CHANGE to commit")
	}
	if agg.Row().CustomerCount != 1 {
		t.Errorf("CustomerCount = %d, want 1", agg.Row().CustomerCount)
	}
}

func TestCashThenChangeReducesCash(t *testing.T) {
	p, _ := newFixture(normalizer.Dialect420)
	p.Parse("CASH £5.00")
	p.Parse("CHANGE £2.50")
	row := p.agg.Row()
	if row.Cash != money.MustParse("2.50") {
		t.Errorf("Cash = %v, want 2.50", row.Cash)
	}
}

func TestCardThenChangeReversesIntoCash(t *testing.T) {
	// Cashier hits CARD by mistake, then corrects by ringing CASH/CHANGE.
	p, agg := newFixture(normalizer.Dialect420)
	p.Parse("CARD £2.50")
	p.Parse("CASH £5.00")
	p.Parse("CHANGE £2.50")
	row := agg.Row()
	if row.CreditCards != 0 {
		t.Errorf("CreditCards = %v, want 0 after change-after-card correction", row.CreditCards)
	}
	if row.Cash != money.MustParse("5.00") {
		t.Errorf("Cash = %v, want 5.00", row.Cash)
	}
}

func TestPLULineAddsToCatalogColumn(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect420)
	res := p.Parse("Coffee        £2.50")
	if !res.IsTransactionStart {
		t.Errorf("expected PLU line to mark transaction start")
	}
	idx := agg.Catalog().Index("Coffee")
	if agg.Row().PLU[idx] != money.MustParse("2.50") {
		t.Errorf("PLU[Coffee] = %v, want 2.50", agg.Row().PLU[idx])
	}
}

func TestUnknownPLUDropped(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect420)
	p.Parse("Widget        £2.50")
	if agg.Row().TotalTakings != 0 {
		t.Errorf("unknown PLU line should not affect TotalTakings")
	}
}

func TestOverCapRejection420NoReversal(t *testing.T) {
	// S4: the 420 dialect never adds to TotalTakings/Cash from a PLU line
	// in the first place, so an over-cap rejection has nothing to reverse.
	p, agg := newFixture(normalizer.Dialect420)
	p.Parse("Coffee        £999.99")
	row := agg.Row()
	if row.TotalTakings != 0 || row.Cash != 0 {
		t.Errorf("expected no side effect from a rejected 420 over-cap line, got TotalTakings=%v Cash=%v", row.TotalTakings, row.Cash)
	}
	idx := agg.Catalog().Index("Coffee")
	if row.PLU[idx] != 0 {
		t.Errorf("rejected item must not be added to its PLU column")
	}
}

func TestOverCapRejection520ReversesTotalTakingsOnly(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect520)
	p.Parse("Coffee £2.00") // TotalTakings speculatively += 2.00
	p.Parse("Coffee £999.99")
	row := agg.Row()
	if row.TotalTakings != money.MustParse("2.00") {
		t.Errorf("TotalTakings = %v, want 2.00 (over-cap line reversed, first line kept)", row.TotalTakings)
	}
	if row.Cash != 0 {
		t.Errorf("Cash should be untouched by any PLU line, got %v", row.Cash)
	}
}

func TestDiscountAppliesToCurrentPLU(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect420)
	p.Parse("Coffee £2.50")
	p.Parse("AMOUNT -0.50")
	idx := agg.Catalog().Index("Coffee")
	if agg.Row().PLU[idx] != money.MustParse("2.00") {
		t.Errorf("PLU[Coffee] = %v, want 2.00 after discount", agg.Row().PLU[idx])
	}
}

func TestLineWithoutCurrencyOrAmountDiscarded(t *testing.T) {
	p, agg := newFixture(normalizer.Dialect420)
	res := p.Parse("CLERK 01")
	if res.IsTransactionStart || res.Committed {
		t.Errorf("a line with no currency symbol and not AMOUNT-prefixed must be discarded")
	}
	if agg.Row().TotalTakings != 0 {
		t.Errorf("discarded line must not mutate the row")
	}
}

func TestResetTransactionClearsCardFlagAndCurrentPLU(t *testing.T) {
	p, _ := newFixture(normalizer.Dialect420)
	p.Parse("Coffee £2.50")
	p.Parse("CARD £2.50")
	p.ResetTransaction()
	if p.currentPLU != "" || p.cardFlagged {
		t.Errorf("ResetTransaction did not clear per-transaction state")
	}
}
