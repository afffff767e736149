package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/catalog"
	"github.com/sam4s/ecringest/internal/money"
)

func TestSaveAndLoadSameHour(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	cat := catalog.FromNames([]string{"Bread", "Coffee"})
	agg := aggregator.New(cat)
	agg.Begin(9, "09:05")
	agg.Row().TotalTakings = money.MustParse("2.50")
	agg.Row().CustomerCount = 1
	agg.AddPLU("Coffee", money.MustParse("2.50"))

	s.Save(agg.Row())

	loaded, ok, nPLU := s.LoadIfCurrentHour(9)
	if !ok {
		t.Fatalf("expected a checkpoint for hour 9")
	}
	if nPLU != 2 {
		t.Errorf("nPLU = %d, want 2", nPLU)
	}
	if loaded.TotalTakings != money.MustParse("2.50") {
		t.Errorf("TotalTakings = %v", loaded.TotalTakings)
	}
	if loaded.Empty() {
		t.Errorf("restored row should be bound")
	}
}

func TestLoadWrongHourDeletesStale(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	cat := catalog.FromNames([]string{"Bread"})
	agg := aggregator.New(cat)
	agg.Begin(9, "09:05")
	agg.Row().TotalTakings = money.MustParse("1.00")
	s.Save(agg.Row())

	_, ok, _ := s.LoadIfCurrentHour(10)
	if ok {
		t.Fatalf("expected no checkpoint usable for a different hour")
	}
	if _, err := os.Stat(filepath.Join(dir, "checkpoint-09.dat")); !os.IsNotExist(err) {
		t.Errorf("expected stale checkpoint to be removed, stat err = %v", err)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	cat := catalog.FromNames([]string{"Bread"})
	agg := aggregator.New(cat)
	agg.Begin(9, "09:05")
	agg.Row().TotalTakings = money.MustParse("1.00")
	s.Save(agg.Row())

	if err := s.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "checkpoint-09.dat")); !os.IsNotExist(err) {
		t.Errorf("expected file removed")
	}
}
