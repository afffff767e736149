// Package output implements §4.8 of the spec: one CSV row per flushed
// hourly row, written into a per-day, per-site file with a header row
// derived from the PLU catalog's column order.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/catalog"
)

// Writer emits hourly rows as CSV, one file per (day, site[, register]).
// The underlying *os.File is opened lazily on first write and kept open
// until Close, matching §5's "output file handle owned by the Output
// Writer, opened lazily and closed on idle entry".
type Writer struct {
	dir      string
	siteID   string
	register string // optional register suffix, empty if none
	now      func() time.Time

	file    *os.File
	csv     *csv.Writer
	openDay string // yyyymmdd the open file belongs to
}

// New returns a Writer rooted at dir for the given site/register.
func New(dir, siteID, register string) *Writer {
	return &Writer{dir: dir, siteID: siteID, register: register, now: time.Now}
}

// SetClock overrides the time source, for deterministic tests.
func (w *Writer) SetClock(now func() time.Time) { w.now = now }

func (w *Writer) fileName(day string) string {
	name := fmt.Sprintf("%s_%s", day, w.siteID)
	if w.register != "" {
		name += "_" + w.register
	}
	return filepath.Join(w.dir, name+".csv")
}

// columns returns the §4.5 column schema for the given catalog.
func columns(cat *catalog.Catalog) []string {
	cols := []string{"HourWindow", "TotalTakings", "Cash", "CreditCards"}
	cols = append(cols, cat.Names()...)
	cols = append(cols, "CustomerCount", "FirstTransaction", "LastTransaction", "NoSale")
	return cols
}

// WriteRow appends one data row, creating the file and its header row if
// this is the first write of the day. Implements aggregator.OutputWriter.
func (w *Writer) WriteRow(row *aggregator.Row, cat *catalog.Catalog) error {
	day := w.now().Format("20060102")
	if err := w.ensureOpen(day, cat); err != nil {
		return err
	}

	record := make([]string, 0, 4+cat.Len()+4)
	record = append(record, row.HourWindow(), row.TotalTakings.String(), row.Cash.String(), row.CreditCards.String())
	for _, amt := range row.PLU {
		record = append(record, amt.String())
	}
	record = append(record,
		fmt.Sprintf("%d", row.CustomerCount),
		row.FirstTransaction,
		row.LastTransaction,
		fmt.Sprintf("%d", row.NoSale),
	)

	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("output: write row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("output: flush: %w", err)
	}
	log.Info("output: hourly row written", "hour", row.HourWindow(), "site", w.siteID, "takings", row.TotalTakings.String())
	return nil
}

func (w *Writer) ensureOpen(day string, cat *catalog.Catalog) error {
	if w.file != nil && w.openDay == day {
		return nil
	}
	w.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	path := w.fileName(day)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", path, err)
	}
	w.file = f
	w.csv = csv.NewWriter(f)
	w.csv.UseCRLF = false
	w.openDay = day

	if needsHeader {
		if err := w.csv.Write(columns(cat)); err != nil {
			return fmt.Errorf("output: write header: %w", err)
		}
		w.csv.Flush()
		if err := w.csv.Error(); err != nil {
			return fmt.Errorf("output: flush header: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying file, per the Idle/Business-Hours
// Gate's "closes output resources" duty (§4.8/§2).
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	if w.csv != nil {
		w.csv.Flush()
	}
	err := w.file.Close()
	w.file = nil
	w.csv = nil
	w.openDay = ""
	return err
}
