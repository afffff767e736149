// Package checkpoint implements §4.6 of the spec: a crash-recoverable,
// self-describing, atomically-replaced snapshot of the current hourly row,
// written after every state-affecting mutation.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/money"
)

// Store owns the checkpoint-<HH>.dat file alongside the program.
type Store struct {
	dir         string
	currentHour int
	haveFile    bool
}

// New returns a Store rooted at dir; the directory is created on the first
// Save if absent.
func New(dir string) *Store {
	return &Store{dir: dir, currentHour: -1}
}

// fileFor returns the path for hour h.
func (s *Store) fileFor(h int) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint-%02d.dat", h))
}

// document is the self-describing, field-name-preserving wire format: plain
// JSON, so a future field addition/removal degrades gracefully instead of
// corrupting the whole file.
type document struct {
	Hour             int            `json:"hour"`
	TotalTakings     money.Amount   `json:"total_takings"`
	Cash             money.Amount   `json:"cash"`
	CreditCards      money.Amount   `json:"credit_cards"`
	PLU              []money.Amount `json:"plu"`
	CustomerCount    int            `json:"customer_count"`
	FirstTransaction string         `json:"first_transaction"`
	LastTransaction  string         `json:"last_transaction"`
	NoSale           int            `json:"no_sale"`
}

// Save writes row to checkpoint-<HH>.dat via write-to-temp then rename, so a
// crash mid-write never leaves a corrupt checkpoint behind. A write failure
// is logged and otherwise swallowed, per §4.6/§7's transient-I/O handling:
// it must never abort the ingestion pipeline.
func (s *Store) Save(row *aggregator.Row) {
	if row.Empty() {
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		log.Warn("checkpoint: mkdir failed", "dir", s.dir, "err", err)
		return
	}

	doc := document{
		Hour:             row.Hour,
		TotalTakings:     row.TotalTakings,
		Cash:             row.Cash,
		CreditCards:      row.CreditCards,
		PLU:              append([]money.Amount(nil), row.PLU...),
		CustomerCount:    row.CustomerCount,
		FirstTransaction: row.FirstTransaction,
		LastTransaction:  row.LastTransaction,
		NoSale:           row.NoSale,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		log.Warn("checkpoint: marshal failed", "err", err)
		return
	}

	target := s.fileFor(row.Hour)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warn("checkpoint: write failed", "file", tmp, "err", err)
		return
	}
	if err := os.Rename(tmp, target); err != nil {
		log.Warn("checkpoint: rename failed", "file", target, "err", err)
		return
	}
	s.currentHour = row.Hour
	s.haveFile = true
}

// Delete removes the currently tracked checkpoint file, if any. Implements
// aggregator.CheckpointStore.
func (s *Store) Delete() error {
	if !s.haveFile {
		return nil
	}
	err := os.Remove(s.fileFor(s.currentHour))
	s.haveFile = false
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: delete: %w", err)
	}
	return nil
}

// LoadIfCurrentHour loads checkpoint-<HH>.dat on startup when HH equals the
// process's current clock hour, per §4.6. Any other stale checkpoint files
// found in dir are deleted. Returns ok=false if no usable checkpoint exists.
func (s *Store) LoadIfCurrentHour(currentHour int) (row *aggregator.Row, ok bool, nPLU int) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, false, 0
	}

	var loaded *document
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "checkpoint-") || !strings.HasSuffix(name, ".dat") {
			continue
		}
		hourStr := strings.TrimSuffix(strings.TrimPrefix(name, "checkpoint-"), ".dat")
		h, err := strconv.Atoi(hourStr)
		if err != nil {
			continue
		}
		path := filepath.Join(s.dir, name)
		if h != currentHour {
			if err := os.Remove(path); err != nil {
				log.Warn("checkpoint: failed to remove stale checkpoint", "file", path, "err", err)
			}
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("checkpoint: failed to read", "file", path, "err", err)
			continue
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Warn("checkpoint: failed to parse, discarding", "file", path, "err", err)
			if rmErr := os.Remove(path); rmErr != nil {
				log.Warn("checkpoint: failed to remove corrupt checkpoint", "file", path, "err", rmErr)
			}
			continue
		}
		loaded = &doc
		s.currentHour = h
		s.haveFile = true
	}

	if loaded == nil {
		return nil, false, 0
	}

	r := &aggregator.Row{
		Hour:             loaded.Hour,
		TotalTakings:     loaded.TotalTakings,
		Cash:             loaded.Cash,
		CreditCards:      loaded.CreditCards,
		PLU:              loaded.PLU,
		CustomerCount:    loaded.CustomerCount,
		FirstTransaction: loaded.FirstTransaction,
		LastTransaction:  loaded.LastTransaction,
		NoSale:           loaded.NoSale,
	}
	r.MarkBound()
	return r, true, len(loaded.PLU)
}
