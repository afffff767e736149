// Package catalog loads the PLU (Price Look-Up) catalog: an ordered set of
// canonical product-category names that determines the left-to-right column
// order of PLU totals in every emitted hourly row.
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/VictoriaMetrics/fastcache"
)

// Catalog is an insertion-ordered set of PLU names with a fast membership
// index. Order is significant (§3 of the spec); membership is tested on the
// title-cased key, per the "case-normalized names" rule.
//
// The membership index is backed by fastcache rather than a bare map: the
// catalog is read-heavy (one lookup per transaction line, for the life of
// the process) and written exactly once at startup, which is the shape
// fastcache is built for elsewhere in the teacher's dependency graph.
type Catalog struct {
	names     []string
	positions map[string]int
	index     *fastcache.Cache
}

// Load reads a newline-delimited PLU list. Blank lines are ignored; file
// order is preserved.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	c := &Catalog{index: fastcache.New(32 * 1024), positions: make(map[string]int)}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name := Normalize(line)
		if c.index.Has([]byte(name)) {
			continue
		}
		c.positions[name] = len(c.names)
		c.names = append(c.names, name)
		c.index.Set([]byte(name), []byte{1})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if len(c.names) == 0 {
		return nil, fmt.Errorf("catalog: %s contains no PLU names", path)
	}
	return c, nil
}

// Normalize title-cases a raw PLU key the way the dispatcher and transaction
// parser must before testing catalog membership.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	fields := strings.Fields(strings.ToLower(raw))
	for i, f := range fields {
		r := []rune(f)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// Contains reports whether name (after Normalize) is a catalog member.
func (c *Catalog) Contains(name string) bool {
	return c.index.Has([]byte(Normalize(name)))
}

// Names returns the catalog in file (column) order. The returned slice must
// not be mutated by callers.
func (c *Catalog) Names() []string {
	return c.names
}

// Index returns the column position of name, or -1 if name is not a member.
func (c *Catalog) Index(name string) int {
	if i, ok := c.positions[Normalize(name)]; ok {
		return i
	}
	return -1
}

// Len returns the number of PLU columns.
func (c *Catalog) Len() int { return len(c.names) }

// FromNames builds a Catalog directly from an ordered list, skipping the
// file round-trip. Used by tests and by callers that already hold the list
// in memory.
func FromNames(names []string) *Catalog {
	c := &Catalog{index: fastcache.New(32 * 1024), positions: make(map[string]int)}
	for _, raw := range names {
		name := Normalize(raw)
		if name == "" || c.index.Has([]byte(name)) {
			continue
		}
		c.positions[name] = len(c.names)
		c.names = append(c.names, name)
		c.index.Set([]byte(name), []byte{1})
	}
	return c
}
