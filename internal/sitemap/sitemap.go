// Package sitemap implements §6's site-identity collaborator: a CSV lookup
// of hostname-derived identity to the site ID used in output file names.
package sitemap

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
)

// Resolver maps a hostname to the site ID used in output file names, per
// §6's "site mapping (in)" interface.
type Resolver struct {
	byID map[string]string // id -> name, kept for diagnostics
	ids  map[string]bool
}

var singleDigit = regexp.MustCompile(`[0-9]`)

// Load reads shops.csv (columns: id,name) and returns a Resolver.
func Load(path string) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sitemap: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sitemap: parse %s: %w", path, err)
	}

	res := &Resolver{byID: make(map[string]string), ids: make(map[string]bool)}
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "id" {
			continue // header row
		}
		if len(rec) < 1 {
			continue
		}
		id := rec[0]
		name := ""
		if len(rec) > 1 {
			name = rec[1]
		}
		res.byID[id] = name
		res.ids[id] = true
	}
	if len(res.ids) == 0 {
		return nil, fmt.Errorf("sitemap: %s contains no site rows", path)
	}
	return res, nil
}

// ResolveSiteID maps a hostname to its site ID, per §6: if the hostname
// contains a single decimal digit, that digit is appended as "_<digit>" to
// the matched id to disambiguate multi-register sites. Unknown hostnames
// resolve to "UNKNOWN" rather than erroring, since the output pipeline must
// keep running even with a misconfigured or unrecognized host.
func (r *Resolver) ResolveSiteID(hostname string) string {
	base := r.matchBase(hostname)
	if base == "" {
		return "UNKNOWN"
	}
	digits := singleDigit.FindAllString(hostname, -1)
	if len(digits) == 1 {
		return base + "_" + digits[0]
	}
	return base
}

// matchBase finds the longest known id that is a substring of hostname.
func (r *Resolver) matchBase(hostname string) string {
	best := ""
	for id := range r.ids {
		if containsID(hostname, id) && len(id) > len(best) {
			best = id
		}
	}
	return best
}

func containsID(hostname, id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i+len(id) <= len(hostname); i++ {
		if hostname[i:i+len(id)] == id {
			return true
		}
	}
	return false
}
