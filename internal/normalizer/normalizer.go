// Package normalizer implements §4.1 of the spec: per-chunk byte scrubbing,
// dialect-specific rewrites, and synthesis of multi-event chunks into
// ordered sub-events. It never fails; malformed chunks fall through and are
// rejected downstream (the transaction parser discards lines it cannot split).
package normalizer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Dialect selects which ECR hardware generation produced the stream.
type Dialect int

const (
	Dialect420 Dialect = iota
	Dialect520
)

var quantityMarker = regexp.MustCompile(`\s[0-9]\s`)

// Normalizer turns raw chunks from the serial producer into canonical
// chunks for the Dispatcher. It owns the single-slot buffer used by the 520
// dialect's CASH/CHANGE split, per §5's ordering guarantee: the synthesized
// CHANGE sub-chunk is drained through Pending, which the Engine calls before
// any newly read chunk is processed.
type Normalizer struct {
	dialect       Dialect
	currency      string
	numericLit    *regexp.Regexp
	pendingChange string
	hasPending    bool
}

// New returns a Normalizer for the given dialect and currency symbol.
func New(dialect Dialect, currency string) *Normalizer {
	if currency == "" {
		currency = "£"
	}
	// Matches a bare d{1,2}.dd amount, optionally already currency-prefixed,
	// so the prepend step can skip literals that already carry a symbol
	// instead of double-prefixing them.
	lit := regexp.MustCompile(regexp.QuoteMeta(currency) + `?\d{1,2}\.\d\d`)
	return &Normalizer{dialect: dialect, currency: currency, numericLit: lit}
}

// Pending reports whether a synthetic sub-chunk is queued, and drains it if
// so. The caller (the Engine's main loop) must call Pending before reading a
// new chunk from the serial producer, so that a CASH-then-CHANGE pair from a
// single 520 read cycle is processed in order across two loop iterations.
func (n *Normalizer) Pending() (string, bool) {
	if !n.hasPending {
		return "", false
	}
	n.hasPending = false
	chunk := n.pendingChange
	n.pendingChange = ""
	return chunk, true
}

// Normalize applies the bit-exact scrubbing and dialect rewrites of §4.1 and
// returns the canonical chunks to feed the Dispatcher, in order. For
// dialect 420 this is always zero-or-one chunk. For 520, a single physical
// line may bundle an item, a tender, and a CASH/CHANGE pair into one raw
// read; Normalize tokenizes it into one sub-event per "Key £Value" segment
// (the "synthesis of multi-event chunks into ordered sub-events" duty from
// §2), then applies the CASH/CHANGE split: once a CASH token has been seen,
// a following CHANGE token (and anything after it) is deferred into the
// pending slot instead of being returned immediately.
func (n *Normalizer) Normalize(raw string) []string {
	s := scrub(raw, n.currency)

	if n.dialect == Dialect420 {
		if s == "" {
			return nil
		}
		return []string{s}
	}

	s = strings.ReplaceAll(s, "@", "")
	s = quantityMarker.ReplaceAllString(s, " ")
	s = n.numericLit.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, n.currency) {
			return m
		}
		return n.currency + m
	})
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	tokens := n.tokenize(s)
	if len(tokens) == 0 {
		return []string{s}
	}

	out := make([]string, 0, len(tokens))
	sawCash := false
	for i, tok := range tokens {
		upper := strings.ToUpper(tok)
		if sawCash && strings.Contains(upper, "CHANGE") {
			n.pendingChange = strings.Join(tokens[i:], " ")
			n.hasPending = true
			return out
		}
		if strings.Contains(upper, "CASH") {
			sawCash = true
		}
		out = append(out, tok)
	}
	return out
}

// amountLiteral matches the d{1,2}.dd amount immediately following a
// currency symbol.
var amountLiteral = regexp.MustCompile(`^\d{1,2}\.\d\d`)

// tokenize splits a currency-bearing 520 line into one "Key £Value" chunk
// per currency-symbol occurrence, preserving order. A line with no
// currency symbol at all yields no tokens, so the caller falls back to
// treating the whole line as a single chunk.
func (n *Normalizer) tokenize(s string) []string {
	var tokens []string
	for {
		idx := strings.Index(s, n.currency)
		if idx < 0 {
			break
		}
		key := strings.TrimSpace(s[:idx])
		rest := s[idx+len(n.currency):]
		amt := amountLiteral.FindString(rest)
		if amt == "" {
			break
		}
		tok := n.currency + amt
		if key != "" {
			tok = key + " " + tok
		}
		tokens = append(tokens, tok)
		s = rest[len(amt):]
	}
	return tokens
}

// scrub applies the dialect-independent byte rewrites: strip 0x00/0xC2,
// rewrite 0x9C and '?' to the currency symbol.
func scrub(raw, currency string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i, r := range raw {
		if r == utf8.RuneError && (raw[i] == 0xC2 || raw[i] == 0x9C) {
			// A lone 0xC2/0x9C byte is not valid UTF-8; match it by its raw value.
			r = rune(raw[i])
		}
		switch r {
		case 0x00, 0xC2:
			continue
		case 0x9C, '?':
			b.WriteString(currency)
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), "\r\n")
}
