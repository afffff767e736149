package engine

import (
	"regexp"
	"strconv"
)

// headerTime420 extracts "d{1,2}/dd/yyyy HH:MM[:SS]" from a 420 header
// chunk, per §4.2/§4.3.
var headerTime420 = regexp.MustCompile(`^\d{1,2}/\d\d/\d{4}\s+(\d{1,2}):(\d{2})`)

// parse420HeaderTime returns the "HH:MM" wall-clock string and the integer
// hour encoded in a 420 header chunk. ok is false if the chunk does not
// carry a recognizable timestamp.
func parse420HeaderTime(chunk string) (hhmm string, hour int, ok bool) {
	m := headerTime420.FindStringSubmatch(chunk)
	if m == nil {
		return "", 0, false
	}
	h, err := strconv.Atoi(m[1])
	if err != nil || h < 0 || h > 23 {
		return "", 0, false
	}
	return zeroPad(h) + ":" + m[2], h, true
}

func zeroPad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
