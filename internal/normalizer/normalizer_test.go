package normalizer

import "testing"

func TestScrub420PassThrough(t *testing.T) {
	n := New(Dialect420, "£")
	got := n.Normalize("Coffee        £2.50\r\n")
	if len(got) != 1 || got[0] != "Coffee        £2.50" {
		t.Fatalf("got %q", got)
	}
}

func TestScrubBytesAndQuestionMark(t *testing.T) {
	n := New(Dialect420, "£")
	raw := string([]byte{'T', 'O', 'T', 'A', 'L', ' ', 0x00, '?', '2', '.', '5', '0', 0xC2})
	got := n.Normalize(raw)
	if len(got) != 1 || got[0] != "TOTAL £2.50" {
		t.Fatalf("got %q", got)
	}
}

func Test520CashChangeSplit(t *testing.T) {
	n := New(Dialect520, "£")
	got := n.Normalize("Coffee  £2.00  CASH  £5.00  CHANGE  £3.00")
	if len(got) != 2 {
		t.Fatalf("expected two immediate sub-events (item, CASH), got %v", got)
	}
	if got[0] != "Coffee £2.00" {
		t.Errorf("item chunk = %q", got[0])
	}
	if got[1] != "CASH £5.00" {
		t.Errorf("cash chunk = %q", got[1])
	}
	chunk, ok := n.Pending()
	if !ok {
		t.Fatalf("expected a pending CHANGE chunk")
	}
	if chunk != "CHANGE £3.00" {
		t.Errorf("pending chunk = %q", chunk)
	}
	if _, ok := n.Pending(); ok {
		t.Errorf("pending slot should drain to empty after one read")
	}
}

func Test520QuantityMarkerAndAtSign(t *testing.T) {
	n := New(Dialect520, "£")
	got := n.Normalize("@Bread 2 3.00")
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	if got[0] != "Bread £3.00" {
		t.Errorf("got %q", got[0])
	}
}

func Test520NoDoublePrefix(t *testing.T) {
	n := New(Dialect520, "£")
	got := n.Normalize("TOTAL £2.00")
	if len(got) != 1 || got[0] != "TOTAL £2.00" {
		t.Errorf("got %q", got)
	}
}
