package dispatch

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		chunk string
		want  Kind
	}{
		{"10/03/2024 09:05:12", KindHeader420},
		{"REGISTER MODE", KindHeader520},
		{"CLERK 01", KindFooter},
		{"Z REPORT", KindReport},
		{"CANCEL", KindCancel},
		{"REPRINT", KindReprint},
		{"PAID OUT £5.00", KindRefund},
		{"NOSALE", KindNoSale},
		{"NS", KindNoSale},
		{"DIAG=1", KindDiagnostic},
		{"Coffee        £2.50", KindTransactionLine},
		{"TOTAL         £2.50", KindTransactionLine},
	}
	for _, c := range cases {
		if got := Classify(c.chunk); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.chunk, got, c.want)
		}
	}
}

func TestOrderSensitivity(t *testing.T) {
	// A line containing both CANCEL and REPRINT text must hit Cancel first,
	// since it is earlier in the table.
	if got := Classify("CANCEL REPRINT"); got != KindCancel {
		t.Errorf("got %v, want KindCancel", got)
	}
}
