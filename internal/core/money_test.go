package core

import "testing"

func TestParseAmountToMiliunits(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1000, true},
		{"1.0", 1000, true},
		{"12.345", 12345, true},
		{"12.3456", 12346, true}, // half-up rounding, not truncation
		{"0", 0, true},
		{"-4.50", -4500, true},
		{"-0.001", -1, true},
		{" 2.50 ", 2500, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"  ", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmountToMiliunits(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMiliunitsRoundTrip(t *testing.T) {
	// toStorage(fromStorage(x)) == x for integer storage values
	for _, x := range []int64{0, 1, -1, 999, 1000, -12345, 123456789} {
		if got := ToMiliunits(FromMiliunits(x)); got != x {
			t.Errorf("round trip %d: got %d", x, got)
		}
	}

	// fromStorage(toStorage(y)) keeps the 2-decimal display value
	for _, y := range []float64{0, 12.34, -0.01, 99.99, 1234.56} {
		if got := FromMiliunits(ToMiliunits(y)); got != y {
			t.Errorf("display round trip %v: got %v", y, got)
		}
	}
}

func TestMoneySign(t *testing.T) {
	if !(Money{Miliunits: -100}).IsExpense() {
		t.Error("negative amount should be an expense")
	}
	if (Money{Miliunits: 0}).IsExpense() {
		t.Error("zero amount is income, not expense")
	}
	if got := (Money{Miliunits: -2500}).Abs(); got != 2500 {
		t.Errorf("Abs() = %d, want 2500", got)
	}
}
