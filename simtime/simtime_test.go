package simtime

import "testing"

func TestAddSaturates(t *testing.T) {
	got := Max.Add(1)
	if got != Max {
		t.Errorf("Max.Add(1) = %d, want %d", got, Max)
	}
}

func TestAddNegativeFloorsAtZero(t *testing.T) {
	got := SimulationTime(5).Add(-10)
	if got != Zero {
		t.Errorf("5.Add(-10) = %d, want 0", got)
	}
}

func TestSubFloorsAtZero(t *testing.T) {
	got := SimulationTime(5).Sub(10)
	if got != Zero {
		t.Errorf("5.Sub(10) = %d, want 0", got)
	}
}

func TestBefore(t *testing.T) {
	if !SimulationTime(1).Before(SimulationTime(2)) {
		t.Errorf("expected 1 before 2")
	}
	if SimulationTime(2).Before(SimulationTime(2)) {
		t.Errorf("expected 2 not before 2")
	}
}

func TestFromSecondsRoundTrip(t *testing.T) {
	st := FromSeconds(0.000050) // 50us
	want := SimulationTime(50000)
	if st != want {
		t.Errorf("FromSeconds(0.00005) = %d, want %d", st, want)
	}
	if st.Seconds() != 0.00005 {
		t.Errorf("Seconds() round trip = %v, want 0.00005", st.Seconds())
	}
}

func TestFromSecondsClampsNegative(t *testing.T) {
	if FromSeconds(-1) != Zero {
		t.Errorf("expected negative seconds to clamp to Zero")
	}
}
