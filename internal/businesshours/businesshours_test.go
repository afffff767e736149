package businesshours

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2024, 3, 10, hour, 0, 0, 0, time.UTC)
}

func TestIsOpenNonWrappingWindow(t *testing.T) {
	g := New(7, 23)
	cases := map[int]bool{6: false, 7: true, 12: true, 22: true, 23: false, 0: false}
	for hour, want := range cases {
		if got := g.IsOpen(at(hour)); got != want {
			t.Errorf("IsOpen(%02d:00) = %v, want %v", hour, got, want)
		}
	}
}

func TestIsOpenWrappingWindow(t *testing.T) {
	g := New(20, 4)
	cases := map[int]bool{19: false, 20: true, 23: true, 0: true, 3: true, 4: false, 12: false}
	for hour, want := range cases {
		if got := g.IsOpen(at(hour)); got != want {
			t.Errorf("IsOpen(%02d:00) = %v, want %v", hour, got, want)
		}
	}
}

func TestIsOpenEqualBoundsTreatedAsFullyWrapped(t *testing.T) {
	g := New(9, 9)
	for hour := 0; hour < 24; hour++ {
		if !g.IsOpen(at(hour)) {
			t.Errorf("IsOpen(%02d:00) = false, want true for equal open/close bounds", hour)
		}
	}
}
