package clock

import (
	"testing"
	"time"
)

func TestSameDay(t *testing.T) {
	loc := time.Local
	tests := []struct {
		name string
		a    time.Time
		b    time.Time
		want bool
	}{
		{
			name: "same instant",
			a:    time.Date(2025, 6, 10, 12, 0, 0, 0, loc),
			b:    time.Date(2025, 6, 10, 12, 0, 0, 0, loc),
			want: true,
		},
		{
			name: "same day different hours",
			a:    time.Date(2025, 6, 10, 0, 0, 1, 0, loc),
			b:    time.Date(2025, 6, 10, 23, 59, 59, 0, loc),
			want: true,
		},
		{
			name: "one minute across midnight",
			a:    time.Date(2025, 6, 10, 23, 59, 0, 0, loc),
			b:    time.Date(2025, 6, 11, 0, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "different months",
			a:    time.Date(2025, 5, 31, 12, 0, 0, 0, loc),
			b:    time.Date(2025, 6, 1, 12, 0, 0, 0, loc),
			want: false,
		},
		{
			name: "different years same month-day",
			a:    time.Date(2024, 6, 10, 12, 0, 0, 0, loc),
			b:    time.Date(2025, 6, 10, 12, 0, 0, 0, loc),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameDay(tt.a, tt.b); got != tt.want {
				t.Errorf("SameDay(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSameDayUsesFirstArgumentLocation(t *testing.T) {
	// 2025-06-10 23:30 UTC is already 2025-06-11 in UTC+2; comparison happens
	// in the first argument's zone.
	utcPlus2 := time.FixedZone("UTC+2", 2*60*60)
	a := time.Date(2025, 6, 11, 1, 30, 0, 0, utcPlus2)
	b := time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Errorf("expected %v and %v to share a calendar day in %v", a, b, utcPlus2)
	}
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	c := Fixed{T: at}
	if !c.Now().Equal(at) {
		t.Errorf("Fixed.Now() = %v, want %v", c.Now(), at)
	}
}
