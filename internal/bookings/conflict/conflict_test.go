package conflict

import (
	"testing"
	"time"
)

var day = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func interval(startHour, startMin, endHour, endMin int) Interval {
	return Interval{Start: at(startHour, startMin), End: at(endHour, endMin)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		existing Interval
		proposed Interval
		want     bool
	}{
		{
			name:     "identical bounds",
			existing: interval(10, 0, 11, 0),
			proposed: interval(10, 0, 11, 0),
			want:     true,
		},
		{
			name:     "existing running when proposed begins",
			existing: interval(10, 0, 11, 0),
			proposed: interval(10, 30, 11, 30),
			want:     true,
		},
		{
			name:     "existing still running when proposed ends",
			existing: interval(10, 30, 11, 30),
			proposed: interval(10, 0, 11, 0),
			want:     true,
		},
		{
			name:     "existing fully inside proposed",
			existing: interval(10, 15, 10, 45),
			proposed: interval(10, 0, 11, 0),
			want:     true,
		},
		{
			name:     "proposed fully inside existing",
			existing: interval(9, 0, 12, 0),
			proposed: interval(10, 0, 11, 0),
			want:     true,
		},
		{
			name:     "back to back, existing ends at proposed start",
			existing: interval(10, 0, 11, 0),
			proposed: interval(11, 0, 12, 0),
			want:     false,
		},
		{
			name:     "back to back, existing starts at proposed end",
			existing: interval(10, 0, 11, 0),
			proposed: interval(9, 0, 10, 0),
			want:     false,
		},
		{
			name:     "fully before",
			existing: interval(8, 0, 9, 0),
			proposed: interval(10, 0, 11, 0),
			want:     false,
		},
		{
			name:     "fully after",
			existing: interval(12, 0, 13, 0),
			proposed: interval(10, 0, 11, 0),
			want:     false,
		},
		{
			name:     "same start, existing shorter",
			existing: interval(10, 0, 10, 30),
			proposed: interval(10, 0, 11, 0),
			want:     true,
		},
		{
			name:     "same end, existing longer",
			existing: interval(9, 30, 11, 0),
			proposed: interval(10, 0, 11, 0),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.existing, tt.proposed); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.existing, tt.proposed, got, tt.want)
			}
		})
	}
}

func TestAnyOverlap_EmptySet(t *testing.T) {
	if AnyOverlap(nil, interval(10, 0, 11, 0)) {
		t.Error("expected false for empty existing set")
	}
	if AnyOverlap([]Interval{}, interval(10, 0, 11, 0)) {
		t.Error("expected false for empty existing set")
	}
}

func TestAnyOverlap_Existential(t *testing.T) {
	existing := []Interval{
		interval(8, 0, 9, 0),
		interval(12, 0, 13, 0),
	}
	proposed := interval(10, 0, 11, 0)

	if AnyOverlap(existing, proposed) {
		t.Error("expected no overlap when every member is disjoint")
	}

	existing = append(existing, interval(10, 30, 10, 45))
	if !AnyOverlap(existing, proposed) {
		t.Error("expected overlap when at least one member collides")
	}
}

func TestAnyOverlap_AdjacentChain(t *testing.T) {
	// A full day of back-to-back slots never conflicts with the next one.
	existing := []Interval{
		interval(9, 0, 10, 0),
		interval(10, 0, 11, 0),
		interval(11, 0, 12, 0),
	}

	if AnyOverlap(existing, interval(12, 0, 13, 0)) {
		t.Error("expected adjacent slot after the chain to be free")
	}
	if AnyOverlap(existing, interval(8, 0, 9, 0)) {
		t.Error("expected adjacent slot before the chain to be free")
	}
	if !AnyOverlap(existing, interval(11, 59, 13, 0)) {
		t.Error("expected one-minute intrusion into the chain to conflict")
	}
}
