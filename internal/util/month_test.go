package util

import (
	"testing"
	"time"
)

func TestPreviousMonth_SameYear(t *testing.T) {
	tests := []struct {
		year      int
		month     int
		wantYear  int
		wantMonth int
	}{
		{2026, 6, 2026, 5},   // June -> May
		{2026, 12, 2026, 11}, // Dec -> Nov
		{2026, 2, 2026, 1},   // Feb -> Jan
	}

	for _, tt := range tests {
		gotYear, gotMonth := PreviousMonth(tt.year, tt.month)
		if gotYear != tt.wantYear || gotMonth != tt.wantMonth {
			t.Errorf("PreviousMonth(%d, %d) = (%d, %d), want (%d, %d)",
				tt.year, tt.month, gotYear, gotMonth, tt.wantYear, tt.wantMonth)
		}
	}
}

func TestPreviousMonth_YearBoundary(t *testing.T) {
	// January -> December of previous year
	gotYear, gotMonth := PreviousMonth(2026, 1)
	if gotYear != 2025 || gotMonth != 12 {
		t.Errorf("PreviousMonth(2026, 1) = (%d, %d), want (2025, 12)", gotYear, gotMonth)
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2026, 1, 31},
		{2026, 2, 28},
		{2024, 2, 29},
		{2026, 4, 30},
		{2026, 12, 31},
	}

	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestMonthBoundaries(t *testing.T) {
	start, end := MonthBoundaries(2024, 2)

	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, want 2024-02-01", start)
	}
	if !end.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v, want 2024-02-29", end)
	}
}

func TestDateOnly_KeepsWallClockDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 00:30 IST on the 1st is still the 31st in UTC
	in := time.Date(2026, 10, 1, 0, 30, 0, 0, ist)

	got := DateOnly(in)
	want := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly(%v) = %v, want %v", in, got, want)
	}
}

func TestIsHistoricalMonth(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		year     int
		month    int
		expected bool
	}{
		{"current month is not historical", 2026, 3, false},
		{"previous month is historical", 2026, 2, true},
		{"previous year same month is historical", 2025, 3, true},
		{"previous year december is historical", 2025, 12, true},
		{"future month is not historical", 2026, 4, false},
		{"next year is not historical", 2027, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsHistoricalMonth(tt.year, tt.month, asOf)
			if got != tt.expected {
				t.Errorf("IsHistoricalMonth(%d, %d) = %v, want %v",
					tt.year, tt.month, got, tt.expected)
			}
		})
	}
}

func TestIsFutureMonth(t *testing.T) {
	asOf := time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)

	if IsFutureMonth(2026, 12, asOf) {
		t.Error("current month reported as future")
	}
	if !IsFutureMonth(2027, 1, asOf) {
		t.Error("January of next year should be future")
	}
	if IsFutureMonth(2026, 11, asOf) {
		t.Error("past month reported as future")
	}
}

func TestMonthName(t *testing.T) {
	if got := MonthName(2026, 10); got != "October 2026" {
		t.Errorf("MonthName(2026, 10) = %q, want %q", got, "October 2026")
	}
}

func TestMonthsBack_CrossesYear(t *testing.T) {
	got := MonthsBack(2026, 2, 3)

	if len(got) != 3 {
		t.Fatalf("expected 3 months, got %d", len(got))
	}
	want := [][2]int{{2026, 1}, {2025, 12}, {2025, 11}}
	for i, p := range got {
		if p.Year != want[i][0] || p.Month != want[i][1] {
			t.Errorf("MonthsBack[%d] = %d-%02d, want %d-%02d", i, p.Year, p.Month, want[i][0], want[i][1])
		}
	}
}
