package util

import (
	"fmt"
	"time"

	"github.com/gymcrm/gymcrm-backend/internal/domain"
)

// PreviousMonth returns the year and month for the previous month
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// DateOnly truncates t to midnight UTC of its own calendar date.
// The wall-clock date of t's location is kept, so convert to the business timezone first.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthBoundaries returns the first and last day of a month as date-only values
func MonthBoundaries(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// DaysInMonth returns the number of calendar days in a month
func DaysInMonth(year, month int) int {
	// Day 0 of next month is the last day of this month
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsSameMonth reports whether t falls in the given year and month
func IsSameMonth(t time.Time, year, month int) bool {
	return t.Year() == year && int(t.Month()) == month
}

// IsHistoricalMonth returns true if the given year/month is before the month of asOf
func IsHistoricalMonth(year, month int, asOf time.Time) bool {
	return compareMonth(year, month, asOf.Year(), int(asOf.Month())) < 0
}

// IsFutureMonth returns true if the given year/month is after the month of asOf
func IsFutureMonth(year, month int, asOf time.Time) bool {
	return compareMonth(year, month, asOf.Year(), int(asOf.Month())) > 0
}

// MonthName formats a month for display, e.g. "October 2026"
func MonthName(year, month int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

// MonthsBack returns the n months preceding year/month, newest first
func MonthsBack(year, month, n int) []domain.BillingPeriod {
	months := make([]domain.BillingPeriod, 0, n)
	y, m := year, month
	for i := 0; i < n; i++ {
		y, m = PreviousMonth(y, m)
		months = append(months, domain.BillingPeriod{Year: y, Month: m})
	}
	return months
}

func compareMonth(y1, m1, y2, m2 int) int {
	if y1 != y2 {
		return y1 - y2
	}
	return m1 - m2
}
