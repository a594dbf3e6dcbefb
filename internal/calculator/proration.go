// Package calculator computes pro-rated monthly bills from member activity.
// It never performs I/O and never reads the clock; callers pass the as-of instant.
package calculator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/util"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var ErrNegativeFee = errors.New("monthly fee cannot be negative")

// Options controls a single month calculation
type Options struct {
	Year       int
	Month      int
	MonthlyFee decimal.Decimal
	// AsOf is the business-local instant of a live calculation. Zero means the whole month is billed.
	// An AsOf outside the target month also bills the whole month.
	AsOf time.Time
}

// Result is the outcome of pro-rating one gym's members over one month
type Result struct {
	Year            int
	Month           int
	MonthStart      time.Time
	MonthEnd        time.Time
	CalculationEnd  time.Time
	DaysInMonth     int
	IsLive          bool
	MemberBills     []domain.MemberBill
	Breakdown       []domain.MembershipBreakdown
	TotalMembers    int
	TotalBillAmount decimal.Decimal
}

// IsEmpty reports whether no member contributed to the bill
func (r *Result) IsEmpty() bool {
	return len(r.MemberBills) == 0
}

// CalculateMonth pro-rates every member that overlaps the month.
// Each member is charged fee * daysActive / daysInMonth, rounded to 2 places.
func CalculateMonth(members []*domain.Member, opts Options) (*Result, error) {
	if opts.Month < 1 || opts.Month > 12 || opts.Year < domain.MinBillingYear || opts.Year > domain.MaxBillingYear {
		return nil, fmt.Errorf("%w: %d-%02d", domain.ErrInvalidBillingPeriod, opts.Year, opts.Month)
	}
	if opts.MonthlyFee.IsNegative() {
		return nil, ErrNegativeFee
	}

	monthStart, monthEnd := util.MonthBoundaries(opts.Year, opts.Month)
	daysInMonth := util.DaysInMonth(opts.Year, opts.Month)

	calculationEnd := monthEnd
	isLive := false
	if !opts.AsOf.IsZero() && util.IsSameMonth(opts.AsOf, opts.Year, opts.Month) {
		calculationEnd = util.DateOnly(opts.AsOf)
		isLive = true
	}

	result := &Result{
		Year:            opts.Year,
		Month:           opts.Month,
		MonthStart:      monthStart,
		MonthEnd:        monthEnd,
		CalculationEnd:  calculationEnd,
		DaysInMonth:     daysInMonth,
		IsLive:          isLive,
		MemberBills:     []domain.MemberBill{},
		Breakdown:       []domain.MembershipBreakdown{},
		TotalBillAmount: decimal.Zero,
	}

	dim := decimal.NewFromInt(int64(daysInMonth))
	for _, m := range members {
		if !overlapsMonth(m, monthStart, monthEnd) {
			continue
		}

		activeStart := maxDate(util.DateOnly(*m.MembershipStartDate), monthStart)
		activeEnd := calculationEnd
		if m.MembershipEndDate != nil {
			activeEnd = minDate(util.DateOnly(*m.MembershipEndDate), calculationEnd)
		}
		if activeStart.After(activeEnd) {
			// Starts after the calculation end or ended before the month began
			continue
		}

		days := int(activeEnd.Sub(activeStart).Hours()/24) + 1
		if days > daysInMonth {
			days = daysInMonth
		}

		amount := opts.MonthlyFee.Mul(decimal.NewFromInt(int64(days))).Div(dim).Round(2)

		result.MemberBills = append(result.MemberBills, domain.MemberBill{
			MemberID:           m.ID,
			MemberName:         m.Name,
			MemberEmail:        m.Email,
			MemberPhone:        m.Phone,
			MembershipType:     m.MembershipType,
			ActiveFrom:         activeStart,
			ActiveTo:           activeEnd,
			DaysActive:         days,
			DaysInMonth:        daysInMonth,
			OriginalMonthlyFee: opts.MonthlyFee,
			ProRatedAmount:     amount,
		})
		result.TotalBillAmount = result.TotalBillAmount.Add(amount)
	}

	result.TotalMembers = len(result.MemberBills)
	result.Breakdown = breakdownByType(result.MemberBills)

	return result, nil
}

// overlapsMonth applies the member selection filter. A member without a start date is never billed.
func overlapsMonth(m *domain.Member, monthStart, monthEnd time.Time) bool {
	if m.MembershipStartDate == nil {
		return false
	}
	start := util.DateOnly(*m.MembershipStartDate)
	var end *time.Time
	if m.MembershipEndDate != nil {
		e := util.DateOnly(*m.MembershipEndDate)
		end = &e
	}

	startsByMonthEnd := !start.After(monthEnd)
	spansMonth := startsByMonthEnd && (end == nil || !end.Before(monthStart))
	startsInMonth := !start.Before(monthStart) && startsByMonthEnd
	openEnded := startsByMonthEnd && end == nil

	return spansMonth || startsInMonth || openEnded
}

func breakdownByType(bills []domain.MemberBill) []domain.MembershipBreakdown {
	grouped := lo.GroupBy(bills, func(b domain.MemberBill) domain.MembershipType {
		return b.MembershipType
	})

	types := lo.Keys(grouped)
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	breakdown := make([]domain.MembershipBreakdown, 0, len(types))
	for _, t := range types {
		total := decimal.Zero
		for _, b := range grouped[t] {
			total = total.Add(b.ProRatedAmount)
		}
		breakdown = append(breakdown, domain.MembershipBreakdown{
			MembershipType: t,
			MemberCount:    len(grouped[t]),
			TotalAmount:    total,
			PaidAmount:     decimal.Zero,
			PendingAmount:  total,
		})
	}
	return breakdown
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
