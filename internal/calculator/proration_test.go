package calculator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fee = decimal.NewFromInt(500)

func date(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func member(name string, typ domain.MembershipType, start, end *time.Time) *domain.Member {
	return &domain.Member{
		ID:                  uuid.New(),
		GymID:               uuid.New(),
		Name:                name,
		MembershipType:      typ,
		MembershipStartDate: start,
		MembershipEndDate:   end,
	}
}

func TestCalculateMonth_FullMonthChargesFullFee(t *testing.T) {
	members := []*domain.Member{
		member("Asha", domain.MembershipTypeMonthly, date(2026, 1, 10), nil),
	}

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 3, MonthlyFee: fee})

	require.NoError(t, err)
	require.Len(t, result.MemberBills, 1)
	assert.Equal(t, 31, result.MemberBills[0].DaysActive)
	assert.Equal(t, "500.00", result.MemberBills[0].ProRatedAmount.StringFixed(2))
	assert.Equal(t, "500.00", result.TotalBillAmount.StringFixed(2))
	assert.False(t, result.IsLive)
}

func TestCalculateMonth_StartOn30thOf31DayMonth(t *testing.T) {
	members := []*domain.Member{
		member("Ravi", domain.MembershipTypeMonthly, date(2026, 1, 30), nil),
	}

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 1, MonthlyFee: fee})

	require.NoError(t, err)
	require.Len(t, result.MemberBills, 1)
	bill := result.MemberBills[0]
	assert.Equal(t, 2, bill.DaysActive)
	assert.Equal(t, 31, bill.DaysInMonth)
	// 500 * 2 / 31 = 32.258...
	assert.Equal(t, "32.26", bill.ProRatedAmount.StringFixed(2))
}

func TestCalculateMonth_EndOn5th(t *testing.T) {
	members := []*domain.Member{
		member("Meera", domain.MembershipTypeQuarterly, date(2025, 11, 1), date(2026, 4, 5)),
	}

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 4, MonthlyFee: fee})

	require.NoError(t, err)
	require.Len(t, result.MemberBills, 1)
	assert.Equal(t, 5, result.MemberBills[0].DaysActive)
	// 500 * 5 / 30 = 83.333...
	assert.Equal(t, "83.33", result.MemberBills[0].ProRatedAmount.StringFixed(2))
	assert.True(t, result.MemberBills[0].ActiveTo.Equal(*date(2026, 4, 5)))
}

func TestCalculateMonth_ExcludesNonOverlappingMembers(t *testing.T) {
	members := []*domain.Member{
		member("ended-before", domain.MembershipTypeMonthly, date(2025, 1, 1), date(2026, 2, 28)),
		member("starts-after", domain.MembershipTypeMonthly, date(2026, 4, 1), nil),
		member("no-start", domain.MembershipTypeMonthly, nil, nil),
		member("in-month", domain.MembershipTypeMonthly, date(2026, 3, 1), date(2026, 3, 31)),
	}

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 3, MonthlyFee: fee})

	require.NoError(t, err)
	require.Len(t, result.MemberBills, 1)
	assert.Equal(t, "in-month", result.MemberBills[0].MemberName)
	assert.Equal(t, 1, result.TotalMembers)
}

func TestCalculateMonth_SingleDayMembership(t *testing.T) {
	members := []*domain.Member{
		member("one-day", domain.MembershipTypeMonthly, date(2026, 3, 31), date(2026, 3, 31)),
	}

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 3, MonthlyFee: fee})

	require.NoError(t, err)
	require.Len(t, result.MemberBills, 1)
	assert.Equal(t, 1, result.MemberBills[0].DaysActive)
	assert.Equal(t, "16.13", result.MemberBills[0].ProRatedAmount.StringFixed(2))
}

func TestCalculateMonth_LiveModeStopsAtAsOf(t *testing.T) {
	members := []*domain.Member{
		member("ongoing", domain.MembershipTypeMonthly, date(2026, 1, 1), nil),
		member("starts-later", domain.MembershipTypeYearly, date(2026, 10, 20), nil),
	}
	asOf := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 10, MonthlyFee: fee, AsOf: asOf})

	require.NoError(t, err)
	assert.True(t, result.IsLive)
	assert.True(t, result.CalculationEnd.Equal(*date(2026, 10, 15)))
	require.Len(t, result.MemberBills, 1, "member starting after as-of contributes nothing")
	assert.Equal(t, 15, result.MemberBills[0].DaysActive)
	// 500 * 15 / 31 = 241.935...
	assert.Equal(t, "241.94", result.TotalBillAmount.StringFixed(2))
}

func TestCalculateMonth_LiveModeIsStableForSameAsOf(t *testing.T) {
	members := []*domain.Member{
		member("a", domain.MembershipTypeMonthly, date(2026, 10, 3), nil),
		member("b", domain.MembershipTypePersonalTraining, date(2026, 9, 1), date(2026, 10, 10)),
	}
	opts := Options{Year: 2026, Month: 10, MonthlyFee: fee, AsOf: time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)}

	first, err := CalculateMonth(members, opts)
	require.NoError(t, err)
	second, err := CalculateMonth(members, opts)
	require.NoError(t, err)

	assert.True(t, first.TotalBillAmount.Equal(second.TotalBillAmount))
	assert.Equal(t, first.MemberBills, second.MemberBills)
}

func TestCalculateMonth_AsOfOutsideMonthBillsWholeMonth(t *testing.T) {
	members := []*domain.Member{
		member("a", domain.MembershipTypeMonthly, date(2026, 1, 1), nil),
	}

	result, err := CalculateMonth(members, Options{
		Year: 2026, Month: 2, MonthlyFee: fee,
		AsOf: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.False(t, result.IsLive)
	assert.Equal(t, 28, result.MemberBills[0].DaysActive)
}

func TestCalculateMonth_BreakdownGroupsByType(t *testing.T) {
	members := []*domain.Member{
		member("y1", domain.MembershipTypeYearly, date(2025, 1, 1), nil),
		member("m1", domain.MembershipTypeMonthly, date(2025, 1, 1), nil),
		member("m2", domain.MembershipTypeMonthly, date(2026, 6, 16), nil),
	}

	result, err := CalculateMonth(members, Options{Year: 2026, Month: 6, MonthlyFee: fee})

	require.NoError(t, err)
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, domain.MembershipTypeMonthly, result.Breakdown[0].MembershipType)
	assert.Equal(t, 2, result.Breakdown[0].MemberCount)
	// 500 + 500*15/30
	assert.Equal(t, "750.00", result.Breakdown[0].TotalAmount.StringFixed(2))
	assert.True(t, result.Breakdown[0].PaidAmount.IsZero())
	assert.True(t, result.Breakdown[0].PendingAmount.Equal(result.Breakdown[0].TotalAmount))
	assert.Equal(t, domain.MembershipTypeYearly, result.Breakdown[1].MembershipType)
	assert.Equal(t, "1250.00", result.TotalBillAmount.StringFixed(2))
}

func TestCalculateMonth_EmptyInput(t *testing.T) {
	result, err := CalculateMonth(nil, Options{Year: 2026, Month: 2, MonthlyFee: fee})

	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.True(t, result.TotalBillAmount.IsZero())
	assert.Empty(t, result.Breakdown)
}

func TestCalculateMonth_InvalidPeriod(t *testing.T) {
	_, err := CalculateMonth(nil, Options{Year: 2026, Month: 13, MonthlyFee: fee})
	assert.ErrorIs(t, err, domain.ErrInvalidBillingPeriod)

	_, err = CalculateMonth(nil, Options{Year: 1999, Month: 1, MonthlyFee: fee})
	assert.ErrorIs(t, err, domain.ErrInvalidBillingPeriod)
}

func TestCalculateMonth_NegativeFee(t *testing.T) {
	_, err := CalculateMonth(nil, Options{Year: 2026, Month: 1, MonthlyFee: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrNegativeFee)
}
