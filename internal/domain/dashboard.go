package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpiringSoonDays is the look-ahead window for the expiring members count
const ExpiringSoonDays = 7

// TypeCount is the number of members on one membership type
type TypeCount struct {
	MembershipType MembershipType `json:"membershipType"`
	Count          int            `json:"count"`
}

// CurrentBillSnapshot is the live running bill shown on the dashboard
type CurrentBillSnapshot struct {
	Year              int             `json:"year"`
	Month             int             `json:"month"`
	BilledMembers     int             `json:"billedMembers"`
	TotalBillAmount   decimal.Decimal `json:"totalBillAmount"`
	CalculatedThrough time.Time       `json:"calculatedThrough"`
}

// DashboardSummary contains the main dashboard metrics of a gym
type DashboardSummary struct {
	GymID            string               `json:"gymId"`
	TotalMembers     int                  `json:"totalMembers"`
	ActiveMembers    int                  `json:"activeMembers"`
	ExpiredMembers   int                  `json:"expiredMembers"`
	ExpiringSoon     int                  `json:"expiringSoon"`
	NewThisMonth     int                  `json:"newThisMonth"`
	ByMembershipType []TypeCount          `json:"byMembershipType"`
	CurrentBill      *CurrentBillSnapshot `json:"currentBill"`
	GeneratedAt      time.Time            `json:"generatedAt"`
}
