package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MembershipType string

const (
	MembershipTypeMonthly          MembershipType = "monthly"
	MembershipTypeQuarterly        MembershipType = "quarterly"
	MembershipTypeHalfYearly       MembershipType = "half_yearly"
	MembershipTypeYearly           MembershipType = "yearly"
	MembershipTypePersonalTraining MembershipType = "personal_training"
)

// Member is a gym customer. This service only reads members; the CRM owns writes.
type Member struct {
	ID                  uuid.UUID       `json:"id"`
	GymID               uuid.UUID       `json:"gymId"`
	Name                string          `json:"name"`
	Email               string          `json:"email"`
	Phone               string          `json:"phone"`
	MembershipType      MembershipType  `json:"membershipType"`
	MembershipFees      decimal.Decimal `json:"membershipFees"`
	MembershipStartDate *time.Time      `json:"membershipStartDate,omitempty"`
	MembershipEndDate   *time.Time      `json:"membershipEndDate,omitempty"` // nil = ongoing
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// IsActiveOn reports whether the membership covers the given date (date-only comparison)
func (m *Member) IsActiveOn(day time.Time) bool {
	if m.MembershipStartDate == nil {
		return false
	}
	d := dateOnly(day)
	if dateOnly(*m.MembershipStartDate).After(d) {
		return false
	}
	return m.MembershipEndDate == nil || !dateOnly(*m.MembershipEndDate).Before(d)
}

// MemberRepository defines read access to a gym's members
type MemberRepository interface {
	ListByGym(ctx context.Context, gymID uuid.UUID) ([]*Member, error)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
