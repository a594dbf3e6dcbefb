package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type GymStatus string

const (
	GymStatusActive    GymStatus = "active"
	GymStatusSuspended GymStatus = "suspended"
)

// Gym is a tenant of the platform. Billing records snapshot its name at creation time.
type Gym struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	OwnerAuth0ID string    `json:"-"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Status       GymStatus `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ExistedDuring reports whether the gym had been created by the end of the given month,
// with month boundaries taken in loc. A gym created after a month cannot owe a bill for it.
func (g *Gym) ExistedDuring(year, month int, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	created := g.CreatedAt.In(loc)
	if created.Year() != year {
		return created.Year() < year
	}
	return int(created.Month()) <= month
}

// GymRepository defines read access to gyms
type GymRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Gym, error)
	GetByOwnerAuth0ID(ctx context.Context, auth0ID string) (*Gym, error)
	GetAll(ctx context.Context) ([]*Gym, error)
}
