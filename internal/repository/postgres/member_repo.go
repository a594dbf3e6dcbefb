package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemberRepository implements domain.MemberRepository using PostgreSQL
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// ListByGym retrieves all members of a gym ordered by name
func (r *MemberRepository) ListByGym(ctx context.Context, gymID uuid.UUID) ([]*domain.Member, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, gym_id, name, email, phone, membership_type, membership_fees,
               membership_start_date, membership_end_date, created_at, updated_at
        FROM members
        WHERE gym_id = $1
        ORDER BY name, id
    `, gymID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]*domain.Member, 0)
	for rows.Next() {
		var (
			m              domain.Member
			membershipType string
			fees           pgtype.Numeric
			start, end     pgtype.Date
		)
		if err := rows.Scan(
			&m.ID,
			&m.GymID,
			&m.Name,
			&m.Email,
			&m.Phone,
			&membershipType,
			&fees,
			&start,
			&end,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.MembershipType = domain.MembershipType(membershipType)
		m.MembershipFees = pgNumericToDecimal(fees)
		m.MembershipStartDate = pgDateToTimePtr(start)
		m.MembershipEndDate = pgDateToTimePtr(end)
		members = append(members, &m)
	}
	return members, rows.Err()
}

func pgDateToTimePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}
