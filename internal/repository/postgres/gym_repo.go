package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const gymColumns = `id, name, owner_auth0_id, email, phone, status, created_at, updated_at`

// GymRepository implements domain.GymRepository using PostgreSQL
type GymRepository struct {
	pool *pgxpool.Pool
}

// NewGymRepository creates a new GymRepository
func NewGymRepository(pool *pgxpool.Pool) *GymRepository {
	return &GymRepository{pool: pool}
}

// GetByID retrieves a gym by its ID
func (r *GymRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gym, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gymColumns+` FROM gyms WHERE id = $1`, id)
	return scanGym(row)
}

// GetByOwnerAuth0ID retrieves the gym owned by an Auth0 user
func (r *GymRepository) GetByOwnerAuth0ID(ctx context.Context, auth0ID string) (*domain.Gym, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gymColumns+` FROM gyms WHERE owner_auth0_id = $1`, auth0ID)
	return scanGym(row)
}

// GetAll retrieves every gym ordered by creation time
func (r *GymRepository) GetAll(ctx context.Context) ([]*domain.Gym, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+gymColumns+` FROM gyms ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gyms := make([]*domain.Gym, 0)
	for rows.Next() {
		gym, err := scanGym(rows)
		if err != nil {
			return nil, err
		}
		gyms = append(gyms, gym)
	}
	return gyms, rows.Err()
}

func scanGym(row pgx.Row) (*domain.Gym, error) {
	var gym domain.Gym
	var status string
	err := row.Scan(
		&gym.ID,
		&gym.Name,
		&gym.OwnerAuth0ID,
		&gym.Email,
		&gym.Phone,
		&status,
		&gym.CreatedAt,
		&gym.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrGymNotFound
		}
		return nil, err
	}
	gym.Status = domain.GymStatus(status)
	return &gym, nil
}
