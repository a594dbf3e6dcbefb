package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultOwnerCacheSize bounds the number of remembered owner logins
	DefaultOwnerCacheSize = 1024
	// DefaultOwnerCacheTTL is how long an owner to gym mapping is trusted
	DefaultOwnerCacheTTL = 5 * time.Minute
)

// AuthService resolves authenticated Auth0 users to the gym they own.
// It backs both the HTTP auth middleware and the websocket handshake.
type AuthService struct {
	gymRepo domain.GymRepository
	owners  *lru.LRU[string, uuid.UUID]
}

// NewAuthService creates a new AuthService. A zero ttl disables the owner cache.
func NewAuthService(gymRepo domain.GymRepository, size int, ttl time.Duration) *AuthService {
	s := &AuthService{gymRepo: gymRepo}
	if ttl > 0 {
		if size <= 0 {
			size = DefaultOwnerCacheSize
		}
		s.owners = lru.NewLRU[string, uuid.UUID](size, nil, ttl)
	}
	return s
}

// GetGymByAuth0ID retrieves the gym owned by the Auth0 user.
// Suspended gyms are treated as missing.
func (s *AuthService) GetGymByAuth0ID(ctx context.Context, auth0ID string) (*domain.Gym, error) {
	if auth0ID == "" {
		return nil, domain.ErrGymNotFound
	}
	gym, err := s.gymRepo.GetByOwnerAuth0ID(ctx, auth0ID)
	if err != nil {
		return nil, err
	}
	if gym.Status == domain.GymStatusSuspended {
		log.Info().Str("auth0_id", auth0ID).Str("gym_id", gym.ID.String()).Msg("Rejected login for suspended gym")
		return nil, domain.ErrGymNotFound
	}
	return gym, nil
}

// GetGymIDByAuth0ID returns the ID of the gym owned by the Auth0 user
func (s *AuthService) GetGymIDByAuth0ID(ctx context.Context, auth0ID string) (uuid.UUID, error) {
	if s.owners != nil {
		if id, ok := s.owners.Get(auth0ID); ok {
			return id, nil
		}
	}

	gym, err := s.GetGymByAuth0ID(ctx, auth0ID)
	if err != nil {
		return uuid.Nil, err
	}

	if s.owners != nil {
		s.owners.Add(auth0ID, gym.ID)
	}
	return gym.ID, nil
}

// Forget drops a cached owner mapping, e.g. after a gym is suspended
func (s *AuthService) Forget(auth0ID string) {
	if s.owners != nil {
		s.owners.Remove(auth0ID)
	}
}
