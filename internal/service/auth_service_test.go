package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_GetGymIDByAuth0ID(t *testing.T) {
	gymRepo := testutil.NewMockGymRepository()
	gym := testutil.NewTestGym("Iron Temple", "auth0|owner")
	gymRepo.AddGym(gym)
	svc := NewAuthService(gymRepo, 0, 0)

	id, err := svc.GetGymIDByAuth0ID(context.Background(), "auth0|owner")

	require.NoError(t, err)
	assert.Equal(t, gym.ID, id)
}

func TestAuthService_UnknownOwner(t *testing.T) {
	svc := NewAuthService(testutil.NewMockGymRepository(), 0, 0)

	id, err := svc.GetGymIDByAuth0ID(context.Background(), "auth0|stranger")
	assert.ErrorIs(t, err, domain.ErrGymNotFound)
	assert.Equal(t, uuid.Nil, id)

	_, err = svc.GetGymIDByAuth0ID(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrGymNotFound)
}

func TestAuthService_SuspendedGym(t *testing.T) {
	gymRepo := testutil.NewMockGymRepository()
	gym := testutil.NewTestGym("Closed Box", "auth0|closed")
	gym.Status = domain.GymStatusSuspended
	gymRepo.AddGym(gym)
	svc := NewAuthService(gymRepo, 0, 0)

	_, err := svc.GetGymByAuth0ID(context.Background(), "auth0|closed")

	assert.ErrorIs(t, err, domain.ErrGymNotFound)
}

func TestAuthService_CachesOwnerLookups(t *testing.T) {
	gymRepo := testutil.NewMockGymRepository()
	gym := testutil.NewTestGym("Iron Temple", "auth0|owner")
	gymRepo.AddGym(gym)
	svc := NewAuthService(gymRepo, 8, time.Minute)

	_, err := svc.GetGymIDByAuth0ID(context.Background(), "auth0|owner")
	require.NoError(t, err)

	// Removed from the store but still cached
	delete(gymRepo.ByAuth0ID, "auth0|owner")
	id, err := svc.GetGymIDByAuth0ID(context.Background(), "auth0|owner")
	require.NoError(t, err)
	assert.Equal(t, gym.ID, id)

	svc.Forget("auth0|owner")
	_, err = svc.GetGymIDByAuth0ID(context.Background(), "auth0|owner")
	assert.ErrorIs(t, err, domain.ErrGymNotFound)
}

func TestAuthService_MissesAreNotCached(t *testing.T) {
	gymRepo := testutil.NewMockGymRepository()
	svc := NewAuthService(gymRepo, 8, time.Minute)

	_, err := svc.GetGymIDByAuth0ID(context.Background(), "auth0|late")
	require.ErrorIs(t, err, domain.ErrGymNotFound)

	gym := testutil.NewTestGym("Late Signup", "auth0|late")
	gymRepo.AddGym(gym)

	id, err := svc.GetGymIDByAuth0ID(context.Background(), "auth0|late")
	require.NoError(t, err)
	assert.Equal(t, gym.ID, id)
}
