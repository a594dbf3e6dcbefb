package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGymLookup struct {
	gymID uuid.UUID
	err   error
}

func (m *mockGymLookup) GetGymIDByAuth0ID(ctx context.Context, auth0ID string) (uuid.UUID, error) {
	return m.gymID, m.err
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := &CustomClaims{}
	assert.NoError(t, claims.Validate(context.Background()))
}

func TestNewAuth0JWTValidator_Success(t *testing.T) {
	lookup := &mockGymLookup{gymID: uuid.New()}

	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.gymcrm.app", lookup)
	require.NoError(t, err)
	assert.NotNil(t, v.validator)
	assert.Equal(t, lookup, v.gymLookup)
}

func TestAuth0JWTValidator_ValidateToken_InvalidJWT(t *testing.T) {
	lookup := &mockGymLookup{gymID: uuid.New()}

	v, err := NewAuth0JWTValidator("test.auth0.com", "https://api.gymcrm.app", lookup)
	require.NoError(t, err)

	gymID, err := v.ValidateToken(context.Background(), "invalid-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
	assert.Equal(t, uuid.Nil, gymID)
}
