package middleware

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// Auth0IDKey is the context key for the Auth0 user ID (subject)
	Auth0IDKey contextKey = "auth0_id"
	// GymIDKey is the context key for the caller's gym ID
	GymIDKey contextKey = "gym_id"
)

// GymProvider resolves the gym owned by an Auth0 user
type GymProvider interface {
	GetGymIDByAuth0ID(ctx context.Context, auth0ID string) (uuid.UUID, error)
}

// TokenValidator validates a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (interface{}, error)
}

// AuthMiddleware provides JWT validation middleware
type AuthMiddleware struct {
	validator   TokenValidator
	gymProvider GymProvider
	admins      map[string]struct{}
}

// NewAuthMiddleware creates a new AuthMiddleware with Auth0 configuration
func NewAuthMiddleware(domain, audience string, gymProvider GymProvider, adminAuth0IDs []string) (*AuthMiddleware, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return NewAuthMiddlewareWithValidator(jwtValidator, gymProvider, adminAuth0IDs), nil
}

// NewAuthMiddlewareWithValidator creates an AuthMiddleware around an existing validator
func NewAuthMiddlewareWithValidator(v TokenValidator, gymProvider GymProvider, adminAuth0IDs []string) *AuthMiddleware {
	admins := make(map[string]struct{}, len(adminAuth0IDs))
	for _, id := range adminAuth0IDs {
		admins[id] = struct{}{}
	}
	return &AuthMiddleware{
		validator:   v,
		gymProvider: gymProvider,
		admins:      admins,
	}
}

// Authenticate returns an Echo middleware that validates JWT tokens.
// The caller's gym is resolved when one exists; admins may have none.
func (m *AuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "missing authorization header")
			}

			// Check Bearer prefix
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "invalid authorization header format")
			}

			claims, err := m.validator.ValidateToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "invalid token")
			}

			validatedClaims, ok := claims.(*validator.ValidatedClaims)
			if !ok {
				return unauthorizedError(c, "invalid claims")
			}

			auth0ID := validatedClaims.RegisteredClaims.Subject

			ctx := context.WithValue(c.Request().Context(), ClaimsKey, validatedClaims)
			ctx = context.WithValue(ctx, Auth0IDKey, auth0ID)

			if m.gymProvider != nil {
				gymID, err := m.gymProvider.GetGymIDByAuth0ID(ctx, auth0ID)
				switch {
				case err == nil:
					ctx = context.WithValue(ctx, GymIDKey, gymID)
				case errors.Is(err, domain.ErrGymNotFound):
					if !m.IsAdmin(auth0ID) {
						log.Debug().Str("auth0_id", auth0ID).Msg("Gym lookup failed")
						return unauthorizedError(c, "gym not found")
					}
				default:
					log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Gym lookup error")
					return unauthorizedError(c, "gym lookup failed")
				}
			}

			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireGym rejects callers that do not own a gym
func (m *AuthMiddleware) RequireGym() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetGymID(c) == uuid.Nil {
				return forbiddenError(c, "no gym is linked to this account")
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects callers that are not platform administrators
func (m *AuthMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.IsAdmin(GetAuth0ID(c)) {
				log.Warn().Str("auth0_id", GetAuth0ID(c)).Str("path", c.Path()).Msg("Admin access denied")
				return forbiddenError(c, "administrator access required")
			}
			return next(c)
		}
	}
}

// IsAdmin reports whether the Auth0 user is a platform administrator
func (m *AuthMiddleware) IsAdmin(auth0ID string) bool {
	if auth0ID == "" {
		return false
	}
	_, ok := m.admins[auth0ID]
	return ok
}

// GetAuth0ID extracts the Auth0 user ID from the context
func GetAuth0ID(c echo.Context) string {
	if id, ok := c.Request().Context().Value(Auth0IDKey).(string); ok {
		return id
	}
	return ""
}

// GetClaims extracts the validated claims from the context
func GetClaims(c echo.Context) *validator.ValidatedClaims {
	if claims, ok := c.Request().Context().Value(ClaimsKey).(*validator.ValidatedClaims); ok {
		return claims
	}
	return nil
}

// GetCustomClaims extracts the custom claims from the context
func GetCustomClaims(c echo.Context) *CustomClaims {
	claims := GetClaims(c)
	if claims == nil {
		return nil
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom
	}
	return nil
}

// GetGymID extracts the caller's gym ID from the context
func GetGymID(c echo.Context) uuid.UUID {
	if id, ok := c.Request().Context().Value(GymIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
