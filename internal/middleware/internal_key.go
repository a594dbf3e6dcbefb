package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// InternalAPIKeyHeader carries the shared secret of server-to-server calls
const InternalAPIKeyHeader = "X-Internal-API-Key"

// InternalAPIKey guards internal endpoints. An empty key rejects every call.
func InternalAPIKey(requiredKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := c.Request().Header.Get(InternalAPIKeyHeader)
			if requiredKey == "" || provided == "" ||
				subtle.ConstantTimeCompare([]byte(provided), []byte(requiredKey)) != 1 {
				log.Warn().Str("path", c.Path()).Str("remote_ip", c.RealIP()).Msg("Rejected internal call")
				return unauthorizedError(c, "invalid internal api key")
			}
			return next(c)
		}
	}
}
