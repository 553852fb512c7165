package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with a correlation id: the caller's
// X-Request-ID when supplied, a fresh uuid otherwise. The id is echoed in the
// response header and stored in the request context for log correlation.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			c.Response().Header().Set(requestIDHeader, requestID)
			c.Set("request_id", requestID)

			return next(c)
		}
	}
}
