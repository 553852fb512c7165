package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// OrganizationResolver middleware resolves the organization from the JWT claim
// or, failing that, the X-Organization-ID header. The header is trusted; the
// API sits behind an authenticating edge.
func OrganizationResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var orgID uuid.UUID

			if existing := c.Get("organization_id"); existing != nil {
				if oid, ok := existing.(uuid.UUID); ok {
					orgID = oid
				}
			}

			if orgID == uuid.Nil {
				header := c.Request().Header.Get("X-Organization-ID")
				if header != "" {
					parsed, err := uuid.Parse(header)
					if err != nil {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid organization ID format")
					}
					orgID = parsed
					c.Set("organization_id", orgID)
				}
			}

			return next(c)
		}
	}
}

// RequireOrganization middleware ensures an organization is present.
// System admins operate without one.
func RequireOrganization() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := c.Get("user_role")
			if userRole != nil && userRole.(string) == "system_admin" {
				return next(c)
			}

			orgID := c.Get("organization_id")
			if orgID == nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Organization ID is required")
			}
			if orgID.(uuid.UUID) == uuid.Nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Valid organization ID is required")
			}

			return next(c)
		}
	}
}

// OrganizationID extracts the resolved organization from the request context,
// or uuid.Nil when absent
func OrganizationID(c echo.Context) uuid.UUID {
	if v := c.Get("organization_id"); v != nil {
		if oid, ok := v.(uuid.UUID); ok {
			return oid
		}
	}
	return uuid.Nil
}
