package middleware

import (
	"net/http"

	"botbase/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// TrackUsage gates a request on the organization's plan limit for the given
// resource and, when the handler succeeds, records the consumed unit in the
// usage ledger.
//
// The check and the increment are not one atomic step: concurrent requests
// that all pass the gate can overshoot the limit by the number of in-flight
// requests. The overshoot is bounded and the next request is denied, which is
// the accepted tradeoff for keeping the gate off the write path.
//
// Recording happens in a goroutine after the response; a failed increment is
// logged and swallowed so metering problems never fail requests that already
// did their work.
func TrackUsage(resource services.Resource, limits *services.PlanLimitService, usage *services.UsageService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			orgID := OrganizationID(c)
			if orgID == uuid.Nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Organization ID is required")
			}

			decision, err := limits.CheckLimit(orgID, resource)
			if err != nil {
				log.Error().Err(err).
					Str("organization_id", orgID.String()).
					Str("resource", string(resource)).
					Msg("Failed to check usage limits")
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check usage limits")
			}

			if !decision.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "plan_limit_exceeded",
					"reason":      decision.Reason,
					"usage":       decision.Usage,
					"limits":      decision.Limits,
					"upgrade_url": "/settings/billing",
				})
			}

			if err := next(c); err != nil {
				return err
			}

			if c.Response().Status < http.StatusBadRequest {
				go func() {
					if err := usage.Record(resource, orgID); err != nil {
						log.Warn().Err(err).
							Str("organization_id", orgID.String()).
							Str("resource", string(resource)).
							Msg("Failed to record usage")
					}
				}()
			}

			return nil
		}
	}
}
