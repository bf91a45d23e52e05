package apperr

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/dto"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// Respond writes err as a JSON error body. 5xx errors are logged with the
// request id, captured to the request's Sentry hub, and rendered with a
// generic message.
func Respond(c *fiber.Ctx, err error) error {
	appErr := From(err)

	resp := dto.ErrorResponse{
		Error:      appErr.Code,
		Message:    appErr.Message,
		Details:    appErr.Details,
		UpgradeURL: appErr.UpgradeURL,
	}

	if appErr.Status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", requestID(c),
			"path", c.Path(),
			"kind", string(appErr.Kind),
			"error", appErr.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil && appErr.Cause != nil {
			hub.CaptureException(appErr.Cause)
		}
		resp.Message = "internal server error"
		resp.Details = nil
	}

	return c.Status(appErr.Status).JSON(resp)
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
