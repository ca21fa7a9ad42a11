package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/filesmanager/api/internal/services"
	"github.com/filesmanager/api/pkg/logger"
	"github.com/filesmanager/api/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors to status codes. Store and driver
// details are logged, never returned.
func respondError(c *fiber.Ctx, err error) error {
	var fieldErr *services.FieldError
	var requestErr *services.RequestError

	switch {
	case errors.As(err, &fieldErr):
		return utils.Error(c, fiber.StatusBadRequest, fieldErr.Error())
	case errors.As(err, &requestErr):
		return utils.Error(c, fiber.StatusBadRequest, requestErr.Message)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthenticated):
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrParentNotFound),
		errors.Is(err, services.ErrParentNotFolder),
		errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrInvalidData):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotImage):
		return utils.Error(c, fiber.StatusBadRequest, "Not an image")
	case errors.Is(err, services.ErrServiceUnavailable):
		logRequestError(c, "service_unavailable", err)
		return utils.Error(c, fiber.StatusServiceUnavailable, "service unavailable")
	default:
		logRequestError(c, "request_failed", err)
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func logRequestError(c *fiber.Ctx, action string, err error) {
	details := map[string]interface{}{
		"method": c.Method(),
		"path":   c.Path(),
	}
	if userID := logger.GetUserIDFromContext(c); userID != nil {
		logger.ErrorWithUser(*userID, action, err, details)
		return
	}
	logger.Error(action, err, details)
}

// flexibleID accepts a record id sent as a JSON string or number, so the
// legacy root marker 0 keeps working.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

// basicCredentials decodes an "Authorization: Basic" header. The password
// may itself contain colons.
func basicCredentials(header string) (email, password string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}

	return strings.Cut(string(decoded), ":")
}
