package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartlearning/auth-service/internal/model"
)

// devicePart is the client view of a trusted device. The opaque token is
// never echoed back; revealing it would let anyone reading the response
// impersonate the device.
type devicePart struct {
	ID        uint64    `json:"device_id"`
	Name      string    `json:"device_name"`
	LastUsed  time.Time `json:"last_used"`
	ExpiresAt time.Time `json:"expires_at"`
	Expired   bool      `json:"expired"`
}

func toDevicePart(d model.TrustedDevice) devicePart {
	return devicePart{
		ID:        d.ID,
		Name:      d.DeviceName,
		LastUsed:  d.LastUsed,
		ExpiresAt: d.ExpiresAt,
		Expired:   time.Now().UTC().After(d.ExpiresAt),
	}
}

// ListDevices returns the caller's trusted devices.
func (h *AuthHandler) ListDevices(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	devices, err := h.Auth.ListDevices(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]devicePart, 0, len(devices))
	for _, d := range devices {
		out = append(out, toDevicePart(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"devices": out})
}

// RevokeDevice removes a single trusted device owned by the caller.
func (h *AuthHandler) RevokeDevice(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	deviceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || deviceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid device id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.RevokeDevice(ctx, userID, deviceID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RevokeAllDevices removes every trusted device owned by the caller.
func (h *AuthHandler) RevokeAllDevices(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Auth.RevokeAllDevices(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": n})
}
