package server

import (
	"strings"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RegisterDevice handles POST /api/notifications/devices. Registration is
// idempotent per (user, token) pair.
func (s *Server) RegisterDevice(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Token      string `json:"token"`
		Platform   string `json:"platform"`
		OSVersion  string `json:"os_version"`
		DeviceName string `json:"device_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("token is required"))
	}

	device := &models.DeviceToken{
		UserID:     userID,
		Token:      req.Token,
		Platform:   req.Platform,
		OSVersion:  req.OSVersion,
		DeviceName: req.DeviceName,
	}
	if err := s.deviceRepo.Upsert(c.Context(), device); err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "Device registered",
		"platform": device.Platform,
	})
}

// DeactivateDevice handles DELETE /api/notifications/devices. The token must
// belong to the caller; anything else is a 404.
func (s *Server) DeactivateDevice(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("token is required"))
	}

	if err := s.deviceRepo.Deactivate(c.Context(), userID, req.Token); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Device deactivated"})
}

// GetNotifications handles GET /api/notifications?page=N&page_size=M
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 0)

	result, err := s.notificationRepo.ListPage(c.Context(), userID, page, pageSize)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(result)
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	count, err := s.notificationRepo.UnreadCount(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// MarkNotificationsRead handles PUT /api/notifications/mark-read. Only the
// caller's notifications among the supplied IDs are touched.
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		IDs []uint `json:"ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("ids must be a list"))
	}

	if err := s.notificationRepo.MarkRead(c.Context(), userID, req.IDs); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Marked read"})
}

// UpdateNotification handles PUT /api/notifications/:id to set read state.
func (s *Server) UpdateNotification(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		IsRead bool `json:"is_read"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	n, err := s.notificationRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	if n.UserID != userID {
		// Existence of another user's notification is not revealed.
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Notification", id))
	}

	if err := s.notificationRepo.SetRead(c.Context(), id, req.IsRead); err != nil {
		return respondAppError(c, err)
	}
	n.IsRead = req.IsRead
	return c.JSON(n)
}

// DeleteNotification handles DELETE /api/notifications/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	n, err := s.notificationRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	if n.UserID != userID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Notification", id))
	}

	if err := s.notificationRepo.Delete(c.Context(), id); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

// Logout handles POST /api/notifications/logout. The refresh token is
// revoked and the presented device token deactivated; both steps are
// best-effort so logout always succeeds for the client.
func (s *Server) Logout(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		RefreshToken string `json:"refresh_token"`
		DeviceToken  string `json:"device_token"`
	}
	// Body is optional; an empty logout still revokes the access token.
	_ = c.BodyParser(&req)

	if req.RefreshToken != "" {
		if claims, err := s.parseToken(req.RefreshToken); err == nil {
			s.blacklistToken(c.Context(), claims)
		}
	}

	// Revoke the access token used for this request.
	authHeader := c.Get("Authorization")
	if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
		if claims, err := s.parseToken(parts[1]); err == nil {
			s.blacklistToken(c.Context(), claims)
		}
	}

	if req.DeviceToken != "" {
		// Device cleanup failing must not block logout.
		_ = s.deviceRepo.Deactivate(c.Context(), userID, req.DeviceToken)
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}
