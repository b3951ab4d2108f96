package server

import (
	"fmt"
	"net/http"
	"testing"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDevice(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "phone@example.com")

	resp := env.request(t, http.MethodPost, "/api/notifications/devices", sess.token, fiber.Map{
		"token":       "tok-1",
		"platform":    "android",
		"os_version":  "14",
		"device_name": "Pixel",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Platform string `json:"platform"`
	}
	decodeJSON(t, resp, &out)
	assert.Equal(t, models.PlatformAndroid, out.Platform)

	// Re-registering the same token updates in place.
	resp = env.request(t, http.MethodPost, "/api/notifications/devices", sess.token, fiber.Map{
		"token":    "tok-1",
		"platform": "windows phone",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeJSON(t, resp, &out)
	assert.Equal(t, models.PlatformUnknown, out.Platform)

	var count int64
	require.NoError(t, env.db.Model(&models.DeviceToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Missing token is rejected.
	resp = env.request(t, http.MethodPost, "/api/notifications/devices", sess.token, fiber.Map{
		"platform": "ios",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeactivateDevice_StopsPush(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	author := env.registerAndVerify(t, "quiet2@example.com")
	fan := env.registerAndVerify(t, "noisy@example.com")
	postID := env.createPost(t, author, "slippers")

	resp := env.request(t, http.MethodPost, "/api/notifications/devices", author.token, fiber.Map{
		"token":    "tok-gone",
		"platform": "ios",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodDelete, "/api/notifications/devices", author.token, fiber.Map{
		"token": "tok-gone",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/like", postID), fan.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// No active device, so no push; the inbox record is still written.
	assert.Zero(t, env.sender.callCount())
	var count int64
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("user_id = ?", author.userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeactivateDevice_UnknownToken404(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	owner := env.registerAndVerify(t, "owner3@example.com")
	other := env.registerAndVerify(t, "other3@example.com")

	resp := env.request(t, http.MethodPost, "/api/notifications/devices", owner.token, fiber.Map{
		"token":    "tok-owned",
		"platform": "android",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A never-registered token is a 404.
	resp = env.request(t, http.MethodDelete, "/api/notifications/devices", owner.token, fiber.Map{
		"token": "tok-nobody",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// So is someone else's token, and theirs stays active.
	resp = env.request(t, http.MethodDelete, "/api/notifications/devices", other.token, fiber.Map{
		"token": "tok-owned",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var device models.DeviceToken
	require.NoError(t, env.db.Where("token = ?", "tok-owned").First(&device).Error)
	assert.True(t, device.IsActive)
}

func TestNotificationInbox(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	author := env.registerAndVerify(t, "inbox@example.com")
	fan := env.registerAndVerify(t, "sender@example.com")
	postID := env.createPost(t, author, "headlamp")

	// Two engagements write two inbox records.
	resp := env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/like", postID), fan.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), fan.token, fiber.Map{
			"content": "want one",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var page struct {
		Notifications []models.Notification `json:"notifications"`
		Page          int                   `json:"page"`
		PageSize      int                   `json:"page_size"`
		Total         int64                 `json:"total"`
	}
	resp = env.request(t, http.MethodGet, "/api/notifications/", author.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &page)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Page)

	titles := []string{page.Notifications[0].Title, page.Notifications[1].Title}
	assert.ElementsMatch(t, []string{"Your post was liked", "New comment on your post"}, titles)

	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	resp = env.request(t, http.MethodGet, "/api/notifications/unread-count", author.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &unread)
	assert.Equal(t, int64(2), unread.UnreadCount)

	// Mark a single notification read.
	target := page.Notifications[0]
	resp = env.request(t, http.MethodPut,
		fmt.Sprintf("/api/notifications/%d", target.ID), author.token, fiber.Map{
			"is_read": true,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/notifications/unread-count", author.token, nil)
	decodeJSON(t, resp, &unread)
	assert.Equal(t, int64(1), unread.UnreadCount)

	// Mark the remaining one read by ID.
	resp = env.request(t, http.MethodPut, "/api/notifications/mark-read", author.token, fiber.Map{
		"ids": []uint{page.Notifications[1].ID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/notifications/unread-count", author.token, nil)
	decodeJSON(t, resp, &unread)
	assert.Zero(t, unread.UnreadCount)

	// Delete one.
	resp = env.request(t, http.MethodDelete,
		fmt.Sprintf("/api/notifications/%d", target.ID), author.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/notifications/", author.token, nil)
	decodeJSON(t, resp, &page)
	assert.Len(t, page.Notifications, 1)
}

func TestNotification_OtherUsersHidden(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	owner := env.registerAndVerify(t, "mine2@example.com")
	intruder := env.registerAndVerify(t, "intruder@example.com")

	n := models.Notification{UserID: owner.userID, Title: "hello", Body: "world"}
	require.NoError(t, env.db.Create(&n).Error)

	// Another user's notification reads as not found, not forbidden.
	resp := env.request(t, http.MethodPut,
		fmt.Sprintf("/api/notifications/%d", n.ID), intruder.token, fiber.Map{
			"is_read": true,
		})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.request(t, http.MethodDelete,
		fmt.Sprintf("/api/notifications/%d", n.ID), intruder.token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Mark-read with someone else's ID does not touch their record.
	resp = env.request(t, http.MethodPut, "/api/notifications/mark-read", intruder.token, fiber.Map{
		"ids": []uint{n.ID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The record survives, still unread.
	var got models.Notification
	require.NoError(t, env.db.First(&got, n.ID).Error)
	assert.False(t, got.IsRead)
}

func TestLogout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "leaver@example.com")

	resp := env.request(t, http.MethodPost, "/api/notifications/devices", sess.token, fiber.Map{
		"token":    "tok-logout",
		"platform": "android",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/notifications/logout", sess.token, fiber.Map{
		"refresh_token": sess.refresh,
		"device_token":  "tok-logout",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The refresh token is revoked.
	resp = env.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refresh_token": sess.refresh,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The access token is revoked.
	resp = env.request(t, http.MethodGet, "/api/profile", sess.token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The device no longer receives push.
	var device models.DeviceToken
	require.NoError(t, env.db.Where("token = ?", "tok-logout").First(&device).Error)
	assert.False(t, device.IsActive)
}
