package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment_NotifiesAuthor(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	author := env.registerAndVerify(t, "poster@example.com")
	commenter := env.registerAndVerify(t, "commenter@example.com")
	postID := env.createPost(t, author, "a kite")

	// The author has a registered device, so the comment triggers a push.
	resp := env.request(t, http.MethodPost, "/api/notifications/devices", author.token, fiber.Map{
		"token":    "device-aaa",
		"platform": "android",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), commenter.token, fiber.Map{
			"content": "Great idea!",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment models.Comment
	decodeJSON(t, resp, &comment)
	assert.Equal(t, "Great idea!", comment.Content)
	assert.Equal(t, commenter.userID, comment.UserID)
	assert.Equal(t, "Ana", comment.User.FirstName)

	require.Equal(t, 1, env.sender.callCount())
	call := env.sender.lastCall()
	assert.Equal(t, []string{"device-aaa"}, call.tokens)
	assert.Equal(t, "New comment on your post", call.title)
	assert.Contains(t, call.body, "Great idea!")
	assert.Equal(t, fmt.Sprintf("%d", postID), call.data["post_id"])

	// An inbox record exists for the post author.
	var count int64
	require.NoError(t, env.db.Model(&models.Notification{}).
		Where("user_id = ?", author.userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateComment_OwnPostNoNotification(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	author := env.registerAndVerify(t, "selfie@example.com")
	postID := env.createPost(t, author, "a mug")

	resp := env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), author.token, fiber.Map{
			"content": "note to self",
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Zero(t, env.sender.callCount())
	var count int64
	require.NoError(t, env.db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateComment_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "chatty@example.com")
	postID := env.createPost(t, sess, "a lamp")

	resp := env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), sess.token, fiber.Map{
			"content": "  ",
		})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), sess.token, fiber.Map{
			"content": strings.Repeat("x", models.MaxCommentLength+1),
		})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The limit is in characters, so a max-length multibyte comment fits.
	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), sess.token, fiber.Map{
			"content": strings.Repeat("é", models.MaxCommentLength),
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), sess.token, fiber.Map{
			"content": strings.Repeat("é", models.MaxCommentLength+1),
		})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/social/posts/9999/comments", sess.token, fiber.Map{
		"content": "orphan",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetComments_NewestFirst(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "reader2@example.com")
	postID := env.createPost(t, sess, "a scarf")

	for _, content := range []string{"first", "second", "third"} {
		resp := env.request(t, http.MethodPost,
			fmt.Sprintf("/api/social/posts/%d/comments", postID), sess.token, fiber.Map{
				"content": content,
			})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var out struct {
		Comments []models.Comment `json:"comments"`
	}
	resp := env.request(t, http.MethodGet,
		fmt.Sprintf("/api/social/posts/%d/comments", postID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &out)
	require.Len(t, out.Comments, 3)
	assert.Equal(t, "third", out.Comments[0].Content)
	assert.Equal(t, "first", out.Comments[2].Content)
}

func TestDeleteComment_Permissions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	author := env.registerAndVerify(t, "host@example.com")
	commenter := env.registerAndVerify(t, "guest@example.com")
	stranger := env.registerAndVerify(t, "stranger@example.com")
	postID := env.createPost(t, author, "a candle")

	addComment := func() uint {
		resp := env.request(t, http.MethodPost,
			fmt.Sprintf("/api/social/posts/%d/comments", postID), commenter.token, fiber.Map{
				"content": "nice",
			})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var c models.Comment
		decodeJSON(t, resp, &c)
		return c.ID
	}

	// A bystander cannot delete.
	commentID := addComment()
	resp := env.request(t, http.MethodDelete,
		fmt.Sprintf("/api/social/posts/%d/comments/%d", postID, commentID), stranger.token, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The comment author can.
	resp = env.request(t, http.MethodDelete,
		fmt.Sprintf("/api/social/posts/%d/comments/%d", postID, commentID), commenter.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// So can the post author.
	commentID = addComment()
	resp = env.request(t, http.MethodDelete,
		fmt.Sprintf("/api/social/posts/%d/comments/%d", postID, commentID), author.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A comment ID under the wrong post is not found.
	commentID = addComment()
	otherPost := env.createPost(t, author, "a vase")
	resp = env.request(t, http.MethodDelete,
		fmt.Sprintf("/api/social/posts/%d/comments/%d", otherPost, commentID), commenter.token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
