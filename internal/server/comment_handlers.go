package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/social/posts/:id/comments. The post author
// gets a push notification unless they commented on their own post.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("content is required"))
	}
	// Length limit counts characters, not bytes.
	if utf8.RuneCountInString(req.Content) > models.MaxCommentLength {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("content must be at most %d characters", models.MaxCommentLength)))
	}

	post, err := s.postRepo.GetByID(c.Context(), postID, userID)
	if err != nil {
		return respondAppError(c, err)
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: req.Content,
	}
	if err := s.commentRepo.Create(c.Context(), comment); err != nil {
		return respondAppError(c, err)
	}

	if post.UserID != userID {
		commenter, userErr := s.userRepo.GetByID(c.Context(), userID)
		if userErr == nil {
			s.dispatcher.Dispatch(c.Context(), post.UserID,
				"New comment on your post",
				fmt.Sprintf("%s commented: %s", commenter.FirstName, truncate(req.Content, 80)),
				map[string]string{"post_id": fmt.Sprintf("%d", postID)},
			)
		}
	}

	created, err := s.commentRepo.GetByID(c.Context(), comment.ID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetComments handles GET /api/social/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 50)

	currentUserID, _ := s.optionalUserID(c)
	if _, err := s.postRepo.GetByID(c.Context(), postID, currentUserID); err != nil {
		return respondAppError(c, err)
	}

	comments, err := s.commentRepo.GetByPostID(c.Context(), postID, p.Limit, p.Offset)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// DeleteComment handles DELETE /api/social/posts/:id/comments/:commentId.
// The comment author or the post author can delete.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	comment, err := s.commentRepo.GetByID(c.Context(), commentID)
	if err != nil {
		return respondAppError(c, err)
	}
	if comment.PostID != postID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Comment", commentID))
	}

	if comment.UserID != userID {
		post, postErr := s.postRepo.GetByID(c.Context(), postID, userID)
		if postErr != nil {
			return respondAppError(c, postErr)
		}
		if post.UserID != userID {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("You can only delete your own comments"))
		}
	}

	if err := s.commentRepo.Delete(c.Context(), commentID); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// truncate shortens s to at most n runes for notification bodies.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
