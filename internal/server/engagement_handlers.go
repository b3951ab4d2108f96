package server

import (
	"fmt"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/social/posts/:id/like. Liking notifies the
// post author; un-liking does not.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postRepo.GetByID(c.Context(), postID, userID)
	if err != nil {
		return respondAppError(c, err)
	}

	liked, err := s.engagementRepo.ToggleLike(c.Context(), userID, postID)
	if err != nil {
		return respondAppError(c, err)
	}

	if liked && post.UserID != userID {
		liker, userErr := s.userRepo.GetByID(c.Context(), userID)
		if userErr == nil {
			s.dispatcher.Dispatch(c.Context(), post.UserID,
				"Your post was liked",
				fmt.Sprintf("%s liked your post", liker.FirstName),
				map[string]string{"post_id": fmt.Sprintf("%d", postID)},
			)
		}
	}

	return c.JSON(fiber.Map{"liked": liked})
}

// GetPostLikes handles GET /api/social/posts/:id/likes, a read-only count.
func (s *Server) GetPostLikes(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	currentUserID, _ := s.optionalUserID(c)

	post, err := s.postRepo.GetByID(c.Context(), postID, currentUserID)
	if err != nil {
		return respondAppError(c, err)
	}
	if !post.Approved && post.UserID != currentUserID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Post", postID))
	}

	return c.JSON(fiber.Map{"likes_count": post.LikesCount})
}

// ToggleWishlist handles POST /api/social/posts/:id/wishlist
func (s *Server) ToggleWishlist(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.postRepo.GetByID(c.Context(), postID, userID); err != nil {
		return respondAppError(c, err)
	}

	wishlisted, err := s.engagementRepo.ToggleWishlist(c.Context(), userID, postID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"wishlisted": wishlisted})
}

// GetWishlist handles GET /api/social/wishlist
func (s *Server) GetWishlist(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	p := parsePagination(c, defaultPostPageSize)

	posts, err := s.engagementRepo.WishlistPosts(c.Context(), userID, p.Limit, p.Offset)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}
