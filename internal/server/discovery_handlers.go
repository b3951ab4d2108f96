package server

import (
	"giftfeed/internal/models"
	"giftfeed/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// FilterPosts handles GET /api/social/posts/filter. Query params category_id,
// occasion_id and target combine conjunctively; absent params are ignored.
func (s *Server) FilterPosts(c *fiber.Ctx) error {
	p := parsePagination(c, defaultPostPageSize)
	currentUserID, _ := s.optionalUserID(c)

	filter := repository.PostFilter{}
	if v := c.QueryInt("category_id", 0); v > 0 {
		filter.CategoryID = uint(v)
	}
	if v := c.QueryInt("occasion_id", 0); v > 0 {
		filter.OccasionID = uint(v)
	}
	if target := c.Query("target"); target != "" {
		if !models.ValidTarget(target) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("target must be Men, Women or Kids"))
		}
		filter.Target = target
	}

	posts, err := s.postRepo.Filter(c.Context(), filter, p.Limit, p.Offset, currentUserID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// SearchPosts handles GET /api/social/posts/search?q=...
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	p := parsePagination(c, defaultPostPageSize)
	currentUserID, _ := s.optionalUserID(c)

	posts, err := s.postRepo.Search(c.Context(), c.Query("q"), p.Limit, p.Offset, currentUserID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// TrendingPosts handles GET /api/social/posts/trending
func (s *Server) TrendingPosts(c *fiber.Ctx) error {
	p := parsePagination(c, defaultPostPageSize)
	currentUserID, _ := s.optionalUserID(c)

	posts, err := s.postRepo.Trending(c.Context(), p.Limit, p.Offset, currentUserID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// RecommendedPosts handles GET /api/social/posts/recommended. Requires auth;
// users without engagement history get an empty list.
func (s *Server) RecommendedPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	p := parsePagination(c, defaultPostPageSize)

	posts, err := s.postRepo.Recommend(c.Context(), userID, p.Limit)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}
