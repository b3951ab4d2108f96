package server

import (
	"strings"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultPostPageSize = 20

// CreatePost handles POST /api/social/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Content      string   `json:"content"`
		CategoryID   *uint    `json:"category_id"`
		OccasionID   *uint    `json:"occasion_id"`
		ExternalLink string   `json:"external_link"`
		Target       string   `json:"target"`
		Images       []string `json:"images"`
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
	if !models.ValidTarget(req.Target) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("target must be Men, Women or Kids"))
	}

	if req.CategoryID != nil {
		exists, err := s.taxonomyRepo.CategoryExists(c.Context(), *req.CategoryID)
		if err != nil {
			return respondAppError(c, err)
		}
		if !exists {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unknown category"))
		}
	}
	if req.OccasionID != nil {
		exists, err := s.taxonomyRepo.OccasionExists(c.Context(), *req.OccasionID)
		if err != nil {
			return respondAppError(c, err)
		}
		if !exists {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unknown occasion"))
		}
	}

	post := &models.Post{
		UserID:       userID,
		Content:      req.Content,
		CategoryID:   req.CategoryID,
		OccasionID:   req.OccasionID,
		ExternalLink: req.ExternalLink,
		Target:       req.Target,
		Approved:     true,
	}
	for _, img := range req.Images {
		if img == "" {
			continue
		}
		post.Images = append(post.Images, models.PostImage{Image: img})
	}

	if err := s.postRepo.Create(c.Context(), post); err != nil {
		return respondAppError(c, err)
	}

	created, err := s.postRepo.GetByID(c.Context(), post.ID, userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetPosts handles GET /api/social/posts (approved posts, newest first)
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, defaultPostPageSize)
	currentUserID, _ := s.optionalUserID(c)

	posts, err := s.postRepo.List(c.Context(), p.Limit, p.Offset, currentUserID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// GetPost handles GET /api/social/posts/:id and counts the view.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	currentUserID, _ := s.optionalUserID(c)

	post, err := s.postRepo.GetByID(c.Context(), id, currentUserID)
	if err != nil {
		return respondAppError(c, err)
	}
	// Unapproved posts are visible to their author only.
	if !post.Approved && post.UserID != currentUserID {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Post", id))
	}

	if err := s.postRepo.IncrementViews(c.Context(), id); err == nil {
		post.Views++
	}

	return c.JSON(post)
}

// GetMyPosts handles GET /api/social/posts/mine, including unapproved posts.
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	p := parsePagination(c, defaultPostPageSize)

	posts, err := s.postRepo.GetByUserID(c.Context(), userID, p.Limit, p.Offset, userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// UpdatePost handles PUT /api/social/posts/:id (author only)
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postRepo.GetByID(c.Context(), id, userID)
	if err != nil {
		return respondAppError(c, err)
	}
	if post.UserID != userID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only edit your own posts"))
	}

	var req struct {
		Content      *string `json:"content"`
		CategoryID   *uint   `json:"category_id"`
		OccasionID   *uint   `json:"occasion_id"`
		ExternalLink *string `json:"external_link"`
		Target       *string `json:"target"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("content cannot be empty"))
		}
		post.Content = content
	}
	if req.Target != nil {
		if !models.ValidTarget(*req.Target) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("target must be Men, Women or Kids"))
		}
		post.Target = *req.Target
	}
	if req.CategoryID != nil {
		exists, taxErr := s.taxonomyRepo.CategoryExists(c.Context(), *req.CategoryID)
		if taxErr != nil {
			return respondAppError(c, taxErr)
		}
		if !exists {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unknown category"))
		}
		post.CategoryID = req.CategoryID
	}
	if req.OccasionID != nil {
		exists, taxErr := s.taxonomyRepo.OccasionExists(c.Context(), *req.OccasionID)
		if taxErr != nil {
			return respondAppError(c, taxErr)
		}
		if !exists {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Unknown occasion"))
		}
		post.OccasionID = req.OccasionID
	}
	if req.ExternalLink != nil {
		post.ExternalLink = *req.ExternalLink
	}

	if err := s.postRepo.Update(c.Context(), post); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/social/posts/:id (author only)
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postRepo.GetByID(c.Context(), id, userID)
	if err != nil {
		return respondAppError(c, err)
	}
	if post.UserID != userID {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("You can only delete your own posts"))
	}

	if err := s.postRepo.Delete(c.Context(), id); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetCategories handles GET /api/social/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.taxonomyRepo.Categories(c.Context())
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetOccasions handles GET /api/social/occasions
func (s *Server) GetOccasions(c *fiber.Ctx) error {
	occasions, err := s.taxonomyRepo.Occasions(c.Context())
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"occasions": occasions})
}
