package server

import (
	"time"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// profileResponse flattens a profile with its user summary and follow counts.
type profileResponse struct {
	User        models.PublicUser `json:"user"`
	Image       string            `json:"image"`
	DateOfBirth *time.Time        `json:"date_of_birth,omitempty"`
	Gender      string            `json:"gender"`
	Following   int               `json:"following_count"`
	Followers   int               `json:"followers_count"`
}

func (s *Server) buildProfileResponse(c *fiber.Ctx, profile *models.Profile) (*profileResponse, error) {
	following, err := s.profileRepo.Following(c.Context(), profile.UserID)
	if err != nil {
		return nil, err
	}
	followers, err := s.profileRepo.Followers(c.Context(), profile.UserID)
	if err != nil {
		return nil, err
	}
	return &profileResponse{
		User:        profile.User.Public(),
		Image:       profile.Image,
		DateOfBirth: profile.DateOfBirth,
		Gender:      profile.Gender,
		Following:   len(following),
		Followers:   len(followers),
	}, nil
}

// GetMyProfile handles GET /api/profile
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profile, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	resp, err := s.buildProfileResponse(c, profile)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(resp)
}

// GetUserProfile handles GET /api/profile/:userId
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	profile, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	resp, err := s.buildProfileResponse(c, profile)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(resp)
}

// UpdateMyProfile handles PUT /api/profile. Only provided fields change.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Image       *string `json:"image"`
		DateOfBirth *string `json:"date_of_birth"`
		Gender      *string `json:"gender"`
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}

	if req.Image != nil {
		profile.Image = *req.Image
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			profile.DateOfBirth = nil
		} else {
			dob, parseErr := time.Parse("2006-01-02", *req.DateOfBirth)
			if parseErr != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("date_of_birth must be in YYYY-MM-DD format"))
			}
			if dob.After(time.Now()) {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewValidationError("date_of_birth cannot be in the future"))
			}
			profile.DateOfBirth = &dob
		}
	}
	if req.Gender != nil {
		if !models.ValidGender(*req.Gender) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("gender must be Male, Female or Other"))
		}
		profile.Gender = *req.Gender
	}

	if req.FirstName != nil || req.LastName != nil {
		user, userErr := s.userRepo.GetByID(c.Context(), userID)
		if userErr != nil {
			return respondAppError(c, userErr)
		}
		if req.FirstName != nil {
			user.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			user.LastName = *req.LastName
		}
		if updateErr := s.userRepo.Update(c.Context(), user); updateErr != nil {
			return respondAppError(c, updateErr)
		}
		profile.User = *user
	}

	if err := s.profileRepo.Update(c.Context(), profile); err != nil {
		return respondAppError(c, err)
	}

	resp, err := s.buildProfileResponse(c, profile)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(resp)
}

// FollowUser handles POST /api/profile/follow/:userId
func (s *Server) FollowUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.profileRepo.Follow(c.Context(), userID, targetID); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Followed"})
}

// UnfollowUser handles DELETE /api/profile/follow/:userId
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.profileRepo.Unfollow(c.Context(), userID, targetID); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}

// GetFollowing handles GET /api/profile/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profiles, err := s.profileRepo.Following(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"profiles": profileSummaries(profiles)})
}

// GetFollowers handles GET /api/profile/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profiles, err := s.profileRepo.Followers(c.Context(), userID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"profiles": profileSummaries(profiles)})
}

func profileSummaries(profiles []models.Profile) []fiber.Map {
	out := make([]fiber.Map, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, fiber.Map{
			"user":  p.User.Public(),
			"image": p.Image,
		})
	}
	return out
}
