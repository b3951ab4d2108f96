package server

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"time"

	"giftfeed/internal/middleware"
	"giftfeed/internal/models"
	"giftfeed/internal/observability"
	"giftfeed/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// generateCode produces a 4-digit verification code in [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return (big.NewInt(0).Add(n, big.NewInt(1000))).String(), nil
}

// Register handles POST /api/auth/register. The account starts inactive; a
// verification code is emailed and must be confirmed before login works.
// Re-registering an unverified email re-issues the code instead of failing.
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email           string `json:"email"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
		Gender          string `json:"gender"`
		DateOfBirth     string `json:"date_of_birth"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateName(req.FirstName, "first name"); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateName(req.LastName, "last name"); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if req.Password != req.ConfirmPassword {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Passwords do not match"))
	}
	gender, dob, err := parseDemographics(req.Gender, req.DateOfBirth)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	existing, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return respondAppError(c, err)
	}

	user := existing
	if existing != nil {
		if existing.IsActive {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewValidationError("An account with this email already exists"))
		}
		// Unverified re-registration: refresh names and password, then
		// fall through to issuing a new code.
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(hashErr))
		}
		existing.FirstName = req.FirstName
		existing.LastName = req.LastName
		existing.Password = string(hashed)
		if updateErr := s.userRepo.Update(c.Context(), existing); updateErr != nil {
			return respondAppError(c, updateErr)
		}
	} else {
		hashed, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(hashErr))
		}
		user = &models.User{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Password:  string(hashed),
		}
		if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
			return respondAppError(c, createErr)
		}
	}

	// Demographics supplied up front are kept on the profile so verification
	// does not have to resend them.
	if gender != "" || dob != nil {
		if err := s.ensureProfile(c, user.ID, gender, dob); err != nil {
			return respondAppError(c, err)
		}
	}

	if err := s.issueRegistrationCode(c, user); err != nil {
		return respondAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Verification code sent",
		"email":   user.Email,
	})
}

// issueRegistrationCode replaces any live code for the user and emails the
// new one. The code is never included in the HTTP response.
func (s *Server) issueRegistrationCode(c *fiber.Ctx, user *models.User) error {
	code, err := generateCode()
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.codeRepo.ReplaceRegistrationCode(c.Context(), user.ID, code); err != nil {
		return err
	}
	observability.VerificationCodesIssued.WithLabelValues("registration").Inc()

	if s.mailer != nil {
		if mailErr := s.mailer.SendVerificationCode(c.Context(), user.Email, user.FirstName, code); mailErr != nil {
			middleware.Logger.WarnContext(c.Context(), "Verification email delivery failed",
				slog.String("error", mailErr.Error()),
			)
		}
	}
	return nil
}

// parseDemographics validates the optional gender and date_of_birth fields
// accepted at registration and verification. Empty values pass through.
func parseDemographics(gender, dateOfBirth string) (string, *time.Time, error) {
	if gender != "" && !models.ValidGender(gender) {
		return "", nil, models.NewValidationError("gender must be Male, Female or Other")
	}
	var dob *time.Time
	if dateOfBirth != "" {
		d, err := time.Parse("2006-01-02", dateOfBirth)
		if err != nil {
			return "", nil, models.NewValidationError("date_of_birth must be in YYYY-MM-DD format")
		}
		if d.After(time.Now()) {
			return "", nil, models.NewValidationError("date_of_birth cannot be in the future")
		}
		dob = &d
	}
	return gender, dob, nil
}

// ensureProfile creates the user's profile if missing, applying any supplied
// demographics; an existing profile only picks up the supplied fields.
func (s *Server) ensureProfile(c *fiber.Ctx, userID uint, gender string, dob *time.Time) error {
	profile, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if appErr, ok := err.(*models.AppError); !ok || appErr.Code != "NOT_FOUND" {
			return err
		}
		fresh := &models.Profile{UserID: userID, Gender: models.GenderOther, DateOfBirth: dob}
		if gender != "" {
			fresh.Gender = gender
		}
		if createErr := s.profileRepo.Create(c.Context(), fresh); createErr != nil {
			// Re-verification race: the profile may already exist.
			if appErr, ok := createErr.(*models.AppError); !ok || appErr.Code != "VALIDATION_ERROR" {
				return createErr
			}
		}
		return nil
	}

	if gender == "" && dob == nil {
		return nil
	}
	if gender != "" {
		profile.Gender = gender
	}
	if dob != nil {
		profile.DateOfBirth = dob
	}
	return s.profileRepo.Update(c.Context(), profile)
}

// VerifyRegistration handles POST /api/auth/register/verify. A correct,
// unexpired code activates the account, creates its profile and returns a
// token pair.
func (s *Server) VerifyRegistration(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		Gender      string `json:"gender"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidateCode(req.Code); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	gender, dob, err := parseDemographics(req.Gender, req.DateOfBirth)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return respondAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid email or code"))
	}
	if user.IsActive {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Account is already verified"))
	}

	rec, err := s.codeRepo.GetRegistrationCode(c.Context(), user.ID, req.Code)
	if err != nil {
		return respondAppError(c, err)
	}
	if rec == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid email or code"))
	}
	if rec.Expired(time.Now()) {
		// Expired codes are purged on detection; the user must re-request.
		if delErr := s.codeRepo.DeleteRegistrationCodes(c.Context(), user.ID); delErr != nil {
			return respondAppError(c, delErr)
		}
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewCodeExpiredError("Verification code has expired, request a new one"))
	}

	if err := s.userRepo.Activate(c.Context(), user.ID); err != nil {
		return respondAppError(c, err)
	}
	if err := s.ensureProfile(c, user.ID, gender, dob); err != nil {
		return respondAppError(c, err)
	}
	if err := s.codeRepo.DeleteRegistrationCodes(c.Context(), user.ID); err != nil {
		return respondAppError(c, err)
	}
	user.IsActive = true

	access, refresh, err := s.generateTokenPair(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":         access,
		"refresh_token": refresh,
		"user":          user.Public(),
	})
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return respondAppError(c, err)
	}
	if user == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid credentials"))
	}

	// Password is checked before the active gate so an attacker cannot use
	// this endpoint to probe which emails are registered but unverified.
	if !user.IsActive {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewInactiveAccountError("Account is not verified"))
	}

	access, refresh, err := s.generateTokenPair(user.ID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":         access,
		"refresh_token": refresh,
		"user":          user.Public(),
	})
}

// Refresh handles POST /api/auth/refresh. Refresh tokens rotate: the
// presented token is revoked and a new pair is issued.
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("refresh_token is required"))
	}

	claims, err := s.parseToken(req.RefreshToken)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}
	if typ, _ := claims["typ"].(string); typ != "refresh" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Refresh token required"))
	}
	if s.isBlacklisted(c.Context(), claims) {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Token has been revoked"))
	}

	userID, err := s.subjectUserID(claims)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	user, err := s.userRepo.GetByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Unknown user"))
	}
	if !user.IsActive {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewInactiveAccountError("Account is not verified"))
	}

	s.blacklistToken(c.Context(), claims)

	access, refresh, err := s.generateTokenPair(userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":         access,
		"refresh_token": refresh,
	})
}

// RequestPasswordReset handles POST /api/auth/password-reset/request. An
// email with no verified account behind it is a 404; a verified account gets
// its prior reset code replaced by a fresh one.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return respondAppError(c, err)
	}
	if user == nil || !user.IsActive {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: "NOT_FOUND", Message: "No account found with this email"})
	}

	code, genErr := generateCode()
	if genErr != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(genErr))
	}
	if repErr := s.codeRepo.ReplaceResetCode(c.Context(), user.ID, code); repErr != nil {
		return respondAppError(c, repErr)
	}
	observability.VerificationCodesIssued.WithLabelValues("password_reset").Inc()

	if s.mailer != nil {
		if mailErr := s.mailer.SendPasswordResetCode(c.Context(), user.Email, user.FirstName, code); mailErr != nil {
			middleware.Logger.WarnContext(c.Context(), "Password reset email delivery failed",
				slog.String("error", mailErr.Error()),
			)
		}
	}

	return c.JSON(fiber.Map{
		"message": "A reset code has been sent to your email",
	})
}

// VerifyPasswordReset handles POST /api/auth/password-reset/verify. It checks
// a code without consuming it, so clients can gate the new-password screen.
func (s *Server) VerifyPasswordReset(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.validResetCode(c, req.Email, req.Code); err != nil {
		if err == errResponseWritten {
			return nil
		}
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Code is valid",
	})
}

// ChangePassword handles POST /api/auth/password-reset/change. Two paths:
// an authenticated caller changes their own password directly, while an
// unauthenticated caller supplies email plus the live reset code. The code
// is consumed on success; the direct path clears any pending codes too.
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		Email           string `json:"email"`
		Code            string `json:"code"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if req.Password != req.ConfirmPassword {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Passwords do not match"))
	}

	userID, authenticated := s.optionalUserID(c)
	if !authenticated {
		user, err := s.validResetCode(c, req.Email, req.Code)
		if err != nil {
			if err == errResponseWritten {
				return nil
			}
			return respondAppError(c, err)
		}
		userID = user.ID
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if err := s.userRepo.SetPassword(c.Context(), userID, string(hashed)); err != nil {
		return respondAppError(c, err)
	}
	if err := s.codeRepo.DeleteResetCodes(c.Context(), userID); err != nil {
		return respondAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Password updated",
	})
}

// validResetCode resolves the user and checks the reset code. On client
// errors it writes the response itself and returns errResponseWritten.
func (s *Server) validResetCode(c *fiber.Ctx, email, code string) (*models.User, error) {
	if err := validation.ValidateCode(code); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
		return nil, errResponseWritten
	}

	user, err := s.userRepo.GetByEmail(c.Context(), email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid email or code"))
		return nil, errResponseWritten
	}

	rec, err := s.codeRepo.GetResetCode(c.Context(), user.ID, code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid email or code"))
		return nil, errResponseWritten
	}
	if rec.Expired(time.Now()) {
		// Purged on detection, same as registration codes.
		if delErr := s.codeRepo.DeleteResetCodes(c.Context(), user.ID); delErr != nil {
			return nil, delErr
		}
		_ = models.RespondWithError(c, fiber.StatusForbidden,
			models.NewCodeExpiredError("Reset code has expired, request a new one"))
		return nil, errResponseWritten
	}

	return user, nil
}
