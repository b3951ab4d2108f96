package server

import (
	"net/http"
	"testing"
	"time"

	"giftfeed/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterVerifyLoginFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "flow@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var regBody map[string]any
	decodeJSON(t, resp, &regBody)
	assert.Equal(t, "Verification code sent", regBody["message"])
	// The code travels by email only.
	assert.NotContains(t, regBody, "code")

	code := env.mailer.verificationCode("flow@example.com")
	require.Len(t, code, 4)

	// Login before verification is rejected even with the right password.
	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "flow@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	var loginErr models.ErrorResponse
	decodeJSON(t, resp, &loginErr)
	assert.Equal(t, "ACCOUNT_INACTIVE", loginErr.Code)

	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": "flow@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verified struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID    uint   `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeJSON(t, resp, &verified)
	require.NotEmpty(t, verified.Token)
	require.NotEmpty(t, verified.RefreshToken)
	assert.Equal(t, "flow@example.com", verified.User.Email)

	// Verification creates the profile.
	var profile models.Profile
	require.NoError(t, env.db.Where("user_id = ?", verified.User.ID).First(&profile).Error)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "flow@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister_ActiveEmailConflicts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerAndVerify(t, "taken@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "taken@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_InvalidInput(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"bad email", fiber.Map{"email": "not-an-email", "first_name": "A", "last_name": "B", "password": testPassword, "confirm_password": testPassword}},
		{"missing first name", fiber.Map{"email": "a@example.com", "first_name": "", "last_name": "B", "password": testPassword, "confirm_password": testPassword}},
		{"weak password", fiber.Map{"email": "a@example.com", "first_name": "A", "last_name": "B", "password": "short", "confirm_password": "short"}},
		{"mismatched confirmation", fiber.Map{"email": "a@example.com", "first_name": "A", "last_name": "B", "password": testPassword, "confirm_password": "Different456!@#"}},
		{"bad gender", fiber.Map{"email": "a@example.com", "first_name": "A", "last_name": "B", "password": testPassword, "confirm_password": testPassword, "gender": "robot"}},
		{"bad date of birth", fiber.Map{"email": "a@example.com", "first_name": "A", "last_name": "B", "password": testPassword, "confirm_password": testPassword, "date_of_birth": "31-12-1990"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.request(t, http.MethodPost, "/api/auth/register", "", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestRegister_UnverifiedEmailReissues(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "retry@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Second attempt with a different password succeeds and re-issues a code.
	resp = env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "retry@example.com",
		"first_name":       "Anna",
		"last_name":        "Ward",
		"password":         "NewPass456!@#x",
		"confirm_password": "NewPass456!@#x",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	code := env.mailer.verificationCode("retry@example.com")
	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": "retry@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The replacement password is the one that works.
	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "retry@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "retry@example.com",
		"password": "NewPass456!@#x",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVerifyRegistration_WrongCode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "wrong@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	code := env.mailer.verificationCode("wrong@example.com")
	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": "wrong@example.com",
		"code":  otherCode(code),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown email gets the same response as a wrong code.
	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": "nobody@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVerifyRegistration_ExpiredCode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "stale@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, env.db.Model(&models.RegistrationCode{}).
		Where("1 = 1").
		UpdateColumn("created_at", time.Now().Add(-models.CodeTTL-time.Minute)).Error)

	code := env.mailer.verificationCode("stale@example.com")
	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": "stale@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var errBody models.ErrorResponse
	decodeJSON(t, resp, &errBody)
	assert.Equal(t, "CODE_EXPIRED", errBody.Code)

	// The stale code is purged, so retrying the same code now looks unknown.
	var count int64
	require.NoError(t, env.db.Model(&models.RegistrationCode{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerAndVerify(t, "creds@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "creds@example.com",
		"password": "WrongPass123!@#",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "ghost@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_RotatesAndRevokes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "rotate@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refresh_token": sess.refresh,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotated struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeJSON(t, resp, &rotated)
	require.NotEmpty(t, rotated.Token)
	require.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, sess.refresh, rotated.RefreshToken)

	// The rotated-out refresh token is no longer accepted.
	resp = env.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refresh_token": sess.refresh,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The new pair works.
	resp = env.request(t, http.MethodGet, "/api/profile", rotated.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "mixed@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/refresh", "", fiber.Map{
		"refresh_token": sess.token,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRequired_RejectsRefreshToken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "refuse@example.com")

	resp := env.request(t, http.MethodGet, "/api/profile", sess.refresh, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodGet, "/api/profile", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerAndVerify(t, "reset@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/password-reset/request", "", fiber.Map{
		"email": "reset@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	code := env.mailer.resetCode("reset@example.com")
	require.Len(t, code, 4)

	// Verify is non-consuming so the same code still changes the password.
	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/verify", "", fiber.Map{
		"email": "reset@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/change", "", fiber.Map{
		"email":            "reset@example.com",
		"code":             code,
		"password":         "Rotated789!@#x",
		"confirm_password": "Rotated789!@#x",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The code is consumed by the change.
	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/change", "", fiber.Map{
		"email":            "reset@example.com",
		"code":             code,
		"password":         "Another007!@#x",
		"confirm_password": "Another007!@#x",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "reset@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "reset@example.com",
		"password": "Rotated789!@#x",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordResetRequest_UnknownEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerAndVerify(t, "known@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/password-reset/request", "", fiber.Map{
		"email": "known@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, env.mailer.resetCode("known@example.com"))

	// No account, no code.
	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/request", "", fiber.Map{
		"email": "unknown@example.com",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errBody models.ErrorResponse
	decodeJSON(t, resp, &errBody)
	assert.Equal(t, "NOT_FOUND", errBody.Code)
	assert.Empty(t, env.mailer.resetCode("unknown@example.com"))
}

func TestPasswordResetVerify_ExpiredCode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerAndVerify(t, "old@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/password-reset/request", "", fiber.Map{
		"email": "old@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.db.Model(&models.PasswordResetCode{}).
		Where("1 = 1").
		UpdateColumn("created_at", time.Now().Add(-models.CodeTTL-time.Minute)).Error)

	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/verify", "", fiber.Map{
		"email": "old@example.com",
		"code":  env.mailer.resetCode("old@example.com"),
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Expired reset codes are purged on detection.
	var count int64
	require.NoError(t, env.db.Model(&models.PasswordResetCode{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChangePassword_MismatchedConfirmation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerAndVerify(t, "confirm@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/password-reset/request", "", fiber.Map{
		"email": "confirm@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/change", "", fiber.Map{
		"email":            "confirm@example.com",
		"code":             env.mailer.resetCode("confirm@example.com"),
		"password":         "Rotated789!@#x",
		"confirm_password": "Different456!@#",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The old password still works.
	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "confirm@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePassword_Authenticated(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "self@example.com")

	// A logged-in user changes their password without a reset code.
	resp := env.request(t, http.MethodPost, "/api/auth/password-reset/change", sess.token, fiber.Map{
		"password":         "SelfServe321!@#",
		"confirm_password": "SelfServe321!@#",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "self@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "self@example.com",
		"password": "SelfServe321!@#",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePassword_AuthenticatedClearsResetCodes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	sess := env.registerAndVerify(t, "tidy@example.com")

	resp := env.request(t, http.MethodPost, "/api/auth/password-reset/request", "", fiber.Map{
		"email": "tidy@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	code := env.mailer.resetCode("tidy@example.com")

	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/change", sess.token, fiber.Map{
		"password":         "SelfServe321!@#",
		"confirm_password": "SelfServe321!@#",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Any outstanding reset code died with the change.
	resp = env.request(t, http.MethodPost, "/api/auth/password-reset/change", "", fiber.Map{
		"email":            "tidy@example.com",
		"code":             code,
		"password":         "Another007!@#x",
		"confirm_password": "Another007!@#x",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_Demographics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "demo@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
		"gender":           models.GenderFemale,
		"date_of_birth":    "1992-04-17",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	code := env.mailer.verificationCode("demo@example.com")
	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": "demo@example.com",
		"code":  code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile models.Profile
	require.NoError(t, env.db.
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("users.email = ?", "demo@example.com").
		First(&profile).Error)
	assert.Equal(t, models.GenderFemale, profile.Gender)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, "1992-04-17", profile.DateOfBirth.Format("2006-01-02"))
}

func TestVerifyRegistration_Demographics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            "late@example.com",
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Demographics can arrive with the verification instead.
	code := env.mailer.verificationCode("late@example.com")
	resp = env.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email":         "late@example.com",
		"code":          code,
		"gender":        models.GenderMale,
		"date_of_birth": "1988-11-02",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile models.Profile
	require.NoError(t, env.db.
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("users.email = ?", "late@example.com").
		First(&profile).Error)
	assert.Equal(t, models.GenderMale, profile.Gender)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, "1988-11-02", profile.DateOfBirth.Format("2006-01-02"))
}
