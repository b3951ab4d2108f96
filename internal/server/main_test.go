package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"giftfeed/internal/config"
	"giftfeed/internal/database"
	"giftfeed/internal/models"
	"giftfeed/internal/push"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	// Endpoint rate limits are bypassed in the test environment.
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

// fakeMailer captures the verification and reset codes that would have been
// emailed, keyed by recipient address.
type fakeMailer struct {
	mu           sync.Mutex
	verification map[string]string
	reset        map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		verification: make(map[string]string),
		reset:        make(map[string]string),
	}
}

func (m *fakeMailer) SendVerificationCode(_ context.Context, email, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[email] = code
	return nil
}

func (m *fakeMailer) SendPasswordResetCode(_ context.Context, email, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset[email] = code
	return nil
}

func (m *fakeMailer) verificationCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[email]
}

func (m *fakeMailer) resetCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset[email]
}

// pushCall records one multicast send seen by the fake sender.
type pushCall struct {
	tokens []string
	title  string
	body   string
	data   map[string]string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []pushCall
}

func (f *fakeSender) Send(_ context.Context, tokens []string, title, body string, data map[string]string) (push.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{tokens: tokens, title: title, body: body, data: data})
	return push.Result{SuccessCount: len(tokens)}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSender) lastCall() pushCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type testEnv struct {
	srv    *Server
	app    *fiber.App
	db     *gorm.DB
	mailer *fakeMailer
	sender *fakeSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.AllModels()...))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		JWTSecret: "handler-test-secret-with-enough-length",
		Port:      "0",
		Env:       "test",
	}
	mailer := newFakeMailer()
	sender := &fakeSender{}

	srv, err := NewServerWithDeps(cfg, db, rdb, mailer, sender)
	require.NoError(t, err)

	app := fiber.New()
	srv.SetupRoutes(app)

	return &testEnv{srv: srv, app: app, db: db, mailer: mailer, sender: sender}
}

// request performs an in-process HTTP call against the test app. A non-empty
// token is sent as a Bearer credential.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

type session struct {
	userID  uint
	email   string
	token   string
	refresh string
}

const testPassword = "TestPass123!@#"

// registerAndVerify runs the full signup flow for email and returns an
// authenticated session.
func (e *testEnv) registerAndVerify(t *testing.T, email string) session {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":            email,
		"first_name":       "Ana",
		"last_name":        "Ward",
		"password":         testPassword,
		"confirm_password": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	code := e.mailer.verificationCode(email)
	require.Len(t, code, 4)

	resp = e.request(t, http.MethodPost, "/api/auth/register/verify", "", fiber.Map{
		"email": email,
		"code":  code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	decodeJSON(t, resp, &out)
	require.NotEmpty(t, out.Token)
	require.NotEmpty(t, out.RefreshToken)
	require.NotZero(t, out.User.ID)

	return session{userID: out.User.ID, email: email, token: out.Token, refresh: out.RefreshToken}
}

// createPost posts a minimal gift idea as the session user and returns its ID.
func (e *testEnv) createPost(t *testing.T, sess session, content string) uint {
	t.Helper()

	resp := e.request(t, http.MethodPost, "/api/social/posts", sess.token, fiber.Map{
		"content": content,
		"target":  models.TargetMen,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var post models.Post
	decodeJSON(t, resp, &post)
	require.NotZero(t, post.ID)
	return post.ID
}

// otherCode returns a well-formed code guaranteed to differ from code.
func otherCode(code string) string {
	if code == "1234" {
		return "4321"
	}
	return "1234"
}
