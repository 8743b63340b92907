package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prepwise/internal/domain"
	"prepwise/internal/llm"
	"prepwise/internal/ratelimit"
	"prepwise/internal/repository"
	"prepwise/internal/service"
	"prepwise/internal/storage"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) GetByResetToken(_ context.Context, digest string, now time.Time) (domain.User, error) {
	for _, u := range m.usersByID {
		if u.PasswordResetToken == digest && u.PasswordResetExpiry != nil && u.PasswordResetExpiry.After(now) {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) update(id string, fn func(*domain.User)) error {
	u, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&u)
	m.usersByID[id] = u
	return nil
}

func (m *mockUserRepo) UpdateVerificationCode(_ context.Context, id, codeHash string, expiresAt, sentAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.VerificationCodeHash = codeHash
		u.VerificationExpiry = &expiresAt
		u.LastVerificationSentAt = &sentAt
	})
}

func (m *mockUserRepo) MarkVerified(_ context.Context, id string) error {
	return m.update(id, func(u *domain.User) {
		u.IsVerified = true
		u.VerificationCodeHash = ""
		u.VerificationExpiry = nil
	})
}

func (m *mockUserRepo) SetRefreshToken(_ context.Context, id, digest string) error {
	return m.update(id, func(u *domain.User) { u.RefreshToken = digest })
}

func (m *mockUserRepo) ClearRefreshToken(_ context.Context, id string) error {
	return m.update(id, func(u *domain.User) { u.RefreshToken = "" })
}

func (m *mockUserRepo) SetPasswordReset(_ context.Context, id, digest string, expiresAt time.Time) error {
	return m.update(id, func(u *domain.User) {
		u.PasswordResetToken = digest
		u.PasswordResetExpiry = &expiresAt
	})
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return m.update(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordResetToken = ""
		u.PasswordResetExpiry = nil
	})
}

type mockInterviewRepo struct {
	items map[string]domain.Interview
}

func (m *mockInterviewRepo) Create(_ context.Context, iv domain.Interview) error {
	m.items[iv.ID] = iv
	return nil
}

func (m *mockInterviewRepo) GetByID(_ context.Context, id string) (domain.Interview, error) {
	iv, ok := m.items[id]
	if !ok {
		return domain.Interview{}, pgx.ErrNoRows
	}
	return iv, nil
}

func (m *mockInterviewRepo) ListByUserID(_ context.Context, userID string) ([]domain.Interview, error) {
	out := make([]domain.Interview, 0)
	for _, iv := range m.items {
		if iv.UserID == userID {
			out = append(out, iv)
		}
	}
	return out, nil
}

type captureSender struct {
	code     string
	resetURL string
}

func (s *captureSender) SendVerificationCode(_ context.Context, _, code string, _ time.Time) error {
	s.code = code
	return nil
}

func (s *captureSender) SendPasswordReset(_ context.Context, _, resetURL string, _ time.Time) error {
	s.resetURL = resetURL
	return nil
}

type testApp struct {
	router     *gin.Engine
	users      *mockUserRepo
	interviews *mockInterviewRepo
	sender     *captureSender
	llm        *llm.MockClient
}

func newTestApp(t *testing.T, limiter ratelimit.Limiter) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := service.NewJWTService("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)
	require.NoError(t, err)

	app := &testApp{
		users:      newMockUserRepo(),
		interviews: &mockInterviewRepo{items: make(map[string]domain.Interview)},
		sender:     &captureSender{},
		llm:        &llm.MockClient{Response: `["Q1","Q2","Q3","Q4","Q5"]`},
	}
	userSvc := service.NewUserService(zap.NewNop(), app.users, tokens, app.sender, storage.NewDisabledUploader("storage disabled"), "http://localhost:3000")
	interviewSvc := service.NewInterviewService(zap.NewNop(), app.llm, app.interviews)

	app.router = NewRouter(
		zap.NewNop(),
		RouterConfig{CORSOrigins: []string{"http://localhost:3000"}, Limiter: limiter},
		NewUserHandler(zap.NewNop(), userSvc, true),
		NewInterviewHandler(zap.NewNop(), interviewSvc),
		JWTAuthMiddleware(userSvc),
	)
	return app
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(c) }
}

func (a *testApp) do(method, path string, body any, opts ...requestOption) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func (a *testApp) registerAndVerify(t *testing.T, email, password string) {
	t.Helper()
	rec, _ := a.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"fullName": "Ana Gomez", "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = a.do(http.MethodPost, "/api/v1/auth/verify-email", map[string]string{
		"email": email, "verificationCode": a.sender.code,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (a *testApp) login(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()
	rec, env := a.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := env.Data.(map[string]any)
	return data["accessToken"].(string), refreshCookie(rec)
}

func TestRegister_JSON(t *testing.T) {
	app := newTestApp(t, nil)

	rec, env := app.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"fullName": "Ana Gomez", "email": "a@x.com", "password": "Abcd1234!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, http.StatusCreated, env.StatusCode)

	user := env.Data.(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, false, user["isVerified"])
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), app.sender.code)

	rec, env = app.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"fullName": "Other", "email": "a@x.com", "password": "x",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
}

func TestRegister_MissingField(t *testing.T) {
	app := newTestApp(t, nil)

	rec, env := app.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"email": "a@x.com", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fullName is required", env.Message)
}

func TestRegister_MultipartRejectsExtension(t *testing.T) {
	app := newTestApp(t, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("fullName", "Ana")
	_ = w.WriteField("email", "a@x.com")
	_ = w.WriteField("password", "pw")
	part, _ := w.CreateFormFile("image", "avatar.gif")
	_, _ = part.Write([]byte("GIF89a"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Empty(t, app.users.usersByID)
}

func TestLogin_StatusCodes(t *testing.T) {
	app := newTestApp(t, nil)

	rec, _ := app.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"fullName": "Ana", "email": "a@x.com", "password": "Abcd1234!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "Abcd1234!"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/verify-email", map[string]string{"email": "a@x.com", "verificationCode": app.sender.code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/verify-email", map[string]string{"email": "a@x.com", "verificationCode": app.sender.code})
	assert.Equal(t, http.StatusNotFound, rec.Code, "a consumed code cannot be reused")

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nobody@x.com", "password": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_SetsRefreshCookie(t *testing.T) {
	app := newTestApp(t, nil)
	app.registerAndVerify(t, "a@x.com", "pw")

	access, cookie := app.login(t, "a@x.com", "pw")
	assert.NotEmpty(t, access)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
}

func TestRefreshAndLogout(t *testing.T) {
	app := newTestApp(t, nil)
	app.registerAndVerify(t, "a@x.com", "pw")
	access, cookie := app.login(t, "a@x.com", "pw")

	rec, _ := app.do(http.MethodPost, "/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := app.do(http.MethodPost, "/api/v1/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, env.Data.(map[string]any)["accessToken"])

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/logout", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := refreshCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/refresh", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCurrentUser(t *testing.T) {
	app := newTestApp(t, nil)
	app.registerAndVerify(t, "a@x.com", "pw")
	access, _ := app.login(t, "a@x.com", "pw")

	rec, env := app.do(http.MethodGet, "/api/v1/auth/current-user", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", env.Data.(map[string]any)["email"])

	rec, env = app.do(http.MethodGet, "/api/v1/auth/current-user", nil, withBearer("not.a.jwt"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: invalid token", env.Message)
}

func TestForgotAndResetPassword(t *testing.T) {
	app := newTestApp(t, nil)
	app.registerAndVerify(t, "a@x.com", "old")

	rec, _ := app.do(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := app.sender.resetURL[strings.Index(app.sender.resetURL, "token=")+len("token="):]

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"token": token, "newPassword": "new"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"token": token, "newPassword": "again"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	app.login(t, "a@x.com", "new")
}

func TestResendVerification_Cooldown(t *testing.T) {
	app := newTestApp(t, nil)
	rec, _ := app.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"fullName": "Ana", "email": "a@x.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := app.do(http.MethodPost, "/api/v1/auth/resend-verification", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please wait before requesting a new verification code", env.Message)
}

func TestGenerateInterview(t *testing.T) {
	app := newTestApp(t, nil)

	rec, env := app.do(http.MethodPost, "/api/v1/vapi/generate", map[string]any{
		"type": "technical", "role": "Backend", "level": "Senior",
		"techstack": "Node, Postgres", "amount": 5, "userId": "0b6f3c1e-2d4a-4f5b-9e8c-7a1d2c3b4e5f",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	iv := env.Data.(map[string]any)
	assert.Equal(t, []any{"Node", "Postgres"}, iv["techstack"])
	assert.Len(t, iv["questions"], 5)
	assert.Equal(t, true, iv["finalized"])
	assert.Len(t, app.interviews.items, 1)

	app.llm.Response = "not json"
	rec, env = app.do(http.MethodPost, "/api/v1/vapi/generate", map[string]any{
		"type": "technical", "role": "Backend", "level": "Senior",
		"techstack": "Node", "amount": "3", "userId": "0b6f3c1e-2d4a-4f5b-9e8c-7a1d2c3b4e5f",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate interview questions", env.Message)
	assert.Len(t, app.interviews.items, 1)

	rec, _ = app.do(http.MethodPost, "/api/v1/vapi/generate", map[string]any{"role": "Backend"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateStatus(t *testing.T) {
	app := newTestApp(t, nil)
	rec, env := app.do(http.MethodGet, "/api/v1/vapi/generate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Thank you!", env.Data)
}

func TestInterviewsList_OwnedOnly(t *testing.T) {
	app := newTestApp(t, nil)
	app.registerAndVerify(t, "a@x.com", "pw")
	access, _ := app.login(t, "a@x.com", "pw")
	userID := app.users.usersByEmail["a@x.com"]

	app.interviews.items["6f1c2a34-9d7e-4b5a-8c1f-0a2b3c4d5e6f"] = domain.Interview{ID: "6f1c2a34-9d7e-4b5a-8c1f-0a2b3c4d5e6f", UserID: userID, Role: "Backend"}
	app.interviews.items["7a2b3c4d-1e2f-4a5b-9c8d-1f2e3d4c5b6a"] = domain.Interview{ID: "7a2b3c4d-1e2f-4a5b-9c8d-1f2e3d4c5b6a", UserID: "someone-else"}

	rec, env := app.do(http.MethodGet, "/api/v1/interviews", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.Data, 1)

	rec, _ = app.do(http.MethodGet, "/api/v1/interviews/6f1c2a34-9d7e-4b5a-8c1f-0a2b3c4d5e6f", nil, withBearer(access))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(http.MethodGet, "/api/v1/interviews/7a2b3c4d-1e2f-4a5b-9c8d-1f2e3d4c5b6a", nil, withBearer(access))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(http.MethodGet, "/api/v1/interviews", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, ratelimit.NewMemoryLimiter(1))

	rec, _ := app.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := app.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "a@x.com", "password": "x"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
}

func TestNoRouteAndHealth(t *testing.T) {
	app := newTestApp(t, nil)

	rec, env := app.do(http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", env.Message)

	rec, _ = app.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	r := NewRouter(zap.NewNop(), RouterConfig{HealthCheck: func(context.Context) error { return errors.New("down") }},
		&UserHandler{}, &InterviewHandler{}, func(c *gin.Context) { c.Next() })
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestResolveError_Unknown(t *testing.T) {
	got := resolveError(errors.New("pq: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "Internal server error", got.Message)
}
