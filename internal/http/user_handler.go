package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepwise/internal/service"
	"prepwise/internal/storage"
)

const (
	refreshCookieName   = "refreshToken"
	refreshCookieMaxAge = 30 * 24 * 60 * 60
)

// UserHandler expone los endpoints de /auth.
type UserHandler struct {
	logger       *zap.Logger
	users        *service.UserService
	secureCookie bool
}

func NewUserHandler(logger *zap.Logger, users *service.UserService, secureCookie bool) *UserHandler {
	return &UserHandler{logger: logger, users: users, secureCookie: secureCookie}
}

// Register maneja POST /auth/register (multipart con image/resume opcionales, o JSON).
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		FullName string `form:"fullName" json:"fullName" binding:"required"`
		Email    string `form:"email" json:"email" binding:"required"`
		Password string `form:"password" json:"password" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	input := service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		image, closeImage, err := formFile(c, "image")
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer closeImage()
		resume, closeResume, err := formFile(c, "resume")
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer closeResume()
		input.Image, input.Resume = image, resume
	}

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusCreated, user, "User registered successfully. Please check your email for the verification code.")
}

// Login maneja POST /auth/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	respond(c, http.StatusOK, gin.H{
		"user":        result.User,
		"accessToken": result.AccessToken,
	}, "Login successful")
}

// VerifyEmail maneja POST /auth/verify-email.
func (h *UserHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Email            string `json:"email" binding:"required"`
		VerificationCode string `json:"verificationCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.users.VerifyEmail(c.Request.Context(), req.Email, req.VerificationCode); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, nil, "Email verified successfully")
}

// ResendVerification maneja POST /auth/resend-verification.
func (h *UserHandler) ResendVerification(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.users.ResendVerificationCode(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, nil, "Verification code resent successfully")
}

// RefreshAccessToken maneja POST /auth/refresh usando la cookie de refresco.
func (h *UserHandler) RefreshAccessToken(c *gin.Context) {
	token, _ := c.Cookie(refreshCookieName)

	access, err := h.users.RefreshAccessToken(c.Request.Context(), token)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, gin.H{"accessToken": access}, "Access token refreshed")
}

// ForgotPassword maneja POST /auth/forgot-password.
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, nil, "Password reset link sent to your email")
}

// ResetPassword maneja POST /auth/reset-password.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, nil, "Password has been reset successfully")
}

// CurrentUser maneja GET /auth/current-user.
func (h *UserHandler) CurrentUser(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		_ = c.Error(service.ErrMissingToken)
		return
	}

	user, err := h.users.CurrentUser(c.Request.Context(), identity.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, user, "Current user fetched successfully")
}

// Logout maneja POST /auth/logout.
func (h *UserHandler) Logout(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		_ = c.Error(service.ErrMissingToken)
		return
	}

	if err := h.users.Logout(c.Request.Context(), identity.ID); err != nil {
		_ = c.Error(err)
		return
	}
	h.clearRefreshCookie(c)
	respond(c, http.StatusOK, nil, "Logged out successfully")
}

func (h *UserHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, refreshCookieMaxAge, "/", "", h.secureCookie, true)
}

func (h *UserHandler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", h.secureCookie, true)
}

// formFile abre un adjunto opcional del formulario multipart.
func formFile(c *gin.Context, field string) (*storage.File, func(), error) {
	noop := func() {}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, noop, nil
		}
		return nil, noop, bindError(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, err
	}
	return &storage.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
