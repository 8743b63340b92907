package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prepwise/internal/service"
)

// envelope es la forma de todas las respuestas JSON de la API.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

type apiError struct {
	Status  int
	Message string
}

var (
	errTooManyRequests = errors.New("too many requests")
	errRouteNotFound   = errors.New("route not found")
)

var errorTable = []struct {
	target error
	api    apiError
}{
	{service.ErrEmailTaken, apiError{http.StatusConflict, "User with this email already exists"}},
	{service.ErrUserNotFound, apiError{http.StatusNotFound, "User not found"}},
	{service.ErrEmailNotVerified, apiError{http.StatusForbidden, "Please verify your email before logging in"}},
	{service.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "Invalid credentials"}},
	{service.ErrVerificationExpired, apiError{http.StatusBadRequest, "Verification code has expired"}},
	{service.ErrVerificationInvalid, apiError{http.StatusBadRequest, "Invalid verification code"}},
	{service.ErrVerificationNotPending, apiError{http.StatusNotFound, "No pending verification code"}},
	{service.ErrAlreadyVerified, apiError{http.StatusBadRequest, "User is already verified"}},
	{service.ErrVerificationNeverSent, apiError{http.StatusBadRequest, "Verification code send time not found"}},
	{service.ErrResendCooldown, apiError{http.StatusBadRequest, "Please wait before requesting a new verification code"}},
	{service.ErrRefreshTokenMissing, apiError{http.StatusUnauthorized, "Refresh token not found"}},
	{service.ErrRefreshTokenInvalid, apiError{http.StatusUnauthorized, "Invalid or expired refresh token"}},
	{service.ErrResetTokenInvalid, apiError{http.StatusBadRequest, "Invalid or expired reset token"}},
	{service.ErrUnsupportedFile, apiError{http.StatusBadRequest, "Only .jpg, .jpeg, .png and .pdf files are allowed"}},
	{service.ErrUploadFailure, apiError{http.StatusInternalServerError, "Failed to upload file"}},
	{service.ErrEmailSendFailure, apiError{http.StatusInternalServerError, "Failed to send email"}},
	{service.ErrMissingToken, apiError{http.StatusUnauthorized, "Unauthorized: no token provided"}},
	{service.ErrMalformedAuthHeader, apiError{http.StatusUnauthorized, "Unauthorized: malformed authorization header"}},
	{service.ErrJWTExpired, apiError{http.StatusUnauthorized, "Unauthorized: token expired"}},
	{service.ErrJWTInvalid, apiError{http.StatusUnauthorized, "Unauthorized: invalid token"}},
	{service.ErrIdentityNotFound, apiError{http.StatusUnauthorized, "Unauthorized: user not found"}},
	{service.ErrGenerationFailed, apiError{http.StatusInternalServerError, "Failed to generate interview questions"}},
	{service.ErrInterviewNotFound, apiError{http.StatusNotFound, "Interview not found"}},
	{errTooManyRequests, apiError{http.StatusTooManyRequests, "Too many requests, please try again later"}},
	{errRouteNotFound, apiError{http.StatusNotFound, "Route not found"}},
}

func resolveError(err error) apiError {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return apiError{http.StatusBadRequest, verr.Message}
	}
	var berr *bindingError
	if errors.As(err, &berr) {
		return apiError{http.StatusBadRequest, berr.Error()}
	}
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.api
		}
	}
	return apiError{http.StatusInternalServerError, "Internal server error"}
}

// errorMiddleware renderiza el último error registrado con c.Error si el
// handler no escribió respuesta.
func errorMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		apiErr := resolveError(err)
		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		respond(c, apiErr.Status, nil, apiErr.Message)
	}
}
