package service

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailTaken             = errors.New("email already registered")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrVerificationExpired    = errors.New("verification code expired")
	ErrVerificationInvalid    = errors.New("verification code invalid")
	ErrVerificationNotPending = errors.New("no pending verification code")
	ErrAlreadyVerified        = errors.New("user already verified")
	ErrVerificationNeverSent  = errors.New("verification send time not found")
	ErrResendCooldown         = errors.New("verification resend cooldown")
	ErrRefreshTokenMissing    = errors.New("refresh token missing")
	ErrRefreshTokenInvalid    = errors.New("refresh token invalid")
	ErrResetTokenInvalid      = errors.New("reset token invalid or expired")
	ErrUnsupportedFile        = errors.New("unsupported file type")
	ErrUploadFailure          = errors.New("file upload failed")
	ErrEmailSendFailure       = errors.New("email send failed")
	ErrMissingToken           = errors.New("missing bearer token")
	ErrMalformedAuthHeader    = errors.New("malformed authorization header")
	ErrIdentityNotFound       = errors.New("token subject not found")
	ErrGenerationFailed       = errors.New("interview generation failed")
	ErrInterviewNotFound      = errors.New("interview not found")
)

// ValidationError indica datos de entrada incompletos o inválidos.
// El mensaje se muestra tal cual al cliente.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidInput(message string) error {
	return &ValidationError{Message: message}
}
