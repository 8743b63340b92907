package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"prepwise/internal/domain"
	"prepwise/internal/email"
	"prepwise/internal/metrics"
	"prepwise/internal/repository"
	"prepwise/internal/storage"
)

const (
	codeTTL        = 10 * time.Minute
	resendCooldown = 60 * time.Second
)

// UserService coordina registro, verificación, sesión y recuperación de contraseña.
type UserService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	tokens      *JWTService
	hasher      PasswordHasher
	emailSender email.Sender
	uploader    storage.Uploader
	frontendURL string
	now         func() time.Time
}

func NewUserService(
	logger *zap.Logger,
	users repository.UserRepository,
	tokens *JWTService,
	emailSender email.Sender,
	uploader storage.Uploader,
	frontendURL string,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger:      logger,
		users:       users,
		tokens:      tokens,
		hasher:      NewPasswordHasher(defaultPasswordCost),
		emailSender: emailSender,
		uploader:    uploader,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Image    *storage.File
	Resume   *storage.File
}

type LoginResult struct {
	User         domain.User
	AccessToken  string
	RefreshToken string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (user domain.User, err error) {
	defer func() { metrics.ObserveAuth("register", err) }()

	fullName := strings.TrimSpace(input.FullName)
	emailAddr := normalizeEmail(input.Email)
	if fullName == "" || emailAddr == "" || input.Password == "" {
		return domain.User{}, invalidInput("Full name, email, and password are required")
	}
	for _, f := range []*storage.File{input.Image, input.Resume} {
		if f == nil {
			continue
		}
		if _, err := storage.Extension(f.Name); err != nil {
			return domain.User{}, ErrUnsupportedFile
		}
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	image, err := s.upload(ctx, storage.FolderUserImages, input.Image)
	if err != nil {
		return domain.User{}, err
	}
	resume, err := s.upload(ctx, storage.FolderUserResumes, input.Resume)
	if err != nil {
		return domain.User{}, err
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return domain.User{}, err
	}
	code, err := generateVerificationCode()
	if err != nil {
		return domain.User{}, err
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(codeTTL)
	user = domain.User{
		ID:                     uuid.NewString(),
		FullName:               fullName,
		Email:                  emailAddr,
		PasswordHash:           passwordHash,
		Image:                  image,
		Resume:                 resume,
		IsVerified:             false,
		VerificationCodeHash:   codeHash,
		VerificationExpiry:     &expiresAt,
		LastVerificationSentAt: &now,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	// El usuario ya está persistido: un fallo de envío solo se registra.
	// Se recupera con resend-verification.
	if err := s.emailSender.SendVerificationCode(ctx, user.Email, code, expiresAt); err != nil {
		s.logger.Warn("verification email not sent", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

func (s *UserService) Login(ctx context.Context, emailAddr, password string) (result LoginResult, err error) {
	defer func() { metrics.ObserveAuth("login", err) }()

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, invalidInput("Email and password are required")
	}

	user, err := s.lookupByEmail(ctx, emailAddr)
	if err != nil {
		return LoginResult{}, err
	}
	if !user.IsVerified {
		return LoginResult{}, ErrEmailNotVerified
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	access, err := s.tokens.SignAccessToken(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.tokens.SignRefreshToken(user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, tokenDigest(refresh)); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) VerifyEmail(ctx context.Context, emailAddr, code string) (err error) {
	defer func() { metrics.ObserveAuth("verify_email", err) }()

	emailAddr = normalizeEmail(emailAddr)
	code = strings.TrimSpace(code)
	if emailAddr == "" || code == "" {
		return invalidInput("Email and verification code are required")
	}

	user, err := s.lookupByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if user.VerificationCodeHash == "" || user.VerificationExpiry == nil {
		return ErrVerificationNotPending
	}
	if !s.now().Before(*user.VerificationExpiry) {
		return ErrVerificationExpired
	}
	if !isValidVerificationCode(code) || !s.hasher.Compare(user.VerificationCodeHash, code) {
		return ErrVerificationInvalid
	}

	return s.users.MarkVerified(ctx, user.ID)
}

func (s *UserService) ResendVerificationCode(ctx context.Context, emailAddr string) (err error) {
	defer func() { metrics.ObserveAuth("resend_verification", err) }()

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return invalidInput("Email is required")
	}

	user, err := s.lookupByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	if user.LastVerificationSentAt == nil {
		return ErrVerificationNeverSent
	}

	now := s.now().UTC()
	if now.Sub(*user.LastVerificationSentAt) < resendCooldown {
		return ErrResendCooldown
	}

	code, err := generateVerificationCode()
	if err != nil {
		return err
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return err
	}
	expiresAt := now.Add(codeTTL)
	if err := s.users.UpdateVerificationCode(ctx, user.ID, codeHash, expiresAt, now); err != nil {
		return err
	}

	if err := s.emailSender.SendVerificationCode(ctx, user.Email, code, expiresAt); err != nil {
		s.logger.Warn("verification email not sent", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEmailSendFailure, err)
	}
	return nil
}

// RefreshAccessToken emite un nuevo access token; el refresh token no rota.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (access string, err error) {
	defer func() { metrics.ObserveAuth("refresh", err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrRefreshTokenMissing
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", ErrRefreshTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRefreshTokenInvalid
		}
		return "", err
	}
	if user.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(tokenDigest(refreshToken))) != 1 {
		return "", ErrRefreshTokenInvalid
	}

	return s.tokens.SignAccessToken(user.ID)
}

func (s *UserService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { metrics.ObserveAuth("logout", err) }()

	if err := s.users.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

func (s *UserService) ForgotPassword(ctx context.Context, emailAddr string) (err error) {
	defer func() { metrics.ObserveAuth("forgot_password", err) }()

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return invalidInput("Email is required")
	}

	user, err := s.lookupByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().UTC().Add(codeTTL)
	if err := s.users.SetPasswordReset(ctx, user.ID, tokenDigest(token), expiresAt); err != nil {
		return err
	}

	if err := s.emailSender.SendPasswordReset(ctx, user.Email, s.resetURL(token), expiresAt); err != nil {
		s.logger.Warn("password reset email not sent", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrEmailSendFailure, err)
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { metrics.ObserveAuth("reset_password", err) }()

	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return invalidInput("Token and new password are required")
	}

	user, err := s.users.GetByResetToken(ctx, tokenDigest(token), s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, passwordHash)
}

func (s *UserService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// ResolveIdentity valida un access token y carga la identidad del titular.
func (s *UserService) ResolveIdentity(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return Identity{}, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, err
	}
	return Identity{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		IsVerified: user.IsVerified,
	}, nil
}

func (s *UserService) lookupByEmail(ctx context.Context, emailAddr string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) upload(ctx context.Context, folder string, file *storage.File) (*string, error) {
	if file == nil {
		return nil, nil
	}
	location, err := s.uploader.Upload(ctx, folder, *file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFileType) {
			return nil, ErrUnsupportedFile
		}
		s.logger.Error("upload failed", zap.String("folder", folder), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUploadFailure, err)
	}
	return &location, nil
}

func (s *UserService) resetURL(token string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

// normalizeEmail solo recorta espacios: el email se compara tal como se guardó.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
