package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"prepwise/internal/domain"
)

// ErrDuplicate se devuelve cuando un INSERT viola una restriccion unica.
var ErrDuplicate = errors.New("duplicate key")

const pgUniqueViolation = "23505"

// UserRepository define el contrato de persistencia para usuarios.
// Los lookups sin resultado devuelven pgx.ErrNoRows.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByResetToken(ctx context.Context, tokenDigest string, now time.Time) (domain.User, error)
	UpdateVerificationCode(ctx context.Context, id, codeHash string, expiresAt, sentAt time.Time) error
	MarkVerified(ctx context.Context, id string) error
	SetRefreshToken(ctx context.Context, id, tokenDigest string) error
	ClearRefreshToken(ctx context.Context, id string) error
	SetPasswordReset(ctx context.Context, id, tokenDigest string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, full_name, email, password_hash, image, resume, is_verified,
	verification_code, verification_expiry, last_verification_sent_at,
	password_reset_token, password_reset_expiry, refresh_token,
	created_at, updated_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (
			id, full_name, email, password_hash, image, resume, is_verified,
			verification_code, verification_expiry, last_verification_sent_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.FullName,
		user.Email,
		user.PasswordHash,
		user.Image,
		user.Resume,
		user.IsVerified,
		nullableString(user.VerificationCodeHash),
		user.VerificationExpiry,
		user.LastVerificationSentAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PgUserRepository) GetByResetToken(ctx context.Context, tokenDigest string, now time.Time) (domain.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE password_reset_token = $1 AND password_reset_expiry > $2
		LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, query, tokenDigest, now))
}

func (r *PgUserRepository) UpdateVerificationCode(ctx context.Context, id, codeHash string, expiresAt, sentAt time.Time) error {
	const query = `
		UPDATE users
		SET verification_code = $2, verification_expiry = $3, last_verification_sent_at = $4, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, codeHash, expiresAt, sentAt)
}

func (r *PgUserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET is_verified = TRUE, verification_code = NULL, verification_expiry = NULL, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *PgUserRepository) SetRefreshToken(ctx context.Context, id, tokenDigest string) error {
	const query = `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id, tokenDigest)
}

func (r *PgUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	const query = `UPDATE users SET refresh_token = NULL, updated_at = now() WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PgUserRepository) SetPasswordReset(ctx context.Context, id, tokenDigest string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET password_reset_token = $2, password_reset_expiry = $3, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, tokenDigest, expiresAt)
}

func (r *PgUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, password_reset_token = NULL, password_reset_expiry = NULL, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *PgUserRepository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u                domain.User
		verificationCode *string
		resetToken       *string
		refreshToken     *string
	)
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.Image,
		&u.Resume,
		&u.IsVerified,
		&verificationCode,
		&u.VerificationExpiry,
		&u.LastVerificationSentAt,
		&resetToken,
		&u.PasswordResetExpiry,
		&refreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.VerificationCodeHash = derefString(verificationCode)
	u.PasswordResetToken = derefString(resetToken)
	u.RefreshToken = derefString(refreshToken)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
